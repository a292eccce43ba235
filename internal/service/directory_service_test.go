package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type teacherDirectoryStub struct {
	filter  models.TeacherFilter
	created []*models.Teacher
	err     error
}

func (s *teacherDirectoryStub) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	s.filter = filter
	return nil, 0, s.err
}

func (s *teacherDirectoryStub) Create(ctx context.Context, teacher *models.Teacher) error {
	if s.err != nil {
		return s.err
	}
	teacher.ID = "T9"
	s.created = append(s.created, teacher)
	return nil
}

type classDirectoryStub struct {
	department string
	created    []*models.Class
}

func (s *classDirectoryStub) List(ctx context.Context, department string) ([]models.Class, error) {
	s.department = department
	return []models.Class{{ID: "C1", Name: "III CSE", Section: "A", Department: department}}, nil
}

func (s *classDirectoryStub) Create(ctx context.Context, class *models.Class) error {
	s.created = append(s.created, class)
	return nil
}

type subjectDirectoryStub struct {
	codes   map[string]bool
	created []*models.Subject
}

func (s *subjectDirectoryStub) List(ctx context.Context) ([]models.Subject, error) {
	return nil, nil
}

func (s *subjectDirectoryStub) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return s.codes[code], nil
}

func (s *subjectDirectoryStub) Create(ctx context.Context, subject *models.Subject) error {
	s.created = append(s.created, subject)
	return nil
}

func newDirectoryForTest(teachers *teacherDirectoryStub, classes *classDirectoryStub, subjects *subjectDirectoryStub) *DirectoryService {
	return NewDirectoryService(teachers, classes, subjects, nil, zap.NewNop())
}

func TestDirectoryServiceListTeachersNormalisesPaging(t *testing.T) {
	teachers := &teacherDirectoryStub{}
	svc := newDirectoryForTest(teachers, &classDirectoryStub{}, &subjectDirectoryStub{})

	items, page, err := svc.ListTeachers(context.Background(), models.TeacherFilter{Page: 0, PageSize: 500, Search: "  meena "})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, "meena", teachers.filter.Search)
}

func TestDirectoryServiceCreateTeacher(t *testing.T) {
	teachers := &teacherDirectoryStub{}
	svc := newDirectoryForTest(teachers, &classDirectoryStub{}, &subjectDirectoryStub{})

	teacher, err := svc.CreateTeacher(context.Background(), dto.CreateTeacherRequest{FullName: " Meena ", Email: "Meena@Campus.edu", Department: "cse"})
	require.NoError(t, err)
	assert.Equal(t, "T9", teacher.ID)
	assert.Equal(t, "meena@campus.edu", teacher.Email)
	assert.Equal(t, "CSE", teacher.Department)
	assert.True(t, teacher.Active)

	_, err = svc.CreateTeacher(context.Background(), dto.CreateTeacherRequest{FullName: "Meena"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	teachers.err = repository.ErrDuplicate
	_, err = svc.CreateTeacher(context.Background(), dto.CreateTeacherRequest{FullName: "Meena", Email: "meena@campus.edu", Department: "CSE"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	teachers.err = errors.New("db down")
	_, err = svc.CreateTeacher(context.Background(), dto.CreateTeacherRequest{FullName: "Meena", Email: "meena@campus.edu", Department: "CSE"})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestDirectoryServiceClasses(t *testing.T) {
	classes := &classDirectoryStub{}
	svc := newDirectoryForTest(&teacherDirectoryStub{}, classes, &subjectDirectoryStub{})

	items, err := svc.ListClasses(context.Background(), " cse ")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "CSE", classes.department)

	class, err := svc.CreateClass(context.Background(), dto.CreateClassRequest{Name: "III CSE", Section: "b", Department: "cse"})
	require.NoError(t, err)
	assert.Equal(t, "B", class.Section)
	assert.Len(t, classes.created, 1)
}

func TestDirectoryServiceCreateSubjectRejectsDuplicateCode(t *testing.T) {
	subjects := &subjectDirectoryStub{codes: map[string]bool{"CS101": true}}
	svc := newDirectoryForTest(&teacherDirectoryStub{}, &classDirectoryStub{}, subjects)

	_, err := svc.CreateSubject(context.Background(), dto.CreateSubjectRequest{Code: "cs101", Name: "Programming"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, subjects.created)

	subject, err := svc.CreateSubject(context.Background(), dto.CreateSubjectRequest{Code: "cs202", Name: "Networks"})
	require.NoError(t, err)
	assert.Equal(t, "CS202", subject.Code)

	items, err := svc.ListSubjects(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
}
