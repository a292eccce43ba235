package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type teacherDirectory interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	Create(ctx context.Context, teacher *models.Teacher) error
}

type classDirectory interface {
	List(ctx context.Context, department string) ([]models.Class, error)
	Create(ctx context.Context, class *models.Class) error
}

type subjectDirectory interface {
	List(ctx context.Context) ([]models.Subject, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
}

// DirectoryService manages the reference data sessions and absences point at.
type DirectoryService struct {
	teachers  teacherDirectory
	classes   classDirectory
	subjects  subjectDirectory
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(teachers teacherDirectory, classes classDirectory, subjects subjectDirectory, validate *validator.Validate, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{teachers: teachers, classes: classes, subjects: subjects, validator: ensureValidator(validate), logger: logger}
}

// ListTeachers returns a page of teachers.
func (s *DirectoryService) ListTeachers(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	filter.Search = strings.TrimSpace(filter.Search)
	items, total, err := s.teachers.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	if items == nil {
		items = []models.Teacher{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// CreateTeacher registers a new active teacher.
func (s *DirectoryService) CreateTeacher(ctx context.Context, req dto.CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher := &models.Teacher{
		FullName:   strings.TrimSpace(req.FullName),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Department: strings.ToUpper(strings.TrimSpace(req.Department)),
		Active:     true,
	}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return nil, createError(err, "teacher")
	}
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID))
	return teacher, nil
}

// ListClasses returns the classes of a department, or all classes when empty.
func (s *DirectoryService) ListClasses(ctx context.Context, department string) ([]models.Class, error) {
	items, err := s.classes.List(ctx, strings.ToUpper(strings.TrimSpace(department)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	if items == nil {
		items = []models.Class{}
	}
	return items, nil
}

// CreateClass registers a class section.
func (s *DirectoryService) CreateClass(ctx context.Context, req dto.CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}
	class := &models.Class{
		Name:       strings.TrimSpace(req.Name),
		Section:    strings.ToUpper(strings.TrimSpace(req.Section)),
		Department: strings.ToUpper(strings.TrimSpace(req.Department)),
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, createError(err, "class")
	}
	return class, nil
}

// ListSubjects returns every subject ordered by code.
func (s *DirectoryService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	items, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	if items == nil {
		items = []models.Subject{}
	}
	return items, nil
}

// CreateSubject registers a subject with a unique code.
func (s *DirectoryService) CreateSubject(ctx context.Context, req dto.CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.subjects.ExistsByCode(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
	}
	subject := &models.Subject{Code: code, Name: strings.TrimSpace(req.Name)}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, createError(err, "subject")
	}
	return subject, nil
}

func createError(err error, entity string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return appErrors.Clone(appErrors.ErrConflict, entity+" already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create "+entity)
}
