package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type teacherAssignmentRepo interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.TeacherAssignmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.TeacherAssignmentDetail, error)
	Exists(ctx context.Context, teacherID, classID, subjectID string, dayOrder int, excludeID string) (bool, error)
	Create(ctx context.Context, assignment *models.TeacherAssignment) error
	Update(ctx context.Context, assignment *models.TeacherAssignment) error
	Delete(ctx context.Context, id string) error
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// TeacherAssignmentService maintains the day-order timetable.
type TeacherAssignmentService struct {
	assignments teacherAssignmentRepo
	teachers    teacherReader
	classes     classReader
	subjects    subjectReader
	maxDayOrder int
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTeacherAssignmentService creates a service instance.
func NewTeacherAssignmentService(
	assignments teacherAssignmentRepo,
	teachers teacherReader,
	classes classReader,
	subjects subjectReader,
	maxDayOrder int,
	validate *validator.Validate,
	logger *zap.Logger,
) *TeacherAssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDayOrder <= 0 {
		maxDayOrder = 6
	}
	return &TeacherAssignmentService{
		assignments: assignments,
		teachers:    teachers,
		classes:     classes,
		subjects:    subjects,
		maxDayOrder: maxDayOrder,
		validator:   ensureValidator(validate),
		logger:      logger,
	}
}

// List returns assignments filtered by teacher, class and day order.
func (s *TeacherAssignmentService) List(ctx context.Context, teacherID, classID, dayOrder string) ([]models.TeacherAssignmentDetail, error) {
	filter := models.AssignmentFilter{TeacherID: strings.TrimSpace(teacherID), ClassID: strings.TrimSpace(classID)}
	if raw := strings.TrimSpace(dayOrder); raw != "" {
		order, err := strconv.Atoi(raw)
		if err != nil || order < 1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "day_order must be a positive integer")
		}
		filter.DayOrder = &order
	}
	items, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return items, nil
}

// Get returns one assignment.
func (s *TeacherAssignmentService) Get(ctx context.Context, id string) (*models.TeacherAssignmentDetail, error) {
	item, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return item, nil
}

// Create adds a timetable slot.
func (s *TeacherAssignmentService) Create(ctx context.Context, req dto.AssignmentRequest) (*models.TeacherAssignment, error) {
	if err := s.check(ctx, req, ""); err != nil {
		return nil, err
	}
	assignment := assignmentFromRequest(req)
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	s.logger.Info("assignment created", zap.String("assignment_id", assignment.ID), zap.String("teacher_id", assignment.TeacherID), zap.Int("day_order", assignment.DayOrder))
	return assignment, nil
}

// Update replaces an existing slot.
func (s *TeacherAssignmentService) Update(ctx context.Context, id string, req dto.AssignmentRequest) (*models.TeacherAssignment, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, req, id); err != nil {
		return nil, err
	}
	assignment := assignmentFromRequest(req)
	assignment.ID = id
	assignment.CreatedAt = existing.CreatedAt
	if err := s.assignments.Update(ctx, assignment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes a slot.
func (s *TeacherAssignmentService) Delete(ctx context.Context, id string) error {
	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

func (s *TeacherAssignmentService) check(ctx context.Context, req dto.AssignmentRequest, excludeID string) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid assignment payload")
	}
	if req.DayOrder > s.maxDayOrder {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day_order must be between 1 and %d", s.maxDayOrder))
	}
	// HH:MM strings compare chronologically.
	if req.EndTime <= req.StartTime {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	if err := s.ensureReferences(ctx, req); err != nil {
		return err
	}
	exists, err := s.assignments.Exists(ctx, req.TeacherID, req.ClassID, req.SubjectID, req.DayOrder, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "teacher already assigned to this class and subject on that day order")
	}
	return nil
}

func (s *TeacherAssignmentService) ensureReferences(ctx context.Context, req dto.AssignmentRequest) error {
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		return lookupError(err, "teacher")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		return lookupError(err, "class")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		return lookupError(err, "subject")
	}
	return nil
}

func assignmentFromRequest(req dto.AssignmentRequest) *models.TeacherAssignment {
	return &models.TeacherAssignment{
		TeacherID:          req.TeacherID,
		ClassID:            req.ClassID,
		SubjectID:          req.SubjectID,
		DayOrder:           req.DayOrder,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		AutoSessionEnabled: req.AutoSessionEnabled,
	}
}

// lookupError maps a reference lookup failure onto a not-found or internal error.
func lookupError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
}
