package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type odRequestRepository interface {
	Create(ctx context.Context, req *models.ODRequest) error
	FindByID(ctx context.Context, id string) (*models.ODRequestDetail, error)
	List(ctx context.Context, filter models.ODFilter) ([]models.ODRequestDetail, int, error)
	Decide(ctx context.Context, id string, status models.ODStatus, decidedBy string, remarks *string, decidedAt time.Time) error
	MarkVerified(ctx context.Context, id, verifiedBy string, verifiedAt time.Time) error
}

type odDecisionNotifier interface {
	NotifyODDecision(req models.ODRequestDetail)
}

// ODRequestService handles on-duty requests from submission to gate verification.
type ODRequestService struct {
	repo      odRequestRepository
	students  studentReader
	notifier  odDecisionNotifier
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewODRequestService constructs the service.
func NewODRequestService(repo odRequestRepository, students studentReader, notifier odDecisionNotifier, validate *validator.Validate, logger *zap.Logger, location *time.Location) *ODRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}
	return &ODRequestService{
		repo:      repo,
		students:  students,
		notifier:  notifier,
		validator: ensureValidator(validate),
		logger:    logger,
		location:  location,
		now:       time.Now,
	}
}

// Create submits a pending request for the student.
func (s *ODRequestService) Create(ctx context.Context, studentID string, req dto.CreateODRequest) (*models.ODRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid od request")
	}
	start, _ := models.ParseDate(req.StartDate)
	end, _ := models.ParseDate(req.EndDate)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, lookupError(err, "student")
	}

	od := &models.ODRequest{
		StudentID: studentID,
		EventName: strings.TrimSpace(req.EventName),
		Reason:    strings.TrimSpace(req.Reason),
		StartDate: start,
		EndDate:   end,
		Status:    models.ODStatusPending,
	}
	if err := s.repo.Create(ctx, od); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create od request")
	}
	return od, nil
}

// List returns requests with pagination metadata.
func (s *ODRequestService) List(ctx context.Context, filter models.ODFilter) ([]models.ODRequestDetail, *models.Pagination, error) {
	switch filter.Status {
	case "", models.ODStatusPending, models.ODStatusApproved, models.ODStatusRejected:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list od requests")
	}
	if items == nil {
		items = []models.ODRequestDetail{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one request.
func (s *ODRequestService) Get(ctx context.Context, id string) (*models.ODRequestDetail, error) {
	od, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "od request")
	}
	return od, nil
}

// Decide approves or rejects a pending request and emails the student.
func (s *ODRequestService) Decide(ctx context.Context, id, deciderID string, req dto.ODDecisionRequest) (*models.ODRequestDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid decision")
	}
	od, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if od.Status != models.ODStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyDecided, "od request already "+string(od.Status))
	}
	if err := s.repo.Decide(ctx, id, models.ODStatus(req.Status), deciderID, req.Remarks, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyDecided, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}
	decided, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyODDecision(*decided)
	}
	return decided, nil
}

// Verify checks at the gate that the request is approved and covers date (today when empty),
// stamping the verification when it is.
func (s *ODRequestService) Verify(ctx context.Context, id, verifierID, date string) (*models.ODVerification, error) {
	on, err := parseOptionalDate(date, "date")
	if err != nil {
		return nil, err
	}
	day := models.NewDate(s.now().In(s.location))
	if on != nil {
		day = *on
	}
	od, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &models.ODVerification{Request: *od}
	switch {
	case od.Status != models.ODStatusApproved:
		result.Reason = "request is " + string(od.Status)
	case !day.Within(od.StartDate, od.EndDate):
		result.Reason = "request does not cover " + day.String()
	default:
		result.Valid = true
	}
	if !result.Valid {
		return result, nil
	}

	at := s.now().UTC()
	if err := s.repo.MarkVerified(ctx, id, verifierID, at); err != nil {
		s.logger.Warn("od verification stamp failed", zap.String("od_request_id", id), zap.Error(err))
		return result, nil
	}
	result.Request.VerifiedBy = &verifierID
	result.Request.VerifiedAt = &at
	return result, nil
}
