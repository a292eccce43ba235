package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/pkg/config"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

// Absence outcomes reported to metrics.
const (
	absenceOutcomeCreated  = "created"
	absenceOutcomePartial  = "partial"
	absenceOutcomeFailed   = "failed"
	absenceOutcomeRejected = "rejected"
)

type absenceRepository interface {
	CreateAbsence(ctx context.Context, absence *models.TeacherAbsence) error
	CreateTransfers(ctx context.Context, transfers []models.ClassTransfer) error
	FindCollisions(ctx context.Context, originalTeacherID string, candidates []models.ClassTransfer) ([]models.ClassTransfer, error)
	FindByID(ctx context.Context, id string) (*models.TeacherAbsence, error)
	List(ctx context.Context, filter models.AbsenceFilter) ([]models.TeacherAbsence, error)
	ListTransfersByAbsences(ctx context.Context, absenceIDs []string) ([]models.ClassTransferDetail, error)
	ListTransfers(ctx context.Context, filter models.TransferFilter) ([]models.ClassTransferDetail, error)
}

type substituteNotifier interface {
	NotifySubstitutes(absentTeacher string, transfers []models.ClassTransferDetail)
}

// AbsenceService records teacher absences and fans their class cover out into one
// transfer per date.
type AbsenceService struct {
	repo            absenceRepository
	teachers        teacherReader
	notifier        substituteNotifier
	metrics         *MetricsService
	validator       *validator.Validate
	logger          *zap.Logger
	duplicatePolicy string
}

// NewAbsenceService constructs an AbsenceService. An unknown duplicate policy behaves as
// config.DuplicatePolicyAllow.
func NewAbsenceService(repo absenceRepository, teachers teacherReader, notifier substituteNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, duplicatePolicy string) *AbsenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if duplicatePolicy != config.DuplicatePolicyReject {
		duplicatePolicy = config.DuplicatePolicyAllow
	}
	return &AbsenceService{
		repo:            repo,
		teachers:        teachers,
		notifier:        notifier,
		metrics:         metrics,
		validator:       ensureValidator(validate),
		logger:          logger,
		duplicatePolicy: duplicatePolicy,
	}
}

// Record stores one absence and then, in a single batch, one transfer per supplied date.
// The absence is kept when the transfer batch fails; the result then carries a warning.
func (s *AbsenceService) Record(ctx context.Context, req models.RecordAbsenceRequest) (*models.RecordAbsenceResult, error) {
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "teacherId, startDate and endDate are required")
	}
	if req.EndDate.Before(*req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}

	rows, err := expandTransfers(req)
	if err != nil {
		return nil, err
	}
	if err := s.applyDuplicatePolicy(ctx, req.TeacherID, rows); err != nil {
		s.metrics.RecordAbsenceOutcome(absenceOutcomeRejected, 0)
		return nil, err
	}

	absence := &models.TeacherAbsence{
		TeacherID: req.TeacherID,
		StartDate: *req.StartDate,
		EndDate:   *req.EndDate,
		Reason:    req.Reason,
		Status:    models.AbsenceStatusActive,
	}
	if err := s.repo.CreateAbsence(ctx, absence); err != nil {
		s.metrics.RecordAbsenceOutcome(absenceOutcomeFailed, 0)
		s.logger.Error("absence create failed", zap.String("teacher_id", req.TeacherID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrAbsenceCreate.Code, appErrors.ErrAbsenceCreate.Status, appErrors.ErrAbsenceCreate.Message)
	}

	result := &models.RecordAbsenceResult{AbsenceID: absence.ID}
	if len(rows) == 0 {
		s.metrics.RecordAbsenceOutcome(absenceOutcomeCreated, 0)
		return result, nil
	}

	for i := range rows {
		rows[i].AbsenceID = absence.ID
	}
	if err := s.repo.CreateTransfers(ctx, rows); err != nil {
		s.metrics.RecordAbsenceOutcome(absenceOutcomePartial, 0)
		s.logger.Warn("absence recorded but transfers failed",
			zap.String("absence_id", absence.ID),
			zap.Int("transfers", len(rows)),
			zap.Error(err),
		)
		warning := fmt.Sprintf("absence recorded but %d class transfer(s) could not be saved", len(rows))
		result.Warning = &warning
		result.ErrorCode = appErrors.ErrTransferCreate.Code
		return result, nil
	}

	result.TransferCount = len(rows)
	s.metrics.RecordAbsenceOutcome(absenceOutcomeCreated, len(rows))
	s.notifySubstitutes(ctx, absence)
	return result, nil
}

// expandTransfers flattens each entry's dates into one row per date. Dates must fall inside
// the absence window; no other dates are generated.
func expandTransfers(req models.RecordAbsenceRequest) ([]models.ClassTransfer, error) {
	var rows []models.ClassTransfer
	for i, entry := range req.Transfers {
		if entry.SubstituteTeacherID == req.TeacherID {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("transfers[%d]: substitute must differ from the absent teacher", i))
		}
		for _, day := range entry.Dates {
			if !day.Within(*req.StartDate, *req.EndDate) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("transfers[%d]: %s is outside the absence window %s..%s", i, day, req.StartDate, req.EndDate))
			}
			rows = append(rows, models.ClassTransfer{
				OriginalTeacherID:   req.TeacherID,
				SubstituteTeacherID: entry.SubstituteTeacherID,
				ClassID:             entry.ClassID,
				SubjectID:           entry.SubjectID,
				TransferDate:        day,
			})
		}
	}
	return rows, nil
}

// applyDuplicatePolicy refuses, under the reject policy, submissions whose rows repeat each
// other or an existing transfer of the same teacher, class, subject and date.
func (s *AbsenceService) applyDuplicatePolicy(ctx context.Context, teacherID string, rows []models.ClassTransfer) error {
	if s.duplicatePolicy != config.DuplicatePolicyReject || len(rows) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		key := row.ClassID + "|" + row.SubjectID + "|" + row.TransferDate.String()
		if _, dup := seen[key]; dup {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("duplicate transfer for class %s subject %s on %s", row.ClassID, row.SubjectID, row.TransferDate))
		}
		seen[key] = struct{}{}
	}
	collisions, err := s.repo.FindCollisions(ctx, teacherID, rows)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing transfers")
	}
	if len(collisions) > 0 {
		c := collisions[0]
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("class %s subject %s is already transferred on %s (%d overlapping)", c.ClassID, c.SubjectID, c.TransferDate, len(collisions)))
	}
	return nil
}

func (s *AbsenceService) notifySubstitutes(ctx context.Context, absence *models.TeacherAbsence) {
	if s.notifier == nil {
		return
	}
	details, err := s.repo.ListTransfersByAbsences(ctx, []string{absence.ID})
	if err != nil {
		s.logger.Warn("load transfers for notification failed", zap.String("absence_id", absence.ID), zap.Error(err))
		return
	}
	name := absence.TeacherID
	if s.teachers != nil {
		if teacher, err := s.teachers.FindByID(ctx, absence.TeacherID); err == nil {
			name = teacher.FullName
		}
	}
	s.notifier.NotifySubstitutes(name, details)
}

// List returns absences with nested transfers, newest first. startDate bounds the absence
// start from below and endDate bounds the absence end from above.
func (s *AbsenceService) List(ctx context.Context, teacherID, startDate, endDate string) ([]models.TeacherAbsenceDetail, error) {
	filter := models.AbsenceFilter{TeacherID: strings.TrimSpace(teacherID)}
	var err error
	if filter.StartDate, err = parseOptionalDate(startDate, "startDate"); err != nil {
		return nil, err
	}
	if filter.EndDate, err = parseOptionalDate(endDate, "endDate"); err != nil {
		return nil, err
	}

	absences, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}
	return s.attachTransfers(ctx, absences)
}

// Get returns one absence with its transfers.
func (s *AbsenceService) Get(ctx context.Context, id string) (*models.TeacherAbsenceDetail, error) {
	absence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}
	items, err := s.attachTransfers(ctx, []models.TeacherAbsence{*absence})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *AbsenceService) attachTransfers(ctx context.Context, absences []models.TeacherAbsence) ([]models.TeacherAbsenceDetail, error) {
	result := make([]models.TeacherAbsenceDetail, len(absences))
	if len(absences) == 0 {
		return result, nil
	}
	ids := make([]string, len(absences))
	index := make(map[string]int, len(absences))
	for i, absence := range absences {
		ids[i] = absence.ID
		index[absence.ID] = i
		result[i] = models.TeacherAbsenceDetail{TeacherAbsence: absence, Transfers: []models.ClassTransferDetail{}}
	}
	transfers, err := s.repo.ListTransfersByAbsences(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transfers")
	}
	for _, tr := range transfers {
		if i, ok := index[tr.AbsenceID]; ok {
			result[i].Transfers = append(result[i].Transfers, tr)
		}
	}
	return result, nil
}

// ListTransfers returns a substitute's cover duties, optionally for one date.
func (s *AbsenceService) ListTransfers(ctx context.Context, substituteTeacherID, date string) ([]models.ClassTransferDetail, error) {
	filter := models.TransferFilter{SubstituteTeacherID: strings.TrimSpace(substituteTeacherID)}
	if filter.SubstituteTeacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "substitute_teacher_id is required")
	}
	var err error
	if filter.Date, err = parseOptionalDate(date, "date"); err != nil {
		return nil, err
	}
	items, err := s.repo.ListTransfers(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transfers")
	}
	if items == nil {
		items = []models.ClassTransferDetail{}
	}
	return items, nil
}
