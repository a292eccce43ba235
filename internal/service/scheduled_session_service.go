package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type autoSessionReader interface {
	ListAutoSessions(ctx context.Context, teacherID string, dayOrder int) ([]models.TeacherAssignmentDetail, error)
}

type dayOrderResolver interface {
	Resolve(ctx context.Context, department string, date *time.Time) models.DayOrderState
}

// ScheduledSessionService lists the auto-session assignments that fall on a teacher's
// current day order.
type ScheduledSessionService struct {
	assignments autoSessionReader
	resolver    dayOrderResolver
	logger      *zap.Logger
}

// NewScheduledSessionService constructs the matcher.
func NewScheduledSessionService(assignments autoSessionReader, resolver dayOrderResolver, logger *zap.Logger) *ScheduledSessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduledSessionService{assignments: assignments, resolver: resolver, logger: logger}
}

// ListForTeacher resolves today's day order for department and matches the teacher against it.
func (s *ScheduledSessionService) ListForTeacher(ctx context.Context, teacherID, department string) (*models.ScheduledSessions, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required")
	}
	state := s.resolver.Resolve(ctx, department, nil)
	return s.Match(ctx, teacherID, state)
}

// Match returns the teacher's auto-session assignments for state's day order ordered by
// start time. Holidays short-circuit to an empty result without reading assignments.
func (s *ScheduledSessionService) Match(ctx context.Context, teacherID string, state models.DayOrderState) (*models.ScheduledSessions, error) {
	if state.Holiday {
		return &models.ScheduledSessions{
			IsHoliday:         true,
			HolidayName:       state.HolidayName,
			ScheduledSessions: []models.ScheduledSession{},
		}, nil
	}
	if state.DayOrder == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "day order unresolved")
	}

	rows, err := s.assignments.ListAutoSessions(ctx, teacherID, *state.DayOrder)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled sessions")
	}

	sessions := make([]models.ScheduledSession, 0, len(rows))
	for _, row := range rows {
		display, err := FormatDisplayTime(row.StartTime)
		if err != nil {
			s.logger.Warn("assignment has unparseable start time", zap.String("assignment_id", row.ID), zap.String("start_time", row.StartTime))
			display = row.StartTime
		}
		sessions = append(sessions, models.ScheduledSession{TeacherAssignmentDetail: row, DisplayTime: display})
	}

	dayOrder := *state.DayOrder
	return &models.ScheduledSessions{
		CurrentDayOrder:   &dayOrder,
		Fallback:          state.Fallback,
		ScheduledSessions: sessions,
		Count:             len(sessions),
	}, nil
}

// FormatDisplayTime converts a 24-hour "HH:MM" (or "HH:MM:SS") clock into "h:MM AM|PM".
// Midnight renders as 12 AM and noon as 12 PM.
func FormatDisplayTime(clock string) (string, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 || len(parts) > 3 || len(parts[1]) != 2 {
		return "", fmt.Errorf("invalid clock %q", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", clock)
	}

	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	switch {
	case hour == 0:
		hour = 12
	case hour > 12:
		hour -= 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix), nil
}
