package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

type autoSessionRepoStub struct {
	rows      []models.TeacherAssignmentDetail
	err       error
	calls     int
	lastTeach string
	lastOrder int
}

func (s *autoSessionRepoStub) ListAutoSessions(ctx context.Context, teacherID string, dayOrder int) ([]models.TeacherAssignmentDetail, error) {
	s.calls++
	s.lastTeach = teacherID
	s.lastOrder = dayOrder
	return s.rows, s.err
}

type resolverStub struct {
	state    models.DayOrderState
	lastDept string
}

func (r *resolverStub) Resolve(ctx context.Context, department string, date *time.Time) models.DayOrderState {
	r.lastDept = department
	return r.state
}

func assignmentDetail(id, start string) models.TeacherAssignmentDetail {
	return models.TeacherAssignmentDetail{TeacherAssignment: models.TeacherAssignment{
		ID: id, TeacherID: "T1", DayOrder: 2, StartTime: start, EndTime: "23:00", AutoSessionEnabled: true,
	}}
}

func TestFormatDisplayTime(t *testing.T) {
	cases := map[string]string{
		"00:00":    "12:00 AM",
		"00:05":    "12:05 AM",
		"09:00":    "9:00 AM",
		"11:59":    "11:59 AM",
		"12:00":    "12:00 PM",
		"12:30":    "12:30 PM",
		"14:30":    "2:30 PM",
		"23:59":    "11:59 PM",
		"08:15:00": "8:15 AM",
	}
	for in, want := range cases {
		got, err := FormatDisplayTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "24:00", "9", "12:5", "ab:cd", "10:60"} {
		_, err := FormatDisplayTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestMatchHolidayShortCircuits(t *testing.T) {
	repo := &autoSessionRepoStub{rows: []models.TeacherAssignmentDetail{assignmentDetail("A1", "09:00")}}
	svc := NewScheduledSessionService(repo, nil, nil)

	result, err := svc.Match(context.Background(), "T1", models.HolidayState("CSE", models.MustParseDate("2025-01-14"), "Pongal"))
	require.NoError(t, err)
	assert.True(t, result.IsHoliday)
	assert.Equal(t, "Pongal", *result.HolidayName)
	assert.Empty(t, result.ScheduledSessions)
	assert.Zero(t, result.Count)
	assert.Nil(t, result.CurrentDayOrder)
	assert.Zero(t, repo.calls, "assignment store not consulted on holidays")
}

func TestMatchWorkingDay(t *testing.T) {
	repo := &autoSessionRepoStub{rows: []models.TeacherAssignmentDetail{
		assignmentDetail("A1", "09:00"),
		assignmentDetail("A2", "14:30"),
	}}
	svc := NewScheduledSessionService(repo, nil, nil)

	result, err := svc.Match(context.Background(), "T1", models.WorkingDayState("CSE", models.MustParseDate("2025-03-10"), 2))
	require.NoError(t, err)
	assert.Equal(t, "T1", repo.lastTeach)
	assert.Equal(t, 2, repo.lastOrder)
	assert.False(t, result.IsHoliday)
	assert.Equal(t, 2, *result.CurrentDayOrder)
	require.Equal(t, 2, result.Count)
	assert.Equal(t, "9:00 AM", result.ScheduledSessions[0].DisplayTime)
	assert.Equal(t, "2:30 PM", result.ScheduledSessions[1].DisplayTime)
}

func TestMatchNoAssignments(t *testing.T) {
	svc := NewScheduledSessionService(&autoSessionRepoStub{}, nil, nil)
	result, err := svc.Match(context.Background(), "T9", models.WorkingDayState("CSE", models.MustParseDate("2025-03-10"), 4))
	require.NoError(t, err)
	assert.NotNil(t, result.ScheduledSessions)
	assert.Zero(t, result.Count)
}

func TestMatchRepositoryError(t *testing.T) {
	svc := NewScheduledSessionService(&autoSessionRepoStub{err: errors.New("db down")}, nil, nil)
	_, err := svc.Match(context.Background(), "T1", models.WorkingDayState("CSE", models.MustParseDate("2025-03-10"), 1))
	assert.Error(t, err)
}

func TestListForTeacherUsesFallbackDayOrder(t *testing.T) {
	fallback := models.WorkingDayState("CSE", models.MustParseDate("2025-03-10"), 1)
	fallback.Fallback = true
	resolver := &resolverStub{state: fallback}
	repo := &autoSessionRepoStub{rows: []models.TeacherAssignmentDetail{assignmentDetail("A1", "10:00")}}
	svc := NewScheduledSessionService(repo, resolver, nil)

	result, err := svc.ListForTeacher(context.Background(), "T1", "MECH")
	require.NoError(t, err)
	assert.Equal(t, "MECH", resolver.lastDept)
	assert.Equal(t, 1, repo.lastOrder)
	assert.True(t, result.Fallback)
	assert.Equal(t, 1, result.Count)

	_, err = svc.ListForTeacher(context.Background(), " ", "")
	assert.Error(t, err)
}
