package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/token"
)

type sessionRepoStub struct {
	items   map[string]*models.AttendanceSession
	records []models.AttendanceRecord
	seq     int
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{items: map[string]*models.AttendanceSession{}}
}

func (r *sessionRepoStub) Create(ctx context.Context, session *models.AttendanceSession) error {
	r.seq++
	session.ID = fmt.Sprintf("SES-%d", r.seq)
	cp := *session
	r.items[session.ID] = &cp
	return nil
}

func (r *sessionRepoStub) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if s, ok := r.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r *sessionRepoStub) ListByTeacher(ctx context.Context, teacherID string, date models.Date) ([]models.AttendanceSession, error) {
	var out []models.AttendanceSession
	for _, s := range r.items {
		if s.TeacherID == teacherID && s.SessionDate.String() == date.String() {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *sessionRepoStub) Close(ctx context.Context, id string, closedAt time.Time) error {
	s, ok := r.items[id]
	if !ok || s.Status != models.SessionStatusOpen {
		return sql.ErrNoRows
	}
	s.Status = models.SessionStatusClosed
	s.ClosedAt = &closedAt
	return nil
}

func (r *sessionRepoStub) CreateRecord(ctx context.Context, record *models.AttendanceRecord) error {
	for _, existing := range r.records {
		if existing.SessionID == record.SessionID && existing.StudentID == record.StudentID {
			return repository.ErrDuplicate
		}
	}
	r.records = append(r.records, *record)
	return nil
}

func (r *sessionRepoStub) ListRecords(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error) {
	var out []models.AttendanceRecordDetail
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			out = append(out, models.AttendanceRecordDetail{AttendanceRecord: rec})
		}
	}
	return out, nil
}

type studentRepoStub struct {
	items map[string]models.Student
}

func (s studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if st, ok := s.items[id]; ok {
		return &st, nil
	}
	return nil, sql.ErrNoRows
}

func (s studentRepoStub) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	var out []models.Student
	for _, id := range []string{"ST1", "ST2", "ST3"} {
		if st, ok := s.items[id]; ok && st.ClassID == classID {
			out = append(out, st)
		}
	}
	return out, nil
}

type odCheckerStub struct {
	approved map[string]bool
}

func (o odCheckerStub) ApprovedOn(ctx context.Context, studentID string, date models.Date) (bool, error) {
	return o.approved[studentID], nil
}

func newAttendanceServiceForTest(repo *sessionRepoStub, state models.DayOrderState, assignments []models.TeacherAssignmentDetail, metrics *MetricsService) *AttendanceSessionService {
	students := studentRepoStub{items: map[string]models.Student{
		"ST1": {ID: "ST1", RegisterNo: "21CS001", FullName: "Asha", ClassID: "C1"},
		"ST2": {ID: "ST2", RegisterNo: "21CS002", FullName: "Ravi", ClassID: "C1"},
		"ST3": {ID: "ST3", RegisterNo: "21EC001", FullName: "Kiran", ClassID: "C2"},
	}}
	resolver := &resolverStub{state: state}
	matcher := NewScheduledSessionService(&autoSessionRepoStub{rows: assignments}, resolver, nil)
	return NewAttendanceSessionService(repo, students, stubClassRepo{}, stubSubjectRepo{}, odCheckerStub{approved: map[string]bool{"ST2": true}},
		resolver, matcher, token.NewSigner("session-secret"), metrics, nil, nil,
		AttendanceSessionConfig{DefaultDuration: 10 * time.Minute, PublicBaseURL: "https://attend.campus.edu/", Location: time.UTC})
}

func workingDay(order int) models.DayOrderState {
	return models.WorkingDayState("CSE", models.NewDate(time.Now().UTC()), order)
}

func TestOpenSessionIssuesTicket(t *testing.T) {
	repo := newSessionRepoStub()
	svc := newAttendanceServiceForTest(repo, workingDay(1), nil, nil)

	ticket, err := svc.Open(context.Background(), dto.OpenSessionRequest{TeacherID: "T1", ClassID: "C1", SubjectID: "S1", DurationMinutes: 5})
	require.NoError(t, err)
	assert.Equal(t, "SES-1", ticket.Session.ID)
	assert.Equal(t, models.SessionStatusOpen, ticket.Session.Status)
	assert.WithinDuration(t, ticket.Session.OpenedAt.Add(5*time.Minute), ticket.ExpiresAt, time.Second)
	assert.True(t, strings.HasPrefix(ticket.URL, "https://attend.campus.edu/attend?token="))

	png, err := svc.QRCode(context.Background(), "SES-1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = svc.Open(context.Background(), dto.OpenSessionRequest{TeacherID: "T1", ClassID: "C1"})
	assert.Error(t, err)
}

func TestAutoStartSkipsExistingAndHolidays(t *testing.T) {
	repo := newSessionRepoStub()
	assignments := []models.TeacherAssignmentDetail{assignmentDetail("A1", "09:00"), assignmentDetail("A2", "11:00")}
	for i := range assignments {
		assignments[i].ClassID = "C1"
		assignments[i].SubjectID = "S1"
	}
	svc := newAttendanceServiceForTest(repo, workingDay(2), assignments, nil)

	first, err := svc.AutoStart(context.Background(), dto.AutoSessionRequest{TeacherID: "T1"})
	require.NoError(t, err)
	require.Len(t, first.Created, 2)
	assert.Equal(t, 2, *first.Created[0].DayOrder)
	assert.Empty(t, first.Skipped)

	second, err := svc.AutoStart(context.Background(), dto.AutoSessionRequest{TeacherID: "T1"})
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.ElementsMatch(t, []string{"A1", "A2"}, second.Skipped)

	holidayRepo := newSessionRepoStub()
	holiday := newAttendanceServiceForTest(holidayRepo, models.HolidayState("CSE", models.NewDate(time.Now()), "Pongal"), assignments, nil)
	result, err := holiday.AutoStart(context.Background(), dto.AutoSessionRequest{TeacherID: "T1"})
	require.NoError(t, err)
	assert.True(t, result.DayOrder.Holiday)
	assert.Empty(t, result.Created)
	assert.Empty(t, holidayRepo.items)
}

func TestMarkAttendance(t *testing.T) {
	repo := newSessionRepoStub()
	metrics := NewMetricsService()
	svc := newAttendanceServiceForTest(repo, workingDay(1), nil, metrics)
	ticket, err := svc.Open(context.Background(), dto.OpenSessionRequest{TeacherID: "T1", ClassID: "C1", SubjectID: "S1"})
	require.NoError(t, err)

	record, err := svc.Mark(context.Background(), "ST1", dto.MarkAttendanceRequest{Token: ticket.Token})
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusPresent, record.Status)

	record, err = svc.Mark(context.Background(), "ST2", dto.MarkAttendanceRequest{Token: ticket.Token})
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusOD, record.Status)

	_, err = svc.Mark(context.Background(), "ST1", dto.MarkAttendanceRequest{Token: ticket.Token})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Mark(context.Background(), "ST3", dto.MarkAttendanceRequest{Token: ticket.Token})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Mark(context.Background(), "ST1", dto.MarkAttendanceRequest{Token: ticket.Token + "x"})
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.attendanceMarks.WithLabelValues("present")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.attendanceMarks.WithLabelValues("od")))
}

func TestCloseSessionRejectsLateMarks(t *testing.T) {
	repo := newSessionRepoStub()
	svc := newAttendanceServiceForTest(repo, workingDay(1), nil, nil)
	ticket, err := svc.Open(context.Background(), dto.OpenSessionRequest{TeacherID: "T1", ClassID: "C1", SubjectID: "S1"})
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), ticket.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusClosed, closed.Status)

	_, err = svc.Close(context.Background(), ticket.Session.ID)
	assert.Equal(t, appErrors.ErrSessionClosed.Code, appErrors.FromError(err).Code)
	_, err = svc.Close(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Mark(context.Background(), "ST1", dto.MarkAttendanceRequest{Token: ticket.Token})
	assert.Equal(t, appErrors.ErrSessionClosed.Code, appErrors.FromError(err).Code)
	_, err = svc.QRCode(context.Background(), ticket.Session.ID)
	assert.Error(t, err)
}

func TestExportRosterIncludesAbsentees(t *testing.T) {
	repo := newSessionRepoStub()
	svc := newAttendanceServiceForTest(repo, workingDay(1), nil, nil)
	ticket, err := svc.Open(context.Background(), dto.OpenSessionRequest{TeacherID: "T1", ClassID: "C1", SubjectID: "S1"})
	require.NoError(t, err)
	_, err = svc.Mark(context.Background(), "ST2", dto.MarkAttendanceRequest{Token: ticket.Token})
	require.NoError(t, err)

	file, err := svc.Export(context.Background(), ticket.Session.ID, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	body := string(file.Data)
	assert.Contains(t, body, "21CS001,Asha,absent,")
	assert.Contains(t, body, "21CS002,Ravi,od,")
	assert.NotContains(t, body, "Kiran")

	pdf, err := svc.Export(context.Background(), ticket.Session.ID, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)

	_, err = svc.Export(context.Background(), ticket.Session.ID, "xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
