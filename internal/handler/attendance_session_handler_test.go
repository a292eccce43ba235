package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type attendanceSessionServiceMock struct {
	session    *models.AttendanceSession
	openReq    *dto.OpenSessionRequest
	markedBy   string
	markErr    error
	exportFmt  string
	qrCalled   bool
	closeCalls int
}

func (m *attendanceSessionServiceMock) Get(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if m.session == nil || m.session.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
	}
	return m.session, nil
}

func (m *attendanceSessionServiceMock) Open(ctx context.Context, req dto.OpenSessionRequest) (*models.SessionTicket, error) {
	m.openReq = &req
	return &models.SessionTicket{Session: models.AttendanceSession{ID: "AS1", TeacherID: req.TeacherID}, Token: "tok"}, nil
}

func (m *attendanceSessionServiceMock) AutoStart(ctx context.Context, req dto.AutoSessionRequest) (*models.AutoSessionResult, error) {
	return &models.AutoSessionResult{Created: []models.AttendanceSession{}, Skipped: []string{}}, nil
}

func (m *attendanceSessionServiceMock) Ticket(ctx context.Context, sessionID string) (*models.SessionTicket, error) {
	return &models.SessionTicket{Session: *m.session, Token: "tok"}, nil
}

func (m *attendanceSessionServiceMock) QRCode(ctx context.Context, sessionID string) ([]byte, error) {
	m.qrCalled = true
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (m *attendanceSessionServiceMock) Mark(ctx context.Context, studentID string, req dto.MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	m.markedBy = studentID
	if m.markErr != nil {
		return nil, m.markErr
	}
	return &models.AttendanceRecord{ID: "R1", SessionID: "AS1", StudentID: studentID, Status: models.RecordStatusPresent}, nil
}

func (m *attendanceSessionServiceMock) Close(ctx context.Context, sessionID string) (*models.AttendanceSession, error) {
	m.closeCalls++
	closed := *m.session
	closed.Status = models.SessionStatusClosed
	return &closed, nil
}

func (m *attendanceSessionServiceMock) Records(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error) {
	return []models.AttendanceRecordDetail{}, nil
}

func (m *attendanceSessionServiceMock) Export(ctx context.Context, sessionID, format string) (*service.ExportFile, error) {
	m.exportFmt = format
	return &service.ExportFile{Filename: "attendance_IIICSEA_CS101_2025-03-10.csv", ContentType: "text/csv", Data: []byte("Register No,Name\n")}, nil
}

func sessionParam(id string) gin.Param {
	return gin.Param{Key: "id", Value: id}
}

func TestAttendanceSessionHandlerOpenDefaultsTeacher(t *testing.T) {
	svc := &attendanceSessionServiceMock{}
	c, w := newTestContext(http.MethodPost, "/teacher/attendance-sessions", `{"class_id":"C1","subject_id":"S1"}`, teacherClaims("T1"))

	NewAttendanceSessionHandler(svc).Open(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.openReq)
	assert.Equal(t, "T1", svc.openReq.TeacherID)
}

func TestAttendanceSessionHandlerQRCode(t *testing.T) {
	svc := &attendanceSessionServiceMock{session: &models.AttendanceSession{ID: "AS1", TeacherID: "T1"}}

	c, w := newTestContext(http.MethodGet, "/teacher/attendance-sessions/AS1/qr", "", teacherClaims("T1"), sessionParam("AS1"))
	NewAttendanceSessionHandler(svc).QRCode(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, svc.qrCalled)

	svc.qrCalled = false
	c, w = newTestContext(http.MethodGet, "/teacher/attendance-sessions/AS1/qr", "", teacherClaims("T2"), sessionParam("AS1"))
	NewAttendanceSessionHandler(svc).QRCode(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, svc.qrCalled)
}

func TestAttendanceSessionHandlerExport(t *testing.T) {
	svc := &attendanceSessionServiceMock{session: &models.AttendanceSession{ID: "AS1", TeacherID: "T1"}}
	c, w := newTestContext(http.MethodGet, "/teacher/attendance-sessions/AS1/export?format=csv", "", teacherClaims("T1"), sessionParam("AS1"))

	NewAttendanceSessionHandler(svc).Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.exportFmt)
	assert.Equal(t, `attachment; filename="attendance_IIICSEA_CS101_2025-03-10.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "Register No")
}

func TestAttendanceSessionHandlerCloseUnknownSession(t *testing.T) {
	svc := &attendanceSessionServiceMock{}
	c, w := newTestContext(http.MethodPost, "/teacher/attendance-sessions/AS9/close", "", teacherClaims("T1"), sessionParam("AS9"))

	NewAttendanceSessionHandler(svc).Close(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, svc.closeCalls)
}

func TestAttendanceSessionHandlerMark(t *testing.T) {
	svc := &attendanceSessionServiceMock{}
	c, w := newTestContext(http.MethodPost, "/student/attendance", `{"token":"tok"}`, studentClaims("ST1"))
	NewAttendanceSessionHandler(svc).Mark(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ST1", svc.markedBy)

	svc.markErr = appErrors.Clone(appErrors.ErrSessionClosed, "")
	c, w = newTestContext(http.MethodPost, "/student/attendance", `{"token":"tok"}`, studentClaims("ST1"))
	NewAttendanceSessionHandler(svc).Mark(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SESSION_CLOSED", errorCode(t, w))

	c, w = newTestContext(http.MethodPost, "/student/attendance", `{"token":"tok"}`, &models.JWTClaims{UserID: "U1", Role: models.RoleStudent})
	NewAttendanceSessionHandler(svc).Mark(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
