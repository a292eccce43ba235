package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

type attendanceSessionService interface {
	Get(ctx context.Context, id string) (*models.AttendanceSession, error)
	Open(ctx context.Context, req dto.OpenSessionRequest) (*models.SessionTicket, error)
	AutoStart(ctx context.Context, req dto.AutoSessionRequest) (*models.AutoSessionResult, error)
	Ticket(ctx context.Context, sessionID string) (*models.SessionTicket, error)
	QRCode(ctx context.Context, sessionID string) ([]byte, error)
	Mark(ctx context.Context, studentID string, req dto.MarkAttendanceRequest) (*models.AttendanceRecord, error)
	Close(ctx context.Context, sessionID string) (*models.AttendanceSession, error)
	Records(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error)
	Export(ctx context.Context, sessionID, format string) (*service.ExportFile, error)
}

// AttendanceSessionHandler runs QR attendance sessions for teachers and students.
type AttendanceSessionHandler struct {
	service attendanceSessionService
}

// NewAttendanceSessionHandler constructs an AttendanceSessionHandler.
func NewAttendanceSessionHandler(service attendanceSessionService) *AttendanceSessionHandler {
	return &AttendanceSessionHandler{service: service}
}

// Open godoc
// @Summary Open an attendance session
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.OpenSessionRequest true "Session"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher/attendance-sessions [post]
func (h *AttendanceSessionHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid session payload"))
		return
	}
	req.TeacherID = profileOrQuery(c, req.TeacherID)
	if req.TeacherID != "" && !requireActor(c, req.TeacherID) {
		return
	}
	ticket, err := h.service.Open(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ticket)
}

// AutoStart godoc
// @Summary Start today's scheduled sessions
// @Description Resolves today's day order and opens a session for every auto-session assignment that has none yet. Holidays open nothing.
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AutoSessionRequest true "Teacher and department"
// @Success 200 {object} response.Envelope
// @Router /teacher/attendance-sessions/auto [post]
func (h *AttendanceSessionHandler) AutoStart(c *gin.Context) {
	var req dto.AutoSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid auto-session payload"))
		return
	}
	req.TeacherID = profileOrQuery(c, req.TeacherID)
	if req.TeacherID != "" && !requireActor(c, req.TeacherID) {
		return
	}
	result, err := h.service.AutoStart(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Ticket godoc
// @Summary Current session token
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/attendance-sessions/{id}/ticket [get]
func (h *AttendanceSessionHandler) Ticket(c *gin.Context) {
	if !h.ownSession(c) {
		return
	}
	ticket, err := h.service.Ticket(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ticket, nil)
}

// QRCode godoc
// @Summary Session QR code
// @Tags Attendance
// @Produce png
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 409 {object} response.Envelope
// @Router /teacher/attendance-sessions/{id}/qr [get]
func (h *AttendanceSessionHandler) QRCode(c *gin.Context) {
	if !h.ownSession(c) {
		return
	}
	png, err := h.service.QRCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// Close godoc
// @Summary Close a session
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/attendance-sessions/{id}/close [post]
func (h *AttendanceSessionHandler) Close(c *gin.Context) {
	if !h.ownSession(c) {
		return
	}
	session, err := h.service.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Records godoc
// @Summary List marks for a session
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /teacher/attendance-sessions/{id}/records [get]
func (h *AttendanceSessionHandler) Records(c *gin.Context) {
	if !h.ownSession(c) {
		return
	}
	records, err := h.service.Records(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Export godoc
// @Summary Export the session roster
// @Tags Attendance
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /teacher/attendance-sessions/{id}/export [get]
func (h *AttendanceSessionHandler) Export(c *gin.Context) {
	if !h.ownSession(c) {
		return
	}
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Mark godoc
// @Summary Mark attendance
// @Description Students submit the token scanned from the session QR code.
// @Tags Student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.MarkAttendanceRequest true "Session token"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /student/attendance [post]
func (h *AttendanceSessionHandler) Mark(c *gin.Context) {
	studentID, ok := requireProfile(c)
	if !ok {
		return
	}
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid attendance payload"))
		return
	}
	record, err := h.service.Mark(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// ownSession loads the session in the path and checks the caller runs it.
func (h *AttendanceSessionHandler) ownSession(c *gin.Context) bool {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return false
	}
	return requireActor(c, session.TeacherID)
}
