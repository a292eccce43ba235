package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

type scheduledSessionService interface {
	ListForTeacher(ctx context.Context, teacherID, department string) (*models.ScheduledSessions, error)
}

// scheduledSessionsBody flattens the matcher result next to success.
type scheduledSessionsBody struct {
	Success bool `json:"success"`
	*models.ScheduledSessions
}

// ScheduledSessionHandler lists a teacher's sessions for today's day order.
type ScheduledSessionHandler struct {
	service scheduledSessionService
}

// NewScheduledSessionHandler constructs a ScheduledSessionHandler.
func NewScheduledSessionHandler(service scheduledSessionService) *ScheduledSessionHandler {
	return &ScheduledSessionHandler{service: service}
}

// List godoc
// @Summary Today's scheduled sessions
// @Description Resolves today's day order for the department and returns the teacher's auto-session assignments with 12-hour display times.
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Param teacher_id query string false "Teacher ID (defaults to the caller)"
// @Param department query string false "Department"
// @Success 200 {object} models.ScheduledSessions
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teacher/scheduled-sessions [get]
func (h *ScheduledSessionHandler) List(c *gin.Context) {
	teacherID := profileOrQuery(c, c.Query("teacher_id"))
	if teacherID != "" && !requireActor(c, teacherID) {
		return
	}
	result, err := h.service.ListForTeacher(c.Request.Context(), teacherID, strings.TrimSpace(c.Query("department")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, http.StatusOK, scheduledSessionsBody{Success: true, ScheduledSessions: result})
}
