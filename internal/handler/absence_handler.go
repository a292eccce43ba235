package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

type absenceService interface {
	Record(ctx context.Context, req models.RecordAbsenceRequest) (*models.RecordAbsenceResult, error)
	List(ctx context.Context, teacherID, startDate, endDate string) ([]models.TeacherAbsenceDetail, error)
	Get(ctx context.Context, id string) (*models.TeacherAbsenceDetail, error)
	ListTransfers(ctx context.Context, substituteTeacherID, date string) ([]models.ClassTransferDetail, error)
}

// recordAbsenceBody carries absenceId (and any partial-failure warning) next to success.
type recordAbsenceBody struct {
	Success bool `json:"success"`
	*models.RecordAbsenceResult
}

// AbsenceHandler exposes absence reporting and substitute transfers.
type AbsenceHandler struct {
	service absenceService
}

// NewAbsenceHandler constructs an AbsenceHandler.
func NewAbsenceHandler(service absenceService) *AbsenceHandler {
	return &AbsenceHandler{service: service}
}

// Record godoc
// @Summary Report an absence
// @Description Records one absence and one transfer row per class, subject, substitute and date. When the transfers cannot be saved the absence is kept and the response carries a warning and errorCode.
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.RecordAbsenceRequest true "Absence"
// @Success 201 {object} models.RecordAbsenceResult
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /teacher/absences [post]
func (h *AbsenceHandler) Record(c *gin.Context) {
	var req models.RecordAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid absence payload"))
		return
	}
	if teacherID := strings.TrimSpace(req.TeacherID); teacherID != "" && !requireActor(c, teacherID) {
		return
	}

	result, err := h.service.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, http.StatusCreated, recordAbsenceBody{Success: true, RecordAbsenceResult: result})
}

// List godoc
// @Summary List absences
// @Description Absences with nested transfers, newest first.
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Param teacherId query string false "Teacher ID (defaults to the caller)"
// @Param startDate query string false "Lower bound on absence start (YYYY-MM-DD)"
// @Param endDate query string false "Upper bound on absence end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teacher/absences [get]
func (h *AbsenceHandler) List(c *gin.Context) {
	teacherID := profileOrQuery(c, c.Query("teacherId"))
	if teacherID != "" && !requireActor(c, teacherID) {
		return
	}
	items, err := h.service.List(c.Request.Context(), teacherID, c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get an absence
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teacher/absences/{id} [get]
func (h *AbsenceHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !requireActor(c, item.TeacherID) {
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// ListTransfers godoc
// @Summary List cover duties
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Param substitute_teacher_id query string false "Substitute teacher ID (defaults to the caller)"
// @Param date query string false "Transfer date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teacher/transfers [get]
func (h *AbsenceHandler) ListTransfers(c *gin.Context) {
	substituteID := profileOrQuery(c, c.Query("substitute_teacher_id"))
	if substituteID != "" && !requireActor(c, substituteID) {
		return
	}
	items, err := h.service.ListTransfers(c.Request.Context(), substituteID, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
