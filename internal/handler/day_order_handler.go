package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

type dayOrderService interface {
	Current(ctx context.Context, department string, date *time.Time) (models.DayOrderState, error)
	UpsertEntry(ctx context.Context, req dto.DayOrderCalendarRequest) (*models.DayOrderEntry, error)
	ListCalendar(ctx context.Context, department, from, to string) ([]models.DayOrderEntry, error)
}

// DayOrderHandler serves the day-order contract and its backing calendar.
type DayOrderHandler struct {
	service dayOrderService
}

// NewDayOrderHandler constructs a DayOrderHandler.
func NewDayOrderHandler(service dayOrderService) *DayOrderHandler {
	return &DayOrderHandler{service: service}
}

// Current godoc
// @Summary Current day order
// @Description Returns {success, isHoliday, holidayName} on holidays and {success, dayOrder} otherwise.
// @Tags DayOrder
// @Produce json
// @Param action query string true "Must be current"
// @Param department query string false "Department (defaults to the configured one)"
// @Param date query string false "YYYY-MM-DD (defaults to today)"
// @Success 200 {object} dto.DayOrderServiceResponse
// @Failure 400 {object} dto.DayOrderServiceResponse
// @Failure 404 {object} dto.DayOrderServiceResponse
// @Router /day-order [get]
func (h *DayOrderHandler) Current(c *gin.Context) {
	if action := c.Query("action"); action != "current" {
		response.Raw(c, http.StatusBadRequest, dto.DayOrderServiceResponse{Error: "unsupported action"})
		return
	}

	var date *time.Time
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			response.Raw(c, http.StatusBadRequest, dto.DayOrderServiceResponse{Error: "date must be YYYY-MM-DD"})
			return
		}
		date = &d.Time
	}

	state, err := h.service.Current(c.Request.Context(), c.Query("department"), date)
	if err != nil {
		appErr := appErrors.FromError(err)
		response.Raw(c, appErr.Status, dto.DayOrderServiceResponse{Error: appErr.Message})
		return
	}

	body := dto.DayOrderServiceResponse{Success: true, Date: state.Date.String(), Department: state.Department}
	if state.Holiday {
		body.IsHoliday = true
		body.HolidayName = state.HolidayName
	} else {
		body.DayOrder = state.DayOrder
	}
	response.Raw(c, http.StatusOK, body)
}

// ListCalendar godoc
// @Summary List day-order calendar
// @Tags DayOrder
// @Produce json
// @Security BearerAuth
// @Param department query string false "Department"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /day-order/calendar [get]
func (h *DayOrderHandler) ListCalendar(c *gin.Context) {
	items, err := h.service.ListCalendar(c.Request.Context(), c.Query("department"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// UpsertCalendar godoc
// @Summary Set one calendar day
// @Tags DayOrder
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.DayOrderCalendarRequest true "Calendar entry"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /day-order/calendar [put]
func (h *DayOrderHandler) UpsertCalendar(c *gin.Context) {
	var req dto.DayOrderCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid calendar payload"))
		return
	}
	entry, err := h.service.UpsertEntry(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
