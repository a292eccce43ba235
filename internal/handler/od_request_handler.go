package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

type odRequestService interface {
	Create(ctx context.Context, studentID string, req dto.CreateODRequest) (*models.ODRequest, error)
	List(ctx context.Context, filter models.ODFilter) ([]models.ODRequestDetail, *models.Pagination, error)
	Decide(ctx context.Context, id, deciderID string, req dto.ODDecisionRequest) (*models.ODRequestDetail, error)
	Verify(ctx context.Context, id, verifierID, date string) (*models.ODVerification, error)
}

// ODRequestHandler exposes on-duty requests to students, reviewers and security staff.
type ODRequestHandler struct {
	service odRequestService
}

// NewODRequestHandler constructs an ODRequestHandler.
func NewODRequestHandler(service odRequestService) *ODRequestHandler {
	return &ODRequestHandler{service: service}
}

// Create godoc
// @Summary Submit an OD request
// @Tags Student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateODRequest true "OD request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /student/od-requests [post]
func (h *ODRequestHandler) Create(c *gin.Context) {
	studentID, ok := requireProfile(c)
	if !ok {
		return
	}
	var req dto.CreateODRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid OD request payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// ListMine godoc
// @Summary List my OD requests
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /student/od-requests [get]
func (h *ODRequestHandler) ListMine(c *gin.Context) {
	studentID, ok := requireProfile(c)
	if !ok {
		return
	}
	h.list(c, studentID)
}

// List godoc
// @Summary List OD requests for review
// @Tags OD
// @Produce json
// @Security BearerAuth
// @Param student_id query string false "Student ID"
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /od-requests [get]
func (h *ODRequestHandler) List(c *gin.Context) {
	h.list(c, strings.TrimSpace(c.Query("student_id")))
}

func (h *ODRequestHandler) list(c *gin.Context, studentID string) {
	filter := models.ODFilter{StudentID: studentID, Status: models.ODStatus(strings.ToLower(c.Query("status")))}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Decide godoc
// @Summary Approve or reject an OD request
// @Tags OD
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "OD request ID"
// @Param payload body dto.ODDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /od-requests/{id}/decision [post]
func (h *ODRequestHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ODDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid decision payload"))
		return
	}
	item, err := h.service.Decide(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Verify godoc
// @Summary Verify an OD pass
// @Description valid is true only for approved requests covering the date.
// @Tags Security
// @Produce json
// @Security BearerAuth
// @Param id path string true "OD request ID"
// @Param date query string false "Date to check (YYYY-MM-DD, defaults to today)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /security/od-requests/{id}/verify [get]
func (h *ODRequestHandler) Verify(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Verify(c.Request.Context(), c.Param("id"), claims.UserID, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
