package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type dayOrderServiceMock struct {
	state    models.DayOrderState
	err      error
	date     *time.Time
	upserted *dto.DayOrderCalendarRequest
}

func (m *dayOrderServiceMock) Current(ctx context.Context, department string, date *time.Time) (models.DayOrderState, error) {
	m.date = date
	return m.state, m.err
}

func (m *dayOrderServiceMock) UpsertEntry(ctx context.Context, req dto.DayOrderCalendarRequest) (*models.DayOrderEntry, error) {
	m.upserted = &req
	return &models.DayOrderEntry{Department: req.Department, Date: models.MustParseDate(req.Date), DayOrder: req.DayOrder}, nil
}

func (m *dayOrderServiceMock) ListCalendar(ctx context.Context, department, from, to string) ([]models.DayOrderEntry, error) {
	return []models.DayOrderEntry{}, nil
}

func TestDayOrderHandlerCurrentWorkingDay(t *testing.T) {
	svc := &dayOrderServiceMock{state: models.WorkingDayState("CSE", models.MustParseDate("2025-03-10"), 3)}
	c, w := newTestContext(http.MethodGet, "/day-order?action=current&department=CSE&date=2025-03-10", "", nil)

	NewDayOrderHandler(svc).Current(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["dayOrder"])
	_, hasHoliday := body["isHoliday"]
	assert.False(t, hasHoliday)
	require.NotNil(t, svc.date)
	assert.Equal(t, "2025-03-10", svc.date.Format(models.DateLayout))
}

func TestDayOrderHandlerCurrentHoliday(t *testing.T) {
	svc := &dayOrderServiceMock{state: models.HolidayState("CSE", models.MustParseDate("2025-01-14"), "Pongal")}
	c, w := newTestContext(http.MethodGet, "/day-order?action=current", "", nil)

	NewDayOrderHandler(svc).Current(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["isHoliday"])
	assert.Equal(t, "Pongal", body["holidayName"])
	_, hasOrder := body["dayOrder"]
	assert.False(t, hasOrder)
	assert.Nil(t, svc.date)
}

func TestDayOrderHandlerCurrentFailures(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/day-order?action=next", "", nil)
	NewDayOrderHandler(&dayOrderServiceMock{}).Current(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])

	c, w = newTestContext(http.MethodGet, "/day-order?action=current&date=10-03-2025", "", nil)
	NewDayOrderHandler(&dayOrderServiceMock{}).Current(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc := &dayOrderServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "no calendar entry")}
	c, w = newTestContext(http.MethodGet, "/day-order?action=current", "", nil)
	NewDayOrderHandler(svc).Current(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "no calendar entry", body["error"])
}

func TestDayOrderHandlerUpsertCalendar(t *testing.T) {
	svc := &dayOrderServiceMock{}
	c, w := newTestContext(http.MethodPut, "/day-order/calendar", `{"department":"CSE","date":"2025-03-10","day_order":4}`, adminClaims())

	NewDayOrderHandler(svc).UpsertCalendar(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.upserted)
	assert.Equal(t, 4, *svc.upserted.DayOrder)
}
