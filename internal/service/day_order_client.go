package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
)

// DayOrderClient queries a remote day-order service over HTTP.
type DayOrderClient struct {
	baseURL string
	client  *http.Client
}

// NewDayOrderClient constructs a client. The timeout caps each request on top of any
// context deadline.
func NewDayOrderClient(baseURL string, timeout time.Duration) *DayOrderClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &DayOrderClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Lookup calls GET <base>?action=current&department=<d>&date=<YYYY-MM-DD>.
func (c *DayOrderClient) Lookup(ctx context.Context, department string, date models.Date) (models.DayOrderState, error) {
	if c == nil || c.baseURL == "" {
		return models.DayOrderState{}, fmt.Errorf("day order service url not configured")
	}
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return models.DayOrderState{}, fmt.Errorf("parse day order url: %w", err)
	}
	q := endpoint.Query()
	q.Set("action", "current")
	q.Set("department", department)
	q.Set("date", date.String())
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return models.DayOrderState{}, fmt.Errorf("build day order request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.DayOrderState{}, fmt.Errorf("day order request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusInternalServerError {
		return models.DayOrderState{}, fmt.Errorf("day order service returned %d", resp.StatusCode)
	}

	var payload dto.DayOrderServiceResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil {
		return models.DayOrderState{}, fmt.Errorf("decode day order response: %w", err)
	}
	if !payload.Success {
		return models.DayOrderState{}, fmt.Errorf("day order service reported failure: %s", payload.Error)
	}
	if payload.IsHoliday {
		name := ""
		if payload.HolidayName != nil {
			name = *payload.HolidayName
		}
		return models.HolidayState(department, date, name), nil
	}
	if payload.DayOrder == nil {
		return models.DayOrderState{}, fmt.Errorf("day order service returned neither holiday nor day order")
	}
	return models.WorkingDayState(department, date, *payload.DayOrder), nil
}
