package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/dto"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

// DayOrderSource answers "which day order is it" for one department and date.
type DayOrderSource interface {
	Lookup(ctx context.Context, department string, date models.Date) (models.DayOrderState, error)
}

type dayOrderCalendarRepository interface {
	DayOrderSource
	List(ctx context.Context, filter models.DayOrderCalendarFilter) ([]models.DayOrderEntry, error)
	Upsert(ctx context.Context, entry *models.DayOrderEntry) error
}

// DayOrderConfig tunes resolution.
type DayOrderConfig struct {
	SourceName        string
	DefaultDepartment string
	Timeout           time.Duration
	CacheTTL          time.Duration
	FallbackDayOrder  int
	MaxDayOrder       int
	Location          *time.Location
}

// DayOrderService resolves the rotating day order and maintains the calendar behind it.
type DayOrderService struct {
	source    DayOrderSource
	calendar  dayOrderCalendarRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DayOrderConfig
	now       func() time.Time
}

// NewDayOrderService constructs the resolver. calendar may be nil when the calendar is
// maintained by a remote service.
func NewDayOrderService(source DayOrderSource, calendar dayOrderCalendarRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg DayOrderConfig) *DayOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.FallbackDayOrder <= 0 {
		cfg.FallbackDayOrder = 1
	}
	if cfg.MaxDayOrder <= 0 {
		cfg.MaxDayOrder = 6
	}
	if cfg.SourceName == "" {
		cfg.SourceName = "database"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &DayOrderService{
		source:    source,
		calendar:  calendar,
		cache:     cache,
		metrics:   metrics,
		validator: ensureValidator(validate),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// DefaultDepartment returns the department used when callers omit one.
func (s *DayOrderService) DefaultDepartment() string {
	return s.cfg.DefaultDepartment
}

// Resolve returns the department's state for date (today when nil). It never fails: any
// lookup problem yields the fallback day order.
func (s *DayOrderService) Resolve(ctx context.Context, department string, date *time.Time) models.DayOrderState {
	department = s.department(department)
	day := s.day(date)

	key := dayOrderCacheKey(department, day)
	var cached models.DayOrderState
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached
	}

	state, err := s.lookup(ctx, department, day)
	if err != nil {
		return s.fallbackDayOrder(department, day, err)
	}
	_ = s.cache.Set(ctx, key, state, s.cfg.CacheTTL)
	return state
}

// Current reads the state straight from the source without falling back, for serving the
// day-order contract to other systems.
func (s *DayOrderService) Current(ctx context.Context, department string, date *time.Time) (models.DayOrderState, error) {
	department = s.department(department)
	day := s.day(date)
	state, err := s.lookup(ctx, department, day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DayOrderState{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no calendar entry for %s on %s", department, day))
		}
		return models.DayOrderState{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve day order")
	}
	return state, nil
}

func (s *DayOrderService) lookup(ctx context.Context, department string, day models.Date) (models.DayOrderState, error) {
	if s.source == nil {
		return models.DayOrderState{}, fmt.Errorf("no day order source configured")
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	state, err := s.source.Lookup(lookupCtx, department, day)
	if err == nil {
		err = checkDayOrderState(&state, s.cfg.MaxDayOrder)
	}
	s.metrics.ObserveDayOrderLookup(s.cfg.SourceName, err == nil, time.Since(start))
	if err != nil {
		return models.DayOrderState{}, err
	}
	state.Department = department
	state.Date = day
	return state, nil
}

// checkDayOrderState rejects answers that are neither a holiday nor a day order in 1..max.
func checkDayOrderState(state *models.DayOrderState, max int) error {
	if state.Holiday {
		state.DayOrder = nil
		return nil
	}
	if state.DayOrder == nil || *state.DayOrder <= 0 {
		return fmt.Errorf("day order source returned no usable day order")
	}
	if *state.DayOrder > max {
		return fmt.Errorf("day order %d exceeds maximum %d", *state.DayOrder, max)
	}
	state.HolidayName = nil
	return nil
}

// fallbackDayOrder is the single place where resolution degrades: the day is treated as a
// working day with the configured fallback day order.
func (s *DayOrderService) fallbackDayOrder(department string, day models.Date, cause error) models.DayOrderState {
	s.logger.Warn("day order lookup failed, using fallback",
		zap.String("department", department),
		zap.String("date", day.String()),
		zap.Int("day_order", s.cfg.FallbackDayOrder),
		zap.Error(cause),
	)
	s.metrics.IncDayOrderFallback(department)
	state := models.WorkingDayState(department, day, s.cfg.FallbackDayOrder)
	state.Fallback = true
	return state
}

// UpsertEntry writes one calendar day and drops any cached resolution for it.
func (s *DayOrderService) UpsertEntry(ctx context.Context, req dto.DayOrderCalendarRequest) (*models.DayOrderEntry, error) {
	if s.calendar == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "day order calendar is managed externally")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid calendar entry")
	}
	day, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	entry := &models.DayOrderEntry{Department: strings.TrimSpace(req.Department), Date: day, IsHoliday: req.IsHoliday}
	if req.IsHoliday {
		if req.DayOrder != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a holiday cannot carry a day order")
		}
		entry.HolidayName = req.HolidayName
	} else {
		if req.DayOrder == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "day_order is required on working days")
		}
		if *req.DayOrder > s.cfg.MaxDayOrder {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day_order must be between 1 and %d", s.cfg.MaxDayOrder))
		}
		entry.DayOrder = req.DayOrder
	}

	if err := s.calendar.Upsert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save calendar entry")
	}
	_ = s.cache.Invalidate(ctx, dayOrderCacheKey(entry.Department, day))
	return entry, nil
}

// ListCalendar returns the department's calendar between optional bounds.
func (s *DayOrderService) ListCalendar(ctx context.Context, department, from, to string) ([]models.DayOrderEntry, error) {
	if s.calendar == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "day order calendar is managed externally")
	}
	filter := models.DayOrderCalendarFilter{Department: s.department(department)}
	var err error
	if filter.From, err = parseOptionalDate(from, "from"); err != nil {
		return nil, err
	}
	if filter.To, err = parseOptionalDate(to, "to"); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	entries, err := s.calendar.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendar")
	}
	return entries, nil
}

func (s *DayOrderService) department(department string) string {
	department = strings.TrimSpace(department)
	if department == "" {
		return s.cfg.DefaultDepartment
	}
	return department
}

func (s *DayOrderService) day(date *time.Time) models.Date {
	if date != nil {
		return models.NewDate(*date)
	}
	return models.NewDate(s.now().In(s.cfg.Location))
}

func dayOrderCacheKey(department string, day models.Date) string {
	return fmt.Sprintf("day_order:%s:%s", strings.ToLower(department), day)
}
