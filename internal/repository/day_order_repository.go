package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

const dayOrderColumns = `department, date, day_order, is_holiday, holiday_name, updated_at`

// DayOrderRepository stores the per-department academic day-order calendar.
type DayOrderRepository struct {
	db *sqlx.DB
}

// NewDayOrderRepository constructs a DayOrderRepository.
func NewDayOrderRepository(db *sqlx.DB) *DayOrderRepository {
	return &DayOrderRepository{db: db}
}

// Find returns the calendar entry for department on date, or sql.ErrNoRows.
func (r *DayOrderRepository) Find(ctx context.Context, department string, date models.Date) (*models.DayOrderEntry, error) {
	query := `SELECT ` + dayOrderColumns + ` FROM day_order_calendar WHERE department = $1 AND date = $2`
	var entry models.DayOrderEntry
	if err := r.db.GetContext(ctx, &entry, query, department, date); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Lookup resolves department and date directly from the calendar table.
func (r *DayOrderRepository) Lookup(ctx context.Context, department string, date models.Date) (models.DayOrderState, error) {
	entry, err := r.Find(ctx, department, date)
	if err != nil {
		return models.DayOrderState{}, fmt.Errorf("lookup day order %s/%s: %w", department, date, err)
	}
	return entry.State(), nil
}

// List returns calendar entries for a department within an optional inclusive range.
func (r *DayOrderRepository) List(ctx context.Context, filter models.DayOrderCalendarFilter) ([]models.DayOrderEntry, error) {
	conditions := []string{"department = $1"}
	args := []interface{}{filter.Department}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	query := `SELECT ` + dayOrderColumns + ` FROM day_order_calendar WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY date ASC`
	var entries []models.DayOrderEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list day order calendar: %w", err)
	}
	return entries, nil
}

// Upsert creates or replaces the entry for its department and date.
func (r *DayOrderRepository) Upsert(ctx context.Context, entry *models.DayOrderEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO day_order_calendar (department, date, day_order, is_holiday, holiday_name, updated_at)
		VALUES (:department, :date, :day_order, :is_holiday, :holiday_name, :updated_at)
		ON CONFLICT (department, date) DO UPDATE SET day_order = EXCLUDED.day_order, is_holiday = EXCLUDED.is_holiday,
			holiday_name = EXCLUDED.holiday_name, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("upsert day order: %w", err)
	}
	return nil
}
