package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

const odDetailSelect = `
SELECT od.id, od.student_id, od.event_name, od.reason, od.start_date, od.end_date, od.status,
       od.decided_by, od.decided_at, od.remarks, od.verified_by, od.verified_at, od.created_at, od.updated_at,
       st.full_name AS student_name, st.email AS student_email, st.register_no
FROM od_requests od
JOIN students st ON st.id = od.student_id`

// ODRequestRepository persists on-duty requests.
type ODRequestRepository struct {
	db *sqlx.DB
}

// NewODRequestRepository constructs the repository.
func NewODRequestRepository(db *sqlx.DB) *ODRequestRepository {
	return &ODRequestRepository{db: db}
}

// Create inserts a pending request.
func (r *ODRequestRepository) Create(ctx context.Context, req *models.ODRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = models.ODStatusPending
	}
	const query = `INSERT INTO od_requests (id, student_id, event_name, reason, start_date, end_date, status, created_at, updated_at)
		VALUES (:id, :student_id, :event_name, :reason, :start_date, :end_date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create od request: %w", err)
	}
	return nil
}

// FindByID returns a request with student identity.
func (r *ODRequestRepository) FindByID(ctx context.Context, id string) (*models.ODRequestDetail, error) {
	query := odDetailSelect + "\nWHERE od.id = $1"
	var req models.ODRequestDetail
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter, newest first, with total count.
func (r *ODRequestRepository) List(ctx context.Context, filter models.ODFilter) ([]models.ODRequestDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("od.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("od.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	where := ""
	if len(conditions) > 0 {
		where = "\nWHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf("%s%s\nORDER BY od.created_at DESC LIMIT %d OFFSET %d", odDetailSelect, where, size, (page-1)*size)
	var requests []models.ODRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list od requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM od_requests od"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count od requests: %w", err)
	}
	return requests, total, nil
}

// Decide records a decision on a pending request. Returns sql.ErrNoRows if it is no longer pending.
func (r *ODRequestRepository) Decide(ctx context.Context, id string, status models.ODStatus, decidedBy string, remarks *string, decidedAt time.Time) error {
	const query = `UPDATE od_requests SET status = $2, decided_by = $3, remarks = $4, decided_at = $5, updated_at = $5 WHERE id = $1 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, id, status, decidedBy, remarks, decidedAt)
	if err != nil {
		return fmt.Errorf("decide od request: %w", err)
	}
	return requireAffected(result, "decide od request")
}

// MarkVerified stamps a security verification.
func (r *ODRequestRepository) MarkVerified(ctx context.Context, id, verifiedBy string, verifiedAt time.Time) error {
	const query = `UPDATE od_requests SET verified_by = $2, verified_at = $3, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, verifiedBy, verifiedAt); err != nil {
		return fmt.Errorf("verify od request: %w", err)
	}
	return nil
}

// ApprovedOn reports whether the student holds an approved request covering date.
func (r *ODRequestRepository) ApprovedOn(ctx context.Context, studentID string, date models.Date) (bool, error) {
	const query = `SELECT COUNT(*) FROM od_requests WHERE student_id = $1 AND status = 'approved' AND start_date <= $2 AND end_date >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, date); err != nil {
		return false, fmt.Errorf("check approved od: %w", err)
	}
	return count > 0, nil
}
