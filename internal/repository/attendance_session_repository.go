package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

const sessionColumns = `id, teacher_id, class_id, subject_id, assignment_id, session_date, day_order, status, opened_at, closes_at, closed_at, created_at`

// AttendanceSessionRepository persists attendance sessions and their student marks.
type AttendanceSessionRepository struct {
	db *sqlx.DB
}

// NewAttendanceSessionRepository constructs the repository.
func NewAttendanceSessionRepository(db *sqlx.DB) *AttendanceSessionRepository {
	return &AttendanceSessionRepository{db: db}
}

// Create inserts a new session.
func (r *AttendanceSessionRepository) Create(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.Status == "" {
		session.Status = models.SessionStatusOpen
	}
	const query = `INSERT INTO attendance_sessions (id, teacher_id, class_id, subject_id, assignment_id, session_date, day_order, status, opened_at, closes_at, closed_at, created_at)
		VALUES (:id, :teacher_id, :class_id, :subject_id, :assignment_id, :session_date, :day_order, :status, :opened_at, :closes_at, :closed_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create attendance session: %w", err)
	}
	return nil
}

// FindByID returns a session.
func (r *AttendanceSessionRepository) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions WHERE id = $1`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByTeacher returns a teacher's sessions on date, earliest first.
func (r *AttendanceSessionRepository) ListByTeacher(ctx context.Context, teacherID string, date models.Date) ([]models.AttendanceSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions WHERE teacher_id = $1 AND session_date = $2 ORDER BY opened_at ASC`
	var sessions []models.AttendanceSession
	if err := r.db.SelectContext(ctx, &sessions, query, teacherID, date); err != nil {
		return nil, fmt.Errorf("list attendance sessions: %w", err)
	}
	return sessions, nil
}

// Close marks an open session closed. Returns sql.ErrNoRows when the session is missing or already closed.
func (r *AttendanceSessionRepository) Close(ctx context.Context, id string, closedAt time.Time) error {
	const query = `UPDATE attendance_sessions SET status = 'closed', closed_at = $2 WHERE id = $1 AND status = 'open'`
	result, err := r.db.ExecContext(ctx, query, id, closedAt)
	if err != nil {
		return fmt.Errorf("close attendance session: %w", err)
	}
	return requireAffected(result, "close attendance session")
}

// CreateRecord stores one student mark. Returns ErrDuplicate if the student already marked.
func (r *AttendanceSessionRepository) CreateRecord(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MarkedAt.IsZero() {
		record.MarkedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_records (id, session_id, student_id, status, marked_at)
		VALUES (:id, :session_id, :student_id, :status, :marked_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

// ListRecords returns the marks of a session ordered by register number.
func (r *AttendanceSessionRepository) ListRecords(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error) {
	const query = `
SELECT ar.id, ar.session_id, ar.student_id, ar.status, ar.marked_at, st.register_no, st.full_name AS student_name
FROM attendance_records ar
JOIN students st ON st.id = ar.student_id
WHERE ar.session_id = $1
ORDER BY st.register_no ASC`
	var records []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}
