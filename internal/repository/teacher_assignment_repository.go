package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

const assignmentDetailSelect = `
SELECT ta.id, ta.teacher_id, ta.class_id, ta.subject_id, ta.day_order,
       to_char(ta.start_time, 'HH24:MI') AS start_time, to_char(ta.end_time, 'HH24:MI') AS end_time,
       ta.auto_session_enabled, ta.created_at, ta.updated_at,
       c.name AS class_name, c.section AS class_section, s.name AS subject_name, s.code AS subject_code
FROM teacher_assignments ta
JOIN classes c ON c.id = ta.class_id
JOIN subjects s ON s.id = ta.subject_id`

// TeacherAssignmentRepository persists the standing day-order timetable.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository constructs the repository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

// ListAutoSessions returns the teacher's auto-session assignments for exactly dayOrder,
// earliest start first.
func (r *TeacherAssignmentRepository) ListAutoSessions(ctx context.Context, teacherID string, dayOrder int) ([]models.TeacherAssignmentDetail, error) {
	query := assignmentDetailSelect + `
WHERE ta.teacher_id = $1 AND ta.day_order = $2 AND ta.auto_session_enabled = TRUE
ORDER BY ta.start_time ASC, c.name ASC`
	var assignments []models.TeacherAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID, dayOrder); err != nil {
		return nil, fmt.Errorf("list auto-session assignments: %w", err)
	}
	return assignments, nil
}

// List returns assignments matching the filter ordered by day order then start time.
func (r *TeacherAssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.TeacherAssignmentDetail, error) {
	var conditions []string
	var args []interface{}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("ta.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("ta.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.DayOrder != nil {
		conditions = append(conditions, fmt.Sprintf("ta.day_order = $%d", len(args)+1))
		args = append(args, *filter.DayOrder)
	}

	query := assignmentDetailSelect
	if len(conditions) > 0 {
		query += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\nORDER BY ta.day_order ASC, ta.start_time ASC"

	var assignments []models.TeacherAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return assignments, nil
}

// FindByID returns one assignment with display fields.
func (r *TeacherAssignmentRepository) FindByID(ctx context.Context, id string) (*models.TeacherAssignmentDetail, error) {
	query := assignmentDetailSelect + "\nWHERE ta.id = $1"
	var assignment models.TeacherAssignmentDetail
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Exists checks if the teacher/class/subject/day-order slot is already taken by another row.
func (r *TeacherAssignmentRepository) Exists(ctx context.Context, teacherID, classID, subjectID string, dayOrder int, excludeID string) (bool, error) {
	query := `SELECT 1 FROM teacher_assignments WHERE teacher_id = $1 AND class_id = $2 AND subject_id = $3 AND day_order = $4`
	args := []interface{}{teacherID, classID, subjectID, dayOrder}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check teacher assignment: %w", err)
	}
	return true, nil
}

// Create inserts a new assignment.
func (r *TeacherAssignmentRepository) Create(ctx context.Context, assignment *models.TeacherAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO teacher_assignments (id, teacher_id, class_id, subject_id, day_order, start_time, end_time, auto_session_enabled, created_at, updated_at)
		VALUES (:id, :teacher_id, :class_id, :subject_id, :day_order, :start_time, :end_time, :auto_session_enabled, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create teacher assignment: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an assignment.
func (r *TeacherAssignmentRepository) Update(ctx context.Context, assignment *models.TeacherAssignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teacher_assignments SET teacher_id = :teacher_id, class_id = :class_id, subject_id = :subject_id, day_order = :day_order,
		start_time = :start_time, end_time = :end_time, auto_session_enabled = :auto_session_enabled, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("update teacher assignment: %w", err)
	}
	return requireAffected(result, "update teacher assignment")
}

// Delete removes an assignment.
func (r *TeacherAssignmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM teacher_assignments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete teacher assignment: %w", err)
	}
	return requireAffected(result, "delete teacher assignment")
}

func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
