package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

const absenceColumns = `id, teacher_id, start_date, end_date, reason, status, created_at`

const transferDetailSelect = `
SELECT ct.id, ct.absence_id, ct.original_teacher_id, ct.substitute_teacher_id, ct.class_id, ct.subject_id, ct.transfer_date, ct.created_at,
       COALESCE(t.full_name, '') AS substitute_name, COALESCE(t.email, '') AS substitute_email,
       COALESCE(c.name, '') AS class_name, COALESCE(c.section, '') AS class_section,
       COALESCE(s.name, '') AS subject_name, COALESCE(s.code, '') AS subject_code
FROM class_transfers ct
LEFT JOIN teachers t ON t.id = ct.substitute_teacher_id
LEFT JOIN classes c ON c.id = ct.class_id
LEFT JOIN subjects s ON s.id = ct.subject_id`

// AbsenceRepository persists teacher absences and the class transfers they own.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository constructs an AbsenceRepository.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// CreateAbsence inserts one absence row.
func (r *AbsenceRepository) CreateAbsence(ctx context.Context, absence *models.TeacherAbsence) error {
	if absence.ID == "" {
		absence.ID = uuid.NewString()
	}
	if absence.CreatedAt.IsZero() {
		absence.CreatedAt = time.Now().UTC()
	}
	if absence.Status == "" {
		absence.Status = models.AbsenceStatusActive
	}
	const query = `INSERT INTO teacher_absences (id, teacher_id, start_date, end_date, reason, status, created_at)
		VALUES (:id, :teacher_id, :start_date, :end_date, :reason, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, absence); err != nil {
		return fmt.Errorf("create absence: %w", err)
	}
	return nil
}

// CreateTransfers writes every transfer in a single multi-row insert.
func (r *AbsenceRepository) CreateTransfers(ctx context.Context, transfers []models.ClassTransfer) error {
	if len(transfers) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range transfers {
		if transfers[i].ID == "" {
			transfers[i].ID = uuid.NewString()
		}
		if transfers[i].CreatedAt.IsZero() {
			transfers[i].CreatedAt = now
		}
	}
	const query = `INSERT INTO class_transfers (id, absence_id, original_teacher_id, substitute_teacher_id, class_id, subject_id, transfer_date, created_at)
		VALUES (:id, :absence_id, :original_teacher_id, :substitute_teacher_id, :class_id, :subject_id, :transfer_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, transfers); err != nil {
		return fmt.Errorf("create class transfers: %w", err)
	}
	return nil
}

// FindCollisions returns existing transfers of originalTeacherID that share class, subject
// and date with any candidate row.
func (r *AbsenceRepository) FindCollisions(ctx context.Context, originalTeacherID string, candidates []models.ClassTransfer) ([]models.ClassTransfer, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	classIDs := make([]string, len(candidates))
	subjectIDs := make([]string, len(candidates))
	dates := make([]string, len(candidates))
	for i, c := range candidates {
		classIDs[i] = c.ClassID
		subjectIDs[i] = c.SubjectID
		dates[i] = c.TransferDate.String()
	}
	const query = `
SELECT ct.id, ct.absence_id, ct.original_teacher_id, ct.substitute_teacher_id, ct.class_id, ct.subject_id, ct.transfer_date, ct.created_at
FROM class_transfers ct
JOIN unnest($2::text[], $3::text[], $4::date[]) AS req(class_id, subject_id, transfer_date)
  ON ct.class_id = req.class_id AND ct.subject_id = req.subject_id AND ct.transfer_date = req.transfer_date
WHERE ct.original_teacher_id = $1
ORDER BY ct.transfer_date ASC`
	var collisions []models.ClassTransfer
	if err := r.db.SelectContext(ctx, &collisions, query, originalTeacherID, pq.Array(classIDs), pq.Array(subjectIDs), pq.Array(dates)); err != nil {
		return nil, fmt.Errorf("find transfer collisions: %w", err)
	}
	return collisions, nil
}

// FindByID returns one absence.
func (r *AbsenceRepository) FindByID(ctx context.Context, id string) (*models.TeacherAbsence, error) {
	query := `SELECT ` + absenceColumns + ` FROM teacher_absences WHERE id = $1`
	var absence models.TeacherAbsence
	if err := r.db.GetContext(ctx, &absence, query, id); err != nil {
		return nil, err
	}
	return &absence, nil
}

// List returns absences matching the filter, newest first.
func (r *AbsenceRepository) List(ctx context.Context, filter models.AbsenceFilter) ([]models.TeacherAbsence, error) {
	var conditions []string
	var args []interface{}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("start_date >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("end_date <= $%d", len(args)+1))
		args = append(args, *filter.EndDate)
	}

	query := `SELECT ` + absenceColumns + ` FROM teacher_absences`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var absences []models.TeacherAbsence
	if err := r.db.SelectContext(ctx, &absences, query, args...); err != nil {
		return nil, fmt.Errorf("list absences: %w", err)
	}
	return absences, nil
}

// ListTransfersByAbsences returns transfers owned by any of absenceIDs with display fields.
func (r *AbsenceRepository) ListTransfersByAbsences(ctx context.Context, absenceIDs []string) ([]models.ClassTransferDetail, error) {
	if len(absenceIDs) == 0 {
		return nil, nil
	}
	query := transferDetailSelect + "\nWHERE ct.absence_id = ANY($1)\nORDER BY ct.transfer_date ASC, c.name ASC"
	var transfers []models.ClassTransferDetail
	if err := r.db.SelectContext(ctx, &transfers, query, pq.Array(absenceIDs)); err != nil {
		return nil, fmt.Errorf("list transfers by absence: %w", err)
	}
	return transfers, nil
}

// ListTransfers returns cover duties for a substitute, optionally on one date.
func (r *AbsenceRepository) ListTransfers(ctx context.Context, filter models.TransferFilter) ([]models.ClassTransferDetail, error) {
	conditions := []string{"ct.substitute_teacher_id = $1"}
	args := []interface{}{filter.SubstituteTeacherID}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("ct.transfer_date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	query := transferDetailSelect + "\nWHERE " + strings.Join(conditions, " AND ") + "\nORDER BY ct.transfer_date ASC, c.name ASC"
	var transfers []models.ClassTransferDetail
	if err := r.db.SelectContext(ctx, &transfers, query, args...); err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return transfers, nil
}
