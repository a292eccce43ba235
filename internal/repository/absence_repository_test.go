package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

var transferDetailColumns = []string{"id", "absence_id", "original_teacher_id", "substitute_teacher_id", "class_id", "subject_id", "transfer_date", "created_at",
	"substitute_name", "substitute_email", "class_name", "class_section", "subject_name", "subject_code"}

func TestAbsenceRepositoryCreateAbsence(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	mock.ExpectExec("INSERT INTO teacher_absences").
		WithArgs(sqlmock.AnyArg(), "T1", "2025-03-10", "2025-03-12", nil, models.AbsenceStatusActive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	absence := &models.TeacherAbsence{TeacherID: "T1", StartDate: models.MustParseDate("2025-03-10"), EndDate: models.MustParseDate("2025-03-12")}
	require.NoError(t, repo.CreateAbsence(context.Background(), absence))
	assert.NotEmpty(t, absence.ID)
	assert.Equal(t, models.AbsenceStatusActive, absence.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryCreateTransfersSingleBatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	mock.ExpectExec("INSERT INTO class_transfers").
		WithArgs(
			sqlmock.AnyArg(), "A1", "T1", "T2", "C1", "S1", "2025-03-10", sqlmock.AnyArg(),
			sqlmock.AnyArg(), "A1", "T1", "T2", "C1", "S1", "2025-03-11", sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	transfers := []models.ClassTransfer{
		{AbsenceID: "A1", OriginalTeacherID: "T1", SubstituteTeacherID: "T2", ClassID: "C1", SubjectID: "S1", TransferDate: models.MustParseDate("2025-03-10")},
		{AbsenceID: "A1", OriginalTeacherID: "T1", SubstituteTeacherID: "T2", ClassID: "C1", SubjectID: "S1", TransferDate: models.MustParseDate("2025-03-11")},
	}
	require.NoError(t, repo.CreateTransfers(context.Background(), transfers))
	assert.NotEqual(t, transfers[0].ID, transfers[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryCreateTransfersError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	mock.ExpectExec("INSERT INTO class_transfers").WillReturnError(errors.New("fk violation"))
	err := repo.CreateTransfers(context.Background(), []models.ClassTransfer{{AbsenceID: "A1", TransferDate: models.MustParseDate("2025-03-10")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create class transfers")

	require.NoError(t, repo.CreateTransfers(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryListNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	start := models.MustParseDate("2025-03-01")
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_absences WHERE teacher_id = $1 AND start_date >= $2 ORDER BY created_at DESC")).
		WithArgs("T1", "2025-03-01").
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "start_date", "end_date", "reason", "status", "created_at"}).
			AddRow("A2", "T1", "2025-03-20", "2025-03-20", nil, "active", now).
			AddRow("A1", "T1", "2025-03-10", "2025-03-12", "Medical", "active", now.Add(-time.Hour)))

	absences, err := repo.List(context.Background(), models.AbsenceFilter{TeacherID: "T1", StartDate: &start})
	require.NoError(t, err)
	require.Len(t, absences, 2)
	assert.Equal(t, "A2", absences[0].ID)
	require.NotNil(t, absences[1].Reason)
	assert.Equal(t, "Medical", *absences[1].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryListTransfersByAbsences(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE ct.absence_id = ANY($1)")).
		WithArgs(pq.Array([]string{"A1"})).
		WillReturnRows(sqlmock.NewRows(transferDetailColumns).
			AddRow("X1", "A1", "T1", "T2", "C1", "S1", "2025-03-10", time.Now(), "Sub Teacher", "sub@campus.test", "II CSE", "A", "Data Structures", "CS201"))

	transfers, err := repo.ListTransfersByAbsences(context.Background(), []string{"A1"})
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "Sub Teacher", transfers[0].SubstituteName)
	assert.Equal(t, "2025-03-10", transfers[0].TransferDate.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryFindCollisions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN unnest($2::text[], $3::text[], $4::date[])")).
		WithArgs("T1", pq.Array([]string{"C1"}), pq.Array([]string{"S1"}), pq.Array([]string{"2025-03-10"})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "absence_id", "original_teacher_id", "substitute_teacher_id", "class_id", "subject_id", "transfer_date", "created_at"}).
			AddRow("X0", "A0", "T1", "T3", "C1", "S1", "2025-03-10", time.Now()))

	collisions, err := repo.FindCollisions(context.Background(), "T1", []models.ClassTransfer{
		{ClassID: "C1", SubjectID: "S1", TransferDate: models.MustParseDate("2025-03-10")},
	})
	require.NoError(t, err)
	assert.Len(t, collisions, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryListTransfersForSubstitute(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	day := models.MustParseDate("2025-03-10")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ct.substitute_teacher_id = $1 AND ct.transfer_date = $2")).
		WithArgs("T2", "2025-03-10").
		WillReturnRows(sqlmock.NewRows(transferDetailColumns))

	transfers, err := repo.ListTransfers(context.Background(), models.TransferFilter{SubstituteTeacherID: "T2", Date: &day})
	require.NoError(t, err)
	assert.Empty(t, transfers)
	assert.NoError(t, mock.ExpectationsWereMet())
}
