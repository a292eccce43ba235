package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

var assignmentRowColumns = []string{"id", "teacher_id", "class_id", "subject_id", "day_order", "start_time", "end_time",
	"auto_session_enabled", "created_at", "updated_at", "class_name", "class_section", "subject_name", "subject_code"}

func TestTeacherAssignmentRepositoryListAutoSessions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherAssignmentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ta.teacher_id = $1 AND ta.day_order = $2 AND ta.auto_session_enabled = TRUE")).
		WithArgs("T1", 2).
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns).
			AddRow("a1", "T1", "C1", "S1", 2, "14:30", "15:20", true, now, now, "II CSE", "A", "Data Structures", "CS201"))

	assignments, err := repo.ListAutoSessions(context.Background(), "T1", 2)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "14:30", assignments[0].StartTime)
	assert.Equal(t, "Data Structures", assignments[0].SubjectName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAssignmentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherAssignmentRepository(db)

	dayOrder := 3
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ta.teacher_id = $1 AND ta.day_order = $2\nORDER BY ta.day_order ASC, ta.start_time ASC")).
		WithArgs("T1", 3).
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns))

	assignments, err := repo.List(context.Background(), models.AssignmentFilter{TeacherID: "T1", DayOrder: &dayOrder})
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAssignmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teacher_assignments WHERE teacher_id = $1 AND class_id = $2 AND subject_id = $3 AND day_order = $4 AND id <> $5 LIMIT 1")).
		WithArgs("T1", "C1", "S1", 2, "a1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "T1", "C1", "S1", 2, "a1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAssignmentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teacher_assignments WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO teacher_assignments").WillReturnResult(sqlmock.NewResult(1, 1))
	assignment := &models.TeacherAssignment{TeacherID: "T1", ClassID: "C1", SubjectID: "S1", DayOrder: 2, StartTime: "14:30", EndTime: "15:20", AutoSessionEnabled: true}
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
