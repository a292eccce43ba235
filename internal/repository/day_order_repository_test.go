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

var dayOrderRowColumns = []string{"department", "date", "day_order", "is_holiday", "holiday_name", "updated_at"}

func TestDayOrderRepositoryLookupWorkingDay(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDayOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM day_order_calendar WHERE department = $1 AND date = $2")).
		WithArgs("CSE", "2025-03-10").
		WillReturnRows(sqlmock.NewRows(dayOrderRowColumns).AddRow("CSE", "2025-03-10", 2, false, nil, time.Now()))

	state, err := repo.Lookup(context.Background(), "CSE", models.MustParseDate("2025-03-10"))
	require.NoError(t, err)
	assert.False(t, state.Holiday)
	require.NotNil(t, state.DayOrder)
	assert.Equal(t, 2, *state.DayOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDayOrderRepositoryLookupHoliday(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDayOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM day_order_calendar WHERE department = $1 AND date = $2")).
		WithArgs("CSE", "2025-03-14").
		WillReturnRows(sqlmock.NewRows(dayOrderRowColumns).AddRow("CSE", "2025-03-14", nil, true, "Holi", time.Now()))

	state, err := repo.Lookup(context.Background(), "CSE", models.MustParseDate("2025-03-14"))
	require.NoError(t, err)
	assert.True(t, state.Holiday)
	assert.Nil(t, state.DayOrder)
	require.NotNil(t, state.HolidayName)
	assert.Equal(t, "Holi", *state.HolidayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDayOrderRepositoryLookupMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDayOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM day_order_calendar")).
		WillReturnRows(sqlmock.NewRows(dayOrderRowColumns))

	_, err := repo.Lookup(context.Background(), "CSE", models.MustParseDate("2025-03-15"))
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDayOrderRepositoryListAndUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDayOrderRepository(db)

	from := models.MustParseDate("2025-03-01")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE department = $1 AND date >= $2 ORDER BY date ASC")).
		WithArgs("CSE", "2025-03-01").
		WillReturnRows(sqlmock.NewRows(dayOrderRowColumns).AddRow("CSE", "2025-03-10", 2, false, nil, time.Now()))

	entries, err := repo.List(context.Background(), models.DayOrderCalendarFilter{Department: "CSE", From: &from})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	mock.ExpectExec("INSERT INTO day_order_calendar").WillReturnResult(sqlmock.NewResult(1, 1))
	order := 3
	require.NoError(t, repo.Upsert(context.Background(), &models.DayOrderEntry{Department: "CSE", Date: models.MustParseDate("2025-03-11"), DayOrder: &order}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
