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

	"github.com/uvems/uvems-api/internal/models"
)

func scheduleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "event_id", "venue_id", "org_id", "start_time", "end_time", "is_optimized", "created_at"})
}

func TestScheduleRepositoryListOverlapping(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	weekStart := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)

	rows := scheduleRows().
		AddRow("sch-1", "ev-9", "venue-1", "org-1", weekStart.Add(10*time.Hour), weekStart.Add(12*time.Hour), false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE start_time < $2 AND end_time > $1 ORDER BY start_time ASC")).
		WithArgs(weekStart, weekEnd).
		WillReturnRows(rows)

	schedules, err := repo.ListOverlapping(context.Background(), weekStart, weekEnd)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "venue-1", schedules[0].VenueID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryBulkCreateWithTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO schedules").
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	start := time.Date(2025, time.January, 7, 9, 0, 0, 0, time.UTC)
	schedules := []*models.Schedule{
		{EventID: "ev-1", VenueID: "venue-1", OrgID: "org-1", StartTime: start, EndTime: start.Add(2 * time.Hour)},
		{EventID: "ev-2", VenueID: "venue-2", OrgID: "org-1", StartTime: start.Add(3 * time.Hour), EndTime: start.Add(5 * time.Hour)},
	}
	require.NoError(t, repo.BulkCreateWithTx(context.Background(), tx, schedules))
	require.NoError(t, tx.Commit())

	for _, s := range schedules {
		assert.NotEmpty(t, s.ID)
		assert.False(t, s.CreatedAt.IsZero())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryBulkCreateWithTxEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	require.NoError(t, repo.BulkCreateWithTx(context.Background(), db, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE id = $1")).
		WithArgs("sch-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "sch-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListFiltersByVenueAndWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	from := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE 1=1 AND venue_id = $1 AND start_time >= $2 ORDER BY start_time ASC LIMIT 20 OFFSET 0")).
		WithArgs("venue-1", from).
		WillReturnRows(scheduleRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedules WHERE 1=1 AND venue_id = $1 AND start_time >= $2")).
		WithArgs("venue-1", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.ScheduleFilter{VenueID: "venue-1", StartFrom: &from})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
