package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*ShowtimeRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewShowtimeRepo(db), mock
}

func TestCheckConflictTxWindow(t *testing.T) {
	repo, mock := newMock(t)
	start := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM showtimes`).
		WithArgs(uint64(7), uint64(0), start.Add(-30*time.Minute), start.Add(30*time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	tx, err := repo.DB().Begin()
	require.NoError(t, err)

	err = repo.CheckConflictTx(context.Background(), tx, 7, start, 0)
	assert.ErrorIs(t, err, ErrScheduleConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckConflictTxExcludesSelf(t *testing.T) {
	repo, mock := newMock(t)
	start := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM showtimes`).
		WithArgs(uint64(7), uint64(42), start.Add(-30*time.Minute), start.Add(30*time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	tx, err := repo.DB().Begin()
	require.NoError(t, err)

	assert.NoError(t, repo.CheckConflictTx(context.Background(), tx, 7, start, 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT .+ FROM showtimes WHERE id = \?`).
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrShowtimeNotFound)
}

func TestDeleteTxCascades(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE bs FROM booking_seats bs`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM bookings WHERE showtime_id = \?`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM showtimes WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := repo.DB().Begin()
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTx(context.Background(), tx, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTxMissingShowtime(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE bs FROM booking_seats bs`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM bookings WHERE showtime_id = \?`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM showtimes WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := repo.DB().Begin()
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteTx(context.Background(), tx, 5), ErrShowtimeNotFound)
}
