package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movietix/cinema-booking-api/internal/repository"
)

func newBookingHandler(t *testing.T) (*BookingHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	h := NewBookingHandler(
		repository.NewBookingRepo(db),
		repository.NewShowtimeRepo(db),
		repository.NewSeatRepo(db),
		repository.NewHallRepo(db),
		repository.NewMovieRepo(db),
		nil,
		log,
	)
	return h, mock
}

func newBookingCtx(t *testing.T, method, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/v1/bookings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(3))
	return c, rec
}

func showtimeRow(startsAt time.Time) *sqlmock.Rows {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "movie_id", "hall_id", "starts_at", "price_cents", "created_at", "updated_at",
	}).AddRow(8, 2, 1, startsAt, 1200, now, now)
}

func TestCreateBookingSuccess(t *testing.T) {
	h, mock := newBookingHandler(t)
	startsAt := time.Now().UTC().Add(48 * time.Hour)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM showtimes WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(8)).
		WillReturnRows(showtimeRow(startsAt))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM seats WHERE hall_id = \?`).
		WithArgs(uint64(1), uint64(101), uint64(102)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT bs\.seat_id FROM booking_seats bs`).
		WithArgs(uint64(8), uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))
	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(uint64(3), uint64(8), "CONFIRMED", 2400, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectQuery(`SELECT created_at, updated_at FROM bookings WHERE id = \?`).
		WithArgs(uint64(55)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`INSERT INTO booking_seats`).
		WithArgs(uint64(55), uint64(101), uint64(55), uint64(102)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT se\.id, se\.hall_id`).
		WithArgs(uint64(55)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "hall_id", "row_num", "seat_number"}).
			AddRow(101, 1, 1, 1).
			AddRow(102, 1, 1, 2))

	c, rec := newBookingCtx(t, http.MethodPost, `{"showtime_id":8,"seat_ids":[101,102]}`)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_price_cents":2400`)
	assert.Contains(t, rec.Body.String(), `"status":"CONFIRMED"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingSeatsTaken(t *testing.T) {
	h, mock := newBookingHandler(t)
	startsAt := time.Now().UTC().Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM showtimes WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(8)).
		WillReturnRows(showtimeRow(startsAt))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM seats WHERE hall_id = \?`).
		WithArgs(uint64(1), uint64(101), uint64(102)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT bs\.seat_id FROM booking_seats bs`).
		WithArgs(uint64(8), uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(102))
	mock.ExpectRollback()

	c, rec := newBookingCtx(t, http.MethodPost, `{"showtime_id":8,"seat_ids":[101,102]}`)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "seats unavailable")
	assert.Contains(t, rec.Body.String(), "102")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingForeignSeatRejected(t *testing.T) {
	h, mock := newBookingHandler(t)
	startsAt := time.Now().UTC().Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM showtimes WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(8)).
		WillReturnRows(showtimeRow(startsAt))
	// Only one of the two seats belongs to the hall.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM seats WHERE hall_id = \?`).
		WithArgs(uint64(1), uint64(101), uint64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	c, rec := newBookingCtx(t, http.MethodPost, `{"showtime_id":8,"seat_ids":[101,999]}`)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing showtime", `{"seat_ids":[1]}`},
		{"no seats", `{"showtime_id":8,"seat_ids":[]}`},
		{"zero seat id", `{"showtime_id":8,"seat_ids":[101,0]}`},
		{"duplicate seat ids", `{"showtime_id":8,"seat_ids":[101,101]}`},
		{"garbage body", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newBookingHandler(t)
			c, rec := newBookingCtx(t, http.MethodPost, tt.body)
			require.NoError(t, h.Create(c))
			// Rejected before any transaction is opened, nothing is booked.
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpdateSeatsRejectsDuplicates(t *testing.T) {
	h, mock := newBookingHandler(t)

	c, rec := newBookingCtx(t, http.MethodPut, `{"seat_ids":[101,101]}`)
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.UpdateSeats(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingShowtimeStarted(t *testing.T) {
	h, mock := newBookingHandler(t)
	startsAt := time.Now().UTC().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM showtimes WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(8)).
		WillReturnRows(showtimeRow(startsAt))
	mock.ExpectRollback()

	c, rec := newBookingCtx(t, http.MethodPost, `{"showtime_id":8,"seat_ids":[101]}`)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already started")
}

func TestCancelIdempotent(t *testing.T) {
	h, mock := newBookingHandler(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// First call flips the row.
	mock.ExpectExec(`UPDATE bookings SET status = 'CANCELLED'`).
		WithArgs(uint64(10), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Second call matches nothing, then the read-back sees CANCELLED.
	mock.ExpectExec(`UPDATE bookings SET status = 'CANCELLED'`).
		WithArgs(uint64(10), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \? AND user_id = \?`).
		WithArgs(uint64(10), uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "showtime_id", "status", "total_price_cents", "reference", "created_at", "updated_at",
		}).AddRow(10, 3, 8, "CANCELLED", 1200, "BK-AAAA", now, now))

	for i := 0; i < 2; i++ {
		c, rec := newBookingCtx(t, http.MethodDelete, "")
		c.SetParamNames("id")
		c.SetParamValues("10")
		require.NoError(t, h.Cancel(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "CANCELLED")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelCompletedRejected(t *testing.T) {
	h, mock := newBookingHandler(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE bookings SET status = 'CANCELLED'`).
		WithArgs(uint64(10), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \? AND user_id = \?`).
		WithArgs(uint64(10), uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "showtime_id", "status", "total_price_cents", "reference", "created_at", "updated_at",
		}).AddRow(10, 3, 8, "COMPLETED", 1200, "BK-AAAA", now, now))

	c, rec := newBookingCtx(t, http.MethodDelete, "")
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	h, mock := newBookingHandler(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "showtime_id", "status", "total_price_cents", "reference", "created_at", "updated_at",
		}).AddRow(10, 3, 8, "CANCELLED", 1200, "BK-AAAA", now, now))
	mock.ExpectRollback()

	c, rec := newBookingCtx(t, http.MethodPatch, `{"status":"COMPLETED"}`)
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid status transition")
}

func TestUpdateStatusNotOwner(t *testing.T) {
	h, mock := newBookingHandler(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "showtime_id", "status", "total_price_cents", "reference", "created_at", "updated_at",
		}).AddRow(10, 4, 8, "CONFIRMED", 1200, "BK-AAAA", now, now))
	mock.ExpectRollback()

	c, rec := newBookingCtx(t, http.MethodPatch, `{"status":"COMPLETED"}`)
	c.SetParamNames("id")
	c.SetParamValues("10")
	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
