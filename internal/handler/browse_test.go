package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movietix/cinema-booking-api/internal/repository"
)

func newBrowseHandler(t *testing.T) (*BrowseHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBrowseHandler(
		repository.NewShowtimeRepo(db),
		repository.NewMovieRepo(db),
		repository.NewHallRepo(db),
		repository.NewSeatRepo(db),
		repository.NewBookingRepo(db),
	), mock
}

func TestSeatMapAnnotatesTakenSeats(t *testing.T) {
	h, mock := newBrowseHandler(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	startsAt := time.Date(2026, 9, 10, 20, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM showtimes WHERE id = \?`).
		WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "movie_id", "hall_id", "starts_at", "price_cents", "created_at", "updated_at",
		}).AddRow(8, 2, 1, startsAt, 1200, now, now))
	mock.ExpectQuery(`SELECT id, name, created_at, updated_at FROM halls WHERE id = \?`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(1, "Hall 1", now, now))
	mock.ExpectQuery(`SELECT id, hall_id, row_num, seat_number FROM seats`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "hall_id", "row_num", "seat_number"}).
			AddRow(101, 1, 1, 1).
			AddRow(102, 1, 1, 2).
			AddRow(103, 1, 2, 1).
			AddRow(104, 1, 2, 2))
	mock.ExpectQuery(`SELECT bs\.seat_id FROM booking_seats bs`).
		WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(102))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/showtimes/8/seats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("8")

	require.NoError(t, h.SeatMap(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows        uint32 `json:"rows"`
		SeatsPerRow uint32 `json:"seats_per_row"`
		Seats       []struct {
			ID      uint64 `json:"id"`
			IsTaken bool   `json:"is_taken"`
		} `json:"seats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp.Rows)
	assert.EqualValues(t, 2, resp.SeatsPerRow)
	require.Len(t, resp.Seats, 4)

	taken := map[uint64]bool{}
	for _, s := range resp.Seats {
		taken[s.ID] = s.IsTaken
	}
	assert.True(t, taken[102])
	assert.False(t, taken[101])
	assert.False(t, taken[103])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatMapUnknownShowtime(t *testing.T) {
	h, mock := newBrowseHandler(t)

	mock.ExpectQuery(`SELECT .+ FROM showtimes WHERE id = \?`).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "movie_id", "hall_id", "starts_at", "price_cents", "created_at", "updated_at",
		}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/showtimes/99/seats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("99")

	require.NoError(t, h.SeatMap(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListShowtimesGroupsByMovie(t *testing.T) {
	h, mock := newBrowseHandler(t)
	t1 := time.Date(2026, 9, 10, 18, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 9, 10, 21, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT s\.id, s\.movie_id, m\.title`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "movie_id", "title", "hall_id", "name", "starts_at", "price_cents", "total_seats", "available_seats",
		}).
			AddRow(1, 2, "Alien", 1, "Hall 1", t1, 1200, 50, 48).
			AddRow(2, 2, "Alien", 1, "Hall 1", t2, 1200, 50, 50).
			AddRow(3, 5, "Heat", 2, "Hall 2", t1, 1500, 80, 12))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/showtimes", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.ListShowtimes(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Movies []struct {
			MovieID   uint64 `json:"movie_id"`
			Title     string `json:"title"`
			Showtimes []struct {
				ID             uint64 `json:"id"`
				AvailableSeats int    `json:"available_seats"`
			} `json:"showtimes"`
		} `json:"movies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Movies, 2)
	assert.Equal(t, "Alien", resp.Movies[0].Title)
	assert.Len(t, resp.Movies[0].Showtimes, 2)
	assert.Equal(t, "Heat", resp.Movies[1].Title)
	assert.Equal(t, 12, resp.Movies[1].Showtimes[0].AvailableSeats)
}
