package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/movietix/cinema-booking-api/internal/model"
	"github.com/movietix/cinema-booking-api/internal/repository"
)

// BrowseHandler serves the public, unauthenticated showtime catalog.
type BrowseHandler struct {
	Showtimes *repository.ShowtimeRepo
	Movies    *repository.MovieRepo
	Halls     *repository.HallRepo
	Seats     *repository.SeatRepo
	Bookings  *repository.BookingRepo
}

func NewBrowseHandler(showtimes *repository.ShowtimeRepo, movies *repository.MovieRepo, halls *repository.HallRepo, seats *repository.SeatRepo, bookings *repository.BookingRepo) *BrowseHandler {
	if showtimes == nil || movies == nil || halls == nil || seats == nil || bookings == nil {
		panic("nil repository passed to NewBrowseHandler")
	}
	return &BrowseHandler{Showtimes: showtimes, Movies: movies, Halls: halls, Seats: seats, Bookings: bookings}
}

type movieGroup struct {
	MovieID   uint64                       `json:"movie_id"`
	Title     string                       `json:"title"`
	Showtimes []repository.ShowtimeListing `json:"showtimes"`
}

// ListShowtimes handles GET /v1/showtimes.  Upcoming showtimes are
// filtered by the optional date, time_from/time_to, genre_id and movie_id
// query parameters and grouped per movie.
func (h *BrowseHandler) ListShowtimes(c echo.Context) error {
	f := repository.ListFilter{
		Date:     c.QueryParam("date"),
		TimeFrom: c.QueryParam("time_from"),
		TimeTo:   c.QueryParam("time_to"),
	}
	if s := c.QueryParam("genre_id"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid genre_id"})
		}
		f.GenreID = n
	}
	if s := c.QueryParam("movie_id"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie_id"})
		}
		f.MovieID = n
	}

	listings, err := h.Showtimes.ListForBrowse(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	// Rows arrive ordered by movie, so grouping is a single pass.
	groups := []movieGroup{}
	for _, l := range listings {
		if len(groups) == 0 || groups[len(groups)-1].MovieID != l.MovieID {
			groups = append(groups, movieGroup{MovieID: l.MovieID, Title: l.MovieTitle})
		}
		groups[len(groups)-1].Showtimes = append(groups[len(groups)-1].Showtimes, l)
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": groups})
}

// FilterOptions handles GET /v1/showtimes/filters and returns the values
// the browse UI can filter by: genres with scheduled showtimes plus the
// distinct dates and start times of upcoming showtimes.
func (h *BrowseHandler) FilterOptions(c echo.Context) error {
	ctx := c.Request().Context()
	genres, err := h.Movies.GenresWithShowtimes(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	dates, err := h.Showtimes.DistinctDates(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	times, err := h.Showtimes.DistinctTimes(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if genres == nil {
		genres = []model.Genre{}
	}
	if dates == nil {
		dates = []string{}
	}
	if times == nil {
		times = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"genres": genres, "dates": dates, "times": times})
}

type seatMapEntry struct {
	ID      uint64 `json:"id"`
	Row     uint32 `json:"row"`
	Number  uint32 `json:"number"`
	IsTaken bool   `json:"is_taken"`
}

// SeatMap handles GET /v1/showtimes/:id/seats.  Every seat of the
// showtime's hall is returned with a taken flag derived from CONFIRMED
// bookings.  The snapshot is advisory, booking re-checks under lock.
func (h *BrowseHandler) SeatMap(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	ctx := c.Request().Context()

	st, err := h.Showtimes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	hall, err := h.Halls.GetByID(ctx, st.HallID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	seats, err := h.Seats.GetByHall(ctx, st.HallID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	occupied, err := h.Bookings.OccupiedSeatIDs(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	entries := make([]seatMapEntry, 0, len(seats))
	var rows, perRow uint32
	for _, s := range seats {
		_, taken := occupied[s.ID]
		entries = append(entries, seatMapEntry{ID: s.ID, Row: s.Row, Number: s.Number, IsTaken: taken})
		if s.Row > rows {
			rows = s.Row
		}
		if s.Row == 1 && s.Number > perRow {
			perRow = s.Number
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"showtime_id":   st.ID,
		"hall":          echo.Map{"id": hall.ID, "name": hall.Name},
		"rows":          rows,
		"seats_per_row": perRow,
		"price_cents":   st.PriceCents,
		"seats":         entries,
	})
}

// HallSeats handles GET /v1/halls/:id/seats and returns the plain seat
// layout of a hall without availability, for rendering the room itself.
func (h *BrowseHandler) HallSeats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hall id"})
	}
	ctx := c.Request().Context()

	hall, err := h.Halls.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrHallNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hall not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	seats, err := h.Seats.GetByHall(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	var rows, perRow uint32
	for _, s := range seats {
		if s.Row > rows {
			rows = s.Row
		}
		if s.Row == 1 && s.Number > perRow {
			perRow = s.Number
		}
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hall":          echo.Map{"id": hall.ID, "name": hall.Name},
		"rows":          rows,
		"seats_per_row": perRow,
		"seats":         seats,
	})
}
