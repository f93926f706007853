package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/movietix/cinema-booking-api/internal/model"
	"github.com/movietix/cinema-booking-api/internal/repository"
)

// ShowtimeHandler bundles repositories for admin showtime scheduling.
type ShowtimeHandler struct {
	Showtimes *repository.ShowtimeRepo
	Halls     *repository.HallRepo
	Movies    *repository.MovieRepo
}

func NewShowtimeHandler(showtimes *repository.ShowtimeRepo, halls *repository.HallRepo, movies *repository.MovieRepo) *ShowtimeHandler {
	if showtimes == nil || halls == nil || movies == nil {
		panic("nil repository passed to NewShowtimeHandler")
	}
	return &ShowtimeHandler{Showtimes: showtimes, Halls: halls, Movies: movies}
}

type showtimeReq struct {
	MovieID    uint64    `json:"movie_id"`
	HallID     uint64    `json:"hall_id"`
	StartsAt   time.Time `json:"starts_at"`
	PriceCents uint32    `json:"price_cents"`
}

func (req *showtimeReq) validate() string {
	switch {
	case req.MovieID == 0:
		return "movie_id is required"
	case req.HallID == 0:
		return "hall_id is required"
	case req.StartsAt.IsZero():
		return "starts_at is required"
	}
	return ""
}

// Create handles POST /v1/admin/showtimes.  The hall row is locked before
// the conflict check so two admins scheduling into the same hall at once
// cannot both pass it.
func (h *ShowtimeHandler) Create(c echo.Context) error {
	var req showtimeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	tx, err := h.Showtimes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := h.Halls.LockTx(ctx, tx, req.HallID); err != nil {
		if errors.Is(err, repository.ErrHallNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hall not found"})
		}
		if repository.IsLockConflict(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "schedule conflict, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	ok, err := h.Movies.ExistsTx(ctx, tx, req.MovieID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	}

	if err := h.Showtimes.CheckConflictTx(ctx, tx, req.HallID, req.StartsAt.UTC(), 0); err != nil {
		if errors.Is(err, repository.ErrScheduleConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "another showtime starts within 30 minutes in this hall"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	st := &model.Showtime{
		MovieID:    req.MovieID,
		HallID:     req.HallID,
		StartsAt:   req.StartsAt.UTC(),
		PriceCents: req.PriceCents,
	}
	if err := h.Showtimes.CreateTx(ctx, tx, st); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create showtime failed"})
	}

	if err := tx.Commit(); err != nil {
		if repository.IsLockConflict(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "schedule conflict, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	return c.JSON(http.StatusCreated, st)
}

type showtimeUpdateReq struct {
	MovieID    *uint64    `json:"movie_id"`
	HallID     *uint64    `json:"hall_id"`
	StartsAt   *time.Time `json:"starts_at"`
	PriceCents *uint32    `json:"price_cents"`
}

// Update handles PUT /v1/admin/showtimes/:id.  Fields absent from the
// body keep their current values, and rescheduling re-runs the conflict
// check against every other showtime of the effective hall, excluding
// the one being moved.
func (h *ShowtimeHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var req showtimeUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if (req.MovieID != nil && *req.MovieID == 0) || (req.HallID != nil && *req.HallID == 0) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ids must be positive"})
	}

	ctx := c.Request().Context()
	tx, err := h.Showtimes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	st, err := h.Showtimes.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.MovieID != nil {
		st.MovieID = *req.MovieID
	}
	if req.HallID != nil {
		st.HallID = *req.HallID
	}
	if req.StartsAt != nil {
		st.StartsAt = req.StartsAt.UTC()
	}
	if req.PriceCents != nil {
		st.PriceCents = *req.PriceCents
	}

	if _, err := h.Halls.LockTx(ctx, tx, st.HallID); err != nil {
		if errors.Is(err, repository.ErrHallNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hall not found"})
		}
		if repository.IsLockConflict(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "schedule conflict, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	ok, err := h.Movies.ExistsTx(ctx, tx, st.MovieID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	}

	if err := h.Showtimes.CheckConflictTx(ctx, tx, st.HallID, st.StartsAt, id); err != nil {
		if errors.Is(err, repository.ErrScheduleConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "another showtime starts within 30 minutes in this hall"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Showtimes.UpdateTx(ctx, tx, st); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update showtime failed"})
	}

	if err := tx.Commit(); err != nil {
		if repository.IsLockConflict(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "schedule conflict, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	return c.JSON(http.StatusOK, st)
}

// Delete handles DELETE /v1/admin/showtimes/:id and removes the showtime
// together with all bookings that reference it.
func (h *ShowtimeHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}

	ctx := c.Request().Context()
	tx, err := h.Showtimes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Showtimes.DeleteTx(ctx, tx, id); err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete showtime failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	return c.NoContent(http.StatusNoContent)
}
