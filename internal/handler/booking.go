package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/movietix/cinema-booking-api/internal/model"
	"github.com/movietix/cinema-booking-api/internal/queue"
	"github.com/movietix/cinema-booking-api/internal/repository"
	"github.com/movietix/cinema-booking-api/internal/service"
	"github.com/movietix/cinema-booking-api/internal/utils"
)

// BookingHandler implements the seat booking flow.  Creation and seat
// updates run inside a transaction that first locks the showtime row, so
// two requests racing for the same seats serialize on that lock and the
// loser sees the winner's seats as occupied.
type BookingHandler struct {
	Bookings  *repository.BookingRepo
	Showtimes *repository.ShowtimeRepo
	Seats     *repository.SeatRepo
	Halls     *repository.HallRepo
	Movies    *repository.MovieRepo
	Publisher *service.EventPublisher
	Log       *logrus.Logger
}

func NewBookingHandler(bookings *repository.BookingRepo, showtimes *repository.ShowtimeRepo, seats *repository.SeatRepo, halls *repository.HallRepo, movies *repository.MovieRepo, pub *service.EventPublisher, log *logrus.Logger) *BookingHandler {
	if bookings == nil || showtimes == nil || seats == nil || halls == nil || movies == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{
		Bookings:  bookings,
		Showtimes: showtimes,
		Seats:     seats,
		Halls:     halls,
		Movies:    movies,
		Publisher: pub,
		Log:       log,
	}
}

type createBookingReq struct {
	ShowtimeID uint64   `json:"showtime_id"`
	SeatIDs    []uint64 `json:"seat_ids"`
}

type bookingResp struct {
	Booking *model.Booking `json:"booking"`
	Seats   []model.Seat   `json:"seats"`
}

// Create handles POST /v1/bookings.  The total price is the showtime
// price times the seat count, frozen at creation; later price changes on
// the showtime do not touch existing bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ShowtimeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtime_id is required"})
	}
	if !seatIDsValid(req.SeatIDs) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids must be a non-empty set of unique ids"})
	}
	seatIDs := req.SeatIDs

	ctx := c.Request().Context()
	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	st, err := h.Showtimes.GetForUpdateTx(ctx, tx, req.ShowtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		if repository.IsLockConflict(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "seats unavailable, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if st.StartsAt.Before(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtime already started"})
	}

	if status, msg := h.checkSeats(ctx, tx, st, seatIDs, 0); status != 0 {
		return c.JSON(status, msg)
	}

	ref, err := utils.NewBookingReference()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}
	booking := &model.Booking{
		UserID:          userID,
		ShowtimeID:      st.ID,
		Status:          model.StatusConfirmed,
		TotalPriceCents: st.PriceCents * uint32(len(seatIDs)),
		Reference:       ref,
	}
	if err := h.Bookings.CreateTx(ctx, tx, booking); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}
	if err := h.Bookings.AddSeatsTx(ctx, tx, booking.ID, seatIDs); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}

	if err := tx.Commit(); err != nil {
		if repository.IsLockConflict(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "seats unavailable, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	seats, err := h.Bookings.SeatsByBooking(ctx, booking.ID)
	if err != nil {
		seats = nil
	}
	h.publishConfirmed(booking, st, seats)

	return c.JSON(http.StatusCreated, bookingResp{Booking: booking, Seats: seats})
}

// checkSeats validates seat membership and availability under the
// showtime lock.  Returns a non-zero HTTP status and response body on
// failure, 0 when the seats can be taken.
func (h *BookingHandler) checkSeats(ctx context.Context, tx *sql.Tx, st *model.Showtime, seatIDs []uint64, excludeBookingID uint64) (int, echo.Map) {
	n, err := h.Seats.CountInHallTx(ctx, tx, st.HallID, seatIDs)
	if err != nil {
		return http.StatusInternalServerError, echo.Map{"error": "query failed"}
	}
	if n != len(seatIDs) {
		return http.StatusBadRequest, echo.Map{"error": "one or more seats do not belong to this hall"}
	}
	taken, err := h.Bookings.EnsureSeatsFreeTx(ctx, tx, st.ID, seatIDs, excludeBookingID)
	if errors.Is(err, repository.ErrSeatsUnavailable) {
		return http.StatusConflict, echo.Map{"error": "seats unavailable", "seat_ids": taken}
	}
	if err != nil {
		return http.StatusInternalServerError, echo.Map{"error": "query failed"}
	}
	return 0, nil
}

// UpdateSeats handles PUT /v1/bookings/:id/seats.  Only the owner of a
// CONFIRMED booking may move it to a new seat set of the same showtime.
// The total price stays frozen even when the seat count changes.
func (h *BookingHandler) UpdateSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !seatIDsValid(req.SeatIDs) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids must be a non-empty set of unique ids"})
	}
	seatIDs := req.SeatIDs

	ctx := c.Request().Context()
	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, err := h.Bookings.GetOwnedForUpdateTx(ctx, tx, bookingID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if booking.Status != model.StatusConfirmed {
		return c.JSON(http.StatusConflict, echo.Map{"error": "only confirmed bookings can change seats"})
	}

	st, err := h.Showtimes.GetForUpdateTx(ctx, tx, booking.ShowtimeID)
	if err != nil {
		if repository.IsLockConflict(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "seats unavailable, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if status, msg := h.checkSeats(ctx, tx, st, seatIDs, booking.ID); status != 0 {
		return c.JSON(status, msg)
	}

	if err := h.Bookings.ReplaceSeatsTx(ctx, tx, booking.ID, seatIDs); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update seats failed"})
	}

	if err := tx.Commit(); err != nil {
		if repository.IsLockConflict(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "seats unavailable, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	seats, err := h.Bookings.SeatsByBooking(ctx, booking.ID)
	if err != nil {
		seats = nil
	}
	return c.JSON(http.StatusOK, bookingResp{Booking: booking, Seats: seats})
}

// UpdateStatus handles PATCH /v1/bookings/:id/status.  Owners may move
// their own bookings, admins any booking.  Transitions are validated
// against the booking lifecycle: CONFIRMED may become CANCELLED or
// COMPLETED, terminal states never change.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	next := model.BookingStatus(req.Status)
	if !next.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx := c.Request().Context()
	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, err := h.Bookings.GetByIDTx(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if booking.UserID != userID && role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
	}
	if !booking.Status.CanTransitionTo(next) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid status transition",
			"from":  booking.Status,
			"to":    next,
		})
	}
	if err := h.Bookings.UpdateStatusTx(ctx, tx, booking.ID, next); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update status failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	booking.Status = next
	return c.JSON(http.StatusOK, booking)
}

// Cancel handles DELETE /v1/bookings/:id.  Cancelling is idempotent: the
// first call flips CONFIRMED to CANCELLED, repeating it succeeds without
// changing anything.  COMPLETED bookings cannot be cancelled.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx := c.Request().Context()
	cancelled, err := h.Bookings.CancelOwned(ctx, bookingID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	if cancelled {
		return c.JSON(http.StatusOK, echo.Map{"id": bookingID, "status": model.StatusCancelled})
	}

	// Nothing matched: distinguish missing, already cancelled, completed.
	booking, err := h.Bookings.GetOwned(ctx, bookingID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if booking.Status == model.StatusCancelled {
		return c.JSON(http.StatusOK, echo.Map{"id": bookingID, "status": model.StatusCancelled})
	}
	return c.JSON(http.StatusConflict, echo.Map{"error": "completed bookings cannot be cancelled"})
}

// ListMine handles GET /v1/bookings, newest first with showtime context
// and seats.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if details == nil {
		details = []repository.BookingDetail{}
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": details})
}

// Ticket handles GET /v1/bookings/:id/ticket and streams a PNG QR code
// for a CONFIRMED booking of the caller.
func (h *BookingHandler) Ticket(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx := c.Request().Context()
	booking, err := h.Bookings.GetOwned(ctx, bookingID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if booking.Status != model.StatusConfirmed {
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket is only available for confirmed bookings"})
	}

	st, err := h.Showtimes.GetByID(ctx, booking.ShowtimeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	movie, err := h.Movies.GetByID(ctx, st.MovieID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	hall, err := h.Halls.GetByID(ctx, st.HallID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	seats, err := h.Bookings.SeatsByBooking(ctx, booking.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	png, err := service.RenderTicketQR(service.TicketPayload{
		Reference:  booking.Reference,
		MovieTitle: movie.Title,
		HallName:   hall.Name,
		StartsAt:   st.StartsAt.UTC().Format(time.RFC3339),
		SeatLabels: labels(seats),
	}, 256)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render ticket failed"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// publishConfirmed enriches and publishes the confirmation event outside
// the booking transaction; failures are logged, never surfaced.
func (h *BookingHandler) publishConfirmed(b *model.Booking, st *model.Showtime, seats []model.Seat) {
	if h.Publisher == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		EventID:         uuid.NewString(),
		BookingID:       b.ID,
		Reference:       b.Reference,
		UserID:          b.UserID,
		ShowtimeID:      st.ID,
		StartsAt:        st.StartsAt.UTC().Format(time.RFC3339),
		SeatLabels:      labels(seats),
		TotalPriceCents: b.TotalPriceCents,
		ConfirmedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if movie, err := h.Movies.GetByID(ctx, st.MovieID); err == nil {
			ev.MovieTitle = movie.Title
		}
		if hall, err := h.Halls.GetByID(ctx, st.HallID); err == nil {
			ev.HallName = hall.Name
		}
		_ = h.Publisher.PublishBookingConfirmed(ctx, ev)
	}()
}

func labels(seats []model.Seat) []string {
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		out = append(out, seatLabel(s.Row, s.Number))
	}
	return out
}
