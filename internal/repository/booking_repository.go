package repository // repository defines data access for bookings

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/movietix/cinema-booking-api/internal/model"
)

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")

// BookingRepo provides access to bookings and their seat assignments.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so handlers can begin transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// OccupiedSeatIDsTx returns the seat ids held by CONFIRMED bookings of the
// showtime.  excludeBookingID skips one booking's own seats, which lets a
// seat update treat the booking's current seats as free (0 to exclude
// nothing).  Must run under the showtime's row lock so the snapshot cannot
// change before the caller inserts.
func (r *BookingRepo) OccupiedSeatIDsTx(ctx context.Context, tx *sql.Tx, showtimeID, excludeBookingID uint64) (map[uint64]struct{}, error) {
	const q = `SELECT bs.seat_id FROM booking_seats bs
	           JOIN bookings b ON b.id = bs.booking_id
	           WHERE b.showtime_id = ? AND b.status = 'CONFIRMED' AND b.id <> ?`
	rows, err := tx.QueryContext(ctx, q, showtimeID, excludeBookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	occupied := make(map[uint64]struct{})
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		occupied[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return occupied, nil
}

// EnsureSeatsFreeTx reports which of the requested seats are already held
// by another CONFIRMED booking on the showtime.  When any are, the
// offending seat ids come back together with ErrSeatsUnavailable so the
// caller can tell the client exactly which seats to drop.
func (r *BookingRepo) EnsureSeatsFreeTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatIDs []uint64, excludeBookingID uint64) ([]uint64, error) {
	occupied, err := r.OccupiedSeatIDsTx(ctx, tx, showtimeID, excludeBookingID)
	if err != nil {
		return nil, err
	}
	var taken []uint64
	for _, id := range seatIDs {
		if _, ok := occupied[id]; ok {
			taken = append(taken, id)
		}
	}
	if len(taken) > 0 {
		return taken, ErrSeatsUnavailable
	}
	return nil, nil
}

// OccupiedSeatIDs is the lock-free variant used by read-only seat map
// queries.  The snapshot may be stale by the time the client books, which
// the booking path tolerates by re-checking under lock.
func (r *BookingRepo) OccupiedSeatIDs(ctx context.Context, showtimeID uint64) (map[uint64]struct{}, error) {
	const q = `SELECT bs.seat_id FROM booking_seats bs
	           JOIN bookings b ON b.id = bs.booking_id
	           WHERE b.showtime_id = ? AND b.status = 'CONFIRMED'`
	rows, err := r.db.QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	occupied := make(map[uint64]struct{})
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		occupied[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return occupied, nil
}

// CreateTx inserts a booking inside the caller's transaction and fills in
// its generated id and timestamps.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, showtime_id, status, total_price_cents, reference)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.ShowtimeID, b.Status, b.TotalPriceCents, b.Reference)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// AddSeatsTx attaches seats to a booking in a single insert.
func (r *BookingRepo) AddSeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, seat_id) VALUES `
	args := make([]interface{}, 0, len(seatIDs)*2)
	for i, id := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, bookingID, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ReplaceSeatsTx swaps a booking's seat set for a new one.
func (r *BookingRepo) ReplaceSeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64, seatIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM booking_seats WHERE booking_id = ?`, bookingID); err != nil {
		return err
	}
	return r.AddSeatsTx(ctx, tx, bookingID, seatIDs)
}

// GetByIDTx fetches a booking with a row lock inside the caller's
// transaction, for status and seat updates.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, showtime_id, status, total_price_cents, reference, created_at, updated_at
	           FROM bookings WHERE id = ? FOR UPDATE`
	var b model.Booking
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.ShowtimeID, &b.Status, &b.TotalPriceCents, &b.Reference, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetOwnedForUpdateTx locks and loads a booking, verifying ownership.
// Returns ErrBookingNotFound when absent and ErrForbidden when the
// booking belongs to a different user.
func (r *BookingRepo) GetOwnedForUpdateTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (*model.Booking, error) {
	b, err := r.GetByIDTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}

// UpdateStatusTx writes a booking's new status inside the caller's
// transaction.  Transition legality is checked by the caller.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, id)
	return err
}

// CancelOwned flips a CONFIRMED booking owned by userID to CANCELLED and
// reports whether any row changed.  The status predicate in the WHERE
// clause makes the operation idempotent: a second cancel matches nothing.
func (r *BookingRepo) CancelOwned(ctx context.Context, bookingID, userID uint64) (bool, error) {
	const q = `UPDATE bookings SET status = 'CANCELLED'
	           WHERE id = ? AND user_id = ? AND status = 'CONFIRMED'`
	res, err := r.db.ExecContext(ctx, q, bookingID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// BookingDetail is a booking joined with its showtime context and seats,
// ready for the "my bookings" listing.
type BookingDetail struct {
	ID              uint64              `json:"id"`
	Status          model.BookingStatus `json:"status"`
	TotalPriceCents uint32              `json:"total_price_cents"`
	Reference       string              `json:"reference"`
	ShowtimeID      uint64              `json:"showtime_id"`
	StartsAt        time.Time           `json:"starts_at"`
	MovieTitle      string              `json:"movie_title"`
	HallName        string              `json:"hall_name"`
	CreatedAt       time.Time           `json:"created_at"`
	Seats           []model.Seat        `json:"seats"`
}

// ListByUser returns the user's bookings newest first, each with its
// showtime context and seats.  Seats arrive from a second query and are
// folded in via an index map to avoid one query per booking.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.status, b.total_price_cents, b.reference,
	                  s.id, s.starts_at, m.title, h.name, b.created_at
	           FROM bookings b
	           JOIN showtimes s ON s.id = b.showtime_id
	           JOIN movies m    ON m.id = s.movie_id
	           JOIN halls h     ON h.id = s.hall_id
	           WHERE b.user_id = ?
	           ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []BookingDetail
	index := make(map[uint64]int)
	var ids []uint64
	for rows.Next() {
		var d BookingDetail
		if err := rows.Scan(&d.ID, &d.Status, &d.TotalPriceCents, &d.Reference,
			&d.ShowtimeID, &d.StartsAt, &d.MovieTitle, &d.HallName, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Seats = []model.Seat{}
		index[d.ID] = len(details)
		details = append(details, d)
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	seatQ := `SELECT bs.booking_id, se.id, se.hall_id, se.row_num, se.seat_number
	          FROM booking_seats bs
	          JOIN seats se ON se.id = bs.seat_id
	          WHERE bs.booking_id IN (` + placeholders + `)
	          ORDER BY se.row_num ASC, se.seat_number ASC`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	seatRows, err := r.db.QueryContext(ctx, seatQ, args...)
	if err != nil {
		return nil, err
	}
	defer seatRows.Close()
	for seatRows.Next() {
		var bookingID uint64
		var s model.Seat
		if err := seatRows.Scan(&bookingID, &s.ID, &s.HallID, &s.Row, &s.Number); err != nil {
			return nil, err
		}
		if i, ok := index[bookingID]; ok {
			details[i].Seats = append(details[i].Seats, s)
		}
	}
	if err := seatRows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// SeatsByBookingTx returns the booking's current seat ids inside the
// caller's transaction.
func (r *BookingRepo) SeatsByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT seat_id FROM booking_seats WHERE booking_id = ?`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// SeatsByBooking returns the booking's seats with their positions, for
// responses and ticket rendering.
func (r *BookingRepo) SeatsByBooking(ctx context.Context, bookingID uint64) ([]model.Seat, error) {
	const q = `SELECT se.id, se.hall_id, se.row_num, se.seat_number
	           FROM booking_seats bs
	           JOIN seats se ON se.id = bs.seat_id
	           WHERE bs.booking_id = ?
	           ORDER BY se.row_num ASC, se.seat_number ASC`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.HallID, &s.Row, &s.Number); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// GetOwned fetches a booking only if it belongs to userID, for the ticket
// endpoint.  Missing and foreign bookings are indistinguishable to the
// caller, both surface as ErrBookingNotFound.
func (r *BookingRepo) GetOwned(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, showtime_id, status, total_price_cents, reference, created_at, updated_at
	           FROM bookings WHERE id = ? AND user_id = ?`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, bookingID, userID).Scan(
		&b.ID, &b.UserID, &b.ShowtimeID, &b.Status, &b.TotalPriceCents, &b.Reference, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
