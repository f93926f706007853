package repository // repository defines data access for showtimes

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/movietix/cinema-booking-api/internal/model"
)

// ErrShowtimeNotFound is returned when a showtime lookup yields no rows.
var ErrShowtimeNotFound = errors.New("showtime not found")

// conflictWindow is the exclusivity margin around a showtime's start.  Two
// showtimes in the same hall may not start within this window of each
// other.
const conflictWindow = 30 * time.Minute

// ShowtimeRepo provides access to the showtime schedule.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

// DB exposes the underlying handle so handlers can begin transactions.
func (r *ShowtimeRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a showtime inside the caller's transaction and fills in
// its generated id and timestamps.
func (r *ShowtimeRepo) CreateTx(ctx context.Context, tx *sql.Tx, st *model.Showtime) error {
	const q = `INSERT INTO showtimes (movie_id, hall_id, starts_at, price_cents) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, st.MovieID, st.HallID, st.StartsAt, st.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	st.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM showtimes WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, st.ID).Scan(&st.CreatedAt, &st.UpdatedAt)
}

// GetByID fetches a single showtime or ErrShowtimeNotFound.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	const q = `SELECT id, movie_id, hall_id, starts_at, price_cents, created_at, updated_at
	           FROM showtimes WHERE id = ?`
	var st model.Showtime
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&st.ID, &st.MovieID, &st.HallID, &st.StartsAt, &st.PriceCents, &st.CreatedAt, &st.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowtimeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// GetForUpdateTx fetches a showtime with a row lock inside the caller's
// transaction.  Seat-occupancy reads and booking writes for this showtime
// happen under this lock, which serializes racing bookings without
// locking the whole table.
func (r *ShowtimeRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
	const q = `SELECT id, movie_id, hall_id, starts_at, price_cents, created_at, updated_at
	           FROM showtimes WHERE id = ? FOR UPDATE`
	var st model.Showtime
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&st.ID, &st.MovieID, &st.HallID, &st.StartsAt, &st.PriceCents, &st.CreatedAt, &st.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowtimeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// CheckConflictTx returns ErrScheduleConflict when another showtime in the
// same hall starts within the exclusivity window of startsAt.  excludeID
// skips the showtime being updated (0 when creating).  Must run under the
// hall's row lock so two racing schedulers cannot both see zero conflicts.
func (r *ShowtimeRepo) CheckConflictTx(ctx context.Context, tx *sql.Tx, hallID uint64, startsAt time.Time, excludeID uint64) error {
	const q = `SELECT COUNT(*) FROM showtimes
	           WHERE hall_id = ? AND id <> ? AND starts_at BETWEEN ? AND ?`
	var n int
	err := tx.QueryRowContext(ctx, q,
		hallID, excludeID,
		startsAt.Add(-conflictWindow), startsAt.Add(conflictWindow),
	).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrScheduleConflict
	}
	return nil
}

// UpdateTx rewrites a showtime's schedulable fields inside the caller's
// transaction.
func (r *ShowtimeRepo) UpdateTx(ctx context.Context, tx *sql.Tx, st *model.Showtime) error {
	const q = `UPDATE showtimes SET movie_id = ?, hall_id = ?, starts_at = ?, price_cents = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, st.MovieID, st.HallID, st.StartsAt, st.PriceCents, st.ID)
	return err
}

// DeleteTx removes a showtime together with every booking that references
// it.  Child rows go first so the foreign keys never dangle.
func (r *ShowtimeRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const delSeats = `DELETE bs FROM booking_seats bs
	                  JOIN bookings b ON b.id = bs.booking_id
	                  WHERE b.showtime_id = ?`
	if _, err := tx.ExecContext(ctx, delSeats, id); err != nil {
		return err
	}
	const delBookings = `DELETE FROM bookings WHERE showtime_id = ?`
	if _, err := tx.ExecContext(ctx, delBookings, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM showtimes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShowtimeNotFound
	}
	return nil
}

// ListFilter narrows the grouped showtime listing.  Zero values mean "no
// constraint" for that field.
type ListFilter struct {
	Date     string // calendar day, YYYY-MM-DD
	TimeFrom string // inclusive lower bound on start time of day, HH:MM
	TimeTo   string // inclusive upper bound on start time of day, HH:MM
	GenreID  uint64
	MovieID  uint64
}

// ShowtimeListing is one row of the grouped browse view: a showtime with
// its movie and hall context plus live availability.
type ShowtimeListing struct {
	ID             uint64    `json:"id"`
	MovieID        uint64    `json:"movie_id"`
	MovieTitle     string    `json:"movie_title"`
	HallID         uint64    `json:"hall_id"`
	HallName       string    `json:"hall_name"`
	StartsAt       time.Time `json:"starts_at"`
	PriceCents     uint32    `json:"price_cents"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
}

// ListForBrowse returns upcoming showtimes matching the filter, ordered by
// movie then start time so the handler can group them per movie in one
// pass.  Availability counts only seats held by CONFIRMED bookings.
func (r *ShowtimeRepo) ListForBrowse(ctx context.Context, f ListFilter) ([]ShowtimeListing, error) {
	query := `SELECT s.id, s.movie_id, m.title, s.hall_id, h.name, s.starts_at, s.price_cents,
	              (SELECT COUNT(*) FROM seats se WHERE se.hall_id = s.hall_id) AS total_seats,
	              (SELECT COUNT(*) FROM seats se WHERE se.hall_id = s.hall_id) -
	              (SELECT COUNT(*) FROM booking_seats bs
	               JOIN bookings b ON b.id = bs.booking_id
	               WHERE b.showtime_id = s.id AND b.status = 'CONFIRMED') AS available_seats
	          FROM showtimes s
	          JOIN movies m ON m.id = s.movie_id
	          JOIN halls h  ON h.id = s.hall_id
	          WHERE s.starts_at >= NOW()`
	var args []interface{}
	if f.Date != "" {
		query += ` AND DATE(s.starts_at) = ?`
		args = append(args, f.Date)
	}
	if f.TimeFrom != "" {
		query += ` AND TIME(s.starts_at) >= ?`
		args = append(args, f.TimeFrom+":00")
	}
	if f.TimeTo != "" {
		query += ` AND TIME(s.starts_at) <= ?`
		args = append(args, f.TimeTo+":59")
	}
	if f.GenreID != 0 {
		query += ` AND EXISTS (SELECT 1 FROM movie_genres mg WHERE mg.movie_id = s.movie_id AND mg.genre_id = ?)`
		args = append(args, f.GenreID)
	}
	if f.MovieID != 0 {
		query += ` AND s.movie_id = ?`
		args = append(args, f.MovieID)
	}
	query += ` ORDER BY m.title ASC, s.starts_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var listings []ShowtimeListing
	for rows.Next() {
		var l ShowtimeListing
		if err := rows.Scan(&l.ID, &l.MovieID, &l.MovieTitle, &l.HallID, &l.HallName,
			&l.StartsAt, &l.PriceCents, &l.TotalSeats, &l.AvailableSeats); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

// DistinctDates lists the calendar days that have upcoming showtimes, as
// YYYY-MM-DD strings, for the browse filter dropdown.
func (r *ShowtimeRepo) DistinctDates(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT DATE_FORMAT(starts_at, '%Y-%m-%d')
	           FROM showtimes WHERE starts_at >= NOW()
	           ORDER BY 1 ASC`
	return r.queryStrings(ctx, q)
}

// DistinctTimes lists the start times of day of upcoming showtimes, as
// HH:MM strings.
func (r *ShowtimeRepo) DistinctTimes(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT DATE_FORMAT(starts_at, '%H:%i')
	           FROM showtimes WHERE starts_at >= NOW()
	           ORDER BY 1 ASC`
	return r.queryStrings(ctx, q)
}

func (r *ShowtimeRepo) queryStrings(ctx context.Context, q string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
