package repository // repository defines data access for seats

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/movietix/cinema-booking-api/internal/model"
)

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// SeatRepo provides read-mostly access to the seat inventory.  Seats are
// written exactly once, when their hall is created; afterwards the table
// only serves lookups and membership checks.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// CreateBulkTx inserts all seats of a freshly created hall in a single
// statement inside the caller's transaction.  Passing an empty slice is a
// no-op.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (hall_id, row_num, seat_number) VALUES `
	args := make([]interface{}, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, s.HallID, s.Row, s.Number)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByHall retrieves all seats of a hall in the canonical seat-map order,
// row ascending then number ascending.  The UI relies on this ordering
// being stable.
func (r *SeatRepo) GetByHall(ctx context.Context, hallID uint64) ([]model.Seat, error) {
	const q = `SELECT id, hall_id, row_num, seat_number
	           FROM seats
	           WHERE hall_id = ?
	           ORDER BY row_num ASC, seat_number ASC`
	rows, err := r.db.QueryContext(ctx, q, hallID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.HallID, &s.Row, &s.Number); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountInHallTx returns how many of the given seat ids belong to the hall.
// The booking engine compares the count against len(seatIDs) to enforce
// that a booking only ever references seats of its showtime's hall.  Runs
// inside the caller's transaction so the check shares its snapshot.
func (r *SeatRepo) CountInHallTx(ctx context.Context, tx *sql.Tx, hallID uint64, seatIDs []uint64) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(seatIDs)), ",")
	query := `SELECT COUNT(*) FROM seats WHERE hall_id = ? AND id IN (` + placeholders + `)`
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, hallID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Dimensions derives the hall layout from its seat grid: the highest row
// index and the number of seats in the first row.  Returns ErrSeatNotFound
// when the hall has no seats (or does not exist).
func (r *SeatRepo) Dimensions(ctx context.Context, hallID uint64) (rows uint32, seatsPerRow uint32, err error) {
	const q = `SELECT COALESCE(MAX(row_num), 0),
	                  COALESCE(MAX(CASE WHEN row_num = 1 THEN seat_number ELSE 0 END), 0)
	           FROM seats WHERE hall_id = ?`
	if err = r.db.QueryRowContext(ctx, q, hallID).Scan(&rows, &seatsPerRow); err != nil {
		return 0, 0, err
	}
	if rows == 0 {
		return 0, 0, ErrSeatNotFound
	}
	return rows, seatsPerRow, nil
}
