package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"errors"

	"github.com/movietix/cinema-booking-api/internal/model"
)

// ErrHallNotFound is returned when a hall lookup yields no rows.
var ErrHallNotFound = errors.New("hall not found")

// HallRepo provides persistence for halls.  Hall rows double as the lock
// anchor for showtime scheduling: LockTx takes a row lock on the hall so
// that the conflict-window check and the showtime insert behave as one
// atomic step per hall.
type HallRepo struct {
	db *sql.DB
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo { return &HallRepo{db: db} }

// DB exposes the underlying handle so handlers can begin transactions
// spanning multiple repositories.
func (r *HallRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a hall within the provided transaction and populates the
// generated ID and timestamp fields.  Seats are provisioned separately (and
// only once) by SeatRepo.CreateBulkTx in the same transaction.
func (r *HallRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.Hall) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO halls (name) VALUES (?)`, h.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	const sel = `SELECT id, name, created_at, updated_at FROM halls WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, h.ID).Scan(&h.ID, &h.Name, &h.CreatedAt, &h.UpdatedAt)
}

// GetByID retrieves a hall by id, returning ErrHallNotFound when absent.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
	const q = `SELECT id, name, created_at, updated_at FROM halls WHERE id = ?`
	var h model.Hall
	err := r.db.QueryRowContext(ctx, q, id).Scan(&h.ID, &h.Name, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHallNotFound
		}
		return nil, err
	}
	return &h, nil
}

// LockTx loads a hall by id inside the transaction while taking an
// exclusive row lock on it.  Every scheduling mutation for a hall funnels
// through this lock, so two concurrent creates for the same hall serialize
// and the loser sees the winner's showtime in its conflict check.  Returns
// ErrHallNotFound when the hall does not exist.
func (r *HallRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Hall, error) {
	const q = `SELECT id, name, created_at, updated_at FROM halls WHERE id = ? FOR UPDATE`
	var h model.Hall
	err := tx.QueryRowContext(ctx, q, id).Scan(&h.ID, &h.Name, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHallNotFound
		}
		return nil, err
	}
	return &h, nil
}

// List returns all halls ordered by name together with their seat counts.
func (r *HallRepo) List(ctx context.Context) ([]HallSummary, error) {
	const q = `SELECT h.id, h.name, COUNT(s.id)
	           FROM halls h
	           LEFT JOIN seats s ON s.hall_id = h.id
	           GROUP BY h.id, h.name
	           ORDER BY h.name ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []HallSummary
	for rows.Next() {
		var hs HallSummary
		if err := rows.Scan(&hs.ID, &hs.Name, &hs.TotalSeats); err != nil {
			return nil, err
		}
		result = append(result, hs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// HallSummary is the basic hall listing entry.
type HallSummary struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	TotalSeats uint32 `json:"total_seats"`
}
