package repository // repository defines data access for movies and genres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/movietix/cinema-booking-api/internal/model"
)

// ErrMovieNotFound is returned when a movie lookup yields no rows.
var ErrMovieNotFound = errors.New("movie not found")

// MovieRepo provides access to the movie catalog and its genres.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// GetByID fetches a single movie or ErrMovieNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	const q = `SELECT id, title, runtime_min FROM movies WHERE id = ?`
	var m model.Movie
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Title, &m.RuntimeMin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ExistsTx reports whether the movie exists, inside the caller's
// transaction.  Used by the scheduler before inserting a showtime.
func (r *MovieRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	const q = `SELECT 1 FROM movies WHERE id = ?`
	var one int
	err := tx.QueryRowContext(ctx, q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GenresWithShowtimes lists genres that have at least one scheduled
// showtime, for the browse filter dropdown.
func (r *MovieRepo) GenresWithShowtimes(ctx context.Context) ([]model.Genre, error) {
	const q = `SELECT DISTINCT g.id, g.name
	           FROM genres g
	           JOIN movie_genres mg ON mg.genre_id = g.id
	           JOIN showtimes s     ON s.movie_id = mg.movie_id
	           ORDER BY g.name ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var genres []model.Genre
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return genres, nil
}
