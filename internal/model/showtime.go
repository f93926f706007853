package model

import "time"

// Showtime is a scheduled screening of a movie in a hall.  StartsAt is
// stored in UTC.  PriceCents is the flat per-seat price for this screening.
type Showtime struct {
	ID         uint64    `json:"id"`
	MovieID    uint64    `json:"movie_id"`
	HallID     uint64    `json:"hall_id"`
	StartsAt   time.Time `json:"starts_at"`
	PriceCents uint32    `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Movie is the minimal catalog record the scheduler validates against.
// Full catalog management (metadata ingestion, search) lives outside this
// service.
type Movie struct {
	ID         uint64 `json:"id"`
	Title      string `json:"title"`
	RuntimeMin uint32 `json:"runtime_min"`
}

// Genre labels movies and drives the showtime filter options.
type Genre struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}
