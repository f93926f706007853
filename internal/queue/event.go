// Package queue defines message payloads exchanged over the message broker
// and the background consumer that processes them.
package queue

// BookingConfirmedEvent is published after a booking commits.  It carries
// enough context for downstream consumers (notifications, analytics) to
// act without querying the primary database.  EventID makes redeliveries
// detectable.
type BookingConfirmedEvent struct {
	EventID         string   `json:"event_id"`
	BookingID       uint64   `json:"booking_id"`
	Reference       string   `json:"reference"`
	UserID          uint64   `json:"user_id"`
	ShowtimeID      uint64   `json:"showtime_id"`
	MovieTitle      string   `json:"movie_title"`
	HallName        string   `json:"hall_name"`
	StartsAt        string   `json:"starts_at"`
	SeatLabels      []string `json:"seats"`
	TotalPriceCents uint32   `json:"total_price_cents"`
	ConfirmedAt     string   `json:"confirmed_at"`
}
