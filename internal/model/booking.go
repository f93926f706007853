package model

import "time"

// BookingStatus is the closed set of states a booking can be in.  A booking
// is created CONFIRMED and can only move forward: CANCELLED and COMPLETED
// are terminal.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "CONFIRMED" // seats are held by this booking
	StatusCancelled BookingStatus = "CANCELLED" // released by the user; seats free again
	StatusCompleted BookingStatus = "COMPLETED" // showtime attended; kept for history
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal status
// change.  Only CONFIRMED bookings may change state; the two terminal
// states accept nothing, not even a transition to themselves.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case StatusConfirmed:
		return next == StatusCancelled || next == StatusCompleted
	case StatusCancelled, StatusCompleted:
		return false
	}
	return false
}

// Booking records a user's claim on a set of seats for one showtime.  The
// total price is computed once at creation (seat count times the showtime
// price at that moment) and never recalculated afterwards.
type Booking struct {
	ID              uint64        `json:"id"`
	UserID          uint64        `json:"user_id"`
	ShowtimeID      uint64        `json:"showtime_id"`
	Status          BookingStatus `json:"status"`
	TotalPriceCents uint32        `json:"total_price_cents"`
	Reference       string        `json:"reference"` // opaque ticket reference encoded into the QR code
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
