package model

import "time"

// Hall is a screening room.  Its seat set is provisioned once when the hall
// is created and never changes afterwards; seats outlive every booking.
type Hall struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Seat is a fixed position inside a hall.  (HallID, Row, Number) is unique.
type Seat struct {
	ID     uint64 `json:"id"`
	HallID uint64 `json:"hall_id"`
	Row    uint32 `json:"row"`
	Number uint32 `json:"number"`
}
