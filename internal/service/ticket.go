package service

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// TicketPayload is what ends up encoded in a ticket's QR code.  Gate
// scanners only need the reference; the rest lets a human read the code.
type TicketPayload struct {
	Reference  string
	MovieTitle string
	HallName   string
	StartsAt   string
	SeatLabels []string
}

// String renders the payload as the pipe-separated text embedded in the
// QR image.
func (t TicketPayload) String() string {
	return fmt.Sprintf("MOVIETIX|%s|%s|%s|%s|%s",
		t.Reference, t.MovieTitle, t.HallName, t.StartsAt, strings.Join(t.SeatLabels, ","))
}

// RenderTicketQR encodes the payload into a PNG QR code.  Medium error
// correction is enough for on-screen scanning.
func RenderTicketQR(t TicketPayload, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(t.String(), qrcode.Medium, size)
}
