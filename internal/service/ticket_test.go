package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketPayloadString(t *testing.T) {
	p := TicketPayload{
		Reference:  "BK-A1B2C3D4E5",
		MovieTitle: "Heat",
		HallName:   "Hall 1",
		StartsAt:   "2026-09-10T20:00:00Z",
		SeatLabels: []string{"A1", "A2"},
	}
	assert.Equal(t, "MOVIETIX|BK-A1B2C3D4E5|Heat|Hall 1|2026-09-10T20:00:00Z|A1,A2", p.String())
}

func TestRenderTicketQR(t *testing.T) {
	png, err := RenderTicketQR(TicketPayload{Reference: "BK-A1B2C3D4E5"}, 0)
	require.NoError(t, err)
	require.True(t, len(png) > 8)
	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
