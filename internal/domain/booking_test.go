package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Status values must match the bookings table's CHECK constraint; the
// relationship queries filter on BookingCompleted verbatim.
func TestBookingStatusValues(t *testing.T) {
	req := require.New(t)

	req.Equal("pending", string(BookingPending))
	req.Equal("confirmed", string(BookingConfirmed))
	req.Equal("completed", string(BookingCompleted))
	req.Equal("cancelled", string(BookingCancelled))
}

func TestBookingJSONStatus(t *testing.T) {
	req := require.New(t)

	b := Booking{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		ProviderID: uuid.New(),
		Status:     BookingCompleted,
		CreatedAt:  time.Now().UTC(),
	}

	raw, err := json.Marshal(b)
	req.NoError(err)

	var decoded map[string]any
	req.NoError(json.Unmarshal(raw, &decoded))
	req.Equal("completed", decoded["status"])
	req.Equal(b.CustomerID.String(), decoded["customer_id"])
}
