package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus mirrors the booking collaborator's lifecycle. The messaging
// core only cares about completed bookings.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a customer/provider engagement owned by the booking
// collaborator. The read-side conversation listing restricts counterpart
// candidates to completed bookings.
type Booking struct {
	ID         uuid.UUID     `json:"id"`
	CustomerID uuid.UUID     `json:"customer_id"`
	ProviderID uuid.UUID     `json:"provider_id"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}
