package postgres

import (
	"database/sql"

	"github.com/google/uuid"

	"servly-chat-server/internal/domain"
)

// BookingRepository reads booking relationships. The messaging core only
// consumes completed bookings; booking CRUD itself belongs to the booking
// collaborator.
type BookingRepository struct {
	DB *sql.DB
}

// NewBookingRepository creates a new BookingRepository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{DB: db}
}

// CompletedCounterparts returns the distinct participants the given
// participant shares a completed booking with, on either side of the
// booking.
func (r *BookingRepository) CompletedCounterparts(participantID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT CASE WHEN customer_id = $1 THEN provider_id ELSE customer_id END
		FROM bookings
		WHERE (customer_id = $1 OR provider_id = $1) AND status = $2
	`
	rows, err := r.DB.Query(query, participantID, string(domain.BookingCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counterparts []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		counterparts = append(counterparts, id)
	}
	return counterparts, rows.Err()
}

// HasCompletedBooking checks whether the two participants share a completed
// booking, in either direction.
func (r *BookingRepository) HasCompletedBooking(a, b uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE status = $3
			  AND ((customer_id = $1 AND provider_id = $2) OR (customer_id = $2 AND provider_id = $1))
		)
	`
	err := r.DB.QueryRow(query, a, b, string(domain.BookingCompleted)).Scan(&exists)
	return exists, err
}
