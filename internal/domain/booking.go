package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusFailed    BookingStatus = "FAILED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// CanTransitionTo enforces the booking state machine: PENDING may move to
// CONFIRMED or FAILED, CONFIRMED may move to CANCELLED, FAILED and CANCELLED
// are terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusFailed
	case BookingStatusConfirmed:
		return next == BookingStatusCancelled
	default:
		return false
	}
}

type Booking struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	FlightID   uuid.UUID
	Seats      int
	Status     BookingStatus
	PaymentRef string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
