package domain

import (
	"time"

	"github.com/google/uuid"
)

type Flight struct {
	ID             uuid.UUID
	FlightNumber   string
	Source         string
	Destination    string
	DepartureTS    time.Time
	ArrivalTS      time.Time
	TotalSeats     int
	AvailableSeats int
	PriceCents     int64
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DepartureDate is the cache-key date component, always UTC.
func (f Flight) DepartureDate() string {
	return f.DepartureTS.UTC().Format("2006-01-02")
}

// FlightUpdate carries the fields an update is allowed to touch. Pointer
// fields distinguish "not provided" from a zero value, so setting seats or
// price to zero persists.
type FlightUpdate struct {
	FlightNumber *string
	Source       *string
	Destination  *string
	DepartureTS  *time.Time
	ArrivalTS    *time.Time
	TotalSeats   *int
	PriceCents   *int64
}

// Apply merges the provided fields into f and reports whether anything changed.
func (u FlightUpdate) Apply(f *Flight) bool {
	changed := false
	if u.FlightNumber != nil && *u.FlightNumber != f.FlightNumber {
		f.FlightNumber = *u.FlightNumber
		changed = true
	}
	if u.Source != nil && *u.Source != f.Source {
		f.Source = *u.Source
		changed = true
	}
	if u.Destination != nil && *u.Destination != f.Destination {
		f.Destination = *u.Destination
		changed = true
	}
	if u.DepartureTS != nil && !u.DepartureTS.Equal(f.DepartureTS) {
		f.DepartureTS = *u.DepartureTS
		changed = true
	}
	if u.ArrivalTS != nil && !u.ArrivalTS.Equal(f.ArrivalTS) {
		f.ArrivalTS = *u.ArrivalTS
		changed = true
	}
	if u.TotalSeats != nil && *u.TotalSeats != f.TotalSeats {
		f.TotalSeats = *u.TotalSeats
		changed = true
	}
	if u.PriceCents != nil && *u.PriceCents != f.PriceCents {
		f.PriceCents = *u.PriceCents
		changed = true
	}
	return changed
}
