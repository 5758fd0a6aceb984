package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightcore/internal/domain"
	"github.com/Domenick1991/flightcore/internal/metrics"
	"github.com/Domenick1991/flightcore/internal/payment"
	"github.com/Domenick1991/flightcore/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ReservationUseCase interface {
	Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID, requesterID uuid.UUID) (*domain.Booking, error)
	ListBookings(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
}

type Cache interface {
	GetAvailableSeats(ctx context.Context, flightID uuid.UUID) (int, bool, error)
	SeedAvailableSeats(ctx context.Context, flightID uuid.UUID, seats int) error
	ReserveSeats(ctx context.Context, flightID uuid.UUID, qty int) error
	ReleaseSeats(ctx context.Context, flightID uuid.UUID, qty int) error
}

type Lock interface {
	Acquire(ctx context.Context, flightID uuid.UUID) (string, error)
	Release(ctx context.Context, flightID uuid.UUID, token string) error
}

type Producer interface {
	PublishSeatUpdate(ctx context.Context, topic, flightID string) error
}

type ReservationService struct {
	bookings         repository.BookingRepository
	flights          repository.FlightRepository
	cache            Cache
	locks            Lock
	payments         payment.Gateway
	producer         Producer
	seatUpdatesTopic string
}

type ReserveInput struct {
	FlightID uuid.UUID
	UserID   uuid.UUID
	Seats    int
}

func NewReservationService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	cache Cache,
	locks Lock,
	payments payment.Gateway,
	producer Producer,
	seatUpdatesTopic string,
) *ReservationService {
	return &ReservationService{
		bookings:         bookings,
		flights:          flights,
		cache:            cache,
		locks:            locks,
		payments:         payments,
		producer:         producer,
		seatUpdatesTopic: seatUpdatesTopic,
	}
}

// Reserve runs the booking protocol under a per-flight lease lock: read the
// live counter (seeding it from the authoritative store on a miss), CAS-
// decrement it, persist a PENDING intent, charge the payment collaborator,
// then confirm or compensate. The counter decrement and the intent insert are
// two independent writes; correctness on the failure paths rests on the
// compensating increment, never on a cross-store transaction.
func (s *ReservationService) Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error) {
	if input.Seats <= 0 {
		return nil, errors.New("seat quantity must be positive")
	}
	if input.UserID == uuid.Nil {
		return nil, errors.New("user id is required")
	}

	token, err := s.locks.Acquire(ctx, input.FlightID)
	if err != nil {
		if errors.Is(err, domain.ErrLockTimeout) {
			metrics.ReservationOutcomes.WithLabelValues("lock_timeout").Inc()
		}
		return nil, err
	}
	defer func() {
		if err := s.locks.Release(ctx, input.FlightID, token); err != nil {
			log.Warn().Err(err).Str("flight_id", input.FlightID.String()).Msg("release reservation lock")
		}
	}()

	if err := s.ensureCounter(ctx, input.FlightID); err != nil {
		return nil, err
	}

	if err := s.cache.ReserveSeats(ctx, input.FlightID, input.Seats); err != nil {
		switch {
		case errors.Is(err, domain.ErrRejectedCapacity):
			metrics.ReservationOutcomes.WithLabelValues("rejected_capacity").Inc()
		case errors.Is(err, domain.ErrConflict):
			metrics.ReservationOutcomes.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}

	booking := &domain.Booking{
		UserID:   input.UserID,
		FlightID: input.FlightID,
		Seats:    input.Seats,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		// The intent was never persisted, so the only record of the
		// reservation is the counter decrement. Hand the seats back.
		s.compensate(ctx, input.FlightID, input.Seats)
		metrics.ReservationOutcomes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create booking intent: %w", err)
	}

	result, err := s.payments.Charge(ctx, booking.ID)
	if err != nil || result.Status != payment.StatusSuccess {
		updated, updErr := s.bookings.UpdateStatus(ctx, booking.ID, domain.BookingStatusPending, domain.BookingStatusFailed)
		if updErr != nil {
			log.Error().Err(updErr).Str("booking_id", booking.ID.String()).Msg("mark booking failed")
			updated = booking
			updated.Status = domain.BookingStatusFailed
		}
		// The authoritative seat column was never decremented, so only the
		// cache is compensated here.
		s.compensate(ctx, input.FlightID, input.Seats)
		metrics.ReservationOutcomes.WithLabelValues("failed").Inc()
		if err != nil {
			return updated, fmt.Errorf("charge payment: %w", err)
		}
		return updated, domain.ErrUpstreamFailure
	}

	updated, err := s.bookings.Confirm(ctx, booking.ID, result.Reference)
	if err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}
	if err := s.producer.PublishSeatUpdate(ctx, s.seatUpdatesTopic, input.FlightID.String()); err != nil {
		log.Warn().Err(err).Str("flight_id", input.FlightID.String()).Msg("publish seat update")
	}
	metrics.ReservationOutcomes.WithLabelValues("confirmed").Inc()
	return updated, nil
}

// ensureCounter lazily initializes the cache counter from the authoritative
// store (cache-aside). NotFound only when the flight is absent from both.
func (s *ReservationService) ensureCounter(ctx context.Context, flightID uuid.UUID) error {
	_, ok, err := s.cache.GetAvailableSeats(ctx, flightID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return err
	}
	return s.cache.SeedAvailableSeats(ctx, flightID, flight.AvailableSeats)
}

func (s *ReservationService) compensate(ctx context.Context, flightID uuid.UUID, qty int) {
	if err := s.cache.ReleaseSeats(ctx, flightID, qty); err != nil {
		log.Error().Err(err).Str("flight_id", flightID.String()).Int("qty", qty).Msg("compensating seat release failed")
	}
}

// Cancel is permitted only for the booking's owner and only from CONFIRMED.
// It is the one path where cache and store move together: the cancelled seats
// were confirmed, so both copies owe them back and no compensation ambiguity
// exists.
func (s *ReservationService) Cancel(ctx context.Context, bookingID, requesterID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != requesterID {
		return nil, domain.Forbidden(domain.ReasonNotOwner)
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil, cancelForbidden(booking.Status)
	}

	// The transition is guarded at the write: if another caller moved the
	// booking between our read and this update, no row matches and the seats
	// are not credited a second time.
	updated, err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusConfirmed, domain.BookingStatusCancelled)
	if errors.Is(err, domain.ErrNotFound) {
		current, rerr := s.bookings.GetByID(ctx, bookingID)
		if rerr != nil {
			return nil, rerr
		}
		return nil, cancelForbidden(current.Status)
	}
	if err != nil {
		return nil, err
	}
	if err := s.cache.ReleaseSeats(ctx, booking.FlightID, booking.Seats); err != nil {
		return nil, fmt.Errorf("release cancelled seats in cache: %w", err)
	}
	if err := s.flights.AddAvailableSeats(ctx, booking.FlightID, booking.Seats); err != nil {
		return nil, fmt.Errorf("release cancelled seats in store: %w", err)
	}
	return updated, nil
}

// cancelForbidden maps a non-cancellable status to its Forbidden sub-reason.
func cancelForbidden(status domain.BookingStatus) error {
	switch status {
	case domain.BookingStatusCancelled:
		return domain.Forbidden(domain.ReasonAlreadyCancelled)
	case domain.BookingStatusPending:
		return domain.Forbidden(domain.ReasonCannotCancelPending)
	case domain.BookingStatusFailed:
		return domain.Forbidden(domain.ReasonCannotCancelFailed)
	}
	return domain.ErrConflict
}

func (s *ReservationService) ListBookings(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

var _ ReservationUseCase = (*ReservationService)(nil)
