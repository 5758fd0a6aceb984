package flights

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/flightcore/internal/domain"
	"github.com/Domenick1991/flightcore/internal/kafka"
	"github.com/Domenick1991/flightcore/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type FlightUseCase interface {
	Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error)
	Update(ctx context.Context, id uuid.UUID, update domain.FlightUpdate) (*domain.Flight, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Flight, error)
	ListAirports(ctx context.Context) ([]string, error)
}

type Cache interface {
	UpsertFlight(ctx context.Context, f *domain.Flight) error
	EvictFlight(ctx context.Context, f *domain.Flight) error
	RemoveFromRankings(ctx context.Context, f *domain.Flight) error
}

type Producer interface {
	PublishFlightUpdate(ctx context.Context, topic string, event kafka.FlightUpdateEvent) error
}

// FlightService is the authoritative-store write path for the catalog. Every
// write drives the cache hooks, so anything that mutates flights outside the
// reservation flow (admin edits, bulk importers) goes through here.
type FlightService struct {
	repo               repository.FlightRepository
	cache              Cache
	producer           Producer
	flightUpdatesTopic string
}

type CreateFlightInput struct {
	FlightNumber string
	Source       string
	Destination  string
	DepartureTS  time.Time
	ArrivalTS    time.Time
	TotalSeats   int
	PriceCents   int64
}

func NewFlightService(repo repository.FlightRepository, cache Cache, producer Producer, flightUpdatesTopic string) *FlightService {
	return &FlightService{repo: repo, cache: cache, producer: producer, flightUpdatesTopic: flightUpdatesTopic}
}

func (s *FlightService) Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error) {
	if input.Source == "" || input.Destination == "" {
		return nil, errors.New("source and destination are required")
	}
	if input.Source == input.Destination {
		return nil, errors.New("source and destination must differ")
	}
	if input.TotalSeats < 0 {
		return nil, errors.New("total seats must not be negative")
	}

	flight := &domain.Flight{
		FlightNumber:   input.FlightNumber,
		Source:         input.Source,
		Destination:    input.Destination,
		DepartureTS:    input.DepartureTS,
		ArrivalTS:      input.ArrivalTS,
		TotalSeats:     input.TotalSeats,
		AvailableSeats: input.TotalSeats,
		PriceCents:     input.PriceCents,
	}
	if err := s.repo.Create(ctx, flight); err != nil {
		return nil, err
	}
	if err := s.cache.UpsertFlight(ctx, flight); err != nil {
		log.Error().Err(err).Str("flight_id", flight.ID.String()).Msg("catalog: cache upsert failed")
	}
	s.publishUpdate(ctx, flight)
	return flight, nil
}

// Update merges only the allowed fields. Fields not provided keep their
// value; provided zero values persist. The seat counter is never reset here.
func (s *FlightService) Update(ctx context.Context, id uuid.UUID, update domain.FlightUpdate) (*domain.Flight, error) {
	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *flight
	if !update.Apply(flight) {
		return flight, nil
	}
	if flight.Source == flight.Destination {
		return nil, errors.New("source and destination must differ")
	}

	if err := s.repo.Update(ctx, flight); err != nil {
		return nil, err
	}

	routeMoved := before.Source != flight.Source ||
		before.Destination != flight.Destination ||
		before.DepartureDate() != flight.DepartureDate()
	if routeMoved {
		if err := s.cache.RemoveFromRankings(ctx, &before); err != nil {
			log.Error().Err(err).Str("flight_id", id.String()).Msg("catalog: stale ranking removal failed")
		}
	}
	if err := s.cache.UpsertFlight(ctx, flight); err != nil {
		log.Error().Err(err).Str("flight_id", id.String()).Msg("catalog: cache upsert failed")
	}

	if routeMoved {
		s.publishUpdate(ctx, &before)
	}
	s.publishUpdate(ctx, flight)
	return flight, nil
}

func (s *FlightService) Delete(ctx context.Context, id uuid.UUID) error {
	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.EvictFlight(ctx, flight); err != nil {
		log.Error().Err(err).Str("flight_id", id.String()).Msg("catalog: cache evict failed")
	}
	s.publishUpdate(ctx, flight)
	return nil
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	return s.repo.List(ctx)
}

func (s *FlightService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) ListAirports(ctx context.Context) ([]string, error) {
	return s.repo.ListAirports(ctx)
}

// publishUpdate triggers incremental path precomputation for the flight's
// (source, destination, date) combination. Best effort.
func (s *FlightService) publishUpdate(ctx context.Context, f *domain.Flight) {
	if s.producer == nil || s.flightUpdatesTopic == "" {
		return
	}
	event := kafka.FlightUpdateEvent{
		Source:      f.Source,
		Destination: f.Destination,
		Date:        f.DepartureDate(),
	}
	if err := s.producer.PublishFlightUpdate(ctx, s.flightUpdatesTopic, event); err != nil {
		log.Warn().Err(err).Str("flight_id", f.ID.String()).Msg("catalog: publish flight update failed")
	}
}

var _ FlightUseCase = (*FlightService)(nil)
