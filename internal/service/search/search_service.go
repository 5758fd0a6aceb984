package search

import (
	"context"
	"strconv"
	"time"

	"github.com/Domenick1991/flightcore/internal/cache"
	"github.com/Domenick1991/flightcore/internal/domain"
	"github.com/Domenick1991/flightcore/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type SearchUseCase interface {
	RankedSearch(ctx context.Context, source, destination, date string, sort cache.SortKey, limit int64) ([]domain.Flight, error)
	PathSearch(ctx context.Context, source, destination, date string) ([]Itinerary, error)
}

type Cache interface {
	TopFlightIDs(ctx context.Context, source, destination, date string, sort cache.SortKey, limit int64) ([]string, error)
	FlightRows(ctx context.Context, ids []string) ([]cache.FlightRow, error)
	GetPaths(ctx context.Context, source, destination, date string) ([][]string, bool, error)
}

// Itinerary is one purchasable trip option: connecting flights in travel
// order plus their summed price.
type Itinerary struct {
	Flights         []domain.Flight `json:"flights"`
	TotalPriceCents int64           `json:"total_price_cents"`
}

type SearchService struct {
	cache   Cache
	flights repository.FlightRepository
}

func NewSearchService(c Cache, flights repository.FlightRepository) *SearchService {
	return &SearchService{cache: c, flights: flights}
}

// RankedSearch reads the top entries of the requested ranking set and then
// batches the attribute and counter lookups. Entries whose hash is empty were
// evicted after the ranking reference was written; they are skipped silently
// rather than treated as errors.
func (s *SearchService) RankedSearch(ctx context.Context, source, destination, date string, sort cache.SortKey, limit int64) ([]domain.Flight, error) {
	ids, err := s.cache.TopFlightIDs(ctx, source, destination, date, sort, limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.cache.FlightRows(ctx, ids)
	if err != nil {
		return nil, err
	}

	flights := make([]domain.Flight, 0, len(rows))
	for _, row := range rows {
		if len(row.Attrs) == 0 {
			continue
		}
		flight, ok := parseFlightRow(row)
		if !ok {
			continue
		}
		flights = append(flights, flight)
	}
	return flights, nil
}

func parseFlightRow(row cache.FlightRow) (domain.Flight, bool) {
	var f domain.Flight

	id, err := uuid.Parse(row.Attrs["id"])
	if err != nil {
		log.Debug().Str("id", row.ID).Msg("ranked search: unparseable flight id, dropping entry")
		return f, false
	}
	departure, ok := parseTimestamp(row.Attrs["departure_ts"])
	if !ok {
		log.Debug().Str("id", row.ID).Str("departure_ts", row.Attrs["departure_ts"]).Msg("ranked search: unparseable departure, dropping entry")
		return f, false
	}
	arrival, ok := parseTimestamp(row.Attrs["arrival_ts"])
	if !ok {
		log.Debug().Str("id", row.ID).Str("arrival_ts", row.Attrs["arrival_ts"]).Msg("ranked search: unparseable arrival, dropping entry")
		return f, false
	}

	f.ID = id
	f.FlightNumber = row.Attrs["flight_number"]
	f.Source = row.Attrs["source"]
	f.Destination = row.Attrs["destination"]
	f.DepartureTS = departure
	f.ArrivalTS = arrival
	f.TotalSeats, _ = strconv.Atoi(row.Attrs["total_seats"])
	f.PriceCents, _ = strconv.ParseInt(row.Attrs["price_cents"], 10, 64)
	f.Version, _ = strconv.ParseInt(row.Attrs["version"], 10, 64)
	if row.HasSeats {
		f.AvailableSeats = row.Seats
	} else {
		f.AvailableSeats, _ = strconv.Atoi(row.Attrs["available_seats"])
	}
	return f, true
}

// parseTimestamp is strict, with one retry that appends an explicit UTC
// offset. That covers legacy rows written without an offset; anything else is
// dropped by the caller.
func parseTimestamp(value string) (time.Time, bool) {
	if t, err := time.Parse(cache.TimeLayout, value); err == nil {
		return t, true
	}
	if t, err := time.Parse(cache.TimeLayout, value+"+00:00"); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// PathSearch resolves the precomputed itinerary entry for the composite key.
// A missing entry is an empty result. Every flight of a path must resolve
// against the authoritative store for the path to be included; partial
// resolution excludes that single path silently.
func (s *SearchService) PathSearch(ctx context.Context, source, destination, date string) ([]Itinerary, error) {
	paths, ok, err := s.cache.GetPaths(ctx, source, destination, date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Itinerary{}, nil
	}

	results := make([]Itinerary, 0, len(paths))
	for _, pathIDs := range paths {
		ids := make([]uuid.UUID, 0, len(pathIDs))
		for _, raw := range pathIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				ids = nil
				break
			}
			ids = append(ids, id)
		}
		if ids == nil {
			continue
		}

		flights, err := s.flights.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(flights) != len(ids) {
			continue
		}

		// Re-order into the stored sequence rather than trusting the
		// store's return order.
		byID := make(map[uuid.UUID]domain.Flight, len(flights))
		for _, f := range flights {
			byID[f.ID] = f
		}
		ordered := make([]domain.Flight, 0, len(ids))
		var total int64
		complete := true
		for _, id := range ids {
			f, found := byID[id]
			if !found {
				complete = false
				break
			}
			ordered = append(ordered, f)
			total += f.PriceCents
		}
		if !complete {
			continue
		}
		results = append(results, Itinerary{Flights: ordered, TotalPriceCents: total})
	}
	return results, nil
}

var _ SearchUseCase = (*SearchService)(nil)
