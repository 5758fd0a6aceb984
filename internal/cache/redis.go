package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Domenick1991/flightcore/config"
	"github.com/Domenick1991/flightcore/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TimeLayout is the stringified timestamp format used in flight hashes.
// Legacy rows may lack the offset; readers retry with an explicit +00:00.
const TimeLayout = "2006-01-02 15:04:05-07:00"

type SortKey string

const (
	SortByPrice   SortKey = "price"
	SortByFastest SortKey = "fastest"
)

// InventoryCache is a typed wrapper over the redis keys that mirror flight
// state: one hash per flight, one integer seat counter per flight, two
// ranking sorted sets per (source, destination, date) and one JSON blob per
// precomputed path set.
type InventoryCache struct {
	client *redis.Client
}

func NewInventoryCache(cfg config.RedisConfig) *InventoryCache {
	return &InventoryCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

func NewInventoryCacheWithClient(client *redis.Client) *InventoryCache {
	return &InventoryCache{client: client}
}

func (c *InventoryCache) Client() *redis.Client {
	return c.client
}

// GetAvailableSeats returns the live counter. The second return value is
// false on a cache miss, which the caller resolves by seeding from the
// authoritative store.
func (c *InventoryCache) GetAvailableSeats(ctx context.Context, flightID uuid.UUID) (int, bool, error) {
	n, err := c.client.Get(ctx, seatsKey(flightID)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// SeedAvailableSeats initializes the counter only if it is absent, so a seed
// can never clobber live reservations.
func (c *InventoryCache) SeedAvailableSeats(ctx context.Context, flightID uuid.UUID, seats int) error {
	return c.client.SetNX(ctx, seatsKey(flightID), seats, 0).Err()
}

// ReserveSeats performs a compare-and-swap decrement of the seat counter: the
// value read inside the transaction must still hold at write time. An
// interleaved writer fails the transaction and surfaces ErrConflict, which is
// never retried here.
func (c *InventoryCache) ReserveSeats(ctx context.Context, flightID uuid.UUID, qty int) error {
	seatKey := seatsKey(flightID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		available, err := tx.Get(ctx, seatKey).Int()
		if err == redis.Nil {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if available < qty {
			return domain.ErrRejectedCapacity
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.DecrBy(ctx, seatKey, int64(qty))
			pipe.HIncrBy(ctx, flightKey(flightID), "available_seats", int64(-qty))
			return nil
		})
		return err
	}, seatKey)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrConflict
	}
	return err
}

// ReleaseSeats returns qty seats to the counter and the mirrored hash field.
// Used both for compensation after a failed payment and for cancellation.
func (c *InventoryCache) ReleaseSeats(ctx context.Context, flightID uuid.UUID, qty int) error {
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrBy(ctx, seatsKey(flightID), int64(qty))
		pipe.HIncrBy(ctx, flightKey(flightID), "available_seats", int64(qty))
		return nil
	})
	return err
}

// UpsertFlight (re)writes the attribute hash and the two ranking sorted sets.
// The seat counter is written with SETNX: once present it is never reset by
// an update.
func (c *InventoryCache) UpsertFlight(ctx context.Context, f *domain.Flight) error {
	date := f.DepartureDate()
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, flightKey(f.ID), flightFields(f))
		pipe.ZAdd(ctx, searchKey(f.Source, f.Destination, date, SortByPrice), redis.Z{
			Score:  float64(f.PriceCents),
			Member: f.ID.String(),
		})
		pipe.ZAdd(ctx, searchKey(f.Source, f.Destination, date, SortByFastest), redis.Z{
			Score:  float64(f.DepartureTS.Unix()),
			Member: f.ID.String(),
		})
		pipe.SetNX(ctx, seatsKey(f.ID), f.AvailableSeats, 0)
		return nil
	})
	return err
}

// EvictFlight removes the hash, both sorted-set entries and the counter.
func (c *InventoryCache) EvictFlight(ctx context.Context, f *domain.Flight) error {
	date := f.DepartureDate()
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, flightKey(f.ID))
		pipe.ZRem(ctx, searchKey(f.Source, f.Destination, date, SortByPrice), f.ID.String())
		pipe.ZRem(ctx, searchKey(f.Source, f.Destination, date, SortByFastest), f.ID.String())
		pipe.Del(ctx, seatsKey(f.ID))
		return nil
	})
	return err
}

// RemoveFromRankings drops the flight from both sorted sets without touching
// the hash or the counter. Used when an update moves a flight to a different
// route or date; the counter must survive updates.
func (c *InventoryCache) RemoveFromRankings(ctx context.Context, f *domain.Flight) error {
	date := f.DepartureDate()
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, searchKey(f.Source, f.Destination, date, SortByPrice), f.ID.String())
		pipe.ZRem(ctx, searchKey(f.Source, f.Destination, date, SortByFastest), f.ID.String())
		return nil
	})
	return err
}

// TopFlightIDs reads the first limit members of the requested ranking set,
// ascending by score.
func (c *InventoryCache) TopFlightIDs(ctx context.Context, source, destination, date string, sort SortKey, limit int64) ([]string, error) {
	return c.client.ZRange(ctx, searchKey(source, destination, date, sort), 0, limit-1).Result()
}

// FlightRow is one flight's cached attribute hash plus its live counter.
// Attrs is empty when the flight was evicted after the ranking entry was read.
type FlightRow struct {
	ID       string
	Attrs    map[string]string
	Seats    int
	HasSeats bool
}

// FlightRows batches the hash and counter lookups for a list of ids.
func (c *InventoryCache) FlightRows(ctx context.Context, ids []string) ([]FlightRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	hashCmds := make([]*redis.MapStringStringCmd, len(ids))
	seatCmds := make([]*redis.StringCmd, len(ids))
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			hashCmds[i] = pipe.HGetAll(ctx, "flight:"+id)
			seatCmds[i] = pipe.Get(ctx, "flight_seats:"+id)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	rows := make([]FlightRow, 0, len(ids))
	for i, id := range ids {
		attrs, err := hashCmds[i].Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		row := FlightRow{ID: id, Attrs: attrs}
		if n, err := seatCmds[i].Int(); err == nil {
			row.Seats = n
			row.HasSeats = true
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GetPaths reads the precomputed itinerary entry for a (source, destination,
// date) triple. A missing key is an empty result, not an error.
func (c *InventoryCache) GetPaths(ctx context.Context, source, destination, date string) ([][]string, bool, error) {
	data, err := c.client.Get(ctx, pathKey(source, destination, date)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var paths [][]string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, false, fmt.Errorf("decode path cache %s: %w", pathKey(source, destination, date), err)
	}
	return paths, true, nil
}

// SetPaths overwrites the itinerary entry; PathResults are immutable once
// stored and superseded only by rewriting the whole key.
func (c *InventoryCache) SetPaths(ctx context.Context, source, destination, date string, paths [][]string) error {
	payload, err := json.Marshal(paths)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pathKey(source, destination, date), payload, 0).Err()
}

func flightFields(f *domain.Flight) map[string]string {
	return map[string]string{
		"id":              f.ID.String(),
		"flight_number":   f.FlightNumber,
		"source":          f.Source,
		"destination":     f.Destination,
		"departure_ts":    f.DepartureTS.UTC().Format(TimeLayout),
		"arrival_ts":      f.ArrivalTS.UTC().Format(TimeLayout),
		"total_seats":     strconv.Itoa(f.TotalSeats),
		"available_seats": strconv.Itoa(f.AvailableSeats),
		"price_cents":     strconv.FormatInt(f.PriceCents, 10),
		"version":         strconv.FormatInt(f.Version, 10),
	}
}

func flightKey(id uuid.UUID) string {
	return fmt.Sprintf("flight:%s", id)
}

func seatsKey(id uuid.UUID) string {
	return fmt.Sprintf("flight_seats:%s", id)
}

func searchKey(source, destination, date string, sort SortKey) string {
	return fmt.Sprintf("search:%s:%s:%s:%s", source, destination, date, sort)
}

func pathKey(source, destination, date string) string {
	return fmt.Sprintf("%s-%s-%s", source, destination, date)
}
