package pathfinder

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Domenick1991/flightcore/internal/domain"
	"github.com/Domenick1991/flightcore/internal/metrics"
	"github.com/Domenick1991/flightcore/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

type Cache interface {
	SetPaths(ctx context.Context, source, destination, date string, paths [][]string) error
}

// Engine precomputes top-K cheapest itineraries. The full workload is the
// cross-product of every date and every airport pair; each combination runs
// independently against the immutable graph snapshot, so the fan-out is a
// plain worker pool with results collected over a channel.
type Engine struct {
	flights repository.FlightRepository
	cache   Cache
	workers int
	maxHops int
	topK    int
}

func NewEngine(flights repository.FlightRepository, cache Cache, workers, maxHops, topK int) *Engine {
	return &Engine{flights: flights, cache: cache, workers: workers, maxHops: maxHops, topK: topK}
}

type combination struct {
	date        string
	source      string
	destination string
}

type result struct {
	combo combination
	paths [][]string
}

type snapshot struct {
	graphs   map[string]*Graph
	airports []string
}

func buildSnapshot(flights []domain.Flight) snapshot {
	seen := make(map[string]bool)
	var airports []string
	for _, f := range flights {
		for _, a := range []string{f.Source, f.Destination} {
			if !seen[a] {
				seen[a] = true
				airports = append(airports, a)
			}
		}
	}
	sort.Strings(airports)
	return snapshot{graphs: BuildGraphs(flights), airports: airports}
}

func (s snapshot) combinations() []combination {
	dates := make([]string, 0, len(s.graphs))
	for date := range s.graphs {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var combos []combination
	for _, date := range dates {
		for _, src := range s.airports {
			for _, dst := range s.airports {
				if src == dst {
					continue
				}
				combos = append(combos, combination{date: date, source: src, destination: dst})
			}
		}
	}
	return combos
}

// RunFull recomputes every combination from one store snapshot.
func (e *Engine) RunFull(ctx context.Context) error {
	flights, err := e.flights.List(ctx)
	if err != nil {
		metrics.PrecomputeRuns.WithLabelValues("full", "failed").Inc()
		return fmt.Errorf("load flights: %w", err)
	}
	snap := buildSnapshot(flights)
	combos := snap.combinations()
	log.Info().Int("combinations", len(combos)).Int("workers", e.workers).Msg("pathfinder: full precompute started")

	jobs := make(chan combination)
	results := make(chan result)

	workers, wctx := errgroup.WithContext(ctx)
	for i := 0; i < e.workers; i++ {
		workers.Go(func() error {
			for combo := range jobs {
				paths := e.compute(snap, combo)
				if len(paths) == 0 {
					continue
				}
				select {
				case results <- result{combo: combo, paths: paths}:
				case <-wctx.Done():
					return wctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for _, combo := range combos {
			select {
			case jobs <- combo:
			case <-wctx.Done():
				return
			}
		}
	}()

	writeErr := make(chan error, 1)
	go func() {
		var firstErr error
		for res := range results {
			if err := e.cache.SetPaths(ctx, res.combo.source, res.combo.destination, res.combo.date, res.paths); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		writeErr <- firstErr
	}()

	err = workers.Wait()
	close(results)
	if werr := <-writeErr; err == nil {
		err = werr
	}
	if err != nil {
		metrics.PrecomputeRuns.WithLabelValues("full", "failed").Inc()
		return err
	}
	metrics.PrecomputeRuns.WithLabelValues("full", "ok").Inc()
	log.Info().Msg("pathfinder: full precompute finished")
	return nil
}

// RunOne recomputes a single (date, source, destination) combination, the
// incremental mode triggered by a flight-change event.
func (e *Engine) RunOne(ctx context.Context, source, destination, date string) error {
	flights, err := e.flights.List(ctx)
	if err != nil {
		metrics.PrecomputeRuns.WithLabelValues("single", "failed").Inc()
		return fmt.Errorf("load flights: %w", err)
	}
	snap := buildSnapshot(flights)
	paths := e.compute(snap, combination{date: date, source: source, destination: destination})
	if len(paths) == 0 {
		metrics.PrecomputeRuns.WithLabelValues("single", "ok").Inc()
		return nil
	}
	if err := e.cache.SetPaths(ctx, source, destination, date, paths); err != nil {
		metrics.PrecomputeRuns.WithLabelValues("single", "failed").Inc()
		return err
	}
	metrics.PrecomputeRuns.WithLabelValues("single", "ok").Inc()
	return nil
}

// HandleFlightUpdate consumes the flight_updates stream. Failures are logged
// and contained: precomputation is best effort and must never block bookings.
func (e *Engine) HandleFlightUpdate(ctx context.Context, msg kafka.Message) error {
	var event struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
		Date        string `json:"date"`
	}
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Warn().Str("payload", string(msg.Value)).Msg("pathfinder: unparseable flight update, skipping")
		return nil
	}
	if err := e.RunOne(ctx, event.Source, event.Destination, event.Date); err != nil {
		log.Error().Err(err).Str("source", event.Source).Str("destination", event.Destination).Str("date", event.Date).Msg("pathfinder: incremental recompute failed")
	}
	return nil
}

// compute enumerates all simple paths within the hop bound, sorts ascending
// by summed price (ties broken on the id sequence for stable output) and
// truncates to the top K id sequences.
func (e *Engine) compute(snap snapshot, combo combination) [][]string {
	g, ok := snap.graphs[combo.date]
	if !ok {
		return nil
	}
	paths := g.Paths(combo.source, combo.destination, e.maxHops)
	if len(paths) == 0 {
		return nil
	}

	sort.Slice(paths, func(i, j int) bool {
		pi, pj := pathPrice(paths[i]), pathPrice(paths[j])
		if pi != pj {
			return pi < pj
		}
		return pathKey(paths[i]) < pathKey(paths[j])
	})
	if len(paths) > e.topK {
		paths = paths[:e.topK]
	}

	out := make([][]string, 0, len(paths))
	for _, path := range paths {
		ids := make([]string, 0, len(path))
		for _, f := range path {
			ids = append(ids, f.ID.String())
		}
		out = append(out, ids)
	}
	return out
}

func pathKey(path []domain.Flight) string {
	ids := make([]string, 0, len(path))
	for _, f := range path {
		ids = append(ids, f.ID.String())
	}
	return strings.Join(ids, ",")
}
