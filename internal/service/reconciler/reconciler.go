package reconciler

import (
	"context"
	"time"

	"github.com/Domenick1991/flightcore/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type Cache interface {
	GetAvailableSeats(ctx context.Context, flightID uuid.UUID) (int, bool, error)
}

type FlightStore interface {
	OverwriteAvailableSeats(ctx context.Context, seats map[uuid.UUID]int) error
}

// Worker pulls the cache's current seat truth into the authoritative store.
// Change events land in a bounded queue; a single goroutine owns the distinct
// pending set and flushes it on a long fixed interval, overwriting the seat
// column from the live counter and committing the whole batch at once.
//
// The worker never mutates the cache. Events live only in memory: a crash or
// a failed flush loses them. The store column is advisory; the cache is
// authoritative for "available now".
type Worker struct {
	cache    Cache
	flights  FlightStore
	queue    chan uuid.UUID
	interval time.Duration
	pending  map[uuid.UUID]struct{}
}

func NewWorker(cache Cache, flights FlightStore, queueSize int, interval time.Duration) *Worker {
	return &Worker{
		cache:    cache,
		flights:  flights,
		queue:    make(chan uuid.UUID, queueSize),
		interval: interval,
		pending:  make(map[uuid.UUID]struct{}),
	}
}

// HandleSeatUpdate is the seat_updates stream handler. The payload is a bare
// flight id. Malformed payloads are logged and skipped, never fatal.
func (w *Worker) HandleSeatUpdate(ctx context.Context, msg kafka.Message) error {
	id, err := uuid.Parse(string(msg.Value))
	if err != nil {
		log.Warn().Str("payload", string(msg.Value)).Msg("reconciler: unparseable seat update, skipping")
		return nil
	}
	w.Enqueue(id)
	return nil
}

// Enqueue is non-blocking: when the bounded queue is full the event is
// dropped and counted, keeping the interactive path unblocked.
func (w *Worker) Enqueue(flightID uuid.UUID) {
	select {
	case w.queue <- flightID:
	default:
		metrics.ReconcilerDropped.Inc()
		log.Warn().Str("flight_id", flightID.String()).Msg("reconciler: queue full, dropping seat update")
	}
}

// Run drains the queue into the pending set and flushes on the ticker. It is
// the only goroutine that touches the set, so no locking is needed.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-w.queue:
			w.pending[id] = struct{}{}
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// flush snapshots and clears the pending set, reads each id's live counter
// and overwrites the store's seat column as one batch. On failure the batch
// is rolled back by the store and the drained ids are discarded, not retried.
func (w *Worker) flush(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}
	batch := w.pending
	w.pending = make(map[uuid.UUID]struct{})

	seats := make(map[uuid.UUID]int, len(batch))
	for id := range batch {
		n, ok, err := w.cache.GetAvailableSeats(ctx, id)
		if err != nil {
			log.Error().Err(err).Msg("reconciler: counter read failed, discarding batch")
			metrics.ReconcilerFlushes.WithLabelValues("failed").Inc()
			return
		}
		if !ok {
			// Counter evicted since the event was queued; nothing to flush.
			continue
		}
		seats[id] = n
	}
	if len(seats) == 0 {
		return
	}

	if err := w.flights.OverwriteAvailableSeats(ctx, seats); err != nil {
		log.Error().Err(err).Int("size", len(seats)).Msg("reconciler: batch flush failed, discarding batch")
		metrics.ReconcilerFlushes.WithLabelValues("failed").Inc()
		return
	}
	metrics.ReconcilerFlushes.WithLabelValues("ok").Inc()
	log.Info().Int("size", len(seats)).Msg("reconciler: flushed seat counters to store")
}
