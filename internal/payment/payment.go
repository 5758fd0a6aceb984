package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

type Result struct {
	Status    Status
	Reference string
}

// Gateway is the payment collaborator. Latency and outcome are controlled by
// the implementation, not by the caller.
type Gateway interface {
	Charge(ctx context.Context, bookingID uuid.UUID) (Result, error)
}

// Stub stands in for a real payment provider: it sleeps for a random interval
// inside [minLatency, maxLatency] and fails with the configured probability.
// Charge is called from every reservation goroutine, so the rand.Rand is
// guarded; rand.Rand itself is not safe for concurrent use.
type Stub struct {
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand

	// ForceFailure makes every charge fail, for exercising the
	// compensation path end to end.
	ForceFailure bool
}

func NewStub(minLatency, maxLatency time.Duration, failureRate float64) *Stub {
	return &Stub{
		minLatency:  minLatency,
		maxLatency:  maxLatency,
		failureRate: failureRate,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Stub) Charge(ctx context.Context, bookingID uuid.UUID) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(s.randomDelay()):
	}

	ref := fmt.Sprintf("ref_%s", uuid.NewString())
	if s.chargeFails() {
		return Result{Status: StatusFailed, Reference: ref}, nil
	}
	return Result{Status: StatusSuccess, Reference: ref}, nil
}

func (s *Stub) randomDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxLatency <= s.minLatency {
		return s.minLatency
	}
	return s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
}

func (s *Stub) chargeFails() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ForceFailure || s.rng.Float64() < s.failureRate
}

var _ Gateway = (*Stub)(nil)
