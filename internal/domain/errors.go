package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the flight or booking is absent from both stores.
	ErrNotFound = errors.New("not found")
	// ErrRejectedCapacity means the flight had fewer seats than requested.
	ErrRejectedCapacity = errors.New("not enough seats available")
	// ErrConflict is an optimistic-concurrency collision. It is never retried
	// internally; the caller must re-invoke.
	ErrConflict = errors.New("seat availability changed, please try again")
	// ErrLockTimeout means the coordination lock was not acquired in time.
	ErrLockTimeout = errors.New("could not acquire lock")
	// ErrForbidden is an illegal booking-state transition or ownership
	// violation; the concrete reason travels in ForbiddenError.
	ErrForbidden = errors.New("forbidden")
	// ErrUpstreamFailure means the payment collaborator reported failure.
	// The booking is recorded FAILED and the seats are compensated, so this
	// is an outcome, not a hard error.
	ErrUpstreamFailure = errors.New("payment failed")
)

type ForbiddenReason string

const (
	ReasonAlreadyCancelled    ForbiddenReason = "booking is already cancelled"
	ReasonCannotCancelPending ForbiddenReason = "cannot cancel a pending booking"
	ReasonCannotCancelFailed  ForbiddenReason = "cannot cancel a failed booking"
	ReasonNotOwner            ForbiddenReason = "not authorized to cancel this booking"
)

type ForbiddenError struct {
	Reason ForbiddenReason
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

func Forbidden(reason ForbiddenReason) error {
	return &ForbiddenError{Reason: reason}
}
