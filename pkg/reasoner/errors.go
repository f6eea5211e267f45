package reasoner

import (
	"context"
	"errors"
	"fmt"
)

// Client-visible failure kinds. Every error returned by a Reasoner, after
// Convert, matches at most one of them with errors.Is.
var (
	ErrTimeout       = errors.New("reasoner: operation timed out")
	ErrInterrupted   = errors.New("reasoner: operation interrupted")
	ErrInconsistent  = errors.New("reasoner: knowledge base is inconsistent")
	ErrUnknownEntity = errors.New("reasoner: unknown entity")
	ErrNotInProfile  = errors.New("reasoner: statement outside the supported profile")
	ErrDisposed      = errors.New("reasoner: disposed")
)

var kinds = []error{ErrTimeout, ErrInterrupted, ErrInconsistent, ErrUnknownEntity, ErrNotInProfile, ErrDisposed}

// Convert maps foreign errors onto the reasoner error kinds. Errors that
// already carry a kind, and nil, are returned unchanged. Context deadline
// and cancellation become ErrTimeout and ErrInterrupted; anything else is
// returned as is.
func Convert(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return err
}

// Kind returns the failure kind err matches, or nil.
func Kind(err error) error {
	err = Convert(err)
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// CheckContext returns the converted context error, if any.
func CheckContext(ctx context.Context) error {
	return Convert(ctx.Err())
}
