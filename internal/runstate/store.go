// Package runstate persists the record of the last pipeline run. The store
// gates the monthly cadence: the orchestrator reads it once at startup and
// writes it once as the final step of an attempted run.
package runstate

import (
	"context"
	"errors"

	"monthload/internal/domain"
)

// ErrAbsent is returned by Load when no prior run has been recorded. It is
// the legitimate initial condition, distinct from a corrupted store.
var ErrAbsent = errors.New("run state: no prior run recorded")

// ErrCorrupt is returned (wrapped, with the decode cause) when the state
// medium exists but cannot be read back. Callers must treat this as fatal
// rather than guessing a default timestamp.
var ErrCorrupt = errors.New("run state: corrupt")

// Store persists a single RunRecord. Implementations must make Save atomic:
// a crash mid-save leaves either the previous record or the new one, never a
// torn write. Concurrent writers are out of scope; the loader runs as a
// single process.
type Store interface {
	// Load returns the recorded run, ErrAbsent when none exists, or an
	// error wrapping ErrCorrupt when the medium cannot be decoded.
	Load(ctx context.Context) (*domain.RunRecord, error)

	// Save atomically replaces the recorded run.
	Save(ctx context.Context, rec *domain.RunRecord) error
}
