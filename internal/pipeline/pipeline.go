// Package pipeline orchestrates one monthly run: check whether a run is
// due, extract the window since the last success, write the artifact, load
// it into the warehouse, and record the outcome. Run state is only ever
// written as the final step of an attempt, so an interrupt mid-run leaves
// the previous state intact.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"monthload/internal/artifact"
	"monthload/internal/domain"
	"monthload/internal/extract"
	"monthload/internal/runstate"
	"monthload/internal/util"
	"monthload/internal/warehouse"
)

// Outcome is the terminal state of one invocation.
type Outcome string

const (
	// OutcomeSkipped means the run was not due yet.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeCompleted means an artifact was written and loaded.
	OutcomeCompleted Outcome = "completed"
	// OutcomeCompletedEmpty means the window held no records; state still
	// advances so an empty window is not refetched every invocation.
	OutcomeCompletedEmpty Outcome = "completed-empty"
)

// Result summarises a successful invocation.
type Result struct {
	Outcome     Outcome
	ArtifactRef string
	RowsLoaded  int64
}

// Pipeline wires the run-state store, extractor, artifact writer, and
// warehouse loader into the monthly state machine.
type Pipeline struct {
	State  runstate.Store
	Source extract.Extractor
	Writer artifact.Writer
	Loader warehouse.Loader

	// Table is the warehouse target table.
	Table string
	// MaxAttempts bounds retries of transient load failures within this
	// invocation.
	MaxAttempts int
	// RetryBaseDelay is the initial backoff between load attempts.
	RetryBaseDelay time.Duration

	// Now supplies the current time; defaults to time.Now. Tests override it.
	Now func() time.Time

	Log *slog.Logger
}

// New creates a Pipeline with the given collaborators.
func New(state runstate.Store, source extract.Extractor, writer artifact.Writer, loader warehouse.Loader, table string, maxAttempts int, retryBaseDelay time.Duration) *Pipeline {
	return &Pipeline{
		State:          state,
		Source:         source,
		Writer:         writer,
		Loader:         loader,
		Table:          table,
		MaxAttempts:    maxAttempts,
		RetryBaseDelay: retryBaseDelay,
		Log:            slog.Default().With("component", "pipeline"),
	}
}

// Run executes one invocation of the state machine and returns its result.
// A nil error with OutcomeSkipped means the run was not due; any failure
// after the due check is returned to the caller with run state's timestamp
// left where it was.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	now := time.Now().UTC()
	if p.Now != nil {
		now = p.Now().UTC()
	}

	prev, err := p.State.Load(ctx)
	var last time.Time
	switch {
	case err == nil:
		last = prev.LastRun
	case errors.Is(err, runstate.ErrAbsent):
		// First run.
	default:
		return nil, fmt.Errorf("loading run state: %w", err)
	}

	if !util.IsDue(last, now) {
		p.Log.Info("monthly run not due yet",
			"last_run", last,
			"next_due", util.NextDue(last),
		)
		return &Result{Outcome: OutcomeSkipped}, nil
	}

	p.Log.Info("starting monthly run", "source", p.Source.Name(), "since", last)

	records, err := p.Source.Extract(ctx, last)
	if err != nil {
		return nil, fmt.Errorf("extracting since %s: %w", last.Format(time.RFC3339), err)
	}

	if len(records) == 0 {
		// Nothing to persist or load; advance the window so the next
		// invocation does not refetch it.
		rec := &domain.RunRecord{LastRun: now, Status: domain.RunSuccess}
		if err := p.State.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("recording empty run: %w", err)
		}
		p.Log.Info("window empty, run state advanced", "run_time", now)
		return &Result{Outcome: OutcomeCompletedEmpty}, nil
	}

	path, err := p.Writer.Write(ctx, records, now)
	if err != nil {
		p.recordFailure(ctx, last, "")
		return nil, fmt.Errorf("writing artifact: %w", err)
	}
	p.Log.Info("artifact written", "path", path, "records", len(records))

	var rows int64
	loadErr := util.RetryIf(ctx, p.MaxAttempts, p.RetryBaseDelay, func() error {
		var err error
		rows, err = p.Loader.Load(ctx, path, p.Table)
		if err != nil {
			p.Log.Warn("load attempt failed", "err", err)
		}
		return err
	}, warehouse.IsRetryable)
	if loadErr != nil {
		p.recordFailure(ctx, last, path)
		return nil, fmt.Errorf("loading artifact: %w", loadErr)
	}

	rec := &domain.RunRecord{LastRun: now, Status: domain.RunSuccess, LastArtifact: path}
	if err := p.State.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("recording successful run: %w", err)
	}

	p.Log.Info("monthly run completed", "rows", rows, "artifact", path)
	return &Result{Outcome: OutcomeCompleted, ArtifactRef: path, RowsLoaded: rows}, nil
}

// recordFailure marks the attempt failed while preserving the previous
// last-run timestamp, so the next invocation retries the same window. Save
// errors here are logged, not returned: the original failure is what the
// caller needs to see.
func (p *Pipeline) recordFailure(ctx context.Context, last time.Time, artifactRef string) {
	rec := &domain.RunRecord{LastRun: last, Status: domain.RunFailed, LastArtifact: artifactRef}
	if err := p.State.Save(ctx, rec); err != nil {
		p.Log.Error("recording failed run", "err", err)
	}
}
