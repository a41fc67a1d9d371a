// Package domain defines the core types shared across the monthload
// pipeline: extracted records, run-state bookkeeping, and warehouse
// credentials.
package domain

import "time"

// ---------------------------------------------------------------------------
// Extracted data
// ---------------------------------------------------------------------------

// DataRecord is a single extracted row. A run produces an ordered sequence
// of DataRecord (possibly empty); order is preserved through the artifact.
type DataRecord struct {
	ID         string
	Value      string
	CapturedAt time.Time
}

// ---------------------------------------------------------------------------
// Run state
// ---------------------------------------------------------------------------

// RunStatus describes the outcome recorded for a pipeline attempt.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// RunRecord is the durable record of the most recent pipeline attempt.
// LastRun only ever advances when Status is RunSuccess; a failed attempt
// keeps the previous LastRun so the next invocation retries the same window.
type RunRecord struct {
	LastRun      time.Time `json:"last_run_timestamp"`
	Status       RunStatus `json:"status"`
	LastArtifact string    `json:"last_artifact_ref,omitempty"`
}

// ---------------------------------------------------------------------------
// Warehouse credentials
// ---------------------------------------------------------------------------

// Credentials holds Snowflake connection parameters. They are collected from
// configuration once at startup and must never be persisted or logged.
type Credentials struct {
	User      string
	Password  string
	Account   string
	Warehouse string
	Database  string
	Schema    string
	Role      string
}

// Complete reports whether the required fields (user, password, account) are
// all present. Warehouse, database, schema, and role have server-side or
// configured defaults.
func (c Credentials) Complete() bool {
	return c.User != "" && c.Password != "" && c.Account != ""
}
