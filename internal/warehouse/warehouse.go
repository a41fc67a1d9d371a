// Package warehouse bulk-loads an artifact file into the target warehouse
// table. A load either commits every row in the artifact or none.
package warehouse

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a load failure for the orchestrator's retry policy.
type ErrorKind string

const (
	// KindAuth means the credentials were rejected. Fatal, never retried.
	KindAuth ErrorKind = "auth"
	// KindConnectivity means a transient network/availability failure.
	// Eligible for bounded in-process retry.
	KindConnectivity ErrorKind = "connectivity"
	// KindSchema means the target table or columns do not match the
	// artifact. Fatal, surfaced to the operator.
	KindSchema ErrorKind = "schema"
	// KindInternal covers everything else. Fatal.
	KindInternal ErrorKind = "internal"
)

// LoadError wraps a load failure with its classification.
type LoadError struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("warehouse load (%s): %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *LoadError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a load failure worth retrying within
// the same invocation. Only connectivity failures qualify.
func IsRetryable(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Kind == KindConnectivity
}

// Loader ingests one artifact file into a warehouse table. The connection is
// scoped to the call: acquired, used for the single bulk-load, and released
// on every exit path.
type Loader interface {
	// Load ingests the artifact at path into table and returns the number
	// of rows loaded. Errors are *LoadError values.
	Load(ctx context.Context, path, table string) (int64, error)
}
