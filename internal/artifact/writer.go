// Package artifact serializes an extracted record set to a durable,
// timestamped file. Artifacts are immutable once visible and are never
// deleted by this system; retention is an external concern.
package artifact

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"monthload/internal/domain"
)

// Writer serializes records into a new artifact file under a configured
// root directory and returns the artifact's path. Every invocation produces
// a unique name, and the file is either fully visible with complete content
// or not visible at all.
type Writer interface {
	// Format returns the artifact format identifier ("csv" or "parquet").
	Format() string

	// Write persists records as one artifact stamped with runTime.
	Write(ctx context.Context, records []domain.DataRecord, runTime time.Time) (string, error)
}

// csvHeader is the artifact column layout, one DataRecord field per column.
var csvHeader = []string{"id", "value", "captured_at"}

// fileName builds the artifact name: run timestamp at second resolution plus
// a short uuid suffix so two runs in the same second cannot collide.
func fileName(runTime time.Time, ext string) string {
	stamp := runTime.UTC().Format("20060102T150405Z")
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("data_%s_%s.%s", stamp, suffix, ext)
}

// Compile-time interface check.
var _ Writer = (*CSVWriter)(nil)

// CSVWriter writes artifacts as UTF-8 CSV with a header row. The file is
// written under a temporary name and renamed into place once complete, so a
// crash mid-write never leaves a partial artifact visible.
type CSVWriter struct {
	Dir string
}

// NewCSVWriter creates a CSVWriter rooted at dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{Dir: dir}
}

// Format returns "csv".
func (w *CSVWriter) Format() string { return "csv" }

// Write serializes records to a new CSV artifact and returns its path.
func (w *CSVWriter) Write(ctx context.Context, records []domain.DataRecord, runTime time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact dir: %w", err)
	}

	final := filepath.Join(w.Dir, fileName(runTime, "csv"))
	tmp := final + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating temp artifact: %w", err)
	}

	cw := csv.NewWriter(f)
	writeErr := cw.Write(csvHeader)
	if writeErr == nil {
		for _, r := range records {
			if writeErr = cw.Write([]string{r.ID, r.Value, r.CapturedAt.UTC().Format(time.RFC3339Nano)}); writeErr != nil {
				break
			}
		}
	}
	if writeErr == nil {
		cw.Flush()
		writeErr = cw.Error()
	}
	if writeErr == nil {
		writeErr = f.Sync()
	}

	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("writing csv artifact: %w", writeErr)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("renaming artifact into place: %w", err)
	}
	return final, nil
}
