package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"monthload/internal/domain"
)

// Compile-time interface check.
var _ Writer = (*ParquetWriter)(nil)

// recordRow is the Parquet schema for one extracted record.
type recordRow struct {
	ID         string `parquet:"id"`
	Value      string `parquet:"value"`
	CapturedAt int64  `parquet:"captured_at,timestamp(millisecond)"` // Unix ms
}

// ParquetWriter writes artifacts as Parquet files with the same naming and
// atomicity rules as the CSV writer.
type ParquetWriter struct {
	Dir string
}

// NewParquetWriter creates a ParquetWriter rooted at dir.
func NewParquetWriter(dir string) *ParquetWriter {
	return &ParquetWriter{Dir: dir}
}

// Format returns "parquet".
func (w *ParquetWriter) Format() string { return "parquet" }

// Write serializes records to a new Parquet artifact and returns its path.
func (w *ParquetWriter) Write(ctx context.Context, records []domain.DataRecord, runTime time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact dir: %w", err)
	}

	rows := make([]recordRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, recordRow{
			ID:         r.ID,
			Value:      r.Value,
			CapturedAt: r.CapturedAt.UTC().UnixMilli(),
		})
	}

	final := filepath.Join(w.Dir, fileName(runTime, "parquet"))
	tmp := final + ".tmp"

	if err := parquet.WriteFile(tmp, rows); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("writing parquet artifact: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("renaming artifact into place: %w", err)
	}
	return final, nil
}

// ReadParquet reads back a Parquet artifact's records. Used by tests and
// ad-hoc inspection; the warehouse loader stages the file as-is.
func ReadParquet(path string) ([]domain.DataRecord, error) {
	rows, err := parquet.ReadFile[recordRow](path)
	if err != nil {
		return nil, fmt.Errorf("reading parquet artifact: %w", err)
	}

	records := make([]domain.DataRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, domain.DataRecord{
			ID:         r.ID,
			Value:      r.Value,
			CapturedAt: time.UnixMilli(r.CapturedAt).UTC(),
		})
	}
	return records, nil
}
