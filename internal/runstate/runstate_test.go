package runstate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"monthload/internal/domain"
)

func TestFileStoreAbsent(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "last_run.json"))

	_, err := fs.Load(context.Background())
	if !errors.Is(err, ErrAbsent) {
		t.Fatalf("Load on missing file = %v, want ErrAbsent", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "last_run.json"))
	ctx := context.Background()

	want := &domain.RunRecord{
		LastRun:      time.Date(2024, 5, 1, 3, 4, 5, 0, time.UTC),
		Status:       domain.RunSuccess,
		LastArtifact: "/data/data_20240501T030405Z_abcd1234.csv",
	}
	if err := fs.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.LastRun.Equal(want.LastRun) {
		t.Errorf("LastRun = %v, want %v", got.LastRun, want.LastRun)
	}
	if got.Status != want.Status {
		t.Errorf("Status = %q, want %q", got.Status, want.Status)
	}
	if got.LastArtifact != want.LastArtifact {
		t.Errorf("LastArtifact = %q, want %q", got.LastArtifact, want.LastArtifact)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "last_run.json"))
	ctx := context.Background()

	first := &domain.RunRecord{LastRun: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Status: domain.RunSuccess}
	second := &domain.RunRecord{LastRun: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Status: domain.RunSuccess}

	if err := fs.Save(ctx, first); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := fs.Save(ctx, second); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.LastRun.Equal(second.LastRun) {
		t.Errorf("LastRun = %v, want %v", got.LastRun, second.LastRun)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_run.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	fs := NewFileStore(path)
	_, err := fs.Load(context.Background())
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load on corrupt file = %v, want ErrCorrupt", err)
	}
	if errors.Is(err, ErrAbsent) {
		t.Error("corrupt state must not be reported as absent")
	}
}

func TestFileStoreUnknownStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_run.json")
	body := `{"last_run_timestamp":"2024-05-01T00:00:00Z","status":"maybe"}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing state file: %v", err)
	}

	fs := NewFileStore(path)
	_, err := fs.Load(context.Background())
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load with unknown status = %v, want ErrCorrupt", err)
	}
}

func TestFileStoreLeavesNoTempResidue(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(filepath.Join(dir, "last_run.json"))

	rec := &domain.RunRecord{LastRun: time.Now().UTC(), Status: domain.RunSuccess}
	if err := fs.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp residue left behind: %s", e.Name())
		}
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	if _, err := st.Load(ctx); !errors.Is(err, ErrAbsent) {
		t.Fatalf("Load on empty table = %v, want ErrAbsent", err)
	}

	want := &domain.RunRecord{
		LastRun:      time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC),
		Status:       domain.RunFailed,
		LastArtifact: "/data/data_20240715T090000Z_00ff00ff.csv",
	}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.LastRun.Equal(want.LastRun) {
		t.Errorf("LastRun = %v, want %v", got.LastRun, want.LastRun)
	}
	if got.Status != domain.RunFailed {
		t.Errorf("Status = %q, want %q", got.Status, domain.RunFailed)
	}
	if got.LastArtifact != want.LastArtifact {
		t.Errorf("LastArtifact = %q, want %q", got.LastArtifact, want.LastArtifact)
	}

	// Replace keeps a single row.
	next := &domain.RunRecord{LastRun: want.LastRun.AddDate(0, 1, 0), Status: domain.RunSuccess}
	if err := st.Save(ctx, next); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err = st.Load(ctx)
	if err != nil {
		t.Fatalf("Load after replace: %v", err)
	}
	if !got.LastRun.Equal(next.LastRun) {
		t.Errorf("LastRun after replace = %v, want %v", got.LastRun, next.LastRun)
	}
}
