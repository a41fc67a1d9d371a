package runstate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"monthload/internal/domain"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists the run record as a single JSON file. Saves go through
// a temp file in the same directory followed by a rename, so a partially
// written record is never visible under the final name.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads and decodes the state file.
func (s *FileStore) Load(_ context.Context) (*domain.RunRecord, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAbsent
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCorrupt, s.Path, err)
	}

	var rec domain.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrCorrupt, s.Path, err)
	}
	if rec.Status != domain.RunSuccess && rec.Status != domain.RunFailed {
		return nil, fmt.Errorf("%w: %s has unknown status %q", ErrCorrupt, s.Path, rec.Status)
	}
	return &rec, nil
}

// Save writes the record to a temp file and renames it into place.
func (s *FileStore) Save(_ context.Context, rec *domain.RunRecord) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".last_run-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming state file into place: %w", err)
	}
	return nil
}
