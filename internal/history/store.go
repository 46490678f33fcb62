// Package history persists per-zone run history.
package history

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gpellegrini/irrigo/internal/model"
)

// Store is the durable key-value persistence boundary for run history.
// Load returns (nil, nil) when no record exists yet, which is normal on
// first run.
type Store interface {
	Load() (*model.HistoryRecord, error)
	Save(model.HistoryRecord) error
}

// FileStore keeps the history record as a versioned JSON blob on disk,
// rewritten in full on every save.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (*model.HistoryRecord, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read %s: %w", s.path, err)
	}

	var rec model.HistoryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("history: invalid record in %s: %w", s.path, err)
	}
	if rec.Version != model.HistoryVersion {
		log.Printf("history: ignoring record with version %d (want %d)", rec.Version, model.HistoryVersion)
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) Save(rec model.HistoryRecord) error {
	rec.Version = model.HistoryVersion
	rec.Key = model.HistoryKey

	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("history: mkdir %s: %w", dir, err)
		}
	}

	// Write-then-rename keeps the blob intact on a crashed write.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("history: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("history: rename %s: %w", tmp, err)
	}
	return nil
}
