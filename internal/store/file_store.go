package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"bidplus-harvester/internal/models"
)

// FileStore keeps the watermark in a JSON file. Saves replace the file
// atomically via a temp file in the same directory.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the watermark file; a missing file yields a fresh watermark.
func (s *FileStore) Load(_ context.Context, lookback time.Duration) (models.CrawlWatermark, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fresh(s.now(), lookback), nil
		}
		return models.CrawlWatermark{}, fmt.Errorf("read state %s: %w", s.path, err)
	}
	var w models.CrawlWatermark
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.CrawlWatermark{}, fmt.Errorf("decode state %s: %w", s.path, err)
	}
	return models.NewCrawlWatermark(w.LastSeenEpoch, w.SeenBidIDs), nil
}

// Save writes the watermark with ids sorted numerically.
func (s *FileStore) Save(_ context.Context, w models.CrawlWatermark) error {
	payload, err := json.MarshalIndent(w.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(payload, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state %s: %w", s.path, err)
	}
	return nil
}
