package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidplus-harvester/internal/models"
)

func TestFileStoreMissingFileIsFresh(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	now := time.Unix(1_700_036_000, 0)
	s.now = func() time.Time { return now }

	w, err := s.Load(context.Background(), 10*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), w.LastSeenEpoch)
	assert.Empty(t, w.SeenBidIDs)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := NewFileStore(path)
	ctx := context.Background()

	w := models.NewCrawlWatermark(1_700_000_100, []string{"300", "20", "1000"})
	require.NoError(t, s.Save(ctx, w))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_seen_epoch":1700000100,"seen_bid_ids":["20","300","1000"]}`, string(raw))

	loaded, err := s.Load(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_100), loaded.LastSeenEpoch)
	assert.True(t, loaded.Seen("300"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background(), time.Hour)
	require.Error(t, err)
}

func TestMemoryReportStore(t *testing.T) {
	var s MemoryReportStore
	ctx := context.Background()

	_, ok, err := s.GetReport(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetReport(ctx, models.RunReport{RunID: "r1", Matched: 2}))
	got, ok, err := s.GetReport(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, got.Matched)
}
