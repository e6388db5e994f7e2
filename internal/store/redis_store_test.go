package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidplus-harvester/internal/models"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(mr.Addr(), "bidplus:watermark", time.Hour)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStoreLoadFresh(t *testing.T) {
	s, _ := newTestRedisStore(t)
	s.now = func() time.Time { return time.Unix(1_700_003_600, 0) }

	w, err := s.Load(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), w.LastSeenEpoch)
	assert.Empty(t, w.SeenBidIDs)
}

func TestRedisStoreSaveLoad(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, models.NewCrawlWatermark(42, []string{"9", "10"})))

	raw, err := mr.Get("bidplus:watermark")
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_seen_epoch":42,"seen_bid_ids":["9","10"]}`, raw)
	assert.Zero(t, mr.TTL("bidplus:watermark"))

	w, err := s.Load(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(42), w.LastSeenEpoch)
	assert.True(t, w.Seen("10"))
}

func TestRedisStoreReport(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, ok, err := s.GetReport(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetReport(ctx, models.RunReport{RunID: "abc", Downloaded: 3}))
	assert.Equal(t, time.Hour, mr.TTL("bidplus:watermark:report"))

	report, ok, err := s.GetReport(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", report.RunID)
	assert.Equal(t, 3, report.Downloaded)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	s, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set("bidplus:watermark", "not-json"))

	_, err := s.Load(context.Background(), time.Hour)
	require.Error(t, err)
}
