package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"bidplus-harvester/internal/models"
)

// RedisStore keeps the watermark and the latest run report as JSON values in Redis.
type RedisStore struct {
	client    *redis.Client
	key       string
	reportTTL time.Duration
	now       func() time.Time
}

// NewRedisStore connects to addr and stores the watermark under key.
// The last run report lives under key + ":report" and expires after reportTTL.
func NewRedisStore(addr, key string, reportTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		key:       key,
		reportTTL: reportTTL,
		now:       time.Now,
	}
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Load reads the watermark; a missing key yields a fresh watermark.
func (s *RedisStore) Load(ctx context.Context, lookback time.Duration) (models.CrawlWatermark, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fresh(s.now(), lookback), nil
		}
		return models.CrawlWatermark{}, err
	}

	var w models.CrawlWatermark
	if err := json.Unmarshal([]byte(val), &w); err != nil {
		return models.CrawlWatermark{}, err
	}
	return models.NewCrawlWatermark(w.LastSeenEpoch, w.SeenBidIDs), nil
}

// Save writes the watermark without expiry.
func (s *RedisStore) Save(ctx context.Context, w models.CrawlWatermark) error {
	payload, err := json.Marshal(w.Snapshot())
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, payload, 0).Err()
}

// SetReport stores the latest run report.
func (s *RedisStore) SetReport(ctx context.Context, report models.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key+":report", payload, s.reportTTL).Err()
}

// GetReport reads the latest run report.
func (s *RedisStore) GetReport(ctx context.Context) (models.RunReport, bool, error) {
	val, err := s.client.Get(ctx, s.key+":report").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.RunReport{}, false, nil
		}
		return models.RunReport{}, false, err
	}

	var report models.RunReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return models.RunReport{}, false, err
	}
	return report, true, nil
}
