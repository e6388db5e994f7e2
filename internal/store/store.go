// Package store persists the crawl watermark between runs.
package store

import (
	"context"
	"time"

	"bidplus-harvester/internal/models"
)

// WatermarkStore loads and saves the crawl cursor. Implementations assume a
// single writer; callers serialize runs.
type WatermarkStore interface {
	// Load returns the persisted watermark, or a fresh one positioned
	// lookback before now when nothing has been saved yet.
	Load(ctx context.Context, lookback time.Duration) (models.CrawlWatermark, error)
	Save(ctx context.Context, w models.CrawlWatermark) error
}

// ReportStore keeps the most recent run report for status endpoints.
type ReportStore interface {
	SetReport(ctx context.Context, report models.RunReport) error
	GetReport(ctx context.Context) (models.RunReport, bool, error)
}

func fresh(now time.Time, lookback time.Duration) models.CrawlWatermark {
	return models.NewCrawlWatermark(now.Add(-lookback).Unix(), nil)
}
