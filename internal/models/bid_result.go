package models

import "time"

// BidResult is the payload written to the results topic.
type BidResult struct {
	RunID string `json:"run_id"`
	Page  int    `json:"page"`
	ManifestEntry
	PublishedAt time.Time `json:"published_at"`
}
