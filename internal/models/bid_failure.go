package models

import "time"

// Failure stages reported on the failures topic.
const (
	StageResolve  = "resolve"
	StageDownload = "download"
	StageDetail   = "detail"
)

// BidFailure captures a bid-level failure for the failures topic.
type BidFailure struct {
	RunID    string    `json:"run_id"`
	BidID    string    `json:"b_id"`
	URL      string    `json:"url"`
	Stage    string    `json:"stage"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
