package models

import "time"

// BidRecord is one normalized listing entry. Records with an empty ID are unusable.
type BidRecord struct {
	ID          string         `json:"b_id"`
	BidNumber   string         `json:"bid_number"`
	Title       string         `json:"title"`
	BidType     int64          `json:"bid_type"`
	EvalType    int64          `json:"eval_type"`
	StartMillis int64          `json:"start_ms"`
	EndMillis   int64          `json:"end_ms"`
	PageContent string         `json:"-"`
	Raw         map[string]any `json:"-"`
}

// StartEpoch returns the bid start in epoch seconds, 0 when unknown.
func (b BidRecord) StartEpoch() int64 {
	return b.StartMillis / 1000
}

// StartUTC formats the start timestamp as RFC3339 UTC, or "" when unknown.
func (b BidRecord) StartUTC() string {
	return millisToUTC(b.StartMillis)
}

// EndUTC formats the end timestamp as RFC3339 UTC, or "" when unknown.
func (b BidRecord) EndUTC() string {
	return millisToUTC(b.EndMillis)
}

func millisToUTC(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// RouteTag classifies which document endpoint serves a bid.
type RouteTag string

const (
	RouteDefault     RouteTag = "default"
	RouteDirect      RouteTag = "direct"
	RouteRA          RouteTag = "ra"
	RouteRASchedules RouteTag = "ra_schedules"
)
