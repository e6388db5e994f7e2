package models

import "time"

// RunReport summarizes one pipeline sweep.
type RunReport struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Pages         int       `json:"pages"`
	Scanned       int       `json:"scanned"`
	Discarded     int       `json:"discarded"`
	Matched       int       `json:"matched"`
	Downloaded    int       `json:"downloaded"`
	Failed        int       `json:"failed"`
	LastSeenEpoch int64     `json:"last_seen_epoch"`
	ManifestPath  string    `json:"manifest_path"`
}
