package pipeline

import "bidplus-harvester/internal/models"

// runState is the mutable context of one sweep.
type runState struct {
	report    models.RunReport
	watermark *models.CrawlWatermark
	manifest  models.RunManifest
	documents []string

	// preEpoch is the watermark epoch loaded at run start; eligibility is
	// judged against it for the whole sweep.
	preEpoch int64
	// newestMatched is the largest start epoch among matched bids.
	newestMatched int64
}

func (rs *runState) observe(startEpoch int64) {
	if startEpoch > rs.newestMatched {
		rs.newestMatched = startEpoch
	}
}
