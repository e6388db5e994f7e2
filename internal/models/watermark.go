package models

import (
	"sort"
	"strconv"
)

// CrawlWatermark is the persisted crawl cursor shared across runs.
type CrawlWatermark struct {
	LastSeenEpoch int64    `json:"last_seen_epoch"`
	SeenBidIDs    []string `json:"seen_bid_ids"`

	seen map[string]struct{}
}

// NewCrawlWatermark builds a watermark from a persisted epoch and id list.
func NewCrawlWatermark(lastSeenEpoch int64, ids []string) CrawlWatermark {
	w := CrawlWatermark{LastSeenEpoch: lastSeenEpoch}
	for _, id := range ids {
		w.MarkSeen(id)
	}
	return w
}

func (w *CrawlWatermark) index() {
	if w.seen != nil {
		return
	}
	w.seen = make(map[string]struct{}, len(w.SeenBidIDs))
	for _, id := range w.SeenBidIDs {
		w.seen[id] = struct{}{}
	}
}

// Seen reports whether the bid id was already processed.
func (w *CrawlWatermark) Seen(id string) bool {
	w.index()
	_, ok := w.seen[id]
	return ok
}

// MarkSeen records a processed bid id. Empty ids are ignored.
func (w *CrawlWatermark) MarkSeen(id string) {
	if id == "" {
		return
	}
	w.index()
	if _, ok := w.seen[id]; ok {
		return
	}
	w.seen[id] = struct{}{}
	w.SeenBidIDs = append(w.SeenBidIDs, id)
}

// Advance moves LastSeenEpoch forward; it never moves backwards.
func (w *CrawlWatermark) Advance(epoch int64) {
	if epoch > w.LastSeenEpoch {
		w.LastSeenEpoch = epoch
	}
}

// Eligible reports whether a bid starting at startEpoch should be processed.
func (w *CrawlWatermark) Eligible(id string, startEpoch int64) bool {
	return startEpoch > w.LastSeenEpoch && !w.Seen(id)
}

// Snapshot returns a copy with ids sorted numerically, ready to persist.
func (w *CrawlWatermark) Snapshot() CrawlWatermark {
	ids := make([]string, len(w.SeenBidIDs))
	copy(ids, w.SeenBidIDs)
	sort.SliceStable(ids, func(i, j int) bool {
		a, errA := strconv.ParseInt(ids[i], 10, 64)
		b, errB := strconv.ParseInt(ids[j], 10, 64)
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a < b
	})
	return CrawlWatermark{LastSeenEpoch: w.LastSeenEpoch, SeenBidIDs: ids}
}
