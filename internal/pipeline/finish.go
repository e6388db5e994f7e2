package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"bidplus-harvester/internal/models"
)

// finish writes the manifest, advances and saves the watermark, archives
// the run and emits the summary.
func (p *Pipeline) finish(ctx context.Context, log *zap.Logger, rs *runState) (*models.RunReport, error) {
	if p.cfg.Output != "" {
		if err := writeManifest(p.cfg.Output, rs.manifest.Snapshot()); err != nil {
			log.Error("writing manifest failed", zap.String("path", p.cfg.Output), zap.Error(err))
		} else {
			rs.report.ManifestPath = p.cfg.Output
		}
	}

	rs.watermark.Advance(rs.newestMatched)
	rs.report.LastSeenEpoch = rs.watermark.LastSeenEpoch
	if err := p.state.Save(ctx, *rs.watermark); err != nil {
		p.metrics.RunsTotal.WithLabelValues("state_error").Inc()
		return &rs.report, fmt.Errorf("save watermark: %w", err)
	}
	p.metrics.LastSeenEpoch.Set(float64(rs.watermark.LastSeenEpoch))

	if p.archiver != nil && rs.report.ManifestPath != "" {
		up, err := p.archiver.UploadRun(ctx, p.now(), rs.report.ManifestPath, rs.documents)
		if err != nil {
			log.Error("archival failed", zap.Error(err))
		} else {
			log.Info("run archived", zap.Int("objects", len(up.Keys)), zap.Int("failed", len(up.Failed)))
		}
	}

	rs.report.FinishedAt = p.now().UTC()
	p.metrics.RunsTotal.WithLabelValues("ok").Inc()
	p.metrics.LastRunTimestamp.Set(float64(rs.report.FinishedAt.Unix()))

	log.Info("run complete",
		zap.Int("total_scanned", rs.report.Scanned),
		zap.Int("total_matches", rs.report.Matched),
		zap.Int("downloaded", rs.report.Downloaded),
		zap.Int("failed", rs.report.Failed),
		zap.Int("pages", rs.report.Pages),
		zap.Int64("previous_epoch", rs.preEpoch),
		zap.Int64("last_seen_epoch", rs.report.LastSeenEpoch),
		zap.String("manifest", rs.report.ManifestPath))

	if p.reports != nil {
		if err := p.reports.SetReport(ctx, rs.report); err != nil {
			log.Warn("storing run report failed", zap.Error(err))
		}
	}
	return &rs.report, nil
}

func writeManifest(path string, entries []models.ManifestEntry) error {
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}
