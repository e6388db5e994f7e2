package pipeline

import (
	"context"
	"errors"
	"path/filepath"

	"go.uber.org/zap"

	"bidplus-harvester/internal/document"
	"bidplus-harvester/internal/models"
)

// fetchDocument resolves and downloads the bid's document, filling entry's
// pdf_url and pdf_path on success. Failures stay with this bid.
func (p *Pipeline) fetchDocument(ctx context.Context, log *zap.Logger, rs *runState, bid models.BidRecord, entry *models.ManifestEntry) {
	started := p.now()
	resolved, err := p.resolver.Resolve(ctx, bid.ID, entry.DocURL)
	p.metrics.ObserveRequest("resolve", started)
	outcome := string(resolved.Outcome)
	if outcome == "" {
		outcome = "error"
	}
	p.metrics.Resolutions.WithLabelValues(outcome).Inc()
	if err != nil {
		rs.report.Failed++
		if errors.Is(err, document.ErrUnresolved) {
			log.Warn("document link not found",
				zap.String("b_id", bid.ID),
				zap.String("doc_url", entry.DocURL),
				zap.String("diagnostic", resolved.DiagnosticPath))
		} else {
			log.Warn("document resolution failed", zap.String("b_id", bid.ID), zap.Error(err))
		}
		p.publishFailure(ctx, log, rs, bid.ID, entry.DocURL, models.StageResolve, err)
		return
	}
	entry.PDFURL = resolved.FileURL
	log.Info("document resolved",
		zap.String("b_id", bid.ID),
		zap.String("outcome", string(resolved.Outcome)),
		zap.String("pdf_url", resolved.FileURL))

	dest := filepath.Join(p.cfg.PDFDir, document.PDFName(bid.BidNumber, bid.ID))
	started = p.now()
	res := p.downloader.Download(ctx, resolved.FileURL, dest, entry.DocURL)
	p.metrics.ObserveRequest("download", started)
	if !res.OK {
		rs.report.Failed++
		p.metrics.Downloads.WithLabelValues("failed").Inc()
		log.Warn("document download failed",
			zap.String("b_id", bid.ID),
			zap.String("pdf_url", resolved.FileURL),
			zap.String("content_type", res.ContentType),
			zap.String("diagnostic", res.DiagnosticPath),
			zap.Error(res.Err))
		p.publishFailure(ctx, log, rs, bid.ID, resolved.FileURL, models.StageDownload, res.Err)
		return
	}

	entry.PDFPath = res.Path
	rs.report.Downloaded++
	rs.documents = append(rs.documents, res.Path)
	p.metrics.Downloads.WithLabelValues("ok").Inc()
	log.Info("document saved", zap.String("b_id", bid.ID), zap.String("path", res.Path))
}
