// Package pipeline runs one harvest sweep: it pages through the listing,
// selects new bids that pass the filters, fetches their documents and
// persists the crawl watermark.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bidplus-harvester/internal/crawler"
	"bidplus-harvester/internal/filter"
	"bidplus-harvester/internal/gem"
	"bidplus-harvester/internal/metrics"
	"bidplus-harvester/internal/models"
	"bidplus-harvester/internal/store"
)

// Config controls one sweep.
type Config struct {
	Keyword   string
	Mode      filter.Mode
	Category  string
	Locations []string

	MaxPages  int
	PageDelay time.Duration
	BidDelay  time.Duration
	Lookback  time.Duration

	Output      string
	DownloadPDF bool
	PDFDir      string
	ScanDetail  bool
	DebugDates  bool
}

// NeedsDetail reports whether the sweep must fetch detail views. The listing
// JSON carries no "Category" or "State" labels, so those filters always do.
func (c Config) NeedsDetail() bool {
	return c.ScanDetail || c.Category != "" || len(c.Locations) > 0
}

// Pipeline wires the collaborators of a sweep. Build one with New.
type Pipeline struct {
	cfg    Config
	filter filter.Engine

	listing    crawler.ListingSource
	state      store.WatermarkStore
	detail     crawler.DetailSource
	resolver   crawler.DocumentResolver
	downloader crawler.DocumentDownloader
	publisher  crawler.ResultPublisher
	archiver   crawler.RunArchiver
	reports    store.ReportStore

	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	runID   func() string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithDetailSource enables detail page scanning through src.
func WithDetailSource(src crawler.DetailSource) Option {
	return func(p *Pipeline) { p.detail = src }
}

// WithDocuments sets the resolver and downloader used when downloads are enabled.
func WithDocuments(r crawler.DocumentResolver, d crawler.DocumentDownloader) Option {
	return func(p *Pipeline) {
		p.resolver = r
		p.downloader = d
	}
}

// WithPublisher publishes per-bid results and failures.
func WithPublisher(pub crawler.ResultPublisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithArchiver uploads run artifacts after the sweep.
func WithArchiver(a crawler.RunArchiver) Option {
	return func(p *Pipeline) { p.archiver = a }
}

// WithReportStore records each run's report.
func WithReportStore(s store.ReportStore) Option {
	return func(p *Pipeline) { p.reports = s }
}

// WithMetrics replaces the default private metrics set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithSleeper overrides the inter-request delay.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// WithRunID overrides run id generation.
func WithRunID(gen func() string) Option {
	return func(p *Pipeline) { p.runID = gen }
}

// New builds a pipeline over a listing source and a watermark store.
func New(cfg Config, listing crawler.ListingSource, state store.WatermarkStore, opts ...Option) *Pipeline {
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	cfg.ScanDetail = cfg.NeedsDetail()
	p := &Pipeline{
		cfg: cfg,
		filter: filter.Engine{
			Keyword:   cfg.Keyword,
			Mode:      cfg.Mode,
			Category:  cfg.Category,
			Locations: cfg.Locations,
		},
		listing: listing,
		state:   state,
		now:     time.Now,
		sleep:   sleepContext,
		runID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.metrics == nil {
		p.metrics = metrics.New()
	}
	return p
}

// Run performs one sweep. Only a missing listing token or an unreadable
// watermark aborts before any output is written; page and bid failures are
// absorbed into the report.
func (p *Pipeline) Run(ctx context.Context) (*models.RunReport, error) {
	rs := &runState{
		report: models.RunReport{RunID: p.runID(), StartedAt: p.now().UTC()},
	}
	log := p.logger.With(zap.String("run_id", rs.report.RunID))

	wm, err := p.state.Load(ctx, p.cfg.Lookback)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("state_error").Inc()
		return nil, fmt.Errorf("load watermark: %w", err)
	}
	rs.watermark = &wm
	rs.preEpoch = wm.LastSeenEpoch
	log.Info("run started",
		zap.String("keyword", p.cfg.Keyword),
		zap.String("mode", string(p.cfg.Mode)),
		zap.Int("max_pages", p.cfg.MaxPages),
		zap.Int64("last_seen_epoch", rs.preEpoch),
		zap.Int("seen_ids", len(wm.SeenBidIDs)),
		zap.Bool("download_pdf", p.cfg.DownloadPDF))

	started := p.now()
	token, err := p.listing.Bootstrap(ctx)
	p.metrics.ObserveRequest("token", started)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("fatal").Inc()
		log.Error("listing token unavailable", zap.Error(err))
		return nil, err
	}

	p.sweep(ctx, log, rs, token)
	return p.finish(context.WithoutCancel(ctx), log, rs)
}

func (p *Pipeline) sweep(ctx context.Context, log *zap.Logger, rs *runState, token string) {
	for page := 1; page <= p.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			log.Warn("sweep cancelled", zap.Int("page", page))
			return
		}
		started := p.now()
		docs, err := p.listing.FetchPage(ctx, token, page, p.cfg.Keyword)
		p.metrics.ObserveRequest("listing", started)
		if err != nil {
			var statusErr *gem.StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == 429 {
				p.metrics.RateLimitHits.Inc()
			}
			log.Warn("listing page failed, stopping pagination", zap.Int("page", page), zap.Error(err))
			return
		}
		rs.report.Pages++
		p.metrics.PagesFetched.Inc()
		log.Info("listing page fetched", zap.Int("page", page), zap.Int("docs", len(docs)))
		if len(docs) == 0 {
			return
		}

		for idx, doc := range docs {
			if ctx.Err() != nil {
				return
			}
			p.processDoc(ctx, log, rs, page, idx+1, doc)
		}

		if page < p.cfg.MaxPages {
			if err := p.sleep(ctx, p.cfg.PageDelay); err != nil {
				return
			}
		}
	}
}

func (p *Pipeline) processDoc(ctx context.Context, log *zap.Logger, rs *runState, page, idx int, doc map[string]any) {
	rs.report.Scanned++
	p.metrics.BidsScanned.Inc()

	bid, ok := gem.DecodeRecord(doc)
	if !ok {
		rs.report.Discarded++
		p.metrics.BidsDiscarded.Inc()
		log.Debug("record without identifier discarded", zap.Int("page", page), zap.Int("idx", idx))
		return
	}
	if p.cfg.DebugDates {
		log.Info("dates",
			zap.String("b_id", bid.ID),
			zap.Any("start_raw", doc["final_start_date_sort"]),
			zap.Int64("start_ms", bid.StartMillis),
			zap.Any("end_raw", doc["final_end_date_sort"]),
			zap.Int64("end_ms", bid.EndMillis))
	}
	if !rs.watermark.Eligible(bid.ID, bid.StartEpoch()) {
		return
	}

	if p.cfg.ScanDetail && p.detail != nil {
		started := p.now()
		text, err := p.detail.FetchDetailText(ctx, bid.ID)
		p.metrics.ObserveRequest("detail", started)
		if err != nil {
			log.Warn("detail view failed", zap.String("b_id", bid.ID), zap.Error(err))
			p.publishFailure(ctx, log, rs, bid.ID, "", models.StageDetail, err)
		} else if text != "" {
			bid.PageContent += " | " + text
		}
		if err := p.sleep(ctx, p.cfg.BidDelay); err != nil {
			return
		}
	}

	decision := p.filter.Match(bid)
	if !decision.Matched {
		p.metrics.BidsRejected.WithLabelValues(decision.Reason).Inc()
		log.Debug("bid filtered out",
			zap.String("b_id", bid.ID),
			zap.String("filter", decision.Reason),
			zap.String("category", decision.Category),
			zap.String("location", decision.Location))
		return
	}

	rs.report.Matched++
	p.metrics.BidsMatched.Inc()
	landing := gem.LandingURL(p.listing.BaseURL(), bid)
	log.Info("bid matched",
		zap.Int("page", page),
		zap.Int("idx", idx),
		zap.String("bid_no", bid.BidNumber),
		zap.String("b_id", bid.ID),
		zap.String("doc_url", landing))

	entry := models.NewManifestEntry(bid, landing)
	if p.cfg.DownloadPDF && p.resolver != nil && p.downloader != nil {
		p.fetchDocument(ctx, log, rs, bid, &entry)
		_ = p.sleep(ctx, p.cfg.BidDelay)
	}

	rs.manifest.Append(entry)
	rs.observe(bid.StartEpoch())
	rs.watermark.MarkSeen(bid.ID)
	if err := p.state.Save(ctx, *rs.watermark); err != nil {
		log.Warn("persisting seen ids failed", zap.String("b_id", bid.ID), zap.Error(err))
	}
	p.publishResult(ctx, log, rs, page, entry)
}

func (p *Pipeline) publishResult(ctx context.Context, log *zap.Logger, rs *runState, page int, entry models.ManifestEntry) {
	if p.publisher == nil {
		return
	}
	result := models.BidResult{
		RunID:         rs.report.RunID,
		Page:          page,
		ManifestEntry: entry,
		PublishedAt:   p.now().UTC(),
	}
	if err := p.publisher.PublishResult(ctx, result); err != nil {
		log.Warn("publish result failed", zap.String("b_id", entry.BidID), zap.Error(err))
	}
}

func (p *Pipeline) publishFailure(ctx context.Context, log *zap.Logger, rs *runState, bidID, url, stage string, cause error) {
	if p.publisher == nil {
		return
	}
	failure := models.BidFailure{
		RunID:    rs.report.RunID,
		BidID:    bidID,
		URL:      url,
		Stage:    stage,
		Error:    cause.Error(),
		FailedAt: p.now().UTC(),
	}
	if err := p.publisher.PublishFailure(ctx, failure); err != nil {
		log.Warn("publish failure failed", zap.String("b_id", bidID), zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
