package main

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"bidplus-harvester/internal/archive"
	"bidplus-harvester/internal/config"
	"bidplus-harvester/internal/document"
	"bidplus-harvester/internal/gem"
	"bidplus-harvester/internal/kafka"
	"bidplus-harvester/internal/metrics"
	"bidplus-harvester/internal/pipeline"
	"bidplus-harvester/internal/store"
)

// Portal transport timeouts. Per-request budgets are applied on top.
const (
	connectTimeout        = 10 * time.Second
	responseHeaderTimeout = 60 * time.Second
)

// deps owns the long-lived collaborators of the harvester.
type deps struct {
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	reports  store.ReportStore
	closers  []func() error
}

func (d *deps) Close(log *zap.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}
}

// buildHTTPClient returns the session transport, optionally through a proxy.
func buildHTTPClient(proxyURL string) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		ResponseHeaderTimeout: responseHeaderTimeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: transport}, nil
}

func buildDeps(cfg config.Config, log *zap.Logger) (*deps, error) {
	d := &deps{metrics: metrics.New(), reports: &store.MemoryReportStore{}}

	httpClient, err := buildHTTPClient(cfg.ProxyURL)
	if err != nil {
		return nil, err
	}
	client, err := gem.NewClient(cfg.BaseURL,
		gem.WithHTTPClient(httpClient),
		gem.WithUserAgent(cfg.UserAgent),
		gem.WithTimeout(cfg.ListingTimeout),
	)
	if err != nil {
		return nil, err
	}

	var state store.WatermarkStore
	switch cfg.StateBackend {
	case config.BackendRedis:
		rs := store.NewRedisStore(cfg.RedisAddr, cfg.RedisKey, 7*24*time.Hour)
		d.closers = append(d.closers, rs.Close)
		state = rs
		d.reports = rs
	default:
		state = store.NewFileStore(cfg.StateFile)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithMetrics(d.metrics),
		pipeline.WithReportStore(d.reports),
		pipeline.WithDocuments(
			&document.Resolver{
				HTTP:          client.HTTPClient(),
				UserAgent:     client.UserAgent(),
				Referer:       client.BaseURL() + "/all-bids",
				Timeout:       cfg.ResolveTimeout,
				DiagnosticDir: cfg.DiagnosticDir(),
			},
			&document.Downloader{
				HTTP:      client.HTTPClient(),
				UserAgent: client.UserAgent(),
				Timeout:   cfg.PDFTimeout,
			},
		),
	}
	pcfg := pipelineConfig(cfg)
	if pcfg.NeedsDetail() {
		opts = append(opts, pipeline.WithDetailSource(client))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		prod := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ResultsTopic, cfg.Kafka.FailuresTopic)
		d.closers = append(d.closers, prod.Close)
		opts = append(opts, pipeline.WithPublisher(prod))
		log.Info("publishing results", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.ResultsTopic))
	}
	if cfg.S3.Enabled {
		arch, err := archive.NewArchiver(archive.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
		}, log)
		if err != nil {
			d.Close(log)
			return nil, err
		}
		opts = append(opts, pipeline.WithArchiver(arch))
	}

	d.pipeline = pipeline.New(pcfg, client, state, opts...)
	return d, nil
}

func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		Keyword:     cfg.Keyword,
		Mode:        cfg.Mode,
		Category:    cfg.Category,
		Locations:   cfg.States,
		MaxPages:    cfg.Pages,
		PageDelay:   cfg.Delay,
		BidDelay:    cfg.BidDelay,
		Lookback:    cfg.Lookback(),
		Output:      cfg.Out,
		DownloadPDF: cfg.DownloadPDF,
		PDFDir:      cfg.PDFDir,
		ScanDetail:  cfg.ScanDetail,
		DebugDates:  cfg.DebugDates,
	}
}
