// Command graph-writer projects harvester results and failures from Kafka into Neo4j.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"bidplus-harvester/common"
	"bidplus-harvester/internal/crawler"
	"bidplus-harvester/internal/graph"
	"bidplus-harvester/internal/logger"
	"bidplus-harvester/internal/models"
)

const fetchBackoff = 500 * time.Millisecond

// Transient write failures are retried in place, doubling up to maxWriteBackoff.
var (
	writeBackoff    = 500 * time.Millisecond
	maxWriteBackoff = 30 * time.Second
)

// sink is the part of graph.Writer the consumers need.
type sink interface {
	WriteResult(ctx context.Context, result models.BidResult) error
	WriteFailure(ctx context.Context, failure models.BidFailure) error
}

// handler decodes and writes one message value.
type handler func(ctx context.Context, payload []byte) error

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Config{
		Level:    common.Env("BIDPLUS_LOG_LEVEL", "info"),
		Encoding: common.Env("BIDPLUS_LOG_ENCODING", "console"),
	})
	defer func() { _ = log.Sync() }()

	brokers := common.EnvList("BIDPLUS_KAFKA_BROKERS", "localhost:9092")
	resultsTopic := common.Env("BIDPLUS_KAFKA_RESULTS_TOPIC", "bidplus.results")
	failuresTopic := common.Env("BIDPLUS_KAFKA_FAILURES_TOPIC", "bidplus.failures")
	group := common.Env("BIDPLUS_GRAPH_GROUP", "bidplus-graph-writer")
	metricsAddr := common.Env("BIDPLUS_GRAPH_METRICS_ADDR", ":9091")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	driver, err := graph.NewDriver(connectCtx,
		common.Env("BIDPLUS_NEO4J_URI", "neo4j://localhost:7687"),
		common.Env("BIDPLUS_NEO4J_USER", "neo4j"),
		common.Env("BIDPLUS_NEO4J_PASSWORD", "neo4j"),
	)
	cancel()
	if err != nil {
		log.Error("neo4j connect failed", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := driver.Close(context.Background()); err != nil {
			log.Warn("neo4j close failed", zap.Error(err))
		}
	}()

	writer := graph.NewWriter(driver, common.Env("BIDPLUS_NEO4J_DATABASE", ""), log)
	m := newWriterMetrics()

	resultsReader := newReader(brokers, resultsTopic, group)
	failuresReader := newReader(brokers, failuresTopic, group)
	defer closeReader(log, "results", resultsReader)
	defer closeReader(log, "failures", failuresReader)

	if metricsAddr != "" {
		startMetricsServer(ctx, metricsAddr, m, log)
	}

	done := make(chan struct{}, 2)
	go func() {
		consume(ctx, "results", resultsReader, resultHandler(writer), m, log)
		done <- struct{}{}
	}()
	go func() {
		consume(ctx, "failures", failuresReader, failureHandler(writer), m, log)
		done <- struct{}{}
	}()

	log.Info("graph writer started",
		zap.Strings("brokers", brokers),
		zap.String("results_topic", resultsTopic),
		zap.String("failures_topic", failuresTopic),
	)
	<-ctx.Done()
	<-done
	<-done
}

func newReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group + "-" + topic,
	})
}

func closeReader(log *zap.Logger, name string, reader crawler.MessageReader) {
	if err := reader.Close(); err != nil {
		log.Warn("reader close failed", zap.String("stream", name), zap.Error(err))
	}
}

func startMetricsServer(ctx context.Context, addr string, m *writerMetrics, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics shutdown failed", zap.Error(err))
		}
	}()

	go func() {
		log.Info("metrics listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
}

func resultHandler(s sink) handler {
	return func(ctx context.Context, payload []byte) error {
		var result models.BidResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return err
		}
		return s.WriteResult(ctx, result)
	}
}

func failureHandler(s sink) handler {
	return func(ctx context.Context, payload []byte) error {
		var failure models.BidFailure
		if err := json.Unmarshal(payload, &failure); err != nil {
			return err
		}
		return s.WriteFailure(ctx, failure)
	}
}

// consume writes each message and commits it once written. Payloads that can
// never be written are committed so they do not block the partition. A failed
// write is retried until it succeeds or ctx ends; the reader never moves past
// an unwritten message, so it is redelivered after a restart.
func consume(ctx context.Context, stream string, reader crawler.MessageReader, handle handler, m *writerMetrics, log *zap.Logger) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("fetch failed", zap.String("stream", stream), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchBackoff):
			}
			continue
		}

		m.Received.WithLabelValues(stream).Inc()
		if err := writeWithRetry(ctx, stream, msg, handle, m, log); err != nil {
			if !permanent(err) {
				return
			}
			m.Skipped.WithLabelValues(stream).Inc()
			log.Warn("skipping unwritable message",
				zap.String("stream", stream),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		} else {
			m.Written.WithLabelValues(stream).Inc()
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Warn("commit failed", zap.String("stream", stream), zap.Error(err))
		}
	}
}

// writeWithRetry returns nil once written, a permanent error at once, or the
// last transient error when ctx ends.
func writeWithRetry(ctx context.Context, stream string, msg kafka.Message, handle handler, m *writerMetrics, log *zap.Logger) error {
	backoff := writeBackoff
	for {
		err := handle(ctx, msg.Value)
		if err == nil || permanent(err) {
			return err
		}
		m.Failed.WithLabelValues(stream).Inc()
		log.Warn("graph write failed, retrying",
			zap.String("stream", stream),
			zap.Int64("offset", msg.Offset),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxWriteBackoff {
			backoff = maxWriteBackoff
		}
	}
}

func permanent(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.Is(err, graph.ErrMissingBidID) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
