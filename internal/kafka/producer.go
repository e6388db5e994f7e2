package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"bidplus-harvester/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes per-bid results and failures to their topics.
type Producer struct {
	results  messageWriter
	failures messageWriter
	now      func() time.Time
}

// NewProducer creates writers for the results and failures topics on brokers.
// An empty failuresTopic disables failure publishing.
func NewProducer(brokers []string, resultsTopic, failuresTopic string) *Producer {
	p := &Producer{results: newWriter(brokers, resultsTopic), now: time.Now}
	if failuresTopic != "" {
		p.failures = newWriter(brokers, failuresTopic)
	}
	return p
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: false,
	}
}

// NewProducerWithWriters builds a producer using custom writers (tests).
func NewProducerWithWriters(results, failures messageWriter) *Producer {
	return &Producer{results: results, failures: failures, now: time.Now}
}

// Close shuts down the underlying writers.
func (p *Producer) Close() error {
	err := p.results.Close()
	if p.failures != nil {
		if ferr := p.failures.Close(); err == nil {
			err = ferr
		}
	}
	return err
}

// PublishResult writes a BidResult keyed by bid id.
func (p *Producer) PublishResult(ctx context.Context, result models.BidResult) error {
	return write(ctx, p.results, result.BidID, result.RunID, result, p.now())
}

// PublishFailure writes a BidFailure keyed by bid id.
func (p *Producer) PublishFailure(ctx context.Context, failure models.BidFailure) error {
	if p.failures == nil {
		return nil
	}
	return write(ctx, p.failures, failure.BidID, failure.RunID, failure, p.now())
}

func write(ctx context.Context, w messageWriter, key, runID string, value any, at time.Time) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: []kafka.Header{{Key: "run_id", Value: []byte(runID)}},
		Time:    at.UTC(),
	}
	return w.WriteMessages(ctx, msg)
}
