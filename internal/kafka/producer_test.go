package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	kgo "github.com/segmentio/kafka-go"

	bkafka "bidplus-harvester/internal/kafka"
	"bidplus-harvester/internal/models"
	"bidplus-harvester/mocks"
)

func TestProducerPublishResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	results := mocks.NewMockMessageWriter(ctrl)
	prod := bkafka.NewProducerWithWriters(results, nil)

	result := models.BidResult{
		RunID: "run-1",
		Page:  2,
		ManifestEntry: models.ManifestEntry{
			BidID:     "8768710",
			BidNumber: "GEM/2024/B/4567",
			DocURL:    "https://bidplus.gem.gov.in/showbidDocument/8768710",
		},
		PublishedAt: time.Unix(0, 0).UTC(),
	}

	results.EXPECT().
		WriteMessages(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs ...kgo.Message) error {
			if len(msgs) != 1 {
				t.Fatalf("expected 1 message, got %d", len(msgs))
			}
			if string(msgs[0].Key) != result.BidID {
				t.Fatalf("unexpected message key: %s", string(msgs[0].Key))
			}
			if len(msgs[0].Headers) != 1 || string(msgs[0].Headers[0].Value) != "run-1" {
				t.Fatalf("unexpected headers: %+v", msgs[0].Headers)
			}

			var got map[string]any
			if err := json.Unmarshal(msgs[0].Value, &got); err != nil {
				t.Fatalf("failed to decode message: %v", err)
			}
			if got["b_id"] != "8768710" || got["bid_number"] != "GEM/2024/B/4567" || got["run_id"] != "run-1" {
				t.Fatalf("unexpected result payload: %+v", got)
			}
			return nil
		})

	if err := prod.PublishResult(context.Background(), result); err != nil {
		t.Fatalf("PublishResult returned error: %v", err)
	}
}

func TestProducerPublishResultError(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	results := mocks.NewMockMessageWriter(ctrl)
	prod := bkafka.NewProducerWithWriters(results, nil)

	results.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(errors.New("write failed"))
	if err := prod.PublishResult(context.Background(), models.BidResult{RunID: "r"}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestProducerPublishFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	results := mocks.NewMockMessageWriter(ctrl)
	failures := mocks.NewMockMessageWriter(ctrl)
	prod := bkafka.NewProducerWithWriters(results, failures)

	failures.EXPECT().
		WriteMessages(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs ...kgo.Message) error {
			var got models.BidFailure
			if err := json.Unmarshal(msgs[0].Value, &got); err != nil {
				t.Fatalf("failed to decode message: %v", err)
			}
			if got.Stage != models.StageDownload || got.BidID != "42" {
				t.Fatalf("unexpected failure payload: %+v", got)
			}
			return nil
		})

	err := prod.PublishFailure(context.Background(), models.BidFailure{RunID: "r", BidID: "42", Stage: models.StageDownload})
	if err != nil {
		t.Fatalf("PublishFailure returned error: %v", err)
	}

	results.EXPECT().Close().Return(nil)
	failures.EXPECT().Close().Return(errors.New("close failed"))
	if err := prod.Close(); err == nil {
		t.Fatal("expected close error")
	}
}

func TestProducerWithoutFailuresTopicSkips(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	prod := bkafka.NewProducerWithWriters(mocks.NewMockMessageWriter(ctrl), nil)
	if err := prod.PublishFailure(context.Background(), models.BidFailure{BidID: "1"}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
