// Package crawler declares the collaborator contracts the harvest pipeline
// depends on, so transports and sinks can be swapped in tests.
package crawler

//go:generate mockgen -destination=../../mocks/mock_message_writer.go -package=mocks bidplus-harvester/internal/crawler MessageWriter
//go:generate mockgen -destination=../../mocks/mock_message_reader.go -package=mocks bidplus-harvester/internal/crawler MessageReader

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"bidplus-harvester/internal/archive"
	"bidplus-harvester/internal/document"
	"bidplus-harvester/internal/models"
)

// MessageReader abstracts kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageWriter abstracts kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ListingSource is the paginated bid listing (gem.Client).
type ListingSource interface {
	Bootstrap(ctx context.Context) (string, error)
	FetchPage(ctx context.Context, token string, page int, keyword string) ([]map[string]any, error)
	BaseURL() string
}

// DetailSource returns rendered text for a bid's detail view.
type DetailSource interface {
	FetchDetailText(ctx context.Context, bidID string) (string, error)
}

// DocumentResolver maps a landing URL to a document URL.
type DocumentResolver interface {
	Resolve(ctx context.Context, bidID, landingURL string) (models.ResolvedDocument, error)
}

// DocumentDownloader stores a document locally.
type DocumentDownloader interface {
	Download(ctx context.Context, fileURL, dest, referer string) document.Result
}

// ResultPublisher emits per-bid outcomes downstream.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result models.BidResult) error
	PublishFailure(ctx context.Context, failure models.BidFailure) error
}

// RunArchiver ships a finished run's artifacts to object storage.
type RunArchiver interface {
	UploadRun(ctx context.Context, at time.Time, manifestPath string, documents []string) (archive.Upload, error)
}
