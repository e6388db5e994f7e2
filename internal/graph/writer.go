package graph

import (
	"context"
	"errors"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"bidplus-harvester/internal/models"
)

// ErrMissingBidID is returned for payloads that cannot be keyed to a bid.
var ErrMissingBidID = errors.New("graph: missing bid id")

// Statement is one parameterized Cypher query.
type Statement struct {
	Query  string
	Params map[string]any
}

// Writer projects harvester output into the bid graph.
type Writer struct {
	driver   DriverSessioner
	database string
	log      *zap.Logger
}

// NewWriter wraps a driver. An empty database uses the server default.
func NewWriter(driver DriverSessioner, database string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{driver: driver, database: database, log: log}
}

// WriteResult merges the bid, its run and, when resolved, its document.
func (w *Writer) WriteResult(ctx context.Context, result models.BidResult) error {
	statements, err := ResultStatements(result)
	if err != nil {
		return err
	}
	return w.run(ctx, statements)
}

// WriteFailure records a failed stage against the bid and run.
func (w *Writer) WriteFailure(ctx context.Context, failure models.BidFailure) error {
	statements, err := FailureStatements(failure)
	if err != nil {
		return err
	}
	return w.run(ctx, statements)
}

func (w *Writer) run(ctx context.Context, statements []Statement) error {
	session := w.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: w.database,
	})
	defer func() {
		if err := session.Close(ctx); err != nil {
			w.log.Warn("neo4j session close failed", zap.Error(err))
		}
	}()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range statements {
			if _, err := tx.Run(ctx, st.Query, st.Params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// ResultStatements builds the idempotent merges for one matched bid.
func ResultStatements(result models.BidResult) ([]Statement, error) {
	if result.BidID == "" {
		return nil, ErrMissingBidID
	}
	statements := []Statement{{
		Query: "MERGE (b:Bid {id: $b_id}) " +
			"SET b.bid_number = coalesce($bid_number, b.bid_number), " +
			"b.title = coalesce($title, b.title), " +
			"b.start_utc = coalesce($start_utc, b.start_utc), " +
			"b.end_utc = coalesce($end_utc, b.end_utc), " +
			"b.doc_url = coalesce($doc_url, b.doc_url)",
		Params: map[string]any{
			"b_id":       result.BidID,
			"bid_number": optional(result.BidNumber),
			"title":      optional(result.Title),
			"start_utc":  optional(result.StartUTC),
			"end_utc":    optional(result.EndUTC),
			"doc_url":    optional(result.DocURL),
		},
	}}

	if result.RunID != "" {
		statements = append(statements, Statement{
			Query: "MERGE (b:Bid {id: $b_id}) " +
				"MERGE (r:Run {id: $run_id}) " +
				"MERGE (b)-[s:SEEN_IN]->(r) " +
				"SET s.page = $page, s.published_at = $published_at",
			Params: map[string]any{
				"b_id":         result.BidID,
				"run_id":       result.RunID,
				"page":         int64(result.Page),
				"published_at": timestamp(result.PublishedAt),
			},
		})
	}

	if result.PDFURL != "" {
		statements = append(statements, Statement{
			Query: "MERGE (b:Bid {id: $b_id}) " +
				"MERGE (d:Document {url: $pdf_url}) " +
				"SET d.path = coalesce($pdf_path, d.path) " +
				"MERGE (b)-[:HAS_DOCUMENT]->(d)",
			Params: map[string]any{
				"b_id":     result.BidID,
				"pdf_url":  result.PDFURL,
				"pdf_path": optional(result.PDFPath),
			},
		})
	}
	return statements, nil
}

// FailureStatements builds the merge for one failed stage.
func FailureStatements(failure models.BidFailure) ([]Statement, error) {
	if failure.BidID == "" {
		return nil, ErrMissingBidID
	}
	return []Statement{{
		Query: "MERGE (b:Bid {id: $b_id}) " +
			"MERGE (r:Run {id: $run_id}) " +
			"MERGE (b)-[f:FAILED_IN {stage: $stage}]->(r) " +
			"SET f.url = $url, f.error = $error, f.failed_at = $failed_at",
		Params: map[string]any{
			"b_id":      failure.BidID,
			"run_id":    failure.RunID,
			"stage":     failure.Stage,
			"url":       failure.URL,
			"error":     failure.Error,
			"failed_at": timestamp(failure.FailedAt),
		},
	}}, nil
}

// optional maps empty strings to null so coalesce keeps prior values.
func optional(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func timestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
