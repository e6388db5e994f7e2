// Package archive uploads a run's manifest and documents to S3-compatible storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// IST is the zone used for date prefixes and run timestamps.
var IST = time.FixedZone("IST", 5*3600+30*60)

// Config holds connection and layout settings.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// objectPutter is the subset of the MinIO client used here.
type objectPutter interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error)
}

// Archiver uploads run artifacts under date-partitioned keys.
type Archiver struct {
	client objectPutter
	cfg    Config
	logger *zap.Logger
}

// NewArchiver connects to the configured endpoint.
func NewArchiver(cfg Config, log *zap.Logger) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "s3.amazonaws.com"
	}
	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	if cfg.AccessKey == "" {
		creds = credentials.NewEnvAWS()
	}
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return newWithClient(client, cfg, log), nil
}

func newWithClient(client objectPutter, cfg Config, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{client: client, cfg: cfg, logger: log}
}

// JoinKey joins key parts under prefix, trimming stray slashes.
func JoinKey(prefix string, parts ...string) string {
	segs := make([]string, 0, len(parts)+1)
	if p := strings.Trim(prefix, "/"); p != "" {
		segs = append(segs, p)
	}
	for _, part := range parts {
		if p := strings.Trim(part, "/"); p != "" {
			segs = append(segs, p)
		}
	}
	return strings.Join(segs, "/")
}

// ManifestKey is <prefix>/YYYY/MM/DD/json/latest_bids_YYYYMMDD_HHMMSS.json in IST.
func ManifestKey(prefix string, at time.Time) string {
	at = at.In(IST)
	return JoinKey(prefix, at.Format("2006/01/02"), "json", "latest_bids_"+at.Format("20060102_150405")+".json")
}

// DocumentKey is <prefix>/YYYY/MM/DD/pdfs/<file name> in IST.
func DocumentKey(prefix string, at time.Time, localPath string) string {
	return JoinKey(prefix, at.In(IST).Format("2006/01/02"), "pdfs", filepath.Base(localPath))
}

// Upload is the outcome of archiving one run.
type Upload struct {
	Keys   []string
	Failed []string
}

// UploadRun uploads the manifest and every listed document. Document failures
// are collected; a manifest failure is returned as an error.
func (a *Archiver) UploadRun(ctx context.Context, at time.Time, manifestPath string, documents []string) (Upload, error) {
	var up Upload

	key := ManifestKey(a.cfg.Prefix, at)
	if err := a.put(ctx, key, manifestPath, "application/json", at); err != nil {
		return up, fmt.Errorf("upload manifest: %w", err)
	}
	up.Keys = append(up.Keys, key)

	for _, path := range documents {
		key := DocumentKey(a.cfg.Prefix, at, path)
		if err := a.put(ctx, key, path, "application/pdf", at); err != nil {
			a.logger.Warn("document upload failed", zap.String("path", path), zap.Error(err))
			up.Failed = append(up.Failed, path)
			continue
		}
		up.Keys = append(up.Keys, key)
	}
	return up, nil
}

func (a *Archiver) put(ctx context.Context, key, path, contentType string, at time.Time) error {
	_, err := a.client.FPutObject(ctx, a.cfg.Bucket, key, path, miniogo.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"run-at": at.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return err
	}
	a.logger.Info("uploaded", zap.String("bucket", a.cfg.Bucket), zap.String("key", key))
	return nil
}
