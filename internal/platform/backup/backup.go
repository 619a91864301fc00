// Package backup uploads snapshots of the record document to S3 or an
// S3-compatible object store.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const (
	contentType     = "application/json"
	timestampLayout = "20060102T150405Z"
)

// S3Config selects the destination bucket. Endpoint and PathStyle are for
// S3-compatible stores such as MinIO or LocalStack.
type S3Config struct {
	Bucket    string
	Prefix    string
	Endpoint  string
	PathStyle bool
}

// Uploader is the subset of the S3 client used for backups.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Source produces the document to back up.
type Source interface {
	Snapshot() ([]byte, error)
}

// NewS3Client builds a client from the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

type Runner struct {
	uploader Uploader
	bucket   string
	prefix   string
	logger   zerolog.Logger
	now      func() time.Time
}

func NewRunner(uploader Uploader, cfg S3Config, logger zerolog.Logger) *Runner {
	return &Runner{
		uploader: uploader,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		logger:   logger.With().Str("component", "backup").Logger(),
		now:      time.Now,
	}
}

// Key returns the object key for a snapshot taken at t.
func (r *Runner) Key(t time.Time) string {
	return r.prefix + t.UTC().Format(timestampLayout) + ".json"
}

// Run uploads one snapshot and returns its object key.
func (r *Runner) Run(ctx context.Context, src Source) (string, error) {
	if r.bucket == "" {
		return "", errors.New("backup bucket is not configured")
	}
	data, err := src.Snapshot()
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	key := r.Key(r.now())
	_, err = r.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", r.bucket, key, err)
	}

	r.logger.Info().
		Str("bucket", r.bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("snapshot uploaded")
	return key, nil
}
