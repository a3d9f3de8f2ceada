// Package storage provides object storage implementations for raw
// payload archival.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/mpoffice/backend/internal/domain/ingest"
	infraconfig "github.com/mpoffice/backend/internal/infrastructure/config"
)

// Ensure S3PayloadArchive implements the archiver port
var _ ingest.RawPayloadArchiver = (*S3PayloadArchive)(nil)

// S3PayloadArchive offloads raw payload bodies to S3-compatible
// storage (AWS S3, MinIO, etc.) for long-term retention beyond the
// database. Archival is best-effort: the pipeline's replay path reads
// from the database raw store, never from here.
type S3PayloadArchive struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// S3PayloadArchiveOption is a functional option for configuring S3PayloadArchive
type S3PayloadArchiveOption func(*S3PayloadArchive)

// WithLogger sets a custom logger for S3PayloadArchive
func WithLogger(logger *zap.Logger) S3PayloadArchiveOption {
	return func(s *S3PayloadArchive) {
		s.logger = logger
	}
}

// NewS3PayloadArchive creates an archive from configuration. It
// supports any S3-compatible storage backend.
func NewS3PayloadArchive(cfg *infraconfig.StorageConfig, opts ...S3PayloadArchiveOption) (*S3PayloadArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	archive := &S3PayloadArchive{
		client: client,
		bucket: cfg.Bucket,
		prefix: "raw",
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	return archive, nil
}

// Archive stores one payload body. The key layout
// raw/<source>/<yyyy>/<mm>/<dd>/<business_key>/<payload_id>.json keeps
// per-day listings cheap.
func (s *S3PayloadArchive) Archive(ctx context.Context, payload ingest.RawPayload) error {
	key := fmt.Sprintf("%s/%s/%s/%s/%s.json",
		s.prefix,
		payload.Source,
		payload.FetchedAt.UTC().Format("2006/01/02"),
		payload.BusinessKey,
		payload.ID,
	)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload.Body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive payload %s: %w", payload.ID, err)
	}

	s.logger.Debug("Raw payload archived",
		zap.String("key", key),
		zap.String("source", payload.Source.String()),
	)
	return nil
}
