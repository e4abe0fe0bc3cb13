// Package objectstore provides the object storage contract used for
// thumbnails and ingestion error reports, backed by any S3-compatible
// endpoint (R2, MinIO, S3).
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrInvalidConfig indicates invalid object storage configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Uploader stores a blob under a key and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Config holds S3-compatible client settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicBaseURL is the URL prefix objects are served from.
	PublicBaseURL string
	UseSSL        bool
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint required", ErrInvalidConfig)
	}
	if c.Bucket == "" {
		return fmt.Errorf("%w: bucket required", ErrInvalidConfig)
	}
	if c.PublicBaseURL == "" {
		return fmt.Errorf("%w: public base url required", ErrInvalidConfig)
	}
	return nil
}

// S3Store is an Uploader backed by an S3-compatible endpoint.
type S3Store struct {
	client *minio.Client
	config Config
}

// NewS3Store creates an S3Store from config.
func NewS3Store(cfg Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	return &S3Store{client: client, config: cfg}, nil
}

// Upload stores data under key and returns the public URL.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.config.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return strings.TrimSuffix(s.config.PublicBaseURL, "/") + "/" + key, nil
}

var _ Uploader = (*S3Store)(nil)
