// Package objectstore wraps the optional S3-compatible blob store. When
// unconfigured, ingestion skips the audit upload and the NetCDF resolver
// falls back to a local filesystem directory instead of failing outright.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotConfigured is returned by Store.Get/Put when no backing store is
// configured and the call site did not already check Configured().
var ErrNotConfigured = errors.New("objectstore: not configured")

// Store is the minimal blob interface ingestion audit upload and the NetCDF
// resolver need.
type Store interface {
	// Configured reports whether a real backing store is wired up. Callers
	// use this to decide whether to attempt the optional audit upload at
	// all.
	Configured() bool
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// s3Store is the real implementation over an S3-compatible endpoint.
type s3Store struct {
	client *s3.Client
	bucket string
}

// Config carries the OBJECT_STORAGE_* / AWS_* settings.
type Config struct {
	Provider    string
	EndpointURL string
	Bucket      string
	Region      string
	AccessKeyID string
	SecretKey   string
}

// New builds an S3-compatible Store from cfg. If cfg.Bucket is empty, object
// storage is treated as unconfigured and New returns a LocalFallback rooted
// at localDir instead, so the audit upload is simply skipped rather than
// failing the ingestion run.
func New(ctx context.Context, cfg Config, localFallbackDir string) (Store, error) {
	if cfg.Bucket == "" {
		return NewLocalFallback(localFallbackDir), nil
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
		o.UsePathStyle = cfg.EndpointURL != ""
	})

	return &s3Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *s3Store) Configured() bool { return true }

func (s *s3Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	return nil
}

func (s *s3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// LocalFallback implements Store over a local directory, used when no S3
// bucket is configured.
type LocalFallback struct {
	dir        string
	configured bool
}

// NewLocalFallback roots a LocalFallback at dir. Configured() reports false
// so callers that gate on "is object storage really configured" (e.g. the
// optional audit upload) can still skip it, while the NetCDF resolver can
// use this same instance as its filesystem fallback.
func NewLocalFallback(dir string) *LocalFallback {
	return &LocalFallback{dir: dir}
}

func (l *LocalFallback) Configured() bool { return false }

func (l *LocalFallback) Put(ctx context.Context, key string, body []byte) error {
	path := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("objectstore: local mkdir: %w", err)
	}
	return os.WriteFile(path, body, 0o644)
}

func (l *LocalFallback) Get(ctx context.Context, key string) ([]byte, error) {
	path := filepath.Join(l.dir, filepath.FromSlash(key))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("objectstore: local read %s: %w", key, err)
	}
	return data, nil
}

// AuditGeotiffKey builds the audit upload key:
// audit/geotiff/YYYY-MM-DD/{gas}_HH.tif
func AuditGeotiffKey(dateYYYYMMDD string, gas string, hour int) string {
	return fmt.Sprintf("audit/geotiff/%s/%s_%02d.tif", dateYYYYMMDD, gas, hour)
}
