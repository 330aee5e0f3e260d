package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sheetbridge/internal/domain"
)

// S3Source fetches the batch set as a JSON object from an S3-compatible
// backend (AWS S3 or MinIO). Single bucket, single key.
type S3Source struct {
	client *s3.Client
	bucket string
	key    string
}

// S3Config holds explicit construction parameters (mostly for tests). For
// prod we rely primarily on environment variables.
type S3Config struct {
	Region          string
	Bucket          string
	Key             string
	Endpoint        string // optional; if set enables custom endpoint (e.g. MinIO)
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string // optional
	SessionToken    string // optional
	PathStyle       bool
}

// Environment variables:
//   SHEETBRIDGE_BATCH_SOURCE=s3
//   SHEETBRIDGE_BATCH_S3_BUCKET=<bucket> (required)
//   SHEETBRIDGE_BATCH_S3_KEY=<object key> (default batches.json)
//   SHEETBRIDGE_BATCH_S3_REGION=<region> (default us-east-1)
//   SHEETBRIDGE_BATCH_S3_ENDPOINT=<url> (optional, for MinIO)
//   SHEETBRIDGE_BATCH_S3_PATH_STYLE=true|false (default false)
//   AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// NewS3Source creates an S3 batch source from S3Config.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	key := cfg.Key
	if key == "" {
		key = "batches.json"
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Source{client: client, bucket: cfg.Bucket, key: key}, nil
}

// OpenS3SourceFromEnv constructs an S3 source from process environment.
func OpenS3SourceFromEnv(ctx context.Context) (*S3Source, error) {
	bucket := os.Getenv("SHEETBRIDGE_BATCH_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("SHEETBRIDGE_BATCH_S3_BUCKET required for s3 driver")
	}
	cfg := S3Config{
		Bucket:    bucket,
		Key:       os.Getenv("SHEETBRIDGE_BATCH_S3_KEY"),
		Region:    os.Getenv("SHEETBRIDGE_BATCH_S3_REGION"),
		Endpoint:  os.Getenv("SHEETBRIDGE_BATCH_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("SHEETBRIDGE_BATCH_S3_PATH_STYLE"), "true"),
	}
	return NewS3Source(ctx, cfg)
}

func (s *S3Source) Batches(ctx context.Context) ([]domain.Batch, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &s.key})
	if err != nil {
		return nil, fmt.Errorf("get batch object: %w", err)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read batch object: %w", err)
	}
	var batches []domain.Batch
	if err := json.Unmarshal(data, &batches); err != nil {
		return nil, fmt.Errorf("decode batch object %s/%s: %w", s.bucket, s.key, err)
	}
	return batches, nil
}
