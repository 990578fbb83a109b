package backtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3ExportConfig is the minimal S3-compatible endpoint configuration an
// S3Exporter needs, independent of internal/config so this package does not
// import it back. Cloudflare R2 and other S3-compatible stores are reached
// by setting EndpointURL; AWS S3 itself leaves it empty.
type S3ExportConfig struct {
	Bucket          string
	Region          string
	Prefix          string
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether a bucket was configured.
func (c S3ExportConfig) Enabled() bool { return c.Bucket != "" }

// S3Exporter uploads completed backtest results as JSON blobs to an
// S3-compatible bucket, grounded on the teacher's R2BackupService: a staged
// archive-then-upload flow there, a direct marshal-then-upload flow here
// since a backtest Result is already a small JSON-able value rather than a
// set of SQLite files needing tar.gz packaging first.
type S3Exporter struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewS3Exporter builds an exporter from cfg. It resolves AWS credentials
// from the static key pair if provided, otherwise falls back to the default
// provider chain (environment, shared config, instance role).
func NewS3Exporter(ctx context.Context, cfg S3ExportConfig, log zerolog.Logger) (*S3Exporter, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
		o.UsePathStyle = cfg.EndpointURL != ""
	})

	return &S3Exporter{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		log:      log.With().Str("component", "backtest_s3_exporter").Logger(),
	}, nil
}

// Upload marshals result to JSON and uploads it under
// "<prefix>/<backtestID>-<timestamp>.json".
func (e *S3Exporter) Upload(ctx context.Context, backtestID string, result Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal backtest result: %w", err)
	}

	key := fmt.Sprintf("%s/%s-%s.json", e.prefix, backtestID, time.Now().UTC().Format("20060102T150405Z"))
	_, err = e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload backtest result to s3: %w", err)
	}

	e.log.Info().Str("backtest_id", backtestID).Str("key", key).Int("bytes", len(body)).Msg("uploaded backtest result")
	return nil
}
