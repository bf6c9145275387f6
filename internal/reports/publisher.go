package reports

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/lossdash/internal/config"
)

// Uploader is the subset of manager.Uploader used for publishing.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Publisher uploads report files to a bucket under prefix/<runID>/.
type Publisher struct {
	uploader Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewPublisher creates a publisher on top of an uploader.
func NewPublisher(uploader Uploader, bucket, prefix string, log zerolog.Logger) *Publisher {
	return &Publisher{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		log:      log.With().Str("service", "report_publisher").Logger(),
	}
}

// NewS3Publisher builds an S3 client from the report configuration. A custom
// endpoint (R2, MinIO) switches to path-style addressing. Without static keys
// the default AWS credential chain is used.
func NewS3Publisher(ctx context.Context, cfg config.ReportConfig, log zerolog.Logger) (*Publisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("report bucket is not configured")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewPublisher(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, log), nil
}

// Publish uploads every file of the report and returns the object keys.
func (p *Publisher) Publish(ctx context.Context, report *Report) ([]string, error) {
	keys := make([]string, 0, len(report.Files))
	for _, file := range report.Files {
		key := path.Join(p.prefix, report.RunID, filepath.Base(file))
		if err := p.upload(ctx, key, file); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}

	p.log.Info().
		Str("bucket", p.bucket).
		Str("run_id", report.RunID).
		Int("files", len(keys)).
		Msg("Report published")

	return keys, nil
}

func (p *Publisher) upload(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	_, err = p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(file)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
