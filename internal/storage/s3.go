package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/anidigital/harvest-hub/internal/config"
)

// S3Storage stores objects in an S3-compatible bucket.
type S3Storage struct {
	bucket    string
	publicURL string
	client    *s3.Client
	log       zerolog.Logger
	disabled  bool
}

// NewS3Storage configures the client. A missing bucket leaves the backend
// disabled rather than failing startup.
func NewS3Storage(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (*S3Storage, error) {
	logger := log.With().Str("component", "s3-storage").Logger()
	st := &S3Storage{
		bucket: strings.TrimSpace(cfg.S3Bucket),
		log:    logger,
	}
	if st.bucket == "" {
		logger.Warn().Msg("S3_BUCKET is not set; uploads are disabled")
		st.disabled = true
		return st, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.S3Endpoint)
	st.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	st.publicURL = cfg.S3PublicBaseURL
	if st.publicURL == "" {
		st.publicURL = defaultPublicURL(endpoint, st.bucket, cfg.S3Region, cfg.S3UsePathStyle)
	}
	return st, nil
}

func defaultPublicURL(endpoint, bucket, region string, pathStyle bool) string {
	if endpoint != "" {
		return strings.TrimRight(endpoint, "/") + "/" + bucket
	}
	if pathStyle {
		return fmt.Sprintf("https://s3.%s.amazonaws.com/%s", region, bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

func (s *S3Storage) ensureEnabled() error {
	if s.disabled {
		return ErrDisabled
	}
	return nil
}

// Put uploads data and returns its public URL.
func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := s.ensureEnabled(); err != nil {
		return "", err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return joinURL(s.publicURL, key), nil
}

// Delete removes key. Deleting a missing key is not an error in S3.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if err := s.ensureEnabled(); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// Health checks that the bucket is reachable.
func (s *S3Storage) Health(ctx context.Context) error {
	if s.disabled {
		return nil
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}
