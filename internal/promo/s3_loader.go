package promo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectGetter is the subset of the S3 client used by the loader.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Loader implements Loader for reading gzipped code lists from AWS S3.
type s3Loader struct {
	client ObjectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates a new S3-based promo loader using the default AWS
// credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 loader initialised")

	return NewS3LoaderWithClient(s3.NewFromConfig(cfg), bucket, logger), nil
}

// NewS3LoaderWithClient creates an S3 loader around an existing client.
func NewS3LoaderWithClient(client ObjectGetter, bucket string, logger zerolog.Logger) Loader {
	return &s3Loader{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("component", "s3-promo-loader").Logger(),
	}
}

// Load reads a gzipped code list from S3. key is the full object key.
func (l *s3Loader) Load(ctx context.Context, key string) (CodeSet, error) {
	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Msg("loading promo code file from S3")

	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("bucket", l.bucket).
			Str("key", key).
			Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", l.bucket, key, err)
	}
	defer result.Body.Close()

	set, err := readCodes(ctx, result.Body)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("bucket", l.bucket).
			Str("key", key).
			Msg("failed to read promo code file from S3")
		return nil, fmt.Errorf("failed to read promo code file from S3 %s: %w", key, err)
	}

	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Int("codes_loaded", set.Size()).
		Msg("promo code file loaded successfully from S3")

	return set, nil
}

// fallbackLoader tries S3 first, then the local file system.
type fallbackLoader struct {
	s3Loader   Loader
	fileLoader Loader
	s3Prefix   string
	logger     zerolog.Logger
}

// NewFallbackLoader creates a loader that tries S3 first, then falls back to
// the local file system. A nil s3Loader means local files only.
func NewFallbackLoader(s3Loader, fileLoader Loader, s3Prefix string, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		s3Loader:   s3Loader,
		fileLoader: fileLoader,
		s3Prefix:   s3Prefix,
		logger:     logger.With().Str("component", "fallback-loader").Logger(),
	}
}

// Load prepends the S3 prefix for the S3 attempt and uses path as-is locally.
func (l *fallbackLoader) Load(ctx context.Context, path string) (CodeSet, error) {
	if l.s3Loader != nil {
		key := l.s3Prefix + path

		set, err := l.s3Loader.Load(ctx, key)
		if err == nil {
			return set, nil
		}

		l.logger.Warn().
			Err(err).
			Str("s3_key", key).
			Str("local_fallback", path).
			Msg("failed to load from S3, falling back to local file system")
	}

	return l.fileLoader.Load(ctx, path)
}
