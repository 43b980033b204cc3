// Package s3 archives generated images to S3-compatible object storage.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/thumbfast/server/internal/module/history"
)

// Config holds archive configuration.
type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
}

// objectPutter is the subset of the S3 client the archive needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive writes every image of a history entry as its own object.
type Archive struct {
	client objectPutter
	bucket string
	prefix string
	logger *zap.Logger
}

// NewArchive creates an archive backed by S3 or any S3-compatible endpoint.
func NewArchive(ctx context.Context, cfg *Config, logger *zap.Logger) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket not configured")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
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
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newArchive(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func newArchive(client objectPutter, bucket, prefix string, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.Named("archive"),
	}
}

// Store uploads the images of entry. It keeps going after a failed upload
// and returns the joined errors.
func (a *Archive) Store(ctx context.Context, entry *history.Entry) error {
	var errs []error
	for i, img := range entry.Images {
		key := a.objectKey(entry.ID, i, img.MediaType)
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(a.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(img.Data),
			ContentLength: aws.Int64(int64(len(img.Data))),
			ContentType:   aws.String(img.MediaType),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("put %s: %w", key, err))
			continue
		}
		a.logger.Debug("image archived", zap.String("key", key), zap.Int("bytes", len(img.Data)))
	}
	return errors.Join(errs...)
}

func (a *Archive) objectKey(entryID string, n int, mediaType string) string {
	return path.Join(a.prefix, entryID, fmt.Sprintf("%d%s", n, extension(mediaType)))
}

func extension(mediaType string) string {
	switch strings.ToLower(mediaType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
