// Package archive keeps a copy of every uploaded import file in S3.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	appConfig "furniture-erp/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Interface defines the archive operations used by the import service
type S3Interface interface {
	ArchiveUpload(ctx context.Context, filename string, content []byte) (string, error)
	GetPresignedURL(ctx context.Context, key string) (string, error)
}

// S3Archive stores uploads in a bucket under a key prefix
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archive builds the S3 client from the storage configuration. Static
// credentials are used when set, otherwise the default AWS chain.
func NewS3Archive(ctx context.Context, cfg appConfig.StorageConfig) (*S3Archive, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		now:    time.Now,
	}, nil
}

// ObjectKey builds <prefix><yyyy/mm/dd>/<unix>_<filename>
func ObjectKey(prefix, filename string, at time.Time) string {
	name := strings.ReplaceAll(filepath.Base(filename), " ", "_")
	return fmt.Sprintf("%s%s/%d_%s", prefix, at.UTC().Format("2006/01/02"), at.Unix(), name)
}

// ContentType guesses the MIME type of an import file from its extension
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".tsv":
		return "text/tab-separated-values"
	case ".csv":
		return "text/csv"
	}
	return "text/plain"
}

// ArchiveUpload stores the raw upload and returns its key
func (a *S3Archive) ArchiveUpload(ctx context.Context, filename string, content []byte) (string, error) {
	key := ObjectKey(a.prefix, filename, a.now())

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(ContentType(filename)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

// GetPresignedURL returns a download URL valid for one hour
func (a *S3Archive) GetPresignedURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	presignClient := s3.NewPresignClient(a.client)
	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = time.Hour
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return request.URL, nil
}
