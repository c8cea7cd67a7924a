package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

type S3Config struct {
	Endpoint        string // empty for AWS itself
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// S3Archiver stores copies of outgoing documents in an S3-compatible bucket.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
}

type UploadResult struct {
	Key      string
	Size     int64
	Checksum string
}

// NewS3Archiver creates a client configured for AWS or any S3-compatible endpoint (MinIO, Spaces).
func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &S3Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		now:    time.Now,
	}, nil
}

// UploadFile uploads a file to S3 and returns the result
func (a *S3Archiver) UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*UploadResult, error) {
	result, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return &UploadResult{
		Key:      key,
		Size:     size,
		Checksum: strings.Trim(aws.ToString(result.ETag), `"`),
	}, nil
}

// ArchiveHTML stores an HTML document under <prefix>/<yyyy>/<mm>/<dd>/<uuid>-<name>.html.
func (a *S3Archiver) ArchiveHTML(ctx context.Context, name, html string) (*UploadResult, error) {
	key := a.objectKey(name, ".html")
	body := []byte(html)
	return a.UploadFile(ctx, key, bytes.NewReader(body), int64(len(body)), "text/html; charset=utf-8")
}

func (a *S3Archiver) objectKey(name, ext string) string {
	day := a.now().UTC().Format("2006/01/02")
	return path.Join(a.prefix, day, uuid.NewString()+"-"+name+ext)
}
