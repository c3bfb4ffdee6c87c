package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Service uploads profile pictures to Amazon S3 (or compatible APIs). It is
// the alternative backend for deployments without a blob-store token.
type S3Service struct {
	uploader  *manager.Uploader
	bucket    string
	region    string
	publicURL string
}

// NewS3Service builds an S3 backend. publicURL overrides the URL base for
// S3-compatible endpoints; when empty the standard AWS bucket host is used.
func NewS3Service(client *s3.Client, bucket, region, publicURL string) *S3Service {
	return &S3Service{
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		region:    region,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *S3Service) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("storage bucket is required")
	}

	key, err := RandomKey(filename)
	if err != nil {
		return "", err
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

var _ Service = (*S3Service)(nil)
