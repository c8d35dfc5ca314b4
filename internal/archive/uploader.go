package archive

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "rentledger-backend/internal/config"
)

// Uploader pushes exported report artifacts to an S3-compatible bucket
// (Cloudflare R2 in the default deployment). A nil Uploader is valid and
// drops every upload, so the rest of the app never branches on whether
// archiving is configured.
type Uploader struct {
	client *s3.Client
	bucket string
}

// NewUploader builds the S3 client from the archive config section. Returns
// nil (not an error) when archiving is disabled.
func NewUploader(ctx context.Context, cfg *appconfig.Config) (*Uploader, error) {
	if !cfg.Archive.Enabled {
		log.Println("[Archive] Not configured, report artifacts stay local")
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Archive.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure archive client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Archive.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Archive.Endpoint)
		}
	})

	log.Printf("[Archive] Uploading artifacts to bucket %s", cfg.Archive.Bucket)
	return &Uploader{client: client, bucket: cfg.Archive.Bucket}, nil
}

// Upload stores one artifact under the given key.
func (u *Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if u == nil {
		return nil
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	log.Printf("[Archive] Uploaded %s (%d bytes)", key, len(data))
	return nil
}
