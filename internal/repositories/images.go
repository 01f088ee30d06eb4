package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Finn35/runnmate-server/internal/config"
)

// ImageStore serves listing photos from an R2 bucket. Browsers upload
// directly against presigned PUT URLs; the server only hands out URLs and
// verifies the object landed.
type ImageStore struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewImageStore initializes the R2 client using static credentials and the
// account's custom endpoint.
func NewImageStore(cfg config.R2Config) *ImageStore {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &ImageStore{
		client:        client,
		bucket:        cfg.BucketName,
		publicBaseURL: cfg.PublicBaseURL,
	}
}

// PresignPut creates a presigned URL for uploading a listing photo.
func (s *ImageStore) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	presigner := s3.NewPresignClient(s.client)
	req, err := presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// ObjectExists checks whether the uploaded object actually landed before its
// URL is attached to a listing.
func (s *ImageStore) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NotFound
		if errors.As(err, &nsk) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PublicURL is the browser-facing URL stored on the listing image row.
func (s *ImageStore) PublicURL(key string) string {
	return s.publicBaseURL + "/" + key
}
