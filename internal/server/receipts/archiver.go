// Package receipts archives verified payments to S3-compatible object
// storage (MinIO in development).
package receipts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/storefront/internal/server/config"
	"github.com/dmitrijs2005/storefront/internal/server/models"
)

// Archiver stores a copy of a verified payment.
type Archiver interface {
	Archive(ctx context.Context, payment *models.Payment) error
}

// ObjectPutter is the subset of *s3.Client used by S3Archiver.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Nop discards payments. It is used when archiving is disabled.
type Nop struct{}

func (Nop) Archive(context.Context, *models.Payment) error { return nil }

type S3Archiver struct {
	client ObjectPutter
	bucket string
}

func NewS3Archiver(client ObjectPutter, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

// Archive writes payment as JSON under Key(payment).
func (a *S3Archiver) Archive(ctx context.Context, payment *models.Payment) error {
	body, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(Key(payment)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put receipt: %w", err)
	}
	return nil
}

// Key returns payments/YYYY/MM/DD/<payment_id>.json, dated by CreatedAt in UTC.
func Key(payment *models.Payment) string {
	id := strings.ReplaceAll(payment.PaymentID, "/", "_")
	return fmt.Sprintf("payments/%s/%s.json", payment.CreatedAt.UTC().Format("2006/01/02"), id)
}

var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// New returns an S3Archiver configured from cfg, or Nop when receipts are
// disabled.
func New(ctx context.Context, cfg *config.Config) (Archiver, error) {
	if !cfg.ReceiptsEnabled {
		return Nop{}, nil
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return NewS3Archiver(client, cfg.S3Bucket), nil
}
