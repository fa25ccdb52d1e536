// Package qrexport renders a set's QR entry points as PNG images and
// uploads them to an S3-compatible bucket for printing and distribution.
package qrexport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/pkg/config"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

var ErrSetNotFound = errors.New("qr code set not found")

const imageSize = 512

// ObjectStore abstracts the bucket so tests can capture uploads in memory.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// S3Store uploads objects to S3 or any S3-compatible endpoint.
type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(ctx context.Context, cfg config.ExportConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}

type Service struct {
	db      *gorm.DB
	store   ObjectStore
	baseURL string
	logger  *slog.Logger
}

func NewService(db *gorm.DB, store ObjectStore, baseURL string, logger *slog.Logger) *Service {
	return &Service{db: db, store: store, baseURL: baseURL, logger: logger}
}

// ExportSet renders every active entry of the set as a QR PNG and uploads
// it. Returns the number of images written.
func (s *Service) ExportSet(ctx context.Context, orgID, setID uuid.UUID) (int, error) {
	var set models.QRCodeSet
	if err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("id = ? AND organization_id = ?", setID, orgID).
		First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrSetNotFound
		}
		return 0, err
	}

	entries, err := set.Entries()
	if err != nil {
		return 0, fmt.Errorf("decoding qr entries: %w", err)
	}

	orgSlug := ""
	if set.Organization != nil {
		orgSlug = set.Organization.Slug
	}

	exported := 0
	for _, entry := range entries {
		if !entry.Active {
			continue
		}

		link := fmt.Sprintf("%s/register/%s/%s", s.baseURL, orgSlug, entry.Slug)
		png, err := qrcode.Encode(link, qrcode.Medium, imageSize)
		if err != nil {
			return exported, fmt.Errorf("encoding qr for entry %s: %w", entry.ID, err)
		}

		key := fmt.Sprintf("%s/%s/%s.png", orgID, setID, entry.ID)
		if err := s.store.Put(ctx, key, "image/png", png); err != nil {
			return exported, fmt.Errorf("uploading qr image %s: %w", key, err)
		}
		exported++
	}

	s.logger.Info("exported qr code set", "set_id", setID, "images", exported)
	return exported, nil
}
