package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReportStorage keeps generated ledger exports in object storage.
type ReportStorage interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, objectName, contentType string, reader io.Reader, objectSize int64) error
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

type minioReportStorage struct {
	client *minio.Client
	bucket string
}

func NewMinioReportStorage(endpoint, accessKey, secretKey, bucket string, useSSL bool) (ReportStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioReportStorage{client: client, bucket: bucket}, nil
}

func (m *minioReportStorage) EnsureBucket(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *minioReportStorage) Upload(ctx context.Context, objectName, contentType string, reader io.Reader, objectSize int64) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, objectSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (m *minioReportStorage) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, expiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

// MovementExportKey names the object holding a movement export generated at t.
func MovementExportKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("exports/movements/%04d/%02d/%02d/%s.csv", t.Year(), int(t.Month()), t.Day(), t.Format("20060102T150405Z"))
}
