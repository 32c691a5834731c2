package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const maxFilingBytes int64 = 32 * 1024 * 1024

// FilingStorage archives raw filing exports (serialized table rows,
// source spreadsheets) in MinIO/S3 so the indexed form can always be
// traced back to the source document.
type FilingStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewFilingStorageFromEnv initialises FilingStorage using MINIO_* environment
// variables. Returns (nil, nil) when the variables are unset, which disables
// archiving entirely.
func NewFilingStorageFromEnv() (*FilingStorage, error) {
	endpoint := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	accessKey := strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY"))
	bucket := strings.TrimSpace(os.Getenv("MINIO_BUCKET"))
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, nil
	}

	useSSL := strings.EqualFold(strings.TrimSpace(os.Getenv("MINIO_USE_SSL")), "true")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	publicURL := strings.TrimSpace(os.Getenv("MINIO_PUBLIC_URL"))
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	return &FilingStorage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Archive stores a raw filing payload beneath filings/<notification_id>/
// and returns the object name.
func (s *FilingStorage) Archive(ctx context.Context, notificationID int64, name string, payload []byte, contentType string) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("storage: filing storage is not configured")
	}
	if notificationID <= 0 {
		return "", errors.New("storage: notification id must be positive")
	}
	if len(payload) == 0 {
		return "", errors.New("storage: payload is empty")
	}
	if int64(len(payload)) > maxFilingBytes {
		return "", fmt.Errorf("storage: payload exceeds %d bytes", maxFilingBytes)
	}

	base := strings.TrimSpace(path.Base(name))
	if base == "" || base == "." || base == "/" {
		base = uuid.NewString()
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectName := fmt.Sprintf("filings/%d/%s", notificationID, base)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object %s: %w", objectName, err)
	}
	return objectName, nil
}

// PresignedURL signs a time-limited download link for an archived filing.
func (s *FilingStorage) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("storage: filing storage is not configured")
	}
	trimmed := strings.TrimPrefix(strings.TrimSpace(objectName), "/")
	if trimmed == "" {
		return "", errors.New("storage: object name is required")
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	signed, err := s.client.PresignedGetObject(ctx, s.bucket, trimmed, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", trimmed, err)
	}
	return signed.String(), nil
}
