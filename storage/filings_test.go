package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveUnconfigured(t *testing.T) {
	var s *FilingStorage
	_, err := s.Archive(context.Background(), 1, "table.json", []byte("{}"), "application/json")
	require.Error(t, err)

	_, err = (&FilingStorage{}).Archive(context.Background(), 1, "table.json", []byte("{}"), "application/json")
	assert.Error(t, err)
}

func TestPresignedURLUnconfigured(t *testing.T) {
	var s *FilingStorage
	_, err := s.PresignedURL(context.Background(), "filings/1/table.json", time.Minute)
	require.Error(t, err)

	_, err = (&FilingStorage{}).PresignedURL(context.Background(), "filings/1/table.json", time.Minute)
	assert.Error(t, err)
}

func TestNewFilingStorageFromEnvUnset(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "")
	t.Setenv("MINIO_ACCESS_KEY", "")
	t.Setenv("MINIO_SECRET_KEY", "")
	t.Setenv("MINIO_BUCKET", "")

	s, err := NewFilingStorageFromEnv()
	require.NoError(t, err)
	assert.Nil(t, s)
}
