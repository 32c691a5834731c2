package ingest

import (
	"context"
	"testing"

	"kapchat_back/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContentDocsNumbering(t *testing.T) {
	body := []string{"First body chunk.", "Second body chunk."}
	docs, records := buildContentDocs(42, "Acme Q1 Report", "2025-02-10", "3 Aylık", body)

	require.Len(t, docs, 3)
	require.Len(t, records, 3)

	// Title record: chunk index 0, is_title, the title as document text.
	title := docs[0]
	assert.Equal(t, "42_0", title.ID)
	assert.Equal(t, "Acme Q1 Report", title.Text)
	assert.Equal(t, true, title.Metadata["is_title"])
	assert.Equal(t, 0, title.Metadata["chunk_index"])
	assert.Equal(t, 2, title.Metadata["total_chunks"])
	assert.Equal(t, int64(42), title.Metadata["notification_id"])
	assert.Equal(t, "", title.Metadata["content"])

	assert.Equal(t, "42_0", records[0].VectorID)
	assert.True(t, records[0].IsTitle)
	assert.Equal(t, 0, records[0].ChunkIndex)
	assert.Equal(t, "Acme Q1 Report", records[0].Content)

	// Body chunks: 1-based indices, total_chunks equal to the body count.
	for i, chunk := range body {
		doc := docs[i+1]
		record := records[i+1]

		assert.Equal(t, false, doc.Metadata["is_title"])
		assert.Equal(t, i+1, doc.Metadata["chunk_index"])
		assert.Equal(t, 2, doc.Metadata["total_chunks"])
		assert.Equal(t, chunk, doc.Text)
		assert.Equal(t, chunk, doc.Metadata["content"])
		assert.Equal(t, "2025-02-10", doc.Metadata["history"])
		assert.Equal(t, "3 Aylık", doc.Metadata["period"])

		assert.False(t, record.IsTitle)
		assert.Equal(t, i+1, record.ChunkIndex)
		assert.Equal(t, 2, record.TotalChunks)
		assert.Equal(t, doc.ID, record.VectorID)
	}
	assert.Equal(t, "42_1", docs[1].ID)
	assert.Equal(t, "42_2", docs[2].ID)
}

func TestBuildContentDocsTitleOnly(t *testing.T) {
	docs, records := buildContentDocs(7, "Short Disclosure", "2025-03-01", "", nil)

	require.Len(t, docs, 1)
	require.Len(t, records, 1)
	assert.Equal(t, "7_0", docs[0].ID)
	assert.Equal(t, 0, docs[0].Metadata["total_chunks"])
	assert.True(t, records[0].IsTitle)
}

func TestFilingURLArchiveDisabled(t *testing.T) {
	service := &Service{}
	_, err := service.FilingURL(context.Background(), "filings/1/table.json")
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}

func TestFilingURLUnconfiguredStorage(t *testing.T) {
	service := &Service{filings: &storage.FilingStorage{}}
	_, err := service.FilingURL(context.Background(), "filings/1/table.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrArchiveDisabled)
}
