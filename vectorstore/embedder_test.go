package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbeddingServer(t *testing.T, requests *[]embeddingRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)

		data := make([]map[string]interface{}, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]interface{}{
				"index":     i,
				"embedding": []float64{0.1, 0.2, 0.3},
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}))
}

func TestEmbedBatchesInputs(t *testing.T) {
	var requests []embeddingRequest
	server := newEmbeddingServer(t, &requests)
	defer server.Close()

	embedder := &httpEmbedder{
		httpClient: server.Client(),
		baseURL:    server.URL + "/v1",
		modelID:    "all-MiniLM-L6-v2",
		maxBatch:   2,
	}

	vectors, err := embedder.Embed(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vectors[0])

	require.Len(t, requests, 2)
	assert.Equal(t, []string{"one", "two"}, requests[0].Input)
	assert.Equal(t, []string{"three"}, requests[1].Input)
	assert.Equal(t, "all-MiniLM-L6-v2", requests[0].Model)
}

func TestEmbedSkipsEmptyInputs(t *testing.T) {
	var requests []embeddingRequest
	server := newEmbeddingServer(t, &requests)
	defer server.Close()

	embedder := &httpEmbedder{
		httpClient: server.Client(),
		baseURL:    server.URL + "/v1",
		modelID:    "all-MiniLM-L6-v2",
		maxBatch:   16,
	}

	vectors, err := embedder.Embed(context.Background(), []string{"  ", "first", ""})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	require.Len(t, requests, 1)
	assert.Equal(t, []string{"first"}, requests[0].Input)
}

func TestEmbedAllEmptyInputs(t *testing.T) {
	embedder := &httpEmbedder{
		httpClient: http.DefaultClient,
		baseURL:    "http://localhost:1/v1",
		modelID:    "all-MiniLM-L6-v2",
		maxBatch:   16,
	}

	vectors, err := embedder.Embed(context.Background(), []string{"", "   "})
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedDimensionCheck(t *testing.T) {
	var requests []embeddingRequest
	server := newEmbeddingServer(t, &requests)
	defer server.Close()

	embedder := &httpEmbedder{
		httpClient: server.Client(),
		baseURL:    server.URL + "/v1",
		modelID:    "all-MiniLM-L6-v2",
		maxBatch:   16,
		expectDim:  384,
	}

	_, err := embedder.Embed(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match expected")
}

func TestEmbedSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "model not loaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	embedder := &httpEmbedder{
		httpClient: server.Client(),
		baseURL:    server.URL + "/v1",
		modelID:    "all-MiniLM-L6-v2",
		maxBatch:   16,
	}

	_, err := embedder.Embed(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}
