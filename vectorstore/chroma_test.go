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

type stubEmbedder struct {
	calls  int
	inputs [][]string
}

func (s *stubEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	s.calls++
	s.inputs = append(s.inputs, inputs)
	vectors := make([][]float32, len(inputs))
	for i := range inputs {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

// fakeChroma emulates the slice of the REST API the client touches.
type fakeChroma struct {
	collectionCreates int
	lastAddBody       map[string]interface{}
	lastQueryBody     map[string]interface{}
	lastGetBody       map[string]interface{}
}

func (f *fakeChroma) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		f.collectionCreates++
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "col-1", "name": "content"})
	})
	mux.HandleFunc("/api/v1/collections/col-1/add", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&f.lastAddBody)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/api/v1/collections/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&f.lastQueryBody)
		doc := "The board approved a dividend."
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ids":       [][]string{{"5_1"}},
			"documents": [][]*string{{&doc}},
			"metadatas": [][]map[string]interface{}{{
				{"notification_id": 5, "title": "Dividend"},
			}},
			"distances": [][]float64{{0.42}},
		})
	})
	mux.HandleFunc("/api/v1/collections/col-1/get", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&f.lastGetBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ids":       []string{"5_0"},
			"documents": []*string{nil},
			"metadatas": []map[string]interface{}{
				{"notification_id": 5, "title": "Dividend", "is_title": true},
			},
		})
	})
	return mux
}

func TestQueryUnwrapsNestedResponse(t *testing.T) {
	fake := &fakeChroma{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := NewClient(server.URL, &stubEmbedder{})
	result, err := client.Query(context.Background(), "content", "dividend", 3, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"5_1"}, result.IDs)
	assert.Equal(t, []string{"The board approved a dividend."}, result.Documents)
	require.Len(t, result.Metadatas, 1)
	assert.Equal(t, "Dividend", result.Metadatas[0]["title"])
	assert.Equal(t, []float64{0.42}, result.Distances)

	assert.Equal(t, float64(3), fake.lastQueryBody["n_results"])
	assert.NotContains(t, fake.lastQueryBody, "where")
}

func TestQuerySendsWhereFilter(t *testing.T) {
	fake := &fakeChroma{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := NewClient(server.URL, &stubEmbedder{})
	_, err := client.Query(context.Background(), "content", "acme", 5, map[string]interface{}{"is_title": true})
	require.NoError(t, err)

	where, ok := fake.lastQueryBody["where"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, where["is_title"])
}

func TestQueryRejectsEmptyText(t *testing.T) {
	client := NewClient("http://localhost:1", &stubEmbedder{})
	_, err := client.Query(context.Background(), "content", "   ", 3, nil)
	require.Error(t, err)
}

func TestGetDecodesFlatResponse(t *testing.T) {
	fake := &fakeChroma{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	embedder := &stubEmbedder{}
	client := NewClient(server.URL, embedder)
	result, err := client.Get(context.Background(), "content", map[string]interface{}{"is_title": true}, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"5_0"}, result.IDs)
	assert.Equal(t, []string{""}, result.Documents)
	require.Len(t, result.Metadatas, 1)
	assert.Empty(t, result.Distances)

	// Metadata-only fetches never embed.
	assert.Zero(t, embedder.calls)
	assert.Equal(t, float64(10), fake.lastGetBody["limit"])
}

func TestCollectionIDCached(t *testing.T) {
	fake := &fakeChroma{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := NewClient(server.URL, &stubEmbedder{})
	require.NoError(t, client.EnsureCollection(context.Background(), "content"))
	require.NoError(t, client.EnsureCollection(context.Background(), "content"))

	_, err := client.Query(context.Background(), "content", "anything", 3, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.collectionCreates)
}

func TestAddSendsDocuments(t *testing.T) {
	fake := &fakeChroma{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	embedder := &stubEmbedder{}
	client := NewClient(server.URL, embedder)
	err := client.Add(context.Background(), "content", []Document{
		{ID: "5_0", Text: "Dividend", Metadata: map[string]interface{}{"is_title": true}},
		{ID: "5_1", Text: "The board approved a dividend.", Metadata: map[string]interface{}{"is_title": false}},
	})
	require.NoError(t, err)

	require.NotNil(t, fake.lastAddBody)
	ids, ok := fake.lastAddBody["ids"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"5_0", "5_1"}, ids)

	embeddings, ok := fake.lastAddBody["embeddings"].([]interface{})
	require.True(t, ok)
	assert.Len(t, embeddings, 2)

	require.Len(t, embedder.inputs, 1)
	assert.Equal(t, []string{"Dividend", "The board approved a dividend."}, embedder.inputs[0])
}

func TestAddEmptyBatchIsNoop(t *testing.T) {
	client := NewClient("http://localhost:1", &stubEmbedder{})
	require.NoError(t, client.Add(context.Background(), "content", nil))
}

func TestPostSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "collection store unavailable"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, &stubEmbedder{})
	err := client.EnsureCollection(context.Background(), "content")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection store unavailable")
}
