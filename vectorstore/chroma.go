package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Document is a single embeddable record destined for a collection.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]interface{}
}

// QueryResult carries one query's ranked matches after the per-batch
// nesting of the Chroma wire format has been unwrapped. Distances are
// ascending (lower = more similar). Get responses leave Distances empty.
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]interface{}
	Distances []float64
}

// Client talks to a Chroma server over its REST API. It is constructed
// explicitly and injected by the composition root; there is no ambient
// process-wide instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
	embedder   Embedder

	mu            sync.Mutex
	collectionIDs map[string]string
}

// NewClientFromEnv constructs a Client using environment variables.
//
// Expected variables:
//   - CHROMA_URL: optional base URL (defaults to http://localhost:8000)
//   - CHROMA_AUTH_TOKEN: optional bearer token
//
// The query embedder is configured from the EMBEDDING_* variables.
func NewClientFromEnv() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("CHROMA_URL"))
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("vectorstore: invalid Chroma URL %q", baseURL)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("vectorstore: parse Chroma URL: %w", err)
	}

	embedder, err := NewHTTPEmbedderFromEnv()
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       baseURL,
		authToken:     strings.TrimSpace(os.Getenv("CHROMA_AUTH_TOKEN")),
		embedder:      embedder,
		collectionIDs: make(map[string]string),
	}, nil
}

// NewClient wires a Client against an explicit endpoint and embedder.
// Used by tests; production setup goes through NewClientFromEnv.
func NewClient(baseURL string, embedder Embedder) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       strings.TrimRight(baseURL, "/"),
		embedder:      embedder,
		collectionIDs: make(map[string]string),
	}
}

// EnsureCollection creates the named collection if it does not exist and
// caches its identifier. The health endpoint calls this for both
// partitions to exercise the storage setup path.
func (c *Client) EnsureCollection(ctx context.Context, name string) error {
	if c == nil {
		return errors.New("vectorstore: client is not configured")
	}
	_, err := c.collectionID(ctx, name)
	return err
}

func (c *Client) collectionID(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("vectorstore: collection name is required")
	}

	c.mu.Lock()
	cached, ok := c.collectionIDs[name]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	payload := map[string]interface{}{
		"name":          name,
		"get_or_create": true,
		"metadata":      map[string]interface{}{"hnsw:space": "cosine"},
	}
	var decoded struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/api/v1/collections", payload, &decoded); err != nil {
		return "", fmt.Errorf("vectorstore: ensure collection %q: %w", name, err)
	}
	if decoded.ID == "" {
		return "", fmt.Errorf("vectorstore: collection %q resolved to empty id", name)
	}

	c.mu.Lock()
	c.collectionIDs[name] = decoded.ID
	c.mu.Unlock()
	return decoded.ID, nil
}

// Add embeds and upserts the given documents into a collection.
func (c *Client) Add(ctx context.Context, collection string, docs []Document) error {
	if c == nil {
		return errors.New("vectorstore: client is not configured")
	}
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	embeddings, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("vectorstore: embedding count mismatch (expected %d, got %d)", len(docs), len(embeddings))
	}

	collectionID, err := c.collectionID(ctx, collection)
	if err != nil {
		return err
	}

	ids := make([]string, len(docs))
	documents := make([]string, len(docs))
	metadatas := make([]map[string]interface{}, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
		documents[i] = doc.Text
		metadatas[i] = doc.Metadata
	}

	payload := map[string]interface{}{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  documents,
		"metadatas":  metadatas,
	}
	endpoint := fmt.Sprintf("/api/v1/collections/%s/add", url.PathEscape(collectionID))
	if err := c.post(ctx, endpoint, payload, nil); err != nil {
		return fmt.Errorf("vectorstore: add to %q: %w", collection, err)
	}
	return nil
}

// Query embeds the text and returns the ranked matches from a collection,
// optionally restricted by a metadata where-filter. The server groups
// results per query text; this client only ever sends a single text, so
// the response is unwrapped to the first group here and nowhere else.
func (c *Client) Query(ctx context.Context, collection string, text string, limit int, where map[string]interface{}) (QueryResult, error) {
	if c == nil {
		return QueryResult{}, errors.New("vectorstore: client is not configured")
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return QueryResult{}, errors.New("vectorstore: query text cannot be empty")
	}
	if limit <= 0 {
		limit = 5
	}

	embeddings, err := c.embedder.Embed(ctx, []string{trimmed})
	if err != nil {
		return QueryResult{}, err
	}
	if len(embeddings) == 0 {
		return QueryResult{}, errors.New("vectorstore: embedder returned no vectors")
	}

	collectionID, err := c.collectionID(ctx, collection)
	if err != nil {
		return QueryResult{}, err
	}

	payload := map[string]interface{}{
		"query_embeddings": [][]float32{embeddings[0]},
		"n_results":        limit,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if len(where) > 0 {
		payload["where"] = where
	}

	var decoded struct {
		IDs       [][]string                 `json:"ids"`
		Documents [][]*string                `json:"documents"`
		Metadatas [][]map[string]interface{} `json:"metadatas"`
		Distances [][]float64                `json:"distances"`
	}
	endpoint := fmt.Sprintf("/api/v1/collections/%s/query", url.PathEscape(collectionID))
	if err := c.post(ctx, endpoint, payload, &decoded); err != nil {
		return QueryResult{}, fmt.Errorf("vectorstore: query %q: %w", collection, err)
	}

	result := QueryResult{}
	if len(decoded.IDs) > 0 {
		result.IDs = decoded.IDs[0]
	}
	if len(decoded.Documents) > 0 {
		result.Documents = flattenDocuments(decoded.Documents[0])
	}
	if len(decoded.Metadatas) > 0 {
		result.Metadatas = decoded.Metadatas[0]
	}
	if len(decoded.Distances) > 0 {
		result.Distances = decoded.Distances[0]
	}
	return result, nil
}

// Get fetches documents by metadata filter without a similarity search.
// The temporal filters and title backfill use this path, so no embedding
// call is made for metadata-only re-fetches.
func (c *Client) Get(ctx context.Context, collection string, where map[string]interface{}, limit int) (QueryResult, error) {
	if c == nil {
		return QueryResult{}, errors.New("vectorstore: client is not configured")
	}
	collectionID, err := c.collectionID(ctx, collection)
	if err != nil {
		return QueryResult{}, err
	}

	payload := map[string]interface{}{
		"include": []string{"documents", "metadatas"},
	}
	if len(where) > 0 {
		payload["where"] = where
	}
	if limit > 0 {
		payload["limit"] = limit
	}

	var decoded struct {
		IDs       []string                 `json:"ids"`
		Documents []*string                `json:"documents"`
		Metadatas []map[string]interface{} `json:"metadatas"`
	}
	endpoint := fmt.Sprintf("/api/v1/collections/%s/get", url.PathEscape(collectionID))
	if err := c.post(ctx, endpoint, payload, &decoded); err != nil {
		return QueryResult{}, fmt.Errorf("vectorstore: get from %q: %w", collection, err)
	}

	return QueryResult{
		IDs:       decoded.IDs,
		Documents: flattenDocuments(decoded.Documents),
		Metadatas: decoded.Metadatas,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body := &bytes.Buffer{}
	if err := json.NewEncoder(body).Encode(payload); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func flattenDocuments(values []*string) []string {
	result := make([]string, len(values))
	for i, value := range values {
		if value != nil {
			result[i] = *value
		}
	}
	return result
}
