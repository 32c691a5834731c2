package ingest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kapchat_back/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilingRouter(service *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	module := &Module{service: service}
	router := gin.New()
	router.GET("/ingest/filings/*object", module.handleFilingURL)
	return router
}

func TestHandleFilingURLArchiveDisabled(t *testing.T) {
	router := newFilingRouter(&Service{})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ingest/filings/filings/42/table.json", nil))
	require.Equal(t, http.StatusNotFound, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "filing archive is not configured", body["error"])
}

func TestHandleFilingURLEmptyObject(t *testing.T) {
	router := newFilingRouter(&Service{})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ingest/filings/", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleFilingURLSigningFailure(t *testing.T) {
	router := newFilingRouter(&Service{filings: &storage.FilingStorage{}})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ingest/filings/filings/42/table.json", nil))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
