package chatbot

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"kapchat_back/cache"
	"kapchat_back/llm"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxResults = 3
	defaultDistance   = 0.86
	defaultStartDate  = "2025-01-01"
	defaultEndDate    = "2025-05-01"
	defaultPeriod     = "3 Aylık"
)

// Module wires the retrieval pipeline behind the public HTTP surface.
type Module struct {
	service    *Service
	classifier *Classifier
}

// queryRequest uses pointers for the optional fields so an absent field
// takes the documented default while an explicit empty value disables the
// corresponding filter.
type queryRequest struct {
	Question   string   `json:"question" binding:"required"`
	MaxResults *int     `json:"max_results"`
	Distance   *float64 `json:"distance"`
	StartDate  *string  `json:"start_date"`
	EndDate    *string  `json:"end_date"`
	Period     *string  `json:"period"`
}

type companySearchRequest struct {
	Company string `json:"company" binding:"required"`
}

// RegisterRoutes initialises the chatbot module against the injected
// vector index and registers the query endpoints.
func RegisterRoutes(router *gin.Engine, index Index) (*Module, error) {
	if index == nil {
		return nil, errors.New("chatbot: vector index is required")
	}

	chat, err := llm.NewChatClientFromEnv()
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if client, cacheErr := cache.GetRedisClient(); cacheErr != nil {
		log.Printf("chatbot: intent cache disabled: %v", cacheErr)
	} else {
		redisClient = client
	}

	contentCollection := getEnvDefault("CHROMA_CONTENT_COLLECTION", "content")
	tableCollection := getEnvDefault("CHROMA_TABLE_COLLECTION", "table")

	module := &Module{
		service:    NewService(index, contentCollection, tableCollection),
		classifier: NewClassifier(chat, newIntentCache(redisClient)),
	}

	router.POST("/query", module.handleQuery)
	router.POST("/company_search", module.handleCompanySearch)
	router.GET("/health", module.handleHealth)

	return module, nil
}

func getEnvDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value != "" {
		return value
	}
	return fallback
}

// handleQuery runs the full pipeline. This boundary favors availability:
// every internal failure collapses to an empty-disclosures answer with
// status 200, and the cause only reaches the logs.
func (m *Module) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	maxResults := defaultMaxResults
	if req.MaxResults != nil {
		maxResults = *req.MaxResults
	}
	distance := defaultDistance
	if req.Distance != nil {
		distance = *req.Distance
	}
	startDate := defaultStartDate
	if req.StartDate != nil {
		startDate = strings.TrimSpace(*req.StartDate)
	}
	endDate := defaultEndDate
	if req.EndDate != nil {
		endDate = strings.TrimSpace(*req.EndDate)
	}
	period := defaultPeriod
	if req.Period != nil {
		period = strings.TrimSpace(*req.Period)
	}

	ctx := c.Request.Context()

	intent, classifyErr := m.classifier.Classify(ctx, req.Question)
	if classifyErr != nil {
		// Degraded, not fatal: the fallback intent still runs the pipeline.
		log.Printf("chatbot: intent classification degraded: %v", classifyErr)
	}

	question := gin.H{"query": req.Question}
	if classifyErr == nil {
		question = gin.H{
			"query_type": intent.QueryType,
			"args": gin.H{
				"query":               intent.Query,
				"company":             intent.Company,
				"keywords":            intent.Keywords,
				"required_operations": intent.RequiredOperations,
			},
		}
	}

	result, err := m.service.SearchDisclosures(ctx, SearchRequest{
		Query:             intent.Query,
		QueryType:         intent.QueryType,
		Company:           intent.Company,
		MaxResults:        maxResults,
		DistanceThreshold: distance,
		StartDate:         startDate,
		EndDate:           endDate,
		Period:            period,
	})
	if err != nil {
		log.Printf("chatbot: query pipeline failed: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"question": gin.H{"query": req.Question},
			"answers":  gin.H{"disclosures": []Disclosure{}},
		})
		return
	}

	if result.TotalResults == 0 {
		c.JSON(http.StatusOK, gin.H{
			"question": question,
			"answers":  gin.H{"disclosures": []Disclosure{}},
		})
		return
	}

	answers := gin.H{}
	disclosures, formatErr := FormatDisclosures(result, maxResults)
	if formatErr != nil {
		answers["error"] = formatErr.Error()
	} else {
		answers["disclosures"] = disclosures
	}

	c.JSON(http.StatusOK, gin.H{"question": question, "answers": answers})
}

// handleCompanySearch surfaces failures explicitly with a 500, unlike the
// query boundary.
func (m *Module) handleCompanySearch(c *gin.Context) {
	var req companySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	result, err := m.service.CompanySearch(c.Request.Context(), req.Company)
	if err != nil {
		log.Printf("chatbot: company search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	answers := gin.H{}
	matches, formatErr := FormatCompanyMatches(result, companyCandidateLimit)
	if formatErr != nil {
		answers["error"] = formatErr.Error()
	} else {
		answers["disclosures"] = matches
	}

	c.JSON(http.StatusOK, gin.H{"question": req.Company, "answers": answers})
}

func (m *Module) handleHealth(c *gin.Context) {
	if err := m.service.HealthCheck(c.Request.Context()); err != nil {
		log.Printf("chatbot: health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
