package chatbot

import (
	"context"
	"errors"
	"log"
	"strings"

	"kapchat_back/vectorstore"
)

// Index is the vector-query capability the pipeline consumes. Query runs
// a similarity search; Get fetches records by metadata filter only, with
// no embedding involved; EnsureCollection exercises the storage setup
// path and backs the health endpoint.
type Index interface {
	Query(ctx context.Context, collection string, text string, limit int, where map[string]interface{}) (vectorstore.QueryResult, error)
	Get(ctx context.Context, collection string, where map[string]interface{}, limit int) (vectorstore.QueryResult, error)
	EnsureCollection(ctx context.Context, name string) error
}

const (
	// Candidates requested from the store per company lookup.
	companyCandidateLimit = 5
	// Matches accepted regardless of the requested limit.
	companyAcceptCap = 3
)

// Service runs the retrieval pipeline over the two index partitions. It
// holds no mutable state, so one instance serves concurrent requests.
type Service struct {
	index             Index
	contentCollection string
	tableCollection   string
}

// NewService wires the pipeline against an index and its two partitions.
func NewService(index Index, contentCollection string, tableCollection string) *Service {
	if contentCollection == "" {
		contentCollection = "content"
	}
	if tableCollection == "" {
		tableCollection = "table"
	}
	return &Service{
		index:             index,
		contentCollection: contentCollection,
		tableCollection:   tableCollection,
	}
}

// SearchRequest carries the arguments of one pipeline invocation.
type SearchRequest struct {
	Query             string
	QueryType         string
	Company           string
	MaxResults        int
	DistanceThreshold float64
	StartDate         string
	EndDate           string
	Period            string
}

// SearchDisclosures narrows the candidate set through company, date and
// period filters, then routes the query to the matching partition. Every
// nothing-found path returns the canonical empty result, never an error.
func (s *Service) SearchDisclosures(ctx context.Context, req SearchRequest) (*Result, error) {
	if s == nil || s.index == nil {
		return nil, errors.New("chatbot: service is not configured")
	}

	limit := req.MaxResults
	if limit <= 0 {
		limit = 5
	}
	queryType := strings.TrimSpace(req.QueryType)
	if queryType == "" {
		queryType = QueryTypeGeneral
	}

	var ids []int64
	if strings.TrimSpace(req.Company) != "" {
		resolved, err := s.resolveCompany(ctx, req.Company, req.DistanceThreshold, companyCandidateLimit)
		if err != nil {
			return nil, err
		}
		if len(resolved) == 0 {
			log.Printf("chatbot: no matching companies for %q", req.Company)
			return emptyResult(), nil
		}
		ids = resolved
		log.Printf("chatbot: company search found notification ids %v", ids)
	}

	if req.StartDate != "" && req.EndDate != "" && len(ids) > 0 {
		filtered, err := s.filterByDateRange(ctx, ids, req.StartDate, req.EndDate)
		if err != nil {
			return nil, err
		}
		if len(filtered) == 0 {
			log.Printf("chatbot: no results in date range %s..%s", req.StartDate, req.EndDate)
			return emptyResult(), nil
		}
		ids = filtered
	}

	if req.Period != "" && len(ids) > 0 {
		filtered, err := s.filterByPeriod(ctx, ids, req.Period)
		if err != nil {
			return nil, err
		}
		if len(filtered) == 0 {
			log.Printf("chatbot: no results for period %q", req.Period)
			return emptyResult(), nil
		}
		ids = filtered
	}

	return s.route(ctx, queryType, req.Query, ids, limit)
}

// CompanySearch returns the raw title-record matches for a company name,
// for the lighter company-search response shape.
func (s *Service) CompanySearch(ctx context.Context, company string) (*Result, error) {
	if s == nil || s.index == nil {
		return nil, errors.New("chatbot: service is not configured")
	}
	trimmed := strings.TrimSpace(company)
	if trimmed == "" {
		return nil, errors.New("chatbot: company name is required")
	}

	raw, err := s.index.Query(ctx, s.contentCollection, trimmed, companyCandidateLimit, map[string]interface{}{"is_title": true})
	if err != nil {
		return nil, err
	}
	return toResult(raw), nil
}

// HealthCheck exercises the storage setup path for both partitions.
func (s *Service) HealthCheck(ctx context.Context) error {
	for _, name := range []string{s.contentCollection, s.tableCollection} {
		if err := s.index.EnsureCollection(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// resolveCompany matches a company name against title records and returns
// the notification ids of the accepted candidates, deduplicated, capped
// at companyAcceptCap. The distance threshold is advisory: candidates at
// or above it are still accepted as fallback matches and only logged,
// matching long-standing behavior downstream consumers rely on.
func (s *Service) resolveCompany(ctx context.Context, company string, distanceThreshold float64, limit int) ([]int64, error) {
	raw, err := s.index.Query(ctx, s.contentCollection, company, limit, map[string]interface{}{"is_title": true})
	if err != nil {
		return nil, err
	}
	if len(raw.Metadatas) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, companyAcceptCap)
	seen := make(map[int64]struct{}, companyAcceptCap)
	for i, meta := range raw.Metadatas {
		id, ok := metaInt64(meta, "notification_id")
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}

		distance := 0.0
		if i < len(raw.Distances) {
			distance = raw.Distances[i]
		}
		if distance < distanceThreshold {
			log.Printf("chatbot: company match %q at distance %.2f", metaString(meta, "title"), distance)
		} else {
			log.Printf("chatbot: company match %q below similarity threshold (distance %.2f), kept as fallback", metaString(meta, "title"), distance)
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == companyAcceptCap {
			break
		}
	}
	return ids, nil
}

// filterByDateRange retains the ids whose disclosure date falls within
// [startDate, endDate]. Dates are zero-padded ISO strings, so plain
// string comparison orders them correctly.
func (s *Service) filterByDateRange(ctx context.Context, ids []int64, startDate string, endDate string) ([]int64, error) {
	raw, err := s.index.Get(ctx, s.contentCollection, whereTitleRecords(ids), len(ids))
	if err != nil {
		return nil, err
	}

	filtered := make([]int64, 0, len(ids))
	for _, meta := range raw.Metadatas {
		history := metaString(meta, "history")
		if history == "" || history < startDate || history > endDate {
			continue
		}
		if id, ok := metaInt64(meta, "notification_id"); ok {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

// filterByPeriod retains the ids whose reporting-period label matches
// exactly (case-sensitive).
func (s *Service) filterByPeriod(ctx context.Context, ids []int64, period string) ([]int64, error) {
	raw, err := s.index.Get(ctx, s.contentCollection, whereTitleRecords(ids), len(ids))
	if err != nil {
		return nil, err
	}

	filtered := make([]int64, 0, len(ids))
	for _, meta := range raw.Metadatas {
		if metaString(meta, "period") != period {
			continue
		}
		if id, ok := metaInt64(meta, "notification_id"); ok {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

// route dispatches the query to the partition matching the intent type.
// Financial queries hit the table partition and get their titles
// backfilled from the content partition, since table records carry none.
func (s *Service) route(ctx context.Context, queryType string, query string, ids []int64, limit int) (*Result, error) {
	var where map[string]interface{}
	if len(ids) > 0 {
		where = whereNotificationIn(ids)
	}

	switch queryType {
	case QueryTypeFinancial:
		raw, err := s.index.Query(ctx, s.tableCollection, query, limit, where)
		if err != nil {
			return nil, err
		}
		result := toResult(raw)
		if result.TotalResults == 0 {
			return result, nil
		}
		backfill := ids
		if len(backfill) == 0 {
			backfill = notificationIDs(result.Metadatas)
		}
		if err := s.backfillTitles(ctx, backfill, result); err != nil {
			return nil, err
		}
		return result, nil
	case QueryTypeGeneral:
		raw, err := s.index.Query(ctx, s.contentCollection, query, limit, where)
		if err != nil {
			return nil, err
		}
		return toResult(raw), nil
	default:
		// Unknown intent labels match neither partition.
		log.Printf("chatbot: unroutable query type %q", queryType)
		return emptyResult(), nil
	}
}

// backfillTitles copies each notification's title record into the
// matching table-result metadata.
func (s *Service) backfillTitles(ctx context.Context, ids []int64, result *Result) error {
	if len(ids) == 0 || result == nil || result.TotalResults == 0 {
		return nil
	}

	titles, err := s.index.Get(ctx, s.contentCollection, whereTitleRecords(ids), len(ids))
	if err != nil {
		return err
	}

	titleByID := make(map[int64]string, len(titles.Metadatas))
	for _, meta := range titles.Metadatas {
		if !metaBool(meta, "is_title") {
			continue
		}
		if id, ok := metaInt64(meta, "notification_id"); ok {
			titleByID[id] = metaString(meta, "title")
		}
	}

	for _, meta := range result.Metadatas {
		if id, ok := metaInt64(meta, "notification_id"); ok {
			if title, found := titleByID[id]; found {
				meta["title"] = title
			}
		}
	}
	return nil
}

func toResult(raw vectorstore.QueryResult) *Result {
	if len(raw.Metadatas) == 0 {
		return emptyResult()
	}
	result := &Result{
		Documents:    raw.Documents,
		Metadatas:    raw.Metadatas,
		Distances:    raw.Distances,
		TotalResults: len(raw.Metadatas),
	}
	if result.Documents == nil {
		result.Documents = []string{}
	}
	if result.Distances == nil {
		result.Distances = []float64{}
	}
	return result
}

func notificationIDs(metadatas []map[string]interface{}) []int64 {
	ids := make([]int64, 0, len(metadatas))
	seen := make(map[int64]struct{}, len(metadatas))
	for _, meta := range metadatas {
		if id, ok := metaInt64(meta, "notification_id"); ok {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func whereNotificationIn(ids []int64) map[string]interface{} {
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return map[string]interface{}{
		"notification_id": map[string]interface{}{"$in": values},
	}
}

// whereTitleRecords narrows to the single title record each notification
// owns, so metadata re-fetches see exactly one row per id.
func whereTitleRecords(ids []int64) map[string]interface{} {
	return map[string]interface{}{
		"$and": []map[string]interface{}{
			whereNotificationIn(ids),
			{"is_title": true},
		},
	}
}
