package chatbot

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Wire labels for the two intent categories the classifier can emit.
const (
	QueryTypeFinancial = "financial statement"
	QueryTypeGeneral   = "general KAP statement"
)

// Intent is the structured reading of a free-text question. Query holds
// the canonical English-normalized form used against the index; Keywords
// and RequiredOperations are signals for downstream consumers and are not
// consumed by retrieval itself.
type Intent struct {
	QueryType          string   `json:"query_type"`
	Company            string   `json:"company,omitempty"`
	Query              string   `json:"query"`
	Keywords           []string `json:"keywords"`
	RequiredOperations []string `json:"required_operations"`
}

// Result is the stable retrieval-result shape every pipeline stage hands
// forward. The empty value of all four fields (with zero TotalResults) is
// the single canonical sentinel for "nothing found", shared by every
// short-circuit path; callers cannot tell the cause apart from the value.
type Result struct {
	Documents    []string                 `json:"documents"`
	Metadatas    []map[string]interface{} `json:"metadatas"`
	Distances    []float64                `json:"distances"`
	TotalResults int                      `json:"total_results"`
}

func emptyResult() *Result {
	return &Result{
		Documents: []string{},
		Metadatas: []map[string]interface{}{},
		Distances: []float64{},
	}
}

func metaString(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	if value, ok := meta[key].(string); ok {
		return value
	}
	return ""
}

func metaBool(meta map[string]interface{}, key string) bool {
	if meta == nil {
		return false
	}
	if value, ok := meta[key].(bool); ok {
		return value
	}
	return false
}

// metaInt64 reads a numeric metadata attribute. JSON decoding yields
// float64 for numbers, but ingested metadata may also round-trip as
// strings depending on the store version.
func metaInt64(meta map[string]interface{}, key string) (int64, bool) {
	if meta == nil {
		return 0, false
	}
	switch value := meta[key].(type) {
	case float64:
		return int64(value), true
	case int:
		return int64(value), true
	case int64:
		return value, true
	case json.Number:
		if parsed, err := value.Int64(); err == nil {
			return parsed, true
		}
		return 0, false
	case string:
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return parsed, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// metaNumberString renders a metadata attribute the way the public answer
// shape expects: integral numbers without a fractional part, everything
// else as-is, and "" when the attribute is absent.
func metaNumberString(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	switch value := meta[key].(type) {
	case string:
		return value
	case float64:
		if value == math.Trunc(value) {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}
