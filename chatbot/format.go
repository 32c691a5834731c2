package chatbot

import (
	"log"
	"strings"
)

// FormatError describes an invalid or empty retrieval-result shape. It is
// surfaced to callers as a structured {"error": ...} payload, never as a
// failed request.
type FormatError struct {
	msg string
}

func (e *FormatError) Error() string {
	return e.msg
}

var (
	errInvalidResults = &FormatError{msg: "Invalid results format."}
	errMissingFields  = &FormatError{msg: "Missing required fields in results."}
	errNoDisclosures  = &FormatError{msg: "No disclosures found for this topic."}
	errFormatMismatch = &FormatError{msg: "Data format mismatch."}
)

// Disclosure is one entry of the public answer shape. TableNumber and
// ChunkIndex are rendered as strings because the wire contract predates
// numeric metadata and downstream consumers parse them as text.
type Disclosure struct {
	Title          string  `json:"title"`
	NotificationID string  `json:"notification_id"`
	TableNumber    *string `json:"table_number"`
	ChunkIndex     *string `json:"chunk_index"`
	Content        string  `json:"content"`
}

// CompanyMatch is one entry of the lighter company-search shape.
type CompanyMatch struct {
	Title          string `json:"title"`
	NotificationID string `json:"notification_id"`
}

// FormatDisclosures renders a retrieval result into the public answer
// shape, at most limit entries (default 3). Pairs whose document text is
// just an echo of the title are dropped, and a malformed pair is skipped
// without aborting the batch.
func FormatDisclosures(result *Result, limit int) ([]Disclosure, error) {
	if result == nil {
		return nil, errInvalidResults
	}
	if result.Documents == nil || result.Metadatas == nil {
		return nil, errMissingFields
	}
	if len(result.Documents) == 0 || len(result.Metadatas) == 0 {
		return nil, errNoDisclosures
	}
	if len(result.Documents) != len(result.Metadatas) {
		log.Printf("chatbot: mismatched lengths: documents=%d, metadatas=%d", len(result.Documents), len(result.Metadatas))
		return nil, errFormatMismatch
	}

	if limit <= 0 {
		limit = 3
	}

	disclosures := make([]Disclosure, 0, limit)
	for i, doc := range result.Documents {
		if i >= limit {
			break
		}
		meta := result.Metadatas[i]
		if meta == nil {
			continue
		}

		title := metaString(meta, "title")
		if strings.TrimSpace(doc) == strings.TrimSpace(title) {
			// Title-echo artifact, not genuine content.
			continue
		}

		disclosure := Disclosure{
			Title:          title,
			NotificationID: metaNumberString(meta, "notification_id"),
			Content:        doc,
		}
		if value := metaNumberString(meta, "table_num"); value != "" {
			disclosure.TableNumber = &value
		}
		if value := metaNumberString(meta, "chunk_index"); value != "" {
			disclosure.ChunkIndex = &value
		}
		disclosures = append(disclosures, disclosure)
	}
	return disclosures, nil
}

// FormatCompanyMatches renders a company-search result into the lighter
// metadata-only shape, at most limit entries (default 5).
func FormatCompanyMatches(result *Result, limit int) ([]CompanyMatch, error) {
	if result == nil {
		return nil, errInvalidResults
	}
	if result.Metadatas == nil {
		return nil, errMissingFields
	}
	if len(result.Metadatas) == 0 {
		return nil, errNoDisclosures
	}

	if limit <= 0 {
		limit = 5
	}

	matches := make([]CompanyMatch, 0, limit)
	for i, meta := range result.Metadatas {
		if i >= limit {
			break
		}
		if meta == nil {
			continue
		}
		matches = append(matches, CompanyMatch{
			Title:          metaString(meta, "title"),
			NotificationID: metaNumberString(meta, "notification_id"),
		})
	}
	return matches, nil
}
