package ingest

import (
	"encoding/json"
	"fmt"
)

const (
	// Rows repeated at the top of every window so each indexed chunk
	// stays interpretable on its own.
	tableHeaderRows = 2
	tableWindowRows = 15
)

// TableRecord is one extracted table row keyed by column label.
type TableRecord map[string]interface{}

// windowRows splits table rows into windows of windowSize data rows, each
// prefixed with the first headerRows rows. Tables short enough to fit in
// a single header+window span produce one window.
func windowRows(rows []TableRecord, headerRows int, windowSize int) [][]TableRecord {
	if len(rows) == 0 {
		return nil
	}
	if headerRows < 0 {
		headerRows = 0
	}
	if headerRows > len(rows) {
		headerRows = len(rows)
	}
	if windowSize <= 0 {
		windowSize = tableWindowRows
	}

	header := rows[:headerRows]
	data := rows[headerRows:]
	if len(data) == 0 {
		window := make([]TableRecord, len(header))
		copy(window, header)
		return [][]TableRecord{window}
	}

	windows := make([][]TableRecord, 0, (len(data)/windowSize)+1)
	for start := 0; start < len(data); start += windowSize {
		end := start + windowSize
		if end > len(data) {
			end = len(data)
		}
		window := make([]TableRecord, 0, len(header)+(end-start))
		window = append(window, header...)
		window = append(window, data[start:end]...)
		windows = append(windows, window)
	}
	return windows
}

// encodeRecords serializes a record list the way the table partition
// stores documents: a JSON array of row objects.
func encodeRecords(records []TableRecord) (string, error) {
	raw, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("ingest: encode table records: %w", err)
	}
	return string(raw), nil
}
