package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// cursor persists the last processed notification id as a small JSON
// file, so restarted ingestion skips everything at or below it.
type cursor struct {
	path string
}

type cursorPayload struct {
	LastID int64 `json:"last_id"`
}

// load returns the stored id and whether a cursor file exists.
func (c cursor) load() (int64, bool, error) {
	if c.path == "" {
		return 0, false, nil
	}
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("ingest: read cursor %s: %w", c.path, err)
	}

	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, false, fmt.Errorf("ingest: decode cursor %s: %w", c.path, err)
	}
	return payload.LastID, true, nil
}

// save writes the id, creating the parent directory when needed. Ids are
// only ever advanced; saving a lower id than the stored one is a no-op.
func (c cursor) save(id int64) error {
	if c.path == "" {
		return nil
	}
	if stored, ok, err := c.load(); err == nil && ok && stored >= id {
		return nil
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ingest: create cursor directory: %w", err)
		}
	}

	raw, err := json.Marshal(cursorPayload{LastID: id})
	if err != nil {
		return fmt.Errorf("ingest: encode cursor: %w", err)
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return fmt.Errorf("ingest: write cursor %s: %w", c.path, err)
	}
	return nil
}
