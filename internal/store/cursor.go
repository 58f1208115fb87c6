package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cursor records how far a crawl has progressed. It is persisted after
// every fully captured page, so an interrupted crawl resumes with at most
// one page of duplicate fetching.
type Cursor struct {
	Repo        string `json:"repo"`
	RunID       string `json:"runId,omitempty"`
	ListPage    int    `json:"listPage"`
	LastSubject int    `json:"lastSubject"`
	Completed   bool   `json:"completed"`

	// PageSize the listing was paged with. ListPage only means anything
	// at the same page size; a resume under a different size re-lists
	// from the start.
	PageSize int `json:"pageSize,omitempty"`

	// Quota observed when the cursor was written, surfaced by status
	// commands to explain why a crawl paused.
	QuotaRemaining int       `json:"quotaRemaining"`
	QuotaResetAt   time.Time `json:"quotaResetAt"`

	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Store) cursorPath() string {
	return filepath.Join(s.dir, "cursor.json")
}

// LoadCursor reads the persisted crawl position. A store that has never
// been crawled returns nil.
func (s *Store) LoadCursor() (*Cursor, error) {
	data, err := os.ReadFile(s.cursorPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.cursorPath(), err)
	}
	return &cursor, nil
}

// SaveCursor persists the crawl position atomically. The previous cursor
// stays intact if the write fails partway.
func (s *Store) SaveCursor(cursor *Cursor) error {
	cursor.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(cursor, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding cursor: %w", ErrWrite, err)
	}

	tmp := s.cursorPath() + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("%w: writing cursor: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp, s.cursorPath()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: writing cursor: %w", ErrWrite, err)
	}
	return nil
}

// ClearCursor removes the persisted crawl position. Used when a fresh
// crawl is requested over an existing store.
func (s *Store) ClearCursor() error {
	err := os.Remove(s.cursorPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
