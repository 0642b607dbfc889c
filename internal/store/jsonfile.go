package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/clearpath-voice/dropgate/internal/detect"
)

// errorEntry is the results-document shape for a file that failed to process.
type errorEntry struct {
	Error string `json:"error"`
}

// JSONStore accumulates records in memory and writes them out as one JSON
// document keyed by file name. Call [JSONStore.Flush] after the batch; Save
// alone touches no disk.
type JSONStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]any
}

// Compile-time interface check.
var _ Store = (*JSONStore)(nil)

// NewJSONStore creates a store that will write its document to path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{
		path:    path,
		entries: make(map[string]any),
	}
}

// Save records one file's outcome. A later Save for the same file replaces
// the earlier entry.
func (s *JSONStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Err != "" {
		s.entries[rec.File] = errorEntry{Error: rec.Err}
		return nil
	}
	s.entries[rec.File] = rec.Result
	return nil
}

// Len returns the number of recorded files.
func (s *JSONStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Flush writes the accumulated document to the store's path, replacing any
// previous contents.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal results: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("store: write %q: %w", s.path, err)
	}
	return nil
}

// Results returns a copy of the accumulated document for summary printing.
// Values are [detect.DetectionResult] for successes and error entries for
// failures.
func (s *JSONStore) Results() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// ResultFor returns the stored decision for a file, or ok=false when the file
// is absent or recorded as an error.
func (s *JSONStore) ResultFor(file string) (detect.DetectionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.entries[file].(detect.DetectionResult)
	return res, ok
}
