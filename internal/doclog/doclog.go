package doclog

import (
	"context"
	"sync"
)

// Store is the document-log collaborator. Records are append-only; the core
// never updates or deletes them.
type Store interface {
	// InsertRecord appends record to the named collection and reports
	// whether the write was acknowledged.
	InsertRecord(ctx context.Context, collection string, record any) (bool, error)
}

// ExceptionCollection is where request exception records land.
const ExceptionCollection = "exceptions"

// MemoryStore keeps records in-process. Used in tests and when no document
// database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]any
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]any)}
}

// InsertRecord appends record to collection.
func (s *MemoryStore) InsertRecord(ctx context.Context, collection string, record any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[collection] = append(s.records[collection], record)
	return true, nil
}

// Records returns a copy of the collection's contents. Test hook.
func (s *MemoryStore) Records(collection string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.records[collection]))
	copy(out, s.records[collection])
	return out
}
