package store

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

// MemoryStore keeps records in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]types.CrawlRecord
	closed  bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]types.CrawlRecord)}
}

// Get returns the record for a URL
func (m *MemoryStore) Get(ctx context.Context, url string) (types.CrawlRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return types.CrawlRecord{}, false, ErrClosed
	}
	rec, ok := m.records[url]
	return rec, ok, nil
}

// Put inserts or replaces a record
func (m *MemoryStore) Put(ctx context.Context, rec types.CrawlRecord) error {
	if rec.URL == "" {
		return ErrEmptyURL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records[rec.URL] = rec
	return nil
}

// List returns records with a status, oldest first
func (m *MemoryStore) List(ctx context.Context, status types.CrawlStatus) ([]types.CrawlRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := []types.CrawlRecord{}
	for _, rec := range m.records {
		if matches(rec, status) {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

// Requeue resets a record to pending
func (m *MemoryStore) Requeue(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	rec, ok := m.records[url]
	if !ok {
		return ErrNotFound
	}
	rec.Requeue()
	m.records[url] = rec
	return nil
}

// Close marks the store closed
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
