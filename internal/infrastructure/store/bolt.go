package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	bolt "go.etcd.io/bbolt"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

const recordsBucket = "crawl_records"

// BoltStore keeps records in a bbolt file, one JSON value per URL
type BoltStore struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
}

// OpenBolt opens or creates a record database at path
func OpenBolt(path string) (*BoltStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}
	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open record db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordsBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create records bucket: %w", err)
	}
	return &BoltStore{db: db, path: trimmed}, nil
}

// Path returns the database file path
func (s *BoltStore) Path() string {
	return s.path
}

// Get returns the record for a URL
func (s *BoltStore) Get(ctx context.Context, url string) (types.CrawlRecord, bool, error) {
	var (
		rec   types.CrawlRecord
		found bool
	)
	err := s.view(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(recordsBucket)).Get([]byte(url))
		if value == nil {
			return nil
		}
		found = true
		return decode(value, &rec)
	})
	return rec, found, err
}

// Put inserts or replaces a record
func (s *BoltStore) Put(ctx context.Context, rec types.CrawlRecord) error {
	if rec.URL == "" {
		return ErrEmptyURL
	}
	value, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.URL, err)
	}
	return s.update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).Put([]byte(rec.URL), value)
	})
}

// List returns records with a status, oldest first
func (s *BoltStore) List(ctx context.Context, status types.CrawlStatus) ([]types.CrawlRecord, error) {
	out := []types.CrawlRecord{}
	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).ForEach(func(key, value []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec types.CrawlRecord
			if err := decode(value, &rec); err != nil {
				return err
			}
			if matches(rec, status) {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortRecords(out)
	return out, nil
}

// Requeue resets a record to pending
func (s *BoltStore) Requeue(ctx context.Context, url string) error {
	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(recordsBucket))
		value := bucket.Get([]byte(url))
		if value == nil {
			return ErrNotFound
		}
		var rec types.CrawlRecord
		if err := decode(value, &rec); err != nil {
			return err
		}
		rec.Requeue()
		encoded, err := sonic.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", url, err)
		}
		return bucket.Put([]byte(url), encoded)
	})
}

// Close closes the database
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *BoltStore) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.View(fn)
}

func (s *BoltStore) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Update(fn)
}

func decode(value []byte, rec *types.CrawlRecord) error {
	if err := sonic.Unmarshal(value, rec); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
