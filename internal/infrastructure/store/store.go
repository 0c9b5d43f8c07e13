// Package store persists crawl records. MemoryStore serves single runs and
// tests; BoltStore keeps records across runs so interrupted crawls resume.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

var (
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("record store is closed")
	// ErrNotFound is returned when requeueing an unknown URL
	ErrNotFound = errors.New("record not found")
	// ErrEmptyURL is returned when a record has no URL key
	ErrEmptyURL = errors.New("record url is required")
)

// Store is a crawl record store keyed by URL
type Store interface {
	Get(ctx context.Context, url string) (types.CrawlRecord, bool, error)
	Put(ctx context.Context, rec types.CrawlRecord) error
	List(ctx context.Context, status types.CrawlStatus) ([]types.CrawlRecord, error)
	Requeue(ctx context.Context, url string) error
	Close() error
}

// matches reports whether a record is selected by a status filter; an empty
// filter selects everything
func matches(rec types.CrawlRecord, status types.CrawlStatus) bool {
	return status == "" || rec.Status == status
}

func sortRecords(recs []types.CrawlRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].URL < recs[j].URL
	})
}
