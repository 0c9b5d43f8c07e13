package crawl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

// RecordStore persists crawl records keyed by URL
type RecordStore interface {
	Get(ctx context.Context, url string) (types.CrawlRecord, bool, error)
	Put(ctx context.Context, rec types.CrawlRecord) error
}

// RepositoryResult is the outcome of crawling every tool folder of a repository
type RepositoryResult struct {
	APIRoot string          `json:"api_root"`
	Folders []*FolderResult `json:"folders"`
	Skipped []string        `json:"skipped,omitempty"`
}

// Tools flattens the tools of every folder in folder order
func (r *RepositoryResult) Tools() []types.ToolDefinition {
	tools := []types.ToolDefinition{}
	for _, f := range r.Folders {
		tools = append(tools, f.Tools...)
	}
	return tools
}

// Errors flattens the folder errors of every folder
func (r *RepositoryResult) Errors() []FolderError {
	var errs []FolderError
	for _, f := range r.Folders {
		errs = append(errs, f.Errors...)
	}
	return errs
}

// CrawlRepository indexes a repository and crawls its tool folders. Index
// failures are returned; folder failures are recorded per folder. Folders
// whose record already completed or failed are skipped.
func (s *Scheduler) CrawlRepository(ctx context.Context, apiRoot string) (*RepositoryResult, error) {
	folders, err := s.indexer.ToolFolders(ctx, apiRoot)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", apiRoot, err)
	}

	result := &RepositoryResult{APIRoot: apiRoot, Folders: []*FolderResult{}}
	records := make(map[string]*types.CrawlRecord, len(folders))
	var pending []string
	for _, folder := range folders {
		rec, skip := s.beginRecord(ctx, folder)
		if skip {
			result.Skipped = append(result.Skipped, folder)
			continue
		}
		records[folder] = rec
		pending = append(pending, folder)
	}
	if len(pending) == 0 {
		return result, nil
	}

	results, err := s.run(ctx, pending)
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		s.finishRecord(ctx, records[res.URL], res)
		result.Folders = append(result.Folders, res)
	}

	s.logger.Info("Crawled repository",
		zap.String("api_root", apiRoot),
		zap.Int("folders", len(result.Folders)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("tools", len(result.Tools())),
	)
	return result, nil
}

// beginRecord moves a folder record to processing; skip is true for finished records
func (s *Scheduler) beginRecord(ctx context.Context, folder string) (*types.CrawlRecord, bool) {
	if s.store == nil {
		return nil, false
	}
	rec, found, err := s.store.Get(ctx, folder)
	if err != nil {
		s.logger.Warn("Record lookup failed", zap.String("url", folder), zap.Error(err))
		return nil, false
	}
	if found && rec.Finished() {
		return nil, true
	}
	if !found {
		rec = types.NewCrawlRecord(folder, types.ArtifactShedTool)
		rec.SourceType = s.opts.SourceType
	}
	if err := rec.Transition(types.StatusProcessing); err != nil {
		s.logger.Warn("Record transition failed", zap.String("url", folder), zap.Error(err))
		return nil, false
	}
	s.putRecord(ctx, rec)
	return &rec, false
}

// finishRecord completes or fails a record from its folder result
func (s *Scheduler) finishRecord(ctx context.Context, rec *types.CrawlRecord, res *FolderResult) {
	if rec == nil {
		return
	}
	var err error
	if len(res.Errors) > 0 {
		err = rec.Fail(res.Errors[0].CodeString())
	} else {
		err = rec.Complete(len(res.Tools))
	}
	if err != nil {
		s.logger.Warn("Record transition failed", zap.String("url", rec.URL), zap.Error(err))
		return
	}
	s.putRecord(ctx, *rec)
}

func (s *Scheduler) putRecord(ctx context.Context, rec types.CrawlRecord) {
	if err := s.store.Put(ctx, rec); err != nil {
		s.logger.Warn("Record save failed", zap.String("url", rec.URL), zap.Error(err))
	}
}
