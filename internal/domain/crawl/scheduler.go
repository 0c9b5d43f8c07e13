package crawl

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/domain/toolxml"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/github"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/http/client"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

// Fetcher is the HTTP surface the scheduler needs
type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, query map[string]string, out interface{}) error
	GetText(ctx context.Context, rawURL string) (string, error)
}

// Options configures a Scheduler
type Options struct {
	Workers         int
	HostConcurrency int
	FileConcurrency int
	Retry           resilience.RetryPolicy
	SourceType      string

	Parser  *toolxml.Parser
	Indexer *github.Indexer
	Store   RecordStore
	Metrics *monitoring.Metrics
	Logger  *zap.Logger
}

// DefaultOptions returns the scheduler defaults
func DefaultOptions() Options {
	return Options{
		Workers:         8,
		HostConcurrency: 4,
		FileConcurrency: 4,
		Retry:           resilience.RetryPolicy{MaxRetries: 3},
		SourceType:      types.SourceToolShed,
	}
}

// FolderResult is everything found under one crawl root
type FolderResult struct {
	URL    string                 `json:"url"`
	Tools  []types.ToolDefinition `json:"tools"`
	Errors []FolderError          `json:"errors,omitempty"`
	Pruned []string               `json:"pruned,omitempty"`
}

// folderOutcome is what one successful folder listing produced
type folderOutcome struct {
	tools    []types.ToolDefinition
	children []string
}

// Scheduler is one crawl session. A folder is listed at most once per
// session; later visits reuse its tools and subfolders.
type Scheduler struct {
	fetcher Fetcher
	parser  *toolxml.Parser
	indexer *github.Indexer
	store   RecordStore
	opts    Options
	metrics *monitoring.Metrics
	logger  *zap.Logger

	descriptors singleflight.Group
	folders     singleflight.Group

	mu       sync.Mutex
	visited  map[string]struct{}
	outcomes map[string]folderOutcome
	hosts    map[string]*semaphore.Weighted
}

// NewScheduler creates a crawl session
func NewScheduler(fetcher Fetcher, opts Options) *Scheduler {
	defaults := DefaultOptions()
	if opts.Workers < 1 {
		opts.Workers = defaults.Workers
	}
	if opts.HostConcurrency < 1 {
		opts.HostConcurrency = defaults.HostConcurrency
	}
	if opts.FileConcurrency < 1 {
		opts.FileConcurrency = defaults.FileConcurrency
	}
	if opts.SourceType == "" {
		opts.SourceType = defaults.SourceType
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := opts.Parser
	if parser == nil {
		parser = toolxml.NewParser(fetcher, toolxml.WithLogger(logger))
	}
	indexer := opts.Indexer
	if indexer == nil {
		indexer = github.NewIndexer(fetcher,
			github.WithRetryPolicy(opts.Retry),
			github.WithLogger(logger),
		)
	}

	return &Scheduler{
		fetcher: fetcher,
		parser:  parser,
		indexer: indexer,
		store:   opts.Store,
		opts:    opts,
		metrics: opts.Metrics,
		logger:  logger,
		visited:  make(map[string]struct{}),
		outcomes: make(map[string]folderOutcome),
		hosts:    make(map[string]*semaphore.Weighted),
	}
}

// Pruned reports whether a folder is skipped without a request. Only the
// folder path counts; host, owner, repository and ref never prune.
func Pruned(folderURL string) bool {
	folder := folderURL
	if c, err := github.ParseContentsURL(folderURL); err == nil {
		folder = c.Path
	}
	lower := strings.ToLower(folder)
	return strings.Contains(lower, "deprecated") || strings.Contains(lower, "depricated")
}

// CrawlFolder crawls one folder and every non-tool-root folder below it
func (s *Scheduler) CrawlFolder(ctx context.Context, folderURL string) (*FolderResult, error) {
	results, err := s.run(ctx, []string{folderURL})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// CrawlFolders crawls several roots in one worker pool, results in input order
func (s *Scheduler) CrawlFolders(ctx context.Context, folderURLs []string) ([]*FolderResult, error) {
	return s.run(ctx, folderURLs)
}

// run drains the queue seeded with roots and groups findings per root
func (s *Scheduler) run(ctx context.Context, roots []string) ([]*FolderResult, error) {
	st := newRunState(roots)
	q := newWorkQueue()
	for _, root := range roots {
		q.push(task{url: root, root: root})
	}
	s.metrics.AddQueueDepth(float64(len(roots)))

	stop := context.AfterFunc(ctx, q.close)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				t, ok := q.pop()
				if !ok {
					return
				}
				s.metrics.AddQueueDepth(-1)
				s.process(ctx, q, st, t)
				q.done()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return st.results(), nil
}

// process handles one task, pushing children or a retry back on the queue
func (s *Scheduler) process(ctx context.Context, q *workQueue, st *runState, t task) {
	if Pruned(t.url) {
		s.logger.Debug("Pruning deprecated folder", zap.String("url", t.url))
		s.metrics.RecordFolder("pruned")
		st.prune(t.root, t.url)
		return
	}
	s.markVisited(t.url)

	out, err := s.listFolder(ctx, t.url)
	switch {
	case err == nil:
		s.metrics.RecordFolder("completed")
		st.add(t.root, t.url, out.tools)
		for _, child := range out.children {
			q.push(task{url: child, root: t.root, depth: t.depth + 1})
			s.metrics.AddQueueDepth(1)
		}
	case ctx.Err() != nil:
	case errors.Is(err, context.Canceled):
		// another run sharing this listing was cancelled
		q.push(task{url: t.url, root: t.root, attempt: t.attempt, depth: t.depth})
		s.metrics.AddQueueDepth(1)
	case client.IsRateLimited(err) && s.opts.Retry.ShouldRetry(t.attempt):
		s.logger.Info("Folder rate limited, requeued",
			zap.String("url", t.url),
			zap.Int("attempt", t.attempt+1),
		)
		s.metrics.RecordFolder("requeued")
		q.push(task{url: t.url, root: t.root, attempt: t.attempt + 1, depth: t.depth})
		s.metrics.AddQueueDepth(1)
	case client.IsRateLimited(err):
		code, _ := client.StatusCode(err)
		s.fail(st, t, &FolderError{URL: t.url, Code: code, Err: ErrRateLimitExhausted})
	default:
		code, _ := client.StatusCode(err)
		s.fail(st, t, &FolderError{URL: t.url, Code: code, Err: err})
	}
}

func (s *Scheduler) fail(st *runState, t task, ferr *FolderError) {
	s.logger.Warn("Folder crawl failed",
		zap.String("url", ferr.URL),
		zap.Int("code", ferr.Code),
		zap.Error(ferr.Err),
	)
	s.metrics.RecordFolder("error")
	st.fail(t.root, *ferr)
}

// listFolder returns the session's outcome for a folder, listing it when no
// earlier visit succeeded. Concurrent visits share one listing. Failures are
// not kept, so a later visit lists the folder again.
func (s *Scheduler) listFolder(ctx context.Context, folderURL string) (folderOutcome, error) {
	if out, ok := s.outcome(folderURL); ok {
		s.logger.Debug("Reusing crawled folder", zap.String("url", folderURL))
		return out, nil
	}
	v, err, _ := s.folders.Do(folderURL, func() (interface{}, error) {
		if out, ok := s.outcome(folderURL); ok {
			return out, nil
		}
		sem := s.hostSemaphore(client.HostOf(folderURL))
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		tools, children, err := s.crawlOne(ctx, folderURL)
		sem.Release(1)
		if err != nil {
			return nil, err
		}
		out := folderOutcome{tools: tools, children: children}
		s.mu.Lock()
		s.outcomes[folderURL] = out
		s.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return folderOutcome{}, err
	}
	return v.(folderOutcome), nil
}

func (s *Scheduler) outcome(folderURL string) (folderOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.outcomes[folderURL]
	return out, ok
}

func (s *Scheduler) markVisited(folderURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visited[folderURL] = struct{}{}
}

// Visited reports whether a folder was crawled in this session
func (s *Scheduler) Visited(folderURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.visited[folderURL]
	return ok
}

func (s *Scheduler) hostSemaphore(host string) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.hosts[host]
	if !ok {
		sem = semaphore.NewWeighted(int64(s.opts.HostConcurrency))
		s.hosts[host] = sem
	}
	return sem
}

// runState collects per-root findings of one run
type runState struct {
	mu    sync.Mutex
	order []string
	roots map[string]*rootState
}

type rootState struct {
	folders map[string][]types.ToolDefinition
	errors  []FolderError
	pruned  []string
}

func newRunState(roots []string) *runState {
	st := &runState{roots: make(map[string]*rootState, len(roots))}
	for _, r := range roots {
		if _, ok := st.roots[r]; ok {
			continue
		}
		st.order = append(st.order, r)
		st.roots[r] = &rootState{folders: make(map[string][]types.ToolDefinition)}
	}
	return st
}

func (st *runState) add(root, folder string, tools []types.ToolDefinition) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.roots[root].folders[folder] = tools
}

func (st *runState) fail(root string, ferr FolderError) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.roots[root].errors = append(st.roots[root].errors, ferr)
}

func (st *runState) prune(root, folder string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.roots[root].pruned = append(st.roots[root].pruned, folder)
}

// results orders tools by folder URL so concurrent runs are deterministic
func (st *runState) results() []*FolderResult {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]*FolderResult, 0, len(st.order))
	for _, root := range st.order {
		rs := st.roots[root]
		folders := make([]string, 0, len(rs.folders))
		for f := range rs.folders {
			folders = append(folders, f)
		}
		sort.Strings(folders)

		res := &FolderResult{URL: root, Tools: []types.ToolDefinition{}}
		for _, f := range folders {
			res.Tools = append(res.Tools, rs.folders[f]...)
		}
		res.Errors = append(res.Errors, rs.errors...)
		sort.Slice(res.Errors, func(i, j int) bool { return res.Errors[i].URL < res.Errors[j].URL })
		res.Pruned = append(res.Pruned, rs.pruned...)
		sort.Strings(res.Pruned)
		out = append(out, res)
	}
	return out
}
