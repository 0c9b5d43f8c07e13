package harvest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/domain/crawl"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/domain/workflow"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/github"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/http/client"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/toolshed"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/workflowhub"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

// DefaultIgnore names registry repositories that are never crawled
var DefaultIgnore = []string{"kubernetes"}

// Store persists crawl records and lists them by status
type Store interface {
	crawl.RecordStore
	List(ctx context.Context, status types.CrawlStatus) ([]types.CrawlRecord, error)
}

// Registry lists ToolShed repositories
type Registry interface {
	Repositories(ctx context.Context) ([]toolshed.Repository, error)
}

// Hub lists and downloads published workflows
type Hub interface {
	Workflows(ctx context.Context, descriptorType string, limit int) ([]workflowhub.Workflow, error)
	Download(ctx context.Context, wf workflowhub.Workflow) ([]byte, error)
}

// Options wires a Harvester; unused collaborators may be nil
type Options struct {
	Registry Registry
	Hub      Hub
	Crawler  RepositoryCrawler
	Resolver *workflow.Resolver
	Store    Store
	APIURL   string
	Ignore   []string
	// DescriptorType selects hub workflows; empty means galaxy
	DescriptorType string
	Tracer         *tracing.Tracer
	Logger         *zap.Logger
}

// Harvester runs registry and workflow harvests
type Harvester struct {
	registry Registry
	hub      Hub
	crawler  RepositoryCrawler
	resolver *workflow.Resolver
	store    Store
	apiURL   string
	ignore   map[string]struct{}
	descType string
	tracer   *tracing.Tracer
	logger   *zap.Logger
}

// New creates a harvester
func New(opts Options) *Harvester {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ignoreList := opts.Ignore
	if ignoreList == nil {
		ignoreList = DefaultIgnore
	}
	ignore := make(map[string]struct{}, len(ignoreList))
	for _, name := range ignoreList {
		ignore[strings.ToLower(name)] = struct{}{}
	}
	descType := opts.DescriptorType
	if descType == "" {
		descType = workflowhub.DescriptorGalaxy
	}
	return &Harvester{
		registry: opts.Registry,
		hub:      opts.Hub,
		crawler:  opts.Crawler,
		resolver: opts.Resolver,
		store:    opts.Store,
		apiURL:   opts.APIURL,
		ignore:   ignore,
		descType: descType,
		tracer:   opts.Tracer,
		logger:   logger,
	}
}

// UniqueRepositories lists the registry and returns the sorted, deduplicated
// content-API roots of every repository with a usable GitHub remote
func (h *Harvester) UniqueRepositories(ctx context.Context) ([]string, error) {
	repos, err := h.registry.Repositories(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, repo := range repos {
		if _, skip := h.ignore[strings.ToLower(repo.Name)]; skip {
			continue
		}
		remote := strings.TrimSpace(repo.RemoteRepositoryURL)
		if remote == "" {
			continue
		}
		root, err := github.ConvertRemoteURL(h.apiURL, remote)
		if err != nil {
			h.logger.Debug("Skipping unsupported remote",
				zap.String("repository", repo.Owner+"/"+repo.Name),
				zap.String("remote", remote),
			)
			continue
		}
		seen[root] = struct{}{}
	}

	roots := make([]string, 0, len(seen))
	for root := range seen {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	h.logger.Info("Collected registry repositories",
		zap.Int("listed", len(repos)),
		zap.Int("unique", len(roots)),
	)
	return roots, nil
}

// SeedRepositories stores a pending record for every root not yet recorded
// and returns how many were added
func (h *Harvester) SeedRepositories(ctx context.Context, roots []string) (int, error) {
	if h.store == nil {
		return 0, errors.New("seeding requires a record store")
	}
	added := 0
	for _, root := range roots {
		_, found, err := h.store.Get(ctx, root)
		if err != nil {
			return added, err
		}
		if found {
			continue
		}
		rec := types.NewCrawlRecord(root, types.ArtifactShedRepository)
		rec.SourceType = types.SourceToolShed
		if err := h.store.Put(ctx, rec); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Summary counts the outcome of a pending run
type Summary struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Tools     int `json:"tools"`
}

// ProcessPending crawls every pending or interrupted repository record
// (folder and workflow records sharing the store are left alone). A record
// completes with its tool count; a repository that could not be indexed or
// has a failed folder is marked error with the first failure's code. fn,
// when set, receives every crawled result, partial ones included; its
// error stops the run.
func (h *Harvester) ProcessPending(ctx context.Context, fn func(*crawl.RepositoryResult) error) (Summary, error) {
	var sum Summary
	if h.store == nil {
		return sum, errors.New("processing requires a record store")
	}
	run, ctx := h.tracer.StartSpan(ctx, "process_pending")
	defer run.End()

	var queue []types.CrawlRecord
	for _, status := range []types.CrawlStatus{types.StatusProcessing, types.StatusPending} {
		recs, err := h.store.List(ctx, status)
		if err != nil {
			return sum, err
		}
		for _, rec := range recs {
			if rec.ArtifactType == types.ArtifactShedRepository {
				queue = append(queue, rec)
			}
		}
	}

	for _, rec := range queue {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := rec.Transition(types.StatusProcessing); err != nil {
			h.logger.Warn("Record transition failed", zap.String("url", rec.URL), zap.Error(err))
			continue
		}
		if err := h.store.Put(ctx, rec); err != nil {
			return sum, err
		}

		span, spanCtx := h.tracer.StartSpan(ctx, "crawl_repository")
		span.SetTag("url", rec.URL)
		res, err := h.crawler.CrawlRepository(spanCtx, rec.URL)
		span.SetError(err)
		span.End()
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			h.logger.Warn("Repository crawl failed", zap.String("url", rec.URL), zap.Error(err))
			_ = rec.Fail(ErrorCode(err))
			sum.Failed++
			if err := h.store.Put(ctx, rec); err != nil {
				return sum, err
			}
			continue
		}

		tools := len(res.Tools())
		sum.Tools += tools
		if errs := res.Errors(); len(errs) > 0 {
			h.logger.Warn("Repository folders failed",
				zap.String("url", rec.URL),
				zap.Int("failed_folders", len(errs)),
				zap.Int("tools", tools),
			)
			rec.ToolCount = tools
			_ = rec.Fail(errs[0].CodeString())
			sum.Failed++
		} else {
			_ = rec.Complete(tools)
			sum.Completed++
		}
		if err := h.store.Put(ctx, rec); err != nil {
			return sum, err
		}
		if fn != nil {
			if err := fn(res); err != nil {
				return sum, err
			}
		}
	}
	return sum, nil
}

// ResolveWorkflow decodes a .ga document and resolves its boundary tools
func (h *Harvester) ResolveWorkflow(ctx context.Context, data []byte) (*types.WorkflowResolution, error) {
	g, err := workflow.ParseGraph(data)
	if err != nil {
		return nil, err
	}
	return h.resolver.Resolve(ctx, g)
}

// HarvestWorkflows resolves up to limit workflows from the hub and
// passes each to fn. Workflows that fail to download or decode are logged
// and recorded as errors; an error from fn stops the run.
func (h *Harvester) HarvestWorkflows(ctx context.Context, limit int, fn func(*types.WorkflowResolution) error) error {
	run, ctx := h.tracer.StartSpan(ctx, "harvest_workflows")
	defer run.End()

	wfs, err := h.hub.Workflows(ctx, h.descType, limit)
	if err != nil {
		return err
	}
	h.logger.Info("Listed hub workflows", zap.Int("workflows", len(wfs)))

	for _, wf := range wfs {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, skip := h.beginWorkflow(ctx, wf)
		if skip {
			continue
		}

		span, spanCtx := h.tracer.StartSpan(ctx, "resolve_workflow")
		span.SetTag("workflow_id", wf.ID)
		res, err := h.harvestWorkflow(spanCtx, wf)
		span.SetError(err)
		span.End()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			h.logger.Warn("Skipping workflow",
				zap.String("id", wf.ID),
				zap.String("name", wf.Name),
				zap.Error(err),
			)
			h.finishWorkflow(ctx, rec, 0, err)
			continue
		}
		h.finishWorkflow(ctx, rec, len(res.ResolvedInputTools)+len(res.ResolvedOutputTools), nil)
		if err := fn(res); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harvester) harvestWorkflow(ctx context.Context, wf workflowhub.Workflow) (*types.WorkflowResolution, error) {
	data, err := h.hub.Download(ctx, wf)
	if err != nil {
		return nil, err
	}
	res, err := h.ResolveWorkflow(ctx, data)
	if err != nil {
		return nil, err
	}
	res.URL = wf.URL
	if res.Name == "" {
		res.Name = wf.Name
	}
	if res.Description == "" {
		res.Description = wf.Description
	}
	return res, nil
}

// beginWorkflow moves a workflow record to processing; skip is true for finished records
func (h *Harvester) beginWorkflow(ctx context.Context, wf workflowhub.Workflow) (*types.CrawlRecord, bool) {
	if h.store == nil || wf.URL == "" {
		return nil, false
	}
	rec, found, err := h.store.Get(ctx, wf.URL)
	if err != nil {
		h.logger.Warn("Record lookup failed", zap.String("url", wf.URL), zap.Error(err))
		return nil, false
	}
	if found && rec.Finished() {
		return nil, true
	}
	if !found {
		rec = types.NewCrawlRecord(wf.URL, types.ArtifactGalaxyWorkflow)
		rec.SourceType = types.SourceWorkflowHub
	}
	if err := rec.Transition(types.StatusProcessing); err != nil {
		return nil, false
	}
	if err := h.store.Put(ctx, rec); err != nil {
		h.logger.Warn("Record save failed", zap.String("url", wf.URL), zap.Error(err))
	}
	return &rec, false
}

func (h *Harvester) finishWorkflow(ctx context.Context, rec *types.CrawlRecord, tools int, cause error) {
	if rec == nil {
		return
	}
	if cause != nil {
		_ = rec.Fail(ErrorCode(cause))
	} else {
		_ = rec.Complete(tools)
	}
	if err := h.store.Put(ctx, *rec); err != nil {
		h.logger.Warn("Record save failed", zap.String("url", rec.URL), zap.Error(err))
	}
}

// ErrorCode renders the record error code of a failure: the HTTP status when
// one is carried, otherwise a short category
func ErrorCode(err error) string {
	if code, ok := client.StatusCode(err); ok {
		return strconv.Itoa(code)
	}
	var ferr *crawl.FolderError
	if errors.As(err, &ferr) {
		return ferr.CodeString()
	}
	switch {
	case errors.Is(err, github.ErrUnsupportedRemote), errors.Is(err, github.ErrNotContentsURL):
		return "unsupported_remote"
	case errors.Is(err, workflowhub.ErrNotArchive), errors.Is(err, workflowhub.ErrNoWorkflow):
		return "no_workflow"
	}
	return "unknown"
}

// String renders the summary for logs
func (s Summary) String() string {
	return fmt.Sprintf("%d completed, %d failed, %d tools", s.Completed, s.Failed, s.Tools)
}
