package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/domain/crawl"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/github"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/toolshed"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

// ErrToolNotFound is returned when a crawled repository has no tool with the referenced id
var ErrToolNotFound = errors.New("tool not found in repository")

// RepositoryCrawler crawls every tool folder of a content-API root
type RepositoryCrawler interface {
	CrawlRepository(ctx context.Context, apiRoot string) (*crawl.RepositoryResult, error)
}

// InstallInfoSource maps a ToolShed reference to its source repository URL
type InstallInfoSource interface {
	InstallInfo(ctx context.Context, ref toolshed.Reference, revision string) (string, error)
}

// ToolResolver resolves ToolShed references by crawling the source repository
// the ToolShed names. Each repository is crawled at most once.
type ToolResolver struct {
	shed    InstallInfoSource
	crawler RepositoryCrawler
	apiURL  string
	logger  *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	repos map[string][]types.ToolDefinition
}

// NewToolResolver creates a resolver; apiURL is the GitHub API base
func NewToolResolver(shed InstallInfoSource, crawler RepositoryCrawler, apiURL string, logger *zap.Logger) *ToolResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolResolver{
		shed:    shed,
		crawler: crawler,
		apiURL:  apiURL,
		logger:  logger,
		repos:   make(map[string][]types.ToolDefinition),
	}
}

// ResolveTool implements workflow.ToolSource
func (r *ToolResolver) ResolveTool(ctx context.Context, ref toolshed.Reference, revision string) (*types.ToolDefinition, error) {
	remote, err := r.shed.InstallInfo(ctx, ref, revision)
	if err != nil {
		return nil, err
	}
	apiRoot, err := github.ConvertRemoteURL(r.apiURL, remote)
	if err != nil {
		return nil, err
	}
	tools, err := r.RepositoryTools(ctx, apiRoot)
	if err != nil {
		return nil, err
	}
	for i := range tools {
		if tools[i].ID == ref.Tool {
			tool := tools[i]
			return &tool, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrToolNotFound, ref.Tool, apiRoot)
}

// RepositoryTools returns every tool of a repository, crawling it on first use.
// Failed crawls are not cached.
func (r *ToolResolver) RepositoryTools(ctx context.Context, apiRoot string) ([]types.ToolDefinition, error) {
	if tools, ok := r.cached(apiRoot); ok {
		return tools, nil
	}
	v, err, _ := r.group.Do(apiRoot, func() (interface{}, error) {
		if tools, ok := r.cached(apiRoot); ok {
			return tools, nil
		}
		res, err := r.crawler.CrawlRepository(ctx, apiRoot)
		if err != nil {
			return nil, err
		}
		tools := res.Tools()
		r.mu.Lock()
		r.repos[apiRoot] = tools
		r.mu.Unlock()
		r.logger.Debug("Cached repository tools",
			zap.String("api_root", apiRoot),
			zap.Int("tools", len(tools)),
		)
		return tools, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.ToolDefinition), nil
}

func (r *ToolResolver) cached(apiRoot string) ([]types.ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools, ok := r.repos[apiRoot]
	return tools, ok
}
