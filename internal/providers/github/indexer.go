package github

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/http/client"
)

// Indexer discovers tool root folders of a repository from its recursive git tree
type Indexer struct {
	fetcher  Fetcher
	excludes []string
	retry    resilience.RetryPolicy
	logger   *zap.Logger
}

// IndexerOption configures an Indexer
type IndexerOption func(*Indexer)

// WithExcludes drops folders matching any doublestar pattern
func WithExcludes(patterns ...string) IndexerOption {
	return func(ix *Indexer) {
		for _, p := range patterns {
			if p = strings.TrimSpace(p); p != "" && doublestar.ValidatePattern(p) {
				ix.excludes = append(ix.excludes, p)
			}
		}
	}
}

// WithRetryPolicy bounds retries of rate limited lookups
func WithRetryPolicy(policy resilience.RetryPolicy) IndexerOption {
	return func(ix *Indexer) {
		ix.retry = policy
	}
}

// WithLogger sets the indexer logger
func WithLogger(logger *zap.Logger) IndexerOption {
	return func(ix *Indexer) {
		ix.logger = logger
	}
}

// NewIndexer creates an indexer
func NewIndexer(fetcher Fetcher, opts ...IndexerOption) *Indexer {
	ix := &Indexer{
		fetcher: fetcher,
		retry:   resilience.RetryPolicy{MaxRetries: 3},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// ToolFolders returns the sorted, branch-pinned content URLs of every folder
// under apiRoot that holds a descriptor marker. Lookup failures are returned;
// there is no partial result for a repository.
func (ix *Indexer) ToolFolders(ctx context.Context, apiRoot string) ([]string, error) {
	root, err := ParseContentsURL(apiRoot)
	if err != nil {
		return nil, err
	}

	var (
		branch string
		t      *tree
	)
	err = resilience.Do(ctx, ix.retry, client.IsRateLimited, func(attempt int) error {
		if attempt > 0 {
			ix.logger.Info("Retrying rate limited repository index",
				zap.String("repository", root.Owner+"/"+root.Repo),
				zap.Int("attempt", attempt),
			)
		}
		b, err := fetchBranch(ctx, ix.fetcher, root)
		if err != nil {
			return err
		}
		// an explicit ref pins the tree to that branch
		if root.Ref != "" {
			b = root.Ref
		}
		tr, err := fetchTree(ctx, ix.fetcher, root, b)
		if err != nil {
			return err
		}
		branch, t = b, tr
		return nil
	})
	if err != nil {
		return nil, err
	}

	if t.Truncated {
		ix.logger.Warn("Repository tree truncated, some tool folders may be missing",
			zap.String("repository", root.Owner+"/"+root.Repo),
		)
	}

	folders := ix.filter(root.Path, t.Tree)
	urls := make([]string, 0, len(folders))
	for _, folder := range folders {
		urls = append(urls, root.FolderURL(folder, branch))
	}

	ix.logger.Debug("Indexed repository",
		zap.String("repository", root.Owner+"/"+root.Repo),
		zap.String("branch", branch),
		zap.Int("tool_folders", len(urls)),
	)
	return urls, nil
}

// filter selects marker folders under basePath, sorted and deduplicated
func (ix *Indexer) filter(basePath string, entries []treeEntry) []string {
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.Type != "blob" || !strings.EqualFold(path.Base(e.Path), MarkerFile) {
			continue
		}
		folder := path.Dir(e.Path)
		if folder == "." {
			folder = ""
		}
		if !UnderBase(basePath, folder) || ix.excluded(folder) {
			continue
		}
		seen[folder] = struct{}{}
	}

	folders := make([]string, 0, len(seen))
	for f := range seen {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders
}

func (ix *Indexer) excluded(folder string) bool {
	for _, p := range ix.excludes {
		if ok, _ := doublestar.Match(p, folder); ok {
			return true
		}
	}
	return false
}

// UnderBase reports whether folder equals or descends from basePath, comparing
// whole path segments
func UnderBase(basePath, folder string) bool {
	base := splitPath(basePath)
	if len(base) == 0 {
		return true
	}
	parts := splitPath(folder)
	if len(parts) < len(base) {
		return false
	}
	for i, b := range base {
		if parts[i] != b {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
