package github

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

// Fetcher is the subset of the HTTP client the GitHub provider needs
type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, query map[string]string, out interface{}) error
}

// ListFolder fetches one directory listing
func ListFolder(ctx context.Context, f Fetcher, folderURL string) (types.Listing, error) {
	var listing types.Listing
	if err := f.GetJSON(ctx, folderURL, nil, &listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// HasMarker reports whether a listing contains the tool descriptor marker
func HasMarker(listing types.Listing) bool {
	_, ok := listing.Find(MarkerFile)
	return ok
}

// MarkerFile is the descriptor file that marks a tool root folder
const MarkerFile = ".shed.yml"

type repository struct {
	DefaultBranch string `json:"default_branch"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

type tree struct {
	SHA       string      `json:"sha"`
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

func fetchBranch(ctx context.Context, f Fetcher, root ContentsURL) (string, error) {
	var repo repository
	if err := f.GetJSON(ctx, root.RepoURL(), nil, &repo); err != nil {
		return "", fmt.Errorf("repository lookup %s/%s: %w", root.Owner, root.Repo, err)
	}
	if repo.DefaultBranch == "" {
		return "", fmt.Errorf("repository lookup %s/%s: no default branch", root.Owner, root.Repo)
	}
	return repo.DefaultBranch, nil
}

func fetchTree(ctx context.Context, f Fetcher, root ContentsURL, branch string) (*tree, error) {
	var t tree
	if err := f.GetJSON(ctx, root.TreeURL(branch), map[string]string{"recursive": "1"}, &t); err != nil {
		return nil, fmt.Errorf("tree lookup %s/%s@%s: %w", root.Owner, root.Repo, branch, err)
	}
	return &t, nil
}
