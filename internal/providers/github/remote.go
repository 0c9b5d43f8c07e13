package github

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultAPIURL is the public GitHub REST API root
const DefaultAPIURL = "https://api.github.com"

var (
	// ErrUnsupportedRemote is returned for remotes that are not github.com repositories
	ErrUnsupportedRemote = errors.New("unsupported remote repository url")
	// ErrNotContentsURL is returned when a URL is not a repos/{owner}/{repo}/contents URL
	ErrNotContentsURL = errors.New("not a repository contents url")
)

// ContentsURL is a parsed content-API URL:
// {base}/repos/{owner}/{repo}/contents/{path}?ref={ref}
type ContentsURL struct {
	Base  string
	Owner string
	Repo  string
	Path  string
	Ref   string
}

// ParseContentsURL parses a content-API folder URL. The API base is everything
// before /repos/, so enterprise prefixes such as /api/v3 survive.
func ParseContentsURL(raw string) (ContentsURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ContentsURL{}, fmt.Errorf("%w: %s: %v", ErrNotContentsURL, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return ContentsURL{}, fmt.Errorf("%w: %s", ErrNotContentsURL, raw)
	}

	idx := strings.Index(u.Path, "/repos/")
	if idx < 0 {
		return ContentsURL{}, fmt.Errorf("%w: %s", ErrNotContentsURL, raw)
	}
	parts := strings.Split(strings.Trim(u.Path[idx+len("/repos/"):], "/"), "/")
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] != "contents" {
		return ContentsURL{}, fmt.Errorf("%w: %s", ErrNotContentsURL, raw)
	}

	return ContentsURL{
		Base:  u.Scheme + "://" + u.Host + u.Path[:idx],
		Owner: parts[0],
		Repo:  parts[1],
		Path:  strings.Join(parts[3:], "/"),
		Ref:   u.Query().Get("ref"),
	}, nil
}

// RepoURL returns the repository metadata endpoint
func (c ContentsURL) RepoURL() string {
	return fmt.Sprintf("%s/repos/%s/%s", c.Base, c.Owner, c.Repo)
}

// TreeURL returns the git tree endpoint for a branch
func (c ContentsURL) TreeURL(branch string) string {
	return fmt.Sprintf("%s/git/trees/%s", c.RepoURL(), url.PathEscape(branch))
}

// FolderURL returns the content-API URL of a folder pinned to a ref
func (c ContentsURL) FolderURL(folder, ref string) string {
	u := c.RepoURL() + "/contents"
	if folder = strings.Trim(folder, "/"); folder != "" {
		u += "/" + escapePath(folder)
	}
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}
	return u
}

// String renders the URL back in canonical form
func (c ContentsURL) String() string {
	return c.FolderURL(c.Path, c.Ref)
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// ConvertRemoteURL turns a github.com web URL into a content-API root.
//
//	https://github.com/o/r(.git)             -> {api}/repos/o/r/contents
//	https://github.com/o/r/tree/dev/tools/x  -> {api}/repos/o/r/contents/tools/x?ref=dev
//
// main and master branches are left unpinned so the default branch applies.
func ConvertRemoteURL(apiURL, remote string) (string, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	u, err := url.Parse(strings.TrimSpace(remote))
	if err != nil || !strings.EqualFold(u.Host, "github.com") {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedRemote, remote)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedRemote, remote)
	}
	root := ContentsURL{
		Base:  strings.TrimRight(apiURL, "/"),
		Owner: parts[0],
		Repo:  strings.TrimSuffix(parts[1], ".git"),
	}
	if len(parts) == 2 {
		return root.String(), nil
	}

	if kind := parts[2]; (kind != "tree" && kind != "blob") || len(parts) < 4 {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedRemote, remote)
	}
	root.Path = strings.Join(parts[4:], "/")
	if branch := parts[3]; branch != "main" && branch != "master" {
		root.Ref = branch
	}
	return root.String(), nil
}
