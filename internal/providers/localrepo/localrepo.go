// Package localrepo indexes tool folders of a repository checkout on disk.
package localrepo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/github"
)

// ErrNotDirectory is returned when the checkout root is not a directory
var ErrNotDirectory = errors.New("checkout root is not a directory")

// Options narrows the folders reported by ToolFolders
type Options struct {
	// BasePath keeps only folders equal to or below this slash path
	BasePath string
	// Excludes drops folders matching any doublestar pattern
	Excludes []string
}

// ToolFolders walks a checkout and returns the sorted slash paths, relative
// to root, of every folder holding a descriptor marker
func ToolFolders(ctx context.Context, root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(d.Name(), github.MarkerFile) {
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(p))
		if err != nil {
			return nil
		}
		folder := filepath.ToSlash(rel)
		if folder == "." {
			folder = ""
		}
		if !github.UnderBase(opts.BasePath, folder) || excluded(opts.Excludes, folder) {
			return nil
		}
		mu.Lock()
		seen[folder] = struct{}{}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	folders := make([]string, 0, len(seen))
	for f := range seen {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders, nil
}

// FolderURLs maps checkout-relative folders onto content API URLs of the
// repository the checkout was cloned from
func FolderURLs(apiRoot string, folders []string, ref string) ([]string, error) {
	root, err := github.ParseContentsURL(apiRoot)
	if err != nil {
		return nil, err
	}
	if ref == "" {
		ref = root.Ref
	}
	urls := make([]string, 0, len(folders))
	for _, f := range folders {
		urls = append(urls, root.FolderURL(f, ref))
	}
	return urls, nil
}

func excluded(patterns []string, folder string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, folder); ok {
			return true
		}
	}
	return false
}
