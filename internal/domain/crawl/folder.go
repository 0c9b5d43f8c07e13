package crawl

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/domain/toolxml"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/github"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/http/client"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/toolshed"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

// definitionExt is the extension of candidate tool definition files
const definitionExt = ".xml"

// crawlOne lists a folder once. With a marker it parses the folder's
// definition files, otherwise it returns the subfolders to visit.
// Any returned error discards the whole attempt.
func (s *Scheduler) crawlOne(ctx context.Context, folderURL string) ([]types.ToolDefinition, []string, error) {
	s.logger.Info("Crawling folder", zap.String("url", folderURL))

	listing, err := github.ListFolder(ctx, s.fetcher, folderURL)
	if err != nil {
		return nil, nil, err
	}

	if !github.HasMarker(listing) {
		var children []string
		for _, e := range listing {
			if e.IsDir() && e.URL != "" {
				children = append(children, e.URL)
			}
		}
		return nil, children, nil
	}

	var files []types.ContentEntry
	for _, e := range listing {
		if e.IsFile() && e.DownloadURL != "" && strings.HasSuffix(strings.ToLower(e.Name), definitionExt) {
			files = append(files, e)
		}
	}

	descriptor := s.descriptorFunc(listing)
	slots := make([]*types.ToolDefinition, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FileConcurrency)
	for i, file := range files {
		g.Go(func() error {
			tool, err := s.parseFile(gctx, folderURL, listing, file, descriptor)
			if err != nil {
				return err
			}
			slots[i] = tool
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	tools := make([]types.ToolDefinition, 0, len(files))
	for _, t := range slots {
		if t != nil {
			tools = append(tools, *t)
			s.metrics.RecordTool()
		}
	}
	s.logger.Debug("Parsed tool folder",
		zap.String("url", folderURL),
		zap.Int("files", len(files)),
		zap.Int("tools", len(tools)),
	)
	return tools, nil, nil
}

// parseFile fetches and parses one candidate. Only rate limiting and
// cancellation escape; every other failure skips the file.
func (s *Scheduler) parseFile(ctx context.Context, folderURL string, listing types.Listing, file types.ContentEntry, descriptor toolxml.DescriptorFunc) (*types.ToolDefinition, error) {
	text, err := s.fetcher.GetText(ctx, file.DownloadURL)
	if err != nil {
		if client.Aborts(ctx, err) {
			return nil, err
		}
		s.skip("fetch_error", file, err)
		return nil, nil
	}

	tool, err := s.parser.Parse(ctx, toolxml.Source{Text: text, Listing: listing, FolderURL: folderURL}, descriptor)
	if err != nil {
		if client.Aborts(ctx, err) {
			return nil, err
		}
		s.skip("parse_error", file, err)
		return nil, nil
	}
	if tool == nil {
		s.metrics.RecordSkip("not_a_tool")
	}
	return tool, nil
}

func (s *Scheduler) skip(reason string, file types.ContentEntry, err error) {
	s.metrics.RecordSkip(reason)
	s.logger.Warn("Skipping definition file",
		zap.String("file", file.Path),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

// descriptorFunc returns a per-folder memoized descriptor fetch. Concurrent
// first callers share one request through the session singleflight group.
func (s *Scheduler) descriptorFunc(listing types.Listing) toolxml.DescriptorFunc {
	marker, _ := listing.Find(github.MarkerFile)

	var (
		mu     sync.Mutex
		cached *types.RepositoryDescriptor
	)
	load := func() (types.RepositoryDescriptor, bool) {
		mu.Lock()
		defer mu.Unlock()
		if cached == nil {
			return types.RepositoryDescriptor{}, false
		}
		return *cached, true
	}
	return func(ctx context.Context) (types.RepositoryDescriptor, error) {
		if desc, ok := load(); ok {
			return desc, nil
		}
		v, err, _ := s.descriptors.Do(marker.DownloadURL, func() (interface{}, error) {
			if desc, ok := load(); ok {
				return desc, nil
			}
			desc, err := s.fetchDescriptor(ctx, marker)
			if err != nil {
				return nil, err
			}
			mu.Lock()
			cached = &desc
			mu.Unlock()
			return desc, nil
		})
		if err != nil {
			return types.RepositoryDescriptor{}, err
		}
		return v.(types.RepositoryDescriptor), nil
	}
}

// fetchDescriptor downloads .shed.yml; an unreadable descriptor yields empty metadata
func (s *Scheduler) fetchDescriptor(ctx context.Context, marker types.ContentEntry) (types.RepositoryDescriptor, error) {
	if marker.DownloadURL == "" {
		return types.RepositoryDescriptor{}, nil
	}
	text, err := s.fetcher.GetText(ctx, marker.DownloadURL)
	if err != nil {
		if client.Aborts(ctx, err) {
			return types.RepositoryDescriptor{}, err
		}
		s.logger.Warn("Descriptor unavailable", zap.String("url", marker.DownloadURL), zap.Error(err))
		return types.RepositoryDescriptor{}, nil
	}
	desc, err := toolshed.ParseDescriptor([]byte(text))
	if err != nil {
		s.logger.Warn("Descriptor unreadable", zap.String("url", marker.DownloadURL), zap.Error(err))
		return types.RepositoryDescriptor{}, nil
	}
	return desc, nil
}
