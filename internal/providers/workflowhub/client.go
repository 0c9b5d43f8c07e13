package workflowhub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

// DefaultURL is the TRS v2 root of the public Workflow Hub
const DefaultURL = "https://workflowhub.eu/ga4gh/trs/v2"

// DescriptorGalaxy is the TRS descriptor type of Galaxy workflows
const DescriptorGalaxy = "galaxy"

// maxWorkflowSize bounds a decompressed .ga entry
const maxWorkflowSize = 32 << 20

var (
	// ErrNotArchive is returned when a download is not a zip archive
	ErrNotArchive = errors.New("download is not a zip archive")
	// ErrNoWorkflow is returned when an archive holds no .ga file
	ErrNoWorkflow = errors.New("archive contains no .ga workflow")
)

// Fetcher is the HTTP surface the hub client needs
type Fetcher interface {
	GetPage(ctx context.Context, rawURL string, query map[string]string, out interface{}) (http.Header, error)
	GetBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// ToolVersion is one TRS version of a listed workflow
type ToolVersion struct {
	ID             string   `json:"id"`
	URL            string   `json:"url"`
	Name           string   `json:"name"`
	DescriptorType []string `json:"descriptor_type"`
}

// Workflow is one TRS tool entry
type Workflow struct {
	ID           string        `json:"id"`
	URL          string        `json:"url"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Organization string        `json:"organization"`
	Versions     []ToolVersion `json:"versions"`
}

// DescriptorType returns the lower-cased descriptor type of the first version
func (w Workflow) DescriptorType() string {
	if len(w.Versions) == 0 || len(w.Versions[0].DescriptorType) == 0 {
		return ""
	}
	return strings.ToLower(w.Versions[0].DescriptorType[0])
}

// Client reads workflows from a Workflow Hub
type Client struct {
	fetcher Fetcher
	baseURL string
	logger  *zap.Logger
}

// NewClient creates a hub client for a TRS v2 root; an empty base selects DefaultURL
func NewClient(fetcher Fetcher, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Workflows pages through the TRS listing, following next_page headers,
// and keeps entries whose descriptor type matches. A non-positive limit
// reads every page.
func (c *Client) Workflows(ctx context.Context, descriptorType string, limit int) ([]Workflow, error) {
	descriptorType = strings.ToLower(descriptorType)
	next := c.baseURL + "/tools/"
	seen := make(map[string]struct{})
	var out []Workflow

	for next != "" {
		if _, ok := seen[next]; ok {
			break
		}
		seen[next] = struct{}{}

		var page []Workflow
		header, err := c.fetcher.GetPage(ctx, next, nil, &page)
		if err != nil {
			return nil, fmt.Errorf("list workflows: %w", err)
		}
		for _, wf := range page {
			if descriptorType != "" && wf.DescriptorType() != descriptorType {
				continue
			}
			out = append(out, wf)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
		next = header.Get("next_page")
		c.logger.Debug("Listed workflow page", zap.Int("entries", len(page)), zap.String("next", next))
	}
	return out, nil
}

// Download fetches a workflow's archive and returns its first .ga entry
func (c *Client) Download(ctx context.Context, wf Workflow) ([]byte, error) {
	archive, err := c.fetcher.GetBytes(ctx, strings.TrimRight(wf.URL, "/")+"/download")
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", wf.ID, err)
	}
	data, err := ExtractWorkflow(archive)
	if err != nil {
		return nil, fmt.Errorf("workflow %s: %w", wf.ID, err)
	}
	return data, nil
}

// ExtractWorkflow returns the first .ga file of a zip archive in archive order
func ExtractWorkflow(archive []byte) ([]byte, error) {
	if !isZip(archive) {
		return nil, ErrNotArchive
	}
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArchive, err)
	}
	for _, f := range reader.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".ga") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxWorkflowSize+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if len(data) > maxWorkflowSize {
			return nil, fmt.Errorf("%s exceeds %d bytes", f.Name, maxWorkflowSize)
		}
		return data, nil
	}
	return nil, ErrNoWorkflow
}

// isZip reports whether the detected type is zip or a zip-based format
func isZip(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}
