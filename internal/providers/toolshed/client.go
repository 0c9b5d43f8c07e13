package toolshed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultURL is the main public ToolShed
const DefaultURL = "https://toolshed.g2.bx.psu.edu"

// ErrNoRemoteRepository is returned when install info names no source repository
var ErrNoRemoteRepository = errors.New("no remote repository url")

// Fetcher is the subset of the HTTP client the ToolShed client needs
type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, query map[string]string, out interface{}) error
}

// Repository is one entry of the ToolShed registry listing
type Repository struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Owner               string `json:"owner"`
	Description         string `json:"description"`
	Type                string `json:"type"`
	RemoteRepositoryURL string `json:"remote_repository_url"`
	HomepageURL         string `json:"homepage_url"`
	Deleted             bool   `json:"deleted"`
}

// Client queries ToolShed instances
type Client struct {
	fetcher   Fetcher
	registry  string
	endpoints map[string]string
	logger    *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithRegistryURL sets the ToolShed whose registry is enumerated
func WithRegistryURL(base string) Option {
	return func(c *Client) {
		c.registry = strings.TrimRight(base, "/")
	}
}

// WithEndpoint maps a reference host to an explicit base URL
func WithEndpoint(host, base string) Option {
	return func(c *Client) {
		c.endpoints[host] = strings.TrimRight(base, "/")
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a ToolShed client
func NewClient(fetcher Fetcher, opts ...Option) *Client {
	c := &Client{
		fetcher:   fetcher,
		registry:  DefaultURL,
		endpoints: make(map[string]string),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// baseURL returns the API base for a reference host
func (c *Client) baseURL(host string) string {
	if base, ok := c.endpoints[host]; ok {
		return base
	}
	return "https://" + host
}

// InstallInfo returns the source repository URL of a tool reference at a revision
func (c *Client) InstallInfo(ctx context.Context, ref Reference, revision string) (string, error) {
	if revision == "" {
		revision = ref.Version
	}
	endpoint := c.baseURL(ref.Host) + "/api/repositories/get_repository_revision_install_info"
	query := map[string]string{
		"name":               ref.Repository,
		"owner":              ref.Owner,
		"changeset_revision": revision,
	}

	var info []map[string]interface{}
	if err := c.fetcher.GetJSON(ctx, endpoint, query, &info); err != nil {
		return "", fmt.Errorf("install info %s/%s@%s: %w", ref.Owner, ref.Repository, revision, err)
	}
	for _, item := range info {
		if remote, ok := item["remote_repository_url"].(string); ok && strings.TrimSpace(remote) != "" {
			return strings.TrimSpace(remote), nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s@%s", ErrNoRemoteRepository, ref.Owner, ref.Repository, revision)
}

// Repositories lists every repository registered in the ToolShed
func (c *Client) Repositories(ctx context.Context) ([]Repository, error) {
	var repos []Repository
	if err := c.fetcher.GetJSON(ctx, c.registry+"/api/repositories", nil, &repos); err != nil {
		return nil, fmt.Errorf("list toolshed repositories: %w", err)
	}
	c.logger.Debug("Loaded toolshed registry", zap.Int("repositories", len(repos)))
	return repos, nil
}
