package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/config"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/resilience"
)

// Options configures a Client
type Options struct {
	Timeout           time.Duration
	RetryMax          int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RequestsPerSecond float64
	UserAgent         string

	// Token is sent as a bearer token, only to AuthHosts
	Token     string
	AuthHosts []string

	Gate    *resilience.Gate
	Metrics *monitoring.Metrics
	Logger  *zap.Logger
}

// DefaultOptions returns options suitable for the public APIs
func DefaultOptions() Options {
	return Options{
		Timeout:      30 * time.Second,
		RetryMax:     3,
		RetryWaitMin: time.Second,
		RetryWaitMax: 30 * time.Second,
		UserAgent:    "toolmeta-harvester/1.0",
		AuthHosts:    []string{"api.github.com", "raw.githubusercontent.com"},
	}
}

// OptionsFromConfig derives client options from harvester configuration
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Timeout = cfg.HTTP.Timeout.Std()
	opts.RetryMax = cfg.HTTP.RetryMax
	opts.RequestsPerSecond = cfg.HTTP.RequestsPerSecond
	opts.UserAgent = cfg.HTTP.UserAgent
	opts.Token = cfg.GitHub.Token
	if u, err := url.Parse(cfg.GitHub.APIURL); err == nil && u.Host != "" {
		opts.AuthHosts = append(opts.AuthHosts, u.Host)
	}
	opts.Gate = resilience.NewGate(resilience.GateSettings{Cooldown: cfg.Crawl.Cooldown.Std()})
	return opts
}

// Client is the outbound HTTP client shared by every crawler component.
// Requests wait on the host cooldown gate and the pacing limiter; transient
// 5xx/429 responses are retried by the transport.
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
	Gate    *resilience.Gate

	token     string
	authHosts map[string]struct{}
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	mu        sync.RWMutex
}

// NewClient creates the HTTP client
func NewClient(opts Options) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.Logger = nil
	// Hand the last response back instead of a "giving up" error
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent)
	restyClient.JSONUnmarshal = sonic.Unmarshal

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	gate := opts.Gate
	if gate == nil {
		gate = resilience.NewGate(resilience.GateSettings{})
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	authHosts := make(map[string]struct{}, len(opts.AuthHosts))
	for _, h := range opts.AuthHosts {
		authHosts[strings.ToLower(h)] = struct{}{}
	}

	return &Client{
		Resty:     restyClient,
		Limiter:   limiter,
		Gate:      gate,
		token:     opts.Token,
		authHosts: authHosts,
		metrics:   opts.Metrics,
		logger:    logger,
	}
}

// SetRateLimit configures request pacing (requests per second, 0 = unlimited)
func (c *Client) SetRateLimit(rps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rps <= 0 {
		c.Limiter = rate.NewLimiter(rate.Inf, 0)
		return
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Get performs a GET and returns the response only for 2xx statuses.
// A rate limit status trips the host gate and returns a *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string, query map[string]string) (*resty.Response, error) {
	host := HostOf(rawURL)

	if err := c.Gate.Wait(ctx, host); err != nil {
		return nil, err
	}

	c.mu.RLock()
	limiter := c.Limiter
	c.mu.RUnlock()
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	req := c.Resty.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if c.token != "" {
		if _, ok := c.authHosts[host]; ok {
			req.SetAuthToken(c.token)
		}
	}

	start := time.Now()
	resp, err := req.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	c.metrics.RecordFetch(host, resp.StatusCode(), time.Since(start))

	if IsRateLimitStatus(resp.StatusCode()) {
		reopen := c.Gate.Trip(host)
		c.metrics.RecordRateLimit(host)
		c.logger.Warn("Rate limited, host cooling down",
			zap.String("host", host),
			zap.String("url", rawURL),
			zap.Time("reopens_at", reopen),
		)
		return nil, &StatusError{Code: resp.StatusCode(), URL: rawURL}
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{Code: resp.StatusCode(), URL: rawURL}
	}
	return resp, nil
}

// GetJSON fetches a URL and decodes its JSON body into out
func (c *Client) GetJSON(ctx context.Context, rawURL string, query map[string]string, out interface{}) error {
	resp, err := c.Get(ctx, rawURL, query)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// GetPage fetches a URL, decodes its JSON body into out and returns the
// response headers (pagination links)
func (c *Client) GetPage(ctx context.Context, rawURL string, query map[string]string, out interface{}) (http.Header, error) {
	resp, err := c.Get(ctx, rawURL, query)
	if err != nil {
		return nil, err
	}
	if err := sonic.Unmarshal(resp.Body(), out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return resp.Header(), nil
}

// GetText fetches raw text content
func (c *Client) GetText(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.Get(ctx, rawURL, nil)
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

// GetBytes fetches raw binary content
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// HostOf returns the lower-cased host of a URL, or the input if it has none
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.ToLower(u.Host)
}

// IsRateLimitStatus reports whether a status is the external rate limit signal
func IsRateLimitStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusTooManyRequests
}

// StatusError is a non-2xx response
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// RateLimited reports whether the status is a rate limit signal
func (e *StatusError) RateLimited() bool {
	return IsRateLimitStatus(e.Code)
}

// StatusCode extracts the HTTP status carried by err
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// IsRateLimited reports whether err carries a rate limit status
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.RateLimited()
}

// Aborts reports whether a failed fetch ends the whole folder attempt
// instead of skipping one file: the host is rate limited or ctx is done
func Aborts(ctx context.Context, err error) bool {
	return IsRateLimited(err) || ctx.Err() != nil
}
