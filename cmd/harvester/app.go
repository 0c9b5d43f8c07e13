package main

import (
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/domain/crawl"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/domain/harvest"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/domain/toolxml"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/domain/workflow"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/store"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/github"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/http/client"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/toolshed"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/providers/workflowhub"
)

// app holds the components of one command run
type app struct {
	opts    *cliOptions
	metrics *monitoring.Metrics
	http    *client.Client
	parser  *toolxml.Parser
	indexer *github.Indexer
	store   store.Store
}

func newApp(opts *cliOptions) (*app, error) {
	cfg := opts.cfg
	metrics := monitoring.NewMetrics()

	httpOpts := client.OptionsFromConfig(cfg)
	httpOpts.Metrics = metrics
	httpOpts.Logger = opts.logger.Component("http")
	httpClient := client.NewClient(httpOpts)

	sub, err := toolxml.SubstituterFor(cfg.Crawl.Substitution)
	if err != nil {
		return nil, err
	}
	parser := toolxml.NewParser(httpClient,
		toolxml.WithSubstituter(sub),
		toolxml.WithLogger(opts.logger.Component("toolxml")),
	)
	indexer := github.NewIndexer(httpClient,
		github.WithExcludes(cfg.Crawl.Exclude...),
		github.WithRetryPolicy(retryPolicy(opts)),
		github.WithLogger(opts.logger.Component("indexer")),
	)

	a := &app{
		opts:    opts,
		metrics: metrics,
		http:    httpClient,
		parser:  parser,
		indexer: indexer,
	}
	if opts.useStore {
		if err := a.openStore(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func retryPolicy(opts *cliOptions) resilience.RetryPolicy {
	return resilience.RetryPolicy{MaxRetries: opts.cfg.Crawl.MaxRateLimitRetries}
}

func (a *app) openStore() error {
	if a.store != nil {
		return nil
	}
	st, err := store.OpenBolt(a.opts.cfg.Store.Path)
	if err != nil {
		return err
	}
	a.opts.logger.Debug("Opened record store", zap.String("path", st.Path()))
	a.store = st
	return nil
}

func (a *app) requireStore() error {
	if err := a.openStore(); err != nil {
		return errors.Join(errors.New("this command needs a record store"), err)
	}
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.opts.logger.Warn("Failed to close record store", zap.Error(err))
		}
	}
}

// scheduler creates a crawl session; withRecords persists folder records
func (a *app) scheduler(withRecords bool) *crawl.Scheduler {
	cfg := a.opts.cfg
	opts := crawl.DefaultOptions()
	opts.Workers = cfg.Crawl.Workers
	opts.HostConcurrency = cfg.Crawl.HostConcurrency
	opts.Retry = retryPolicy(a.opts)
	opts.Parser = a.parser
	opts.Indexer = a.indexer
	opts.Metrics = a.metrics
	opts.Logger = a.opts.logger.Component("crawl")
	if withRecords && a.store != nil {
		opts.Store = a.store
	}
	return crawl.NewScheduler(a.http, opts)
}

func (a *app) toolShed() *toolshed.Client {
	return toolshed.NewClient(a.http,
		toolshed.WithRegistryURL(a.opts.cfg.ToolShed.URL),
		toolshed.WithLogger(a.opts.logger.Component("toolshed")),
	)
}

func (a *app) toolResolver() *harvest.ToolResolver {
	return harvest.NewToolResolver(a.toolShed(), a.scheduler(false), a.opts.cfg.GitHub.APIURL, a.opts.logger.Component("resolver"))
}

func (a *app) harvester() *harvest.Harvester {
	cfg := a.opts.cfg
	h := harvest.Options{
		Registry: a.toolShed(),
		Hub:      workflowhub.NewClient(a.http, cfg.Hub.URL, a.opts.logger.Component("workflowhub")),
		Crawler:  a.scheduler(a.opts.useStore),
		Resolver: workflow.NewResolver(a.toolResolver(), a.metrics, a.opts.logger.Component("workflow")),
		APIURL:   cfg.GitHub.APIURL,
		Ignore:   cfg.ToolShed.IgnoreRepositories,

		DescriptorType: cfg.Hub.DescriptorType,
		Tracer:         tracing.New(a.opts.logger.Component("trace")),
		Logger:         a.opts.logger.Component("harvest"),
	}
	if a.store != nil {
		h.Store = a.store
	}
	return harvest.New(h)
}
