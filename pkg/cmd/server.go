package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/larsson/sokmotor/pkg/analytics"
	"github.com/larsson/sokmotor/pkg/analyzer"
	"github.com/larsson/sokmotor/pkg/api"
	"github.com/larsson/sokmotor/pkg/cache"
	"github.com/larsson/sokmotor/pkg/core"
	"github.com/larsson/sokmotor/pkg/crawler"
	"github.com/larsson/sokmotor/pkg/domain"
	"github.com/larsson/sokmotor/pkg/fetcher"
	"github.com/larsson/sokmotor/pkg/frontier"
	"github.com/larsson/sokmotor/pkg/index"
	"github.com/larsson/sokmotor/pkg/queryparser"
)

// pageRankRefreshInterval is how often the background crawl loop
// recomputes pagerank over the corpus; pagerank is a trailing signal and
// does not need to track every single upsert.
const pageRankRefreshInterval = 5 * time.Minute

// components bundles every wired piece built from an appConfig, shared by
// RunServe and RunCrawlOnce.
type components struct {
	registry *domain.Registry
	store    *index.Store
	idx      *index.Index
	front    *frontier.Frontier
	fetch    *fetcher.Fetcher
	crawl    *crawler.Crawler
	orch     *core.Orchestrator
}

func buildComponents(cfg *appConfig) (*components, error) {
	reg, err := domain.New(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load domain registry: %w", err)
	}

	store, err := index.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	a := analyzer.New()
	idx := index.New(store, a)

	front := frontier.New(cfg.FrontierCapacity, cfg.PerHostDelay)
	fetch := fetcher.New(fetcher.DefaultTimeout)
	crawl := crawler.New(reg, front, fetch, idx, cfg.FetcherPoolSize)

	c := cache.New(cfg.CacheCapacity, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	counter := analytics.New(analytics.DefaultTopK)
	parser := queryparser.New(queryparser.DefaultMaxTerms)

	orch := core.New(reg, a, parser, idx, c, counter, cfg.SnippetMaxLength)

	return &components{registry: reg, store: store, idx: idx, front: front, fetch: fetch, crawl: crawl, orch: orch}, nil
}

// RunServe initializes the logger, loads configuration, wires every
// component, seeds and runs the background crawler, and serves the HTTP
// API until ctx is canceled.
func RunServe(ctx context.Context, flags *cmdFlags) error {
	if err := initLogger(flags); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	defer comps.store.Close()

	comps.crawl.SeedRegistry()

	crawlCtx, cancelCrawl := context.WithCancel(ctx)
	defer cancelCrawl()

	go comps.crawl.Run(crawlCtx)
	go runPageRankLoop(crawlCtx, comps.orch)

	apiSvc, err := api.New(cfg.apiConfig(flags.version), comps.orch)
	if err != nil {
		return fmt.Errorf("failed to create API service: %w", err)
	}

	if err := apiSvc.Run(ctx); err != nil {
		return fmt.Errorf("failed to run API service: %w", err)
	}

	return nil
}

// runPageRankLoop recomputes pagerank on a fixed interval until ctx is
// canceled, logging (but not failing the server on) any error.
func runPageRankLoop(ctx context.Context, orch *core.Orchestrator) {
	ticker := time.NewTicker(pageRankRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := orch.RefreshPageRank(); err != nil {
				slog.Error("failed to refresh pagerank", "error", err)
			}
		}
	}
}
