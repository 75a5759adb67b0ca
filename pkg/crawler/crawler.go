// Package crawler ties the domain registry, URL frontier, fetcher pool and
// inverted index together into a bounded worker pool that drains the
// frontier, indexes fetched pages, and feeds discovered in-allow-list links
// back in.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/larsson/sokmotor/pkg/domain"
	"github.com/larsson/sokmotor/pkg/fetcher"
	"github.com/larsson/sokmotor/pkg/frontier"
	"github.com/larsson/sokmotor/pkg/index"
	"github.com/larsson/sokmotor/pkg/sokerr"
)

// DefaultWorkers is the default number of concurrent fetcher workers.
const DefaultWorkers = 4

// errorThreshold is the number of consecutive failures on a host before the
// registry delays its next crawl, per the error-handling design.
const errorThreshold = 5

// Crawler drains the Frontier with a bounded pool of workers, fetching and
// indexing each URL, then enqueuing newly discovered same-allow-list links.
type Crawler struct {
	registry *domain.Registry
	frontier *frontier.Frontier
	fetcher  *fetcher.Fetcher
	index    *index.Index
	workers  int
}

// New builds a Crawler with the given component wiring. workers <= 0 uses
// DefaultWorkers.
func New(reg *domain.Registry, f *frontier.Frontier, fp *fetcher.Fetcher, idx *index.Index, workers int) *Crawler {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Crawler{registry: reg, frontier: f, fetcher: fp, index: idx, workers: workers}
}

// SeedRegistry enqueues the registry's search-endpoint seeds into the
// frontier at maximum priority.
func (c *Crawler) SeedRegistry() {
	for _, entry := range c.registry.Seeds() {
		if entry.SearchEndpoint == "" {
			continue
		}

		if _, err := c.frontier.Add(entry.SearchEndpoint, 10); err != nil {
			slog.Warn("failed to seed frontier", "host", entry.Host, "error", err)
		}
	}
}

// SubmitURL enqueues a single, caller-supplied URL for direct navigation,
// as opposed to a link discovered mid-crawl. Unlike discovered links, which
// are silently dropped when their host falls outside the allow-list, a
// direct-navigation request is rejected with a DomainNotAllowed error so the
// caller can surface it.
func (c *Crawler) SubmitURL(rawURL string, priority int) error {
	host := frontier.HostOf(rawURL)

	if !c.registry.IsAllowed(host) {
		return sokerr.DomainNotAllowed(host, c.registry.Hosts())
	}

	if _, err := c.frontier.Add(rawURL, priority); err != nil {
		return fmt.Errorf("failed to enqueue url: %w", err)
	}

	return nil
}

// Run starts workers workers that drain the Frontier until ctx is canceled.
// It blocks until every worker has exited.
func (c *Crawler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for i := 0; i < c.workers; i++ {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()
			c.worker(ctx, id)
		}(i)
	}

	wg.Wait()
}

func (c *Crawler) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rawURL, ok := c.frontier.Next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		c.crawlOne(ctx, id, rawURL)
	}
}

func (c *Crawler) crawlOne(ctx context.Context, workerID int, rawURL string) {
	host := frontier.HostOf(rawURL)

	if !c.registry.IsAllowed(host) {
		slog.Warn("skipping disallowed host reached via frontier", "worker", workerID, "host", host)
		c.frontier.MarkFailed(rawURL)

		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetcher.DefaultTimeout)
	defer cancel()

	if !c.fetcher.Allowed(fetchCtx, host, pathOf(rawURL)) {
		slog.Debug("robots.txt disallows path", "worker", workerID, "url", rawURL)
		c.frontier.MarkVisited(rawURL)

		return
	}

	doc, err := c.fetcher.Fetch(fetchCtx, rawURL)
	if err != nil {
		c.handleFetchError(workerID, host, rawURL, err)
		return
	}

	c.registry.RecordSuccess(host)

	if _, err := c.index.Upsert(index.Document{
		FetchedAt:          doc.FetchedAt,
		URL:                doc.URL,
		Host:               doc.Host,
		Title:              doc.Title,
		Description:        doc.Description,
		Body:                doc.Body,
		ContentType:        doc.ContentType,
		DiscoveredFromHost: host,
		OutboundLinks:      doc.OutboundLinks,
	}); err != nil {
		slog.Error("failed to index fetched page", "worker", workerID, "url", rawURL, "error", err)
		c.frontier.MarkFailed(rawURL)

		return
	}

	c.frontier.MarkVisited(rawURL)

	for _, link := range doc.OutboundLinks {
		linkHost := frontier.HostOf(link)
		if !c.registry.IsAllowed(linkHost) {
			continue
		}

		if !c.registry.MatchesHint(linkHost, pathOf(link)) {
			continue
		}

		if _, err := c.frontier.Add(link, 8); err != nil {
			slog.Debug("could not enqueue discovered link", "link", link, "error", err)
		}
	}
}

// pathOf extracts the request path (with query string) from a canonical
// URL, defaulting to "/" when parsing fails or the path is empty.
func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return path
}

func (c *Crawler) handleFetchError(workerID int, host, rawURL string, err error) {
	slog.Warn("fetch failed", "worker", workerID, "url", rawURL, "error", err)
	c.registry.RecordError(host, errorThreshold)
	c.frontier.MarkFailed(rawURL)

	if se, ok := sokerr.As(err); ok {
		slog.Debug("typed fetch error", "kind", se.Kind, "status", se.Status)
	}
}
