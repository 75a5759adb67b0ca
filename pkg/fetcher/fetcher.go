// Package fetcher retrieves pages from the allowed domain set, extracting
// title, description, body text and outbound links with goquery, and
// honoring robots.txt with a best-effort parse via temoto/robotstxt.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"

	"github.com/larsson/sokmotor/pkg/frontier"
	"github.com/larsson/sokmotor/pkg/sokerr"
)

// DefaultTimeout is the hard per-fetch deadline.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent identifies the crawler to remote servers.
const DefaultUserAgent = "sokmotor-bot/1.0 (+https://github.com/larsson/sokmotor)"

const maxBodyBytes = 5 << 20 // 5MiB

// Document is the extracted content of a fetched page, ready for indexing.
type Document struct {
	FetchedAt     time.Time
	URL           string
	Host          string
	Title         string
	Description   string
	Body          string
	ContentType   string
	OutboundLinks []string
}

// Fetcher performs HTTP GETs against allowed hosts, parses the response
// with goquery, and caches a best-effort robots.txt Group per host. A single
// Fetcher is shared by every crawler worker goroutine, so the robots cache
// is guarded by a mutex.
type Fetcher struct {
	client    *http.Client
	userAgent string
	robotsMu  sync.Mutex
	robots    map[string]*robotstxt.Group
}

// New creates a Fetcher with the given per-request timeout (DefaultTimeout
// if <= 0).
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: DefaultUserAgent,
		robots:    make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether host's robots.txt permits fetching path. A
// missing or unparsable robots.txt allows everything (best-effort, per the
// concurrency model: robots.txt is advisory, not a hard gate).
func (f *Fetcher) Allowed(ctx context.Context, host, path string) bool {
	f.robotsMu.Lock()
	group, ok := f.robots[host]
	f.robotsMu.Unlock()

	if !ok {
		group = f.fetchRobots(ctx, host)

		f.robotsMu.Lock()
		f.robots[host] = group
		f.robotsMu.Unlock()
	}

	if group == nil {
		return true
	}

	return group.Test(path)
}

func (f *Fetcher) fetchRobots(ctx context.Context, host string) *robotstxt.Group {
	robotsURL := "https://" + host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		slog.DebugContext(ctx, "could not fetch robots.txt, allowing all", "host", host, "error", err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}

	return data.FindGroup(f.userAgent)
}

// Fetch retrieves rawURL, applying the fetcher's timeout as a hard
// deadline, and extracts a Document. A timeout, transport failure, non-2xx
// status, or unparsable body is returned as the corresponding sokerr kind.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	host := frontier.HostOf(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, sokerr.FetchTransport(err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if te, ok := err.(interface{ Timeout() bool }); ctx.Err() != nil || (ok && te.Timeout()) {
			return nil, sokerr.FetchTimeout(err)
		}

		return nil, sokerr.FetchTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, sokerr.FetchHTTP(resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxBodyBytes)

	doc, err := goquery.NewDocumentFromReader(limited)
	if err != nil {
		return nil, sokerr.FetchParse(err)
	}

	return extract(doc, rawURL, host, resp.Header.Get("Content-Type")), nil
}

func extract(doc *goquery.Document, rawURL, host, contentType string) *Document {
	title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")

	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	description, _ := doc.Find(`meta[name="description"]`).Attr("content")
	if description == "" {
		description, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	}

	doc.Find("script, style, nav, header, footer, noscript").Remove()

	body := normalizeWhitespace(doc.Find("body").Text())

	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}

		if resolved, ok := resolveLink(rawURL, href); ok {
			links = append(links, resolved)
		}
	})

	return &Document{
		FetchedAt:     time.Now(),
		URL:           rawURL,
		Host:          host,
		Title:         title,
		Description:   strings.TrimSpace(description),
		Body:          body,
		ContentType:   contentType,
		OutboundLinks: links,
	}
}

func resolveLink(base, href string) (string, bool) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	resolved := baseURL.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}

	canon, err := frontier.Canonicalize(resolved.String())
	if err != nil {
		return "", false
	}

	return canon, true
}

func normalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// Stringify is a small debugging helper used by CLI commands to render a
// fetch outcome without dumping the full body.
func Stringify(d *Document) string {
	if d == nil {
		return "<nil>"
	}

	return fmt.Sprintf("%s (%d bytes, %d links)", d.URL, len(d.Body), len(d.OutboundLinks))
}
