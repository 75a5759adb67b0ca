// Package domain holds the whitelist of crawlable Swedish hosts and their
// per-host metadata.
package domain

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// defaultTrust is assigned to a host that matches a registered entry only
// by suffix (e.g. "news.svt.se" against a registered "svt.se").
const defaultTrust = 0.5

// Entry is the stable per-host record held by the Registry.
type Entry struct {
	NextReady      time.Time
	Host           string
	Category       string
	SearchEndpoint string
	PathHints      []string
	Trust          float64
	CrawlCadence   time.Duration
	ErrorCount     int
	Active         bool
}

// rawEntry is the on-disk shape of a single registry record.
type rawEntry struct {
	Host           string   `yaml:"host"`
	Category       string   `yaml:"category"`
	SearchEndpoint string   `yaml:"search_endpoint"`
	PathHints      []string `yaml:"path_hints"`
	CrawlCadence   string   `yaml:"crawl_cadence"`
	Trust          float64  `yaml:"trust"`
}

// rawFile is the flat-list form: {"domains": [...]}.
type rawFile struct {
	Domains []rawEntry `yaml:"domains"`
}

// Registry holds the loaded whitelist. It is built once at startup and is
// immutable with respect to its entry set; only ErrorCount and NextReady are
// mutated afterwards, under the package mutex.
type Registry struct {
	entries map[string]*Entry
	mu      sync.RWMutex
}

// defaultEntries is installed when no registry file is available, so that
// requests degrade to a small known-good set instead of failing open to the
// entire web.
func defaultEntries() []*Entry {
	now := time.Now()

	mk := func(host, category string, trust float64) *Entry {
		return &Entry{
			Host:         host,
			Category:     category,
			Trust:        trust,
			CrawlCadence: time.Hour,
			NextReady:    now,
			Active:       true,
		}
	}

	return []*Entry{
		mk("svt.se", "news", 0.95),
		mk("dn.se", "news", 0.9),
		mk("aftonbladet.se", "news", 0.85),
		mk("regeringen.se", "government", 1.0),
		mk("smhi.se", "weather", 0.95),
	}
}

// New builds a Registry from a YAML file at path. It accepts both the flat
// list form ({"domains": [...]}) and the category-keyed form
// ({"news": [...], "government": [...]}). When path is empty, no file exists
// at path, or the file lists no hosts, the conservative built-in default set
// is installed; any other read or parse error is returned.
func New(path string) (*Registry, error) {
	if path == "" {
		return fromEntries(defaultEntries()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fromEntries(defaultEntries()), nil
		}

		return nil, fmt.Errorf("failed to read domain registry: %w", err)
	}

	entries, err := parseRegistryFile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse domain registry: %w", err)
	}

	if len(entries) == 0 {
		return fromEntries(defaultEntries()), nil
	}

	return fromEntries(entries), nil
}

func fromEntries(entries []*Entry) *Registry {
	r := &Registry{entries: make(map[string]*Entry, len(entries))}

	for _, e := range entries {
		r.entries[normalizeHost(e.Host)] = e
	}

	return r
}

// parseRegistryFile tries the flat form first, then the category-keyed form.
func parseRegistryFile(data []byte) ([]*Entry, error) {
	var flat rawFile
	if err := yaml.Unmarshal(data, &flat); err == nil && len(flat.Domains) > 0 {
		return toEntries(flat.Domains), nil
	}

	var keyed map[string][]rawEntry
	if err := yaml.Unmarshal(data, &keyed); err != nil {
		return nil, fmt.Errorf("unrecognized registry schema: %w", err)
	}

	var out []rawEntry

	for category, group := range keyed {
		for _, e := range group {
			if e.Category == "" {
				e.Category = category
			}

			out = append(out, e)
		}
	}

	return toEntries(out), nil
}

func toEntries(raw []rawEntry) []*Entry {
	now := time.Now()
	entries := make([]*Entry, 0, len(raw))

	for _, r := range raw {
		if r.Host == "" {
			continue
		}

		cadence, err := time.ParseDuration(r.CrawlCadence)
		if err != nil || cadence <= 0 {
			cadence = time.Hour
		}

		trust := r.Trust
		if trust == 0 {
			trust = defaultTrust
		}

		entries = append(entries, &Entry{
			Host:           normalizeHost(r.Host),
			Category:       r.Category,
			Trust:          trust,
			CrawlCadence:   cadence,
			NextReady:      now,
			PathHints:      r.PathHints,
			SearchEndpoint: r.SearchEndpoint,
			Active:         true,
		})
	}

	return entries
}

// normalizeHost lowercases a host and strips a leading "www.".
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

// Resolve returns the registry entry for host, matching either an exact
// registered host or a subdomain of one. Unknown-but-allowed hosts (those
// that only match by suffix against a registered apex) are not created here;
// Resolve only ever returns entries that were loaded or previously learned.
func (r *Registry) Resolve(host string) (*Entry, bool) {
	host = normalizeHost(host)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[host]; ok {
		return e, e.Active
	}

	for registered, e := range r.entries {
		if strings.HasSuffix(host, "."+registered) {
			return e, e.Active
		}
	}

	return nil, false
}

// IsAllowed reports whether url's host (or a registered suffix of it) exists
// in the registry and is active.
func (r *Registry) IsAllowed(host string) bool {
	_, ok := r.Resolve(host)
	return ok
}

// TrustFor returns the trust score for host: the registered value when host
// itself is registered, or the default suffix-match trust when host only
// matches a registered apex by suffix (e.g. a link discovered under an
// allowed apex) or is not registered at all.
func (r *Registry) TrustFor(host string) float64 {
	if e, ok := r.Resolve(host); ok && e.Host == normalizeHost(host) {
		return e.Trust
	}

	return defaultTrust
}

// EndpointFor expands the host's search-endpoint template with query,
// substituting the literal "{query}" placeholder.
func (r *Registry) EndpointFor(host, query string) (string, bool) {
	e, ok := r.Resolve(host)
	if !ok || e.SearchEndpoint == "" {
		return "", false
	}

	return strings.ReplaceAll(e.SearchEndpoint, "{query}", query), true
}

// PathHints returns the glob path hints registered for host.
func (r *Registry) PathHints(host string) []string {
	e, ok := r.Resolve(host)
	if !ok {
		return nil
	}

	return e.PathHints
}

// MatchesHint reports whether urlPath matches any of host's registered path
// hints. A host with no hints matches everything (no restriction configured).
// A leading "/" on either the hint or urlPath is ignored.
func (r *Registry) MatchesHint(host, urlPath string) bool {
	hints := r.PathHints(host)
	if len(hints) == 0 {
		return true
	}

	for _, hint := range hints {
		if ok, err := doublestar.Match(strings.TrimPrefix(hint, "/"), strings.TrimPrefix(urlPath, "/")); err == nil && ok {
			return true
		}
	}

	return false
}

// RecordError increments host's consecutive error count (RecordSuccess
// resets it) and, once it reaches threshold, pushes the domain's next-ready
// time out by twice its crawl cadence and resets the count. No time window
// applies to the count.
func (r *Registry) RecordError(host string, threshold int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[normalizeHost(host)]
	if !ok {
		return
	}

	e.ErrorCount++

	if e.ErrorCount >= threshold {
		e.NextReady = time.Now().Add(2 * e.CrawlCadence)
		e.ErrorCount = 0
	}
}

// RecordSuccess resets a host's error count after a successful fetch.
func (r *Registry) RecordSuccess(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[normalizeHost(host)]; ok {
		e.ErrorCount = 0
	}
}

// Hosts returns all registered hosts, sorted for deterministic diagnostics
// (e.g. a DomainNotAllowed error message listing the first few hosts).
func (r *Registry) Hosts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hosts := make([]string, 0, len(r.entries))
	for h := range r.entries {
		hosts = append(hosts, h)
	}

	sort.Strings(hosts)

	return hosts
}

// Seeds returns every active entry, used to seed the crawl frontier at
// startup.
func (r *Registry) Seeds() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.entries))

	for _, e := range r.entries {
		if e.Active {
			out = append(out, e)
		}
	}

	return out
}
