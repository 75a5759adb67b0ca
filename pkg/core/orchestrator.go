package core

import (
	"strings"
	"sync"
	"time"

	"github.com/larsson/sokmotor/pkg/analytics"
	"github.com/larsson/sokmotor/pkg/analyzer"
	"github.com/larsson/sokmotor/pkg/cache"
	"github.com/larsson/sokmotor/pkg/domain"
	"github.com/larsson/sokmotor/pkg/index"
	"github.com/larsson/sokmotor/pkg/queryparser"
	"github.com/larsson/sokmotor/pkg/ranker"
	"github.com/larsson/sokmotor/pkg/snippet"
	"github.com/larsson/sokmotor/pkg/sokerr"
)

// Strategy selects a ranking weight profile, letting callers bias a search
// toward raw relevance, trusted/linked authority, or freshness without
// changing the query itself.
type Strategy string

const (
	StrategyHybrid     Strategy = "hybrid"
	StrategyRelevance  Strategy = "relevance"
	StrategyPopularity Strategy = "popularity"
	StrategyRecency    Strategy = "recency"
)

const (
	// DefaultLimit is used when a caller requests zero results.
	DefaultLimit = 10
	// MaxLimit caps a single page of results, per the pagination clamp.
	MaxLimit = 50
	// maxRanked bounds how many ranked hits a single query keeps (and
	// therefore how many are cached), beyond which the tail is dropped
	// rather than scored and sorted for no visible benefit.
	maxRanked = 200
	// suggestionMinDF is the minimum document frequency a term needs to
	// surface as a suggestion, filtering out crawl-noise singletons.
	suggestionMinDF = 2
)

// cached is what the orchestrator stores in the result cache: the fully
// ranked and snippeted hit list for a (query, strategy) pair, so that
// different pages of the same search are served from one cache entry
// instead of one entry per offset.
type cached struct {
	diagnostic string
	results    []RankedResult
}

// Orchestrator wires the domain registry, text analyzer, query parser,
// inverted index, ranker, result cache and analytics counter into the single
// entry point the API layer calls for a search.
type Orchestrator struct {
	registry   *domain.Registry
	analyzer   *analyzer.Analyzer
	parser     *queryparser.Parser
	index      *index.Index
	scorer     *index.Scorer
	cache      *cache.Cache
	analytics  *analytics.Counter
	snippetLen int

	mu       sync.RWMutex
	pageRank *ranker.PageRank
}

// New builds an Orchestrator. snippetMaxLength <= 0 uses snippet.MaxLength.
func New(
	reg *domain.Registry,
	a *analyzer.Analyzer,
	p *queryparser.Parser,
	idx *index.Index,
	c *cache.Cache,
	counter *analytics.Counter,
	snippetMaxLength int,
) *Orchestrator {
	return &Orchestrator{
		registry:   reg,
		analyzer:   a,
		parser:     p,
		index:      idx,
		scorer:     index.NewScorer(idx, index.DefaultBM25Params),
		cache:      c,
		analytics:  counter,
		snippetLen: snippetMaxLength,
		pageRank:   &ranker.PageRank{},
	}
}

// RefreshPageRank recomputes the pagerank graph over the current corpus. It
// should be called periodically (e.g. after a crawl pass) since pagerank is
// relatively expensive and does not need to be exact in real time.
func (o *Orchestrator) RefreshPageRank() error {
	ids, err := o.index.AllPageIDs()
	if err != nil {
		return err
	}

	links, err := o.index.AllLinks()
	if err != nil {
		return err
	}

	pr := ranker.ComputePageRank(ids, links)

	o.mu.Lock()
	o.pageRank = pr
	o.mu.Unlock()

	return nil
}

func (o *Orchestrator) currentPageRank() *ranker.PageRank {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.pageRank
}

// group is a set of indexed-form tokens of which at least one must occur in
// a page for a single query term (or phrase word) to be satisfied; synonym
// and compound-split alternatives live in the same group, OR'd together.
// Groups themselves combine with AND semantics across a query, matching the
// inclusive-AND behavior the parser documents.
type group struct {
	tokens []string
	phrase string // non-empty for a phrase requirement, used for the adjacency check
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]

	for _, s := range in {
		if s == "" {
			continue
		}

		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}

func (o *Orchestrator) buildGroups(q *queryparser.SearchQuery) []group {
	groups := make([]group, 0, len(q.Terms)+len(q.Phrases))

	for _, term := range q.Terms {
		var tokens []string

		for _, expanded := range o.analyzer.Expand(term) {
			tokens = append(tokens, o.analyzer.Analyze(expanded)...)
		}

		tokens = dedupe(tokens)
		if len(tokens) == 0 {
			continue
		}

		groups = append(groups, group{tokens: tokens})
	}

	for _, phrase := range q.Phrases {
		tokens := dedupe(o.analyzer.Analyze(phrase))
		if len(tokens) == 0 {
			continue
		}

		groups = append(groups, group{tokens: tokens, phrase: phrase})
	}

	return groups
}

func (o *Orchestrator) excludedTokens(q *queryparser.SearchQuery) map[string]struct{} {
	out := make(map[string]struct{})

	for _, term := range q.ExcludeTerms {
		for _, tok := range o.analyzer.Analyze(term) {
			out[tok] = struct{}{}
		}
	}

	return out
}

// candidateBuild accumulates per-page retrieval facts while intersecting
// groups, before the ranker ever sees a page.
type candidateBuild struct {
	page         *index.Page
	matchedGroup []bool // one per group, whether this page satisfied it
	bm25Sum      float64
	titleMatches int
	descMatches  int
	bodyMatches  int
}

// retrieve resolves q's groups against the index, intersecting per-group
// postings with AND semantics and collecting the BM25/field-match facts the
// ranker needs, in a single pass over the postings each token touches. Pages
// that contain any excluded token are dropped from the result.
func (o *Orchestrator) retrieve(groups []group, exclude map[string]struct{}) (map[index.PageID]*candidateBuild, error) {
	builds := make(map[index.PageID]*candidateBuild)

	for gi, g := range groups {
		groupHits := make(map[index.PageID]struct{})

		for _, token := range g.tokens {
			if _, excluded := exclude[token]; excluded {
				continue
			}

			postings, err := o.index.GetPostings(token)
			if err != nil {
				return nil, err
			}

			for _, p := range postings {
				groupHits[p.PageID] = struct{}{}

				b, ok := builds[p.PageID]
				if !ok {
					page, err := o.index.GetPage(p.PageID)
					if err != nil {
						return nil, err
					}

					if page == nil {
						continue
					}

					b = &candidateBuild{page: page, matchedGroup: make([]bool, len(groups))}
					builds[p.PageID] = b
				}

				b.matchedGroup[gi] = true

				docLen := b.page.Length
				if docLen == 0 {
					docLen = 1
				}

				score, err := o.scorer.TermScore(token, p, docLen)
				if err != nil {
					return nil, err
				}

				b.bm25Sum += score

				if p.InTitle {
					b.titleMatches++
				}

				if p.InDesc {
					b.descMatches++
				}

				if p.InBody {
					b.bodyMatches++
				}
			}
		}

		if len(groupHits) == 0 {
			return nil, nil
		}
	}

	for token := range exclude {
		postings, err := o.index.GetPostings(token)
		if err != nil {
			return nil, err
		}

		for _, p := range postings {
			delete(builds, p.PageID)
		}
	}

	out := make(map[index.PageID]*candidateBuild, len(builds))

	for id, b := range builds {
		if allGroupsMatched(b.matchedGroup) {
			out[id] = b
		}
	}

	return out, nil
}

func allGroupsMatched(matched []bool) bool {
	for _, m := range matched {
		if !m {
			return false
		}
	}

	return true
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func matchesDomain(page *index.Page, domainFilter string) bool {
	if domainFilter == "" {
		return true
	}

	want := normalizeHost(domainFilter)
	host := normalizeHost(page.Host)

	return host == want || strings.HasSuffix(host, "."+want)
}

func matchesLang(page *index.Page, langFilter string) bool {
	if langFilter == "" {
		return true
	}

	lang := page.Language
	if lang == "" {
		lang = "sv" // the corpus is Swedish-only; untagged pages default to sv
	}

	return strings.EqualFold(lang, langFilter)
}

func matchesDateRange(page *index.Page, q *queryparser.SearchQuery) bool {
	if q.HasDateFrom() && page.FetchedAt.Before(q.DateFrom) {
		return false
	}

	if q.HasDateTo() && page.FetchedAt.After(q.DateTo) {
		return false
	}

	return true
}

func matchesPhrases(page *index.Page, groups []group) bool {
	var haystack string

	for _, g := range groups {
		if g.phrase == "" {
			continue
		}

		if haystack == "" {
			haystack = strings.ToLower(page.Title + " " + page.Description + " " + page.Body)
		}

		if !strings.Contains(haystack, strings.ToLower(g.phrase)) {
			return false
		}
	}

	return true
}

func strategyWeights(s Strategy) ranker.Weights {
	switch s {
	case StrategyRelevance:
		return ranker.Weights{Relevance: 0.55, Authority: 0.10, PageRank: 0.10, Recency: 0.10, Density: 0.10, Link: 0.05}
	case StrategyPopularity:
		return ranker.Weights{Relevance: 0.15, Authority: 0.25, PageRank: 0.35, Recency: 0.05, Density: 0.05, Link: 0.15}
	case StrategyRecency:
		return ranker.Weights{Relevance: 0.20, Authority: 0.10, PageRank: 0.10, Recency: 0.50, Density: 0.05, Link: 0.05}
	default:
		return ranker.DefaultWeights
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}

	return offset
}

// Search parses rawQuery, resolves it against the index, ranks the matching
// pages under strategy's weight profile, and returns one page of results.
// The full ranked list for (query, strategy) is cached so that paging
// through results after the first call never re-ranks.
func (o *Orchestrator) Search(rawQuery string, limit, offset int, strategy Strategy, now time.Time) (*ResultSet, error) {
	start := time.Now()

	if now.IsZero() {
		now = start
	}

	limit = clampLimit(limit)
	offset = clampOffset(offset)

	sq, err := o.parser.Parse(rawQuery)
	if err != nil {
		diag := err.Error()
		if se, ok := sokerr.As(err); ok {
			diag = se.Details
		}

		return &ResultSet{Query: rawQuery, Diagnostic: diag, Invalid: true}, nil
	}

	if strategy == "" {
		strategy = StrategyHybrid
	}

	cacheKey := cache.NormalizeKey(rawQuery) + "|" + string(strategy)

	var c cached

	fromCache := false

	if raw, ok := o.cache.Get(cacheKey); ok {
		c, fromCache = raw.(cached), true
	} else {
		c, err = o.rankQuery(sq, strategy, now)
		if err != nil {
			return nil, err
		}

		if len(c.results) > 0 {
			o.cache.Put(cacheKey, c, 0)
		}
	}

	total := len(c.results)

	page := paginate(c.results, limit, offset)

	elapsed := time.Since(start)

	o.analytics.Record(rawQuery, elapsed, now.Hour())

	return &ResultSet{
		Query:           rawQuery,
		Diagnostic:      c.diagnostic,
		Results:         page,
		TotalResults:    total,
		ReturnedResults: len(page),
		ExecutionTimeMs: elapsed.Milliseconds(),
		FromCache:       fromCache,
		HasMore:         offset+len(page) < total,
		NextOffset:      offset + len(page),
	}, nil
}

func paginate(results []RankedResult, limit, offset int) []RankedResult {
	if offset >= len(results) {
		return nil
	}

	end := offset + limit
	if end > len(results) {
		end = len(results)
	}

	out := make([]RankedResult, end-offset)
	copy(out, results[offset:end])

	for i := range out {
		out[i].Rank = offset + i + 1
	}

	return out
}

// rankQuery performs the actual retrieval and ranking pass, uncached.
func (o *Orchestrator) rankQuery(sq *queryparser.SearchQuery, strategy Strategy, now time.Time) (cached, error) {
	groups := o.buildGroups(sq)
	if len(groups) == 0 {
		return cached{diagnostic: "no usable terms after analysis"}, nil
	}

	exclude := o.excludedTokens(sq)

	builds, err := o.retrieve(groups, exclude)
	if err != nil {
		return cached{}, err
	}

	candidates := make([]ranker.Candidate, 0, len(builds))

	for _, b := range builds {
		if !matchesDomain(b.page, sq.DomainFilter) ||
			!matchesLang(b.page, sq.LangFilter) ||
			!matchesDateRange(b.page, sq) ||
			!matchesPhrases(b.page, groups) {
			continue
		}

		candidates = append(candidates, ranker.Candidate{
			Page:         b.page,
			BM25Sum:      b.bm25Sum,
			TitleMatches: b.titleMatches,
			DescMatches:  b.descMatches,
			BodyMatches:  b.bodyMatches,
			InboundLinks: b.page.InboundLinks,
		})
	}

	if len(candidates) == 0 {
		return cached{diagnostic: "no matching pages"}, nil
	}

	intent := o.analyzer.ClassifyIntent(sq.Raw)

	ranked, err := ranker.Rank(candidates, ranker.Options{
		Now:      now,
		Registry: o.registry,
		PageRank: o.currentPageRank(),
		Intent:   intent,
		Weights:  strategyWeights(strategy),
	})
	if err != nil {
		return cached{}, err
	}

	if len(ranked) > maxRanked {
		ranked = ranked[:maxRanked]
	}

	terms := highlightTerms(sq)

	out := make([]RankedResult, len(ranked))

	for i, r := range ranked {
		out[i] = RankedResult{
			ID:          r.Page.ID,
			URL:         r.Page.URL,
			Title:       r.Page.Title,
			Description: r.Page.Description,
			Domain:      r.Page.Host,
			Snippet:     snippet.Generate(r.Page.Body, firstNonEmpty(r.Page.Description, r.Page.Title), terms, o.snippetLen),
			Score:       r.Score,
			Rank:        r.Rank,
		}
	}

	return cached{results: out}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// highlightTerms returns the user-facing words to highlight in a snippet:
// the original query terms and phrases, not their stemmed/compound-split
// index forms, so highlighting matches what the user actually typed.
func highlightTerms(sq *queryparser.SearchQuery) []string {
	out := make([]string, 0, len(sq.Terms)+len(sq.Phrases))
	out = append(out, sq.Terms...)
	out = append(out, sq.Phrases...)

	return out
}

// Suggestions returns up to limit indexed terms that start with prefix and
// occur in at least suggestionMinDF documents, for search-box autocomplete.
func (o *Orchestrator) Suggestions(prefix string, limit int) ([]string, error) {
	prefix = analyzer.Normalize(prefix)
	if prefix == "" {
		return nil, sokerr.QueryInvalid("suggestion prefix must not be empty")
	}

	if limit <= 0 {
		limit = DefaultLimit
	}

	return o.index.TermsWithPrefix(prefix, suggestionMinDF, limit)
}

// Related returns up to limit of a page's most distinctive terms (by
// tf*idf), used to suggest further searches from a result.
func (o *Orchestrator) Related(id index.PageID, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return o.index.TopTermsForPage(id, limit)
}

// CacheStats exposes the result cache's activity counters for
// /api/stats/cache.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.Stats()
}

// AnalyticsSnapshot exposes the analytics counter's current snapshot.
func (o *Orchestrator) AnalyticsSnapshot() analytics.Snapshot {
	return o.analytics.Snapshot()
}

// IndexStats exposes the index's corpus-wide statistics for /api/info/index.
func (o *Orchestrator) IndexStats() index.Stats {
	return o.index.Stats()
}
