// Package ranker fuses BM25 relevance against authority, pagerank, recency,
// density, link-balance, regional and (optionally) semantic signals into a
// single weighted score per candidate page.
package ranker

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/larsson/sokmotor/pkg/analyzer"
	"github.com/larsson/sokmotor/pkg/index"
)

// HostTruster supplies the authority/regional signals' host trust lookup.
// pkg/domain.Registry satisfies this.
type HostTruster interface {
	TrustFor(host string) float64
	IsAllowed(host string) bool
}

const recencyHorizonDays = 365

// Candidate is a single page considered for ranking, carrying everything
// the scoring components need beyond what's in index.Page itself.
type Candidate struct {
	Page          *index.Page
	Semantic      *float64 // nil = unavailable, scored as neutral 0.5
	BM25Sum       float64
	TitleMatches  int
	DescMatches   int
	BodyMatches   int
	InboundLinks  int
}

// Result is a scored, ordered candidate.
type Result struct {
	Page  *index.Page
	Score float64
	Rank  int
}

// Options configures a ranking pass.
type Options struct {
	Now      time.Time
	Registry HostTruster
	PageRank *PageRank
	Intent   analyzer.Intent
	Weights  Weights
}

// Rank scores and sorts candidates, returning Results in descending score
// order. Ties break on higher relevance (BM25Sum), then lower PageID, for a
// deterministic ordering.
func Rank(candidates []Candidate, opts Options) ([]Result, error) {
	weights := opts.Weights
	if weights.sum() == 0 {
		weights = DefaultWeights
	}

	hasSemantic := false

	for _, c := range candidates {
		if c.Semantic != nil {
			hasSemantic = true
			break
		}
	}

	if hasSemantic {
		weights = weights.withSemantic()
	}

	weights, err := Normalize(weights)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	relevance := minMaxNormalizeBM25(candidates)
	density := densityScores(candidates)
	link := linkScores(candidates)

	type scored struct {
		cand  Candidate
		score float64
	}

	out := make([]scored, 0, len(candidates))

	for i, c := range candidates {
		authority := 0.5
		if opts.Registry != nil && c.Page != nil {
			authority = opts.Registry.TrustFor(c.Page.Host)
		}

		pagerank := 0.0
		if opts.PageRank != nil && c.Page != nil {
			pagerank = opts.PageRank.Score(c.Page.ID)
		}

		recency := recencyScore(c.Page, now, opts.Intent)
		regional := regionalScore(c.Page, opts.Registry)

		semantic := 0.5
		if c.Semantic != nil {
			semantic = *c.Semantic
		}

		total := weights.Relevance*relevance[i] +
			weights.Authority*authority +
			weights.PageRank*pagerank +
			weights.Recency*recency +
			weights.Density*density[i] +
			weights.Link*link[i] +
			weights.Regional*regional +
			weights.Semantic*semantic

		out = append(out, scored{cand: c, score: total})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !floatsEqual(out[i].score, out[j].score) {
			return out[i].score > out[j].score
		}

		if !floatsEqual(out[i].cand.BM25Sum, out[j].cand.BM25Sum) {
			return out[i].cand.BM25Sum > out[j].cand.BM25Sum
		}

		return out[i].cand.Page.ID < out[j].cand.Page.ID
	})

	results := make([]Result, len(out))

	for i, s := range out {
		results[i] = Result{Page: s.cand.Page, Score: s.score, Rank: i + 1}
	}

	return results, nil
}

func minMaxNormalizeBM25(candidates []Candidate) []float64 {
	out := make([]float64, len(candidates))

	if len(candidates) == 0 {
		return out
	}

	min, max := candidates[0].BM25Sum, candidates[0].BM25Sum

	for _, c := range candidates {
		if c.BM25Sum < min {
			min = c.BM25Sum
		}

		if c.BM25Sum > max {
			max = c.BM25Sum
		}
	}

	span := max - min
	if span == 0 {
		for i := range out {
			if max > 0 {
				out[i] = 1
			}
		}

		return out
	}

	for i, c := range candidates {
		out[i] = (c.BM25Sum - min) / span
	}

	return out
}

// densityScores computes the position-weighted term-occurrence density
// (title 2.0x, description 1.5x, body 1.0x), penalizes a match ratio above
// 5% of document length, and min-max normalizes across the candidate set.
func densityScores(candidates []Candidate) []float64 {
	raw := make([]float64, len(candidates))

	for i, c := range candidates {
		weighted := 2.0*float64(c.TitleMatches) + 1.5*float64(c.DescMatches) + float64(c.BodyMatches)

		docLen := 1
		if c.Page != nil && c.Page.Length > 0 {
			docLen = c.Page.Length
		}

		totalMatches := float64(c.TitleMatches + c.DescMatches + c.BodyMatches)
		ratio := totalMatches / float64(docLen)

		if ratio > 0.05 {
			weighted *= 0.05 / ratio
		}

		raw[i] = weighted
	}

	return minMaxNormalize(raw)
}

func minMaxNormalize(values []float64) []float64 {
	out := make([]float64, len(values))

	if len(values) == 0 {
		return out
	}

	min, max := values[0], values[0]

	for _, v := range values {
		if v < min {
			min = v
		}

		if v > max {
			max = v
		}
	}

	span := max - min
	if span == 0 {
		for i := range out {
			if max > 0 {
				out[i] = 1
			}
		}

		return out
	}

	for i, v := range values {
		out[i] = (v - min) / span
	}

	return out
}

// linkScores scores the balance of inbound vs outbound links, peaking when
// outbound is 2-3x inbound (an inbound:outbound ratio of 1:2-1:3).
func linkScores(candidates []Candidate) []float64 {
	out := make([]float64, len(candidates))

	for i, c := range candidates {
		inbound := float64(c.InboundLinks)

		outbound := 0.0
		if c.Page != nil {
			outbound = float64(len(c.Page.OutboundLinks))
		}

		if inbound == 0 {
			out[i] = 0

			continue
		}

		ratio := outbound / inbound

		switch {
		case ratio >= 2 && ratio <= 3:
			out[i] = 1
		case ratio < 2:
			out[i] = ratio / 2
		default:
			out[i] = math.Max(0, 1-(ratio-3)/3)
		}
	}

	return out
}

func recencyScore(page *index.Page, now time.Time, intent analyzer.Intent) float64 {
	if page == nil || page.FetchedAt.IsZero() {
		return 0
	}

	ageDays := now.Sub(page.FetchedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}

	score := math.Exp(-ageDays / recencyHorizonDays)

	switch intent {
	case analyzer.IntentNews, analyzer.IntentRecent, analyzer.IntentTrend:
		switch {
		case ageDays <= 1:
			score *= 1.5
		case ageDays <= 7:
			score *= 1.3
		case ageDays <= 30:
			score *= 1.1
		}
	}

	if score > 1 {
		score = 1
	}

	return score
}

var swedishKeywords = []string{"sverige", "stockholm", "göteborg", "malmö", "svensk", "svenska"}

// diacriticFrequencyThreshold is the minimum å/ä/ö occurrences per 100
// characters of body text for the orthographic regional signal to apply;
// this distinguishes genuinely Swedish-language text from pages that merely
// mention a Swedish place name once or twice.
const diacriticFrequencyThreshold = 1.5

// regionalScore combines Swedish-TLD, registry-membership, location-keyword
// and orthographic signals, capped at 1.
func regionalScore(page *index.Page, registry HostTruster) float64 {
	if page == nil {
		return 0
	}

	var score float64

	if strings.HasSuffix(page.Host, ".se") {
		score += 0.30
	}

	if registry != nil && registry.IsAllowed(page.Host) {
		score += 0.25
	}

	lowerBody := strings.ToLower(page.Title + " " + page.Description + " " + page.Body)

	for _, kw := range swedishKeywords {
		if strings.Contains(lowerBody, kw) {
			score += 0.15
			break
		}
	}

	if diacriticFrequency(page.Body) > diacriticFrequencyThreshold {
		score += 0.10
	}

	if score > 1 {
		score = 1
	}

	return score
}

// diacriticFrequency returns the number of å/ä/ö characters in body per 100
// characters of body length, 0 for an empty body.
func diacriticFrequency(body string) float64 {
	if len(body) == 0 {
		return 0
	}

	lower := strings.ToLower(body)
	count := strings.Count(lower, "å") + strings.Count(lower, "ä") + strings.Count(lower, "ö")

	return float64(count) / (float64(len(body)) / 100)
}
