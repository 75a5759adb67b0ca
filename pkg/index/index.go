package index

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/larsson/sokmotor/pkg/analyzer"
)

// Field identifies which part of a page a term occurred in, used to weight
// postings when the ranker scores relevance.
type Field int

const (
	FieldBody Field = iota
	FieldTitle
	FieldDescription
)

// Document is the analyzer-facing view of a fetched page handed to Upsert.
// The index itself never talks to the fetcher or goquery directly; it only
// consumes already-extracted text fields.
type Document struct {
	FetchedAt          time.Time
	URL                string
	Host               string
	Title              string
	Description        string
	Body               string
	ContentType        string
	Language           string
	DiscoveredFromHost string
	OutboundLinks      []string
}

// Index ties a Store to the text analyzer, implementing the C5 contract:
// Upsert, GetPostings, IDF, Stats.
type Index struct {
	store    *Store
	analyzer *analyzer.Analyzer
}

// New wraps a Store with the given analyzer.
func New(store *Store, a *analyzer.Analyzer) *Index {
	return &Index{store: store, analyzer: a}
}

func hashBody(body string) [32]byte {
	return sha256.Sum256([]byte(body))
}

type termOccurrence struct {
	tf               int
	inTitle          bool
	inDesc           bool
	inBody           bool
}

// Upsert tokenizes doc's title, description and body, merges the resulting
// term counts against any prior version of the page at the same canonical
// URL, and commits the page record and postings in a single bbolt
// transaction. It returns the page's stable PageID.
func (idx *Index) Upsert(doc Document) (PageID, error) {
	titleTerms := idx.analyzer.Analyze(doc.Title)
	descTerms := idx.analyzer.Analyze(doc.Description)
	bodyTerms := idx.analyzer.Analyze(doc.Body)

	occurrences := make(map[string]*termOccurrence)

	for _, t := range titleTerms {
		occ := occurrences[t]
		if occ == nil {
			occ = &termOccurrence{}
			occurrences[t] = occ
		}

		occ.inTitle = true
		occ.tf++
	}

	for _, t := range descTerms {
		occ := occurrences[t]
		if occ == nil {
			occ = &termOccurrence{}
			occurrences[t] = occ
		}

		occ.inDesc = true
		occ.tf++
	}

	for _, t := range bodyTerms {
		occ := occurrences[t]
		if occ == nil {
			occ = &termOccurrence{}
			occurrences[t] = occ
		}

		occ.inBody = true
		occ.tf++
	}

	page := Page{
		FetchedAt:          doc.FetchedAt,
		URL:                doc.URL,
		Host:               doc.Host,
		Title:              doc.Title,
		Description:        doc.Description,
		Body:               doc.Body,
		ContentType:        doc.ContentType,
		Language:           doc.Language,
		DiscoveredFromHost: doc.DiscoveredFromHost,
		OutboundLinks:      doc.OutboundLinks,
		Hash:               hashBody(doc.Body),
		Size:               len(doc.Body),
		Length:             len(bodyTerms),
		Status:             200,
	}

	var id PageID

	err := idx.store.db.Update(func(tx *bbolt.Tx) error {
		var isNew bool

		var err error

		id, isNew, err = idx.store.pageIDForURL(tx, doc.URL)
		if err != nil {
			return err
		}

		page.ID = id

		prev, err := idx.store.getPageTx(tx, id)
		if err != nil {
			return err
		}

		if prev != nil {
			page.InboundLinks = prev.InboundLinks
		}

		if err := idx.removePostingsTx(tx, id, prev); err != nil {
			return err
		}

		for term, occ := range occurrences {
			if err := idx.addPostingTx(tx, term, id, occ); err != nil {
				return err
			}
		}

		data, err := json.Marshal(page)
		if err != nil {
			return fmt.Errorf("failed to marshal page: %w", err)
		}

		if err := tx.Bucket(bucketPages).Put(pageIDKey(id), data); err != nil {
			return err
		}

		if isNew {
			idBuf := make([]byte, 8)
			binary.BigEndian.PutUint64(idBuf, uint64(id))

			if err := tx.Bucket(bucketURLs).Put([]byte(doc.URL), idBuf); err != nil {
				return err
			}
		}

		if err := idx.relinkTx(tx, id, prev, doc.OutboundLinks); err != nil {
			return err
		}

		idx.store.mu.Lock()
		defer idx.store.mu.Unlock()

		totalLen := idx.store.stats.AvgDocLen * float64(idx.store.stats.N)

		if prev != nil {
			totalLen -= float64(prev.Length)
		} else {
			idx.store.stats.N++
		}

		totalLen += float64(page.Length)

		if idx.store.stats.N > 0 {
			idx.store.stats.AvgDocLen = totalLen / float64(idx.store.stats.N)
		}

		idx.store.stats.TermCount = tx.Bucket(bucketPostings).Stats().KeyN

		return idx.store.saveStatsLocked(tx)
	})
	if err != nil {
		return 0, err
	}

	idx.store.idfCache.Range(func(key, _ any) bool {
		idx.store.idfCache.Delete(key)
		return true
	})

	return id, nil
}

// removePostingsTx drops prev's contribution to postings before a reupsert
// re-adds the current term set, so re-crawling a page never double-counts.
func (idx *Index) removePostingsTx(tx *bbolt.Tx, id PageID, prev *Page) error {
	if prev == nil {
		return nil
	}

	staleTerms := idx.analyzer.Analyze(prev.Title)
	staleTerms = append(staleTerms, idx.analyzer.Analyze(prev.Description)...)
	staleTerms = append(staleTerms, idx.analyzer.Analyze(prev.Body)...)

	seen := make(map[string]struct{}, len(staleTerms))

	postingsBucket := tx.Bucket(bucketPostings)

	for _, term := range staleTerms {
		if _, ok := seen[term]; ok {
			continue
		}

		seen[term] = struct{}{}

		postings, err := idx.store.getPostingsTx(tx, term)
		if err != nil {
			return err
		}

		kept := postings[:0]

		for _, p := range postings {
			if p.PageID != id {
				kept = append(kept, p)
			}
		}

		if len(kept) == 0 {
			if err := postingsBucket.Delete([]byte(term)); err != nil {
				return err
			}

			continue
		}

		data, err := json.Marshal(kept)
		if err != nil {
			return err
		}

		if err := postingsBucket.Put([]byte(term), data); err != nil {
			return err
		}
	}

	return nil
}

// relinkTx rebuilds id's in-corpus outbound link graph entry and the
// InboundLinks counters of the pages it targets. Links to URLs that have
// not been crawled yet are dropped - the link graph, like pagerank, only
// spans pages actually present in the corpus. On re-upsert, the previous
// target set's inbound counts are decremented first so re-crawling a page
// whose outbound links changed never double-counts or leaves stale credit.
func (idx *Index) relinkTx(tx *bbolt.Tx, id PageID, prev *Page, outbound []string) error {
	if prev != nil {
		staleTargets, err := idx.store.linksTx(tx, id)
		if err != nil {
			return err
		}

		for _, target := range staleTargets {
			if err := idx.store.adjustInboundTx(tx, target, -1); err != nil {
				return err
			}
		}
	}

	seen := make(map[PageID]struct{}, len(outbound))

	targets := make([]PageID, 0, len(outbound))

	for _, link := range outbound {
		target, ok := idx.store.resolveKnownPageTx(tx, link)
		if !ok || target == id {
			continue
		}

		if _, dup := seen[target]; dup {
			continue
		}

		seen[target] = struct{}{}

		targets = append(targets, target)

		if err := idx.store.adjustInboundTx(tx, target, 1); err != nil {
			return err
		}
	}

	return idx.store.setLinksTx(tx, id, targets)
}

func (idx *Index) addPostingTx(tx *bbolt.Tx, term string, id PageID, occ *termOccurrence) error {
	postings, err := idx.store.getPostingsTx(tx, term)
	if err != nil {
		return err
	}

	postings = append(postings, Posting{
		PageID:  id,
		TF:      occ.tf,
		InTitle: occ.inTitle,
		InDesc:  occ.inDesc,
		InBody:  occ.inBody,
	})

	sort.Slice(postings, func(i, j int) bool { return postings[i].PageID < postings[j].PageID })

	data, err := json.Marshal(postings)
	if err != nil {
		return fmt.Errorf("failed to marshal postings for %q: %w", term, err)
	}

	return tx.Bucket(bucketPostings).Put([]byte(term), data)
}

// GetPostings returns the postings for term.
func (idx *Index) GetPostings(term string) ([]Posting, error) {
	return idx.store.GetPostings(term)
}

// IDF returns the inverse document frequency of term, using the formula
// ln((N-df+0.5)/(df+0.5)+1), cached until the next Upsert invalidates it.
func (idx *Index) IDF(term string) (float64, error) {
	if cached, ok := idx.store.idfCache.Load(term); ok {
		return cached.(float64), nil
	}

	df, err := idx.store.DocFrequency(term)
	if err != nil {
		return 0, err
	}

	stats := idx.store.Stats()

	n := float64(stats.N)
	dff := float64(df)

	val := math.Log((n-dff+0.5)/(dff+0.5) + 1)

	idx.store.idfCache.Store(term, val)

	return val, nil
}

// Stats returns corpus-wide statistics.
func (idx *Index) Stats() Stats {
	return idx.store.Stats()
}

// GetPage retrieves a page by id.
func (idx *Index) GetPage(id PageID) (*Page, error) {
	return idx.store.GetPage(id)
}

// GetPageByURL retrieves a page by canonical URL.
func (idx *Index) GetPageByURL(url string) (*Page, error) {
	return idx.store.GetPageByURL(url)
}

// Close releases the underlying store.
func (idx *Index) Close() error {
	return idx.store.Close()
}

// AllPageIDs returns every page id in the corpus, used to build the
// pagerank graph.
func (idx *Index) AllPageIDs() ([]PageID, error) {
	return idx.store.AllPageIDs()
}

// AllLinks returns the full in-corpus outbound adjacency, used to build the
// pagerank graph.
func (idx *Index) AllLinks() (map[PageID][]PageID, error) {
	return idx.store.AllLinks()
}

// TermsWithPrefix returns up to limit indexed terms starting with prefix
// whose document frequency is at least minDF, for the suggestions endpoint.
func (idx *Index) TermsWithPrefix(prefix string, minDF, limit int) ([]string, error) {
	return idx.store.TermsWithPrefix(prefix, minDF, limit)
}

// Sweep runs the IndexCorrupt consistency check, dropping postings that
// reference a missing page.
func (idx *Index) Sweep() (int, error) {
	return idx.store.Sweep()
}

// termScore is a term paired with its tf*idf weight, used by TopTermsForPage.
type termScore struct {
	term  string
	score float64
}

// TopTermsForPage returns up to k of page id's surface terms ranked by
// tf*idf, highest first, used by the /api/related endpoint to derive
// related queries from a page's most distinctive vocabulary.
func (idx *Index) TopTermsForPage(id PageID, k int) ([]string, error) {
	page, err := idx.store.GetPage(id)
	if err != nil {
		return nil, err
	}

	if page == nil {
		return nil, nil
	}

	counts := make(map[string]int)

	for _, t := range idx.analyzer.Analyze(page.Title) {
		counts[t]++
	}

	for _, t := range idx.analyzer.Analyze(page.Description) {
		counts[t]++
	}

	for _, t := range idx.analyzer.Analyze(page.Body) {
		counts[t]++
	}

	scores := make([]termScore, 0, len(counts))

	for term, tf := range counts {
		idf, err := idx.IDF(term)
		if err != nil {
			return nil, err
		}

		scores = append(scores, termScore{term: term, score: float64(tf) * idf})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}

		return scores[i].term < scores[j].term
	})

	if k > 0 && len(scores) > k {
		scores = scores[:k]
	}

	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = s.term
	}

	return out, nil
}
