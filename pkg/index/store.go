package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/larsson/sokmotor/pkg/sokerr"
)

var (
	bucketPages    = []byte("pages")
	bucketURLs     = []byte("urls")
	bucketPostings = []byte("postings")
	bucketMeta     = []byte("meta")
	bucketLinks    = []byte("links")
)

var metaStatsKey = []byte("stats")

// Store is the bbolt-backed persistence layer for pages and postings. It is
// crash-consistent at the page level: a single bbolt.Update transaction
// writes both the postings and the page record, so a partial write (process
// killed mid-upsert) can never leave dangling postings without their page -
// bbolt either commits the whole transaction or none of it.
type Store struct {
	db       *bbolt.DB
	idfCache sync.Map // term -> cached idf float64
	mu       sync.RWMutex
	stats    Stats
}

// Open opens (or creates) a bbolt database at path and prepares its buckets.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketPages, bucketURLs, bucketPostings, bucketMeta, bucketLinks} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}

	if err := s.loadStats(); err != nil {
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func pageIDKey(id PageID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))

	return buf
}

func (s *Store) loadStats() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get(metaStatsKey)
		if raw == nil {
			return nil
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		return json.Unmarshal(raw, &s.stats)
	})
}

func (s *Store) saveStatsLocked(tx *bbolt.Tx) error {
	data, err := json.Marshal(s.stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	return tx.Bucket(bucketMeta).Put(metaStatsKey, data)
}

// pageIDForURL returns the existing PageID for a canonical URL, or
// allocates a new one via bbolt's NextSequence.
func (s *Store) pageIDForURL(tx *bbolt.Tx, url string) (PageID, bool, error) {
	urls := tx.Bucket(bucketURLs)

	if raw := urls.Get([]byte(url)); raw != nil {
		return PageID(binary.BigEndian.Uint64(raw)), false, nil
	}

	seq, err := tx.Bucket(bucketPages).NextSequence()
	if err != nil {
		return 0, false, fmt.Errorf("failed to allocate page id: %w", err)
	}

	return PageID(seq), true, nil
}

func (s *Store) getPageTx(tx *bbolt.Tx, id PageID) (*Page, error) {
	raw := tx.Bucket(bucketPages).Get(pageIDKey(id))
	if raw == nil {
		return nil, nil
	}

	var p Page
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode page %d: %w", id, err)
	}

	return &p, nil
}

// GetPage retrieves a page by id.
func (s *Store) GetPage(id PageID) (*Page, error) {
	var p *Page

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		p, err = s.getPageTx(tx, id)

		return err
	})

	return p, err
}

// GetPageByURL looks up a page by its canonical URL.
func (s *Store) GetPageByURL(url string) (*Page, error) {
	var p *Page

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketURLs).Get([]byte(url))
		if raw == nil {
			return nil
		}

		id := PageID(binary.BigEndian.Uint64(raw))

		var err error
		p, err = s.getPageTx(tx, id)

		return err
	})

	return p, err
}

func (s *Store) getPostingsTx(tx *bbolt.Tx, term string) ([]Posting, error) {
	raw := tx.Bucket(bucketPostings).Get([]byte(term))
	if raw == nil {
		return nil, nil
	}

	var postings []Posting
	if err := json.Unmarshal(raw, &postings); err != nil {
		return nil, fmt.Errorf("failed to decode postings for %q: %w", term, err)
	}

	return postings, nil
}

// GetPostings returns the postings for term, sorted by PageID.
func (s *Store) GetPostings(term string) ([]Posting, error) {
	var postings []Posting

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		postings, err = s.getPostingsTx(tx, term)

		return err
	})

	return postings, err
}

// DocFrequency returns the number of documents containing term.
func (s *Store) DocFrequency(term string) (int, error) {
	postings, err := s.GetPostings(term)
	return len(postings), err
}

// Stats returns a snapshot of corpus statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stats
}

// Links returns the outbound page-id links discovered for id, used by the
// pagerank signal.
func (s *Store) Links(id PageID) ([]PageID, error) {
	var links []PageID

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketLinks).Get(pageIDKey(id))
		if raw == nil {
			return nil
		}

		return json.Unmarshal(raw, &links)
	})

	return links, err
}

// AllPageIDs returns every page id in the store, used by pagerank and by
// the consistency sweep.
func (s *Store) AllPageIDs() ([]PageID, error) {
	var ids []PageID

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPages).ForEach(func(k, _ []byte) error {
			ids = append(ids, PageID(binary.BigEndian.Uint64(k)))
			return nil
		})
	})

	return ids, err
}

// AllLinks returns the full in-corpus outbound adjacency, used to build the
// pagerank graph in one pass rather than one Links call per page.
func (s *Store) AllLinks() (map[PageID][]PageID, error) {
	out := make(map[PageID][]PageID)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLinks).ForEach(func(k, v []byte) error {
			var targets []PageID
			if err := json.Unmarshal(v, &targets); err != nil {
				return fmt.Errorf("failed to decode links for page %x: %w", k, err)
			}

			out[PageID(binary.BigEndian.Uint64(k))] = targets

			return nil
		})
	})

	return out, err
}

// TermsWithPrefix returns up to limit terms (limit <= 0 means unbounded)
// whose document frequency is at least minDF, sorted lexicographically by
// bbolt's cursor order, used by the suggestions endpoint.
func (s *Store) TermsWithPrefix(prefix string, minDF, limit int) ([]string, error) {
	var out []string

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketPostings).Cursor()
		p := []byte(prefix)

		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var postings []Posting
			if err := json.Unmarshal(v, &postings); err != nil {
				return fmt.Errorf("failed to decode postings for %q: %w", k, err)
			}

			if len(postings) < minDF {
				continue
			}

			out = append(out, string(k))

			if limit > 0 && len(out) >= limit {
				return nil
			}
		}

		return nil
	})

	return out, err
}

// linksTx returns the outbound page-id links recorded for id within tx.
func (s *Store) linksTx(tx *bbolt.Tx, id PageID) ([]PageID, error) {
	raw := tx.Bucket(bucketLinks).Get(pageIDKey(id))
	if raw == nil {
		return nil, nil
	}

	var links []PageID
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, fmt.Errorf("failed to decode links for page %d: %w", id, err)
	}

	return links, nil
}

// setLinksTx records id's resolved in-corpus outbound links, replacing any
// previous entry.
func (s *Store) setLinksTx(tx *bbolt.Tx, id PageID, targets []PageID) error {
	if len(targets) == 0 {
		return tx.Bucket(bucketLinks).Delete(pageIDKey(id))
	}

	data, err := json.Marshal(targets)
	if err != nil {
		return fmt.Errorf("failed to marshal links for page %d: %w", id, err)
	}

	return tx.Bucket(bucketLinks).Put(pageIDKey(id), data)
}

// adjustInboundTx adds delta to target's InboundLinks counter, leaving the
// page record untouched if target does not exist (a link to a page that
// hasn't been crawled yet carries no inbound credit until it is).
func (s *Store) adjustInboundTx(tx *bbolt.Tx, target PageID, delta int) error {
	page, err := s.getPageTx(tx, target)
	if err != nil || page == nil {
		return err
	}

	page.InboundLinks += delta
	if page.InboundLinks < 0 {
		page.InboundLinks = 0
	}

	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal page %d: %w", target, err)
	}

	return tx.Bucket(bucketPages).Put(pageIDKey(target), data)
}

// resolveKnownPageTx looks up the PageID already assigned to a canonical
// URL, without allocating a new one for URLs that haven't been crawled yet.
func (s *Store) resolveKnownPageTx(tx *bbolt.Tx, url string) (PageID, bool) {
	raw := tx.Bucket(bucketURLs).Get([]byte(url))
	if raw == nil {
		return 0, false
	}

	return PageID(binary.BigEndian.Uint64(raw)), true
}

// Sweep performs a consistency check: it drops postings that reference a
// missing page, and logs nothing itself (callers log the returned count).
// This implements the IndexCorrupt recovery path from the error handling
// design; in normal operation it should find nothing; because Upsert writes
// postings and the page record in the same bbolt transaction, dangling
// postings can only arise from direct tampering with the database file.
func (s *Store) Sweep() (int, error) {
	dropped := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		pages := tx.Bucket(bucketPages)
		postingsBucket := tx.Bucket(bucketPostings)

		return postingsBucket.ForEach(func(term, raw []byte) error {
			var postings []Posting
			if err := json.Unmarshal(raw, &postings); err != nil {
				return sokerr.IndexCorrupt(fmt.Sprintf("term %q has unreadable postings: %v", term, err))
			}

			kept := postings[:0]

			for _, p := range postings {
				if pages.Get(pageIDKey(p.PageID)) != nil {
					kept = append(kept, p)
				} else {
					dropped++
				}
			}

			if len(kept) == len(postings) {
				return nil
			}

			if len(kept) == 0 {
				return postingsBucket.Delete(term)
			}

			data, err := json.Marshal(kept)
			if err != nil {
				return fmt.Errorf("failed to re-encode postings for %q: %w", term, err)
			}

			return postingsBucket.Put(term, data)
		})
	})

	return dropped, err
}
