// Package index implements the persistent inverted index: a document store
// mapping PageID to Page metadata plus doc length, and a term store mapping
// Term to a sorted list of Postings, backed by an embedded bbolt database.
package index

import "time"

// PageID is a stable arena index assigned by the index on first upsert of a
// canonical URL.
type PageID uint64

// Page is the persisted record for a single crawled document.
type Page struct {
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
	Hash               [32]byte
	ID                 PageID
	Size               int
	Length             int // tokens in body, used for BM25's dl
	Status             int
	InboundLinks       int // count of in-corpus pages whose outbound links resolve to this page
}

// Posting records that a term occurs in a page, with its term frequency and
// field flags. There is at most one posting per (Term, Page) pair.
type Posting struct {
	PageID      PageID
	TF          int
	InTitle     bool
	InDesc      bool
	InBody      bool
	BM25Hint    float64
}

// Stats summarizes corpus-wide statistics.
type Stats struct {
	N         int
	AvgDocLen float64
	TermCount int
}
