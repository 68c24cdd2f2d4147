// Package bm25 implements an Okapi BM25 inverted index over node content,
// the keyword-matching half of the retrieval pipeline alongside pkg/ann's
// semantic half.
package bm25

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultK1 and DefaultB match the values the retrieval pipeline is tuned
// against; both are overridable per Index via Config.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Config tunes BM25 scoring and tokenization.
type Config struct {
	K1               float64
	B                float64
	StopwordsEnabled bool
}

// DefaultConfig returns Config{K1: 1.5, B: 0.75, StopwordsEnabled: true}.
func DefaultConfig() Config {
	return Config{K1: DefaultK1, B: DefaultB, StopwordsEnabled: true}
}

// Result is one scored hit from Search.
type Result struct {
	ID    string
	Score float64
}

// Index is a BM25 inverted index, safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	config Config

	invertedIndex map[string]map[string]int // term -> docID -> term frequency
	docLengths    map[string]int
	docCount      int
	totalLength   int64
}

// New returns an empty index.
func New(config Config) *Index {
	if config.K1 == 0 && config.B == 0 {
		config = DefaultConfig()
	}
	return &Index{
		config:        config,
		invertedIndex: make(map[string]map[string]int),
		docLengths:    make(map[string]int),
	}
}

// Add indexes (or reindexes) docID's content.
func (ix *Index) Add(docID, content string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(docID)

	terms := ix.tokenize(content)
	if len(terms) == 0 {
		// Still counts as a document with length 0; avgDocLength needs
		// every doc represented, or short real documents would appear
		// artificially long relative to the average.
		ix.docLengths[docID] = 0
		ix.docCount++
		return
	}

	freq := make(map[string]int, len(terms))
	for _, t := range terms {
		freq[t]++
	}
	for term, count := range freq {
		postings, ok := ix.invertedIndex[term]
		if !ok {
			postings = make(map[string]int)
			ix.invertedIndex[term] = postings
		}
		postings[docID] = count
	}
	ix.docLengths[docID] = len(terms)
	ix.docCount++
	ix.totalLength += int64(len(terms))
}

// Remove deletes docID from the index.
func (ix *Index) Remove(docID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(docID)
}

func (ix *Index) removeLocked(docID string) {
	length, existed := ix.docLengths[docID]
	if !existed {
		return
	}
	for term, postings := range ix.invertedIndex {
		if _, ok := postings[docID]; ok {
			delete(postings, docID)
			if len(postings) == 0 {
				delete(ix.invertedIndex, term)
			}
		}
	}
	delete(ix.docLengths, docID)
	ix.docCount--
	ix.totalLength -= int64(length)
}

func (ix *Index) avgDocLength() float64 {
	if ix.docCount == 0 {
		return 0
	}
	return float64(ix.totalLength) / float64(ix.docCount)
}

// Search returns up to limit documents ranked by BM25 score against query.
func (ix *Index) Search(query string, limit int) []Result {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.docCount == 0 {
		return nil
	}
	terms := ix.tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	avgLen := ix.avgDocLength()
	scores := make(map[string]float64)
	seen := make(map[string]bool)
	for _, term := range terms {
		if seen[term] {
			continue // repeated query terms already fully scored below
		}
		seen[term] = true
		postings, ok := ix.invertedIndex[term]
		if !ok {
			continue
		}
		idf := ix.idf(term, len(postings))
		for docID, tf := range postings {
			scores[docID] += ix.score(idf, float64(tf), float64(ix.docLengths[docID]), avgLen)
		}
	}

	results := make([]Result, 0, len(scores))
	for id, score := range scores {
		results = append(results, Result{ID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (ix *Index) idf(term string, docFreq int) float64 {
	n := float64(ix.docCount)
	return math.Log((n-float64(docFreq)+0.5)/(float64(docFreq)+0.5) + 1)
}

func (ix *Index) score(idf, tf, docLen, avgLen float64) float64 {
	k1, b := ix.config.K1, ix.config.B
	numerator := tf * (k1 + 1)
	denominator := tf + k1*(1-b+b*(docLen/avgLen))
	return idf * (numerator / denominator)
}

// tokenize lowercases, splits on non-letter/non-digit runes, and drops
// short tokens and (if enabled) stop words. Unlike the teacher's fulltext
// index this has no prefix-matching fallback: BM25's own IDF weighting is
// the intended recall lever here, not fuzzy term expansion.
func (ix *Index) tokenize(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		if ix.config.StopwordsEnabled && stopWords[w] {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// stopWords is a minimal, generic-words-only list; domain terms are
// deliberately left unfiltered.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "or": true,
	"that": true, "the": true, "to": true, "was": true, "were": true,
	"with": true, "this": true, "but": true, "they": true,
	"we": true, "you": true, "your": true, "my": true, "their": true,
	"been": true, "do": true, "does": true, "did": true,
}

// persisted is the on-disk shape written by Marshal/loaded by Unmarshal.
type persisted struct {
	FormatVersion int                       `msgpack:"format_version"`
	Config        Config                    `msgpack:"config"`
	InvertedIndex map[string]map[string]int `msgpack:"inverted_index"`
	DocLengths    map[string]int            `msgpack:"doc_lengths"`
	DocCount      int                       `msgpack:"doc_count"`
	TotalLength   int64                     `msgpack:"total_length"`
}

const persistedFormatVersion = 1

// Marshal serializes the index for snapshot persistence.
func (ix *Index) Marshal() ([]byte, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p := persisted{
		FormatVersion: persistedFormatVersion,
		Config:        ix.config,
		InvertedIndex: ix.invertedIndex,
		DocLengths:    ix.docLengths,
		DocCount:      ix.docCount,
		TotalLength:   ix.totalLength,
	}
	return msgpack.Marshal(&p)
}

// Unmarshal restores an index previously produced by Marshal.
func Unmarshal(data []byte) (*Index, error) {
	var p persisted
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	ix := New(p.Config)
	if p.InvertedIndex != nil {
		ix.invertedIndex = p.InvertedIndex
	}
	if p.DocLengths != nil {
		ix.docLengths = p.DocLengths
	}
	ix.docCount = p.DocCount
	ix.totalLength = p.TotalLength
	return ix, nil
}
