package index

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/spaolacci/murmur3"

	"github.com/yantra-mind/memoryd/core/ident"
)

// bm25K1 and bm25B are the standard Okapi BM25 tuning constants.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// LexResult is one hit from a lexical BM25 search.
type LexResult struct {
	ID    ident.ID
	Score float64
}

// BM25 is a term-hashed inverted index over node payload text, used as the
// sparse half of hybrid retrieval's RRF fusion.
type BM25 struct {
	mu       sync.RWMutex
	postings map[uint32]map[ident.ID]int // term -> doc -> term freq
	docLen   map[ident.ID]int
	totalLen int64
}

// NewBM25 creates an empty lexical index.
func NewBM25() *BM25 {
	return &BM25{
		postings: make(map[uint32]map[ident.ID]int),
		docLen:   make(map[ident.ID]int),
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func termID(tok string) uint32 {
	return murmur3.Sum32([]byte(tok))
}

// Index replaces any existing posting for id with the tokenization of
// text.
func (b *BM25) Index(id ident.ID, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(id)

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return
	}
	freq := make(map[uint32]int, len(tokens))
	for _, tok := range tokens {
		freq[termID(tok)]++
	}
	for tid, f := range freq {
		docs, ok := b.postings[tid]
		if !ok {
			docs = make(map[ident.ID]int)
			b.postings[tid] = docs
		}
		docs[id] = f
	}
	b.docLen[id] = len(tokens)
	b.totalLen += int64(len(tokens))
}

// Remove deletes id's postings from the index.
func (b *BM25) Remove(id ident.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(id)
}

func (b *BM25) removeLocked(id ident.ID) {
	dl, ok := b.docLen[id]
	if !ok {
		return
	}
	for tid, docs := range b.postings {
		if _, ok := docs[id]; ok {
			delete(docs, id)
			if len(docs) == 0 {
				delete(b.postings, tid)
			}
		}
	}
	delete(b.docLen, id)
	b.totalLen -= int64(dl)
}

// Search returns up to k documents ranked by BM25 score against query.
func (b *BM25) Search(query string, k int) []LexResult {
	b.mu.RLock()
	defer b.mu.RUnlock()

	docCount := len(b.docLen)
	if docCount == 0 {
		return nil
	}
	avgdl := float64(b.totalLen) / float64(docCount)

	seen := make(map[string]struct{})
	scores := make(map[ident.ID]float64)
	for _, tok := range tokenize(query) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}

		docs := b.postings[termID(tok)]
		df := len(docs)
		if df == 0 {
			continue
		}
		idf := math.Log((float64(docCount)-float64(df)+0.5)/(float64(df)+0.5) + 1)
		for id, tf := range docs {
			dl := float64(b.docLen[id])
			denom := float64(tf) + bm25K1*(1-bm25B+bm25B*dl/avgdl)
			scores[id] += idf * (float64(tf) * (bm25K1 + 1)) / denom
		}
	}

	out := make([]LexResult, 0, len(scores))
	for id, s := range scores {
		out = append(out, LexResult{ID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out
}
