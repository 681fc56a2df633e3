// Package index implements the dense ANN index, the BM25-style lexical
// index, the tag bitmap index, the reverse-edge index, and LSH buckets
//. None of these are owning stores: every structure here
// holds node ids, not node records.
package index

import (
	"sort"
	"sync"

	"github.com/google/btree"

	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/vector"
)

// ANNResult is one hit from a dense search: a node id and its cosine
// similarity to the query.
type ANNResult struct {
	ID     ident.ID
	Cosine float64
}

// normItem orders candidates by embedding L2 norm, then id, so the
// candidates whose norm lies in a window around the query's norm can be
// range-scanned cheaply; for large stores that window is added to the
// LSH-bucket matches to form the set that gets a full cosine computation.
type normItem struct {
	norm float64
	id   ident.ID
}

func (a normItem) Less(than btree.Item) bool {
	b := than.(normItem)
	if a.norm != b.norm {
		return a.norm < b.norm
	}
	return lessID(a.id, b.id)
}

func lessID(a, b ident.ID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// bruteForceThreshold is the candidate-set size below which ANN just
// scans everything; above it, LSH buckets + norm-range pruning are used
// to cut the candidate set down before exact rescoring.
const bruteForceThreshold = 2000

// ANN is the approximate nearest-neighbor index over node embeddings.
// Exact recall is not required: recall@k >= 0.9 vs brute
// force is the target, which a flat scan trivially satisfies at small N,
// and LSH-bucket narrowing approximates at large N.
type ANN struct {
	mu      sync.RWMutex
	dim     int
	vectors map[ident.ID]vector.Vector
	norms   *btree.BTree
	lsh     *LSH
}

// NewANN creates an ANN index for embeddings of dimension dim, using lsh
// (shared with the Indices bundle's direct near-duplicate lookups) as its
// large-N candidate source.
func NewANN(dim int, lsh *LSH) *ANN {
	return &ANN{
		dim:     dim,
		vectors: make(map[ident.ID]vector.Vector),
		norms:   btree.New(32),
		lsh:     lsh,
	}
}

// Insert adds or replaces the embedding for id.
func (a *ANN) Insert(id ident.ID, v vector.Vector) {
	if len(v) != a.dim || v.Zero() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if old, ok := a.vectors[id]; ok {
		a.norms.Delete(normItem{norm: old.Norm(), id: id})
		a.lsh.Remove(id, old)
	}
	a.vectors[id] = v
	a.norms.ReplaceOrInsert(normItem{norm: v.Norm(), id: id})
	a.lsh.Insert(id, v)
}

// Remove deletes id from the index.
func (a *ANN) Remove(id ident.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.vectors[id]
	if !ok {
		return
	}
	delete(a.vectors, id)
	a.norms.Delete(normItem{norm: v.Norm(), id: id})
	a.lsh.Remove(id, v)
}

// Search returns up to k candidates with cosine similarity >= threshold,
// sorted by descending cosine.
func (a *ANN) Search(query vector.Vector, k int, threshold float64) []ANNResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	candidates := a.candidateSet(query)

	out := make([]ANNResult, 0, len(candidates))
	for id := range candidates {
		v := a.vectors[id]
		cos := query.Cosine(v)
		if cos >= threshold {
			out = append(out, ANNResult{ID: id, Cosine: cos})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cosine > out[j].Cosine })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// candidateSet returns the ids to rescore exactly: everything, if the
// index is small, otherwise the union of LSH-bucket matches and a
// norm-range window around the query's own norm.
func (a *ANN) candidateSet(query vector.Vector) map[ident.ID]struct{} {
	if len(a.vectors) <= bruteForceThreshold {
		all := make(map[ident.ID]struct{}, len(a.vectors))
		for id := range a.vectors {
			all[id] = struct{}{}
		}
		return all
	}

	out := make(map[ident.ID]struct{})
	for _, id := range a.lsh.Candidates(query) {
		out[id] = struct{}{}
	}

	qn := query.Norm()
	lo := normItem{norm: qn * 0.5, id: ident.ID{}}
	hi := normItem{norm: qn * 1.5, id: ident.ID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}}
	a.norms.AscendRange(lo, hi, func(item btree.Item) bool {
		out[item.(normItem).id] = struct{}{}
		return true
	})
	return out
}

// Len reports the number of embedded nodes currently indexed.
func (a *ANN) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.vectors)
}
