package index

import (
	"math/rand"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"

	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/vector"
)

// lshBits and lshBands/lshRowsPerBand tune near-duplicate bucketing:
// random-hyperplane signatures split into
// bands so that a pair colliding in ANY band is considered a near-duplicate
// candidate (the usual LSH OR-of-ANDs amplification). Resolved as 8
// hyperplanes over 4 bands of 2 rows.
const (
	lshBits        = 8
	lshBands       = 4
	lshRowsPerBand = 2
)

// LSH buckets node embeddings by random-hyperplane signature for
// near-duplicate discovery (lsh_find_similar) and as an ANN candidate
// source for large stores.
type LSH struct {
	mu          sync.RWMutex
	dim         int
	hyperplanes []vector.Vector
	buckets     []map[uint64][]ident.ID
}

// NewLSH builds an LSH index over vectors of dimension dim. seed makes the
// hyperplane draw deterministic across a process's lifetime.
func NewLSH(dim int, seed int64) *LSH {
	rng := rand.New(rand.NewSource(seed))
	planes := make([]vector.Vector, lshBits)
	for i := range planes {
		p := make(vector.Vector, dim)
		for j := range p {
			p[j] = float32(rng.NormFloat64())
		}
		planes[i] = p
	}
	buckets := make([]map[uint64][]ident.ID, lshBands)
	for i := range buckets {
		buckets[i] = make(map[uint64][]ident.ID)
	}
	return &LSH{dim: dim, hyperplanes: planes, buckets: buckets}
}

func (l *LSH) signature(v vector.Vector) *bitset.BitSet {
	bs := bitset.New(lshBits)
	for i, p := range l.hyperplanes {
		if v.Dot(p) >= 0 {
			bs.Set(uint(i))
		}
	}
	return bs
}

func (l *LSH) bandKey(bs *bitset.BitSet, band int) uint64 {
	start := band * lshRowsPerBand
	var buf [lshRowsPerBand]byte
	for i := 0; i < lshRowsPerBand; i++ {
		if bs.Test(uint(start + i)) {
			buf[i] = 1
		}
	}
	return xxhash.Sum64(buf[:])
}

// Insert adds id's signature to every band bucket.
func (l *LSH) Insert(id ident.ID, v vector.Vector) {
	if len(v) != l.dim || v.Zero() {
		return
	}
	bs := l.signature(v)
	l.mu.Lock()
	defer l.mu.Unlock()
	for b := 0; b < lshBands; b++ {
		key := l.bandKey(bs, b)
		l.buckets[b][key] = append(l.buckets[b][key], id)
	}
}

// Remove deletes id from every band bucket it was filed under.
func (l *LSH) Remove(id ident.ID, v vector.Vector) {
	if len(v) != l.dim || v.Zero() {
		return
	}
	bs := l.signature(v)
	l.mu.Lock()
	defer l.mu.Unlock()
	for b := 0; b < lshBands; b++ {
		key := l.bandKey(bs, b)
		bucket := l.buckets[b][key]
		for i, existing := range bucket {
			if existing == id {
				l.buckets[b][key] = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
	}
}

// Candidates returns the union, across all bands, of ids sharing a band
// bucket with v's signature — the near-duplicate / ANN candidate set.
func (l *LSH) Candidates(v vector.Vector) []ident.ID {
	if len(v) != l.dim {
		return nil
	}
	bs := l.signature(v)
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[ident.ID]struct{})
	var out []ident.ID
	for b := 0; b < lshBands; b++ {
		key := l.bandKey(bs, b)
		for _, id := range l.buckets[b][key] {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}
