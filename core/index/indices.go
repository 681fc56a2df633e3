package index

// Indices bundles every non-owning index the store maintains alongside its
// node records. Index updates are sequenced after the
// corresponding WAL append: the WAL is the
// durable log, these are rebuildable accelerators over it.
type Indices struct {
	ANN         *ANN
	BM25        *BM25
	Tags        *Tags
	ReverseEdge *ReverseIndex
	LSH         *LSH
	Access      *Access
}

// New creates a fresh, empty set of indices for embeddings of dimension
// dim. ANN and LSH share one signature table: inserting into ANN also
// files the node under LSH, so lsh_find_similar needs no separate write
// path.
func New(dim int) *Indices {
	lsh := NewLSH(dim, 0x5EED)
	return &Indices{
		ANN:         NewANN(dim, lsh),
		BM25:        NewBM25(),
		Tags:        NewTags(),
		ReverseEdge: NewReverseIndex(),
		LSH:         lsh,
		Access:      NewAccess(),
	}
}
