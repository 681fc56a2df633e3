package store

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/index"
	"github.com/yantra-mind/memoryd/core/model"
)

// Store is the tiered node store: Hot nodes fully in memory, Warm nodes in
// memory with quantized embeddings, and Cold nodes
// metadata-only on disk via ColdStore. It owns the WAL, the snapshot
// lifecycle, and the non-owning indices that accelerate lookups over its
// own records.
type Store struct {
	mu sync.RWMutex

	path string
	dim  int

	hot  map[ident.ID]*model.Node
	warm map[ident.ID]*model.Node
	cold *ColdStore

	// coldCache keeps recently read cold-tier nodes in memory so repeat
	// lookups skip the metadata database. Entries are evicted whenever
	// the underlying cold row changes.
	coldCache *lru.Cache[ident.ID, *model.Node]

	wal        *WAL
	generation uint64

	hotCapacity  int
	warmCapacity int
	skipBM25     bool

	Indices *index.Indices
}

// Options configures a Store at Open time.
type Options struct {
	Dim          int
	HotCapacity  int
	WarmCapacity int
	// SkipBM25 disables the lexical index entirely; recall degrades to
	// dense-only scoring.
	SkipBM25 bool
}

// Open opens the store at path, recovering from the latest snapshot (if
// any) and replaying the WAL forward from it.
func Open(path string, opts Options) (*Store, error) {
	if opts.HotCapacity <= 0 {
		opts.HotCapacity = 10_000
	}
	if opts.WarmCapacity <= 0 {
		opts.WarmCapacity = 100_000
	}

	cold, err := OpenCold(path + ".cold")
	if err != nil {
		return nil, err
	}

	coldCache, err := lru.New[ident.ID, *model.Node](1024)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, err, "cold cache")
	}

	s := &Store{
		path:         path,
		coldCache:    coldCache,
		dim:          opts.Dim,
		hot:          make(map[ident.ID]*model.Node),
		warm:         make(map[ident.ID]*model.Node),
		cold:         cold,
		hotCapacity:  opts.HotCapacity,
		warmCapacity: opts.WarmCapacity,
		skipBM25:     opts.SkipBM25,
		Indices:      index.New(opts.Dim),
	}

	var startLSN uint64
	if snapPath, gen, ok := latestSnapshot(path); ok {
		payload, err := readSnapshot(snapPath)
		if err != nil {
			return nil, err
		}
		for id, n := range payload.Nodes {
			s.placeByTier(id, n)
		}
		startLSN = payload.LSN
		s.generation = gen
	}

	frames, maxLSN, err := ReadWAL(path+".wal", startLSN)
	if err != nil {
		return nil, err
	}
	for _, fr := range frames {
		if err := s.replay(fr); err != nil {
			return nil, err
		}
	}

	wal, err := OpenWAL(path+".wal", maxLSN)
	if err != nil {
		return nil, err
	}
	s.wal = wal

	s.reindexAll()
	return s, nil
}

// placeByTier files a recovered node into the hot or warm map per its
// persisted Tier (Cold nodes never appear in a snapshot's Nodes map —
// they live in ColdStore instead).
func (s *Store) placeByTier(id ident.ID, n *model.Node) {
	if n.Tier == model.TierWarm {
		s.warm[id] = n
	} else {
		s.hot[id] = n
	}
}

// reindexAll rebuilds every index from the in-memory hot+warm tiers after
// recovery — indices are accelerators, not sources of truth, so they are
// never themselves persisted.
func (s *Store) reindexAll() {
	for id, n := range s.hot {
		s.indexNode(id, n)
	}
	for id, n := range s.warm {
		s.indexNode(id, n)
	}
}

func (s *Store) indexNode(id ident.ID, n *model.Node) {
	if len(n.Embedding) == s.dim {
		s.Indices.ANN.Insert(id, n.Embedding)
	}
	if !s.skipBM25 {
		s.Indices.BM25.Index(id, n.Text())
	}
	for tag := range n.Tags {
		s.Indices.Tags.Add(id, tag)
	}
	for _, e := range n.Edges {
		s.Indices.ReverseEdge.Add(id, e.Target, e.Type, e.Weight)
	}
	s.Indices.Access.Touch(id, n.TauAccessed)
}

func (s *Store) unindexNode(id ident.ID, n *model.Node) {
	s.Indices.ANN.Remove(id)
	s.Indices.BM25.Remove(id)
	s.Indices.Tags.RemoveNode(id)
	s.Indices.ReverseEdge.RemoveNode(id)
	for _, e := range n.Edges {
		s.Indices.ReverseEdge.Remove(id, e.Target, e.Type)
	}
	s.Indices.Access.Remove(id)
}

// Remember inserts a new node, appending its creation to the WAL before it
// becomes visible in any tier or index.
func (s *Store) Remember(n *model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.wal.Append(OpRemember, n); err != nil {
		return err
	}
	s.hot[n.ID] = n
	s.indexNode(n.ID, n)
	return nil
}

// Get returns a node by id, checking Hot, then Warm, then Cold.
func (s *Store) Get(id ident.ID) (*model.Node, error) {
	s.mu.RLock()
	if n, ok := s.hot[id]; ok {
		s.mu.RUnlock()
		return n, nil
	}
	if n, ok := s.warm[id]; ok {
		s.mu.RUnlock()
		return n, nil
	}
	s.mu.RUnlock()

	if n, ok := s.coldCache.Get(id); ok {
		return n, nil
	}
	n, err := s.cold.Get(id)
	if err != nil {
		return nil, err
	}
	s.coldCache.Add(id, n)
	return n, nil
}

// Tier reports which tier id currently lives in, or an error if unknown.
func (s *Store) Tier(id ident.ID) (model.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.hot[id]; ok {
		return model.TierHot, nil
	}
	if _, ok := s.warm[id]; ok {
		return model.TierWarm, nil
	}
	if s.cold.Has(id) {
		return model.TierCold, nil
	}
	return 0, apperr.New(apperr.KindNotFound, "node %s not found", id)
}

// updatePayload is the WAL-recorded body for OpUpdate.
type updatePayload struct {
	ID      ident.ID
	Payload string
}

// Update replaces a node's payload text, re-indexing its lexical entry.
func (s *Store) Update(id ident.ID, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.liveNodeLocked(id)
	if !ok {
		return apperr.New(apperr.KindNotFound, "node %s not found", id)
	}
	if _, err := s.wal.Append(OpUpdate, updatePayload{ID: id, Payload: payload}); err != nil {
		return err
	}
	n.Payload = []byte(payload)
	if !s.skipBM25 {
		s.Indices.BM25.Index(id, payload)
	}
	return nil
}

// tagPayload is the WAL-recorded body for OpAddTag/OpRemoveTag.
type tagPayload struct {
	ID  ident.ID
	Tag string
}

// AddTag adds tag to a live (Hot or Warm) node.
func (s *Store) AddTag(id ident.ID, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.liveNodeLocked(id)
	if !ok {
		return apperr.New(apperr.KindNotFound, "node %s not found", id)
	}
	if _, err := s.wal.Append(OpAddTag, tagPayload{ID: id, Tag: tag}); err != nil {
		return err
	}
	n.AddTag(tag)
	s.Indices.Tags.Add(id, tag)
	return nil
}

// RemoveTag removes tag from a live node.
func (s *Store) RemoveTag(id ident.ID, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.liveNodeLocked(id)
	if !ok {
		return apperr.New(apperr.KindNotFound, "node %s not found", id)
	}
	if _, err := s.wal.Append(OpRemoveTag, tagPayload{ID: id, Tag: tag}); err != nil {
		return err
	}
	n.RemoveTag(tag)
	s.Indices.Tags.Remove(id, tag)
	return nil
}

// edgePayload is the WAL-recorded body for OpConnect/OpDisconnect.
type edgePayload struct {
	Source ident.ID
	Target ident.ID
	Type   model.EdgeType
	Weight float64
}

// feedbackPayload is the WAL-recorded body for OpFeedback.
type feedbackPayload struct {
	ID        ident.ID
	Magnitude float64
}

// ApplyFeedback folds a signed evidence magnitude into id's confidence
// posterior, write-through to WAL.
func (s *Store) ApplyFeedback(id ident.ID, magnitude float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.liveNodeLocked(id)
	if !ok {
		return apperr.New(apperr.KindNotFound, "node %s not found", id)
	}
	if _, err := s.wal.Append(OpFeedback, feedbackPayload{ID: id, Magnitude: magnitude}); err != nil {
		return err
	}
	n.Confidence = n.Confidence.ApplyEvidence(magnitude)
	return nil
}

// decayPayload is the WAL-recorded body for OpDecay.
type decayPayload struct {
	ID         ident.ID
	Confidence model.Confidence
}

// ApplyDecay overwrites id's confidence posterior with the already-decayed
// value c, write-through to WAL.
func (s *Store) ApplyDecay(id ident.ID, c model.Confidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.liveNodeLocked(id)
	if !ok {
		return apperr.New(apperr.KindNotFound, "node %s not found", id)
	}
	if _, err := s.wal.Append(OpDecay, decayPayload{ID: id, Confidence: c}); err != nil {
		return err
	}
	n.Confidence = c
	return nil
}

// Connect adds an edge from source to target, or overwrites the weight of
// an existing edge of the same type; the weight is clamped into [0, 1].
func (s *Store) Connect(source, target ident.ID, t model.EdgeType, weight float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.liveNodeLocked(source)
	if !ok {
		return apperr.New(apperr.KindNotFound, "node %s not found", source)
	}
	weight = model.ClampWeight(weight)
	if _, err := s.wal.Append(OpConnect, edgePayload{Source: source, Target: target, Type: t, Weight: weight}); err != nil {
		return err
	}
	s.applyConnect(n, source, target, t, weight)
	return nil
}

func (s *Store) applyConnect(n *model.Node, source, target ident.ID, t model.EdgeType, weight float64) {
	if i := model.FindEdge(n.Edges, target, t); i >= 0 {
		n.Edges[i].Weight = weight
	} else {
		n.Edges = append(n.Edges, model.Edge{Target: target, Type: t, Weight: weight})
	}
	s.Indices.ReverseEdge.Add(source, target, t, weight)
}

// Disconnect removes an edge from source to target.
func (s *Store) Disconnect(source, target ident.ID, t model.EdgeType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.liveNodeLocked(source)
	if !ok {
		return apperr.New(apperr.KindNotFound, "node %s not found", source)
	}
	if _, err := s.wal.Append(OpDisconnect, edgePayload{Source: source, Target: target, Type: t}); err != nil {
		return err
	}
	s.applyDisconnect(n, source, target, t)
	return nil
}

func (s *Store) applyDisconnect(n *model.Node, source, target ident.ID, t model.EdgeType) {
	if i := model.FindEdge(n.Edges, target, t); i >= 0 {
		n.Edges = append(n.Edges[:i], n.Edges[i+1:]...)
	}
	s.Indices.ReverseEdge.Remove(source, target, t)
}

// Forget removes a node from whichever tier it lives in, along with its
// index entries (including reverse-edge records to and from it). Edges
// held on other nodes that point at it are not removed from those nodes.
func (s *Store) Forget(id ident.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.wal.Append(OpForget, id); err != nil {
		return err
	}
	s.applyForget(id)
	return nil
}

func (s *Store) applyForget(id ident.ID) {
	if n, ok := s.hot[id]; ok {
		s.unindexNode(id, n)
		delete(s.hot, id)
		return
	}
	if n, ok := s.warm[id]; ok {
		s.unindexNode(id, n)
		delete(s.warm, id)
		return
	}
	s.coldCache.Remove(id)
	_ = s.cold.Delete(id)
}

func (s *Store) liveNodeLocked(id ident.ID) (*model.Node, bool) {
	if n, ok := s.hot[id]; ok {
		return n, true
	}
	if n, ok := s.warm[id]; ok {
		return n, true
	}
	return nil, false
}

// Range calls fn for every live (Hot + Warm) node. fn must not mutate the
// store.
func (s *Store) Range(fn func(id ident.ID, n *model.Node)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, n := range s.hot {
		fn(id, n)
	}
	for id, n := range s.warm {
		fn(id, n)
	}
}

// Touch advances a live node's tau_accessed to nowMS if nowMS is later,
// preserving the "tau_accessed never decreases" invariant. Access-time bookkeeping is not WAL-logged: it is an
// accelerator statistic, not durable state a crash must recover.
func (s *Store) Touch(id ident.ID, nowMS int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.liveNodeLocked(id); ok && nowMS > n.TauAccessed {
		n.TauAccessed = nowMS
		s.Indices.Access.Touch(id, nowMS)
	}
}

// RebuildIndices discards and recomputes every index from the live
// Hot+Warm node set.
func (s *Store) RebuildIndices() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Indices = index.New(s.dim)
	s.reindexAll()
}

// Quarantine removes id from its live tier without touching the WAL,
// marking it as quarantined rather than forgotten.
func (s *Store) Quarantine(id ident.ID) (*model.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.liveNodeLocked(id)
	if !ok {
		return nil, false
	}
	n.Quarantined = true
	s.unindexNode(id, n)
	delete(s.hot, id)
	delete(s.warm, id)
	return n, true
}

// TierCounts reports how many nodes each tier currently holds. The cold
// count comes from the metadata database; an unreadable cold tier reports
// zero rather than failing a stats call.
func (s *Store) TierCounts() (hot, warm, cold int) {
	s.mu.RLock()
	hot = len(s.hot)
	warm = len(s.warm)
	s.mu.RUnlock()
	cold, _ = s.cold.Count()
	return hot, warm, cold
}

// Capacities returns the configured hot and warm tier capacities.
func (s *Store) Capacities() (hot, warm int) {
	return s.hotCapacity, s.warmCapacity
}

// Len reports the number of live (Hot + Warm) nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hot) + len(s.warm)
}

// Checkpoint serializes the hot and warm tiers into a new snapshot
// generation and truncates the WAL prefix it now supersedes. It
// appends an OpCheckpoint marker frame first so a crash mid-snapshot still
// has a WAL record of the attempt.
func (s *Store) Checkpoint(keepSnapshots int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lsn := s.wal.LSN()
	if _, err := s.wal.Append(OpCheckpoint, lsn); err != nil {
		return err
	}

	nodes := make(map[ident.ID]*model.Node, len(s.hot)+len(s.warm))
	for id, n := range s.hot {
		nodes[id] = n
	}
	for id, n := range s.warm {
		nodes[id] = n
	}

	s.generation++
	if _, err := writeSnapshot(s.path, s.generation, snapshotPayload{Nodes: nodes, LSN: lsn}); err != nil {
		s.generation--
		return err
	}
	if keepSnapshots <= 0 {
		keepSnapshots = 2
	}
	pruneOldSnapshots(s.path, keepSnapshots)
	return s.wal.Truncate()
}

// Path returns the store's base path, used by the daemon to derive the
// deterministic Unix-socket path.
func (s *Store) Path() string {
	return s.path
}

// Dim returns the embedding dimension this store was opened with.
func (s *Store) Dim() int {
	return s.dim
}

// Close flushes the WAL and closes the cold store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.wal.Close(); err != nil {
		return err
	}
	return s.cold.Close()
}
