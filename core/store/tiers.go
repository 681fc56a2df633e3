package store

import (
	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/vector"
)

// tierChangePayload is the WAL-recorded body for OpTierChange.
type tierChangePayload struct {
	ID   ident.ID
	From model.Tier
	To   model.Tier
}

// DemoteToWarm moves a Hot node to Warm, quantizing its embedding and
// dropping the full-precision copy.
func (s *Store) DemoteToWarm(id ident.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.hot[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "node %s not in hot tier", id)
	}
	if _, err := s.wal.Append(OpTierChange, tierChangePayload{ID: id, From: model.TierHot, To: model.TierWarm}); err != nil {
		return err
	}
	s.applyDemoteToWarm(n)
	return nil
}

func (s *Store) applyDemoteToWarm(n *model.Node) {
	if len(n.Embedding) > 0 {
		n.EmbeddingQuant = vector.FromFloat(n.Embedding)
		n.Embedding = nil
	}
	n.Tier = model.TierWarm
	delete(s.hot, n.ID)
	s.warm[n.ID] = n
}

// PromoteToHot moves a Warm node back to Hot, dequantizing its embedding.
func (s *Store) PromoteToHot(id ident.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.warm[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "node %s not in warm tier", id)
	}
	if _, err := s.wal.Append(OpTierChange, tierChangePayload{ID: id, From: model.TierWarm, To: model.TierHot}); err != nil {
		return err
	}
	s.applyPromoteToHot(n)
	return nil
}

func (s *Store) applyPromoteToHot(n *model.Node) {
	if n.EmbeddingQuant.Dim() > 0 {
		n.Embedding = n.EmbeddingQuant.ToFloat()
	}
	n.Tier = model.TierHot
	delete(s.warm, n.ID)
	s.hot[n.ID] = n
}

// DemoteToCold moves a Warm node to the on-disk metadata-only Cold tier,
// dropping its embedding entirely.
func (s *Store) DemoteToCold(id ident.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.warm[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "node %s not in warm tier", id)
	}
	if _, err := s.wal.Append(OpTierChange, tierChangePayload{ID: id, From: model.TierWarm, To: model.TierCold}); err != nil {
		return err
	}
	return s.applyDemoteToCold(n)
}

func (s *Store) applyDemoteToCold(n *model.Node) error {
	n.Tier = model.TierCold
	s.unindexNode(n.ID, n)
	delete(s.warm, n.ID)
	n.Embedding = nil
	n.EmbeddingQuant = vector.QuantizedVector{}
	s.coldCache.Remove(n.ID)
	return s.cold.Put(n)
}

// PromoteFromCold loads id out of the Cold tier back into Hot, without an
// embedding — the caller (core/engine) is expected to re-embed the
// payload and call ApplyEmbedding before the node is useful for dense
// recall again.
func (s *Store) PromoteFromCold(id ident.ID) (*model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.cold.Get(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.wal.Append(OpTierChange, tierChangePayload{ID: id, From: model.TierCold, To: model.TierHot}); err != nil {
		return nil, err
	}
	n.Tier = model.TierHot
	s.hot[id] = n
	s.indexNode(id, n)
	s.coldCache.Remove(id)
	_ = s.cold.Delete(id)
	return n, nil
}

// ApplyEmbedding sets (or refreshes) a live node's embedding and re-indexes
// it in the ANN/LSH indices.
func (s *Store) ApplyEmbedding(id ident.ID, v vector.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.liveNodeLocked(id)
	if !ok {
		return apperr.New(apperr.KindNotFound, "node %s not found", id)
	}
	n.Embedding = v
	n.EmbeddingFlagged = false
	if len(v) == s.dim {
		s.Indices.ANN.Insert(id, v)
	}
	return nil
}

// TickPolicy runs one capacity-driven promotion/demotion pass: when Hot
// exceeds its capacity, the least-recently-accessed Hot nodes are demoted
// to Warm; when Warm exceeds its capacity, the least-recently-accessed
// Warm nodes are demoted to Cold. Pinned kinds are skipped.
func (s *Store) TickPolicy() {
	s.demoteOverflow()
}

func (s *Store) demoteOverflow() {
	s.mu.RLock()
	hotOverflow := len(s.hot) - s.hotCapacity
	warmOverflow := len(s.warm) - s.warmCapacity
	s.mu.RUnlock()

	if hotOverflow > 0 {
		for _, id := range s.lruCandidates(s.hot, hotOverflow) {
			_ = s.DemoteToWarm(id)
		}
	}
	if warmOverflow > 0 {
		for _, id := range s.lruCandidates(s.warm, warmOverflow) {
			_ = s.DemoteToCold(id)
		}
	}
}

// lruCandidates returns up to n ids from tier sorted oldest-accessed
// first, skipping Pinned kinds.
func (s *Store) lruCandidates(tier map[ident.ID]*model.Node, n int) []ident.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type cand struct {
		id       ident.ID
		accessed int64
	}
	var all []cand
	for id, node := range tier {
		if model.Pinned(node.Kind) {
			continue
		}
		all = append(all, cand{id: id, accessed: node.TauAccessed})
	}
	// simple selection: partial sort, n is expected small relative to tier size
	for i := 0; i < len(all) && i < n; i++ {
		min := i
		for j := i + 1; j < len(all); j++ {
			if all[j].accessed < all[min].accessed {
				min = j
			}
		}
		all[i], all[min] = all[min], all[i]
	}
	if n > len(all) {
		n = len(all)
	}
	out := make([]ident.ID, n)
	for i := 0; i < n; i++ {
		out[i] = all[i].id
	}
	return out
}
