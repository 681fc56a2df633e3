package health

import (
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/store"
)

// IntegrityReport is what a Check pass found wrong, before any repair.
type IntegrityReport struct {
	DanglingEdges   []DanglingEdge `json:"dangling_edges,omitempty"`
	TagDrift        []ident.ID     `json:"tag_drift,omitempty"`
	ANNDrift        bool           `json:"ann_drift,omitempty"`
	SnapshotCorrupt bool           `json:"snapshot_corrupt,omitempty"`
	CorruptNodes    []ident.ID     `json:"corrupt_nodes,omitempty"`
}

// Clean reports whether the check found nothing to repair.
func (r IntegrityReport) Clean() bool {
	return len(r.DanglingEdges) == 0 && len(r.TagDrift) == 0 &&
		!r.ANNDrift && !r.SnapshotCorrupt && len(r.CorruptNodes) == 0
}

// DanglingEdge is an edge whose target no longer exists.
type DanglingEdge struct {
	Source ident.ID       `json:"source"`
	Target ident.ID       `json:"target"`
	Type   model.EdgeType `json:"type"`
}

// RecoveryReport records what a Repair pass actually applied.
type RecoveryReport struct {
	EdgesDropped    int        `json:"edges_dropped"`
	IndicesRebuilt  bool       `json:"indices_rebuilt"`
	Quarantined     []ident.ID `json:"quarantined,omitempty"`
	SnapshotReplaced bool      `json:"snapshot_replaced"`
}

// Checker runs integrity verification and repair against one store.
type Checker struct {
	store *store.Store
}

// NewChecker builds a Checker for st.
func NewChecker(st *store.Store) *Checker {
	return &Checker{store: st}
}

// Check verifies (a) the latest snapshot's checksum, (b) that every edge
// target resolves, (c) that the tag index agrees with each node's tag
// set, (d) that the ANN index cardinality matches the embedded live node
// count, and (e) per-node invariants (timestamps ordered, confidence in
// range). It mutates nothing.
func (c *Checker) Check() IntegrityReport {
	var rep IntegrityReport

	if err := c.store.VerifySnapshot(); err != nil {
		rep.SnapshotCorrupt = true
	}

	// Collect under the scan, resolve edge targets afterwards: Range
	// holds the store's read lock, so lookups must not re-enter it.
	live := make(map[ident.ID]struct{})
	var candidates []DanglingEdge
	embedded := 0
	c.store.Range(func(id ident.ID, n *model.Node) {
		live[id] = struct{}{}
		if len(n.Embedding) == c.store.Dim() && !n.Embedding.Zero() {
			embedded++
		} else if n.EmbeddingQuant.Dim() == c.store.Dim() {
			embedded++
		}

		if corruptNode(n) {
			rep.CorruptNodes = append(rep.CorruptNodes, id)
			return
		}

		for _, e := range n.Edges {
			candidates = append(candidates, DanglingEdge{Source: id, Target: e.Target, Type: e.Type})
		}
		for tag := range n.Tags {
			if !c.store.Indices.Tags.Contains(id, tag) {
				rep.TagDrift = append(rep.TagDrift, id)
				break
			}
		}
	})
	for _, d := range candidates {
		if _, ok := live[d.Target]; ok {
			continue
		}
		if _, err := c.store.Get(d.Target); err != nil {
			rep.DanglingEdges = append(rep.DanglingEdges, d)
		}
	}

	if c.store.Indices.ANN.Len() != embedded {
		rep.ANNDrift = true
	}
	return rep
}

func corruptNode(n *model.Node) bool {
	if n.TauAccessed < n.TauCreated {
		return true
	}
	k := n.Confidence
	if k.Mu < 0 || k.Mu > 1 || k.Sigma2 < 0 || k.N < 1 {
		return true
	}
	return false
}

// Repair applies fixes for everything a fresh Check finds: corrupt nodes
// are quarantined out of the live set, dangling edges are dropped, and
// any index drift triggers a full rebuild from the authoritative node
// set. A corrupt snapshot is superseded by writing a fresh checkpoint.
func (c *Checker) Repair(keepSnapshots int) RecoveryReport {
	found := c.Check()
	var rep RecoveryReport

	for _, id := range found.CorruptNodes {
		if _, ok := c.store.Quarantine(id); ok {
			rep.Quarantined = append(rep.Quarantined, id)
		}
	}

	for _, d := range found.DanglingEdges {
		if err := c.store.Disconnect(d.Source, d.Target, d.Type); err == nil {
			rep.EdgesDropped++
		}
	}

	if found.ANNDrift || len(found.TagDrift) > 0 || len(rep.Quarantined) > 0 {
		c.store.RebuildIndices()
		rep.IndicesRebuilt = true
	}

	if found.SnapshotCorrupt {
		if err := c.store.Checkpoint(keepSnapshots); err == nil {
			rep.SnapshotReplaced = true
		}
	}
	return rep
}
