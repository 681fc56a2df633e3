// Package health scores the memory system's overall condition (the ojas
// score) and repairs what an integrity check finds broken: dangling
// edges, index drift, unreadable snapshots.
package health

import (
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/store"
)

// Scores holds the four health axes and their weighted combination.
type Scores struct {
	Structural float64 `json:"structural"`
	Semantic   float64 `json:"semantic"`
	Temporal   float64 `json:"temporal"`
	Capacity   float64 `json:"capacity"`
	Overall    float64 `json:"overall"`
}

// Status buckets the overall score into an action level.
type Status string

const (
	StatusNormal         Status = "normal"
	StatusScheduleBackup Status = "schedule_backup"
	StatusForceRepair    Status = "force_repair"
	StatusEmergency      Status = "emergency"
)

// staleHorizonMS is the access-recency window the temporal axis measures
// against: a node untouched for longer than this counts as stale.
const staleHorizonMS = 7 * 24 * 3_600_000

// Evaluate computes the four axes over the store's live set.
//
// Structural: fraction of outgoing edges whose target resolves.
// Semantic: fraction of live nodes carrying a usable embedding.
// Temporal: fraction of live nodes accessed within the stale horizon.
// Capacity: headroom left in the hot and warm tiers.
//
// An empty store is perfectly healthy on every axis.
func Evaluate(st *store.Store, nowMS int64, hotCapacity, warmCapacity int) Scores {
	var (
		nodeCount    int
		edgeCount    int
		resolvedEdge int
		embedded     int
		fresh        int
		hotCount     int
		warmCount    int
	)

	// Edge targets are resolved after the scan: Range holds the store's
	// read lock, so lookups must not re-enter it.
	live := make(map[ident.ID]struct{})
	var targets []ident.ID
	st.Range(func(id ident.ID, n *model.Node) {
		nodeCount++
		live[id] = struct{}{}
		switch n.Tier {
		case model.TierHot:
			hotCount++
		case model.TierWarm:
			warmCount++
		}
		if len(n.EffectiveEmbedding()) > 0 && !n.EmbeddingFlagged {
			embedded++
		}
		if nowMS-n.TauAccessed <= staleHorizonMS {
			fresh++
		}
		for _, e := range n.Edges {
			edgeCount++
			targets = append(targets, e.Target)
		}
	})
	for _, target := range targets {
		if _, ok := live[target]; ok {
			resolvedEdge++
			continue
		}
		if _, err := st.Get(target); err == nil {
			resolvedEdge++ // cold tier
		}
	}

	s := Scores{Structural: 1, Semantic: 1, Temporal: 1, Capacity: 1}
	if edgeCount > 0 {
		s.Structural = float64(resolvedEdge) / float64(edgeCount)
	}
	if nodeCount > 0 {
		s.Semantic = float64(embedded) / float64(nodeCount)
		s.Temporal = float64(fresh) / float64(nodeCount)
	}
	if hotCapacity > 0 && warmCapacity > 0 {
		hotLoad := float64(hotCount) / float64(hotCapacity)
		warmLoad := float64(warmCount) / float64(warmCapacity)
		load := hotLoad
		if warmLoad > load {
			load = warmLoad
		}
		if load > 1 {
			load = 1
		}
		s.Capacity = 1 - load
	}
	s.Overall = (4*s.Structural + 3*s.Semantic + 2*s.Temporal + 1*s.Capacity) / 10
	return s
}

// Status maps the overall score onto its action level.
func (s Scores) Status() Status {
	switch {
	case s.Overall >= 0.95:
		return StatusNormal
	case s.Overall >= 0.80:
		return StatusScheduleBackup
	case s.Overall >= 0.60:
		return StatusForceRepair
	default:
		return StatusEmergency
	}
}

// Critical reports whether the system should refuse mutating operations
// until repaired.
func (s Scores) Critical() bool {
	return s.Overall < 0.6 || s.Structural < 0.5
}

// backupIntervalMS is the minimum spacing between routine backups.
const backupIntervalMS = 3_600_000

// NeedsBackup reports whether a routine backup should be taken: the
// system is healthy enough that a backup captures good state, and at
// least an hour has passed since the last one.
func (s Scores) NeedsBackup(lastBackupMS, nowMS int64) bool {
	return s.Overall >= 0.9 && nowMS-lastBackupMS >= backupIntervalMS
}
