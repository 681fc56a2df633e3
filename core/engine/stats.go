package engine

import (
	"github.com/yantra-mind/memoryd/core/health"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/wisdom"
)

// Stats is the introspection snapshot the stats tool and CLI report.
type Stats struct {
	Nodes       int            `json:"nodes"`
	Hot         int            `json:"hot"`
	Warm        int            `json:"warm"`
	Cold        int            `json:"cold"`
	Edges       int            `json:"edges"`
	Tags        int            `json:"tags"`
	ByKind      map[string]int `json:"by_kind"`
	Flagged     int            `json:"flagged_embeddings"`
	YantraReady bool           `json:"yantra_ready"`
	ReadOnly    bool           `json:"read_only"`

	Health health.Scores   `json:"health"`
	Status health.Status   `json:"status"`
	Wisdom wisdom.Snapshot `json:"wisdom"`
}

// Stats gathers counts, health scores, and wisdom metrics. fast skips the
// health evaluation (which touches every edge) and reports only counts.
func (e *Engine) Stats(fast bool) Stats {
	hot, warm, cold := e.store.TierCounts()
	s := Stats{
		Hot:      hot,
		Warm:     warm,
		Cold:     cold,
		Nodes:    hot + warm + cold,
		ByKind:   make(map[string]int),
		ReadOnly: e.readOnly.Load(),
	}

	tags := make(map[string]struct{})
	e.store.Range(func(id ident.ID, n *model.Node) {
		s.Edges += len(n.Edges)
		s.ByKind[string(n.Kind)]++
		if n.EmbeddingFlagged {
			s.Flagged++
		}
		for t := range n.Tags {
			tags[t] = struct{}{}
		}
	})
	s.Tags = len(tags)
	s.YantraReady = e.embedder.Available() && s.Flagged == 0

	if !fast {
		now := e.clock.NowMS()
		hotCap, warmCap := e.store.Capacities()
		s.Health = health.Evaluate(e.store, now, hotCap, warmCap)
		s.Status = s.Health.Status()
		s.Wisdom = e.metrics.Read()
	}
	return s
}

// Health evaluates the four-axis health score without repairing anything.
func (e *Engine) Health() health.Scores {
	hotCap, warmCap := e.store.Capacities()
	return health.Evaluate(e.store, e.clock.NowMS(), hotCap, warmCap)
}

// CheckIntegrity runs a read-only integrity check.
func (e *Engine) CheckIntegrity() health.IntegrityReport {
	return e.checker.Check()
}

// Repair applies integrity repairs and reports what was done. Repair is
// allowed even in read-only mode, since it is the way out of it; a
// successful repair that restores health clears read-only.
func (e *Engine) Repair() health.RecoveryReport {
	rep := e.checker.Repair(0)
	if !e.Health().Critical() {
		e.readOnly.Store(false)
	}
	return rep
}
