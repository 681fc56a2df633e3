package graphalgo

import (
	"math"
	"sort"

	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

// hawkesAlpha is the kernel amplitude. The decay rate beta is computed in
// HawkesTimeline so that a node's Hawkes score roughly halves every
// hours/4. With a single access event per node (tau_accessed is the
// only access timestamp the store retains), the self-exciting sum
// collapses to one term, so beta alone sets the half-life: beta =
// ln(2) / (hours/4 in ms).
const hawkesAlpha = 1.0

// TimelineResult is one node's Hawkes-weighted recency score.
type TimelineResult struct {
	ID    ident.ID
	Score float64
}

// HawkesTimeline scores every node whose tau_accessed falls within the
// last hours (measured from nowMS) using a self-exciting exponential
// kernel: alpha * exp(-beta * dt), returning the top limit by score
//" via the caller's
// time-ordered node set — here a single linear pass, adequate at the
// candidate-set sizes this query filters down to).
func HawkesTimeline(nodes []*model.Node, nowMS int64, hours int, limit int) []TimelineResult {
	if hours <= 0 {
		hours = 24
	}
	windowMS := int64(hours) * 3_600_000
	halfLifeMS := float64(windowMS) / 4
	beta := math.Ln2 / halfLifeMS

	out := make([]TimelineResult, 0, len(nodes))
	for _, n := range nodes {
		dt := nowMS - n.TauAccessed
		if dt < 0 || dt > windowMS {
			continue
		}
		score := hawkesAlpha * math.Exp(-beta*float64(dt))
		out = append(out, TimelineResult{ID: n.ID, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
