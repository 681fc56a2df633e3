package dynamics

import (
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

// recentAccessDamping halves the effective decay rate of a node accessed
// within the last cycle, so memories in active use cool off slower than
// ones lying fallow.
const recentAccessDamping = 0.5

// runDecay applies exponential confidence decay to every live node,
// write-through to the WAL. Nodes touched within the elapsed window decay
// at a damped rate. Returns the number of nodes whose confidence changed.
func (c *Cycle) runDecay(nowMS, elapsedMS int64) int {
	type decayed struct {
		id   ident.ID
		conf model.Confidence
	}
	var updates []decayed

	c.store.Range(func(id ident.ID, n *model.Node) {
		if !model.Decayable(n.Kind) {
			return
		}
		delta := n.Delta
		if nowMS-n.TauAccessed < elapsedMS {
			delta *= recentAccessDamping
		}
		next := n.Confidence.Decay(delta, elapsedMS, c.opts.DecayIntervalMS)
		if next.Mu != n.Confidence.Mu {
			updates = append(updates, decayed{id: id, conf: next})
		}
	})

	applied := 0
	for _, u := range updates {
		if err := c.store.ApplyDecay(u.id, u.conf); err != nil {
			c.log.Warn().Err(err).Stringer("id", u.id).Msg("decay apply failed")
			continue
		}
		applied++
	}
	return applied
}
