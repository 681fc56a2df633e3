package dynamics

import (
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

// runPrune removes every live node whose effective confidence has fallen
// below the prune threshold, except pinned kinds. Returns the number of
// nodes removed.
func (c *Cycle) runPrune() int {
	var doomed []ident.ID
	c.store.Range(func(id ident.ID, n *model.Node) {
		if model.Pinned(n.Kind) {
			return
		}
		if n.Confidence.Effective() < c.opts.PruneThreshold {
			doomed = append(doomed, id)
		}
	})

	pruned := 0
	for _, id := range doomed {
		if err := c.store.Forget(id); err != nil {
			c.log.Warn().Err(err).Stringer("id", id).Msg("prune failed")
			continue
		}
		pruned++
	}
	return pruned
}
