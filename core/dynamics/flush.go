package dynamics

import "github.com/yantra-mind/memoryd/core/ident"

// runFeedbackFlush drains the feedback queue, aggregates event magnitudes
// per node, and folds each aggregate into the node's confidence posterior
// as a single evidence update. Returns the number of nodes updated.
func (c *Cycle) runFeedbackFlush() int {
	events := c.feedback.Drain()
	if len(events) == 0 {
		return 0
	}

	agg := make(map[ident.ID]float64)
	for _, e := range events {
		agg[e.ID] += e.Magnitude
	}

	applied := 0
	for id, magnitude := range agg {
		if magnitude > 1 {
			magnitude = 1
		}
		if magnitude < -1 {
			magnitude = -1
		}
		if err := c.store.ApplyFeedback(id, magnitude); err != nil {
			// The node may have been forgotten between the event and
			// this flush; stale feedback is simply discarded.
			continue
		}
		applied++
	}
	return applied
}
