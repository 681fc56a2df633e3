package dynamics

import (
	"strings"

	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/wisdom"
)

// synthesizedTag marks cluster members that have already fed a Wisdom
// node, so the same cluster is not re-condensed every cycle.
const synthesizedTag = "synthesized"

// runWisdomSynthesis detects clusters of mutually similar, tag-sharing
// nodes and condenses each into a single Wisdom node linked back to its
// members. The summary text comes from the configured Summarizer; with no
// Summarizer configured the step is skipped entirely. Returns the number
// of Wisdom nodes written.
func (c *Cycle) runWisdomSynthesis(nowMS int64) int {
	if c.opts.Summarizer == nil {
		return 0
	}

	clusters := wisdom.FindClusters(c.store, wisdom.ClusterParams{
		MinCohesion: wisdom.DefaultMinCohesion,
		MinSize:     wisdom.DefaultMinClusterSize,
		SkipTag:     synthesizedTag,
	})

	written := 0
	for _, cluster := range clusters {
		texts := make([]string, len(cluster.Members))
		for i, m := range cluster.Members {
			texts[i] = m.Text()
		}
		summary := strings.TrimSpace(c.opts.Summarizer(texts))
		if summary == "" {
			continue
		}

		w := model.NewNode(model.KindWisdom, []byte(summary), nowMS)
		for _, tag := range cluster.SharedTags {
			w.AddTag(tag)
		}
		if err := c.store.Remember(w); err != nil {
			c.log.Warn().Err(err).Msg("wisdom node write failed")
			continue
		}
		for _, m := range cluster.Members {
			_ = c.store.Connect(w.ID, m.ID, model.EdgeRelated, cluster.Cohesion)
			_ = c.store.AddTag(m.ID, synthesizedTag)
		}
		written++
	}
	return written
}
