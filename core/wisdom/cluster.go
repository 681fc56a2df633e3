// Package wisdom detects condensation-ready clusters in the memory graph
// and tracks aggregate wisdom metrics over time. A cluster is a group of
// mutually similar, tag-sharing nodes; the dynamics cycle condenses each
// cluster into a single Wisdom node.
package wisdom

import (
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/store"
	"github.com/yantra-mind/memoryd/core/vector"
)

const (
	// DefaultMinCohesion is the minimum mean pairwise cosine for a group
	// to count as a cluster.
	DefaultMinCohesion = 0.85

	// DefaultMinClusterSize is the minimum member count of a cluster.
	DefaultMinClusterSize = 3
)

// ClusterParams tunes one FindClusters pass.
type ClusterParams struct {
	MinCohesion float64
	MinSize     int
	// SkipTag excludes nodes carrying it from clustering, so members of
	// an already-condensed cluster are not condensed again.
	SkipTag string
}

// Cluster is one condensation candidate: its members, their mean pairwise
// cosine, and the tags every member shares.
type Cluster struct {
	Members    []*model.Node
	Cohesion   float64
	SharedTags []string
}

// FindClusters scans the live node set for groups of at least MinSize
// nodes with mean pairwise cosine of at least MinCohesion and a non-empty
// common tag set. LSH buckets provide the candidate neighborhoods, so the
// scan does not go quadratic in store size.
func FindClusters(st *store.Store, p ClusterParams) []Cluster {
	if p.MinCohesion <= 0 {
		p.MinCohesion = DefaultMinCohesion
	}
	if p.MinSize < 2 {
		p.MinSize = DefaultMinClusterSize
	}

	type eligible struct {
		n   *model.Node
		emb vector.Vector
	}
	nodes := make(map[ident.ID]eligible)
	var order []ident.ID
	st.Range(func(id ident.ID, n *model.Node) {
		if !model.Synthesizable(n.Kind) || n.Quarantined {
			return
		}
		if p.SkipTag != "" && n.HasTag(p.SkipTag) {
			return
		}
		if len(n.Tags) == 0 {
			return
		}
		emb := n.EffectiveEmbedding()
		if len(emb) == 0 {
			return
		}
		nodes[id] = eligible{n: n, emb: emb}
		order = append(order, id)
	})

	var clusters []Cluster
	claimed := make(map[ident.ID]struct{})
	for _, seedID := range order {
		if _, ok := claimed[seedID]; ok {
			continue
		}
		seed := nodes[seedID]

		group := []eligible{seed}
		for _, candID := range st.Indices.LSH.Candidates(seed.emb) {
			if candID == seedID {
				continue
			}
			if _, ok := claimed[candID]; ok {
				continue
			}
			cand, ok := nodes[candID]
			if !ok {
				continue
			}
			if !shareTag(seed.n, cand.n, p.SkipTag) {
				continue
			}
			if seed.emb.Cosine(cand.emb) >= p.MinCohesion {
				group = append(group, cand)
			}
		}
		if len(group) < p.MinSize {
			continue
		}

		members := make([]*model.Node, len(group))
		embs := make([]vector.Vector, len(group))
		for i, g := range group {
			members[i] = g.n
			embs[i] = g.emb
		}
		cohesion := MeanPairwiseCosine(embs)
		if cohesion < p.MinCohesion {
			continue
		}
		shared := sharedTags(members, p.SkipTag)
		if len(shared) == 0 {
			continue
		}

		for _, m := range members {
			claimed[m.ID] = struct{}{}
		}
		clusters = append(clusters, Cluster{Members: members, Cohesion: cohesion, SharedTags: shared})
	}
	return clusters
}

// MeanPairwiseCosine returns the average cosine over every unordered pair
// in embs, or 0 for fewer than two vectors.
func MeanPairwiseCosine(embs []vector.Vector) float64 {
	if len(embs) < 2 {
		return 0
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(embs); i++ {
		for j := i + 1; j < len(embs); j++ {
			sum += embs[i].Cosine(embs[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func shareTag(a, b *model.Node, skip string) bool {
	for t := range a.Tags {
		if t == skip {
			continue
		}
		if b.HasTag(t) {
			return true
		}
	}
	return false
}

func sharedTags(members []*model.Node, skip string) []string {
	if len(members) == 0 {
		return nil
	}
	var out []string
	for t := range members[0].Tags {
		if t == skip {
			continue
		}
		common := true
		for _, m := range members[1:] {
			if !m.HasTag(t) {
				common = false
				break
			}
		}
		if common {
			out = append(out, t)
		}
	}
	return out
}
