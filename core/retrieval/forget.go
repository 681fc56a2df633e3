package retrieval

import (
	"fmt"

	"github.com/yantra-mind/memoryd/core/feedback"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

// ForgetOptions configures a forget() call.
type ForgetOptions struct {
	Cascade         bool
	Rewire          bool
	CascadeStrength float64
}

// Forget removes a node and repairs the graph around it: optionally
// weakening its neighbors' confidence (cascade) and/or bridging a direct
// edge between each pair of surviving neighbors that used to be
// connected only through the removed node (rewire), then records an
// audit episode of the removal.
func (p *Pipeline) Forget(id ident.ID, opts ForgetOptions) error {
	n, err := p.store.Get(id)
	if err != nil {
		return err
	}

	outbound := make([]ident.ID, 0, len(n.Edges))
	for _, e := range n.Edges {
		outbound = append(outbound, e.Target)
	}
	var inbound []ident.ID
	for _, e := range p.store.Indices.ReverseEdge.Incoming(id) {
		inbound = append(inbound, e.Source)
		for _, t := range edgeTypesTo(p, e.Source, id) {
			_ = p.store.Disconnect(e.Source, id, t)
		}
	}

	if opts.Cascade {
		strength := opts.CascadeStrength
		if strength <= 0 {
			strength = 0.1
		}
		neighbors := append(append([]ident.ID{}, inbound...), outbound...)
		for _, nb := range neighbors {
			p.feedback.Push(feedback.Event{ID: nb, Kind: feedback.KindChallenged, Magnitude: -strength})
		}
	}

	if opts.Rewire {
		const rewireWeight = 0.1
		for _, src := range inbound {
			for _, tgt := range outbound {
				if src == tgt || src == id || tgt == id {
					continue
				}
				_ = p.store.Connect(src, tgt, model.EdgeHebbian, rewireWeight)
			}
		}
	}

	if err := p.store.Forget(id); err != nil {
		return err
	}

	audit := model.NewNode(model.KindEpisode, []byte(fmt.Sprintf("forgot node %s (cascade=%v rewire=%v)", id, opts.Cascade, opts.Rewire)), p.clock.NowMS())
	audit.AddTag("audit")
	audit.AddTag("forget")
	return p.store.Remember(audit)
}

func edgeTypesTo(p *Pipeline, source, target ident.ID) []model.EdgeType {
	n, err := p.store.Get(source)
	if err != nil {
		return nil
	}
	var out []model.EdgeType
	for _, e := range n.Edges {
		if e.Target == target {
			out = append(out, e.Type)
		}
	}
	return out
}
