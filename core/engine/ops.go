package engine

import (
	"context"
	"unicode/utf8"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/feedback"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/retrieval"
	"github.com/yantra-mind/memoryd/core/vector"
)

// RememberInput carries everything a remember operation accepts. Only
// Kind and Payload are required; an absent Embedding is computed from the
// payload text when possible.
type RememberInput struct {
	Kind       model.Kind
	Payload    []byte
	Embedding  vector.Vector
	Tags       []string
	Provenance *model.Provenance
	Delta      float64
}

// Remember creates a new node in the hot tier. A supplied embedding must
// match the store dimension exactly; with none supplied, the payload text
// is embedded if the embedder is available, and otherwise the node is
// stored with a zero vector and flagged for RegenerateEmbeddings.
func (e *Engine) Remember(ctx context.Context, in RememberInput) (*model.Node, error) {
	if err := e.ensureWritable(); err != nil {
		return nil, err
	}
	if in.Kind == "" {
		return nil, apperr.New(apperr.KindValidation, "kind is required")
	}
	if in.Embedding != nil {
		if err := vector.ValidateDim(in.Embedding, e.store.Dim()); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, err, "embedding rejected")
		}
	}

	n := model.NewNode(in.Kind, in.Payload, e.clock.NowMS())
	if in.Delta > 0 {
		n.Delta = in.Delta
	}
	n.Provenance = in.Provenance
	if n.Provenance == nil {
		if realm := e.session.Realm(); realm != "" {
			n.Provenance = &model.Provenance{Realm: realm}
		}
	}
	for _, t := range in.Tags {
		n.AddTag(t)
	}

	switch {
	case in.Embedding != nil:
		n.Embedding = in.Embedding
	case utf8.Valid(in.Payload) && len(in.Payload) > 0:
		v, err := e.embedder.Embed(ctx, string(in.Payload))
		if err != nil {
			n.Embedding = vector.New(e.store.Dim())
			n.EmbeddingFlagged = true
		} else {
			n.Embedding = v
		}
	default:
		n.Embedding = vector.New(e.store.Dim())
		n.EmbeddingFlagged = true
	}

	if err := e.store.Remember(n); err != nil {
		return nil, err
	}
	if !n.EmbeddingFlagged {
		e.session.Observe(n.Embedding)
	}
	return n, nil
}

// Observe is the creation shorthand for an episodic observation.
func (e *Engine) Observe(ctx context.Context, text string, tags []string) (*model.Node, error) {
	return e.Remember(ctx, RememberInput{Kind: model.KindEpisode, Payload: []byte(text), Tags: tags})
}

// Grow is the creation shorthand for a distilled insight grown out of an
// existing node: the new Wisdom node is connected to parent (when given)
// with the requested edge type.
func (e *Engine) Grow(ctx context.Context, text string, tags []string, parent ident.ID, edgeType model.EdgeType) (*model.Node, error) {
	if !parent.IsNil() {
		if _, err := e.store.Get(parent); err != nil {
			return nil, err
		}
	}
	n, err := e.Remember(ctx, RememberInput{Kind: model.KindWisdom, Payload: []byte(text), Tags: tags})
	if err != nil {
		return nil, err
	}
	if !parent.IsNil() {
		if edgeType == "" {
			edgeType = model.EdgeRelated
		}
		if err := e.store.Connect(n.ID, parent, edgeType, 0.7); err != nil {
			return n, err
		}
	}
	return n, nil
}

// RememberSymbols runs the configured symbol extractor over source and
// stores one Symbol node per discovered symbol, each tagged with its
// language and linked to parent (when given) with a PartOf edge.
func (e *Engine) RememberSymbols(ctx context.Context, source []byte, language string, parent ident.ID) ([]*model.Node, error) {
	if err := e.ensureWritable(); err != nil {
		return nil, err
	}
	syms, err := e.extractor.Extract(source, language)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "symbol extraction failed")
	}
	out := make([]*model.Node, 0, len(syms))
	for _, s := range syms {
		n, err := e.Remember(ctx, RememberInput{
			Kind:    model.KindSymbol,
			Payload: []byte(s.Name),
			Tags:    []string{"lang:" + language, "symbol:" + s.Kind},
		})
		if err != nil {
			return out, err
		}
		if !parent.IsNil() {
			if err := e.Connect(n.ID, parent, model.EdgePartOf, 0.8); err != nil {
				return out, err
			}
		}
		out = append(out, n)
	}
	return out, nil
}

// Get returns a node by id from whichever tier holds it.
func (e *Engine) Get(id ident.ID) (*model.Node, error) {
	return e.store.Get(id)
}

// Update replaces a node's payload text and refreshes its embedding.
func (e *Engine) Update(ctx context.Context, id ident.ID, payload string) error {
	if err := e.ensureWritable(); err != nil {
		return err
	}
	if err := e.store.Update(id, payload); err != nil {
		return err
	}
	if v, err := e.embedder.Embed(ctx, payload); err == nil {
		return e.store.ApplyEmbedding(id, v)
	}
	return nil
}

// AddTag tags a node. Tagging with an already-present tag succeeds as a
// no-op.
func (e *Engine) AddTag(id ident.ID, tag string) error {
	if err := e.ensureWritable(); err != nil {
		return err
	}
	if tag == "" {
		return apperr.New(apperr.KindValidation, "tag must be non-empty")
	}
	return e.store.AddTag(id, tag)
}

// RemoveTag untags a node.
func (e *Engine) RemoveTag(id ident.ID, tag string) error {
	if err := e.ensureWritable(); err != nil {
		return err
	}
	return e.store.RemoveTag(id, tag)
}

// Connect adds (or re-weights) a typed edge. Both endpoints must exist;
// neither side is mutated otherwise.
func (e *Engine) Connect(source, target ident.ID, t model.EdgeType, weight float64) error {
	if err := e.ensureWritable(); err != nil {
		return err
	}
	if _, err := e.store.Get(source); err != nil {
		return err
	}
	if _, err := e.store.Get(target); err != nil {
		return err
	}
	return e.store.Connect(source, target, t, weight)
}

// Disconnect removes a typed edge.
func (e *Engine) Disconnect(source, target ident.ID, t model.EdgeType) error {
	if err := e.ensureWritable(); err != nil {
		return err
	}
	return e.store.Disconnect(source, target, t)
}

// Forget removes a node, optionally cascading confidence reduction to its
// neighbors and rewiring inbound-outbound pairs around the gap.
func (e *Engine) Forget(id ident.ID, cascade, rewire bool, cascadeStrength float64) error {
	if err := e.ensureWritable(); err != nil {
		return err
	}
	e.entities.dropTarget(id)
	return e.pipeline.Forget(id, retrieval.ForgetOptions{
		Cascade:         cascade,
		Rewire:          rewire,
		CascadeStrength: cascadeStrength,
	})
}

// Feedback queues a confidence-affecting event against a node. magnitude
// zero uses the kind's default.
func (e *Engine) Feedback(id ident.ID, kind feedback.Kind, magnitude float64) error {
	if _, err := e.store.Get(id); err != nil {
		return err
	}
	if magnitude == 0 {
		magnitude = feedback.DefaultMagnitude(kind)
	}
	if magnitude == 0 {
		return apperr.New(apperr.KindValidation, "unknown feedback kind %q", kind)
	}
	if !e.feedback.Push(feedback.Event{ID: id, Kind: kind, Magnitude: magnitude}) {
		return apperr.New(apperr.KindCapacity, "feedback queue saturated")
	}
	return nil
}

// RegenerateEmbeddings re-embeds every live node flagged as carrying a
// zero vector. Returns how many were repaired.
func (e *Engine) RegenerateEmbeddings(ctx context.Context) (int, error) {
	if err := e.ensureWritable(); err != nil {
		return 0, err
	}
	if !e.embedder.Available() {
		return 0, apperr.New(apperr.KindEmbedder, "no embedding provider configured")
	}

	type pending struct {
		id   ident.ID
		text string
	}
	var todo []pending
	e.store.Range(func(id ident.ID, n *model.Node) {
		if n.EmbeddingFlagged && utf8.Valid(n.Payload) && len(n.Payload) > 0 {
			todo = append(todo, pending{id: id, text: n.Text()})
		}
	})

	repaired := 0
	for _, p := range todo {
		if ctx.Err() != nil {
			break
		}
		v, err := e.embedder.Embed(ctx, p.text)
		if err != nil {
			continue
		}
		if err := e.store.ApplyEmbedding(p.id, v); err == nil {
			repaired++
		}
	}
	return repaired, nil
}
