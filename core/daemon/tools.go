package daemon

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/engine"
	"github.com/yantra-mind/memoryd/core/feedback"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/retrieval"
	"github.com/yantra-mind/memoryd/core/vector"
)

// Tool describes one callable operation for tools/list.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolHandler executes one tool call.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// registry holds the tool table the dispatcher serves.
type registry struct {
	mu       sync.RWMutex
	tools    map[string]*Tool
	handlers map[string]ToolHandler
}

func newRegistry() *registry {
	return &registry{
		tools:    make(map[string]*Tool),
		handlers: make(map[string]ToolHandler),
	}
}

// register adds a tool and its handler, replacing any previous binding.
func (r *registry) register(tool *Tool, handler ToolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
	r.handlers[tool.Name] = handler
}

func (r *registry) handler(name string) (ToolHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

func (r *registry) list() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// schema builds a minimal JSON schema for tools/list from property-name /
// type pairs, listing required first.
func schema(required []string, props map[string]string) map[string]any {
	p := make(map[string]any, len(props))
	for name, typ := range props {
		p[name] = map[string]any{"type": typ}
	}
	return map[string]any{
		"type":       "object",
		"properties": p,
		"required":   required,
	}
}

// argument extraction helpers: JSON numbers arrive as float64, so every
// numeric accessor converts from that.

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", apperr.New(apperr.KindValidation, "missing parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", apperr.New(apperr.KindValidation, "parameter %q must be a string", key)
	}
	return s, nil
}

func argStringOr(args map[string]any, key, fallback string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return fallback
}

func argFloatOr(args map[string]any, key string, fallback float64) float64 {
	if f, ok := args[key].(float64); ok {
		return f
	}
	return fallback
}

func argIntOr(args map[string]any, key string, fallback int) int {
	if f, ok := args[key].(float64); ok {
		return int(f)
	}
	return fallback
}

func argBoolOr(args map[string]any, key string, fallback bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return fallback
}

func argStrings(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func argID(args map[string]any, key string) (ident.ID, error) {
	s, err := argString(args, key)
	if err != nil {
		return ident.ID{}, err
	}
	id, err := ident.Parse(s)
	if err != nil {
		return ident.ID{}, apperr.Wrap(apperr.KindValidation, err, "parameter %q", key)
	}
	return id, nil
}

func argVector(args map[string]any, key string) (vector.Vector, error) {
	raw, ok := args[key].([]any)
	if !ok {
		return nil, apperr.New(apperr.KindValidation, "parameter %q must be a number array", key)
	}
	v := make(vector.Vector, len(raw))
	for i, x := range raw {
		f, ok := x.(float64)
		if !ok {
			return nil, apperr.New(apperr.KindValidation, "parameter %q must be a number array", key)
		}
		v[i] = float32(f)
	}
	return v, nil
}

// nodeView is the JSON shape a node renders to in tool results.
func nodeView(n *model.Node) map[string]any {
	return map[string]any{
		"id":           n.ID.String(),
		"kind":         string(n.Kind),
		"text":         n.Text(),
		"tags":         n.TagList(),
		"confidence":   n.Confidence.Effective(),
		"epsilon":      n.Epsilon,
		"tier":         n.Tier.String(),
		"tau_created":  n.TauCreated,
		"tau_accessed": n.TauAccessed,
		"flagged":      n.EmbeddingFlagged,
	}
}

func recallView(results []retrieval.Recall) []map[string]any {
	out := make([]map[string]any, len(results))
	for i, r := range results {
		v := nodeView(r.Node)
		v["relevance"] = r.Relevance
		out[i] = v
	}
	return out
}

// registerDefaultTools binds the engine's operation surface into the
// registry.
func (d *Daemon) registerDefaultTools() {
	e := d.engine

	d.registry.register(&Tool{
		Name:        "observe",
		Description: "Store an episodic observation",
		InputSchema: schema([]string{"text"}, map[string]string{"text": "string", "tags": "array"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		text, err := argString(args, "text")
		if err != nil {
			return nil, err
		}
		n, err := e.Observe(ctx, text, argStrings(args, "tags"))
		if err != nil {
			return nil, err
		}
		return nodeView(n), nil
	})

	d.registry.register(&Tool{
		Name:        "grow",
		Description: "Grow a distilled insight, optionally connected to a parent node",
		InputSchema: schema([]string{"text"}, map[string]string{"text": "string", "tags": "array", "parent": "string", "edge_type": "string"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		text, err := argString(args, "text")
		if err != nil {
			return nil, err
		}
		var parent ident.ID
		if _, ok := args["parent"]; ok {
			parent, err = argID(args, "parent")
			if err != nil {
				return nil, err
			}
		}
		n, err := e.Grow(ctx, text, argStrings(args, "tags"), parent, model.EdgeType(argStringOr(args, "edge_type", "")))
		if err != nil {
			return nil, err
		}
		return nodeView(n), nil
	})

	d.registry.register(&Tool{
		Name:        "remember",
		Description: "Store a node of an explicit kind, optionally with a precomputed embedding",
		InputSchema: schema([]string{"kind", "text"}, map[string]string{"kind": "string", "text": "string", "tags": "array", "embedding": "array"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		kind, err := argString(args, "kind")
		if err != nil {
			return nil, err
		}
		text, err := argString(args, "text")
		if err != nil {
			return nil, err
		}
		in := engine.RememberInput{
			Kind:    model.Kind(kind),
			Payload: []byte(text),
			Tags:    argStrings(args, "tags"),
		}
		if _, ok := args["embedding"]; ok {
			v, err := argVector(args, "embedding")
			if err != nil {
				return nil, err
			}
			in.Embedding = v
		}
		n, err := e.Remember(ctx, in)
		if err != nil {
			return nil, err
		}
		return nodeView(n), nil
	})

	d.registry.register(&Tool{
		Name:        "get",
		Description: "Fetch a node by id",
		InputSchema: schema([]string{"id"}, map[string]string{"id": "string"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := argID(args, "id")
		if err != nil {
			return nil, err
		}
		n, err := e.Get(id)
		if err != nil {
			return nil, err
		}
		return nodeView(n), nil
	})

	d.registry.register(&Tool{
		Name:        "recall",
		Description: "Hybrid semantic/lexical/graph retrieval",
		InputSchema: schema([]string{"query"}, map[string]string{
			"query": "string", "limit": "number", "threshold": "number",
			"mode": "string", "zoom": "number", "tag": "string",
			"primed": "boolean", "learn": "boolean", "compete": "boolean",
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		query, err := argString(args, "query")
		if err != nil {
			return nil, err
		}
		results, err := e.Recall(ctx, query, retrieval.Options{
			Limit:     argIntOr(args, "limit", 10),
			Threshold: argFloatOr(args, "threshold", 0),
			Mode:      retrieval.Mode(argStringOr(args, "mode", string(retrieval.ModeHybrid))),
			Zoom:      argIntOr(args, "zoom", 2),
			Tag:       argStringOr(args, "tag", ""),
			Primed:    argBoolOr(args, "primed", false),
			Learn:     argBoolOr(args, "learn", false),
			Compete:   argBoolOr(args, "compete", false),
		})
		if err != nil {
			return nil, err
		}
		return recallView(results), nil
	})

	d.registry.register(&Tool{
		Name:        "resonate",
		Description: "Recall with spreading activation exposed and priming off",
		InputSchema: schema([]string{"query"}, map[string]string{
			"query": "string", "k": "number", "spread_strength": "number",
			"learn": "boolean", "hebbian_strength": "number",
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		query, err := argString(args, "query")
		if err != nil {
			return nil, err
		}
		results, err := e.Resonate(ctx, query,
			argIntOr(args, "k", 10),
			argFloatOr(args, "spread_strength", 0),
			argBoolOr(args, "learn", false),
			argFloatOr(args, "hebbian_strength", 0))
		if err != nil {
			return nil, err
		}
		return recallView(results), nil
	})

	d.registry.register(&Tool{
		Name:        "full_resonate",
		Description: "Priming + spreading + competition + Hebbian learning in one pass",
		InputSchema: schema([]string{"query"}, map[string]string{
			"query": "string", "k": "number", "spread_strength": "number",
			"hebbian_strength": "number", "exclude_tags": "array",
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		query, err := argString(args, "query")
		if err != nil {
			return nil, err
		}
		results, err := e.FullResonate(ctx, query,
			argIntOr(args, "k", 10),
			argFloatOr(args, "spread_strength", 0),
			argFloatOr(args, "hebbian_strength", 0),
			argStrings(args, "exclude_tags"))
		if err != nil {
			return nil, err
		}
		return recallView(results), nil
	})

	d.registry.register(&Tool{
		Name:        "ppr_query",
		Description: "Personalized PageRank seeded by semantic similarity to the query",
		InputSchema: schema([]string{"query"}, map[string]string{"query": "string", "k": "number", "epsilon": "number"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		query, err := argString(args, "query")
		if err != nil {
			return nil, err
		}
		results, err := e.PPRQuery(ctx, query, argIntOr(args, "k", 10), argFloatOr(args, "epsilon", 1e-4))
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, len(results))
		for i, r := range results {
			out[i] = map[string]any{"id": r.ID.String(), "mass": r.Mass}
		}
		return out, nil
	})

	d.registry.register(&Tool{
		Name:        "hawkes_timeline",
		Description: "Recency-weighted timeline of recently accessed nodes",
		InputSchema: schema(nil, map[string]string{"hours": "number", "limit": "number"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		results := e.HawkesTimeline(argIntOr(args, "hours", 24), argIntOr(args, "limit", 20))
		out := make([]map[string]any, len(results))
		for i, r := range results {
			out[i] = map[string]any{"id": r.ID.String(), "score": r.Score}
		}
		return out, nil
	})

	d.registry.register(&Tool{
		Name:        "find_causal_chains",
		Description: "Backward causal-path search from an effect node",
		InputSchema: schema([]string{"effect_id"}, map[string]string{"effect_id": "string", "max_depth": "number", "min_confidence": "number"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		effectID, err := argID(args, "effect_id")
		if err != nil {
			return nil, err
		}
		chains, err := e.FindCausalChains(effectID, argIntOr(args, "max_depth", 3), argFloatOr(args, "min_confidence", 0.5))
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, len(chains))
		for i, ch := range chains {
			path := make([]string, len(ch.Path))
			for j, id := range ch.Path {
				path[j] = id.String()
			}
			out[i] = map[string]any{"path": path, "confidence": ch.Confidence}
		}
		return out, nil
	})

	d.registry.register(&Tool{
		Name:        "lsh_find_similar",
		Description: "Near-duplicate candidates for an embedding vector",
		InputSchema: schema([]string{"vector"}, map[string]string{"vector": "array", "k": "number"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		v, err := argVector(args, "vector")
		if err != nil {
			return nil, err
		}
		results, err := e.LSHFindSimilar(v, argIntOr(args, "k", 10))
		if err != nil {
			return nil, err
		}
		return recallView(results), nil
	})

	d.registry.register(&Tool{
		Name:        "forget",
		Description: "Remove a node, optionally cascading and rewiring around the gap",
		InputSchema: schema([]string{"id"}, map[string]string{"id": "string", "cascade": "boolean", "rewire": "boolean", "cascade_strength": "number"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := argID(args, "id")
		if err != nil {
			return nil, err
		}
		if err := e.Forget(id, argBoolOr(args, "cascade", false), argBoolOr(args, "rewire", false), argFloatOr(args, "cascade_strength", 0.1)); err != nil {
			return nil, err
		}
		return map[string]any{"forgotten": id.String()}, nil
	})

	d.registry.register(&Tool{
		Name:        "connect",
		Description: "Add or re-weight a typed edge between two nodes",
		InputSchema: schema([]string{"source", "target", "type"}, map[string]string{"source": "string", "target": "string", "type": "string", "weight": "number"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		source, err := argID(args, "source")
		if err != nil {
			return nil, err
		}
		target, err := argID(args, "target")
		if err != nil {
			return nil, err
		}
		edgeType, err := argString(args, "type")
		if err != nil {
			return nil, err
		}
		if err := e.Connect(source, target, model.EdgeType(edgeType), argFloatOr(args, "weight", 0.5)); err != nil {
			return nil, err
		}
		return map[string]any{"connected": true}, nil
	})

	d.registry.register(&Tool{
		Name:        "disconnect",
		Description: "Remove a typed edge",
		InputSchema: schema([]string{"source", "target", "type"}, map[string]string{"source": "string", "target": "string", "type": "string"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		source, err := argID(args, "source")
		if err != nil {
			return nil, err
		}
		target, err := argID(args, "target")
		if err != nil {
			return nil, err
		}
		edgeType, err := argString(args, "type")
		if err != nil {
			return nil, err
		}
		if err := e.Disconnect(source, target, model.EdgeType(edgeType)); err != nil {
			return nil, err
		}
		return map[string]any{"disconnected": true}, nil
	})

	d.registry.register(&Tool{
		Name:        "update",
		Description: "Replace a node's payload text and refresh its embedding",
		InputSchema: schema([]string{"id", "text"}, map[string]string{"id": "string", "text": "string"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := argID(args, "id")
		if err != nil {
			return nil, err
		}
		text, err := argString(args, "text")
		if err != nil {
			return nil, err
		}
		if err := e.Update(ctx, id, text); err != nil {
			return nil, err
		}
		return map[string]any{"updated": id.String()}, nil
	})

	d.registry.register(&Tool{
		Name:        "add_tag",
		Description: "Tag a node",
		InputSchema: schema([]string{"id", "tag"}, map[string]string{"id": "string", "tag": "string"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := argID(args, "id")
		if err != nil {
			return nil, err
		}
		tag, err := argString(args, "tag")
		if err != nil {
			return nil, err
		}
		if err := e.AddTag(id, tag); err != nil {
			return nil, err
		}
		return map[string]any{"tagged": true}, nil
	})

	d.registry.register(&Tool{
		Name:        "remove_tag",
		Description: "Untag a node",
		InputSchema: schema([]string{"id", "tag"}, map[string]string{"id": "string", "tag": "string"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := argID(args, "id")
		if err != nil {
			return nil, err
		}
		tag, err := argString(args, "tag")
		if err != nil {
			return nil, err
		}
		if err := e.RemoveTag(id, tag); err != nil {
			return nil, err
		}
		return map[string]any{"untagged": true}, nil
	})

	d.registry.register(&Tool{
		Name:        "feedback",
		Description: "Record a confidence-affecting usage event against a node",
		InputSchema: schema([]string{"id", "kind"}, map[string]string{"id": "string", "kind": "string", "magnitude": "number"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := argID(args, "id")
		if err != nil {
			return nil, err
		}
		kind, err := argString(args, "kind")
		if err != nil {
			return nil, err
		}
		if err := e.Feedback(id, feedback.Kind(kind), argFloatOr(args, "magnitude", 0)); err != nil {
			return nil, err
		}
		return map[string]any{"recorded": true}, nil
	})

	d.registry.register(&Tool{
		Name:        "entity_link",
		Description: "Bind a canonical entity name to a node",
		InputSchema: schema([]string{"name", "target"}, map[string]string{"name": "string", "target": "string"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		name, err := argString(args, "name")
		if err != nil {
			return nil, err
		}
		target, err := argID(args, "target")
		if err != nil {
			return nil, err
		}
		entity, err := e.LinkEntity(ctx, name, target)
		if err != nil {
			return nil, err
		}
		return nodeView(entity), nil
	})

	d.registry.register(&Tool{
		Name:        "entity_resolve",
		Description: "Resolve a canonical (or close-enough) entity name to its node",
		InputSchema: schema([]string{"name"}, map[string]string{"name": "string"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		name, err := argString(args, "name")
		if err != nil {
			return nil, err
		}
		n, err := e.ResolveEntity(name)
		if err != nil {
			return nil, err
		}
		return nodeView(n), nil
	})

	d.registry.register(&Tool{
		Name:        "entity_list",
		Description: "List registered entity names",
		InputSchema: schema(nil, map[string]string{}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return e.ListEntities(), nil
	})

	d.registry.register(&Tool{
		Name:        "ledger_save",
		Description: "Save a named session summary snapshot",
		InputSchema: schema([]string{"name", "summary"}, map[string]string{"name": "string", "summary": "string"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		name, err := argString(args, "name")
		if err != nil {
			return nil, err
		}
		summary, err := argString(args, "summary")
		if err != nil {
			return nil, err
		}
		n, err := e.SaveLedger(ctx, name, summary)
		if err != nil {
			return nil, err
		}
		return nodeView(n), nil
	})

	d.registry.register(&Tool{
		Name:        "ledger_load",
		Description: "Load the newest ledger saved under a name",
		InputSchema: schema([]string{"name"}, map[string]string{"name": "string"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		name, err := argString(args, "name")
		if err != nil {
			return nil, err
		}
		return e.LoadLedger(name)
	})

	d.registry.register(&Tool{
		Name:        "ledger_list",
		Description: "List saved ledgers, newest generation per name",
		InputSchema: schema(nil, map[string]string{}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return e.ListLedgers(), nil
	})

	d.registry.register(&Tool{
		Name:        "stats",
		Description: "Store, index, health, and wisdom statistics",
		InputSchema: schema(nil, map[string]string{"fast": "boolean"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return e.Stats(argBoolOr(args, "fast", false)), nil
	})

	d.registry.register(&Tool{
		Name:        "health",
		Description: "Four-axis health score",
		InputSchema: schema(nil, map[string]string{}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		scores := e.Health()
		return map[string]any{
			"scores":   scores,
			"status":   scores.Status(),
			"critical": scores.Critical(),
		}, nil
	})

	d.registry.register(&Tool{
		Name:        "check_integrity",
		Description: "Read-only integrity verification",
		InputSchema: schema(nil, map[string]string{}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return e.CheckIntegrity(), nil
	})

	d.registry.register(&Tool{
		Name:        "repair",
		Description: "Apply integrity repairs and report what was done",
		InputSchema: schema(nil, map[string]string{}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return e.Repair(), nil
	})

	d.registry.register(&Tool{
		Name:        "regenerate_embeddings",
		Description: "Re-embed nodes stored with a flagged zero vector",
		InputSchema: schema(nil, map[string]string{}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		repaired, err := e.RegenerateEmbeddings(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"repaired": repaired}, nil
	})

	d.registry.register(&Tool{
		Name:        "run_attractor_dynamics",
		Description: "Settle attractor basins toward their attractors",
		InputSchema: schema(nil, map[string]string{"settle_strength": "number"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		moved, err := e.RunAttractorDynamics(argFloatOr(args, "settle_strength", 0.1))
		if err != nil {
			return nil, err
		}
		return map[string]any{"moved": moved}, nil
	})

	d.registry.register(&Tool{
		Name:        "run_cycle",
		Description: "Run one maintenance cycle immediately",
		InputSchema: schema(nil, map[string]string{}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return e.RunCycle(ctx)
	})

	d.registry.register(&Tool{
		Name:        "set_realm",
		Description: "Scope subsequent retrieval to one realm (empty clears)",
		InputSchema: schema(nil, map[string]string{"realm": "string"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		realm := argStringOr(args, "realm", "")
		e.Session().SetRealm(realm)
		return map[string]any{"realm": realm}, nil
	})

	d.registry.register(&Tool{
		Name:        "set_intentions",
		Description: "Replace the session's active intentions used for priming",
		InputSchema: schema([]string{"intentions"}, map[string]string{"intentions": "array"}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		intentions := argStrings(args, "intentions")
		e.Session().SetIntentions(intentions)
		return map[string]any{"intentions": len(intentions)}, nil
	})
}

// callTool looks up and executes one tool under the daemon's soft
// per-request time bound.
func (d *Daemon) callTool(ctx context.Context, name string, args map[string]any) (any, error) {
	h, ok := d.registry.handler(name)
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "tool %q not found", name)
	}
	if d.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.maxWait)
		defer cancel()
	}
	result, err := h(ctx, args)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("tool %s: %w", name, ctx.Err())
	}
	return result, nil
}
