package engine

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

// entityRegistry maps canonical entity names to at most one node id. The
// registry itself is a cache: durable state is the Entity-kind nodes in
// the store (payload = canonical name, one Mentions edge to the linked
// node), from which rebuild reconstructs the map on startup.
type entityRegistry struct {
	mu sync.RWMutex
	// byName: canonical (lower-cased) name -> entity node id.
	byName map[string]ident.ID
}

func newEntityRegistry() *entityRegistry {
	return &entityRegistry{byName: make(map[string]ident.ID)}
}

func canonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *entityRegistry) rebuild(st interface {
	Range(func(ident.ID, *model.Node))
}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]ident.ID)
	st.Range(func(id ident.ID, n *model.Node) {
		if n.Kind == model.KindEntity {
			r.byName[canonicalName(n.Text())] = id
		}
	})
}

func (r *entityRegistry) dropTarget(id ident.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, eid := range r.byName {
		if eid == id {
			delete(r.byName, name)
		}
	}
}

// fuzzyEntityMaxDistance is the largest edit distance a fuzzy entity
// lookup tolerates.
const fuzzyEntityMaxDistance = 2

// LinkEntity binds a canonical name to a node: it creates (or reuses) an
// Entity node whose payload is the name and points a Mentions edge at
// target. A name links to at most one node; relinking moves the edge.
func (e *Engine) LinkEntity(ctx context.Context, name string, target ident.ID) (*model.Node, error) {
	if err := e.ensureWritable(); err != nil {
		return nil, err
	}
	canonical := canonicalName(name)
	if canonical == "" {
		return nil, apperr.New(apperr.KindValidation, "entity name must be non-empty")
	}
	if _, err := e.store.Get(target); err != nil {
		return nil, err
	}

	e.entities.mu.RLock()
	existingID, ok := e.entities.byName[canonical]
	e.entities.mu.RUnlock()

	if ok {
		entity, err := e.store.Get(existingID)
		if err == nil {
			for _, edge := range entity.Edges {
				if edge.Type == model.EdgeMentions && edge.Target != target {
					_ = e.store.Disconnect(existingID, edge.Target, model.EdgeMentions)
				}
			}
			if err := e.store.Connect(existingID, target, model.EdgeMentions, 1); err != nil {
				return nil, err
			}
			return entity, nil
		}
	}

	entity, err := e.Remember(ctx, RememberInput{
		Kind:    model.KindEntity,
		Payload: []byte(canonical),
		Tags:    []string{"entity"},
	})
	if err != nil {
		return nil, err
	}
	if err := e.store.Connect(entity.ID, target, model.EdgeMentions, 1); err != nil {
		return nil, err
	}
	e.entities.mu.Lock()
	e.entities.byName[canonical] = entity.ID
	e.entities.mu.Unlock()
	return entity, nil
}

// ResolveEntity returns the node linked under name. An exact canonical
// match wins; failing that, the closest registered name within a small
// edit distance is used, so minor spelling drift in triplet text still
// resolves.
func (e *Engine) ResolveEntity(name string) (*model.Node, error) {
	canonical := canonicalName(name)

	e.entities.mu.RLock()
	entityID, ok := e.entities.byName[canonical]
	if !ok {
		bestDist := fuzzyEntityMaxDistance + 1
		for registered, id := range e.entities.byName {
			if d := levenshtein.ComputeDistance(canonical, registered); d < bestDist {
				bestDist = d
				entityID = id
				ok = true
			}
		}
	}
	e.entities.mu.RUnlock()

	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "entity %q not linked", name)
	}
	entity, err := e.store.Get(entityID)
	if err != nil {
		return nil, err
	}
	for _, edge := range entity.Edges {
		if edge.Type == model.EdgeMentions {
			return e.store.Get(edge.Target)
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "entity %q has no linked node", name)
}

// ListEntities returns every registered canonical name, sorted.
func (e *Engine) ListEntities() []string {
	e.entities.mu.RLock()
	defer e.entities.mu.RUnlock()
	out := make([]string, 0, len(e.entities.byName))
	for name := range e.entities.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
