package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

// ledgerTag marks ledger nodes; ledgerNamePrefix carries the ledger's
// name as a second tag so lookup is a bitmap intersection, not a scan.
const (
	ledgerTag        = "ledger"
	ledgerNamePrefix = "ledger:"
)

// Ledger is one named session snapshot.
type Ledger struct {
	ID      ident.ID `json:"id"`
	Name    string   `json:"name"`
	Summary string   `json:"summary"`
	SavedMS int64    `json:"saved_ms"`
}

// SaveLedger stores a named session summary as an Episode node. Saving
// under an existing name adds a new generation; LoadLedger returns the
// newest.
func (e *Engine) SaveLedger(ctx context.Context, name, summary string) (*model.Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "ledger name must be non-empty")
	}
	return e.Remember(ctx, RememberInput{
		Kind:    model.KindEpisode,
		Payload: []byte(summary),
		Tags:    []string{ledgerTag, ledgerNamePrefix + name},
	})
}

// LoadLedger returns the most recently saved ledger under name.
func (e *Engine) LoadLedger(name string) (Ledger, error) {
	ids := e.store.Indices.Tags.And([]string{ledgerTag, ledgerNamePrefix + name})
	var best *model.Node
	for _, id := range ids {
		n, err := e.store.Get(id)
		if err != nil {
			continue
		}
		if best == nil || n.TauCreated > best.TauCreated {
			best = n
		}
	}
	if best == nil {
		return Ledger{}, apperr.New(apperr.KindNotFound, "ledger %q not found", name)
	}
	return Ledger{ID: best.ID, Name: name, Summary: best.Text(), SavedMS: best.TauCreated}, nil
}

// ListLedgers returns every saved ledger, newest generation per name,
// sorted by save time descending.
func (e *Engine) ListLedgers() []Ledger {
	newest := make(map[string]Ledger)
	for _, id := range e.store.Indices.Tags.Or([]string{ledgerTag}) {
		n, err := e.store.Get(id)
		if err != nil {
			continue
		}
		var name string
		for t := range n.Tags {
			if strings.HasPrefix(t, ledgerNamePrefix) {
				name = strings.TrimPrefix(t, ledgerNamePrefix)
				break
			}
		}
		if name == "" {
			continue
		}
		if prev, ok := newest[name]; !ok || n.TauCreated > prev.SavedMS {
			newest[name] = Ledger{ID: n.ID, Name: name, Summary: n.Text(), SavedMS: n.TauCreated}
		}
	}
	out := make([]Ledger, 0, len(newest))
	for _, l := range newest {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedMS > out[j].SavedMS })
	return out
}
