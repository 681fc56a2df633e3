package retrieval

import "context"

// Resonate is recall with priming off and the spreading strength exposed:
// the "semantic + graph" convenience mode. learn turns on Hebbian
// strengthening with the given delta (zero keeps the default).
func (p *Pipeline) Resonate(ctx context.Context, query string, k int, spreadStrength float64, learn bool, hebbianDelta float64) ([]Recall, error) {
	return p.Recall(ctx, query, Options{
		Limit:          k,
		Mode:           ModeHybrid,
		Primed:         false,
		Learn:          learn,
		SpreadStrength: spreadStrength,
		HebbianDelta:   hebbianDelta,
	})
}

// FullResonate runs the whole pipeline at once: priming, spreading
// activation, lateral inhibition, and Hebbian strengthening, with results
// carrying any tag in excludeTags filtered out.
func (p *Pipeline) FullResonate(ctx context.Context, query string, k int, spreadStrength, hebbianDelta float64, excludeTags []string) ([]Recall, error) {
	return p.Recall(ctx, query, Options{
		Limit:          k,
		Mode:           ModeHybrid,
		Primed:         true,
		Learn:          true,
		Compete:        true,
		SpreadStrength: spreadStrength,
		HebbianDelta:   hebbianDelta,
		ExcludeTags:    excludeTags,
	})
}
