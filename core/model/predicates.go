package model

// Pinned reports whether nodes of this kind are exempt from pruning
// regardless of effective confidence.
func Pinned(k Kind) bool {
	switch k {
	case KindBelief, KindInvariant, KindIntention:
		return true
	default:
		return false
	}
}

// Decayable reports whether nodes of this kind participate in confidence
// decay. All kinds decay by default; this predicate exists so future
// kind-specific exemptions have a single place to live.
func Decayable(k Kind) bool {
	return true
}

// Synthesizable reports whether nodes of this kind are eligible inputs to
// wisdom synthesis clustering. Wisdom nodes themselves
// are excluded to avoid synthesizing summaries of summaries.
func Synthesizable(k Kind) bool {
	return k != KindWisdom
}
