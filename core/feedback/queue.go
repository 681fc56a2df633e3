// Package feedback defines the confidence-affecting event types recall
// and the daemon's feedback tool record, and a queue that decouples their
// producers (request handlers) from the single writer that folds them
// into node confidence during a dynamics cycle.
package feedback

import "github.com/yantra-mind/memoryd/core/ident"

// Kind is one of the recognized feedback event types, each with a
// documented default magnitude.
type Kind string

const (
	KindUsed       Kind = "used"
	KindHelpful    Kind = "helpful"
	KindMisleading Kind = "misleading"
	KindConfirmed  Kind = "confirmed"
	KindChallenged Kind = "challenged"
)

// DefaultMagnitude returns the signed confidence-evidence magnitude each
// event kind carries by default.
func DefaultMagnitude(k Kind) float64 {
	switch k {
	case KindUsed:
		return 0.01
	case KindHelpful:
		return 0.1
	case KindMisleading:
		return -0.15
	case KindConfirmed:
		return 0.08
	case KindChallenged:
		return -0.05
	default:
		return 0
	}
}

// Event is one feedback occurrence against a node, queued for batch
// application during the next dynamics cycle.
type Event struct {
	ID        ident.ID
	Kind      Kind
	Magnitude float64
}

// Queue is a multi-producer single-consumer event buffer. Recall/daemon
// handlers push events without blocking; a single dynamics-cycle writer
// drains it. Backed by a buffered channel, the usual idiomatic Go
// approximation of a lock-free MPSC queue: sends and receives only block
// on channel internals, never on a store-wide mutex.
type Queue struct {
	ch chan Event
}

// New creates a queue with the given buffer capacity (4096 when capacity
// is not positive). A full queue never evicts queued events and never
// blocks the caller: Push rejects the new event and returns false.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// Push enqueues an event. It reports whether the event was accepted; a
// false return means the queue is saturated and the event was dropped
// rather than blocking the caller's request path.
func (q *Queue) Push(e Event) bool {
	select {
	case q.ch <- e:
		return true
	default:
		return false
	}
}

// Drain removes and returns every currently queued event without
// blocking, for the dynamics cycle's feedback-flush step.
func (q *Queue) Drain() []Event {
	var out []Event
	for {
		select {
		case e := <-q.ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
