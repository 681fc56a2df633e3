// Package session tracks the active session context — intentions, recent
// observations, goal basin — that primes retrieval: a small
// mutex-guarded rolling state with snapshot-by-copy getters.
package session

import (
	"sync"

	"github.com/x448/float16"

	"github.com/yantra-mind/memoryd/core/vector"
)

// Context is the mutable state of one active session. Observation
// vectors are held at half precision: they only ever feed the averaged
// priming vector, where quantization noise washes out.
type Context struct {
	mu sync.RWMutex

	intentions         []string
	recentObservations [][]float16.Float16
	goalBasin          vector.Vector
	realm              string

	maxObservations int
}

// New creates an empty session context. maxObservations bounds how many
// recent-observation vectors are kept for the rolling priming average.
func New(maxObservations int) *Context {
	if maxObservations <= 0 {
		maxObservations = 20
	}
	return &Context{maxObservations: maxObservations}
}

// SetIntentions replaces the active intention list.
func (c *Context) SetIntentions(intentions []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intentions = append([]string(nil), intentions...)
}

// Intentions returns a copy of the active intention list.
func (c *Context) Intentions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.intentions...)
}

// SetRealm scopes subsequent retrieval to one realm. An empty realm
// clears the scope.
func (c *Context) SetRealm(realm string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.realm = realm
}

// Realm returns the active realm scope, empty when unscoped.
func (c *Context) Realm() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.realm
}

// Observe records a new observation embedding, evicting the oldest once
// maxObservations is exceeded (a ring of recent context, not a permanent
// log — permanent storage of observations is a Node, not session state).
func (c *Context) Observe(v vector.Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recentObservations = append(c.recentObservations, vector.Compact16(v))
	if len(c.recentObservations) > c.maxObservations {
		c.recentObservations = c.recentObservations[len(c.recentObservations)-c.maxObservations:]
	}
}

// SetGoalBasin sets the centroid vector of the current goal, used as an
// additional priming component.
func (c *Context) SetGoalBasin(v vector.Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.goalBasin = v
}

// PrimingVector returns a single vector summarizing the session context
// for use as the priming reference in recall(primed=true): the mean of
// recent observations blended with the goal basin, equally weighted.
func (c *Context) PrimingVector(dim int) vector.Vector {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sum := vector.New(dim)
	count := 0
	for _, o := range c.recentObservations {
		if len(o) == dim {
			sum = sum.Add(vector.Expand16(o))
			count++
		}
	}
	if len(c.goalBasin) == dim {
		sum = sum.Add(c.goalBasin)
		count++
	}
	if count == 0 {
		return nil
	}
	return sum.Scale(1 / float32(count)).Normalize()
}
