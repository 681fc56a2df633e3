package wisdom

import (
	"math"
	"sync"

	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
	"github.com/yantra-mind/memoryd/core/store"
)

// Metrics tracks aggregate wisdom-cultivation measures over the store:
// how broad the tag vocabulary is, how densely the graph is integrated,
// and how much of memory has been condensed into Wisdom nodes. Snapshots
// accumulate so the improvement rate between cycles can be read off.
type Metrics struct {
	mu sync.RWMutex

	Breadth      float64 // distinct-tag diversity
	Integration  float64 // edge density across live nodes
	Condensation float64 // fraction of live nodes that are Wisdom

	Overall float64

	History         []Snapshot
	ImprovementRate float64
}

// Snapshot captures the metric values at one update.
type Snapshot struct {
	AtMS         int64
	Breadth      float64
	Integration  float64
	Condensation float64
	Overall      float64
}

// historyCap bounds snapshot retention.
const historyCap = 100

// NewMetrics returns an empty tracker.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Update recomputes every dimension from the store's current live set and
// appends a snapshot.
func (m *Metrics) Update(st *store.Store, nowMS int64) {
	tags := make(map[string]struct{})
	nodeCount := 0
	edgeCount := 0
	wisdomCount := 0
	st.Range(func(id ident.ID, n *model.Node) {
		nodeCount++
		edgeCount += len(n.Edges)
		if n.Kind == model.KindWisdom {
			wisdomCount++
		}
		for t := range n.Tags {
			tags[t] = struct{}{}
		}
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	if nodeCount == 0 {
		m.Breadth, m.Integration, m.Condensation, m.Overall = 0, 0, 0, 0
		return
	}

	m.Breadth = math.Min(1, float64(len(tags))/100)
	m.Integration = math.Min(1, float64(edgeCount)/float64(nodeCount)/8)
	m.Condensation = math.Min(1, float64(wisdomCount)/float64(nodeCount)*10)
	m.Overall = m.Breadth*0.3 + m.Integration*0.4 + m.Condensation*0.3

	m.History = append(m.History, Snapshot{
		AtMS:         nowMS,
		Breadth:      m.Breadth,
		Integration:  m.Integration,
		Condensation: m.Condensation,
		Overall:      m.Overall,
	})
	if len(m.History) > historyCap {
		m.History = m.History[len(m.History)-historyCap:]
	}
	if len(m.History) > 1 {
		first := m.History[0]
		last := m.History[len(m.History)-1]
		if dt := last.AtMS - first.AtMS; dt > 0 {
			m.ImprovementRate = (last.Overall - first.Overall) / (float64(dt) / 3_600_000)
		}
	}
}

// Read returns the current metric values without the history.
func (m *Metrics) Read() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var at int64
	if len(m.History) > 0 {
		at = m.History[len(m.History)-1].AtMS
	}
	return Snapshot{
		AtMS:         at,
		Breadth:      m.Breadth,
		Integration:  m.Integration,
		Condensation: m.Condensation,
		Overall:      m.Overall,
	}
}
