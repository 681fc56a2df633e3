// Package engine wires the tiered store, indices, retrieval pipeline,
// background dynamics, session context, and health machinery into the
// typed operation surface the daemon and CLI call. One Engine owns one
// store.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/config"
	"github.com/yantra-mind/memoryd/core/dynamics"
	"github.com/yantra-mind/memoryd/core/embedding"
	"github.com/yantra-mind/memoryd/core/feedback"
	"github.com/yantra-mind/memoryd/core/health"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/logging"
	"github.com/yantra-mind/memoryd/core/retrieval"
	"github.com/yantra-mind/memoryd/core/session"
	"github.com/yantra-mind/memoryd/core/store"
	"github.com/yantra-mind/memoryd/core/symbols"
	"github.com/yantra-mind/memoryd/core/wisdom"
)

// defaultDim is the embedding dimension used when no provider is
// configured to report one.
const defaultDim = 384

// Engine is the memory engine: every public operation the daemon's tool
// surface and the CLI expose goes through it.
type Engine struct {
	cfg   config.Config
	clock ident.Clock
	log   zerolog.Logger

	store     *store.Store
	embedder  *embedding.Embedder
	extractor symbols.Extractor
	session   *session.Context
	feedback  *feedback.Queue
	pipeline  *retrieval.Pipeline
	cycle     *dynamics.Cycle
	checker   *health.Checker
	metrics   *wisdom.Metrics

	entities *entityRegistry

	readOnly     atomic.Bool
	lastBackupMS atomic.Int64

	runMu  sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// Options carries the injected collaborators an Engine cannot construct
// itself: the embedding provider, the symbol extractor, and the wisdom
// summarizer. Any of them may be nil; the engine degrades as documented
// (zero-vector embeddings, no Symbol nodes, no wisdom synthesis).
type Options struct {
	Provider   embedding.Provider
	Extractor  symbols.Extractor
	Summarizer dynamics.Summarizer
	Clock      ident.Clock
}

// New opens (or recovers) the store at cfg.StorePath and assembles the
// engine around it. The returned engine is ready for operations; call
// Start to launch background dynamics.
func New(cfg config.Config, opts Options) (*Engine, error) {
	clock := opts.Clock
	if clock == nil {
		clock = ident.NewSystemClock()
	}

	dim := defaultDim
	if opts.Provider != nil {
		dim = opts.Provider.Dim()
	}

	st, err := store.Open(cfg.StorePath, store.Options{
		Dim:          dim,
		HotCapacity:  cfg.HotCapacity,
		WarmCapacity: cfg.WarmCapacity,
		SkipBM25:     cfg.SkipBM25,
	})
	if err != nil {
		return nil, err
	}

	extractor := opts.Extractor
	if extractor == nil {
		extractor = symbols.NullExtractor{}
	}

	emb := embedding.New(opts.Provider, time.Duration(cfg.MaxWaitSeconds)*time.Second)
	sess := session.New(0)
	fb := feedback.New(0)

	e := &Engine{
		cfg:       cfg,
		clock:     clock,
		log:       logging.For("engine"),
		store:     st,
		embedder:  emb,
		extractor: extractor,
		session:   sess,
		feedback:  fb,
		pipeline:  retrieval.New(st, emb, sess, fb, clock),
		checker:   health.NewChecker(st),
		metrics:   wisdom.NewMetrics(),
		entities:  newEntityRegistry(),
	}
	e.cycle = dynamics.New(st, fb, clock, dynamics.Options{
		DecayIntervalMS:      cfg.DecayIntervalMS,
		CheckpointIntervalMS: cfg.CheckpointIntervalMS,
		PruneThreshold:       cfg.PruneThreshold,
		Summarizer:           opts.Summarizer,
	})
	e.lastBackupMS.Store(clock.NowMS())
	e.entities.rebuild(st)
	return e, nil
}

// Start launches the background dynamics cycle and the health sweep.
// It returns immediately; Stop shuts both down and persists state.
func (e *Engine) Start(ctx context.Context) {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	g, runCtx := errgroup.WithContext(runCtx)
	e.cancel = cancel
	e.group = g

	interval := time.Duration(e.cfg.DecayIntervalMS) * time.Millisecond
	g.Go(func() error {
		return e.cycle.RunEvery(runCtx, interval)
	})
	g.Go(func() error {
		e.healthSweep(runCtx)
		return nil
	})
}

// Stop cancels background work, writes a final checkpoint, and closes the
// store. Safe to call once after Start; also usable without Start to
// close an engine that never ran background dynamics.
func (e *Engine) Stop() error {
	e.runMu.Lock()
	if e.cancel != nil {
		e.cancel()
		_ = e.group.Wait()
		e.cancel = nil
		e.group = nil
	}
	e.runMu.Unlock()

	if err := e.store.Checkpoint(0); err != nil {
		e.log.Error().Err(err).Msg("final checkpoint failed")
	}
	return e.store.Close()
}

// healthSweep periodically evaluates health, repairs when the score
// demands it, and takes routine backups when due.
func (e *Engine) healthSweep(ctx context.Context) {
	interval := time.Duration(e.cfg.CheckpointIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweepOnce()
		}
	}
}

func (e *Engine) sweepOnce() {
	now := e.clock.NowMS()
	hotCap, warmCap := e.store.Capacities()
	scores := health.Evaluate(e.store, now, hotCap, warmCap)

	switch scores.Status() {
	case health.StatusForceRepair:
		rep := e.checker.Repair(0)
		e.log.Warn().
			Int("edges_dropped", rep.EdgesDropped).
			Bool("indices_rebuilt", rep.IndicesRebuilt).
			Int("quarantined", len(rep.Quarantined)).
			Msg("forced repair applied")
	case health.StatusEmergency:
		e.readOnly.Store(true)
		e.log.Error().Float64("ojas", scores.Overall).Msg("entering read-only mode")
	default:
		if e.readOnly.Load() && !scores.Critical() {
			e.readOnly.Store(false)
			e.log.Info().Msg("leaving read-only mode")
		}
	}

	if scores.NeedsBackup(e.lastBackupMS.Load(), now) {
		if err := e.store.Checkpoint(0); err == nil {
			e.lastBackupMS.Store(now)
		}
	}

	e.metrics.Update(e.store, now)
}

// ReadOnly reports whether the engine is refusing mutators.
func (e *Engine) ReadOnly() bool {
	return e.readOnly.Load()
}

// ensureWritable rejects mutating operations while in emergency
// read-only mode.
func (e *Engine) ensureWritable() error {
	if e.readOnly.Load() {
		return apperr.New(apperr.KindStore, "store is read-only pending repair")
	}
	return nil
}

// Store exposes the underlying store for introspection. Callers must not
// bypass the engine for mutations.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Session exposes the session context used for priming.
func (e *Engine) Session() *session.Context {
	return e.session
}

// Clock exposes the engine's time source.
func (e *Engine) Clock() ident.Clock {
	return e.clock
}
