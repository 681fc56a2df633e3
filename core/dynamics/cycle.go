// Package dynamics runs the background maintenance cycle: confidence
// decay, feedback flush, wisdom synthesis, attractor discovery, pruning,
// tier rebalancing, and periodic checkpoints, in that fixed order. One
// cycle is one Run call; RunEvery drives Run on a schedule until the
// context is cancelled.
package dynamics

import (
	"context"
	"time"

	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"github.com/rs/zerolog"

	"github.com/yantra-mind/memoryd/core/feedback"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/logging"
	"github.com/yantra-mind/memoryd/core/store"
)

// Summarizer produces the text of a synthesized Wisdom node from the
// payload texts of the cluster it condenses. Summarization itself is the
// caller's capability; the cycle only assembles cluster inputs and writes
// the resulting node.
type Summarizer func(texts []string) string

// Options configures one Cycle.
type Options struct {
	DecayIntervalMS      int64
	CheckpointIntervalMS int64
	PruneThreshold       float64
	KeepSnapshots        int
	Summarizer           Summarizer
}

// Cycle owns the store and feedback queue a background dynamics run
// needs. It holds no index or retrieval state of its own; every step
// reads and writes through the store.
type Cycle struct {
	store    *store.Store
	feedback *feedback.Queue
	clock    ident.Clock
	opts     Options
	log      zerolog.Logger

	lastCycleMS int64
	lastCheckMS int64
}

// New builds a Cycle over the given store and feedback queue.
func New(st *store.Store, fb *feedback.Queue, clock ident.Clock, opts Options) *Cycle {
	if opts.DecayIntervalMS <= 0 {
		opts.DecayIntervalMS = 3_600_000
	}
	if opts.CheckpointIntervalMS <= 0 {
		opts.CheckpointIntervalMS = 300_000
	}
	if opts.PruneThreshold <= 0 {
		opts.PruneThreshold = 0.1
	}
	if opts.KeepSnapshots <= 0 {
		opts.KeepSnapshots = 2
	}
	now := clock.NowMS()
	return &Cycle{
		store:       st,
		feedback:    fb,
		clock:       clock,
		opts:        opts,
		log:         logging.For("dynamics"),
		lastCycleMS: now,
		lastCheckMS: now,
	}
}

// Report summarizes what one Run did, for logging and the daemon's
// introspection surface.
type Report struct {
	Decayed           int
	FeedbackFlushed   int
	WisdomSynthesized int
	AttractorsFound   int
	Pruned            int
	Checkpointed      bool
}

// Run executes one cycle: decay, feedback flush, wisdom synthesis,
// attractor discovery, prune, tier tick, and a conditional checkpoint, in
// that fixed order. Steps are individually small so a shutdown request
// between steps is honored promptly.
func (c *Cycle) Run(ctx context.Context) Report {
	now := c.clock.NowMS()
	elapsed := now - c.lastCycleMS
	if elapsed <= 0 {
		elapsed = c.opts.DecayIntervalMS
	}

	var rep Report
	rep.Decayed = c.runDecay(now, elapsed)
	rep.FeedbackFlushed = c.runFeedbackFlush()
	if ctx.Err() == nil {
		rep.WisdomSynthesized = c.runWisdomSynthesis(now)
	}
	if ctx.Err() == nil {
		rep.AttractorsFound = len(c.FindAttractors())
	}
	rep.Pruned = c.runPrune()

	c.store.TickPolicy()

	if now-c.lastCheckMS >= c.opts.CheckpointIntervalMS {
		if err := c.store.Checkpoint(c.opts.KeepSnapshots); err != nil {
			c.log.Error().Err(err).Msg("checkpoint failed")
		} else {
			rep.Checkpointed = true
			c.lastCheckMS = now
		}
	}

	c.lastCycleMS = now
	return rep
}

// RunEvery schedules Run at the given interval and blocks until ctx is
// cancelled.
func (c *Cycle) RunEvery(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Duration(c.opts.DecayIntervalMS) * time.Millisecond
	}

	sched := quartz.NewStdScheduler()
	sched.Start(ctx)

	cycleJob := job.NewFunctionJob(func(jobCtx context.Context) (Report, error) {
		rep := c.Run(jobCtx)
		c.log.Debug().
			Int("decayed", rep.Decayed).
			Int("feedback_flushed", rep.FeedbackFlushed).
			Int("wisdom_synthesized", rep.WisdomSynthesized).
			Int("attractors", rep.AttractorsFound).
			Int("pruned", rep.Pruned).
			Bool("checkpointed", rep.Checkpointed).
			Msg("dynamics cycle complete")
		return rep, nil
	})
	detail := quartz.NewJobDetail(cycleJob, quartz.NewJobKey("dynamics-cycle"))
	if err := sched.ScheduleJob(detail, quartz.NewSimpleTrigger(interval)); err != nil {
		return err
	}

	sched.Wait(ctx)
	return nil
}
