// Package scheduler runs a fixed population of sessions with bounded
// concurrency and a staggered start.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"trafficgen/internal/core"
	"trafficgen/internal/session"
)

// Session is what the scheduler runs. *session.Session satisfies it.
type Session interface {
	ID() string
	Run(ctx context.Context) session.Result
}

// Factory builds the index-th session.
type Factory func(index int) (Session, error)

// Options configures a Scheduler.
type Options struct {
	MaxConcurrent int           // at most this many sessions run at once; < 1 means 1
	Stagger       time.Duration // delay between consecutive launches
	Sink          core.EventSink
	Clock         core.Clock
	Logger        *zap.Logger
}

// Stats is a point-in-time snapshot of the run.
type Stats struct {
	Started   int
	Completed int
	Failed    int // factory errors and panics
	Skipped   int // never launched because the run was cancelled
	Active    int
	Peak      int
}

// Scheduler launches one goroutine per user and admits at most
// MaxConcurrent of them at a time. Counters are safe to read while Run is
// in progress.
type Scheduler struct {
	sem     *semaphore.Weighted
	limit   int
	stagger time.Duration
	sink    core.EventSink
	clock   core.Clock
	log     *zap.Logger
	wg      sync.WaitGroup

	started   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
	active    atomic.Int32
	peak      atomic.Int32
}

// New creates a Scheduler. MaxConcurrent below 1 is treated as 1.
func New(opts Options) *Scheduler {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.Sink == nil {
		opts.Sink = core.NullSink
	}
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler{
		sem:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		limit:   opts.MaxConcurrent,
		stagger: opts.Stagger,
		sink:    opts.Sink,
		clock:   opts.Clock,
		log:     opts.Logger,
	}
}

// Run launches users sessions and blocks until every launched session has
// returned. Cancelling ctx stops further launches and is propagated to the
// running sessions.
func (s *Scheduler) Run(ctx context.Context, users int, factory Factory) Stats {
	s.log.Info("starting simulation",
		zap.Int("users", users), zap.Int("max_concurrent", s.limit), zap.Duration("stagger", s.stagger))

	for i := 0; i < users; i++ {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.skipped.Add(int64(users - i))
			break
		}

		sess, err := factory(i)
		if err != nil {
			s.sem.Release(1)
			s.failed.Add(1)
			s.log.Error("creating session", zap.Int("index", i), zap.Error(err))
			continue
		}

		s.started.Add(1)
		s.enter()
		s.wg.Add(1)
		go s.run(ctx, i, sess)

		if i < users-1 && s.stagger > 0 {
			if err := s.clock.Sleep(ctx, s.stagger); err != nil {
				s.skipped.Add(int64(users - i - 1))
				break
			}
		}
	}

	s.wg.Wait()
	stats := s.Stats()
	s.log.Info("simulation finished",
		zap.Int("completed", stats.Completed),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("peak_concurrency", stats.Peak))
	return stats
}

func (s *Scheduler) run(ctx context.Context, index int, sess Session) {
	defer s.wg.Done()
	defer s.sem.Release(1)
	defer s.active.Add(-1)
	defer s.recoverPanic(index, sess.ID())

	res := sess.Run(ctx)
	s.completed.Add(1)
	s.sink.Emit(core.Event{
		ActorID: sess.ID(),
		Kind:    core.KindComplete,
		Details: map[string]any{
			"index":       index,
			"final_state": string(res.FinalState),
			"ticks":       res.Ticks,
			"reason":      res.Reason,
		},
		Timestamp: s.clock.Now(),
	})
}

// recoverPanic reports a crashed session as a panic event; the rest of the
// run carries on.
func (s *Scheduler) recoverPanic(index int, actorID string) {
	if r := recover(); r != nil {
		s.failed.Add(1)
		s.log.Error("session panicked", zap.Int("index", index), zap.String("user_id", actorID), zap.Any("panic", r))
		s.sink.Emit(core.Event{
			ActorID:   actorID,
			Kind:      core.KindPanic,
			Details:   map[string]any{"index": index, "error": fmt.Sprintf("panic: %v", r)},
			Timestamp: s.clock.Now(),
		})
	}
}

func (s *Scheduler) enter() {
	n := s.active.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// Active returns the number of sessions currently running.
func (s *Scheduler) Active() int {
	return int(s.active.Load())
}

// Stats may be called while Run is in progress.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Started:   int(s.started.Load()),
		Completed: int(s.completed.Load()),
		Failed:    int(s.failed.Load()),
		Skipped:   int(s.skipped.Load()),
		Active:    int(s.active.Load()),
		Peak:      int(s.peak.Load()),
	}
}
