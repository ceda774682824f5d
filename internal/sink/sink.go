// Package sink delivers session events to the message bus without ever
// blocking a session.
package sink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"trafficgen/internal/core"
)

// Publisher delivers a batch of events to a transport.
type Publisher interface {
	Publish(ctx context.Context, events []core.Event) error
	Close() error
}

type Options struct {
	BufferSize     int
	BatchSize      int
	FlushInterval  time.Duration
	PublishTimeout time.Duration
	MaxAttempts    int
	Backoff        time.Duration // base delay between attempts, grows linearly
	Clock          core.Clock
	Logger         *zap.Logger
}

// Stats counts what happened to emitted events.
type Stats struct {
	Published int64
	Dropped   int64 // buffer full or sink closed
	Failed    int64 // publish attempts exhausted
}

// Async buffers events and publishes them in batches from one goroutine.
// Emit never blocks: when the buffer is full the event is dropped and counted.
type Async struct {
	pub  Publisher
	opts Options
	log  *zap.Logger

	ch     chan core.Event
	done   chan struct{}
	mu     sync.RWMutex
	closed bool

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// NewAsync starts the publishing goroutine. Call Close to drain the buffer
// and stop it.
func NewAsync(pub Publisher, opts Options) *Async {
	if opts.BufferSize < 1 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 100 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	a := &Async{
		pub:  pub,
		opts: opts,
		log:  opts.Logger,
		ch:   make(chan core.Event, opts.BufferSize),
		done: make(chan struct{}),
	}
	go a.loop()
	return a
}

// Emit queues e for publishing. Safe for concurrent use.
func (a *Async) Emit(e core.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return
	}
	select {
	case a.ch <- e:
	default:
		a.dropped.Add(1)
	}
}

func (a *Async) loop() {
	defer close(a.done)
	ticker := time.NewTicker(a.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]core.Event, 0, a.opts.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		a.deliver(batch)
		batch = make([]core.Event, 0, a.opts.BatchSize)
	}

	for {
		select {
		case e, ok := <-a.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, e)
			if len(batch) >= a.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (a *Async) deliver(batch []core.Event) {
	var err error
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		ctx, cancel := context.WithCancel(context.Background())
		if a.opts.PublishTimeout > 0 {
			ctx, cancel = context.WithTimeout(context.Background(), a.opts.PublishTimeout)
		}
		err = a.pub.Publish(ctx, batch)
		cancel()
		if err == nil {
			a.published.Add(int64(len(batch)))
			return
		}
		a.log.Warn("publish failed",
			zap.Int("attempt", attempt), zap.Int("max_attempts", a.opts.MaxAttempts),
			zap.Int("events", len(batch)), zap.Error(err))
		if attempt < a.opts.MaxAttempts {
			_ = a.opts.Clock.Sleep(context.Background(), time.Duration(attempt)*a.opts.Backoff)
		}
	}
	a.failed.Add(int64(len(batch)))
	a.log.Error("discarding events", zap.Int("events", len(batch)), zap.Error(err))
}

// Close stops accepting events, flushes what is buffered and closes the
// publisher. It waits for the flush until ctx is done.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-ctx.Done():
		return errors.Join(ctx.Err(), a.pub.Close())
	}
	return a.pub.Close()
}

func (a *Async) Stats() Stats {
	return Stats{
		Published: a.published.Load(),
		Dropped:   a.dropped.Load(),
		Failed:    a.failed.Load(),
	}
}

// Tee fans every event out to several sinks.
type Tee []core.EventSink

func (t Tee) Emit(e core.Event) {
	for _, s := range t {
		s.Emit(e)
	}
}
