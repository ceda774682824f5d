// Package collector keeps the events of a run in memory and summarizes them
// for the end-of-run report.
package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"trafficgen/internal/core"
)

// Collector is an EventSink that records every event it receives.
type Collector struct {
	events    []core.Event
	ch        chan core.Event
	done      chan struct{}
	mu        sync.Mutex
	state     sync.RWMutex // guards closed against concurrent Emit
	closed    bool
	dropped   atomic.Int64
	startTime time.Time
	endTime   time.Time
}

// NewCollector creates a Collector and starts its collection goroutine.
func NewCollector() *Collector {
	c := &Collector{
		events:    make([]core.Event, 0),
		ch:        make(chan core.Event, 4096),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	go c.collect()
	return c
}

func (c *Collector) collect() {
	for event := range c.ch {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	}
	close(c.done)
}

// Emit records an event. It never blocks; events that do not fit in the
// buffer are counted as dropped.
func (c *Collector) Emit(event core.Event) {
	c.state.RLock()
	defer c.state.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.ch <- event:
	default:
		c.dropped.Add(1)
	}
}

// Close stops collection and waits for buffered events to be stored.
func (c *Collector) Close() {
	c.state.Lock()
	if c.closed {
		c.state.Unlock()
		return
	}
	c.closed = true
	close(c.ch)
	c.state.Unlock()

	<-c.done
	c.mu.Lock()
	c.endTime = time.Now()
	c.mu.Unlock()
}

// Events returns a copy of collected events.
func (c *Collector) Events() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]core.Event, len(c.events))
	copy(result, c.events)
	return result
}

// Dropped returns how many events did not fit in the buffer.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Duration returns the run duration: start to Close, or start to now while
// still collecting.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	end := c.endTime
	c.mu.Unlock()
	if !end.IsZero() {
		return end.Sub(c.startTime)
	}
	return time.Since(c.startTime)
}

// Summary summarizes what has been collected so far.
func (c *Collector) Summary() *Summary {
	return Summarize(c.Events(), c.Duration())
}
