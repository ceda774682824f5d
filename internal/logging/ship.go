package logging

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap/zapcore"

	"trafficgen/internal/pubsub"
)

// ShipSource tags every shipped record.
const ShipSource = "traffic_generator_logger"

// MessagePublisher is satisfied by *pubsub.Client.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, msgs []pubsub.Message) ([]string, error)
}

// Shipper publishes log records to the bus in the background. Records are
// dropped rather than queued without bound, and publish errors are counted,
// never logged, so a broken bus cannot feed back into the logger.
type Shipper struct {
	pub      MessagePublisher
	topic    string
	batch    int
	interval time.Duration
	timeout  time.Duration

	ch     chan pubsub.Message
	done   chan struct{}
	mu     sync.RWMutex
	closed bool

	shipped atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

type ShipperOptions struct {
	BufferSize     int
	BatchSize      int
	FlushInterval  time.Duration
	PublishTimeout time.Duration
}

func NewShipper(pub MessagePublisher, topic string, opts ShipperOptions) *Shipper {
	if opts.BufferSize < 1 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 20
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	s := &Shipper{
		pub:      pub,
		topic:    topic,
		batch:    opts.BatchSize,
		interval: opts.FlushInterval,
		timeout:  opts.PublishTimeout,
		ch:       make(chan pubsub.Message, opts.BufferSize),
		done:     make(chan struct{}),
	}
	go s.loop()
	return s
}

// Core returns a zapcore.Core that ships records at or above level.
func (s *Shipper) Core(level zapcore.LevelEnabler) zapcore.Core {
	return &shipCore{LevelEnabler: level, enc: NewEncoder("json"), s: s}
}

func (s *Shipper) enqueue(m pubsub.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.ch <- m:
	default:
		s.dropped.Add(1)
	}
}

func (s *Shipper) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var pending []pubsub.Message
	flush := func() {
		if len(pending) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if _, err := s.pub.Publish(ctx, s.topic, pending); err != nil {
			s.failed.Add(int64(len(pending)))
		} else {
			s.shipped.Add(int64(len(pending)))
		}
		cancel()
		pending = nil
	}

	for {
		select {
		case m, ok := <-s.ch:
			if !ok {
				flush()
				return
			}
			pending = append(pending, m)
			if len(pending) >= s.batch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close flushes buffered records, waiting until ctx is done.
func (s *Shipper) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Counts returns shipped, dropped and failed record totals.
func (s *Shipper) Counts() (shipped, dropped, failed int64) {
	return s.shipped.Load(), s.dropped.Load(), s.failed.Load()
}

type shipCore struct {
	zapcore.LevelEnabler
	enc zapcore.Encoder
	s   *Shipper
}

func (c *shipCore) With(fields []zapcore.Field) zapcore.Core {
	enc := c.enc.Clone()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return &shipCore{LevelEnabler: c.LevelEnabler, enc: enc, s: c.s}
}

func (c *shipCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *shipCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	buf.Free()

	c.s.enqueue(pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"source":   ShipSource,
			"loglevel": ent.Level.CapitalString(),
		},
	})
	return nil
}

func (c *shipCore) Sync() error { return nil }
