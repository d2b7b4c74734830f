package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const defaultQueueSize = 256

// Publisher hands events to the sink off the request path. The queue is
// bounded; a full queue drops the event and counts the drop, so audit
// persistence can never block a workflow transition.
type Publisher struct {
	sink   Store
	queue  chan Event
	logger *slog.Logger

	dropped atomic.Int64
	done    sync.WaitGroup
	once    sync.Once
}

// PublisherOption configures the Publisher.
type PublisherOption func(*publisherConfig)

type publisherConfig struct {
	queueSize int
	logger    *slog.Logger
}

// WithQueueSize bounds the in-flight event queue.
func WithQueueSize(n int) PublisherOption {
	return func(c *publisherConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithPublisherLogger sets the logger used for sink failures and drops.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(c *publisherConfig) {
		c.logger = logger
	}
}

func NewPublisher(sink Store, opts ...PublisherOption) *Publisher {
	cfg := publisherConfig{queueSize: defaultQueueSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Publisher{
		sink:   sink,
		queue:  make(chan Event, cfg.queueSize),
		logger: cfg.logger,
	}
	p.done.Add(1)
	go p.drain()
	return p
}

func (p *Publisher) drain() {
	defer p.done.Done()
	for event := range p.queue {
		if err := p.sink.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"principal_id", event.PrincipalID,
			)
		}
	}
}

// Emit enqueues the event without blocking. Returns nil even on drop; the
// caller's transition has already happened and must not be unwound for audit.
func (p *Publisher) Emit(_ context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	select {
	case p.queue <- base:
	default:
		p.dropped.Add(1)
		p.logger.Warn("audit queue full, event dropped",
			"action", base.Action,
			"principal_id", base.PrincipalID,
			"dropped_total", p.dropped.Load(),
		)
	}
	return nil
}

// Dropped reports how many events were discarded on a full queue.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops intake and waits until every queued event reached the sink.
func (p *Publisher) Close() {
	p.once.Do(func() {
		close(p.queue)
		p.done.Wait()
	})
}

// List returns the recorded trail for one principal.
func (p *Publisher) List(ctx context.Context, principalID string) ([]Event, error) {
	return p.sink.ListByPrincipal(ctx, principalID)
}
