package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AsyncPublisher buffers events on a channel and fans them out to sinks from
// a background worker. Close drains the buffer before returning so shutdown
// never drops accepted events.
type AsyncPublisher struct {
	sinks  []Sink
	logger *slog.Logger

	inbox chan Event
	done  chan struct{}
	once  sync.Once
}

// PublisherOption configures an AsyncPublisher.
type PublisherOption func(*AsyncPublisher)

// WithLogger sets the logger used for sink failures.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *AsyncPublisher) {
		p.logger = logger
	}
}

// WithBuffer overrides the inbox buffer size.
func WithBuffer(n int) PublisherOption {
	return func(p *AsyncPublisher) {
		if n > 0 {
			p.inbox = make(chan Event, n)
		}
	}
}

// NewAsyncPublisher starts a publisher fanning out to the given sinks.
func NewAsyncPublisher(sinks []Sink, opts ...PublisherOption) *AsyncPublisher {
	p := &AsyncPublisher{
		sinks: sinks,
		inbox: make(chan Event, 256),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

// Emit enqueues an event. When the buffer is full the event is written
// synchronously instead of being dropped.
func (p *AsyncPublisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		p.write(ctx, event)
	}
}

// Close stops the worker after draining buffered events.
func (p *AsyncPublisher) Close() {
	p.once.Do(func() {
		close(p.inbox)
		<-p.done
	})
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		p.write(context.Background(), event)
	}
}

func (p *AsyncPublisher) write(ctx context.Context, event Event) {
	for _, sink := range p.sinks {
		if err := sink.Write(ctx, event); err != nil && p.logger != nil {
			p.logger.WarnContext(ctx, "audit sink write failed",
				"event", string(event.Type),
				"account_id", event.AccountID,
				"error", err.Error(),
			)
		}
	}
}
