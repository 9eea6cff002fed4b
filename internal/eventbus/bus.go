// Package eventbus provides an in-process pub/sub bus for session lifecycle
// events. Publishers never block; subscribers run on a single consumer
// goroutine in publish order.
package eventbus

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Handler processes an event. Handlers are called from the consumer
// goroutine only.
type Handler interface {
	HandleEvent(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(evt Event)
}

// Bus dispatches published events to every subscriber.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan Event
	logger      *zap.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a Bus with the given channel buffer size.
func New(bufSize int, logger *zap.Logger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		events: make(chan Event, bufSize),
		logger: logger,
	}
}

// Subscribe registers a named handler.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish queues evt. If the buffer is full the event is dropped.
func (b *Bus) Publish(evt Event) {
	select {
	case b.events <- evt:
	default:
		b.logger.Warn("buffer full, dropping event",
			zap.String("type", string(evt.Type)),
			zap.String("event_id", evt.ID))
	}
}

// Run consumes events until ctx is done, then drains what is already queued.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-b.events:
			b.dispatch(ctx, evt)
		case <-ctx.Done():
			for {
				select {
				case evt := <-b.events:
					b.dispatch(context.WithoutCancel(ctx), evt)
				default:
					return nil
				}
			}
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, evt Event) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.logger.Error("handler failed",
				zap.String("handler", s.name),
				zap.String("type", string(evt.Type)),
				zap.Error(err))
		}
	}
}
