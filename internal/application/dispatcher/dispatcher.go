package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/tpa-claims/internal/domain/event"
)

// ErrClosed is returned by Dispatch after Close
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher delivers claim events to subscribers after the change that
// produced them has committed. Delivery is synchronous and in subscription
// order. A failing subscriber does not stop the others.
type Dispatcher interface {
	// Subscribe registers handler for one event type under a generated name
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers handler under name, replacing any handler
	// already registered with that name for the type
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// SubscribeAll registers handler for every claim event type
	SubscribeAll(name string, handler Handler)

	// Unsubscribe removes the named handler
	Unsubscribe(eventType event.Type, name string)

	// Dispatch runs every handler of evt.Type and joins their errors
	Dispatch(ctx context.Context, evt *event.Event) error

	// Handlers returns the handler names registered for a type, in order
	Handlers(eventType event.Type) []string

	// Close makes later Dispatch calls fail with ErrClosed
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu     sync.RWMutex
	subs   map[event.Type][]subscription
	seq    int
	logger Logger
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		subs: make(map[event.Type][]subscription),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) {
	d.mu.Lock()
	d.seq++
	name := fmt.Sprintf("%s#%d", eventType, d.seq)
	d.mu.Unlock()

	d.SubscribeNamed(eventType, name, handler)
}

func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.subs[eventType]
	for i := range subs {
		if subs[i].name == name {
			subs[i].handler = handler
			return
		}
	}
	d.subs[eventType] = append(subs, subscription{name: name, handler: handler})

	if d.logger != nil {
		d.logger.Info("Event handler registered", "event_type", eventType.String(), "handler", name)
	}
}

func (d *eventDispatcher) SubscribeAll(name string, handler Handler) {
	for _, t := range claimEventTypes {
		d.SubscribeNamed(t, name, handler)
	}
}

func (d *eventDispatcher) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.subs[eventType]
	kept := subs[:0:0]
	for _, s := range subs {
		if s.name != name {
			kept = append(kept, s)
		}
	}
	d.subs[eventType] = kept
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if evt == nil {
		return errors.New("event cannot be nil")
	}
	if !evt.Type.IsValid() {
		return fmt.Errorf("unknown event type %q", evt.Type)
	}
	if d.closed.Load() {
		return ErrClosed
	}

	d.mu.RLock()
	subs := append([]subscription(nil), d.subs[evt.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := d.run(ctx, evt, s); err != nil {
			if d.logger != nil {
				d.logger.Error("Event handler failed",
					"event_type", evt.Type.String(),
					"event_id", evt.ID,
					"claim_id", evt.ClaimID,
					"handler", s.name,
					"error", err,
				)
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}

	return errors.Join(errs...)
}

func (d *eventDispatcher) Handlers(eventType event.Type) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.subs[eventType]))
	for _, s := range d.subs[eventType] {
		names = append(names, s.name)
	}
	return names
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return errors.New("dispatcher already closed")
	}
	if d.logger != nil {
		d.logger.Info("Dispatcher closed")
	}
	return nil
}

// run calls one handler, turning a panic into an error
func (d *eventDispatcher) run(ctx context.Context, evt *event.Event, s subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.handler(ctx, evt)
}
