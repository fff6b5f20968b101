package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/indicator/internal/queue"
	"github.com/OCAP2/indicator/pkg/core"
)

// Target lifecycle events raised by the owners of points of interest.
const (
	EventTargetEnabled  = ":TARGET:ENABLED:"
	EventTargetDisabled = ":TARGET:DISABLED:"
)

// Event is a notification about a target.
type Event struct {
	Name      string
	Target    core.Target
	Timestamp time.Time
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	deferred bool
	logged   bool
}

// Deferred queues the event and runs the handler on the next Pump instead
// of on the dispatching goroutine.
func Deferred() Option {
	return func(c *config) {
		c.deferred = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type pending struct {
	event   Event
	handler HandlerFunc
}

// Dispatcher routes events to registered handlers. Dispatch may be called
// from any goroutine; deferred handlers only ever run inside Pump.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   Logger
	inbox    *queue.Queue[pending]

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
		inbox:    queue.New[pending](),
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Events waiting for the next pump"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.queueSize, int64(d.inbox.Len()))
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given event name with optional configuration.
func (d *Dispatcher) Register(name string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(name, handler)
	}

	if cfg.deferred {
		handler = d.withDeferral(handler)
	}

	d.mu.Lock()
	d.handlers[name] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) error {
	d.mu.RLock()
	h, ok := d.handlers[e.Name]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown event: %s", e.Name)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the event name.
func (d *Dispatcher) HasHandler(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[name]
	return ok
}

// Pump runs every deferred event queued so far, in arrival order, on the
// calling goroutine. It returns the number of events handled.
func (d *Dispatcher) Pump() int {
	batch := d.inbox.Drain()
	for _, p := range batch {
		d.run(p.event, p.handler)
	}
	return len(batch)
}

// Pending returns the number of deferred events waiting for Pump.
func (d *Dispatcher) Pending() int {
	return d.inbox.Len()
}

func (d *Dispatcher) run(e Event, h HandlerFunc) error {
	attrs := metric.WithAttributes(attribute.String("event", e.Name))
	err := h(e)
	d.processed.Add(context.Background(), 1, attrs)
	if err != nil {
		d.failed.Add(context.Background(), 1, attrs)
	}
	return err
}

func (d *Dispatcher) withDeferral(h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		d.inbox.Push(pending{event: e, handler: func(e Event) error {
			if err := h(e); err != nil {
				d.logger.Error("deferred event failed", "event", e.Name, "error", err)
				return err
			}
			return nil
		}})
		return nil
	}
}

func (d *Dispatcher) withLogging(name string, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		id := ""
		if e.Target != nil {
			id = e.Target.ID()
		}
		d.logger.Debug("handling event", "event", name, "target", id)

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "event", name, "target", id, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "event", name, "target", id, "duration", time.Since(start))
		}

		return err
	}
}
