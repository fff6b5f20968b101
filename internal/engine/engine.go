// Package engine drives the indicator overlay: once per throttled tick it
// walks the registered targets, culls and classifies them against the
// camera, binds pooled markers and hands them to the presenter.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/indicator/internal/pool"
	"github.com/OCAP2/indicator/internal/registry"
	"github.com/OCAP2/indicator/internal/settings"
	"github.com/OCAP2/indicator/pkg/core"
)

// ErrMisconfigured is wrapped by New when a collaborator is missing or the
// settings are invalid. The engine is returned disabled in that case.
var ErrMisconfigured = errors.New("indicator engine misconfigured")

// Dependencies holds the collaborators an engine is built from.
type Dependencies struct {
	Camera   core.CameraView
	Factory  core.MarkerFactory
	Settings *settings.Settings
	Logger   *slog.Logger
}

// Inbox is drained at the start of every Tick, on the tick goroutine.
// dispatcher.Dispatcher satisfies it.
type Inbox interface {
	Pump() int
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	strict   bool
	meter    metric.Meter
	inbox    Inbox
	observer func(core.TickStats)
	clock    func() time.Time
}

// WithStrictBookkeeping panics when the pool reports a double release or a
// foreign handle instead of only logging it.
func WithStrictBookkeeping() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithMeter overrides the meter used for engine and pool metrics.
func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// WithInbox drains in before every tick so registrations raised on other
// goroutines are applied on the tick goroutine.
func WithInbox(in Inbox) Option {
	return func(o *options) {
		o.inbox = in
	}
}

// WithTickObserver calls fn with the stats of every processed tick.
func WithTickObserver(fn func(core.TickStats)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithClock replaces time.Now for tick timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// Engine owns the registry, the marker pool and the active associations.
// It is single-threaded: Tick and the registration methods must be called
// from the same goroutine.
type Engine struct {
	camera   core.CameraView
	factory  core.MarkerFactory
	settings settings.Settings
	logger   *slog.Logger
	opts     options

	registry *registry.Registry
	pool     *pool.Pool
	// active maps target IDs to their bound marker
	active map[string]core.MarkerHandle
	// starved holds targets that were refused a marker, so exhaustion is
	// logged once per target rather than every tick
	starved map[string]struct{}
	// shown is scratch space reused by every pass
	shown []visible

	enabled bool
	primed  bool
	elapsed time.Duration
	tick    uint64
	last    core.TickStats

	metrics *engineMetrics
}

// New builds an engine. If a collaborator is missing or the settings fail
// validation it logs the problem, returns a disabled engine whose Tick does
// nothing, and an error wrapping ErrMisconfigured.
func New(deps Dependencies, opts ...Option) (*Engine, error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		camera:   deps.Camera,
		factory:  deps.Factory,
		logger:   logger.With("component", "indicator"),
		opts:     o,
		registry: registry.New(),
		active:   make(map[string]core.MarkerHandle),
		starved:  make(map[string]struct{}),
	}

	var problems []error
	if deps.Camera == nil {
		problems = append(problems, errors.New("camera is nil"))
	}
	if deps.Factory == nil {
		problems = append(problems, errors.New("marker factory is nil"))
	}
	if deps.Settings == nil {
		problems = append(problems, errors.New("settings are nil"))
	} else {
		e.settings = *deps.Settings
		if err := e.settings.Validate(); err != nil {
			problems = append(problems, err)
		}
	}

	if len(problems) == 0 {
		var err error
		if e.metrics, err = newEngineMetrics(o.meter); err != nil {
			problems = append(problems, err)
		}
	}

	if len(problems) == 0 {
		poolOpts := []pool.Option{
			pool.WithPolicy(e.settings.PoolPolicy),
			pool.WithLogger(e.logger),
		}
		if o.meter != nil {
			poolOpts = append(poolOpts, pool.WithMeter(o.meter))
		}
		p, err := pool.New(e.factory, e.settings.PoolCapacity, poolOpts...)
		if err != nil {
			problems = append(problems, fmt.Errorf("creating marker pool: %w", err))
		}
		e.pool = p
	}

	if len(problems) > 0 {
		err := fmt.Errorf("%w: %w", ErrMisconfigured, errors.Join(problems...))
		e.logger.Error("Indicator engine disabled", "error", err)
		return e, err
	}

	e.enabled = true
	e.logger.Debug("Indicator engine initialized",
		"updateFrequency", e.settings.UpdateFrequency,
		"projection", e.settings.ProjectionMode.String(),
		"poolCapacity", e.settings.PoolCapacity,
		"poolPolicy", e.settings.PoolPolicy.String(),
	)
	return e, nil
}

// Enabled reports whether the engine does work on Tick.
func (e *Engine) Enabled() bool {
	return e.enabled
}

// Settings returns a copy of the settings the engine runs with.
func (e *Engine) Settings() settings.Settings {
	return e.settings
}

// RegisterTarget makes t eligible for projection from the next processed
// tick on. Registering the same ID twice is a no-op and returns false.
func (e *Engine) RegisterTarget(t core.Target) bool {
	return e.registry.Register(t)
}

// UnregisterTarget removes t and releases its marker immediately.
// Unregistering an unknown target is a no-op and returns false.
func (e *Engine) UnregisterTarget(t core.Target) bool {
	if t == nil {
		return false
	}
	return e.unregister(t.ID())
}

// OnTargetEnabled implements core.TargetListener.
func (e *Engine) OnTargetEnabled(t core.Target) {
	e.RegisterTarget(t)
}

// OnTargetDisabled implements core.TargetListener.
func (e *Engine) OnTargetDisabled(t core.Target) {
	e.UnregisterTarget(t)
}

// Registered returns the number of registered targets.
func (e *Engine) Registered() int {
	return e.registry.Len()
}

// Marker returns the marker currently bound to the target ID.
func (e *Engine) Marker(id string) (core.MarkerHandle, bool) {
	h, ok := e.active[id]
	return h, ok
}

// ActiveCount returns the number of targets that currently have a marker.
func (e *Engine) ActiveCount() int {
	return len(e.active)
}

// Stats returns the stats of the last processed tick.
func (e *Engine) Stats() core.TickStats {
	return e.last
}

// LogAttrs returns attributes describing the engine state, for use as a
// logging.ContextProvider.
func (e *Engine) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Uint64("tick", e.tick),
		slog.Int("targets", e.registry.Len()),
		slog.Int("markers", len(e.active)),
	}
}

// Close releases every marker, destroys the pool and disables the engine.
// It is safe to call more than once.
func (e *Engine) Close() {
	for id := range e.active {
		e.release(id)
	}
	if e.pool != nil {
		e.pool.Dispose()
	}
	e.registry.Clear()
	clear(e.starved)
	if e.enabled {
		e.logger.Debug("Indicator engine closed", "ticks", e.tick)
	}
	e.enabled = false
}

func (e *Engine) unregister(id string) bool {
	removed := e.registry.Unregister(id)
	e.release(id)
	return removed
}

// release returns the marker bound to id, if any, to the pool.
func (e *Engine) release(id string) {
	delete(e.starved, id)
	h, ok := e.active[id]
	if !ok {
		return
	}
	delete(e.active, id)
	if err := e.pool.Release(h); err != nil {
		e.bookkeepingFailure(id, err)
	}
}

// bind returns the marker for id, acquiring one if needed.
func (e *Engine) bind(id string) (core.MarkerHandle, bool) {
	if h, ok := e.active[id]; ok {
		e.factory.SetActive(h, true)
		return h, true
	}

	h, err := e.pool.Acquire()
	if err != nil {
		if _, seen := e.starved[id]; !seen {
			e.starved[id] = struct{}{}
			if errors.Is(err, pool.ErrExhausted) {
				e.logger.Debug("No marker available, target left unindicated",
					"target", id, "capacity", e.pool.Capacity())
			} else {
				e.logger.Error("Failed to acquire marker", "target", id, "error", err)
			}
		}
		return 0, false
	}

	delete(e.starved, id)
	e.active[id] = h
	return h, true
}

func (e *Engine) bookkeepingFailure(id string, err error) {
	e.logger.Error("Marker bookkeeping violated", "target", id, "error", err)
	if e.opts.strict {
		panic(fmt.Sprintf("indicator: marker bookkeeping violated for %q: %v", id, err))
	}
}
