// Package pool recycles marker views so the overlay does not create and
// destroy UI widgets every time a target enters or leaves view.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/indicator/internal/settings"
	"github.com/OCAP2/indicator/pkg/core"
)

var (
	// ErrExhausted is returned by Acquire when the pool is at capacity under
	// the drop policy.
	ErrExhausted = errors.New("marker pool exhausted")
	// ErrDoubleRelease means a handle was released while already idle.
	ErrDoubleRelease = errors.New("marker released twice")
	// ErrForeignHandle means a handle was not created by this pool.
	ErrForeignHandle = errors.New("marker not owned by pool")
	// ErrDisposed is returned once the pool has been torn down.
	ErrDisposed = errors.New("marker pool disposed")
)

// Option configures a Pool.
type Option func(*config)

type config struct {
	policy settings.PoolPolicy
	meter  metric.Meter
	logger *slog.Logger
}

// WithPolicy sets the behaviour at capacity. The default is settings.PoolDrop.
func WithPolicy(p settings.PoolPolicy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithMeter overrides the meter used for pool metrics.
func WithMeter(m metric.Meter) Option {
	return func(c *config) {
		c.meter = m
	}
}

// WithLogger sets the logger used for growth and teardown messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Pool hands out marker handles created by a core.MarkerFactory. Handles
// are deactivated on release and only destroyed by Dispose.
// A Pool is not safe for concurrent use.
type Pool struct {
	factory  core.MarkerFactory
	capacity int
	policy   settings.PoolPolicy
	logger   *slog.Logger

	idle     []core.MarkerHandle
	inUse    map[core.MarkerHandle]bool
	disposed bool

	// observed from the metrics reader goroutine
	activeCount atomic.Int64

	created      metric.Int64Counter
	dropped      metric.Int64Counter
	active       metric.Int64ObservableGauge
	registration metric.Registration
}

// New creates a pool with a soft capacity. Markers are created lazily.
func New(factory core.MarkerFactory, capacity int, opts ...Option) (*Pool, error) {
	if factory == nil {
		return nil, fmt.Errorf("marker factory is nil")
	}
	if capacity < 1 {
		return nil, fmt.Errorf("capacity must be at least 1, got %d", capacity)
	}

	cfg := &config{policy: settings.PoolDrop}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.meter == nil {
		cfg.meter = meter()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	p := &Pool{
		factory:  factory,
		capacity: capacity,
		policy:   cfg.policy,
		logger:   cfg.logger,
		idle:     make([]core.MarkerHandle, 0, capacity),
		inUse:    make(map[core.MarkerHandle]bool, capacity),
	}

	var err error
	p.created, err = cfg.meter.Int64Counter(
		"pool.markers.created",
		metric.WithDescription("Total marker views created by the factory"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating created counter: %w", err)
	}

	p.dropped, err = cfg.meter.Int64Counter(
		"pool.acquire.dropped",
		metric.WithDescription("Acquisitions refused because the pool was at capacity"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	p.active, err = cfg.meter.Int64ObservableGauge(
		"pool.markers.active",
		metric.WithDescription("Markers currently handed out"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active gauge: %w", err)
	}

	p.registration, err = cfg.meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(p.active, p.activeCount.Load())
			return nil
		},
		p.active,
	)
	if err != nil {
		return nil, fmt.Errorf("registering active callback: %w", err)
	}

	return p, nil
}

// Acquire returns an active marker, reusing an idle one when possible.
func (p *Pool) Acquire() (core.MarkerHandle, error) {
	if p.disposed {
		return 0, ErrDisposed
	}

	if n := len(p.idle); n > 0 {
		h := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.inUse[h] = true
		p.activeCount.Add(1)
		p.factory.SetActive(h, true)
		return h, nil
	}

	if len(p.inUse) >= p.capacity {
		if p.policy != settings.PoolGrow {
			p.dropped.Add(context.Background(), 1)
			return 0, ErrExhausted
		}
		p.logger.Debug("growing marker pool past capacity", "capacity", p.capacity, "created", len(p.inUse)+1)
	}

	h, err := p.factory.Create()
	if err != nil {
		return 0, fmt.Errorf("creating marker: %w", err)
	}
	if h == 0 {
		p.factory.Destroy(h)
		return 0, fmt.Errorf("factory returned unusable handle %d", h)
	}
	// a duplicate is a marker this pool already owns, so it is left alone
	if _, dup := p.inUse[h]; dup {
		return 0, fmt.Errorf("factory returned handle %d twice", h)
	}
	p.created.Add(context.Background(), 1)
	p.inUse[h] = true
	p.activeCount.Add(1)
	p.factory.SetActive(h, true)
	return h, nil
}

// Release deactivates h and makes it available to Acquire again.
func (p *Pool) Release(h core.MarkerHandle) error {
	if p.disposed {
		return ErrDisposed
	}
	active, ok := p.inUse[h]
	if !ok {
		return fmt.Errorf("release %d: %w", h, ErrForeignHandle)
	}
	if !active {
		return fmt.Errorf("release %d: %w", h, ErrDoubleRelease)
	}

	p.inUse[h] = false
	p.activeCount.Add(-1)
	p.factory.SetActive(h, false)
	p.idle = append(p.idle, h)
	return nil
}

// Dispose destroys every marker the pool ever created, idle or not.
// It is safe to call more than once.
func (p *Pool) Dispose() {
	if p.disposed {
		return
	}
	for h := range p.inUse {
		p.factory.Destroy(h)
	}
	p.logger.Debug("marker pool disposed", "destroyed", len(p.inUse))

	p.inUse = nil
	p.idle = nil
	p.disposed = true
	p.activeCount.Store(0)
	if p.registration != nil {
		_ = p.registration.Unregister()
	}
}

// Idle returns the number of markers waiting to be reused.
func (p *Pool) Idle() int {
	return len(p.idle)
}

// Active returns the number of markers currently handed out.
func (p *Pool) Active() int {
	return len(p.inUse) - len(p.idle)
}

// Created returns the number of live markers, idle plus active.
func (p *Pool) Created() int {
	return len(p.inUse)
}

// Capacity returns the soft capacity.
func (p *Pool) Capacity() int {
	return p.capacity
}
