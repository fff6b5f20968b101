package engine

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCAP2/indicator/internal/presenter"
	"github.com/OCAP2/indicator/internal/settings"
	"github.com/OCAP2/indicator/pkg/core"
)

// Tick advances the engine by dt. The first tick after New is always
// processed; after that a pass runs once at least UpdateFrequency of
// accumulated time has elapsed, and the accumulator restarts from zero.
func (e *Engine) Tick(dt time.Duration) {
	if !e.enabled {
		return
	}
	if e.opts.inbox != nil {
		e.opts.inbox.Pump()
	}

	if e.primed {
		e.elapsed += dt
		if e.elapsed < e.settings.UpdateFrequency {
			e.metrics.skipped.Add(context.Background(), 1)
			return
		}
	}
	e.primed = true
	e.elapsed = 0
	e.process()
}

// Refresh runs a pass immediately, ignoring the throttle.
func (e *Engine) Refresh() {
	if !e.enabled {
		return
	}
	if e.opts.inbox != nil {
		e.opts.inbox.Pump()
	}
	e.primed = true
	e.elapsed = 0
	e.process()
}

// visible is a target that survived the cull and classification phase of
// a pass and is waiting for its marker.
type visible struct {
	id    string
	input presenter.Input
}

// process runs one pass in two phases. The first decides every target and
// releases the markers of those no longer shown; the second binds and
// presents the rest, so a marker freed anywhere in the pass is available
// to every visible target.
func (e *Engine) process() {
	start := e.opts.clock()
	e.tick++
	stats := core.TickStats{Tick: e.tick, Time: start}

	cameraPos := e.camera.Position()
	width, height := e.camera.Viewport()
	pivot := mgl64.Vec3{0, e.settings.PivotOffset, 0}

	shown := e.shown[:0]
	for _, t := range e.registry.Snapshot() {
		stats.Targets++
		id := t.ID()

		if !t.Valid() {
			e.unregister(id)
			stats.Pruned++
			continue
		}

		pos := t.Position()
		distance := e.distance(cameraPos, pos)
		if distance > e.settings.MaxVisibleDistance {
			e.release(id)
			stats.Culled++
			continue
		}

		screen := e.camera.Project(pos.Add(pivot))
		class := Classify(screen, width, height)
		switch class {
		case core.OnScreen:
			stats.OnScreen++
		case core.OffScreen:
			stats.OffScreen++
		case core.BehindCamera:
			stats.BehindCamera++
		}

		if class != core.OnScreen && !e.settings.UseOffScreenIndicators {
			e.release(id)
			stats.Hidden++
			continue
		}

		shown = append(shown, visible{id: id, input: presenter.Input{
			Screen:   screen,
			Class:    class,
			Width:    width,
			Height:   height,
			Distance: distance,
		}})
	}

	for _, v := range shown {
		h, ok := e.bind(v.id)
		if !ok {
			stats.Dropped++
			continue
		}
		presenter.Apply(e.factory, h, presenter.Compute(&e.settings, v.input))
	}
	clear(shown)
	e.shown = shown[:0]

	stats.MarkersActive = len(e.active)
	stats.PoolIdle = e.pool.Idle()
	stats.Duration = e.opts.clock().Sub(start)
	e.last = stats

	ctx := context.Background()
	e.metrics.processed.Add(ctx, 1)
	e.metrics.duration.Record(ctx, float64(stats.Duration)/float64(time.Millisecond))
	if stats.Pruned > 0 {
		e.metrics.pruned.Add(ctx, int64(stats.Pruned))
	}

	if e.opts.observer != nil {
		e.opts.observer(stats)
	}
}

// distance measures from the camera to the target. In 2D mode with the
// depth axis ignored only X and Y contribute.
func (e *Engine) distance(from, to mgl64.Vec3) float64 {
	if e.settings.ProjectionMode == settings.Projection2D && e.settings.IgnoreDepthAxisIn2D {
		return mgl64.Vec2{to.X() - from.X(), to.Y() - from.Y()}.Len()
	}
	return to.Sub(from).Len()
}

// Classify places a projected point relative to a width by height viewport.
// Points on the border count as off-screen.
func Classify(screen mgl64.Vec3, width, height float64) core.Classification {
	if screen.Z() <= 0 {
		return core.BehindCamera
	}
	if screen.X() > 0 && screen.X() < width && screen.Y() > 0 && screen.Y() < height {
		return core.OnScreen
	}
	return core.OffScreen
}
