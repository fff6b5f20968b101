package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/OCAP2/indicator/internal/camera"
	"github.com/OCAP2/indicator/internal/dispatcher"
	"github.com/OCAP2/indicator/internal/markerview"
	"github.com/OCAP2/indicator/internal/settings"
	"github.com/OCAP2/indicator/pkg/core"
)

// screenCamera projects world coordinates onto themselves: X/Y are already
// pixels and Z is the depth. It sits at the viewport centre at depth zero.
type screenCamera struct {
	pos           mgl64.Vec3
	width, height float64
}

func newScreenCamera() *screenCamera {
	return &screenCamera{pos: mgl64.Vec3{960, 540, 0}, width: 1920, height: 1080}
}

func (c *screenCamera) Position() mgl64.Vec3            { return c.pos }
func (c *screenCamera) Project(w mgl64.Vec3) mgl64.Vec3 { return w }
func (c *screenCamera) Viewport() (float64, float64)    { return c.width, c.height }

type fixture struct {
	engine *Engine
	views  *markerview.Memory
	camera *screenCamera
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings() settings.Settings {
	s := settings.Default()
	s.PivotOffset = 0
	return s
}

func newFixture(t *testing.T, s settings.Settings, opts ...Option) fixture {
	t.Helper()
	f := fixture{views: markerview.NewMemory(), camera: newScreenCamera()}
	e, err := New(Dependencies{
		Camera:   f.camera,
		Factory:  f.views,
		Settings: &s,
		Logger:   quietLogger(),
	}, opts...)
	require.NoError(t, err)
	require.True(t, e.Enabled())
	t.Cleanup(e.Close)
	f.engine = e
	return f
}

func (f fixture) state(t *testing.T, id string) markerview.State {
	t.Helper()
	h, ok := f.engine.Marker(id)
	require.True(t, ok, "target %q has no marker", id)
	s, ok := f.views.Get(h)
	require.True(t, ok)
	return s
}

func TestNew_MissingCollaborators(t *testing.T) {
	s := settings.Default()
	e, err := New(Dependencies{Settings: &s, Logger: quietLogger()})

	require.ErrorIs(t, err, ErrMisconfigured)
	assert.Contains(t, err.Error(), "camera is nil")
	assert.Contains(t, err.Error(), "marker factory is nil")
	require.NotNil(t, e)
	assert.False(t, e.Enabled())

	e.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10}))
	e.Tick(time.Second)
	assert.Equal(t, 0, e.ActiveCount())
	assert.Zero(t, e.Stats().Tick)
	e.Close()
}

func TestNew_InvalidSettings(t *testing.T) {
	s := settings.Default()
	s.PoolCapacity = 0
	s.UpdateFrequency = 0
	views := markerview.NewMemory()

	e, err := New(Dependencies{
		Camera:   newScreenCamera(),
		Factory:  views,
		Settings: &s,
		Logger:   quietLogger(),
	})

	require.ErrorIs(t, err, ErrMisconfigured)
	var fe *settings.FieldError
	assert.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "PoolCapacity")
	assert.Contains(t, err.Error(), "UpdateFrequency")
	assert.False(t, e.Enabled())

	e.Tick(time.Second)
	assert.Equal(t, 0, views.Created())
}

func TestNew_SettingsAreCopied(t *testing.T) {
	s := testSettings()
	f := newFixture(t, s)
	s.MaxVisibleDistance = 1

	f.engine.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10}))
	f.engine.Tick(0)

	assert.Equal(t, 1000.0, f.engine.Settings().MaxVisibleDistance)
	assert.Equal(t, 1, f.engine.ActiveCount())
}

func TestTick_Throttle(t *testing.T) {
	var processed int
	f := newFixture(t, testSettings(), WithTickObserver(func(core.TickStats) { processed++ }))

	f.engine.Tick(0)
	assert.Equal(t, 1, processed, "first tick always runs")

	f.engine.Tick(50 * time.Millisecond)
	f.engine.Tick(49 * time.Millisecond)
	assert.Equal(t, 1, processed)

	f.engine.Tick(time.Millisecond)
	assert.Equal(t, 2, processed)

	f.engine.Tick(99 * time.Millisecond)
	assert.Equal(t, 2, processed, "accumulator restarts after a pass")

	f.engine.Tick(5 * time.Second)
	assert.Equal(t, 3, processed)
	assert.Equal(t, uint64(3), f.engine.Stats().Tick)
}

func TestRefresh_IgnoresThrottle(t *testing.T) {
	var processed int
	f := newFixture(t, testSettings(), WithTickObserver(func(core.TickStats) { processed++ }))

	f.engine.Tick(0)
	f.engine.Refresh()
	f.engine.Tick(time.Millisecond)

	assert.Equal(t, 2, processed)
}

func TestRegisterTarget_Idempotent(t *testing.T) {
	f := newFixture(t, testSettings())
	target := core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10})

	assert.True(t, f.engine.RegisterTarget(target))
	assert.False(t, f.engine.RegisterTarget(target))
	assert.False(t, f.engine.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{1, 1, 1})))
	assert.False(t, f.engine.RegisterTarget(nil))

	f.engine.Tick(0)

	assert.Equal(t, 1, f.engine.Registered())
	assert.Equal(t, 1, f.engine.ActiveCount())
	assert.Equal(t, 1, f.views.Created())
}

func TestTick_OnScreenMarker(t *testing.T) {
	f := newFixture(t, testSettings())
	f.engine.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{970, 550, 20}))

	f.engine.Tick(0)

	s := f.state(t, "a")
	assert.True(t, s.Active)
	assert.InDelta(t, 970, s.X, 1e-9)
	assert.InDelta(t, 550, s.Y, 1e-9)
	assert.Zero(t, s.Rotation)
	assert.InDelta(t, 1.0, s.Scale, 1e-9)

	stats := f.engine.Stats()
	assert.Equal(t, 1, stats.Targets)
	assert.Equal(t, 1, stats.OnScreen)
	assert.Equal(t, 1, stats.MarkersActive)
}

func TestTick_WithPerspectiveCamera(t *testing.T) {
	views := markerview.NewMemory()
	s := settings.Default()
	e, err := New(Dependencies{
		Camera:   camera.NewPerspective(1920, 1080, 90),
		Factory:  views,
		Settings: &s,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	e.RegisterTarget(core.NewStaticTarget("ahead", mgl64.Vec3{0, -2.5, -100}))
	e.RegisterTarget(core.NewStaticTarget("behind", mgl64.Vec3{0, -2.5, 100}))
	e.Tick(0)

	h, ok := e.Marker("ahead")
	require.True(t, ok)
	ahead, _ := views.Get(h)
	assert.InDelta(t, 960, ahead.X, 1e-6)
	assert.InDelta(t, 540, ahead.Y, 1e-6)
	assert.Equal(t, "100.0m", ahead.TextValue())

	h, ok = e.Marker("behind")
	require.True(t, ok)
	behind, _ := views.Get(h)
	assert.InDelta(t, 960, behind.X, 1e-6)
	assert.InDelta(t, 50, behind.Y, 1e-6)
	assert.Equal(t, 1, e.Stats().BehindCamera)
}

func TestTick_PivotOffsetRaisesProjection(t *testing.T) {
	s := testSettings()
	s.PivotOffset = 2.5
	f := newFixture(t, s)
	f.engine.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{960, 500, 10}))

	f.engine.Tick(0)

	assert.InDelta(t, 502.5, f.state(t, "a").Y, 1e-9)
}

func TestTick_MarkerFollowsTarget(t *testing.T) {
	f := newFixture(t, testSettings())
	target := core.NewStaticTarget("a", mgl64.Vec3{100, 100, 10})
	f.engine.RegisterTarget(target)
	f.engine.Tick(0)
	h, _ := f.engine.Marker("a")

	target.Pos = mgl64.Vec3{200, 300, 10}
	f.engine.Tick(time.Second)

	again, _ := f.engine.Marker("a")
	assert.Equal(t, h, again, "marker stays bound across passes")
	s := f.state(t, "a")
	assert.InDelta(t, 200, s.X, 1e-9)
	assert.InDelta(t, 300, s.Y, 1e-9)
}

func TestTick_CullingThresholdInclusive(t *testing.T) {
	f := newFixture(t, testSettings())
	edge := core.NewStaticTarget("edge", mgl64.Vec3{960, 540, 1000})
	beyond := core.NewStaticTarget("beyond", mgl64.Vec3{960, 540, 1000.001})
	f.engine.RegisterTarget(edge)
	f.engine.RegisterTarget(beyond)

	f.engine.Tick(0)

	_, ok := f.engine.Marker("edge")
	assert.True(t, ok, "distance equal to the limit is visible")
	_, ok = f.engine.Marker("beyond")
	assert.False(t, ok)
	assert.Equal(t, 1, f.engine.Stats().Culled)
}

func TestTick_CullingReleasesMarker(t *testing.T) {
	f := newFixture(t, testSettings())
	target := core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10})
	f.engine.RegisterTarget(target)
	f.engine.Tick(0)
	h, ok := f.engine.Marker("a")
	require.True(t, ok)

	target.Pos = mgl64.Vec3{960, 540, 5000}
	f.engine.Tick(time.Second)

	_, ok = f.engine.Marker("a")
	assert.False(t, ok)
	s, _ := f.views.Get(h)
	assert.False(t, s.Active)
	assert.Equal(t, 1, f.engine.Registered(), "culled targets stay registered")

	target.Pos = mgl64.Vec3{960, 540, 10}
	f.engine.Tick(time.Second)
	again, ok := f.engine.Marker("a")
	require.True(t, ok)
	assert.Equal(t, h, again, "idle marker is reused")
}

func TestTick_DistanceIgnoresDepthIn2D(t *testing.T) {
	s := testSettings()
	s.ProjectionMode = settings.Projection2D
	f := newFixture(t, s)
	f.engine.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{990, 580, 5000}))

	f.engine.Tick(0)

	assert.Equal(t, "50.0m", f.state(t, "a").TextValue())
}

func TestTick_DistanceUsesDepthIn2DWhenConfigured(t *testing.T) {
	s := testSettings()
	s.ProjectionMode = settings.Projection2D
	s.IgnoreDepthAxisIn2D = false
	f := newFixture(t, s)
	f.engine.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{990, 580, 5000}))

	f.engine.Tick(0)

	_, ok := f.engine.Marker("a")
	assert.False(t, ok)
	assert.Equal(t, 1, f.engine.Stats().Culled)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		screen mgl64.Vec3
		want   core.Classification
	}{
		{"centre", mgl64.Vec3{960, 540, 1}, core.OnScreen},
		{"left border", mgl64.Vec3{0, 540, 1}, core.OffScreen},
		{"right border", mgl64.Vec3{1920, 540, 1}, core.OffScreen},
		{"bottom border", mgl64.Vec3{960, 0, 1}, core.OffScreen},
		{"top border", mgl64.Vec3{960, 1080, 1}, core.OffScreen},
		{"just inside", mgl64.Vec3{0.5, 1079.5, 1}, core.OnScreen},
		{"outside", mgl64.Vec3{-300, 540, 1}, core.OffScreen},
		{"zero depth", mgl64.Vec3{960, 540, 0}, core.BehindCamera},
		{"behind", mgl64.Vec3{960, 540, -3}, core.BehindCamera},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.screen, 1920, 1080))
		})
	}
}

func TestTick_OffScreenClampedToEdge(t *testing.T) {
	s := testSettings()
	s.MaxVisibleDistance = 5000
	f := newFixture(t, s)
	f.engine.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{2500, 540, 10}))

	f.engine.Tick(0)

	st := f.state(t, "a")
	assert.InDelta(t, 1870, st.X, 1e-6)
	assert.InDelta(t, 540, st.Y, 1e-6)
	assert.Equal(t, 1, f.engine.Stats().OffScreen)
}

func TestTick_BehindCameraClampedToBottom(t *testing.T) {
	f := newFixture(t, testSettings())
	f.engine.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{960, 540, -5}))

	f.engine.Tick(0)

	s := f.state(t, "a")
	assert.InDelta(t, 960, s.X, 1e-6)
	assert.InDelta(t, 50, s.Y, 1e-6)
	assert.Equal(t, 1, f.engine.Stats().BehindCamera)
}

func TestTick_OffScreenIndicatorsDisabled(t *testing.T) {
	s := testSettings()
	s.UseOffScreenIndicators = false
	f := newFixture(t, s)
	target := core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10})
	f.engine.RegisterTarget(target)
	f.engine.Tick(0)
	h, ok := f.engine.Marker("a")
	require.True(t, ok)

	target.Pos = mgl64.Vec3{0, 540, 10}
	f.engine.Tick(time.Second)

	_, ok = f.engine.Marker("a")
	assert.False(t, ok, "border pixel is off-screen")
	st, _ := f.views.Get(h)
	assert.False(t, st.Active)
	assert.Equal(t, 1, f.engine.Stats().Hidden)
}

func TestTick_ScaledToZeroStaysBound(t *testing.T) {
	s := testSettings()
	s.MinScaleFactor = 0
	f := newFixture(t, s)
	f.engine.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{960, 540, 500}))

	f.engine.Tick(0)

	st := f.state(t, "a")
	assert.True(t, st.Active)
	assert.Zero(t, st.Scale)
	assert.Nil(t, st.Text)
}

func TestTick_PoolExhaustion(t *testing.T) {
	s := testSettings()
	s.PoolCapacity = 2
	f := newFixture(t, s)
	for _, id := range []string{"a", "b", "c"} {
		f.engine.RegisterTarget(core.NewStaticTarget(id, mgl64.Vec3{960, 540, 10}))
	}

	f.engine.Tick(0)

	assert.Equal(t, 2, f.engine.ActiveCount())
	assert.Len(t, f.views.ActiveMarkers(), 2)
	assert.Equal(t, 2, f.views.Created())
	_, ok := f.engine.Marker("c")
	assert.False(t, ok)
	assert.Equal(t, 1, f.engine.Stats().Dropped)

	f.engine.UnregisterTarget(core.NewStaticTarget("a", mgl64.Vec3{}))
	f.engine.Tick(time.Second)

	_, ok = f.engine.Marker("c")
	assert.True(t, ok, "freed marker goes to the waiting target")
	assert.Zero(t, f.engine.Stats().Dropped)
	assert.Equal(t, 2, f.views.Created())
}

func TestTick_MarkerFreedLaterInPassIsReused(t *testing.T) {
	s := testSettings()
	s.PoolCapacity = 1
	f := newFixture(t, s)
	a := core.NewStaticTarget("a", mgl64.Vec3{960, 540, 5000})
	b := core.NewStaticTarget("b", mgl64.Vec3{960, 540, 10})
	f.engine.RegisterTarget(a)
	f.engine.RegisterTarget(b)

	f.engine.Tick(0)
	hb, ok := f.engine.Marker("b")
	require.True(t, ok)

	a.Pos, b.Pos = b.Pos, a.Pos
	f.engine.Tick(time.Second)

	ha, ok := f.engine.Marker("a")
	require.True(t, ok, "a takes the marker b released in the same pass")
	assert.Equal(t, hb, ha)
	_, ok = f.engine.Marker("b")
	assert.False(t, ok)

	stats := f.engine.Stats()
	assert.Zero(t, stats.Dropped)
	assert.Equal(t, 1, stats.Culled)
	assert.Equal(t, 1, stats.MarkersActive)
	assert.Zero(t, stats.PoolIdle)
	assert.Equal(t, 1, f.views.Created())
	assert.True(t, f.state(t, "a").Active)
}

func TestTick_PoolGrowsWhenConfigured(t *testing.T) {
	s := testSettings()
	s.PoolCapacity = 1
	s.PoolPolicy = settings.PoolGrow
	f := newFixture(t, s)
	for _, id := range []string{"a", "b", "c"} {
		f.engine.RegisterTarget(core.NewStaticTarget(id, mgl64.Vec3{960, 540, 10}))
	}

	f.engine.Tick(0)

	assert.Equal(t, 3, f.engine.ActiveCount())
	assert.Zero(t, f.engine.Stats().Dropped)
}

func TestTick_PrunesInvalidTargets(t *testing.T) {
	f := newFixture(t, testSettings())
	target := core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10})
	f.engine.RegisterTarget(target)
	f.engine.Tick(0)
	h, _ := f.engine.Marker("a")

	target.Alive = false
	f.engine.Tick(time.Second)

	assert.Equal(t, 0, f.engine.Registered())
	assert.Equal(t, 0, f.engine.ActiveCount())
	assert.Equal(t, 1, f.engine.Stats().Pruned)
	s, _ := f.views.Get(h)
	assert.False(t, s.Active)
}

func TestUnregisterTarget_ReleasesSynchronously(t *testing.T) {
	f := newFixture(t, testSettings())
	target := core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10})
	f.engine.RegisterTarget(target)
	f.engine.Tick(0)
	h, _ := f.engine.Marker("a")

	assert.True(t, f.engine.UnregisterTarget(target))

	s, _ := f.views.Get(h)
	assert.False(t, s.Active, "released before the next tick")
	assert.Equal(t, 0, f.engine.ActiveCount())
	assert.False(t, f.engine.UnregisterTarget(target))
	assert.False(t, f.engine.UnregisterTarget(nil))
}

func TestListener_EnableDisable(t *testing.T) {
	f := newFixture(t, testSettings())
	var l core.TargetListener = f.engine
	target := core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10})

	l.OnTargetEnabled(target)
	f.engine.Tick(0)
	assert.Equal(t, 1, f.engine.ActiveCount())

	l.OnTargetDisabled(target)
	assert.Equal(t, 0, f.engine.Registered())
	assert.Equal(t, 0, f.engine.ActiveCount())
}

func TestWithInbox_PumpedBeforePass(t *testing.T) {
	d, err := dispatcher.New(quietLogger())
	require.NoError(t, err)

	views := markerview.NewMemory()
	s := testSettings()
	e, err := New(Dependencies{
		Camera:   newScreenCamera(),
		Factory:  views,
		Settings: &s,
		Logger:   quietLogger(),
	}, WithInbox(d))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	dispatcher.BindListener(d, e)

	target := core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10})
	require.NoError(t, d.Enable(target))
	assert.Equal(t, 0, e.Registered(), "nothing applied before the tick")

	e.Tick(0)
	assert.Equal(t, 1, e.ActiveCount())
	assert.Zero(t, d.Pending())

	require.NoError(t, d.Disable(target))
	e.Tick(time.Millisecond)
	assert.Equal(t, 0, e.Registered(), "inbox drains even on throttled ticks")
	assert.Equal(t, 0, e.ActiveCount())
}

func TestBookkeeping_StrictPanics(t *testing.T) {
	f := newFixture(t, testSettings(), WithStrictBookkeeping())
	target := core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10})
	f.engine.RegisterTarget(target)
	f.engine.Tick(0)
	h, _ := f.engine.Marker("a")
	require.NoError(t, f.engine.pool.Release(h))

	assert.Panics(t, func() { f.engine.UnregisterTarget(target) })
}

func TestBookkeeping_LenientLogs(t *testing.T) {
	f := newFixture(t, testSettings())
	target := core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10})
	f.engine.RegisterTarget(target)
	f.engine.Tick(0)
	h, _ := f.engine.Marker("a")
	require.NoError(t, f.engine.pool.Release(h))

	assert.NotPanics(t, func() { f.engine.UnregisterTarget(target) })
	assert.Equal(t, 0, f.engine.ActiveCount())
}

func TestClose(t *testing.T) {
	f := newFixture(t, testSettings())
	f.engine.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10}))
	f.engine.RegisterTarget(core.NewStaticTarget("b", mgl64.Vec3{960, 540, 20}))
	f.engine.Tick(0)
	require.Equal(t, 2, f.views.Live())

	f.engine.Close()

	assert.False(t, f.engine.Enabled())
	assert.Equal(t, 0, f.views.Live())
	assert.Equal(t, 0, f.engine.Registered())
	assert.NotPanics(t, f.engine.Close)

	f.engine.RegisterTarget(core.NewStaticTarget("c", mgl64.Vec3{960, 540, 10}))
	f.engine.Tick(time.Second)
	assert.Equal(t, 2, f.views.Created())
}

func TestTick_StatsAndClock(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(2 * time.Millisecond)
		return now
	}
	var observed []core.TickStats
	f := newFixture(t, testSettings(),
		WithClock(clock),
		WithTickObserver(func(s core.TickStats) { observed = append(observed, s) }),
	)
	f.engine.RegisterTarget(core.NewStaticTarget("on", mgl64.Vec3{960, 540, 10}))
	f.engine.RegisterTarget(core.NewStaticTarget("off", mgl64.Vec3{-20, 540, 10}))
	f.engine.RegisterTarget(core.NewStaticTarget("far", mgl64.Vec3{960, 540, 9000}))

	f.engine.Tick(0)

	require.Len(t, observed, 1)
	s := observed[0]
	assert.Equal(t, uint64(1), s.Tick)
	assert.Equal(t, 2*time.Millisecond, s.Duration)
	assert.Equal(t, 3, s.Targets)
	assert.Equal(t, 1, s.OnScreen)
	assert.Equal(t, 1, s.OffScreen)
	assert.Equal(t, 1, s.Culled)
	assert.Equal(t, 2, s.MarkersActive)
	assert.Equal(t, s, f.engine.Stats())
}

func TestLogAttrs(t *testing.T) {
	f := newFixture(t, testSettings())
	f.engine.RegisterTarget(core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10}))
	f.engine.Tick(0)

	attrs := f.engine.LogAttrs()
	require.Len(t, attrs, 3)
	assert.Equal(t, "tick", attrs[0].Key)
	assert.Equal(t, uint64(1), attrs[0].Value.Uint64())
	assert.Equal(t, int64(1), attrs[2].Value.Int64())
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	f := newFixture(t, testSettings(), WithMeter(provider.Meter("test")))
	target := core.NewStaticTarget("a", mgl64.Vec3{960, 540, 10})
	f.engine.RegisterTarget(target)
	f.engine.Tick(0)
	f.engine.Tick(time.Millisecond)
	target.Alive = false
	f.engine.Tick(time.Second)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.Equal(t, int64(2), sumValue(t, rm, "engine.ticks.processed"))
	assert.Equal(t, int64(1), sumValue(t, rm, "engine.ticks.skipped"))
	assert.Equal(t, int64(1), sumValue(t, rm, "engine.targets.pruned"))
	assert.Equal(t, int64(1), sumValue(t, rm, "pool.markers.created"))

	hist, ok := findMetric(t, rm, "engine.tick.duration").Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
}

func findMetric(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %q not collected", name)
	return metricdata.Metrics{}
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	sum, ok := findMetric(t, rm, name).Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %q is not an int64 sum", name)
	require.Len(t, sum.DataPoints, 1)
	return sum.DataPoints[0].Value
}
