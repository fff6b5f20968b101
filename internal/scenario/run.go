package scenario

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCAP2/indicator/internal/camera"
	"github.com/OCAP2/indicator/internal/geo"
	"github.com/OCAP2/indicator/internal/settings"
	"github.com/OCAP2/indicator/pkg/core"
)

// Run is a scenario in progress. It is driven from the host loop, on the
// same goroutine as the engine.
type Run struct {
	scenario *Scenario
	listener core.TargetListener

	perspective  *camera.Perspective
	orthographic *camera.Orthographic
	camera       core.CameraView
	path         []mgl64.Vec3

	targets []*Target
	elapsed time.Duration
	ticks   int
}

// Start builds the camera and targets. Targets are announced to listener
// as their spawn time passes, starting with the first Step.
func (s *Scenario) Start(listener core.TargetListener) (*Run, error) {
	r := &Run{scenario: s, listener: listener}

	if err := r.buildCamera(); err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}

	for i, spec := range s.Target {
		t, err := s.buildTarget(spec)
		if err != nil {
			return nil, fmt.Errorf("targets[%d] (%s): %w", i, spec.ID, err)
		}
		r.targets = append(r.targets, t)
	}
	return r, nil
}

func (r *Run) buildCamera() error {
	spec := r.scenario.Camera
	if spec.Path != "" {
		ls, err := geo.ParsePath(spec.Path)
		if err != nil {
			return err
		}
		r.path = geo.Waypoints(ls)
	}

	switch spec.Mode {
	case "2d":
		c := camera.NewOrthographic(spec.Width, spec.Height, spec.UnitsPerPixel)
		if spec.Center != "" {
			center, err := geo.PositionFromString(spec.Center)
			if err != nil {
				return fmt.Errorf("center: %w", err)
			}
			c.Center = center.Vec2()
		}
		r.orthographic, r.camera = c, c
	default:
		c := camera.NewPerspective(spec.Width, spec.Height, spec.FovY)
		if spec.Eye != "" {
			eye, err := geo.PositionFromString(spec.Eye)
			if err != nil {
				return fmt.Errorf("eye: %w", err)
			}
			c.Eye = eye
		}
		if spec.Target != "" {
			target, err := geo.PositionFromString(spec.Target)
			if err != nil {
				return fmt.Errorf("target: %w", err)
			}
			c.Target = target
		} else {
			c.Target = c.Eye.Add(mgl64.Vec3{0, 0, -1})
		}
		r.perspective, r.camera = c, c
	}

	r.moveCamera()
	return nil
}

func (s *Scenario) buildTarget(spec *TargetSpec) (*Target, error) {
	var (
		pos mgl64.Vec3
		err error
	)
	switch {
	case spec.Position != "":
		pos, err = geo.PositionFromString(spec.Position)
	case spec.WKT != "":
		pos, err = geo.PositionFromWKT(spec.WKT)
	case spec.Geo != nil:
		pos = geo.WorldFromGeodetic(spec.Geo.Lon, spec.Geo.Lat, spec.Geo.Elev, s.Origin.Lon, s.Origin.Lat)
		pos[1] -= s.Origin.Elev
		if s.Camera.Mode == "2d" {
			// map view: north is up the screen, elevation becomes depth
			pos = mgl64.Vec3{pos[0], pos[2], pos[1]}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("position: %w", err)
	}

	var velocity mgl64.Vec3
	if spec.Velocity != "" {
		if velocity, err = geo.PositionFromString(spec.Velocity); err != nil {
			return nil, fmt.Errorf("velocity: %w", err)
		}
	}

	t := NewTarget(spec.ID, pos, velocity)
	t.spawn = time.Duration(spec.Spawn)
	t.lifetime = time.Duration(spec.Lifetime)
	return t, nil
}

// ProjectionMode is the engine mode matching the scenario camera.
func (r *Run) ProjectionMode() settings.ProjectionMode {
	if r.orthographic != nil {
		return settings.Projection2D
	}
	return settings.Projection3D
}

// Camera returns the scenario camera.
func (r *Run) Camera() core.CameraView { return r.camera }

// Targets returns every target, spawned or not.
func (r *Run) Targets() []*Target { return r.targets }

// Elapsed is the scenario time advanced so far.
func (r *Run) Elapsed() time.Duration { return r.elapsed }

// DT is the fixed step the scenario was written for.
func (r *Run) DT() time.Duration { return time.Duration(r.scenario.DT) }

// Done reports whether the scenario's tick budget is used up.
func (r *Run) Done() bool { return r.ticks >= r.scenario.Ticks }

// Alive counts spawned targets that have not expired.
func (r *Run) Alive() int {
	n := 0
	for _, t := range r.targets {
		if t.Valid() {
			n++
		}
	}
	return n
}

// Step advances the scenario clock by dt. Targets whose spawn time has come
// are announced as enabled, live targets move and age, expired targets are
// announced as disabled, and the camera follows its path.
func (r *Run) Step(dt time.Duration) {
	r.ticks++
	r.elapsed += dt

	for _, t := range r.targets {
		if !t.spawned && r.elapsed >= t.spawn {
			t.spawned = true
			if r.listener != nil {
				r.listener.OnTargetEnabled(t)
			}
			continue
		}
		wasValid := t.Valid()
		t.Advance(dt)
		if wasValid && t.expired && r.listener != nil {
			r.listener.OnTargetDisabled(t)
		}
	}
	r.moveCamera()
}

func (r *Run) moveCamera() {
	if len(r.path) == 0 {
		return
	}
	p := geo.PointAlong(r.path, r.scenario.Camera.Speed*r.elapsed.Seconds())
	switch {
	case r.perspective != nil:
		offset := r.perspective.Target.Sub(r.perspective.Eye)
		r.perspective.LookAt(p, p.Add(offset))
	case r.orthographic != nil:
		r.orthographic.Center = p.Vec2()
	}
}
