package scenario

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Target is a scripted core.Target. It moves at a constant velocity and
// stops being valid once its lifetime has elapsed.
type Target struct {
	id       string
	pos      mgl64.Vec3
	velocity mgl64.Vec3
	spawn    time.Duration
	lifetime time.Duration

	age     time.Duration
	spawned bool
	expired bool
}

// NewTarget creates a target that spawns immediately and never expires.
func NewTarget(id string, pos, velocity mgl64.Vec3) *Target {
	return &Target{id: id, pos: pos, velocity: velocity}
}

func (t *Target) ID() string           { return t.id }
func (t *Target) Position() mgl64.Vec3 { return t.pos }
func (t *Target) Valid() bool          { return t.spawned && !t.expired }

// Spawned reports whether the target has been announced.
func (t *Target) Spawned() bool { return t.spawned }

// Expired reports whether the lifetime has run out.
func (t *Target) Expired() bool { return t.expired }

// Advance moves a spawned target by dt and ages it.
func (t *Target) Advance(dt time.Duration) {
	if !t.spawned || t.expired {
		return
	}
	t.pos = t.pos.Add(t.velocity.Mul(dt.Seconds()))
	t.age += dt
	if t.lifetime > 0 && t.age >= t.lifetime {
		t.expired = true
	}
}
