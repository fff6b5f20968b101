// pkg/core/target.go
package core

import "github.com/go-gl/mathgl/mgl64"

// Target is a world-space point of interest that can carry an indicator.
// The owner of the point creates it and keeps it alive; the engine only
// holds a non-owning reference between registration and removal.
type Target interface {
	// ID is the stable identity used for de-duplication and marker association.
	ID() string
	// Position is the pivot position in world space. The engine applies its
	// own upward offset before projecting.
	Position() mgl64.Vec3
	// Valid reports whether the owner is still alive and active.
	Valid() bool
}

// TargetListener receives enable/disable notifications from target owners.
type TargetListener interface {
	OnTargetEnabled(t Target)
	OnTargetDisabled(t Target)
}

// StaticTarget is a Target with a fixed position. It is mostly useful for
// tests and for hosts that update the position themselves.
type StaticTarget struct {
	Key   string
	Pos   mgl64.Vec3
	Alive bool
}

// NewStaticTarget returns a valid StaticTarget at pos.
func NewStaticTarget(id string, pos mgl64.Vec3) *StaticTarget {
	return &StaticTarget{Key: id, Pos: pos, Alive: true}
}

func (t *StaticTarget) ID() string           { return t.Key }
func (t *StaticTarget) Position() mgl64.Vec3 { return t.Pos }
func (t *StaticTarget) Valid() bool          { return t != nil && t.Alive }
