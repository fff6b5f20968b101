// pkg/core/camera.go
package core

import "github.com/go-gl/mathgl/mgl64"

// CameraView is the per-tick view of the rendering camera.
type CameraView interface {
	// Position is the camera position in world space.
	Position() mgl64.Vec3
	// Project maps a world position to screen pixels. The returned Z is the
	// depth along the view direction; values <= 0 lie behind the camera.
	Project(world mgl64.Vec3) mgl64.Vec3
	// Viewport returns the screen size in pixels.
	Viewport() (width, height float64)
}

// Classification is the screen-space state of a target for one tick.
type Classification uint8

const (
	OnScreen Classification = iota
	OffScreen
	BehindCamera
)

func (c Classification) String() string {
	switch c {
	case OnScreen:
		return "on_screen"
	case OffScreen:
		return "off_screen"
	case BehindCamera:
		return "behind_camera"
	default:
		return "unknown"
	}
}
