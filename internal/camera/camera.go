// Package camera provides reference implementations of core.CameraView.
// Screen space has its origin at the bottom-left corner with y growing
// upwards; hosts that draw y-down flip on output.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// wEpsilon keeps the perspective divide finite for points on the eye plane.
const wEpsilon = 1e-9

// Perspective is a 3D camera defined by a look-at frame and a vertical
// field of view.
type Perspective struct {
	Eye    mgl64.Vec3
	Target mgl64.Vec3
	Up     mgl64.Vec3
	// FovY is the vertical field of view in degrees.
	FovY          float64
	Width, Height float64
	Near, Far     float64
}

// NewPerspective returns a camera at the origin looking down -Z.
func NewPerspective(width, height, fovY float64) *Perspective {
	return &Perspective{
		Target: mgl64.Vec3{0, 0, -1},
		Up:     mgl64.Vec3{0, 1, 0},
		FovY:   fovY,
		Width:  width,
		Height: height,
		Near:   0.1,
		Far:    10000,
	}
}

// LookAt moves the camera to eye and points it at target.
func (c *Perspective) LookAt(eye, target mgl64.Vec3) {
	c.Eye = eye
	c.Target = target
}

func (c *Perspective) Position() mgl64.Vec3 {
	return c.Eye
}

func (c *Perspective) Viewport() (float64, float64) {
	return c.Width, c.Height
}

// Forward is the unit viewing direction.
func (c *Perspective) Forward() mgl64.Vec3 {
	return c.Target.Sub(c.Eye).Normalize()
}

// View returns the world-to-view matrix.
func (c *Perspective) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Eye, c.Target, c.Up)
}

// Projection returns the view-to-clip matrix.
func (c *Perspective) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FovY), c.Width/c.Height, c.Near, c.Far)
}

// Project maps world to screen pixels. The returned Z is the distance in
// front of the eye along the viewing axis, negative behind it. Points behind
// the eye come out mirrored through the centre, the same as most engines
// report them.
func (c *Perspective) Project(world mgl64.Vec3) mgl64.Vec3 {
	view := c.View().Mul4x1(world.Vec4(1))
	clip := c.Projection().Mul4x1(view)

	w := clip.W()
	if math.Abs(w) < wEpsilon {
		w = math.Copysign(wEpsilon, w)
	}
	ndcX, ndcY := clip.X()/w, clip.Y()/w

	return mgl64.Vec3{
		(ndcX + 1) / 2 * c.Width,
		(ndcY + 1) / 2 * c.Height,
		-view.Z(),
	}
}

// Orthographic is a 2D camera looking straight down at the X/Y plane.
// Everything is in front of it.
type Orthographic struct {
	Center        mgl64.Vec2
	Width, Height float64
	UnitsPerPixel float64
}

// NewOrthographic returns a camera centred on the world origin.
func NewOrthographic(width, height, unitsPerPixel float64) *Orthographic {
	return &Orthographic{Width: width, Height: height, UnitsPerPixel: unitsPerPixel}
}

func (c *Orthographic) Position() mgl64.Vec3 {
	return mgl64.Vec3{c.Center.X(), c.Center.Y(), 0}
}

func (c *Orthographic) Viewport() (float64, float64) {
	return c.Width, c.Height
}

func (c *Orthographic) Project(world mgl64.Vec3) mgl64.Vec3 {
	upp := c.UnitsPerPixel
	if upp <= 0 {
		upp = 1
	}
	return mgl64.Vec3{
		c.Width/2 + (world.X()-c.Center.X())/upp,
		c.Height/2 + (world.Y()-c.Center.Y())/upp,
		1,
	}
}
