package presenter

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const directionEpsilon = 1e-9

// rotationOffset aligns an upward-pointing arrow sprite with the rightward
// reference used by atan2.
const rotationOffset = -90.0

// ClampToEdge places an off-screen marker on the viewport inset by margin,
// along the ray from the screen center towards screen. It returns the clamped
// position and the normalized direction of that ray.
//
// For targets behind the camera the projected point is mirrored, so the
// horizontal component is flipped back and the vertical one forced towards
// the bottom edge. A target straight behind the viewer points down.
func ClampToEdge(screen mgl64.Vec2, behind bool, width, height, margin float64) (mgl64.Vec2, mgl64.Vec2) {
	center := mgl64.Vec2{width / 2, height / 2}
	d := screen.Sub(center)
	if behind {
		d = mgl64.Vec2{-d.X(), -math.Abs(d.Y())}
		if d.Len() < directionEpsilon {
			d = mgl64.Vec2{0, -1}
		}
	}

	minX, maxX := inset(0, width, margin)
	minY, maxY := inset(0, height, margin)

	if d.Len() < directionEpsilon {
		return clampPoint(screen, minX, maxX, minY, maxY), mgl64.Vec2{}
	}
	dir := d.Normalize()

	if p, ok := rayToRect(center, dir, minX, maxX, minY, maxY); ok {
		return p, dir
	}
	return clampPoint(screen, minX, maxX, minY, maxY), dir
}

// rayToRect intersects center + t*dir (t > 0) with the four edges of the
// rectangle and returns the nearest hit that lies within its edge.
func rayToRect(center, dir mgl64.Vec2, minX, maxX, minY, maxY float64) (mgl64.Vec2, bool) {
	best := math.Inf(1)

	if math.Abs(dir.X()) > directionEpsilon {
		for _, x := range [2]float64{minX, maxX} {
			t := (x - center.X()) / dir.X()
			if t <= 0 || t >= best {
				continue
			}
			if y := center.Y() + t*dir.Y(); y >= minY-directionEpsilon && y <= maxY+directionEpsilon {
				best = t
			}
		}
	}
	if math.Abs(dir.Y()) > directionEpsilon {
		for _, y := range [2]float64{minY, maxY} {
			t := (y - center.Y()) / dir.Y()
			if t <= 0 || t >= best {
				continue
			}
			if x := center.X() + t*dir.X(); x >= minX-directionEpsilon && x <= maxX+directionEpsilon {
				best = t
			}
		}
	}

	if math.IsInf(best, 1) {
		return mgl64.Vec2{}, false
	}
	return center.Add(dir.Mul(best)), true
}

// EdgeRotation returns the marker rotation in degrees for an off-screen
// direction, normalized to (-180, 180].
func EdgeRotation(dir mgl64.Vec2, flip bool) float64 {
	angle := mgl64.RadToDeg(math.Atan2(dir.Y(), dir.X())) + rotationOffset
	if flip {
		angle += 180
	}
	return normalizeDegrees(angle)
}

func normalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a <= -180 {
		a += 360
	} else if a > 180 {
		a -= 360
	}
	return a
}

// inset shrinks [lo, hi] by margin on both ends, collapsing to the midpoint
// when the margin is larger than the span.
func inset(lo, hi, margin float64) (float64, float64) {
	lo, hi = lo+margin, hi-margin
	if lo > hi {
		mid := (lo + hi) / 2
		return mid, mid
	}
	return lo, hi
}

func clampPoint(p mgl64.Vec2, minX, maxX, minY, maxY float64) mgl64.Vec2 {
	return mgl64.Vec2{
		mgl64.Clamp(p.X(), minX, maxX),
		mgl64.Clamp(p.Y(), minY, maxY),
	}
}
