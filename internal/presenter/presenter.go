// Package presenter turns a classified target into the visual state of its
// marker: position, rotation, scale and distance label.
package presenter

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCAP2/indicator/internal/settings"
	"github.com/OCAP2/indicator/pkg/core"
)

// Input is everything the presenter needs for one marker on one tick.
type Input struct {
	// Screen is the projected position: X/Y in pixels, Z the depth.
	Screen   mgl64.Vec3
	Class    core.Classification
	Width    float64
	Height   float64
	Distance float64
}

// Output is the resolved visual state of a marker.
type Output struct {
	Position mgl64.Vec2
	// Rotation is in degrees; zero for on-screen markers.
	Rotation float64
	// Direction is the normalized screen direction of an off-screen target.
	Direction mgl64.Vec2
	Scale     float64
	// IconShown is false when the scale collapsed to zero. The marker is
	// still bound and active; only its icon and label are suppressed.
	IconShown bool
	Text      *string
}

// Compute resolves the marker state for in. It has no side effects.
func Compute(s *settings.Settings, in Input) Output {
	out := Output{
		Scale: Scale(s, in.Distance),
	}
	out.IconShown = Visible(out.Scale)

	if in.Class == core.OnScreen {
		out.Position = mgl64.Vec2{in.Screen.X(), in.Screen.Y()}
	} else {
		out.Position, out.Direction = ClampToEdge(
			mgl64.Vec2{in.Screen.X(), in.Screen.Y()},
			in.Class == core.BehindCamera,
			in.Width, in.Height, s.ScreenEdgeMargin,
		)
		out.Rotation = EdgeRotation(out.Direction, s.FlipOffScreenMarkerY)
	}

	if s.DisplayDistanceText && out.IconShown {
		text := FormatDistance(s, in.Distance)
		out.Text = &text
	}
	return out
}

// Apply pushes out to the marker h through factory.
func Apply(factory core.MarkerFactory, h core.MarkerHandle, out Output) {
	factory.SetPosition(h, out.Position.X(), out.Position.Y())
	factory.SetRotation(h, out.Rotation)
	if out.IconShown {
		factory.SetScale(h, out.Scale)
	} else {
		factory.SetScale(h, 0)
	}
	factory.SetDistanceText(h, out.Text)
	if tr, ok := factory.(core.TextRotator); ok {
		tr.SetTextRotation(h, -out.Rotation)
	}
}
