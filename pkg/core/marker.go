// pkg/core/marker.go
package core

// MarkerHandle identifies one visual marker instance created by a
// MarkerFactory. Zero is never a valid handle.
type MarkerHandle uint32

// MarkerFactory realizes markers in whatever UI layer hosts the overlay.
// All setters take effect immediately.
type MarkerFactory interface {
	Create() (MarkerHandle, error)
	Destroy(h MarkerHandle)

	SetActive(h MarkerHandle, active bool)
	SetPosition(h MarkerHandle, x, y float64)
	// SetRotation sets the marker rotation in degrees.
	SetRotation(h MarkerHandle, degrees float64)
	SetScale(h MarkerHandle, factor float64)
	// SetDistanceText sets the distance label; nil hides it.
	SetDistanceText(h MarkerHandle, text *string)
}

// TextRotator is implemented by factories whose distance label is a child
// of the rotated marker. The engine passes the counter-rotation that keeps
// the label upright on screen.
type TextRotator interface {
	SetTextRotation(h MarkerHandle, degrees float64)
}
