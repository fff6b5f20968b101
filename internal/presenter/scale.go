package presenter

import "github.com/OCAP2/indicator/internal/settings"

// VisibleEpsilon is the scale at or below which a marker counts as absent.
const VisibleEpsilon = 1e-4

// Scale returns the marker scale for a target at distance.
func Scale(s *settings.Settings, distance float64) float64 {
	if !s.EnableDistanceScaling {
		return s.DefaultScaleFactor
	}
	near, far := s.DistanceForDefaultScale, s.MaxScalingDistance
	switch {
	case distance <= near:
		return s.DefaultScaleFactor
	case distance >= far:
		return s.MinScaleFactor
	}
	t := (distance - near) / (far - near)
	return s.DefaultScaleFactor + (s.MinScaleFactor-s.DefaultScaleFactor)*t
}

// Visible reports whether a marker drawn at scale would be seen at all.
func Visible(scale float64) bool {
	return scale > VisibleEpsilon
}
