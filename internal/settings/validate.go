package settings

import (
	"errors"
	"fmt"
)

// FieldError reports one invalid settings field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("settings.%s: %s", e.Field, e.Reason)
}

// Validate checks the settings once, before an engine starts using them.
// All problems are reported together as a joined error of *FieldError.
func (s Settings) Validate() error {
	var errs []error
	bad := func(field, format string, args ...any) {
		errs = append(errs, &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if s.UpdateFrequency <= 0 {
		bad("UpdateFrequency", "must be positive, got %s", s.UpdateFrequency)
	}
	if s.ProjectionMode > Projection2D {
		bad("ProjectionMode", "unknown value %d", s.ProjectionMode)
	}
	if s.MaxVisibleDistance < 0 {
		bad("MaxVisibleDistance", "must not be negative, got %g", s.MaxVisibleDistance)
	}
	if s.ScreenEdgeMargin < 0 {
		bad("ScreenEdgeMargin", "must not be negative, got %g", s.ScreenEdgeMargin)
	}
	if s.DefaultScaleFactor <= 0 {
		bad("DefaultScaleFactor", "must be positive, got %g", s.DefaultScaleFactor)
	}
	if s.EnableDistanceScaling {
		if s.DistanceForDefaultScale < 0 {
			bad("DistanceForDefaultScale", "must not be negative, got %g", s.DistanceForDefaultScale)
		}
		if s.MaxScalingDistance <= s.DistanceForDefaultScale {
			bad("MaxScalingDistance", "must be greater than DistanceForDefaultScale (%g), got %g",
				s.DistanceForDefaultScale, s.MaxScalingDistance)
		}
		if s.MinScaleFactor < 0 || s.MinScaleFactor > 1 {
			bad("MinScaleFactor", "must be within [0,1], got %g", s.MinScaleFactor)
		} else if s.MinScaleFactor > s.DefaultScaleFactor {
			bad("MinScaleFactor", "must not exceed DefaultScaleFactor (%g), got %g",
				s.DefaultScaleFactor, s.MinScaleFactor)
		}
	}
	if s.UnitSystem > Imperial {
		bad("UnitSystem", "unknown value %d", s.UnitSystem)
	}
	if s.DistanceDecimalPlaces < 0 {
		bad("DistanceDecimalPlaces", "must not be negative, got %d", s.DistanceDecimalPlaces)
	}
	if s.PoolCapacity < 1 {
		bad("PoolCapacity", "must be at least 1, got %d", s.PoolCapacity)
	}
	if s.PoolPolicy > PoolGrow {
		bad("PoolPolicy", "unknown value %d", s.PoolPolicy)
	}

	return errors.Join(errs...)
}
