// Package settings holds the resolved configuration of the indicator engine.
package settings

import (
	"fmt"
	"strings"
	"time"
)

// ProjectionMode selects how distances are measured.
type ProjectionMode uint8

const (
	Projection3D ProjectionMode = iota
	Projection2D
)

func (m ProjectionMode) String() string {
	switch m {
	case Projection3D:
		return "3d"
	case Projection2D:
		return "2d"
	default:
		return fmt.Sprintf("ProjectionMode(%d)", m)
	}
}

// ParseProjectionMode accepts "3d" or "2d", case-insensitive.
func ParseProjectionMode(s string) (ProjectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "3d", "":
		return Projection3D, nil
	case "2d":
		return Projection2D, nil
	default:
		return Projection3D, &FieldError{Field: "ProjectionMode", Reason: fmt.Sprintf("unknown mode %q", s)}
	}
}

// UnitSystem selects the distance text units.
type UnitSystem uint8

const (
	Metric UnitSystem = iota
	Imperial
)

func (u UnitSystem) String() string {
	switch u {
	case Metric:
		return "metric"
	case Imperial:
		return "imperial"
	default:
		return fmt.Sprintf("UnitSystem(%d)", u)
	}
}

// ParseUnitSystem accepts "metric" or "imperial", case-insensitive.
func ParseUnitSystem(s string) (UnitSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "metric", "":
		return Metric, nil
	case "imperial":
		return Imperial, nil
	default:
		return Metric, &FieldError{Field: "UnitSystem", Reason: fmt.Sprintf("unknown unit system %q", s)}
	}
}

// PoolPolicy decides what happens when the marker pool is full.
type PoolPolicy uint8

const (
	// PoolDrop leaves the newest target unindicated until a marker frees up.
	PoolDrop PoolPolicy = iota
	// PoolGrow creates markers beyond the soft capacity.
	PoolGrow
)

func (p PoolPolicy) String() string {
	switch p {
	case PoolDrop:
		return "drop"
	case PoolGrow:
		return "grow"
	default:
		return fmt.Sprintf("PoolPolicy(%d)", p)
	}
}

// ParsePoolPolicy accepts "drop" or "grow", case-insensitive.
func ParsePoolPolicy(s string) (PoolPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop", "":
		return PoolDrop, nil
	case "grow":
		return PoolGrow, nil
	default:
		return PoolDrop, &FieldError{Field: "PoolPolicy", Reason: fmt.Sprintf("unknown pool policy %q", s)}
	}
}

// Settings is read-only for the lifetime of an engine.
type Settings struct {
	UpdateFrequency time.Duration

	ProjectionMode      ProjectionMode
	IgnoreDepthAxisIn2D bool
	MaxVisibleDistance  float64
	// PivotOffset is added to the target's Y before projecting.
	PivotOffset float64

	UseOffScreenIndicators bool
	ScreenEdgeMargin       float64
	FlipOffScreenMarkerY   bool

	EnableDistanceScaling   bool
	DistanceForDefaultScale float64
	MaxScalingDistance      float64
	MinScaleFactor          float64
	DefaultScaleFactor      float64

	DisplayDistanceText   bool
	UnitSystem            UnitSystem
	DistanceDecimalPlaces int
	MeterSuffix           string
	KilometerSuffix       string
	FootSuffix            string
	MileSuffix            string

	PoolCapacity int
	PoolPolicy   PoolPolicy
}

// Default returns the settings used when no configuration overrides them.
func Default() Settings {
	return Settings{
		UpdateFrequency:         100 * time.Millisecond,
		ProjectionMode:          Projection3D,
		IgnoreDepthAxisIn2D:     true,
		MaxVisibleDistance:      1000,
		PivotOffset:             2.5,
		UseOffScreenIndicators:  true,
		ScreenEdgeMargin:        50,
		EnableDistanceScaling:   true,
		DistanceForDefaultScale: 50,
		MaxScalingDistance:      200,
		MinScaleFactor:          0.2,
		DefaultScaleFactor:      1,
		DisplayDistanceText:     true,
		UnitSystem:              Metric,
		DistanceDecimalPlaces:   1,
		MeterSuffix:             "m",
		KilometerSuffix:         "km",
		FootSuffix:              "ft",
		MileSuffix:              "mi",
		PoolCapacity:            32,
		PoolPolicy:              PoolDrop,
	}
}
