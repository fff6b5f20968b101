package presenter

import (
	"strconv"

	"github.com/OCAP2/indicator/internal/settings"
)

// Distance conversion constants; world units are meters.
const (
	MetersPerKilometer = 1000.0
	FeetPerMeter       = 3.28084
	FeetPerMile        = 5280.0
)

// FormatDistance renders distance (meters) using the unit system, decimal
// places and suffixes in s. Metric switches to kilometers above 1000 m,
// imperial to miles above 5280 ft.
func FormatDistance(s *settings.Settings, distance float64) string {
	value, suffix := ConvertDistance(s, distance)
	places := s.DistanceDecimalPlaces
	if places < 0 {
		places = 0
	}
	return strconv.FormatFloat(value, 'f', places, 64) + suffix
}

// ConvertDistance returns distance in the display unit and that unit's suffix.
func ConvertDistance(s *settings.Settings, distance float64) (float64, string) {
	switch s.UnitSystem {
	case settings.Imperial:
		feet := distance * FeetPerMeter
		if feet > FeetPerMile {
			return feet / FeetPerMile, s.MileSuffix
		}
		return feet, s.FootSuffix
	default:
		if distance > MetersPerKilometer {
			return distance / MetersPerKilometer, s.KilometerSuffix
		}
		return distance, s.MeterSuffix
	}
}
