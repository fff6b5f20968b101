// Package geo turns the textual positions found in scenario files into
// world-space vectors. World space is Y-up: X points east, Y is elevation
// and Z points north.
package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PositionFromString parses "x,y" or "x,y,z". A missing z is zero.
func PositionFromString(coords string) (mgl64.Vec3, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return mgl64.Vec3{}, ErrInvalidCoordinates
	}

	var v mgl64.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mgl64.Vec3{}, ErrInvalidCoordinates
		}
		v[i] = f
	}
	return v, nil
}

// PositionFromWKT parses a WKT point such as "POINT Z (1 2 3)". The point's
// X, Y and Z map onto the world axes unchanged; a 2D point has Z zero.
func PositionFromWKT(wkt string) (mgl64.Vec3, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("parsing WKT: %w", err)
	}
	if g.Type() != geom.TypePoint {
		return mgl64.Vec3{}, fmt.Errorf("expected a point, got %s", g.Type())
	}
	pt, ok := g.AsPoint()
	if !ok {
		return mgl64.Vec3{}, ErrInvalidCoordinates
	}
	c, ok := pt.Coordinates()
	if !ok {
		return mgl64.Vec3{}, fmt.Errorf("empty point: %w", ErrInvalidCoordinates)
	}
	return vecFromCoordinates(c), nil
}

func vecFromCoordinates(c geom.Coordinates) mgl64.Vec3 {
	v := mgl64.Vec3{c.X, c.Y, 0}
	if c.Type.Is3D() {
		v[2] = c.Z
	}
	return v
}

// WorldFromGeodetic converts a WGS84 longitude/latitude (degrees) and an
// elevation in metres into world space relative to an origin. Horizontal
// offsets are web-mercator (EPSG:3857) metres, which stretch with latitude;
// the scenes this is used for are small enough for that not to matter.
func WorldFromGeodetic(lon, lat, elev, originLon, originLat float64) mgl64.Vec3 {
	toMercator := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := toMercator(lon, lat, 0)
	ox, oy, _ := toMercator(originLon, originLat, 0)
	return mgl64.Vec3{x - ox, elev, y - oy}
}
