package geo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ParsePath parses a path given either as a JSON array of points
// ("[[x,y,z],...]", z optional) or as a WKT LINESTRING. It needs at least
// two points.
func ParsePath(input string) (geom.LineString, error) {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "[") {
		return pathFromJSON(trimmed)
	}

	g, err := geom.UnmarshalWKT(trimmed)
	if err != nil {
		return geom.LineString{}, fmt.Errorf("parsing WKT path: %w", err)
	}
	ls, ok := g.AsLineString()
	if !ok {
		return geom.LineString{}, fmt.Errorf("expected a linestring, got %s", g.Type())
	}
	if n := ls.Coordinates().Length(); n < 2 {
		return geom.LineString{}, fmt.Errorf("path must have at least 2 points, got %d", n)
	}
	return ls, nil
}

func pathFromJSON(input string) (geom.LineString, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return geom.LineString{}, fmt.Errorf("failed to parse path JSON: %w", err)
	}
	if len(coords) < 2 {
		return geom.LineString{}, fmt.Errorf("path must have at least 2 points, got %d", len(coords))
	}

	flat := make([]float64, 0, len(coords)*3)
	for i, c := range coords {
		switch len(c) {
		case 2:
			flat = append(flat, c[0], c[1], 0)
		case 3:
			flat = append(flat, c[0], c[1], c[2])
		default:
			return geom.LineString{}, fmt.Errorf("coordinate %d has %d values", i, len(c))
		}
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ)), nil
}

// Waypoints returns the vertices of ls as world positions.
func Waypoints(ls geom.LineString) []mgl64.Vec3 {
	seq := ls.Coordinates()
	out := make([]mgl64.Vec3, seq.Length())
	for i := range out {
		out[i] = vecFromCoordinates(seq.Get(i))
	}
	return out
}

// PathLength is the total length of the waypoints in world units.
func PathLength(points []mgl64.Vec3) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += points[i].Sub(points[i-1]).Len()
	}
	return total
}

// PointAlong returns the position at distance d along points, clamped to
// the ends.
func PointAlong(points []mgl64.Vec3, d float64) mgl64.Vec3 {
	if len(points) == 0 {
		return mgl64.Vec3{}
	}
	if d <= 0 {
		return points[0]
	}
	for i := 1; i < len(points); i++ {
		seg := points[i].Sub(points[i-1])
		l := seg.Len()
		if d <= l && l > 0 {
			return points[i-1].Add(seg.Mul(d / l))
		}
		d -= l
	}
	return points[len(points)-1]
}
