// Package scenario loads scripted scenes for the headless and demo hosts:
// a camera, optionally moving along a path, and targets that spawn, move
// and expire over time.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/OCAP2/indicator/internal/settings"
)

// Duration accepts either a Go duration string ("250ms") or a number of
// seconds in JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	var raw any = s
	if unquoted, err := strconv.Unquote(s); err == nil {
		raw = unquoted
	}
	v, err := settings.ParseSeconds(raw)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Scenario is the file format.
type Scenario struct {
	Name   string        `json:"name"`
	Ticks  int           `json:"ticks"`
	DT     Duration      `json:"dt"`
	Origin *GeoSpec      `json:"origin,omitempty"`
	Camera CameraSpec    `json:"camera"`
	Target []*TargetSpec `json:"targets"`
}

// CameraSpec describes the viewing camera. Mode "3d" uses Eye/Target/FovY,
// mode "2d" uses Center/UnitsPerPixel. Path, when set, moves the eye (3d)
// or the centre (2d) at Speed world units per second.
type CameraSpec struct {
	Mode          string  `json:"mode"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	Eye           string  `json:"eye"`
	Target        string  `json:"target"`
	FovY          float64 `json:"fovY"`
	Center        string  `json:"center"`
	UnitsPerPixel float64 `json:"unitsPerPixel"`
	Path          string  `json:"path"`
	Speed         float64 `json:"speed"`
}

// GeoSpec is a WGS84 position in degrees and metres.
type GeoSpec struct {
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
	Elev float64 `json:"elev"`
}

// TargetSpec places one target. Exactly one of Position, WKT or Geo is set.
type TargetSpec struct {
	ID       string   `json:"id"`
	Position string   `json:"position"`
	WKT      string   `json:"wkt"`
	Geo      *GeoSpec `json:"geo"`
	Velocity string   `json:"velocity"`
	Spawn    Duration `json:"spawn"`
	Lifetime Duration `json:"lifetime"`
}

const (
	defaultTicks  = 600
	defaultDT     = Duration(16 * time.Millisecond)
	defaultWidth  = 1920
	defaultHeight = 1080
	defaultFovY   = 60
)

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scenario, fills defaults and validates it. Targets
// without an ID get a random UUID.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}

	if s.Ticks <= 0 {
		s.Ticks = defaultTicks
	}
	if s.DT <= 0 {
		s.DT = defaultDT
	}
	if s.Camera.Mode == "" {
		s.Camera.Mode = "3d"
	}
	if s.Camera.Width <= 0 {
		s.Camera.Width = defaultWidth
	}
	if s.Camera.Height <= 0 {
		s.Camera.Height = defaultHeight
	}
	if s.Camera.FovY <= 0 {
		s.Camera.FovY = defaultFovY
	}

	var errs []error
	if s.Camera.Mode != "3d" && s.Camera.Mode != "2d" {
		errs = append(errs, fmt.Errorf("camera: unknown mode %q", s.Camera.Mode))
	}
	seen := make(map[string]bool, len(s.Target))
	for i, t := range s.Target {
		if t == nil {
			errs = append(errs, fmt.Errorf("targets[%d]: empty", i))
			continue
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Errorf("targets[%d]: duplicate id %q", i, t.ID))
		}
		seen[t.ID] = true
		if err := t.validate(s.Origin != nil); err != nil {
			errs = append(errs, fmt.Errorf("targets[%d] (%s): %w", i, t.ID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *TargetSpec) validate(hasOrigin bool) error {
	set := 0
	for _, present := range []bool{t.Position != "", t.WKT != "", t.Geo != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return errors.New("exactly one of position, wkt or geo is required")
	}
	if t.Geo != nil && !hasOrigin {
		return errors.New("geo position needs a scenario origin")
	}
	if t.Spawn < 0 || t.Lifetime < 0 {
		return errors.New("spawn and lifetime must not be negative")
	}
	return nil
}
