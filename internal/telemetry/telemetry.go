// Package telemetry records per-tick engine stats to a configurable backend:
// an in-memory ring exported as JSON, sqlite or postgres through gorm, or
// influxdb.
package telemetry

import (
	"context"
	"time"

	"github.com/OCAP2/indicator/pkg/core"
)

// Recorder is the interface all telemetry backends satisfy. Record is
// called from the tick goroutine and must not block on the network.
type Recorder interface {
	Init() error
	Record(s core.TickStats) error
	Flush(ctx context.Context) error
	Close() error
}

// Exporter is implemented by backends that write a file on Close.
type Exporter interface {
	ExportPath() string
}

// Sample is the backend-neutral form of one processed tick.
type Sample struct {
	Session       string        `json:"session"`
	Tick          uint64        `json:"tick"`
	Time          time.Time     `json:"time"`
	Duration      time.Duration `json:"durationNs"`
	Targets       int           `json:"targets"`
	OnScreen      int           `json:"onScreen"`
	OffScreen     int           `json:"offScreen"`
	BehindCamera  int           `json:"behindCamera"`
	Culled        int           `json:"culled"`
	Hidden        int           `json:"hidden"`
	Pruned        int           `json:"pruned"`
	Dropped       int           `json:"dropped"`
	MarkersActive int           `json:"markersActive"`
	PoolIdle      int           `json:"poolIdle"`
}

// NewSample tags s with the session it belongs to.
func NewSample(session string, s core.TickStats) Sample {
	return Sample{
		Session:       session,
		Tick:          s.Tick,
		Time:          s.Time.UTC(),
		Duration:      s.Duration,
		Targets:       s.Targets,
		OnScreen:      s.OnScreen,
		OffScreen:     s.OffScreen,
		BehindCamera:  s.BehindCamera,
		Culled:        s.Culled,
		Hidden:        s.Hidden,
		Pruned:        s.Pruned,
		Dropped:       s.Dropped,
		MarkersActive: s.MarkersActive,
		PoolIdle:      s.PoolIdle,
	}
}

type nopRecorder struct{}

func (nopRecorder) Init() error                 { return nil }
func (nopRecorder) Record(core.TickStats) error { return nil }
func (nopRecorder) Flush(context.Context) error { return nil }
func (nopRecorder) Close() error                { return nil }
