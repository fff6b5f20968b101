package telemetry

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/OCAP2/indicator/internal/config"
)

// Options are shared by every backend.
type Options struct {
	// Session tags every sample; a random UUID is used when empty.
	Session string
	Logger  zerolog.Logger
}

// NewRecorder creates a telemetry backend based on configuration. The
// returned recorder still needs Init.
func NewRecorder(cfg config.TelemetryConfig, opts Options) (Recorder, error) {
	if opts.Session == "" {
		opts.Session = uuid.NewString()
	}
	log := opts.Logger.With().Str("backend", cfg.Type).Str("session", opts.Session).Logger()

	switch cfg.Type {
	case "", "none":
		return nopRecorder{}, nil
	case "memory":
		return NewMemory(cfg.Memory, opts.Session, log), nil
	case "sqlite":
		return NewSQLite(cfg.SQLite, opts.Session, log), nil
	case "postgres":
		return NewPostgres(cfg.Postgres, opts.Session, log), nil
	case "influx":
		return NewInflux(cfg.Influx, cfg.Memory.OutputDir, opts.Session, log), nil
	default:
		return nil, fmt.Errorf("unknown telemetry type: %s", cfg.Type)
	}
}
