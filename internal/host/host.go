// Package host assembles a runnable indicator process from configuration:
// logging, metrics, telemetry, the event dispatcher, a scenario and the
// engine. The headless simulator and the demo window both build on it.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/OCAP2/indicator/internal/config"
	"github.com/OCAP2/indicator/internal/dispatcher"
	"github.com/OCAP2/indicator/internal/engine"
	"github.com/OCAP2/indicator/internal/logging"
	"github.com/OCAP2/indicator/internal/monitor"
	intOtel "github.com/OCAP2/indicator/internal/otel"
	"github.com/OCAP2/indicator/internal/scenario"
	"github.com/OCAP2/indicator/internal/telemetry"
	"github.com/OCAP2/indicator/pkg/core"
)

const instrumentationName = "github.com/OCAP2/indicator"

// Options describe what to host. Everything else comes from the loaded
// configuration.
type Options struct {
	AppName  string
	Scenario *scenario.Scenario
	Factory  core.MarkerFactory
	// StatusFile is rewritten every second while the host runs.
	StatusFile string
	// Session tags telemetry samples; a random UUID is used when empty.
	Session string
}

// Host owns every long-lived service of one run.
type Host struct {
	Logger     *slog.Logger
	Engine     *engine.Engine
	Dispatcher *dispatcher.Dispatcher
	Run        *scenario.Run
	Recorder   telemetry.Recorder
	Monitor    *monitor.Service

	session  string
	started  time.Time
	provider *intOtel.Provider
	zlog     zerolog.Logger
	attrs    atomic.Pointer[[]slog.Attr]
	closers  []io.Closer
	closed   bool
}

// New builds a host from the loaded configuration. On error every resource
// opened so far is released.
func New(opts Options) (_ *Host, err error) {
	if opts.Scenario == nil {
		return nil, errors.New("no scenario")
	}
	if opts.Factory == nil {
		return nil, errors.New("no marker factory")
	}
	if opts.AppName == "" {
		opts.AppName = "indicator"
	}
	if opts.Session == "" {
		opts.Session = uuid.NewString()
	}

	h := &Host{session: opts.Session, started: time.Now()}
	defer func() {
		if err != nil {
			_, _ = h.Close(context.Background())
		}
	}()

	if err := h.setupOTel(); err != nil {
		return nil, err
	}
	if err := h.setupLogging(opts.AppName); err != nil {
		return nil, err
	}

	h.Dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(h.zlog))
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	h.Run, err = opts.Scenario.Start(&dispatchListener{d: h.Dispatcher, logger: h.Logger})
	if err != nil {
		return nil, fmt.Errorf("starting scenario: %w", err)
	}

	if err := h.setupTelemetry(); err != nil {
		return nil, err
	}

	h.Monitor = monitor.NewService(monitor.Dependencies{
		Logger:     h.Logger,
		StatusFile: opts.StatusFile,
	})

	s, err := config.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("reading indicator settings: %w", err)
	}
	s.ProjectionMode = h.Run.ProjectionMode()

	h.Engine, err = engine.New(engine.Dependencies{
		Camera:   h.Run.Camera(),
		Factory:  opts.Factory,
		Settings: &s,
		Logger:   h.Logger,
	},
		engine.WithInbox(h.Dispatcher),
		engine.WithTickObserver(h.observe),
		engine.WithMeter(h.provider.Meter(instrumentationName)),
	)
	if err != nil {
		return nil, err
	}
	dispatcher.BindListener(h.Dispatcher, h.Engine, dispatcher.Logged())

	h.Monitor.Start()
	h.Logger.Info("Host ready",
		"scenario", opts.Scenario.Name,
		"session", h.session,
		"targets", len(h.Run.Targets()),
		"telemetry", config.GetTelemetryConfig().Type,
	)
	return h, nil
}

func (h *Host) setupLogging(appName string) error {
	cfg := config.GetLoggingConfig()

	logFile, err := logging.OpenLogFile(cfg.Dir, appName, h.started)
	if err != nil {
		return err
	}
	h.closers = append(h.closers, logFile)

	opts := logging.Options{
		Level:   cfg.Level,
		File:    logFile,
		Console: cfg.Console,
		Context: h.logAttrs,
		OTel:    h.provider.LoggerProvider(),
		Name:    instrumentationName,
	}
	if cfg.Graylog.Enabled {
		w, err := logging.NewGraylogWriter(cfg.Graylog.Address, appName)
		if err != nil {
			return err
		}
		h.closers = append(h.closers, w)
		opts.Graylog = w
	}

	manager := logging.NewSlogManager()
	manager.Setup(opts)
	h.Logger = manager.Logger()

	var console io.Writer
	if cfg.Console {
		console = os.Stdout
	}
	h.zlog = logging.NewZerolog(cfg.Level, console, logFile)
	return nil
}

func (h *Host) setupOTel() error {
	cfg := config.GetOTelConfig()
	otelCfg := intOtel.Config{
		Enabled:      cfg.Enabled,
		ServiceName:  cfg.ServiceName,
		Interval:     cfg.Interval,
		BatchTimeout: cfg.BatchTimeout,
		Endpoint:     cfg.Endpoint,
		Insecure:     cfg.Insecure,
	}
	if cfg.Enabled {
		otelCfg.MetricWriter = os.Stdout
		if cfg.OutputFile != "" {
			f, err := os.Create(cfg.OutputFile)
			if err != nil {
				return fmt.Errorf("creating metrics file: %w", err)
			}
			h.closers = append(h.closers, f)
			otelCfg.MetricWriter = f
		}
		if cfg.LogFile != "" {
			f, err := os.Create(cfg.LogFile)
			if err != nil {
				return fmt.Errorf("creating OTel log file: %w", err)
			}
			h.closers = append(h.closers, f)
			otelCfg.LogWriter = f
		}
	}

	p, err := intOtel.New(otelCfg)
	if err != nil {
		return fmt.Errorf("creating OTel provider: %w", err)
	}
	p.Install()
	h.provider = p
	return nil
}

func (h *Host) setupTelemetry() error {
	cfg := config.GetTelemetryConfig()
	rec, err := telemetry.NewRecorder(cfg, telemetry.Options{
		Session: h.session,
		Logger:  h.zlog,
	})
	if err != nil {
		return err
	}
	if err := rec.Init(); err != nil {
		return fmt.Errorf("initializing %s telemetry: %w", cfg.Type, err)
	}
	h.Recorder = rec
	return nil
}

func (h *Host) observe(s core.TickStats) {
	attrs := h.Engine.LogAttrs()
	h.attrs.Store(&attrs)
	h.Monitor.Observe(s)
	if err := h.Recorder.Record(s); err != nil {
		h.Logger.Error("Failed to record tick", "tick", s.Tick, "error", err)
	}
}

func (h *Host) logAttrs() []slog.Attr {
	if p := h.attrs.Load(); p != nil {
		return *p
	}
	return nil
}

// Session is the telemetry session ID.
func (h *Host) Session() string { return h.session }

// Step advances the scenario by dt and ticks the engine.
func (h *Host) Step(dt time.Duration) {
	h.Run.Step(dt)
	h.Engine.Tick(dt)
}

// RunToEnd steps the scenario at its own dt until its tick budget is used up
// or ctx is cancelled. With realtime set it paces the steps to the wall
// clock.
func (h *Host) RunToEnd(ctx context.Context, realtime bool) error {
	dt := h.Run.DT()
	var ticker *time.Ticker
	if realtime {
		ticker = time.NewTicker(dt)
		defer ticker.Stop()
	}

	for !h.Run.Done() {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		h.Step(dt)
	}
	return nil
}

// Report is what a finished run produced.
type Report struct {
	Session    string
	Summary    monitor.Summary
	ExportPath string
	Elapsed    time.Duration
}

// Close stops every service, flushes telemetry and metrics, and returns a
// report of the run. It is safe to call more than once.
func (h *Host) Close(ctx context.Context) (Report, error) {
	r := Report{Session: h.session, Elapsed: time.Since(h.started)}
	if h.closed {
		return r, nil
	}
	h.closed = true

	var errs []error
	if h.Engine != nil {
		h.Engine.Close()
	}
	if h.Monitor != nil {
		h.Monitor.Stop()
		r.Summary = h.Monitor.Summary()
	}
	if h.Recorder != nil {
		if err := h.Recorder.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := h.Recorder.Close(); err != nil {
			errs = append(errs, err)
		}
		if ex, ok := h.Recorder.(telemetry.Exporter); ok {
			r.ExportPath = ex.ExportPath()
		}
	}
	if h.Logger != nil {
		h.Logger.Info("Host stopped", "session", h.session, "ticks", r.Summary.Ticks)
	}
	if h.provider != nil {
		if err := h.provider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, h.closeResources())
	return r, errors.Join(errs...)
}

func (h *Host) closeResources() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}

// dispatchListener turns scenario lifecycle callbacks into dispatcher
// events, which the engine picks up on its next tick.
type dispatchListener struct {
	d      *dispatcher.Dispatcher
	logger *slog.Logger
}

func (l *dispatchListener) OnTargetEnabled(t core.Target) {
	if err := l.d.Enable(t); err != nil {
		l.logger.Error("Failed to raise target event", "target", t.ID(), "error", err)
	}
}

func (l *dispatchListener) OnTargetDisabled(t core.Target) {
	if err := l.d.Disable(t); err != nil {
		l.logger.Error("Failed to raise target event", "target", t.ID(), "error", err)
	}
}
