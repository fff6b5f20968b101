package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds OTel configuration
type Config struct {
	Enabled     bool
	ServiceName string
	// Interval between periodic metric exports.
	Interval time.Duration
	// MetricWriter receives exported metrics as JSON.
	MetricWriter io.Writer
	// Reader replaces the periodic exporter; tests pass a ManualReader.
	Reader sdkmetric.Reader

	BatchTimeout time.Duration
	LogWriter    io.Writer // File to write OTel logs to
	Endpoint     string    // OTLP endpoint (optional, only used if set)
	Insecure     bool      // Use insecure connection for OTLP
}

// Provider manages the OpenTelemetry meter and log providers.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	logProvider   *sdklog.LoggerProvider
	config        Config
}

// New creates a new OTel provider with the given configuration. Metrics are
// exported when a Reader or MetricWriter is given, logs when a LogWriter or
// Endpoint is. If OTel is disabled, returns a no-op provider.
func New(cfg Config) (*Provider, error) {
	p := &Provider{
		config: cfg,
	}

	if !cfg.Enabled {
		return p, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if cfg.Reader == nil && cfg.MetricWriter == nil && cfg.LogWriter == nil && cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTel enabled but no metric writer, log writer or endpoint configured")
	}

	if cfg.Reader != nil || cfg.MetricWriter != nil {
		if err := p.setupMetrics(res); err != nil {
			return nil, err
		}
	}
	if cfg.LogWriter != nil || cfg.Endpoint != "" {
		if err := p.setupLogs(res); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Provider) setupMetrics(res *resource.Resource) error {
	reader := p.config.Reader
	if reader == nil {
		exporter, err := stdoutmetric.New(
			stdoutmetric.WithWriter(p.config.MetricWriter),
			stdoutmetric.WithoutTimestamps(),
		)
		if err != nil {
			return fmt.Errorf("failed to create metric exporter: %w", err)
		}
		var opts []sdkmetric.PeriodicReaderOption
		if p.config.Interval > 0 {
			opts = append(opts, sdkmetric.WithInterval(p.config.Interval))
		}
		reader = sdkmetric.NewPeriodicReader(exporter, opts...)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	return nil
}

func (p *Provider) setupLogs(res *resource.Resource) error {
	var batchOpts []sdklog.BatchProcessorOption
	if p.config.BatchTimeout > 0 {
		batchOpts = append(batchOpts, sdklog.WithExportTimeout(p.config.BatchTimeout))
	}

	var processors []sdklog.Processor

	if p.config.LogWriter != nil {
		fileExporter, err := stdoutlog.New(
			stdoutlog.WithWriter(p.config.LogWriter),
			stdoutlog.WithPrettyPrint(),
		)
		if err != nil {
			return fmt.Errorf("failed to create file log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(fileExporter, batchOpts...))
	}

	if p.config.Endpoint != "" {
		otlpOpts := []otlploghttp.Option{
			otlploghttp.WithEndpoint(p.config.Endpoint),
		}
		if p.config.Insecure {
			otlpOpts = append(otlpOpts, otlploghttp.WithInsecure())
		}

		otlpExporter, err := otlploghttp.New(context.Background(), otlpOpts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		processors = append(processors, sdklog.NewBatchProcessor(otlpExporter, batchOpts...))
	}

	opts := []sdklog.LoggerProviderOption{
		sdklog.WithResource(res),
	}
	for _, proc := range processors {
		opts = append(opts, sdklog.WithProcessor(proc))
	}
	p.logProvider = sdklog.NewLoggerProvider(opts...)
	return nil
}

// LoggerProvider returns the log provider for use with the otelslog bridge,
// or nil when OTel logs are not configured.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Install makes the provider the global meter provider, so packages calling
// otel.Meter pick it up. It does nothing when disabled.
func (p *Provider) Install() {
	if p.meterProvider != nil {
		otel.SetMeterProvider(p.meterProvider)
	}
}

// Meter returns a meter with the given name, or a no-op meter when disabled.
func (p *Provider) Meter(name string) metric.Meter {
	if p.meterProvider == nil {
		return noop.Meter{}
	}
	return p.meterProvider.Meter(name)
}

// Flush forces an export of all pending metrics and logs.
func (p *Provider) Flush(ctx context.Context) error {
	if p.meterProvider != nil {
		if err := p.meterProvider.ForceFlush(ctx); err != nil {
			return fmt.Errorf("metric flush failed: %w", err)
		}
	}
	if p.logProvider != nil {
		if err := p.logProvider.ForceFlush(ctx); err != nil {
			return fmt.Errorf("log flush failed: %w", err)
		}
	}
	return nil
}

// Shutdown flushes and stops the providers.
// Should be called when the application exits.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric shutdown failed: %w", err))
		}
	}
	if p.logProvider != nil {
		if err := p.logProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log shutdown failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Enabled returns whether OTel is enabled
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}
