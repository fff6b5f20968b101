package telemetry

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/OCAP2/indicator/internal/config"
	"github.com/OCAP2/indicator/pkg/core"
)

// Measurement is the influx measurement every tick is written to.
const Measurement = "indicator_tick"

const influxPingTimeout = 2 * time.Second

// Influx writes ticks through the non-blocking influx write API. When the
// server cannot be reached at Init it falls back to a gzipped line-protocol
// backup file in backupDir.
type Influx struct {
	cfg       config.InfluxConfig
	backupDir string
	session   string
	log       zerolog.Logger

	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	backupFile   *os.File
	backupWriter *gzip.Writer
	backupPath   string
}

// NewInflux creates an influx recorder. Nothing is dialed until Init.
func NewInflux(cfg config.InfluxConfig, backupDir, session string, log zerolog.Logger) *Influx {
	return &Influx{cfg: cfg, backupDir: backupDir, session: session, log: log}
}

// ServerURL returns the server address built from the config.
func (b *Influx) ServerURL() string {
	return fmt.Sprintf("%s://%s:%s", b.cfg.Protocol, b.cfg.Host, b.cfg.Port)
}

func (b *Influx) Init() error {
	b.client = influxdb2.NewClientWithOptions(
		b.ServerURL(),
		b.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), influxPingTimeout)
	defer cancel()
	running, err := b.client.Ping(ctx)
	if err != nil || !running {
		b.log.Warn().Err(err).Str("url", b.ServerURL()).Msg("InfluxDB unreachable, writing to backup file")
		b.client.Close()
		b.client = nil
		return b.openBackup()
	}

	if err := b.ensureBucket(context.Background()); err != nil {
		return err
	}

	b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)
	errorsCh := b.writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			b.log.Error().Err(writeErr).Str("bucket", b.cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}()

	b.log.Info().Str("bucket", b.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (b *Influx) ensureBucket(ctx context.Context) error {
	orgs := b.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, b.cfg.Org)
	if err != nil {
		b.log.Info().Str("org", b.cfg.Org).Msg("Organization not found, creating")
		if org, err = orgs.CreateOrganizationWithName(ctx, b.cfg.Org); err != nil {
			return fmt.Errorf("creating organization %s: %w", b.cfg.Org, err)
		}
	}

	buckets := b.client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, b.cfg.Bucket); err == nil {
		return nil
	}
	b.log.Info().Str("bucket", b.cfg.Bucket).Msg("Bucket not found, creating")

	rule := domain.RetentionRuleTypeExpire
	_, err = buckets.CreateBucketWithName(ctx, org, b.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * 30, // 30 days
	})
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", b.cfg.Bucket, err)
	}
	return nil
}

func (b *Influx) openBackup() error {
	if b.backupDir == "" {
		return fmt.Errorf("influxdb unreachable and no backup directory configured")
	}
	if err := os.MkdirAll(b.backupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	b.backupPath = filepath.Join(b.backupDir, fmt.Sprintf("ticks_%s.lp.gz", b.session))
	file, err := os.OpenFile(b.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.backupWriter = gzip.NewWriter(file)
	return nil
}

// TickPoint converts tick stats into an influx point.
func TickPoint(session string, s core.TickStats) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		Measurement,
		map[string]string{
			"session": session,
		},
		map[string]any{
			"tick":          int64(s.Tick),
			"duration_us":   s.Duration.Microseconds(),
			"targets":       s.Targets,
			"on_screen":     s.OnScreen,
			"off_screen":    s.OffScreen,
			"behind_camera": s.BehindCamera,
			"culled":        s.Culled,
			"hidden":        s.Hidden,
			"pruned":        s.Pruned,
			"dropped":       s.Dropped,
			"markers":       s.MarkersActive,
			"pool_idle":     s.PoolIdle,
		},
		s.Time,
	)
}

func (b *Influx) Record(s core.TickStats) error {
	point := TickPoint(b.session, s)
	if b.writer != nil {
		b.writer.WritePoint(point)
		return nil
	}
	if b.backupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := b.backupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

func (b *Influx) Flush(context.Context) error {
	if b.writer != nil {
		b.writer.Flush()
	}
	if b.backupWriter != nil {
		return b.backupWriter.Flush()
	}
	return nil
}

func (b *Influx) Close() error {
	if b.client != nil {
		b.writer.Flush()
		b.client.Close()
		b.client = nil
		b.writer = nil
	}
	if b.backupWriter != nil {
		if err := b.backupWriter.Close(); err != nil {
			return fmt.Errorf("closing backup writer: %w", err)
		}
		b.backupWriter = nil
		if err := b.backupFile.Close(); err != nil {
			return fmt.Errorf("closing backup file: %w", err)
		}
		b.log.Info().Str("path", b.backupPath).Msg("InfluxDB backup written")
	}
	return nil
}

// ExportPath returns the backup file when the server was unreachable.
func (b *Influx) ExportPath() string {
	return b.backupPath
}
