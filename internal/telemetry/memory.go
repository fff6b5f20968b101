package telemetry

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/OCAP2/indicator/internal/config"
	"github.com/OCAP2/indicator/pkg/core"
)

const defaultMemoryCapacity = 4096

// Export is the JSON document written by the memory backend.
type Export struct {
	Session string    `json:"session"`
	Started time.Time `json:"started"`
	// Evicted counts samples dropped from the ring before export.
	Evicted int      `json:"evicted"`
	Samples []Sample `json:"samples"`
}

// Memory keeps the most recent samples in a ring and writes them as JSON on
// Close.
type Memory struct {
	cfg     config.MemoryConfig
	session string
	log     zerolog.Logger

	mu      sync.Mutex
	ring    []Sample
	next    int
	full    bool
	evicted int
	started time.Time

	lastExportPath string
}

// NewMemory creates an in-memory recorder.
func NewMemory(cfg config.MemoryConfig, session string, log zerolog.Logger) *Memory {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultMemoryCapacity
	}
	return &Memory{
		cfg:     cfg,
		session: session,
		log:     log,
		ring:    make([]Sample, cfg.Capacity),
	}
}

func (m *Memory) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = time.Now().UTC()
	return nil
}

func (m *Memory) Record(s core.TickStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		m.evicted++
	}
	m.ring[m.next] = NewSample(m.session, s)
	m.next++
	if m.next == len(m.ring) {
		m.next = 0
		m.full = true
	}
	return nil
}

// Samples returns the retained samples, oldest first.
func (m *Memory) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.samplesLocked()
}

func (m *Memory) samplesLocked() []Sample {
	if !m.full {
		return append([]Sample(nil), m.ring[:m.next]...)
	}
	out := make([]Sample, 0, len(m.ring))
	out = append(out, m.ring[m.next:]...)
	return append(out, m.ring[:m.next]...)
}

// Flush is a no-op; samples are only written on Close.
func (m *Memory) Flush(context.Context) error {
	return nil
}

// Close writes the export file when an output directory is configured.
func (m *Memory) Close() error {
	if m.cfg.OutputDir == "" {
		return nil
	}
	if err := m.exportJSON(); err != nil {
		return err
	}
	m.log.Info().Str("path", m.lastExportPath).Msg("Telemetry exported")
	return nil
}

// ExportPath returns the file written by the last Close.
func (m *Memory) ExportPath() string {
	return m.lastExportPath
}

func (m *Memory) exportJSON() error {
	m.mu.Lock()
	export := Export{
		Session: m.session,
		Started: m.started,
		Evicted: m.evicted,
		Samples: m.samplesLocked(),
	}
	m.mu.Unlock()

	timestamp := export.Started.Format("20060102_150405")
	filename := fmt.Sprintf("ticks_%s_%s.json", timestamp, m.session)
	if m.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(m.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(m.cfg.OutputDir, filename)
	if err := writeJSON(outputPath, m.cfg.CompressOutput, export); err != nil {
		return err
	}
	m.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, compress bool, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if !compress {
		return json.NewEncoder(f).Encode(data)
	}

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
