package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/OCAP2/indicator/pkg/core"
)

const (
	gormBatchSize = 256
	// rows kept while the database is unreachable; older ones are dropped
	gormMaxPending = 64 * gormBatchSize
)

// TickSample is the database row for one processed tick. Classification
// counts live in Breakdown so new classes do not need a migration.
type TickSample struct {
	ID             uint      `gorm:"primaryKey"`
	Session        string    `gorm:"size:64;index:idx_session_tick"`
	Tick           uint64    `gorm:"index:idx_session_tick"`
	Time           time.Time `gorm:"index"`
	DurationMicros int64
	Targets        int
	MarkersActive  int
	PoolIdle       int
	Dropped        int
	Pruned         int
	Breakdown      datatypes.JSON
}

// TableName pins the table name regardless of naming strategy.
func (TickSample) TableName() string {
	return "tick_samples"
}

// breakdown is the JSON shape of TickSample.Breakdown.
type breakdown struct {
	OnScreen     int `json:"onScreen"`
	OffScreen    int `json:"offScreen"`
	BehindCamera int `json:"behindCamera"`
	Culled       int `json:"culled"`
	Hidden       int `json:"hidden"`
}

func newTickSample(session string, s core.TickStats) (TickSample, error) {
	b, err := json.Marshal(breakdown{
		OnScreen:     s.OnScreen,
		OffScreen:    s.OffScreen,
		BehindCamera: s.BehindCamera,
		Culled:       s.Culled,
		Hidden:       s.Hidden,
	})
	if err != nil {
		return TickSample{}, err
	}
	return TickSample{
		Session:        session,
		Tick:           s.Tick,
		Time:           s.Time.UTC(),
		DurationMicros: s.Duration.Microseconds(),
		Targets:        s.Targets,
		MarkersActive:  s.MarkersActive,
		PoolIdle:       s.PoolIdle,
		Dropped:        s.Dropped,
		Pruned:         s.Pruned,
		Breakdown:      datatypes.JSON(b),
	}, nil
}

// Sample converts a row back into the backend-neutral form.
func (t TickSample) Sample() (Sample, error) {
	var b breakdown
	if len(t.Breakdown) > 0 {
		if err := json.Unmarshal(t.Breakdown, &b); err != nil {
			return Sample{}, fmt.Errorf("decoding breakdown of tick %d: %w", t.Tick, err)
		}
	}
	return Sample{
		Session:       t.Session,
		Tick:          t.Tick,
		Time:          t.Time,
		Duration:      time.Duration(t.DurationMicros) * time.Microsecond,
		Targets:       t.Targets,
		OnScreen:      b.OnScreen,
		OffScreen:     b.OffScreen,
		BehindCamera:  b.BehindCamera,
		Culled:        b.Culled,
		Hidden:        b.Hidden,
		Pruned:        t.Pruned,
		Dropped:       t.Dropped,
		MarkersActive: t.MarkersActive,
		PoolIdle:      t.PoolIdle,
	}, nil
}

// gormRecorder buffers rows and hands full batches to a writer goroutine,
// so Record never waits on the database. The sqlite and postgres backends
// embed it and only differ in how the DB is opened.
type gormRecorder struct {
	db      *gorm.DB
	session string
	log     zerolog.Logger

	mu      sync.Mutex
	pending []TickSample
	// writeMu serializes writes from the writer goroutine and Flush
	writeMu sync.Mutex

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func (g *gormRecorder) migrate() error {
	if err := g.db.AutoMigrate(&TickSample{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (g *gormRecorder) startWriter() {
	g.mu.Lock()
	g.wake = make(chan struct{}, 1)
	g.mu.Unlock()
	g.stop = make(chan struct{})
	g.done = make(chan struct{})
	go g.writeLoop(g.wake)
}

func (g *gormRecorder) stopWriter() {
	if g.stop == nil {
		return
	}
	close(g.stop)
	<-g.done
	g.stop = nil
	g.mu.Lock()
	g.wake = nil
	g.mu.Unlock()
}

func (g *gormRecorder) writeLoop(wake <-chan struct{}) {
	defer close(g.done)
	for {
		select {
		case <-g.stop:
			return
		case <-wake:
			if err := g.Flush(context.Background()); err != nil {
				g.log.Error().Err(err).Msg("Error writing tick samples, will retry")
			}
		}
	}
}

func (g *gormRecorder) Record(s core.TickStats) error {
	row, err := newTickSample(g.session, s)
	if err != nil {
		return fmt.Errorf("building tick sample: %w", err)
	}

	g.mu.Lock()
	g.pending = append(g.pending, row)
	if over := len(g.pending) - gormMaxPending; over > 0 {
		g.pending = append(g.pending[:0], g.pending[over:]...)
		g.log.Warn().Int("dropped", over).Msg("Tick sample backlog full, dropping oldest rows")
	}
	full := len(g.pending) >= gormBatchSize
	wake := g.wake
	g.mu.Unlock()

	if full && wake != nil {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Flush writes every pending row. Rows of a failed write stay pending and
// are retried by the next Flush.
func (g *gormRecorder) Flush(ctx context.Context) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	g.mu.Lock()
	batch := g.pending
	g.pending = nil
	g.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	start := time.Now()
	if err := g.db.WithContext(ctx).CreateInBatches(batch, gormBatchSize).Error; err != nil {
		g.mu.Lock()
		g.pending = append(batch, g.pending...)
		g.mu.Unlock()
		return fmt.Errorf("writing %d tick samples: %w", len(batch), err)
	}
	g.log.Debug().Int("rows", len(batch)).Dur("duration", time.Since(start)).Msg("Flushed tick samples")
	return nil
}

// Samples reads back every row of this session in tick order.
func (g *gormRecorder) Samples(ctx context.Context) ([]Sample, error) {
	var rows []TickSample
	err := g.db.WithContext(ctx).
		Where("session = ?", g.session).
		Order("tick").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("reading tick samples: %w", err)
	}

	out := make([]Sample, 0, len(rows))
	for _, r := range rows {
		s, err := r.Sample()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (g *gormRecorder) closeDB() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
