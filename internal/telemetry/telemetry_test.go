package telemetry

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/indicator/internal/config"
	"github.com/OCAP2/indicator/pkg/core"
)

var epoch = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func stats(tick uint64) core.TickStats {
	return core.TickStats{
		Tick:          tick,
		Time:          epoch.Add(time.Duration(tick) * 100 * time.Millisecond),
		Duration:      time.Duration(tick) * time.Microsecond,
		Targets:       5,
		OnScreen:      2,
		OffScreen:     1,
		BehindCamera:  1,
		Culled:        1,
		Dropped:       int(tick % 2),
		MarkersActive: 4,
		PoolIdle:      28,
	}
}

func TestNewRecorder_Types(t *testing.T) {
	cfg := config.TelemetryConfig{Type: "none"}
	r, err := NewRecorder(cfg, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.IsType(t, nopRecorder{}, r)

	for typ, want := range map[string]Recorder{
		"memory":   &Memory{},
		"sqlite":   &SQLite{},
		"postgres": &Postgres{},
		"influx":   &Influx{},
	} {
		cfg.Type = typ
		r, err := NewRecorder(cfg, Options{Logger: zerolog.Nop()})
		require.NoError(t, err, typ)
		assert.IsType(t, want, r, typ)
	}

	cfg.Type = "kafka"
	_, err = NewRecorder(cfg, Options{})
	assert.EqualError(t, err, "unknown telemetry type: kafka")
}

func TestNewRecorder_GeneratesSession(t *testing.T) {
	r, err := NewRecorder(config.TelemetryConfig{Type: "memory"}, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = uuid.Parse(r.(*Memory).session)
	assert.NoError(t, err)
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = nopRecorder{}
	assert.NoError(t, r.Init())
	assert.NoError(t, r.Record(stats(1)))
	assert.NoError(t, r.Flush(context.Background()))
	assert.NoError(t, r.Close())
}

func TestMemory_RingKeepsNewest(t *testing.T) {
	m := NewMemory(config.MemoryConfig{Capacity: 3}, "s1", zerolog.Nop())
	require.NoError(t, m.Init())

	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, m.Record(stats(i)))
	}

	samples := m.Samples()
	require.Len(t, samples, 3)
	assert.Equal(t, []uint64{3, 4, 5}, []uint64{samples[0].Tick, samples[1].Tick, samples[2].Tick})
	assert.Equal(t, "s1", samples[0].Session)
	assert.Equal(t, 2, m.evicted)
}

func TestMemory_CloseWithoutOutputDir(t *testing.T) {
	m := NewMemory(config.MemoryConfig{}, "s1", zerolog.Nop())
	require.NoError(t, m.Init())
	require.NoError(t, m.Record(stats(1)))

	require.NoError(t, m.Close())
	assert.Empty(t, m.ExportPath())
}

func TestMemory_ExportGzip(t *testing.T) {
	dir := t.TempDir()
	m := NewMemory(config.MemoryConfig{OutputDir: dir, CompressOutput: true, Capacity: 8}, "s1", zerolog.Nop())
	require.NoError(t, m.Init())
	require.NoError(t, m.Record(stats(1)))
	require.NoError(t, m.Record(stats(2)))

	require.NoError(t, m.Close())

	path := m.ExportPath()
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".gz", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export Export
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, "s1", export.Session)
	require.Len(t, export.Samples, 2)
	if diff := cmp.Diff(NewSample("s1", stats(2)), export.Samples[1]); diff != "" {
		t.Errorf("sample mismatch (-want +got):\n%s", diff)
	}
}

func TestMemory_ExportPlain(t *testing.T) {
	dir := t.TempDir()
	m := NewMemory(config.MemoryConfig{OutputDir: dir}, "s2", zerolog.Nop())
	require.NoError(t, m.Init())
	require.NoError(t, m.Record(stats(1)))
	require.NoError(t, m.Close())

	data, err := os.ReadFile(m.ExportPath())
	require.NoError(t, err)
	var export Export
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Len(t, export.Samples, 1)
}

func TestTickSample_RoundTrip(t *testing.T) {
	row, err := newTickSample("s1", stats(3))
	require.NoError(t, err)

	got, err := row.Sample()
	require.NoError(t, err)
	if diff := cmp.Diff(NewSample("s1", stats(3)), got); diff != "" {
		t.Errorf("sample mismatch (-want +got):\n%s", diff)
	}
}

func newSQLite(t *testing.T, cfg config.SQLiteConfig) *SQLite {
	t.Helper()
	b := NewSQLite(cfg, uuid.NewString(), zerolog.Nop())
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSQLite_InMemoryRecordAndRead(t *testing.T) {
	b := newSQLite(t, config.SQLiteConfig{})

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, b.Record(stats(i)))
	}
	require.NoError(t, b.Flush(context.Background()))

	samples, err := b.Samples(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, uint64(1), samples[0].Tick)
	assert.Equal(t, 2, samples[2].OnScreen)
	assert.Equal(t, 1, samples[1].Dropped)
	assert.True(t, samples[0].Time.Equal(stats(1).Time))
}

func TestSQLite_SessionsAreIsolated(t *testing.T) {
	a := newSQLite(t, config.SQLiteConfig{})
	b := newSQLite(t, config.SQLiteConfig{})

	require.NoError(t, a.Record(stats(1)))
	require.NoError(t, a.Flush(context.Background()))

	samples, err := b.Samples(context.Background())
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestSQLite_AutoFlushOnBatch(t *testing.T) {
	b := newSQLite(t, config.SQLiteConfig{})

	for i := uint64(1); i <= gormBatchSize; i++ {
		require.NoError(t, b.Record(stats(i)))
	}

	assert.Eventually(t, func() bool {
		var count int64
		err := b.db.Model(&TickSample{}).Where("session = ?", b.session).Count(&count).Error
		return err == nil && count == gormBatchSize
	}, 5*time.Second, 10*time.Millisecond, "a full batch is written in the background")
}

func TestSQLite_FailedFlushKeepsBatch(t *testing.T) {
	b := newSQLite(t, config.SQLiteConfig{})
	require.NoError(t, b.db.Migrator().DropTable(&TickSample{}))

	require.NoError(t, b.Record(stats(1)))
	require.NoError(t, b.Record(stats(2)))
	require.Error(t, b.Flush(context.Background()))

	require.NoError(t, b.migrate())
	require.NoError(t, b.Flush(context.Background()))

	samples, err := b.Samples(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, uint64(1), samples[0].Tick)
	assert.Equal(t, uint64(2), samples[1].Tick)
}

func TestSQLite_FileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.db")
	b := NewSQLite(config.SQLiteConfig{Path: path}, "s1", zerolog.Nop())
	require.NoError(t, b.Init())
	require.NoError(t, b.Record(stats(1)))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.Empty(t, b.ExportPath())
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSQLite_DumpOnClose(t *testing.T) {
	dir := t.TempDir()
	b := NewSQLite(config.SQLiteConfig{OutputDir: dir, DumpInterval: time.Hour}, uuid.NewString(), zerolog.Nop())
	require.NoError(t, b.Init())
	require.NoError(t, b.Record(stats(1)))
	require.NoError(t, b.Close())

	dump := b.ExportPath()
	require.NotEmpty(t, dump)

	reopened := NewSQLite(config.SQLiteConfig{Path: dump}, b.session, zerolog.Nop())
	require.NoError(t, reopened.Init())
	t.Cleanup(func() { _ = reopened.Close() })

	samples, err := reopened.Samples(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, uint64(1), samples[0].Tick)
}

func TestSQLite_DumpWithoutPath(t *testing.T) {
	b := newSQLite(t, config.SQLiteConfig{})
	assert.Error(t, b.Dump())
}

func TestPostgres_DSN(t *testing.T) {
	b := NewPostgres(config.PostgresConfig{
		Host: "db", Port: "5433", Username: "u", Password: "p", Database: "indicator",
	}, "s1", zerolog.Nop())

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=indicator sslmode=disable", b.DSN())
	assert.NoError(t, b.Close(), "closing before Init is a no-op")
}

func TestPostgres_InitUnreachable(t *testing.T) {
	b := NewPostgres(config.PostgresConfig{
		Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "indicator",
	}, "s1", zerolog.Nop())

	assert.Error(t, b.Init())
}

func TestInflux_BackupWhenUnreachable(t *testing.T) {
	dir := t.TempDir()
	b := NewInflux(config.InfluxConfig{
		Protocol: "http", Host: "127.0.0.1", Port: "1", Org: "indicator", Bucket: "ticks",
	}, dir, "s1", zerolog.Nop())
	require.NoError(t, b.Init())

	require.NoError(t, b.Record(stats(1)))
	require.NoError(t, b.Record(stats(2)))
	require.NoError(t, b.Flush(context.Background()))
	require.NoError(t, b.Close())

	f, err := os.Open(b.ExportPath())
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], Measurement+",session=s1 ")
	assert.Contains(t, lines[0], "on_screen=2i")
	assert.Contains(t, lines[1], "tick=2i")
}

func TestInflux_UnreachableWithoutBackupDir(t *testing.T) {
	b := NewInflux(config.InfluxConfig{Protocol: "http", Host: "127.0.0.1", Port: "1"}, "", "s1", zerolog.Nop())
	assert.Error(t, b.Init())
	assert.Error(t, b.Record(stats(1)))
}

func TestTickPoint(t *testing.T) {
	p := TickPoint("s1", stats(4))

	assert.Equal(t, Measurement, p.Name())
	assert.Equal(t, stats(4).Time, p.Time())
	require.Len(t, p.TagList(), 1)
	assert.Equal(t, "session", p.TagList()[0].Key)
}
