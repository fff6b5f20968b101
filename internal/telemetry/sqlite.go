package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/OCAP2/indicator/internal/config"
)

// SQLite records into a sqlite file, or into an in-memory database that is
// periodically dumped to OutputDir with VACUUM INTO.
type SQLite struct {
	gormRecorder
	cfg      config.SQLiteConfig
	dumpPath string
	stopChan chan struct{}
	done     chan struct{}
}

// NewSQLite creates a sqlite recorder.
func NewSQLite(cfg config.SQLiteConfig, session string, log zerolog.Logger) *SQLite {
	return &SQLite{
		gormRecorder: gormRecorder{session: session, log: log},
		cfg:          cfg,
	}
}

func (b *SQLite) Init() error {
	dsn := b.cfg.Path
	if dsn == "" {
		// named so that recorders of different sessions never share a cache
		dsn = fmt.Sprintf("file:indicator_%s?mode=memory&cache=shared", b.session)
	}

	db, err := openSQLite(dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite: %w", err)
	}
	b.db = db
	if err := b.migrate(); err != nil {
		return err
	}
	b.startWriter()

	if b.cfg.Path == "" && b.cfg.OutputDir != "" {
		if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		b.dumpPath = filepath.Join(b.cfg.OutputDir, fmt.Sprintf("ticks_%s.db", b.session))
		if b.cfg.DumpInterval > 0 {
			b.stopChan = make(chan struct{})
			b.done = make(chan struct{})
			go b.dumpLoop()
		}
	}

	if b.cfg.Path != "" {
		b.log.Info().Str("path", b.cfg.Path).Msg("Using local SQLite DB")
	} else {
		b.log.Info().Msg("Using local SQLite DB in memory with periodic disk dump")
	}
	return nil
}

// Close flushes pending rows, writes a final dump for in-memory databases
// and closes the connection.
func (b *SQLite) Close() error {
	if b.db == nil {
		return nil
	}
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	b.stopWriter()

	var errs []error
	if err := b.Flush(context.Background()); err != nil {
		errs = append(errs, err)
	}
	if b.dumpPath != "" {
		if err := b.Dump(); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, b.closeDB())
	b.db = nil
	return errors.Join(errs...)
}

// ExportPath returns the dump file of an in-memory database, if any.
func (b *SQLite) ExportPath() string {
	return b.dumpPath
}

// Dump snapshots the database to the dump path.
func (b *SQLite) Dump() error {
	if b.dumpPath == "" {
		return fmt.Errorf("sqlite dump path not set")
	}
	return dumpToDisk(b.db, b.dumpPath)
}

func (b *SQLite) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Flush(context.Background()); err != nil {
				b.log.Error().Err(err).Msg("Error flushing before dump")
			}
			if err := b.Dump(); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			} else {
				b.log.Debug().Dur("duration", time.Since(start)).Msg("Dumped memory DB to disk")
			}
		}
	}
}

func openSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        gormBatchSize,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// dumpToDisk replaces path with a point-in-time copy of db.
func dumpToDisk(db *gorm.DB, path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}
	target := "file:" + strings.ReplaceAll(path, "'", "''")
	if err := db.Exec("VACUUM INTO '" + target + "';").Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}
