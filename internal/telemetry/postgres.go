package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/OCAP2/indicator/internal/config"
)

// Postgres records into a postgres database.
type Postgres struct {
	gormRecorder
	cfg config.PostgresConfig
}

// NewPostgres creates a postgres recorder. Nothing is dialed until Init.
func NewPostgres(cfg config.PostgresConfig, session string, log zerolog.Logger) *Postgres {
	return &Postgres{
		gormRecorder: gormRecorder{session: session, log: log},
		cfg:          cfg,
	}
}

// DSN returns the connection string built from the config.
func (b *Postgres) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		b.cfg.Host, b.cfg.Port, b.cfg.Username, b.cfg.Password, b.cfg.Database)
}

func (b *Postgres) Init() error {
	b.log.Debug().Str("host", b.cfg.Host).Str("database", b.cfg.Database).Msg("Connecting to Postgres DB")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  b.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        gormBatchSize,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.db = db

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)

	if err := b.migrate(); err != nil {
		return err
	}
	b.startWriter()
	b.log.Info().Msg("Connected to database")
	return nil
}

func (b *Postgres) Close() error {
	if b.db == nil {
		return nil
	}
	b.stopWriter()
	err := errors.Join(b.Flush(context.Background()), b.closeDB())
	b.db = nil
	return err
}
