package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/saradorri/cardgame/internal/config"
	"github.com/saradorri/cardgame/internal/domain"
	"github.com/saradorri/cardgame/internal/infrastructure/lock"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	// registers the pure-Go "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the settings needed to open the store
type Config struct {
	Driver          string
	Path            string
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
	LockTimeout     time.Duration
	SlowThreshold   time.Duration
	TraceSQL        bool
	AllowReset      bool
}

// NewConfig maps application configuration onto database settings
func NewConfig(cfg *config.Config) *Config {
	return &Config{
		Driver:          cfg.Database.Driver,
		Path:            cfg.Database.Path,
		DSN:             cfg.GetDSN(),
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		BusyTimeout:     cfg.Database.BusyTimeout,
		LockTimeout:     cfg.Database.LockTimeout,
		SlowThreshold:   cfg.Database.SlowThreshold,
		TraceSQL:        cfg.Log.SQL,
		AllowReset:      cfg.Database.AllowReset,
	}
}

// Database is the process-wide handle on the relational store
type Database struct {
	DB     *gorm.DB
	config *Config
	gate   *lock.Gate
	logger *logger.Logger
}

// SyncOptions controls schema synchronization
type SyncOptions struct {
	// Force drops every table before recreating it
	Force bool
}

// NewDatabase opens the store described by cfg and prepares the junction model
func NewDatabase(cfg *Config, log *logger.Logger) (*Database, error) {
	log = log.Named("database")

	dialector, err := newDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                   log.Gorm(cfg.TraceSQL, cfg.SlowThreshold),
		DisableNestedTransaction: true,
	})
	if err != nil {
		log.Error("Failed to open database", zap.String("driver", cfg.Driver), zap.Error(err))
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.SetupJoinTable(&domain.Card{}, "Attacks", &domain.CardAttack{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to set up card attacks join table: %w", err)
	}
	if err := db.SetupJoinTable(&domain.Attack{}, "Cards", &domain.CardAttack{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to set up attack cards join table: %w", err)
	}

	log.Info("Database connected", zap.String("driver", cfg.Driver))
	return &Database{
		DB:     db,
		config: cfg,
		gate:   lock.NewGate(cfg.LockTimeout, log),
		logger: log,
	}, nil
}

func newDialector(cfg *Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("database path is required for the %s driver", DriverSQLite)
		}
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.New(sqlite.Config{DriverName: DriverSQLite, DSN: sqliteDSN(cfg)}), nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database dsn is required for the %s driver", DriverPostgres)
		}
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN enables foreign keys on every pooled connection and starts
// transactions with BEGIN IMMEDIATE so concurrent writers queue on the
// busy timeout instead of failing at lock upgrade
func sqliteDSN(cfg *Config) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Set("_txlock", "immediate")
	return filepath.Clean(cfg.Path) + "?" + params.Encode()
}

// GetDB returns the underlying gorm handle
func (d *Database) GetDB() *gorm.DB {
	return d.DB
}

// WithContext returns a session bound to ctx for read-only work
func (d *Database) WithContext(ctx context.Context) *gorm.DB {
	return d.DB.WithContext(ctx)
}

// Mutate runs fn in a transaction while holding a shared slot of the reset
// gate. The transaction rolls back if fn returns an error or panics.
// Store constraint failures come back as *domain.IntegrityError.
func (d *Database) Mutate(ctx context.Context, fn func(tx *gorm.DB) error) error {
	release, err := d.gate.Shared(ctx)
	if err != nil {
		return err
	}
	defer release()

	return TranslateError(d.DB.WithContext(ctx).Transaction(fn))
}

// Sync creates any missing tables, columns, indexes and constraints. With
// Force it first drops every table, which requires AllowReset and waits
// for in-flight mutations to finish.
func (d *Database) Sync(ctx context.Context, opts SyncOptions) error {
	if opts.Force && !d.config.AllowReset {
		d.logger.Warn("Refusing forced schema sync without allowReset")
		return domain.ErrResetNotAllowed
	}

	release, err := d.gate.Exclusive(ctx)
	if err != nil {
		return err
	}
	defer release()

	db := d.DB.WithContext(ctx)
	if opts.Force {
		d.logger.Warn("Dropping all tables")
		if err := db.Migrator().DropTable(domain.Models()...); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
	}

	if err := db.AutoMigrate(domain.Models()...); err != nil {
		d.logger.Error("Schema sync failed", zap.Error(err))
		return fmt.Errorf("failed to sync schema: %w", err)
	}

	d.logger.Info("Schema synchronized", zap.Bool("force", opts.Force))
	return nil
}

// Ping checks that the store is reachable
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases every pooled connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	d.logger.Info("Closing database")
	return sqlDB.Close()
}
