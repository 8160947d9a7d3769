package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options configures Open.
type Options struct {
	Driver string
	DSN    string
	// Env selects the SQL log level: development and test log warnings, others stay silent.
	Env    string
	Logger *zap.Logger
}

// Open opens a gorm handle for the configured driver with retry, pooling and a ping.
func Open(ctx context.Context, opts Options) (*gorm.DB, error) {
	switch opts.Driver {
	case DriverSQLite:
		return OpenSQLite(ctx, opts)
	case DriverPostgres:
		return OpenPostgres(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// OpenPostgres opens a Gorm PostgreSQL connection with retry and sane pooling defaults.
func OpenPostgres(ctx context.Context, opts Options) (*gorm.DB, error) {
	db, err := openWithRetry(ctx, postgres.Open(opts.DSN), opts)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return configurePool(ctx, db, 25)
}

// OpenSQLite opens the file-backed store. ":memory:" gives a private database
// that lives as long as the handle.
func OpenSQLite(ctx context.Context, opts Options) (*gorm.DB, error) {
	dsn := opts.DSN
	if !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := openWithRetry(ctx, sqlite.Open(dsn), opts)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers and keeps an in-memory database shared.
	return configurePool(ctx, db, 1)
}

func openWithRetry(ctx context.Context, dialector gorm.Dialector, opts Options) (*gorm.DB, error) {
	logLevel := gormlogger.Silent
	if opts.Env == "development" || opts.Env == "test" {
		logLevel = gormlogger.Warn
	}
	zl := opts.Logger
	if zl == nil {
		zl = zap.NewNop()
	}

	b := backoff{
		maxRetries: 5,
		delay:      500 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}

	for attempt := 0; ; attempt++ {
		db, err := gorm.Open(dialector, &gorm.Config{
			Logger:         gormLogger{zap: zl, level: logLevel},
			TranslateError: true,
		})
		if err == nil {
			return db, nil
		}
		if attempt >= b.maxRetries {
			return nil, fmt.Errorf("failed after retries: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("canceled: %w", ctx.Err())
		case <-time.After(b.nextDelay(attempt)):
		}
	}
}

func configurePool(ctx context.Context, db *gorm.DB, maxOpen int) (*gorm.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db db() error: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	if maxOpen > 1 {
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctxPing); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type backoff struct {
	maxRetries int
	delay      time.Duration
	maxDelay   time.Duration
}

func (b backoff) nextDelay(attempt int) time.Duration {
	d := b.delay << attempt
	if d > b.maxDelay {
		return b.maxDelay
	}
	return d
}
