// Package app builds the long-lived dependencies once and hands them out.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/stage-app/engine/internal/exchange"
	"github.com/stage-app/engine/internal/live"
	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/repository"
	"github.com/stage-app/engine/internal/settings"
	"github.com/stage-app/engine/pkg/config"
	"github.com/stage-app/engine/pkg/database"
	"github.com/stage-app/engine/pkg/logger"
	"github.com/stage-app/engine/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const notInitialized = "app: provider used before Init"

// Provider owns the database handle, repositories and settings store.
// Init must succeed before any accessor is called.
type Provider struct {
	once  sync.Once
	err   error
	ready atomic.Bool

	cfg      *config.Config
	db       *gorm.DB
	rdb      redis.UniversalClient
	notifier *live.Notifier
	hasher   utils.PasswordHasher
	users    repository.UserRepository
	posts    repository.PostRepository
	cars     repository.CarDetailsRepository
	rates    *exchange.Repository
	prefs    *settings.Preferences
}

func New() *Provider { return &Provider{} }

// Init opens the store, checks the schema and wires everything. Later calls
// return the result of the first one.
func (p *Provider) Init(ctx context.Context, cfg *config.Config) error {
	p.once.Do(func() {
		p.err = p.init(ctx, cfg)
		if p.err != nil {
			p.release()
			return
		}
		p.ready.Store(true)
	})
	return p.err
}

func (p *Provider) init(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return errors.New("app: nil config")
	}
	p.cfg = cfg
	log := logger.Named("app")

	db, err := database.Open(ctx, database.Options{
		Driver: cfg.DBDriver,
		DSN:    cfg.DatabaseURL,
		Env:    cfg.AppEnv,
		Logger: logger.Named("gorm"),
	})
	if err != nil {
		return err
	}
	p.db = db

	res, err := database.Migrate(ctx, db, models.SchemaVersion, models.All()...)
	if err != nil {
		return err
	}
	if res.Recreated {
		log.Warn("schema version changed, tables recreated",
			zap.Int("from", res.PreviousVersion), zap.Int("to", res.Version))
	}

	p.hasher, err = utils.NewPasswordHasher(cfg.PasswordScheme)
	if err != nil {
		return err
	}
	p.notifier = live.NewNotifier()
	p.users = repository.NewUserRepository(db, p.notifier, p.hasher)
	p.posts = repository.NewPostRepository(db, p.notifier)
	p.cars = repository.NewCarDetailsRepository(db, p.notifier)

	client, err := exchange.NewClient(cfg.ExchangeRateBaseURL, cfg.ExchangeRateTimeout)
	if err != nil {
		return err
	}
	p.rates = exchange.NewRepository(client, exchange.FallbackTable{}, logger.Named("exchange"))

	backend, err := p.settingsBackend(ctx, cfg)
	if err != nil {
		return err
	}
	p.prefs = settings.NewPreferences(backend, logger.Named("settings"))

	log.Info("app initialized",
		zap.String("db_driver", cfg.DBDriver),
		zap.String("settings_backend", cfg.SettingsBackend),
		zap.Int("schema_version", res.Version))
	return nil
}

func (p *Provider) settingsBackend(ctx context.Context, cfg *config.Config) (settings.Backend, error) {
	if cfg.SettingsBackend != "redis" {
		return settings.NewMemoryBackend(), nil
	}
	rdb := settings.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	p.rdb = rdb
	return settings.NewRedisBackend(rdb, cfg.SettingsKey), nil
}

func (p *Provider) must() {
	if !p.ready.Load() {
		panic(notInitialized)
	}
}

func (p *Provider) Config() *config.Config                      { p.must(); return p.cfg }
func (p *Provider) DB() *gorm.DB                                { p.must(); return p.db }
func (p *Provider) Notifier() *live.Notifier                    { p.must(); return p.notifier }
func (p *Provider) Users() repository.UserRepository            { p.must(); return p.users }
func (p *Provider) Posts() repository.PostRepository            { p.must(); return p.posts }
func (p *Provider) CarDetails() repository.CarDetailsRepository { p.must(); return p.cars }
func (p *Provider) Rates() *exchange.Repository                 { p.must(); return p.rates }
func (p *Provider) Preferences() *settings.Preferences          { p.must(); return p.prefs }

// Ping checks the database and, when configured, redis.
func (p *Provider) Ping(ctx context.Context) error {
	p.must()
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if p.rdb != nil {
		if err := p.rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases the database handle and the redis client.
func (p *Provider) Close() error {
	if !p.ready.Swap(false) {
		return nil
	}
	return p.release()
}

func (p *Provider) release() error {
	var errs []error
	if p.rdb != nil {
		errs = append(errs, p.rdb.Close())
		p.rdb = nil
	}
	if p.db != nil {
		errs = append(errs, database.Close(p.db))
		p.db = nil
	}
	return errors.Join(errs...)
}
