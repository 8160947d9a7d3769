package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/pkg/config"
	"github.com/stage-app/engine/pkg/database"
	"github.com/stage-app/engine/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	reset := flag.Bool("reset", false, "drop and recreate every table")
	flag.Parse()

	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		Driver: cfg.DBDriver,
		DSN:    cfg.DatabaseURL,
		Env:    cfg.AppEnv,
		Logger: logger.Named("gorm"),
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if *reset {
		if err := db.Migrator().DropTable(models.All()...); err != nil {
			log.Fatal("drop tables failed", zap.Error(err))
		}
		log.Warn("tables dropped")
	}

	res, err := database.Migrate(ctx, db, models.SchemaVersion, models.All()...)
	if err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	if err := runCustomMigrations(db); err != nil {
		log.Fatal("custom migrations failed", zap.Error(err))
	}

	log.Info("schema ready",
		zap.Int("previous_version", res.PreviousVersion),
		zap.Int("version", res.Version),
		zap.Bool("recreated", res.Recreated))
	fmt.Fprintln(os.Stdout, "migrations completed")
}
