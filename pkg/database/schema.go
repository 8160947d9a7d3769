package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// schemaMeta is a single-row table recording the schema version the tables were built for.
type schemaMeta struct {
	ID        int `gorm:"primaryKey;autoIncrement:false"`
	Version   int `gorm:"not null"`
	UpdatedAt time.Time
}

func (schemaMeta) TableName() string { return "schema_meta" }

// MigrateResult reports what Migrate did.
type MigrateResult struct {
	PreviousVersion int
	Version         int
	Recreated       bool
}

// Migrate brings the tables for models to version. When the stored version
// differs, every model table is dropped and rebuilt; data is not carried over.
func Migrate(ctx context.Context, db *gorm.DB, version int, models ...any) (MigrateResult, error) {
	res := MigrateResult{Version: version}
	tx := db.WithContext(ctx)

	if err := tx.AutoMigrate(&schemaMeta{}); err != nil {
		return res, fmt.Errorf("migrate schema_meta: %w", err)
	}

	var meta schemaMeta
	err := tx.First(&meta, "id = ?", 1).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return res, fmt.Errorf("read schema version: %w", err)
	default:
		res.PreviousVersion = meta.Version
	}

	if res.PreviousVersion != 0 && res.PreviousVersion != version {
		if err := tx.Migrator().DropTable(models...); err != nil {
			return res, fmt.Errorf("drop tables for version %d: %w", version, err)
		}
		res.Recreated = true
	}

	if err := tx.AutoMigrate(models...); err != nil {
		return res, fmt.Errorf("auto-migrate: %w", err)
	}

	meta = schemaMeta{ID: 1, Version: version}
	if err := tx.Save(&meta).Error; err != nil {
		return res, fmt.Errorf("write schema version: %w", err)
	}
	return res, nil
}
