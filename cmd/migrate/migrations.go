package main

import (
	"gorm.io/gorm"
)

// runCustomMigrations adds indexes AutoMigrate can't express. Each statement
// is valid on both SQLite and PostgreSQL.
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addPostFeedIndex,
		addUserPostsIndex,
		addCarDetailsIndexes,
	}
	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}
	return nil
}

// addPostFeedIndex backs the newest-first active listing feed.
func addPostFeedIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_posts_active_created
		ON posts(is_active, created_at DESC, id DESC)
	`).Error
}

// addUserPostsIndex backs profile listings and counts.
func addUserPostsIndex(db *gorm.DB) error {
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_posts_user_active ON posts(user_id, is_active)`).Error
}

func addCarDetailsIndexes(db *gorm.DB) error {
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_car_details_vin ON car_details(vin)`,
		`CREATE INDEX IF NOT EXISTS idx_car_details_year ON car_details(year)`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
