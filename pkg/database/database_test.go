package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mysql"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestMigrateRecreatesOnVersionChange(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stage.db")

	db, err := Open(ctx, Options{Driver: DriverSQLite, DSN: path, Env: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	res, err := Migrate(ctx, db, 1, &widget{})
	require.NoError(t, err)
	require.False(t, res.Recreated)
	require.NoError(t, db.Create(&widget{Name: "kept"}).Error)

	t.Run("same version keeps rows", func(t *testing.T) {
		res, err := Migrate(ctx, db, 1, &widget{})
		require.NoError(t, err)
		require.False(t, res.Recreated)
		var n int64
		require.NoError(t, db.Model(&widget{}).Count(&n).Error)
		require.EqualValues(t, 1, n)
	})

	t.Run("new version drops rows", func(t *testing.T) {
		res, err := Migrate(ctx, db, 2, &widget{})
		require.NoError(t, err)
		require.True(t, res.Recreated)
		require.Equal(t, 1, res.PreviousVersion)
		var n int64
		require.NoError(t, db.Model(&widget{}).Count(&n).Error)
		require.Zero(t, n)
	})
}

func TestBackoffCapped(t *testing.T) {
	b := backoff{maxRetries: 5, delay: 500 * time.Millisecond, maxDelay: 5 * time.Second}
	require.Equal(t, 500*time.Millisecond, b.nextDelay(0))
	require.Equal(t, 2*time.Second, b.nextDelay(2))
	require.Equal(t, 5*time.Second, b.nextDelay(4))
}
