package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stage-app/engine/internal/live"
	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/pkg/database"
	appErr "github.com/stage-app/engine/pkg/errors"
	"github.com/stage-app/engine/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func TestMain(m *testing.M) {
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) (*gorm.DB, *live.Notifier) {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{Driver: database.DriverSQLite, DSN: ":memory:", Env: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	_, err = database.Migrate(ctx, db, models.SchemaVersion, models.All()...)
	require.NoError(t, err)
	return db, live.NewNotifier()
}

func ptr[T any](v T) *T { return &v }

func titles(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestBaseRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	db, n := newTestDB(t)
	repo := NewBaseRepository[models.User](db, n, "users")

	changed, unwatch := n.Watch("users")
	defer unwatch()

	u := &models.User{Name: "Ana", Email: "ana@x.com", Password: "secret1"}
	require.NoError(t, repo.Create(ctx, u))
	require.Positive(t, u.ID)
	select {
	case <-changed:
	case <-time.After(timeout):
		t.Fatal("create did not publish")
	}

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "ana@x.com", got.Email)

	got.Name = "Ana Pop"
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana Pop", got.Name)

	c, err := repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, c)

	require.NoError(t, repo.Delete(ctx, u.ID))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	err = repo.Delete(ctx, u.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}
