package repository

import (
	"context"
	"testing"

	"github.com/stage-app/engine/internal/models"
	appErr "github.com/stage-app/engine/pkg/errors"
	"github.com/stage-app/engine/pkg/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	db, n := newTestDB(t)
	users := NewUserRepository(db, n, utils.PlainHasher{})

	id, err := users.Register(ctx, &models.User{Name: "Ana", Email: "ana@x.com", Password: "secret1"})
	require.NoError(t, err)
	require.EqualValues(t, 1, id)

	t.Run("duplicate email is rejected", func(t *testing.T) {
		id, err := users.Register(ctx, &models.User{Name: "Bo", Email: "ana@x.com", Password: "other12"})
		require.NoError(t, err)
		require.Equal(t, NoID, id)

		count, err := users.Count(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1, count)
	})

	t.Run("exact credentials", func(t *testing.T) {
		u, err := users.Login(ctx, "ana@x.com", "secret1")
		require.NoError(t, err)
		require.NotNil(t, u)
		require.EqualValues(t, 1, u.ID)
		require.Equal(t, "Ana", u.Name)
	})

	t.Run("wrong password", func(t *testing.T) {
		u, err := users.Login(ctx, "ana@x.com", "wrong")
		require.NoError(t, err)
		require.Nil(t, u)
	})

	t.Run("unknown email", func(t *testing.T) {
		u, err := users.Login(ctx, "bo@x.com", "secret1")
		require.NoError(t, err)
		require.Nil(t, u)
	})
}

func TestUserRegisterHashesWithBcrypt(t *testing.T) {
	ctx := context.Background()
	db, n := newTestDB(t)
	users := NewUserRepository(db, n, utils.BcryptHasher{Cost: bcrypt.MinCost})

	id, err := users.Register(ctx, &models.User{Name: "Ana", Email: "ana@x.com", Password: "secret1"})
	require.NoError(t, err)

	stored, err := users.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotEqual(t, "secret1", stored.Password)

	u, err := users.Login(ctx, "ana@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, u)
}

func TestUserUpdateDeleteAndLookup(t *testing.T) {
	ctx := context.Background()
	db, n := newTestDB(t)
	users := NewUserRepository(db, n, nil)

	id, err := users.Register(ctx, &models.User{Name: "Ana", Email: "ana@x.com", Password: "secret1"})
	require.NoError(t, err)

	missing, err := users.GetByID(ctx, 99)
	require.NoError(t, err)
	require.Nil(t, missing)

	exists, err := users.ExistsByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	require.True(t, exists)

	u, err := users.GetByID(ctx, id)
	require.NoError(t, err)
	u.Name = "Ana Maria"
	u.Phone = ptr("0700")
	u.Password = "ignored"
	require.NoError(t, users.Update(ctx, u))

	u, err = users.GetByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	require.Equal(t, "Ana Maria", u.Name)
	require.Equal(t, "0700", *u.Phone)
	require.Equal(t, "secret1", u.Password)

	err = users.Update(ctx, &models.User{ID: 42, Name: "ghost", Email: "g@x.com"})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	require.NoError(t, users.Delete(ctx, id))
	require.True(t, appErr.IsCode(users.Delete(ctx, id), appErr.CodeNotFound))
}

func TestUserWatchAll(t *testing.T) {
	ctx := context.Background()
	db, n := newTestDB(t)
	users := NewUserRepository(db, n, nil)

	stream := users.WatchAll(ctx)
	defer stream.Close()
	sub := stream.Subscribe()
	defer sub.Close()

	first := <-sub.C()
	require.NoError(t, first.Err)
	require.Empty(t, first.Value)

	_, err := users.Register(ctx, &models.User{Name: "Ana", Email: "ana@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = users.Register(ctx, &models.User{Name: "Bo", Email: "bo@x.com", Password: "secret2"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		r, _ := stream.Current()
		return len(r.Value) == 2 && r.Value[0].Name == "Bo"
	}, timeout, tick)
}
