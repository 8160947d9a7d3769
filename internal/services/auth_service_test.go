package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/repository"
	"github.com/stage-app/engine/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	auth := NewAuthService(ctx, st.users, st.prefs)
	t.Cleanup(auth.Close)

	reg := auth.Register(ctx, "Ana", "ana@x.com", "secret1", nil)
	require.True(t, reg.IsSuccess(), reg.Message)
	require.Positive(t, reg.Value.ID)

	sess := st.prefs.Session(ctx)
	assert.True(t, sess.LoggedIn)
	assert.Equal(t, reg.Value.ID, sess.UserID)
	assert.Equal(t, "ana@x.com", sess.Email)

	dup := auth.Register(ctx, "Bo", "ana@x.com", "other12", nil)
	require.True(t, dup.IsError())
	assert.Equal(t, MsgEmailExists, dup.Message)

	auth.Logout(ctx)
	assert.Nil(t, auth.CurrentUser())
	assert.False(t, st.prefs.Session(ctx).LoggedIn)
	assert.True(t, auth.RegisterState().Current().IsIdle())

	bad := auth.Login(ctx, "ana@x.com", "wrong!")
	require.True(t, bad.IsError())
	assert.Equal(t, MsgInvalidLogin, bad.Message)

	ok := auth.Login(ctx, "ana@x.com", "secret1")
	require.True(t, ok.IsSuccess(), ok.Message)
	assert.Equal(t, "Ana", auth.CurrentUser().Name)

	exists, err := auth.EmailExists(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAuthValidationSkipsRepository(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	auth := NewAuthService(ctx, users, nil)
	t.Cleanup(auth.Close)

	assert.Equal(t, msgLoginRequired, auth.Login(ctx, " ", "x").Message)
	assert.Equal(t, msgRegisterRequired, auth.Register(ctx, "", "a@x.com", "secret1", nil).Message)
	assert.Equal(t, msgPasswordTooShort, auth.Register(ctx, "Ana", "a@x.com", "123", nil).Message)
	assert.Equal(t, msgPasswordTooLong, auth.Register(ctx, "Ana", "a@x.com", strings.Repeat("a", 80), nil).Message)
	users.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestAuthRepositoryErrors(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	users.On("Login", mock.Anything, "a@x.com", "secret1").Return(nil, errors.New("disk full"))
	users.On("Register", mock.Anything, mock.AnythingOfType("*models.User")).Return(repository.NoID, errors.New("disk full"))

	auth := NewAuthService(ctx, users, nil)
	t.Cleanup(auth.Close)

	assert.Equal(t, "authentication failed: disk full", auth.Login(ctx, "a@x.com", "secret1").Message)
	assert.Equal(t, "registration failed: disk full", auth.Register(ctx, "Ana", "a@x.com", "secret1", nil).Message)
	assert.Nil(t, auth.CurrentUser())
	users.AssertExpectations(t)
}

func TestLoginAsyncPublishesStates(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	users.On("Login", mock.Anything, "a@x.com", "secret1").Return(&models.User{ID: 7, Name: "Ana"}, nil)

	auth := NewAuthService(ctx, users, nil)
	t.Cleanup(auth.Close)
	auth.LoginAsync("a@x.com", "secret1")
	require.Eventually(t, func() bool {
		return auth.LoginState().Current().IsSuccess()
	}, timeout, tick)
	assert.Equal(t, int64(7), auth.CurrentUser().ID)

	auth.ResetLogin()
	assert.Equal(t, state.KindIdle, auth.LoginState().Current().Kind)
}

func TestRestoreSession(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	first := NewAuthService(ctx, st.users, st.prefs)
	reg := first.Register(ctx, "Ana", "ana@x.com", "secret1", nil)
	require.True(t, reg.IsSuccess())
	first.Close()

	second := NewAuthService(ctx, st.users, st.prefs)
	t.Cleanup(second.Close)
	u, err := second.RestoreSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, reg.Value.ID, second.CurrentUser().ID)
}
