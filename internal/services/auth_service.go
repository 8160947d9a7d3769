package services

import (
	"context"

	"github.com/stage-app/engine/internal/live"
	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/repository"
	"github.com/stage-app/engine/internal/settings"
	"github.com/stage-app/engine/internal/state"
	appErr "github.com/stage-app/engine/pkg/errors"
	"github.com/stage-app/engine/pkg/logger"
	"go.uber.org/zap"
)

// AuthService tracks sign-in and registration and the signed-in user.
type AuthService struct {
	users repository.UserRepository
	prefs *settings.Preferences
	life  *lifetime

	login    *state.Holder[*models.User]
	register *state.Holder[*models.User]
	current  *live.Subject[*models.User]
}

// NewAuthService binds the holder to ctx. prefs may be nil, in which case the
// session is not persisted.
func NewAuthService(ctx context.Context, users repository.UserRepository, prefs *settings.Preferences) *AuthService {
	return &AuthService{
		users:    users,
		prefs:    prefs,
		life:     newLifetime(ctx),
		login:    state.NewHolder(state.Idle[*models.User]()),
		register: state.NewHolder(state.Idle[*models.User]()),
		current:  live.NewSubjectWith[*models.User](nil),
	}
}

func (s *AuthService) LoginState() *state.Holder[*models.User]    { return s.login }
func (s *AuthService) RegisterState() *state.Holder[*models.User] { return s.register }

// CurrentUser is nil when nobody is signed in.
func (s *AuthService) CurrentUser() *models.User { return s.current.Value() }

// WatchCurrentUser follows sign-in and sign-out.
func (s *AuthService) WatchCurrentUser() *live.Subscription[*models.User] { return s.current.Subscribe() }

// Login checks the inputs, then asks the repository, and returns the final state.
func (s *AuthService) Login(ctx context.Context, email, password string) state.State[*models.User] {
	if err := ValidateLogin(email, password); err != nil {
		return s.finish(s.login, state.Failure[*models.User](err.Error()))
	}
	s.login.Set(state.Loading[*models.User]())

	u, err := s.users.Login(ctx, email, password)
	switch {
	case err != nil:
		logger.L().Warn("login failed", zap.String("email", email), zap.Error(err))
		return s.finish(s.login, state.Failure[*models.User]("authentication failed: "+appErr.MessageOf(err)))
	case u == nil:
		return s.finish(s.login, state.Failure[*models.User](MsgInvalidLogin))
	}

	s.signIn(ctx, u)
	logger.L().Info("user logged in", zap.Int64("user_id", u.ID))
	return s.finish(s.login, state.Success(u))
}

// Register checks the inputs, creates the account and signs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string, phone *string) state.State[*models.User] {
	if err := ValidateRegistration(name, email, password); err != nil {
		return s.finish(s.register, state.Failure[*models.User](err.Error()))
	}
	s.register.Set(state.Loading[*models.User]())

	u := &models.User{Name: name, Email: email, Password: password, Phone: phone}
	id, err := s.users.Register(ctx, u)
	switch {
	case err != nil:
		logger.L().Warn("registration failed", zap.String("email", email), zap.Error(err))
		return s.finish(s.register, state.Failure[*models.User]("registration failed: "+appErr.MessageOf(err)))
	case id == repository.NoID:
		return s.finish(s.register, state.Failure[*models.User](MsgEmailExists))
	}

	u.ID = id
	s.signIn(ctx, u)
	logger.L().Info("user registered", zap.Int64("user_id", id))
	return s.finish(s.register, state.Success(u))
}

// LoginAsync runs Login on the holder's lifetime.
func (s *AuthService) LoginAsync(email, password string) {
	s.life.goRun(func(ctx context.Context) { s.Login(ctx, email, password) })
}

// RegisterAsync runs Register on the holder's lifetime.
func (s *AuthService) RegisterAsync(name, email, password string, phone *string) {
	s.life.goRun(func(ctx context.Context) { s.Register(ctx, name, email, password, phone) })
}

// RestoreSession signs the remembered user back in, if the account still exists.
func (s *AuthService) RestoreSession(ctx context.Context) (*models.User, error) {
	if s.prefs == nil {
		return nil, nil
	}
	sess := s.prefs.Session(ctx)
	if !sess.LoggedIn || sess.UserID < 0 {
		return nil, nil
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil || u == nil {
		return nil, err
	}
	s.current.Set(u)
	return u, nil
}

// Logout clears the signed-in user and returns both holders to Idle.
func (s *AuthService) Logout(ctx context.Context) {
	s.current.Set(nil)
	s.login.Reset()
	s.register.Reset()
	if s.prefs != nil {
		if err := s.prefs.ClearSession(ctx); err != nil {
			logger.L().Warn("clear session failed", zap.Error(err))
		}
	}
}

func (s *AuthService) ResetLogin()    { s.login.Reset() }
func (s *AuthService) ResetRegister() { s.register.Reset() }

// EmailExists reports whether an account uses email.
func (s *AuthService) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.users.ExistsByEmail(ctx, email)
}

// Close cancels pending async calls and ends every subscription.
func (s *AuthService) Close() {
	s.life.close()
	s.login.Close()
	s.register.Close()
	s.current.Close()
}

func (s *AuthService) signIn(ctx context.Context, u *models.User) {
	s.current.Set(u)
	if s.prefs != nil {
		if err := s.prefs.SaveSession(ctx, u); err != nil {
			logger.L().Warn("save session failed", zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}
}

func (s *AuthService) finish(h *state.Holder[*models.User], st state.State[*models.User]) state.State[*models.User] {
	h.Set(st)
	return st
}
