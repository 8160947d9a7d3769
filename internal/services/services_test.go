package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stage-app/engine/internal/exchange"
	"github.com/stage-app/engine/internal/live"
	"github.com/stage-app/engine/internal/models"
	"github.com/stage-app/engine/internal/repository"
	"github.com/stage-app/engine/internal/settings"
	"github.com/stage-app/engine/pkg/database"
	"github.com/stage-app/engine/pkg/logger"
	"github.com/stage-app/engine/pkg/utils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
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

type store struct {
	users repository.UserRepository
	posts repository.PostRepository
	prefs *settings.Preferences
}

func newStore(t *testing.T) store {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{Driver: database.DriverSQLite, DSN: ":memory:", Env: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	_, err = database.Migrate(ctx, db, models.SchemaVersion, models.All()...)
	require.NoError(t, err)

	n := live.NewNotifier()
	return store{
		users: repository.NewUserRepository(db, n, utils.PlainHasher{}),
		posts: repository.NewPostRepository(db, n),
		prefs: settings.NewPreferences(settings.NewMemoryBackend(), nil),
	}
}

func (s store) seedUser(t *testing.T, email string) int64 {
	t.Helper()
	id, err := s.users.Register(context.Background(), &models.User{Name: "Ana", Email: email, Password: "secret1"})
	require.NoError(t, err)
	require.Positive(t, id)
	return id
}

func (s store) seedPost(t *testing.T, userID int64, title string, c models.PostCategory, price float64) int64 {
	t.Helper()
	id, err := s.posts.CreatePost(context.Background(), &models.Post{
		UserID: userID, Title: title, Description: title + " for sale", Price: price, Category: c,
	}, nil)
	require.NoError(t, err)
	return id
}

// mockRates is a RateSource driven by testify expectations.
type mockRates struct {
	mock.Mock
}

func (m *mockRates) Latest(ctx context.Context, base string) (models.ExchangeRateSnapshot, error) {
	args := m.Called(ctx, base)
	return args.Get(0).(models.ExchangeRateSnapshot), args.Error(1)
}

func (m *mockRates) Symbols(ctx context.Context, base string, targets []string) (models.ExchangeRateSnapshot, error) {
	args := m.Called(ctx, base, targets)
	return args.Get(0).(models.ExchangeRateSnapshot), args.Error(1)
}

func (m *mockRates) Convert(ctx context.Context, from, to string, amount float64) (models.Conversion, error) {
	args := m.Called(ctx, from, to, amount)
	return args.Get(0).(models.Conversion), args.Error(1)
}

func newRates(t *testing.T, snap models.ExchangeRateSnapshot, err error) *exchange.Repository {
	t.Helper()
	src := new(mockRates)
	src.On("Latest", mock.Anything, models.BaseCurrency).Return(snap, err)
	return exchange.NewRepository(src, nil, nil)
}

// mockUsers overrides the calls a test needs; any other call panics.
type mockUsers struct {
	repository.UserRepository
	mock.Mock
}

func (m *mockUsers) Login(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) Register(ctx context.Context, u *models.User) (int64, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(int64), args.Error(1)
}

// mockPosts overrides the calls a test needs; any other call panics.
type mockPosts struct {
	repository.PostRepository
	mock.Mock
}

func (m *mockPosts) CreatePost(ctx context.Context, p *models.Post, d *models.CarDetails) (int64, error) {
	args := m.Called(ctx, p, d)
	return args.Get(0).(int64), args.Error(1)
}

func ptr[T any](v T) *T { return &v }

func titles(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}
