package settings

import (
	"context"
	"strconv"
	"time"

	"github.com/stage-app/engine/internal/models"
	"go.uber.org/zap"
)

const (
	KeyUserID               = "user_id"
	KeyUserEmail            = "user_email"
	KeyUserName             = "user_name"
	KeyIsLoggedIn           = "is_logged_in"
	KeySelectedCurrency     = "selected_currency"
	KeySelectedCategory     = "selected_category"
	KeyDarkMode             = "dark_mode"
	KeyLastVisitedPage      = "last_visited_page"
	KeyFirstLaunch          = "first_launch"
	KeyNotificationsEnabled = "notifications_enabled"
	KeyAutoRefreshEnabled   = "auto_refresh_enabled"
	KeyRefreshInterval      = "refresh_interval"
)

const (
	DefaultRefreshMinutes = 5
	minRefreshMinutes     = 1
	maxRefreshMinutes     = 60
)

// Session is the signed-in user as remembered between runs.
type Session struct {
	UserID   int64
	Email    string
	Name     string
	LoggedIn bool
}

// Preferences gives typed access to a Backend. Reads that fail are logged
// and answered with the key's default.
type Preferences struct {
	backend Backend
	log     *zap.Logger
}

func NewPreferences(b Backend, log *zap.Logger) *Preferences {
	if log == nil {
		log = zap.NewNop()
	}
	return &Preferences{backend: b, log: log}
}

func (p *Preferences) raw(ctx context.Context, key string) (string, bool) {
	v, ok, err := p.backend.Get(ctx, key)
	if err != nil {
		p.log.Warn("preference read failed, using default", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, ok
}

func (p *Preferences) str(ctx context.Context, key, def string) string {
	if v, ok := p.raw(ctx, key); ok {
		return v
	}
	return def
}

func (p *Preferences) boolean(ctx context.Context, key string, def bool) bool {
	v, ok := p.raw(ctx, key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (p *Preferences) integer(ctx context.Context, key string, def int64) int64 {
	v, ok := p.raw(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func (p *Preferences) setBool(ctx context.Context, key string, v bool) error {
	return p.backend.Set(ctx, key, strconv.FormatBool(v))
}

// SaveSession records a signed-in user.
func (p *Preferences) SaveSession(ctx context.Context, u *models.User) error {
	for _, kv := range [][2]string{
		{KeyUserID, strconv.FormatInt(u.ID, 10)},
		{KeyUserEmail, u.Email},
		{KeyUserName, u.Name},
		{KeyIsLoggedIn, "true"},
	} {
		if err := p.backend.Set(ctx, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// Session returns the stored session. UserID is -1 when nobody is signed in.
func (p *Preferences) Session(ctx context.Context) Session {
	return Session{
		UserID:   p.integer(ctx, KeyUserID, -1),
		Email:    p.str(ctx, KeyUserEmail, ""),
		Name:     p.str(ctx, KeyUserName, ""),
		LoggedIn: p.boolean(ctx, KeyIsLoggedIn, false),
	}
}

// ClearSession forgets the signed-in user.
func (p *Preferences) ClearSession(ctx context.Context) error {
	if err := p.backend.Delete(ctx, KeyUserID, KeyUserEmail, KeyUserName); err != nil {
		return err
	}
	return p.setBool(ctx, KeyIsLoggedIn, false)
}

func (p *Preferences) SetSelectedCurrency(ctx context.Context, code string) error {
	return p.backend.Set(ctx, KeySelectedCurrency, models.ParseCurrency(code).Code)
}

// SelectedCurrency defaults to the base currency.
func (p *Preferences) SelectedCurrency(ctx context.Context) models.Currency {
	return models.ParseCurrency(p.str(ctx, KeySelectedCurrency, models.BaseCurrency))
}

// SetSelectedCategory stores the category filter; nil means all categories.
func (p *Preferences) SetSelectedCategory(ctx context.Context, c *models.PostCategory) error {
	if c == nil {
		return p.backend.Delete(ctx, KeySelectedCategory)
	}
	return p.backend.Set(ctx, KeySelectedCategory, string(*c))
}

func (p *Preferences) SelectedCategory(ctx context.Context) *models.PostCategory {
	v, ok := p.raw(ctx, KeySelectedCategory)
	if !ok {
		return nil
	}
	c, err := models.ParseCategory(v)
	if err != nil {
		return nil
	}
	return &c
}

func (p *Preferences) SetDarkMode(ctx context.Context, on bool) error {
	return p.setBool(ctx, KeyDarkMode, on)
}

func (p *Preferences) DarkMode(ctx context.Context) bool {
	return p.boolean(ctx, KeyDarkMode, false)
}

func (p *Preferences) SetLastVisitedPage(ctx context.Context, page string) error {
	return p.backend.Set(ctx, KeyLastVisitedPage, page)
}

// LastVisitedPage is empty when unset.
func (p *Preferences) LastVisitedPage(ctx context.Context) string {
	return p.str(ctx, KeyLastVisitedPage, "")
}

func (p *Preferences) FirstLaunch(ctx context.Context) bool {
	return p.boolean(ctx, KeyFirstLaunch, true)
}

func (p *Preferences) CompleteFirstLaunch(ctx context.Context) error {
	return p.setBool(ctx, KeyFirstLaunch, false)
}

func (p *Preferences) SetNotificationsEnabled(ctx context.Context, on bool) error {
	return p.setBool(ctx, KeyNotificationsEnabled, on)
}

func (p *Preferences) NotificationsEnabled(ctx context.Context) bool {
	return p.boolean(ctx, KeyNotificationsEnabled, true)
}

func (p *Preferences) SetAutoRefreshEnabled(ctx context.Context, on bool) error {
	return p.setBool(ctx, KeyAutoRefreshEnabled, on)
}

func (p *Preferences) AutoRefreshEnabled(ctx context.Context) bool {
	return p.boolean(ctx, KeyAutoRefreshEnabled, true)
}

// SetRefreshInterval stores minutes clamped to 1..60.
func (p *Preferences) SetRefreshInterval(ctx context.Context, minutes int) error {
	minutes = max(minRefreshMinutes, min(maxRefreshMinutes, minutes))
	return p.backend.Set(ctx, KeyRefreshInterval, strconv.Itoa(minutes))
}

func (p *Preferences) RefreshInterval(ctx context.Context) time.Duration {
	m := p.integer(ctx, KeyRefreshInterval, DefaultRefreshMinutes)
	if m < minRefreshMinutes || m > maxRefreshMinutes {
		m = DefaultRefreshMinutes
	}
	return time.Duration(m) * time.Minute
}

func (p *Preferences) Contains(ctx context.Context, key string) bool {
	_, ok := p.raw(ctx, key)
	return ok
}

func (p *Preferences) All(ctx context.Context) (map[string]string, error) {
	return p.backend.All(ctx)
}

func (p *Preferences) ClearAll(ctx context.Context) error {
	return p.backend.Clear(ctx)
}
