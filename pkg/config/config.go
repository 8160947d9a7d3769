package config

import (
	"fmt"
	"net/netip"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	// DBDriver selects the store. sqlite takes a file path in DatabaseURL, postgres a DSN.
	DBDriver    string `mapstructure:"DB_DRIVER" validate:"required,oneof=sqlite postgres"`
	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required"`

	ExchangeRateBaseURL string        `mapstructure:"EXCHANGE_RATE_BASE_URL" validate:"required,url"`
	ExchangeRateTimeout time.Duration `mapstructure:"EXCHANGE_RATE_TIMEOUT" validate:"required"`

	SettingsBackend string `mapstructure:"SETTINGS_BACKEND" validate:"required,oneof=memory redis"`
	RedisAddr       string `mapstructure:"REDIS_ADDR" validate:"required_if=SettingsBackend redis"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int    `mapstructure:"REDIS_DB" validate:"gte=0,lte=15"`
	SettingsKey     string `mapstructure:"SETTINGS_KEY" validate:"required"`

	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	TokenTTL       time.Duration `mapstructure:"TOKEN_TTL" validate:"required"`
	PasswordScheme string        `mapstructure:"PASSWORD_SCHEME" validate:"required,oneof=bcrypt plain"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`

	// CORSOrigins is a comma separated allow list. Empty allows any origin.
	CORSOrigins    string `mapstructure:"CORS_ORIGINS"`
	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	// Empty trusts none and limits by peer address.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DB_DRIVER",
	"DATABASE_URL",
	"EXCHANGE_RATE_BASE_URL",
	"EXCHANGE_RATE_TIMEOUT",
	"SETTINGS_BACKEND",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_DB",
	"SETTINGS_KEY",
	"JWT_SECRET",
	"TOKEN_TTL",
	"PASSWORD_SCHEME",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"CORS_ORIGINS",
	"TRUSTED_PROXIES",
	"GOMAXPROCS",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "stage.db")
	v.SetDefault("EXCHANGE_RATE_BASE_URL", "https://api.exchangerate-api.com/v4/")
	v.SetDefault("EXCHANGE_RATE_TIMEOUT", "30s")
	v.SetDefault("SETTINGS_BACKEND", "memory")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SETTINGS_KEY", "stage:prefs")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("PASSWORD_SCHEME", "bcrypt")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("GOMAXPROCS", 0)

	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	for key, dst := range map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT":      &c.ShutdownTimeout,
		"EXCHANGE_RATE_TIMEOUT": &c.ExchangeRateTimeout,
		"TOKEN_TTL":             &c.TokenTTL,
	} {
		if s := v.GetString(key); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Proxies(); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// Origins splits CORSOrigins, dropping blanks.
func (c *Config) Origins() []string {
	return splitList(c.CORSOrigins)
}

// Proxies parses TrustedProxies. A bare IP becomes a single-address prefix.
func (c *Config) Proxies() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, s := range splitList(c.TrustedProxies) {
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, err
		}
		out = append(out, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
