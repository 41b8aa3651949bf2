package adminauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the auth core. Construct it with
// DefaultConfig or LoadConfig, then Validate before wiring.
type Config struct {
	Env           string `mapstructure:"env"`
	SigningSecret string `mapstructure:"signing_secret"`
	Issuer        string `mapstructure:"issuer"`

	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`

	Login   LoginConfig   `mapstructure:"login"`
	Captcha CaptchaConfig `mapstructure:"captcha"`
	Csrf    CsrfConfig    `mapstructure:"csrf"`
	Cookies CookieConfig  `mapstructure:"cookies"`
	Store   StoreConfig   `mapstructure:"store"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
}

// LoginConfig bounds login attempts per client identity key.
type LoginConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Window      time.Duration `mapstructure:"window"`
}

// CaptchaConfig tunes the external CAPTCHA check. Ignored when no
// verifier is wired.
type CaptchaConfig struct {
	Action   string  `mapstructure:"action"`
	MinScore float64 `mapstructure:"min_score"`
}

// CsrfConfig tunes the double-submit cookie.
type CsrfConfig struct {
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// CookieConfig names the token cookies.
type CookieConfig struct {
	AccessName  string `mapstructure:"access_name"`
	RefreshName string `mapstructure:"refresh_name"`
	Path        string `mapstructure:"path"`
	Domain      string `mapstructure:"domain"`
}

// StoreConfig selects the kv backend. "memory" is valid only for a
// single serving instance; "redis" is required beyond that.
type StoreConfig struct {
	Backend       string `mapstructure:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// HTTPConfig tunes the serving process.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig tunes logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DefaultConfig returns the baseline configuration: 60 minute access
// tokens, 7 day refresh tokens, 5 login attempts per 15 minutes, and the
// in-memory store.
func DefaultConfig() Config {
	return Config{
		Env:        "dev",
		Issuer:     "adminauth",
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
		Login: LoginConfig{
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		Captcha: CaptchaConfig{
			Action:   "admin_login",
			MinScore: 0.5,
		},
		Csrf: CsrfConfig{
			CookieName: "csrf_token",
			TTL:        time.Hour,
		},
		Cookies: CookieConfig{
			AccessName:  "admin_access_token",
			RefreshName: "admin_refresh_token",
			Path:        "/",
		},
		Store: StoreConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Production reports whether Secure cookie attributes must be set.
func (c Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate rejects configurations the core cannot run safely with.
func (c Config) Validate() error {
	if len(c.SigningSecret) < 32 {
		return errors.New("config: signing_secret must be at least 32 bytes")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("config: access_ttl and refresh_ttl must be positive")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return errors.New("config: refresh_ttl must exceed access_ttl")
	}
	if c.Login.MaxAttempts <= 0 || c.Login.Window <= 0 {
		return errors.New("config: login.max_attempts and login.window must be positive")
	}
	if c.Captcha.MinScore < 0 || c.Captcha.MinScore > 1 {
		return errors.New("config: captcha.min_score must be in [0,1]")
	}
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "redis" && c.Store.RedisAddr == "" {
		return errors.New("config: store.redis_addr is required for the redis backend")
	}
	if c.Cookies.AccessName == "" || c.Cookies.RefreshName == "" {
		return errors.New("config: cookie names must not be empty")
	}
	if c.Cookies.AccessName == c.Cookies.RefreshName {
		return errors.New("config: access and refresh cookies must differ")
	}

	return nil
}

// LoadConfig reads an optional YAML file and environment overrides
// (ADMINAUTH_*, dots replaced by underscores) on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	defaults := DefaultConfig()
	// Registered with an empty default so the env override is picked up.
	v.SetDefault("signing_secret", "")
	v.SetDefault("env", defaults.Env)
	v.SetDefault("issuer", defaults.Issuer)
	v.SetDefault("access_ttl", defaults.AccessTTL)
	v.SetDefault("refresh_ttl", defaults.RefreshTTL)
	v.SetDefault("login.max_attempts", defaults.Login.MaxAttempts)
	v.SetDefault("login.window", defaults.Login.Window)
	v.SetDefault("captcha.action", defaults.Captcha.Action)
	v.SetDefault("captcha.min_score", defaults.Captcha.MinScore)
	v.SetDefault("csrf.cookie_name", defaults.Csrf.CookieName)
	v.SetDefault("csrf.ttl", defaults.Csrf.TTL)
	v.SetDefault("cookies.access_name", defaults.Cookies.AccessName)
	v.SetDefault("cookies.refresh_name", defaults.Cookies.RefreshName)
	v.SetDefault("cookies.path", defaults.Cookies.Path)
	v.SetDefault("store.backend", defaults.Store.Backend)
	v.SetDefault("store.redis_addr", defaults.Store.RedisAddr)
	v.SetDefault("store.redis_db", defaults.Store.RedisDB)
	v.SetDefault("http.addr", defaults.HTTP.Addr)
	v.SetDefault("http.read_timeout", defaults.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", defaults.HTTP.WriteTimeout)
	v.SetDefault("http.shutdown_timeout", defaults.HTTP.ShutdownTimeout)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.pretty", defaults.Log.Pretty)

	v.SetEnvPrefix("adminauth")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	return cfg, nil
}
