// Package config loads the service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name string `yaml:"name"`
		Env  string `yaml:"env"` // dev | prod
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		// TrustedProxies are CIDRs or addresses whose forwarding headers
		// (CF-Connecting-IP, X-Forwarded-For) name the client. Empty trusts none.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		Driver   string `yaml:"driver"` // postgres | memory
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns int `yaml:"max_open_conns"`
			MaxIdleConns int `yaml:"max_idle_conns"`
		} `yaml:"postgres"`
		// AutoMigrate applies embedded migrations at startup.
		AutoMigrate bool `yaml:"auto_migrate"`
	} `yaml:"storage"`

	Throttle struct {
		Driver      string        `yaml:"driver"` // memory | redis
		MaxAttempts int           `yaml:"max_attempts"`
		Cooldown    time.Duration `yaml:"cooldown"`
		Window      time.Duration `yaml:"window"`
		Redis       struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"throttle"`

	Providers struct {
		Enabled []string `yaml:"enabled"`
		HTTP    struct {
			ConnectTimeout time.Duration `yaml:"connect_timeout"`
			Timeout        time.Duration `yaml:"timeout"`
		} `yaml:"http"`
		Apple struct {
			Issuer          string        `yaml:"issuer"`
			KeysURL         string        `yaml:"keys_url"`
			WebsiteClientID string        `yaml:"website_client_id"`
			MobileClientID  string        `yaml:"mobile_client_id"`
			KeysTTL         time.Duration `yaml:"keys_ttl"`
		} `yaml:"apple"`
		Google struct {
			TokenInfoURL string `yaml:"tokeninfo_url"`
		} `yaml:"google"`
		Facebook struct {
			GraphURL string `yaml:"graph_url"`
		} `yaml:"facebook"`
	} `yaml:"providers"`

	Session struct {
		TokenTTL time.Duration `yaml:"token_ttl"`
	} `yaml:"session"`

	Security struct {
		PasswordMinLength     int    `yaml:"password_min_length"`
		PasswordBlacklistPath string `yaml:"password_blacklist_path"`
	} `yaml:"security"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// AllProviders is the default value of providers.enabled.
var AllProviders = []string{"apple", "google", "facebook", "twitter", "linkedin"}

// Load reads path if it exists, applies defaults and env overrides, and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	var c Config
	c.Metrics.Enabled = true

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	// blacklist path is relative to the YAML file
	if p := strings.TrimSpace(c.Security.PasswordBlacklistPath); p != "" && !filepath.IsAbs(p) && path != "" {
		c.Security.PasswordBlacklistPath = filepath.Clean(filepath.Join(filepath.Dir(path), p))
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "socialauth"
	}
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Throttle.Driver == "" {
		c.Throttle.Driver = "memory"
	}
	if c.Throttle.MaxAttempts == 0 {
		c.Throttle.MaxAttempts = 5
	}
	if c.Throttle.Cooldown == 0 {
		c.Throttle.Cooldown = time.Minute
	}
	if c.Throttle.Window == 0 {
		c.Throttle.Window = time.Minute
	}
	if c.Throttle.Redis.Prefix == "" {
		c.Throttle.Redis.Prefix = "throttle:"
	}
	if c.Providers.Enabled == nil {
		c.Providers.Enabled = append([]string(nil), AllProviders...)
	}
	if c.Providers.HTTP.ConnectTimeout == 0 {
		c.Providers.HTTP.ConnectTimeout = 5 * time.Second
	}
	if c.Providers.HTTP.Timeout == 0 {
		c.Providers.HTTP.Timeout = 5 * time.Second
	}
	if c.Providers.Apple.Issuer == "" {
		c.Providers.Apple.Issuer = "https://appleid.apple.com"
	}
	if c.Providers.Apple.KeysURL == "" {
		c.Providers.Apple.KeysURL = "https://appleid.apple.com/auth/keys"
	}
	if c.Providers.Apple.WebsiteClientID == "" {
		c.Providers.Apple.WebsiteClientID = "com.reactapp.signin"
	}
	if c.Providers.Apple.MobileClientID == "" {
		c.Providers.Apple.MobileClientID = "com.reactapp.ios"
	}
	if c.Providers.Apple.KeysTTL == 0 {
		c.Providers.Apple.KeysTTL = 24 * time.Hour
	}
	if c.Session.TokenTTL == 0 {
		c.Session.TokenTTL = 8760 * time.Hour
	}
	if c.Security.PasswordMinLength == 0 {
		c.Security.PasswordMinLength = 8
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(strings.ToLower(p))
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

func setStr(dst *string, key string) {
	if v, ok := getEnvStr(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := getEnvInt(key); ok {
		*dst = v
	}
}

func setDur(dst *time.Duration, key string) {
	if v, ok := getEnvDur(key); ok {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := getEnvBool(key); ok {
		*dst = v
	}
}

// applyEnvOverrides lets the environment win over config.yaml.
func (c *Config) applyEnvOverrides() {
	setStr(&c.App.Name, "APP_NAME")
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	setStr(&c.Server.Addr, "SERVER_ADDR")
	if v, ok := getEnvCSV("SERVER_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = v
	}
	setStr(&c.Log.Level, "LOG_LEVEL")

	setStr(&c.Storage.Driver, "STORAGE_DRIVER")
	setStr(&c.Storage.DSN, "STORAGE_DSN")
	setInt(&c.Storage.Postgres.MaxOpenConns, "STORAGE_PG_MAX_OPEN_CONNS")
	setInt(&c.Storage.Postgres.MaxIdleConns, "STORAGE_PG_MAX_IDLE_CONNS")
	setBool(&c.Storage.AutoMigrate, "STORAGE_AUTO_MIGRATE")

	setStr(&c.Throttle.Driver, "THROTTLE_DRIVER")
	setInt(&c.Throttle.MaxAttempts, "THROTTLE_MAX_ATTEMPTS")
	setDur(&c.Throttle.Cooldown, "THROTTLE_COOLDOWN")
	setDur(&c.Throttle.Window, "THROTTLE_WINDOW")
	setStr(&c.Throttle.Redis.Addr, "THROTTLE_REDIS_ADDR")
	setStr(&c.Throttle.Redis.Password, "THROTTLE_REDIS_PASSWORD")
	setInt(&c.Throttle.Redis.DB, "THROTTLE_REDIS_DB")
	setStr(&c.Throttle.Redis.Prefix, "THROTTLE_REDIS_PREFIX")

	if v, ok := getEnvCSV("PROVIDERS_ENABLED"); ok {
		c.Providers.Enabled = v
	}
	setDur(&c.Providers.HTTP.ConnectTimeout, "PROVIDERS_HTTP_CONNECT_TIMEOUT")
	setDur(&c.Providers.HTTP.Timeout, "PROVIDERS_HTTP_TIMEOUT")
	setStr(&c.Providers.Apple.Issuer, "APPLE_ISSUER")
	setStr(&c.Providers.Apple.KeysURL, "APPLE_KEYS_URL")
	setStr(&c.Providers.Apple.WebsiteClientID, "APPLE_WEBSITE_CLIENT_ID")
	setStr(&c.Providers.Apple.MobileClientID, "APPLE_MOBILE_CLIENT_ID")
	setDur(&c.Providers.Apple.KeysTTL, "APPLE_KEYS_TTL")
	setStr(&c.Providers.Google.TokenInfoURL, "GOOGLE_TOKENINFO_URL")
	setStr(&c.Providers.Facebook.GraphURL, "FACEBOOK_GRAPH_URL")

	setDur(&c.Session.TokenTTL, "SESSION_TOKEN_TTL")
	setInt(&c.Security.PasswordMinLength, "SECURITY_PASSWORD_MIN_LENGTH")
	setStr(&c.Security.PasswordBlacklistPath, "SECURITY_PASSWORD_BLACKLIST_PATH")

	setStr(&c.SMTP.Host, "SMTP_HOST")
	setInt(&c.SMTP.Port, "SMTP_PORT")
	setStr(&c.SMTP.Username, "SMTP_USERNAME")
	setStr(&c.SMTP.Password, "SMTP_PASSWORD")
	setStr(&c.SMTP.From, "SMTP_FROM")
	setStr(&c.SMTP.TLS, "SMTP_TLS")
	setBool(&c.SMTP.InsecureSkipVerify, "SMTP_INSECURE_SKIP_VERIFY")

	setBool(&c.Metrics.Enabled, "METRICS_ENABLED")
}

// Validate checks values that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.New("config: storage.dsn is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Throttle.Driver {
	case "redis":
		if c.Throttle.Redis.Addr == "" {
			return errors.New("config: throttle.redis.addr is required for the redis driver")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown throttle.driver %q", c.Throttle.Driver)
	}
	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			return fmt.Errorf("config: server.trusted_proxies entry %q is not an IP or CIDR", p)
		}
	}
	if c.Throttle.MaxAttempts < 1 {
		return errors.New("config: throttle.max_attempts must be positive")
	}
	for _, p := range c.Providers.Enabled {
		if !isKnownProvider(p) {
			return fmt.Errorf("config: unknown provider %q in providers.enabled", p)
		}
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return errors.New("config: smtp.from is required when smtp.host is set")
	}
	return nil
}

func validProxy(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}

func isKnownProvider(name string) bool {
	for _, p := range AllProviders {
		if p == name {
			return true
		}
	}
	return false
}

// IsProd reports whether the service runs in production mode.
func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }
