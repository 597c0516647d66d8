package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kihaltung/attitude/internal/utils"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type DBConfig struct {
	// Driver is memory, sqlite3 or postgres
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// MigrationsDir overrides the embedded migrations
	MigrationsDir string `yaml:"migrations_dir"`
	// PageSize is the number of rows per snapshot page
	PageSize int `yaml:"page_size"`
}

type AuthConfig struct {
	TokenSecret   string        `yaml:"token_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AllowRegister bool          `yaml:"allow_register"`
}

type SubmissionConfig struct {
	PerHour int `yaml:"per_hour"`
	Burst   int `yaml:"burst"`
}

type ChallengeConfig struct {
	DeviceSalt  string `yaml:"device_salt"`
	AutoApprove bool   `yaml:"auto_approve"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the server configuration.
type Config struct {
	Addr           string           `yaml:"addr"`
	StaticDir      string           `yaml:"static_dir"`
	AllowedOrigins []string         `yaml:"allowed_origins"`
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Enable only behind a reverse proxy that sets them.
	TrustProxy     bool             `yaml:"trust_proxy"`
	DB             DBConfig         `yaml:"db"`
	Auth           AuthConfig       `yaml:"auth"`
	Submissions    SubmissionConfig `yaml:"submissions"`
	Challenges     ChallengeConfig  `yaml:"challenges"`
	Log            LogConfig        `yaml:"log"`
}

// DefaultConfig returns a Config with the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr: ":8080",
		DB: DBConfig{
			Driver:   DriverMemory,
			PageSize: 1000,
		},
		Auth: AuthConfig{
			TokenTTL: 720 * time.Hour,
		},
		Submissions: SubmissionConfig{PerHour: 10, Burst: 10},
		Log:         LogConfig{Level: "info"},
	}
}

// Load builds the configuration from .env, an optional YAML file and the
// environment, in that order of precedence from lowest to highest. An empty
// path falls back to ATTITUDE_CONFIG; a missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := DefaultConfig()
	if path == "" {
		path = utils.SafeEnv("ATTITUDE_CONFIG", "")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Addr = utils.SafeEnv("ATTITUDE_ADDR", c.Addr)
	c.StaticDir = utils.SafeEnv("ATTITUDE_STATIC_DIR", c.StaticDir)
	c.AllowedOrigins = utils.EnvList("ATTITUDE_ALLOWED_ORIGINS", c.AllowedOrigins)
	c.TrustProxy = utils.EnvBool("ATTITUDE_TRUST_PROXY", c.TrustProxy)
	c.DB.Driver = utils.SafeEnv("ATTITUDE_DB_DRIVER", c.DB.Driver)
	c.DB.DSN = utils.SafeEnv("ATTITUDE_DB_DSN", c.DB.DSN)
	c.DB.MigrationsDir = utils.SafeEnv("ATTITUDE_MIGRATIONS_DIR", c.DB.MigrationsDir)
	c.DB.PageSize = utils.EnvInt("ATTITUDE_PAGE_SIZE", c.DB.PageSize)
	c.Auth.TokenSecret = utils.SafeEnv("ATTITUDE_TOKEN_SECRET", c.Auth.TokenSecret)
	c.Auth.TokenTTL = utils.EnvDuration("ATTITUDE_TOKEN_TTL", c.Auth.TokenTTL)
	c.Auth.AllowRegister = utils.EnvBool("ATTITUDE_ALLOW_REGISTER", c.Auth.AllowRegister)
	c.Submissions.PerHour = utils.EnvInt("ATTITUDE_SUBMISSIONS_PER_HOUR", c.Submissions.PerHour)
	c.Submissions.Burst = utils.EnvInt("ATTITUDE_SUBMISSIONS_BURST", c.Submissions.Burst)
	c.Challenges.DeviceSalt = utils.SafeEnv("ATTITUDE_DEVICE_SALT", c.Challenges.DeviceSalt)
	c.Challenges.AutoApprove = utils.EnvBool("ATTITUDE_AUTO_APPROVE", c.Challenges.AutoApprove)
	c.Log.Level = utils.SafeEnv("LOG_LEVEL", c.Log.Level)
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for driver %q", c.DB.Driver)
		}
		if c.Auth.TokenSecret == "" {
			return fmt.Errorf("auth.token_secret is required for driver %q", c.DB.Driver)
		}
	default:
		return fmt.Errorf("invalid db.driver %q, must be one of: memory, sqlite3, postgres", c.DB.Driver)
	}
	if c.DB.PageSize <= 0 {
		return fmt.Errorf("db.page_size must be > 0, got %d", c.DB.PageSize)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0, got %v", c.Auth.TokenTTL)
	}
	if c.Submissions.PerHour <= 0 || c.Submissions.Burst <= 0 {
		return fmt.Errorf("submissions.per_hour and submissions.burst must be > 0")
	}
	switch strings.ToLower(c.Log.Level) {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid log.level %q, must be one of: error, warn, info, debug", c.Log.Level)
	}
	return nil
}
