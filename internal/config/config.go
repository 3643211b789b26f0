// Package config loads server settings.
//
// Sources, lowest precedence first:
//
//  1. Defaults()
//  2. a TOML file (--config), see config.example.toml
//  3. a .env file in the working directory
//  4. process environment variables
//
// A value from a later source replaces one from an earlier source. The .env
// file never overrides a variable that is already set in the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/sakif/listen-api/internal/logging"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Log      LogConfig      `toml:"log"`
	GitHub   GitHubConfig   `toml:"github"`
	Storage  StorageConfig  `toml:"storage"`
}

type ServerConfig struct {
	Port int `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// AuthConfig covers token signing and the login/register rate limit.
type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret"`
	TokenTTL  Duration `toml:"token_ttl"`
	RateLimit float64  `toml:"rate_limit"` // requests per second per client IP
	RateBurst int      `toml:"rate_burst"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// GitHubConfig enables GitHub sign-in when ClientID and ClientSecret are set.
type GitHubConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	CallbackURL  string `toml:"callback_url"`
}

// StorageConfig points at an S3-compatible bucket for recording audio.
// Upload presigning is enabled when Endpoint and Bucket are set.
type StorageConfig struct {
	Endpoint      string   `toml:"endpoint"`
	AccessKey     string   `toml:"access_key"`
	SecretKey     string   `toml:"secret_key"`
	Bucket        string   `toml:"bucket"`
	Region        string   `toml:"region"`
	UseSSL        bool     `toml:"use_ssl"`
	PublicURL     string   `toml:"public_url"` // base of audio URLs handed to clients
	PresignExpiry Duration `toml:"presign_expiry"`
}

// Duration is a time.Duration written as "720h" or "15m" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Defaults returns a configuration that runs locally with nothing set except
// JWT_SECRET.
func Defaults() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "data/listen.db"},
		Auth: AuthConfig{
			TokenTTL:  Duration{30 * 24 * time.Hour},
			RateLimit: 1,
			RateBurst: 5,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		GitHub: GitHubConfig{
			CallbackURL: "http://localhost:8080/auth/github/callback",
		},
		Storage: StorageConfig{
			Region:        "us-east-1",
			PresignExpiry: Duration{15 * time.Minute},
		},
	}
}

// Load reads configuration from path (may be empty), ./.env and the
// environment, then validates it.
func Load(path string) (*Config, error) {
	return load(path, ".env", os.LookupEnv)
}

// load is Load with the .env location and the environment injected.
func load(path, envFile string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading %s: %w", envFile, err)
	}

	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overwrites fields whose variable is set. Parse errors name the
// variable.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s=%q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s=%q is not a number", key, v))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s=%q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("config: %s=%q is not a duration", key, v))
			}
		}
	}

	integer("PORT", &c.Server.Port)
	str("DB_PATH", &c.Database.Path)

	str("JWT_SECRET", &c.Auth.JWTSecret)
	duration("TOKEN_TTL", &c.Auth.TokenTTL)
	float("AUTH_RATE_LIMIT", &c.Auth.RateLimit)
	integer("AUTH_RATE_BURST", &c.Auth.RateBurst)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)

	str("GITHUB_CLIENT_ID", &c.GitHub.ClientID)
	str("GITHUB_CLIENT_SECRET", &c.GitHub.ClientSecret)
	str("GITHUB_CALLBACK_URL", &c.GitHub.CallbackURL)

	str("STORAGE_ENDPOINT", &c.Storage.Endpoint)
	str("STORAGE_ACCESS_KEY", &c.Storage.AccessKey)
	str("STORAGE_SECRET_KEY", &c.Storage.SecretKey)
	str("STORAGE_BUCKET", &c.Storage.Bucket)
	str("STORAGE_REGION", &c.Storage.Region)
	boolean("STORAGE_USE_SSL", &c.Storage.UseSSL)
	str("STORAGE_PUBLIC_URL", &c.Storage.PublicURL)
	duration("STORAGE_PRESIGN_EXPIRY", &c.Storage.PresignExpiry)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: port %d out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("config: database path is required"))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("config: JWT_SECRET must be at least 16 characters"))
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		errs = append(errs, errors.New("config: token TTL must be positive"))
	}
	if c.Auth.RateLimit <= 0 || c.Auth.RateBurst <= 0 {
		errs = append(errs, errors.New("config: auth rate limit and burst must be positive"))
	}
	if c.Storage.Enabled() && c.Storage.PresignExpiry.Duration <= 0 {
		errs = append(errs, errors.New("config: storage presign expiry must be positive"))
	}
	return errors.Join(errs...)
}

// Enabled reports whether GitHub sign-in is configured.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Enabled reports whether audio upload presigning is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// LoggingOptions converts the log section for logging.New.
func (l LogConfig) LoggingOptions() logging.Options {
	return logging.Options{Level: l.Level, Format: l.Format, File: l.File}
}
