// Package config loads application configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore, e.g. BLOG_DATABASE__URL sets database.url.
const EnvPrefix = "BLOG_"

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	JWT      JWTConfig      `koanf:"jwt"`
	CORS     CORSConfig     `koanf:"cors"`
	Media    MediaConfig    `koanf:"media"`
	Seed     SeedConfig     `koanf:"seed"`
}

// ServerConfig configures the HTTP servers.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	// Development disables HSTS.
	Development bool `koanf:"development"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JWTConfig configures token issuance and password hashing.
type JWTConfig struct {
	SecretKey  string        `koanf:"secret_key"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
	Issuer     string        `koanf:"issuer"`
	BcryptCost int           `koanf:"bcrypt_cost"`
}

// CORSConfig configures allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// MediaConfig configures image uploads.
type MediaConfig struct {
	Enabled       bool             `koanf:"enabled"`
	MaxUploadSize int64            `koanf:"max_upload_size"`
	Cloudinary    CloudinaryConfig `koanf:"cloudinary"`
}

// CloudinaryConfig holds Cloudinary credentials.
type CloudinaryConfig struct {
	CloudName string `koanf:"cloud_name"`
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

// SeedConfig lists accounts created at startup.
type SeedConfig struct {
	Enabled bool             `koanf:"enabled"`
	Users   []SeedUserConfig `koanf:"users"`
}

// SeedUserConfig describes one seeded account.
type SeedUserConfig struct {
	Email       string `koanf:"email"`
	DisplayName string `koanf:"display_name"`
	Password    string `koanf:"password"`
	Role        string `koanf:"role"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			RequestTimeout:    60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			AutoMigrate:     true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		JWT: JWTConfig{
			TokenTTL: 24 * time.Hour,
			Issuer:   "blog-api",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Media: MediaConfig{
			MaxUploadSize: 10 << 20,
		},
		Seed: SeedConfig{
			Enabled: true,
			Users: []SeedUserConfig{
				{Email: "admin@example.com", DisplayName: "Admin", Password: "admin123", Role: "admin"},
				{Email: "user@example.com", DisplayName: "User", Password: "user123", Role: "user"},
			},
		},
	}
}

// Load reads configuration from path (optional) and then the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, unmarshalConf()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// unmarshalConf decodes durations and comma-separated lists given as strings.
func unmarshalConf() koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
		},
	}
}

// envKey maps BLOG_JWT__SECRET_KEY to jwt.secret_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("jwt.secret_key is required"))
	}
	if c.JWT.TokenTTL <= 0 {
		errs = append(errs, errors.New("jwt.token_ttl must be positive"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Media.Enabled {
		cld := c.Media.Cloudinary
		if cld.CloudName == "" || cld.APIKey == "" || cld.APISecret == "" {
			errs = append(errs, errors.New("media.cloudinary credentials are required when media is enabled"))
		}
	}
	for i, u := range c.Seed.Users {
		if u.Role != "user" && u.Role != "admin" {
			errs = append(errs, fmt.Errorf("seed.users[%d].role must be user or admin", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
