// Package config loads service configuration from defaults, an optional
// file and PIPELINE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Catalog sources.
const (
	SourceBuiltin  = "builtin"
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceBackend  = "backend"
)

type Config struct {
	Listen      string         `mapstructure:"listen"`
	DatabaseURL string         `mapstructure:"database_url"`
	Catalog     CatalogConfig  `mapstructure:"catalog"`
	Upload      UploadConfig   `mapstructure:"upload"`
	Backend     BackendConfig  `mapstructure:"backend"`
	Sessions    SessionsConfig `mapstructure:"sessions"`
	Log         LogConfig      `mapstructure:"log"`
}

type CatalogConfig struct {
	Source string `mapstructure:"source"`
	File   string `mapstructure:"file"`
}

type UploadConfig struct {
	Dir         string `mapstructure:"dir"`
	MaxBytes    int64  `mapstructure:"max_bytes"`
	PreviewEdge int    `mapstructure:"preview_edge"`
}

type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SessionsConfig struct {
	Max             int           `mapstructure:"max"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with every key defaulted and environment
// lookup enabled. DATABASE_URL is honoured as well as PIPELINE_DATABASE_URL.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("listen", ":3000")
	v.SetDefault("database_url", "")
	v.SetDefault("catalog.source", SourceBuiltin)
	v.SetDefault("catalog.file", "")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_bytes", 10<<20)
	v.SetDefault("upload.preview_edge", 512)
	v.SetDefault("backend.url", "http://localhost:5000")
	v.SetDefault("backend.timeout", 2*time.Minute)
	v.SetDefault("sessions.max", 100)
	v.SetDefault("sessions.ttl", 24*time.Hour)
	v.SetDefault("sessions.cleanup_interval", 10*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix("PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database_url", "PIPELINE_DATABASE_URL", "DATABASE_URL")
	return v
}

// Load reads file (if not empty) into v and decodes the result.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", file, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.Upload.Dir == "" {
		errs = append(errs, errors.New("upload.dir is empty"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("upload.max_bytes must be positive, got %d", c.Upload.MaxBytes))
	}
	if c.Upload.PreviewEdge < 0 {
		errs = append(errs, fmt.Errorf("upload.preview_edge must not be negative, got %d", c.Upload.PreviewEdge))
	}
	if c.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout must not be negative, got %s", c.Backend.Timeout))
	}
	if c.Sessions.Max <= 0 {
		errs = append(errs, fmt.Errorf("sessions.max must be positive, got %d", c.Sessions.Max))
	}
	if c.Sessions.TTL <= 0 {
		errs = append(errs, fmt.Errorf("sessions.ttl must be positive, got %s", c.Sessions.TTL))
	}
	if c.Sessions.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("sessions.cleanup_interval must be positive, got %s", c.Sessions.CleanupInterval))
	}

	switch c.Catalog.Source {
	case SourceBuiltin:
	case SourceFile:
		if c.Catalog.File == "" {
			errs = append(errs, errors.New("catalog.source=file needs catalog.file"))
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("catalog.source=postgres needs database_url"))
		}
	case SourceBackend:
		if c.Backend.URL == "" {
			errs = append(errs, errors.New("catalog.source=backend needs backend.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog.source %q", c.Catalog.Source))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
