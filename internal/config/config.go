// Package config loads syncmeta settings from a YAML file, an optional .env
// file and SYNCMETA_* environment variables, in that order of precedence
// (environment wins).
//
// Usage:
//
//	cfg, err := config.Load("syncmeta.yaml")
//	if err != nil { ... }
//	p, err := provider.Open(ctx, cfg)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/syncmeta/internal/database"
	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/filestore"
	"github.com/koustreak/syncmeta/internal/logger"
	"github.com/koustreak/syncmeta/internal/scope"
)

// Environment variables that override file values.
const (
	EnvDriver        = "SYNCMETA_DRIVER"
	EnvDSN           = "SYNCMETA_DSN"
	EnvLogLevel      = "SYNCMETA_LOG_LEVEL"
	EnvLogFormat     = "SYNCMETA_LOG_FORMAT"
	EnvScopeTable    = "SYNCMETA_SCOPE_TABLE"
	EnvHTTPAddr      = "SYNCMETA_HTTP_ADDR"
	EnvArchiveURL    = "SYNCMETA_ARCHIVE_ENDPOINT"
	EnvArchiveKey    = "SYNCMETA_ARCHIVE_ACCESS_KEY"
	EnvArchiveSecret = "SYNCMETA_ARCHIVE_SECRET_KEY"
	EnvArchiveBucket = "SYNCMETA_ARCHIVE_BUCKET"
	EnvArchiveUseSSL = "SYNCMETA_ARCHIVE_USE_SSL"
)

const (
	defaultHTTPAddr    = ":8080"
	defaultReadTimeout = 10 * time.Second
)

// Config is the full set of runtime settings.
type Config struct {
	Database database.Config  `yaml:"database"`
	Log      logger.Config    `yaml:"log"`
	Scope    ScopeConfig      `yaml:"scope"`
	HTTP     HTTPConfig       `yaml:"http"`
	Archive  filestore.Config `yaml:"archive"`
}

// ScopeConfig configures the scope metadata table.
type ScopeConfig struct {
	// Table is the scope table name, optionally schema-qualified and quoted.
	Table string `yaml:"table"`
}

// HTTPConfig configures the read-only inspection API.
type HTTPConfig struct {
	Addr        string        `yaml:"addr"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// Default returns a config with every optional value filled in. Driver and
// DSN are left empty; they have no sensible default.
func Default() *Config {
	return &Config{
		Database: *database.DefaultConfig("", ""),
		Log:      *logger.DefaultConfig(),
		Scope:    ScopeConfig{Table: scope.DefaultTableName},
		HTTP:     HTTPConfig{Addr: defaultHTTPAddr, ReadTimeout: defaultReadTimeout},
		Archive:  filestore.Config{Provider: filestore.ProviderMinIO, Prefix: filestore.DefaultPrefix},
	}
}

// Load builds a Config from path (may be empty), the .env file in the working
// directory (if any) and the process environment, then validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that still overlay settings
// of their own (command-line flags) before calling Validate.
func Read(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv sets variables from a .env file without overriding ones already
// present. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("failed to read %s", path), err)
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("config file %s not found", path), err)
		}
		return errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("failed to read %s", path), err)
	}
	return c.decode([]byte(os.ExpandEnv(string(data))))
}

// decode overlays YAML onto c; keys absent from the document keep their
// current values.
func (c *Config) decode(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid config YAML", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDriver); v != "" {
		c.Database.Driver = database.Driver(v)
	}
	setString(&c.Database.DSN, EnvDSN)
	setString(&c.Log.Level, EnvLogLevel)
	setString(&c.Log.Format, EnvLogFormat)
	setString(&c.Scope.Table, EnvScopeTable)
	setString(&c.HTTP.Addr, EnvHTTPAddr)
	setString(&c.Archive.Endpoint, EnvArchiveURL)
	setString(&c.Archive.AccessKey, EnvArchiveKey)
	setString(&c.Archive.SecretKey, EnvArchiveSecret)
	setString(&c.Archive.Bucket, EnvArchiveBucket)

	if v := os.Getenv(EnvArchiveUseSSL); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("%s must be a boolean", EnvArchiveUseSSL), err)
		}
		c.Archive.UseSSL = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports settings that would make every operation fail.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid database config", err)
	}
	if c.Scope.Table == "" {
		return errs.New(errs.ErrKindInvalidInput, "scope.table must not be empty")
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported log format %q", c.Log.Format))
	}
	return nil
}
