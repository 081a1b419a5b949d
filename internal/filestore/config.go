package filestore

import (
	"fmt"

	"github.com/koustreak/syncmeta/internal/errs"
)

// Provider identifies the object storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// DefaultPrefix is the key prefix snapshot objects are written under.
const DefaultPrefix = "syncmeta/"

// Config holds all settings needed to reach the snapshot archive.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint"`

	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Region is used by region-aware backends (e.g. AWS S3).
	// Leave empty for MinIO.
	Region string `yaml:"region"`

	// Bucket receives every snapshot object.
	Bucket string `yaml:"bucket"`

	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey, bucket string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    bucket,
		Prefix:    DefaultPrefix,
	}
}

// Enabled reports whether an archive endpoint is configured at all.
func (c *Config) Enabled() bool { return c.Endpoint != "" }

// Validate reports a config no backend could connect with.
func (c *Config) Validate() error {
	switch {
	case c.Provider != "" && c.Provider != ProviderMinIO:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported archive provider %q", c.Provider))
	case c.Endpoint == "":
		return errs.New(errs.ErrKindInvalidInput, "archive endpoint is required")
	case c.Bucket == "":
		return errs.New(errs.ErrKindInvalidInput, "archive bucket is required")
	}
	return nil
}
