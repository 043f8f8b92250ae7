// Package config loads the service configuration with viper: defaults first,
// then an optional config file, then SIMVAULT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/simvault/simvault/index"
)

// Config is the top-level service configuration.
type Config struct {
	Listen    string          `mapstructure:"listen"`
	DataDir   string          `mapstructure:"data_dir"`
	Service   ServiceConfig   `mapstructure:"service"`
	Encoder   EncoderConfig   `mapstructure:"encoder"`
	Anchor    AnchorConfig    `mapstructure:"anchor"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServiceConfig describes the similarity service itself.
type ServiceConfig struct {
	// Kind is the artifact kind served: image, video, pdf, book or patent.
	Kind string `mapstructure:"kind"`

	// Dimension is the embedding dimensionality.
	Dimension int `mapstructure:"dimension"`

	// Metric is "SquaredL2" or "Cosine".
	Metric string `mapstructure:"metric"`

	// Threshold is the near-duplicate threshold in the metric's terms.
	Threshold float64 `mapstructure:"threshold"`

	// K is the number of neighbors consulted per check.
	K int `mapstructure:"k"`
}

// EncoderConfig points at the embedding service.
type EncoderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AnchorConfig selects and configures the content store.
type AnchorConfig struct {
	// Backend is "pinata", "minio" or "memory".
	Backend string `mapstructure:"backend"`

	Pinata PinataConfig `mapstructure:"pinata"`
	Minio  MinioConfig  `mapstructure:"minio"`
}

// PinataConfig holds Pinata credentials.
type PinataConfig struct {
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// MinioConfig holds S3-compatible storage settings.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// RegistryConfig selects and configures the anchor registry.
type RegistryConfig struct {
	// Backend is "gateway", "dynamo" or "memory".
	Backend string `mapstructure:"backend"`

	// AnchorWait bounds the registry confirmation per registration.
	AnchorWait time.Duration `mapstructure:"anchor_wait"`

	Gateway GatewayConfig `mapstructure:"gateway"`
	Dynamo  DynamoConfig  `mapstructure:"dynamo"`
}

// GatewayConfig points at the chain gateway service.
type GatewayConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// DynamoConfig holds DynamoDB registry settings.
type DynamoConfig struct {
	Table  string `mapstructure:"table"`
	Region string `mapstructure:"region"`
}

// RateLimitConfig configures per-IP rate limiting on the HTTP surface.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per IP. Zero disables
	// limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// Burst is the maximum burst per IP.
	Burst int `mapstructure:"burst"`
}

// LogConfig controls logging output.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`

	// Format is "text" or "json".
	Format string `mapstructure:"format"`
}

// Kinds are the supported artifact kinds.
var Kinds = []string{"image", "video", "pdf", "book", "patent"}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix SIMVAULT_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("listen", "127.0.0.1:8080")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("service.kind", "image")
	v.SetDefault("service.dimension", 512)
	v.SetDefault("service.metric", index.MetricSquaredL2.String())
	v.SetDefault("service.threshold", 50.0)
	v.SetDefault("service.k", 3)
	v.SetDefault("encoder.base_url", "http://localhost:8091")
	v.SetDefault("encoder.timeout", "120s")
	v.SetDefault("anchor.backend", "memory")
	v.SetDefault("registry.backend", "memory")
	v.SetDefault("registry.anchor_wait", "120s")
	v.SetDefault("rate_limit.requests_per_second", 0.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Environment
	v.SetEnvPrefix("SIMVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Metric returns the parsed ranking metric.
func (c *Config) Metric() (index.Metric, error) {
	return index.ParseMetric(c.Service.Metric)
}

// Validate checks the configuration for logical errors. It returns every
// validation error found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		errs = append(errs, fmt.Errorf("listen %q: %w", c.Listen, err))
	}

	if c.Service.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("service.dimension must be positive, got %d", c.Service.Dimension))
	}
	if _, err := index.ParseMetric(c.Service.Metric); err != nil {
		errs = append(errs, fmt.Errorf("service.metric: %w", err))
	}
	if c.Service.K <= 0 {
		errs = append(errs, fmt.Errorf("service.k must be positive, got %d", c.Service.K))
	}

	validKind := false
	for _, k := range Kinds {
		if c.Service.Kind == k {
			validKind = true
			break
		}
	}
	if !validKind {
		errs = append(errs, fmt.Errorf("service.kind %q: must be one of %s", c.Service.Kind, strings.Join(Kinds, ", ")))
	}

	switch c.Anchor.Backend {
	case "memory":
	case "pinata":
		if c.Anchor.Pinata.APIKey == "" || c.Anchor.Pinata.SecretKey == "" {
			errs = append(errs, errors.New("anchor.pinata: api_key and secret_key required"))
		}
	case "minio":
		if c.Anchor.Minio.Endpoint == "" || c.Anchor.Minio.Bucket == "" {
			errs = append(errs, errors.New("anchor.minio: endpoint and bucket required"))
		}
	default:
		errs = append(errs, fmt.Errorf("anchor.backend %q: must be pinata, minio or memory", c.Anchor.Backend))
	}

	switch c.Registry.Backend {
	case "memory":
	case "gateway":
		if c.Registry.Gateway.BaseURL == "" {
			errs = append(errs, errors.New("registry.gateway: base_url required"))
		}
	case "dynamo":
		if c.Registry.Dynamo.Table == "" {
			errs = append(errs, errors.New("registry.dynamo: table required"))
		}
	default:
		errs = append(errs, fmt.Errorf("registry.backend %q: must be gateway, dynamo or memory", c.Registry.Backend))
	}

	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.burst must be positive when rate is set, got %d", c.RateLimit.Burst))
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.requests_per_second must not be negative, got %g", c.RateLimit.RequestsPerSecond))
	}

	return errs
}
