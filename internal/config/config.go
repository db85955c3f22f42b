package config

import (
	"fmt"
	"time"
)

const (
	DefaultConfigFile = "config.yaml"
)

const (
	DefaultTransport = "tcp"
)

// AssetSourceConfig describes how to reach the client host's asset
// service: the remote endpoint the gateway pulls solution assets and
// manifests from.
type AssetSourceConfig struct {
	Address string `yaml:"address" json:"address"`

	Transport string `yaml:"transport,omitempty" json:"transport,omitempty"`

	DialTimeout string `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`

	RequestTimeout string `yaml:"request_timeout,omitempty" json:"request_timeout,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	JSON bool `yaml:"json,omitempty" json:"json,omitempty"`
}

// SolutionCacheConfig configures the remote workspace solution cache
// (internal/solution). There are deliberately no size or TTL knobs: the
// cache has no admission control, so the only tunables are observability
// ones.
type SolutionCacheConfig struct {
	EnableLogging           bool   `yaml:"enable_logging,omitempty" json:"enable_logging,omitempty"`
	MaterializationLogLevel string `yaml:"materialization_log_level,omitempty" json:"materialization_log_level,omitempty"`
}

type GatewayConfig struct {
	Port int `yaml:"port" json:"port"`

	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	AssetSource AssetSourceConfig `yaml:"asset_source" json:"asset_source"`

	Logging LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`

	SolutionCache SolutionCacheConfig `yaml:"solution_cache,omitempty" json:"solution_cache,omitempty"`
}

func DefaultSolutionCacheConfig() SolutionCacheConfig {
	return SolutionCacheConfig{
		EnableLogging:           true,
		MaterializationLogLevel: "debug",
	}
}

func DefaultConfig() *GatewayConfig {
	return &GatewayConfig{
		Port:    8080,
		Timeout: "30s",
		AssetSource: AssetSourceConfig{
			Address:        "localhost:9257",
			Transport:      DefaultTransport,
			DialTimeout:    "10s",
			RequestTimeout: "30s",
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  true,
		},
		SolutionCache: DefaultSolutionCacheConfig(),
	}
}

func (c *GatewayConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d, must be between 0 and 65535", c.Port)
	}

	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
	}

	if err := c.AssetSource.Validate(); err != nil {
		return fmt.Errorf("asset_source: %w", err)
	}

	return nil
}

func (a *AssetSourceConfig) Validate() error {
	if a.Address == "" {
		return fmt.Errorf("address must be set")
	}

	switch a.Transport {
	case "", DefaultTransport:
	default:
		return fmt.Errorf("unsupported transport: %s", a.Transport)
	}

	for _, d := range []struct {
		name  string
		value string
	}{
		{"dial_timeout", a.DialTimeout},
		{"request_timeout", a.RequestTimeout},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
	}

	return nil
}

// DialTimeoutDuration returns the configured dial timeout, falling back
// to 10s when unset or unparseable (Validate rejects unparseable values
// up front; the fallback here only covers zero-value configs built in
// code).
func (a *AssetSourceConfig) DialTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(a.DialTimeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

func (a *AssetSourceConfig) RequestTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(a.RequestTimeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}
