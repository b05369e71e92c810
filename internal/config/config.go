// Package config loads, validates and (optionally) hot-reloads the proxy's
// YAML configuration document.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults applied by applyDefaults when a field is left unset.
const (
	DefaultListenAddress             = "0.0.0.0"
	DefaultListenPort                = 8000
	DefaultFailureThreshold          = 3
	DefaultSuccessThreshold          = 2
	DefaultPassiveMonitoringEnabled  = true
	DefaultConnectTimeoutMs          = 5000
	DefaultBackendWeight             = 1
	DefaultLogLevel                  = "info"
	DefaultLogFormat                 = "json"
	DefaultMetricsAddress            = "127.0.0.1:9090"
)

// Config is the root configuration document.
type Config struct {
	LoadBalancer LoadBalancerConfig `yaml:"loadbalancer"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// LoadBalancerConfig holds the proxy's own listen address and backend set.
type LoadBalancerConfig struct {
	ListenAddress string           `yaml:"listen_address"`
	ListenPort    int              `yaml:"listen_port"`
	Backends      []BackendConfig  `yaml:"backends"`
	Health        HealthConfig     `yaml:"health"`
	Connection    ConnectionConfig `yaml:"connection"`
}

// BackendConfig represents one configured backend server.
type BackendConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	Weight  int    `yaml:"weight"`
}

// HealthConfig holds the passive-monitoring section.
type HealthConfig struct {
	PassiveMonitoring PassiveMonitoringConfig `yaml:"passive_monitoring"`
}

// PassiveMonitoringConfig holds passive health-check thresholds.
type PassiveMonitoringConfig struct {
	Enabled           *bool `yaml:"enabled"`
	FailureThreshold  int   `yaml:"failure_threshold"`
	SuccessThreshold  int   `yaml:"success_threshold"`
	TimeWindowSeconds int   `yaml:"time_window_seconds"`
}

// ConnectionConfig holds connection-level settings. IdleTimeoutMs is
// reserved for a future idle-read timeout and is not currently enforced;
// MaxConcurrentConnections is consumed by the admission package when
// non-zero.
type ConnectionConfig struct {
	ConnectTimeoutMs         int `yaml:"connect_timeout_ms"`
	IdleTimeoutMs            int `yaml:"idle_timeout_ms"`
	MaxConcurrentConnections int `yaml:"max_concurrent_connections"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// ValidationError represents a single configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and parses a configuration file from path, applies defaults and
// validates the result.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Validate checks cfg for the constraints the proxy depends on to start. An
// empty backend list is always rejected: a pool with nothing to select from
// can never serve traffic.
func Validate(cfg *Config) error {
	if len(cfg.LoadBalancer.Backends) == 0 {
		return &ValidationError{Field: "loadbalancer.backends", Message: "must not be empty"}
	}
	if cfg.LoadBalancer.ListenPort < 1 || cfg.LoadBalancer.ListenPort > 65535 {
		return &ValidationError{Field: "loadbalancer.listen_port", Message: "must be between 1 and 65535"}
	}
	for i, b := range cfg.LoadBalancer.Backends {
		if b.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("loadbalancer.backends[%d].name", i), Message: "required"}
		}
		if b.Address == "" {
			return &ValidationError{Field: fmt.Sprintf("loadbalancer.backends[%d].address", i), Message: "required"}
		}
		if b.Port < 1 || b.Port > 65535 {
			return &ValidationError{Field: fmt.Sprintf("loadbalancer.backends[%d].port", i), Message: "must be between 1 and 65535"}
		}
	}
	if cfg.LoadBalancer.Health.PassiveMonitoring.FailureThreshold < 1 {
		return &ValidationError{Field: "loadbalancer.health.passive_monitoring.failure_threshold", Message: "must be >= 1"}
	}
	if cfg.LoadBalancer.Health.PassiveMonitoring.SuccessThreshold < 1 {
		return &ValidationError{Field: "loadbalancer.health.passive_monitoring.success_threshold", Message: "must be >= 1"}
	}
	if cfg.LoadBalancer.Connection.ConnectTimeoutMs < 1 {
		return &ValidationError{Field: "loadbalancer.connection.connect_timeout_ms", Message: "must be >= 1"}
	}
	return nil
}
