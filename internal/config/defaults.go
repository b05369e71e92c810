package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse parses configuration from YAML bytes, applies defaults, and
// validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LoadBalancer.ListenAddress == "" {
		cfg.LoadBalancer.ListenAddress = DefaultListenAddress
	}
	if cfg.LoadBalancer.ListenPort == 0 {
		cfg.LoadBalancer.ListenPort = DefaultListenPort
	}
	for i := range cfg.LoadBalancer.Backends {
		if cfg.LoadBalancer.Backends[i].Weight < 1 {
			cfg.LoadBalancer.Backends[i].Weight = DefaultBackendWeight
		}
	}

	pm := &cfg.LoadBalancer.Health.PassiveMonitoring
	if pm.Enabled == nil {
		enabled := DefaultPassiveMonitoringEnabled
		pm.Enabled = &enabled
	}
	if pm.FailureThreshold == 0 {
		pm.FailureThreshold = DefaultFailureThreshold
	}
	if pm.SuccessThreshold == 0 {
		pm.SuccessThreshold = DefaultSuccessThreshold
	}

	if cfg.LoadBalancer.Connection.ConnectTimeoutMs == 0 {
		cfg.LoadBalancer.Connection.ConnectTimeoutMs = DefaultConnectTimeoutMs
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = DefaultMetricsAddress
	}
}
