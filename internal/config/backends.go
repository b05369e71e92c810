package config

import "l4lb/internal/backend"

// Backends converts the configured backend list into backend.Backend
// handles. Each call produces fresh handles (fresh Health/ErrorWindow);
// callers that want continuity across a reload should diff against the
// previous set themselves before calling pool.UpdateBackends.
func (c *Config) Backends() []*backend.Backend {
	out := make([]*backend.Backend, len(c.LoadBalancer.Backends))
	for i, b := range c.LoadBalancer.Backends {
		out[i] = backend.New(b.Name, b.Address, b.Port, b.Weight)
	}
	return out
}

// PassiveMonitoringEnabled reports whether passive health monitoring is
// enabled, defaulting to true when unset.
func (c *Config) PassiveMonitoringEnabled() bool {
	pm := c.LoadBalancer.Health.PassiveMonitoring
	if pm.Enabled == nil {
		return DefaultPassiveMonitoringEnabled
	}
	return *pm.Enabled
}
