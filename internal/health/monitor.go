// Package health implements passive health monitoring: backend health is
// inferred from the outcomes of real forwarding sessions reported by the
// proxy, rather than from a separate active probe loop.
package health

import (
	"github.com/rs/zerolog"

	"l4lb/internal/backend"
	"l4lb/internal/metrics"
)

// Config holds the passive-monitoring thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures that flips a
	// healthy backend to unhealthy. Must be >= 1.
	FailureThreshold uint32
	// SuccessThreshold is the number of consecutive successes that flips
	// an unhealthy backend back to healthy. Must be >= 1.
	SuccessThreshold uint32
	// Enabled allows passive monitoring to be turned off entirely; when
	// false, RecordSuccess/RecordFailure still update the ErrorWindow
	// (for observability) but never flip Health.
	Enabled bool
}

// Monitor observes per-connection outcomes and drives Health transitions.
// It holds no additional per-backend state beyond what *backend.Backend
// already carries: Health and ErrorWindow are owned by the backend itself
// so they survive selection and persist across observations.
type Monitor struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates a passive health monitor. FailureThreshold and
// SuccessThreshold are clamped to a minimum of 1.
func New(cfg Config, logger zerolog.Logger) *Monitor {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	return &Monitor{cfg: cfg, logger: logger.With().Str("component", "health").Logger()}
}

// RecordFailure records one failed outcome for b. If the consecutive
// failure streak reaches FailureThreshold while b is currently healthy, b is
// marked unhealthy.
func (m *Monitor) RecordFailure(b *backend.Backend) {
	b.Errors.RecordError()
	if !m.cfg.Enabled {
		return
	}

	failures := b.Errors.ConsecutiveFailures()
	if failures >= m.cfg.FailureThreshold && b.Health.IsHealthy() {
		b.Health.MarkUnhealthy()
		metrics.SetBackendHealth(b.Name, false)
		m.logger.Warn().
			Str("backend", b.Name).
			Str("addr", b.Addr()).
			Uint32("consecutive_failures", failures).
			Uint32("threshold", m.cfg.FailureThreshold).
			Msg("backend marked unhealthy")
		return
	}

	m.logger.Debug().
		Str("backend", b.Name).
		Uint32("consecutive_failures", failures).
		Uint32("threshold", m.cfg.FailureThreshold).
		Msg("backend failure recorded")
}

// RecordSuccess records one successful outcome for b. If the consecutive
// success streak reaches SuccessThreshold while b is currently unhealthy, b
// is marked healthy.
func (m *Monitor) RecordSuccess(b *backend.Backend) {
	b.Errors.RecordSuccess()
	if !m.cfg.Enabled {
		return
	}

	successes := b.Errors.ConsecutiveSuccesses()
	if successes >= m.cfg.SuccessThreshold && !b.Health.IsHealthy() {
		b.Health.MarkHealthy()
		metrics.SetBackendHealth(b.Name, true)
		m.logger.Info().
			Str("backend", b.Name).
			Str("addr", b.Addr()).
			Uint32("consecutive_successes", successes).
			Uint32("threshold", m.cfg.SuccessThreshold).
			Msg("backend recovered")
		return
	}

	m.logger.Debug().
		Str("backend", b.Name).
		Uint32("consecutive_successes", successes).
		Uint32("threshold", m.cfg.SuccessThreshold).
		Msg("backend success recorded")
}
