package health

import (
	"testing"

	"github.com/rs/zerolog"

	"l4lb/internal/backend"
)

func newTestMonitor(failureThreshold, successThreshold uint32) *Monitor {
	return New(Config{
		FailureThreshold: failureThreshold,
		SuccessThreshold: successThreshold,
		Enabled:          true,
	}, zerolog.Nop())
}

func TestThresholdLaw(t *testing.T) {
	m := newTestMonitor(3, 2)
	b := backend.New("B1", "127.0.0.1", 1, 1)

	m.RecordFailure(b)
	if !b.Health.IsHealthy() {
		t.Fatal("expected healthy after 1 failure")
	}
	m.RecordFailure(b)
	if !b.Health.IsHealthy() {
		t.Fatal("expected healthy after 2 failures")
	}
	m.RecordFailure(b)
	if b.Health.IsHealthy() {
		t.Fatal("expected unhealthy after 3 consecutive failures")
	}
}

func TestInterveningSuccessResetsStreak(t *testing.T) {
	m := newTestMonitor(3, 2)
	b := backend.New("B1", "127.0.0.1", 1, 1)

	m.RecordFailure(b)
	m.RecordFailure(b)
	m.RecordSuccess(b) // resets failures to 0
	m.RecordFailure(b)
	m.RecordFailure(b)
	if !b.Health.IsHealthy() {
		t.Fatal("expected still healthy: only 2 consecutive failures since the reset")
	}
}

func TestRecovery(t *testing.T) {
	m := newTestMonitor(3, 2)
	b := backend.New("B1", "127.0.0.1", 1, 1)

	m.RecordFailure(b)
	m.RecordFailure(b)
	m.RecordFailure(b)
	if b.Health.IsHealthy() {
		t.Fatal("expected unhealthy")
	}

	m.RecordSuccess(b)
	if b.Health.IsHealthy() {
		t.Fatal("expected still unhealthy after only 1 success")
	}
	m.RecordSuccess(b)
	if !b.Health.IsHealthy() {
		t.Fatal("expected healthy after 2 consecutive successes")
	}
}

func TestResetLaw(t *testing.T) {
	m := newTestMonitor(3, 2)
	b := backend.New("B1", "127.0.0.1", 1, 1)

	m.RecordFailure(b)
	m.RecordSuccess(b)

	if b.Errors.ConsecutiveFailures() != 0 || b.Errors.ConsecutiveSuccesses() != 1 {
		t.Fatalf("got failures=%d successes=%d, want 0/1", b.Errors.ConsecutiveFailures(), b.Errors.ConsecutiveSuccesses())
	}
}

func TestDisabledMonitoringNeverFlipsHealth(t *testing.T) {
	m := New(Config{FailureThreshold: 1, SuccessThreshold: 1, Enabled: false}, zerolog.Nop())
	b := backend.New("B1", "127.0.0.1", 1, 1)

	m.RecordFailure(b)
	if !b.Health.IsHealthy() {
		t.Fatal("expected health untouched while monitoring disabled")
	}
}
