package backend

import (
	"sync"
	"testing"
)

func TestHealthInitiallyHealthy(t *testing.T) {
	h := NewHealth()
	if !h.IsHealthy() {
		t.Fatal("expected newly created health to be healthy")
	}
}

func TestHealthTransitions(t *testing.T) {
	h := NewHealth()
	h.MarkUnhealthy()
	if h.IsHealthy() {
		t.Fatal("expected unhealthy after MarkUnhealthy")
	}
	h.MarkUnhealthy() // idempotent
	if h.IsHealthy() {
		t.Fatal("expected still unhealthy after repeated MarkUnhealthy")
	}
	h.MarkHealthy()
	if !h.IsHealthy() {
		t.Fatal("expected healthy after MarkHealthy")
	}
}

func TestErrorWindowResetOnOpposite(t *testing.T) {
	w := NewErrorWindow()
	w.RecordError()
	w.RecordError()
	if w.ConsecutiveFailures() != 2 || w.ConsecutiveSuccesses() != 0 {
		t.Fatalf("got failures=%d successes=%d, want 2/0", w.ConsecutiveFailures(), w.ConsecutiveSuccesses())
	}

	w.RecordSuccess()
	if w.ConsecutiveFailures() != 0 || w.ConsecutiveSuccesses() != 1 {
		t.Fatalf("got failures=%d successes=%d, want 0/1", w.ConsecutiveFailures(), w.ConsecutiveSuccesses())
	}
}

func TestErrorWindowAtMostOneNonZero(t *testing.T) {
	w := NewErrorWindow()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w.RecordError()
		}()
		go func() {
			defer wg.Done()
			w.RecordSuccess()
		}()
	}
	wg.Wait()

	f, s := w.ConsecutiveFailures(), w.ConsecutiveSuccesses()
	if f != 0 && s != 0 {
		t.Fatalf("expected at most one non-zero counter, got failures=%d successes=%d", f, s)
	}
}

func TestBackendAddr(t *testing.T) {
	b := New("B1", "127.0.0.1", 9000, 0)
	if b.Addr() != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %s", b.Addr())
	}
	if b.Weight != 1 {
		t.Fatalf("expected weight to default to 1, got %d", b.Weight)
	}
	if !b.Health.IsHealthy() {
		t.Fatal("expected new backend to be healthy")
	}
}
