package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

type manualClock struct{ t time.Time }

func (c *manualClock) Now() time.Time          { return c.t }
func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var errTest = errors.New("test error")

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errTest }

func newBreaker(threshold int) (*CircuitBreaker, *manualClock) {
	clock := &manualClock{t: time.Unix(0, 0)}
	return New(Config{
		Name:             "test",
		FailureThreshold: threshold,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
		Now:              clock.Now,
	}), clock
}

func TestCircuitBreakerStateClosed(t *testing.T) {
	cb, _ := newBreaker(3)
	if err := cb.Call(context.Background(), ok); err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb, _ := newBreaker(3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := cb.Call(ctx, fail); !errors.Is(err, errTest) {
			t.Errorf("Expected test error, got: %v", err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Errorf("Expected state to be Open, got %v", cb.GetState())
	}

	called := false
	err := cb.Call(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got: %v", err)
	}
	if called {
		t.Error("fn must not run while open")
	}
}

func TestCircuitBreakerHalfOpenAfterTimeout(t *testing.T) {
	cb, clock := newBreaker(2)
	ctx := context.Background()
	cb.Call(ctx, fail)
	cb.Call(ctx, fail)

	clock.Advance(60 * time.Millisecond)
	if err := cb.Call(ctx, ok); err != nil {
		t.Errorf("Expected success in half-open state, got: %v", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Errorf("Expected Half-Open after one success, got %v", cb.GetState())
	}
}

func TestCircuitBreakerClosesAfterSuccesses(t *testing.T) {
	cb, clock := newBreaker(2)
	ctx := context.Background()
	cb.Call(ctx, fail)
	cb.Call(ctx, fail)
	clock.Advance(60 * time.Millisecond)

	cb.Call(ctx, ok)
	cb.Call(ctx, ok)
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerReopensOnFailureInHalfOpen(t *testing.T) {
	cb, clock := newBreaker(2)
	ctx := context.Background()
	cb.Call(ctx, fail)
	cb.Call(ctx, fail)
	clock.Advance(60 * time.Millisecond)

	cb.Call(ctx, fail)
	if cb.GetState() != StateOpen {
		t.Errorf("Expected state to be Open after failure in half-open, got %v", cb.GetState())
	}
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb, _ := newBreaker(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("cancellation must not trip the breaker, got %v", cb.GetState())
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown"} {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
