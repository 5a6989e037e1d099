package resilience

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	var transitions []CircuitState
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "test",
		MaxFailures: 2,
		OpenTimeout: 50 * time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnStateChange: func(_ string, _, to CircuitState) {
			transitions = append(transitions, to)
		},
	})

	boom := errors.New("connection refused")
	calls := 0
	failing := func() error { calls++; return boom }

	for i := 0; i < 2; i++ {
		if err := cb.Execute(failing); !errors.Is(err, boom) {
			t.Fatalf("call %d error = %v, want %v", i+1, err, boom)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want OPEN", cb.State())
	}

	if err := cb.Execute(failing); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open breaker error = %v, want ErrCircuitOpen", err)
	}
	if calls != 2 {
		t.Errorf("operation called %d times, want 2", calls)
	}

	time.Sleep(80 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("trial call error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state after successful trial = %v, want CLOSED", cb.State())
	}

	want := []CircuitState{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestCircuitStateString(t *testing.T) {
	t.Parallel()

	tests := map[CircuitState]string{
		StateClosed:      "CLOSED",
		StateHalfOpen:    "HALF-OPEN",
		StateOpen:        "OPEN",
		CircuitState(42): "UNKNOWN",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(state), got, want)
		}
	}
}
