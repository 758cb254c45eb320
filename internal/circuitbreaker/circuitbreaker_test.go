package circuitbreaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/poolctl/internal/circuitbreaker"
)

var errRPC = errors.New("rpc unavailable")

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := circuitbreaker.DefaultConfig("test-rpc")
	cfg.ConsecutiveFailures = 3
	cfg.Timeout = time.Minute

	var transitions []gobreaker.State
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		transitions = append(transitions, to)
	}

	cb := circuitbreaker.New[int](cfg)

	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, errRPC }); !errors.Is(err, errRPC) {
			t.Fatalf("attempt %d: expected rpc error, got %v", i, err)
		}
	}

	if !cb.IsOpen() {
		t.Fatalf("expected open breaker, got %s", cb.State())
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}

	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
}

func TestCircuitBreaker_IsSuccessfulSkipsFailures(t *testing.T) {
	errReverted := errors.New("execution reverted")

	cfg := circuitbreaker.DefaultConfig("test-revert")
	cfg.ConsecutiveFailures = 1
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, errReverted)
	}

	cb := circuitbreaker.New[string](cfg)
	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (string, error) { return "", errReverted })
	}

	if cb.IsOpen() {
		t.Fatal("reverts must not trip the breaker")
	}
	if cb.Name() != "test-revert" {
		t.Fatalf("unexpected name %s", cb.Name())
	}
}
