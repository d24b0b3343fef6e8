package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      false,
	}
}

func retryableClassifier(err error) ErrorClassification {
	return ErrorClassification{Retryable: true, RecordFailure: true}
}

func permanentClassifier(err error) ErrorClassification {
	return ErrorClassification{Retryable: false, RecordFailure: false}
}

func TestConfigNormalize_ClampsOutOfRangeFields(t *testing.T) {
	def := DefaultConfig()
	got := Config{
		RetryMaxAttempts:    -1,
		RetryInitialBackoff: time.Second,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     0.5,
		BreakerFailureRatio: 1.5,
	}.normalize()

	if got.RetryMaxAttempts != def.RetryMaxAttempts {
		t.Fatalf("RetryMaxAttempts = %d", got.RetryMaxAttempts)
	}
	if got.RetryMaxBackoff != time.Second {
		t.Fatalf("RetryMaxBackoff = %v, want raised to initial backoff", got.RetryMaxBackoff)
	}
	if got.RetryMultiplier != def.RetryMultiplier {
		t.Fatalf("RetryMultiplier = %v", got.RetryMultiplier)
	}
	if got.BreakerFailureRatio != def.BreakerFailureRatio {
		t.Fatalf("BreakerFailureRatio = %v", got.BreakerFailureRatio)
	}
	if got.BreakerMinRequests != def.BreakerMinRequests || got.BreakerOpenTimeout != def.BreakerOpenTimeout {
		t.Fatalf("breaker defaults not applied: %+v", got)
	}
}

func TestExecute_SucceedsFirstTry(t *testing.T) {
	e := NewExecutor(fastConfig())

	calls := 0
	err := e.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	}, retryableClassifier)

	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestExecute_RetriesUntilSuccess(t *testing.T) {
	e := NewExecutor(fastConfig())

	calls := 0
	err := e.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, retryableClassifier)

	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	e := NewExecutor(fastConfig())

	boom := errors.New("still down")
	calls := 0
	err := e.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return boom
	}, retryableClassifier)

	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want RetryMaxAttempts", calls)
	}
}

func TestExecute_PermanentErrorNotRetried(t *testing.T) {
	e := NewExecutor(fastConfig())

	calls := 0
	err := e.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("bad request")
	}, permanentClassifier)

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestExecute_CanceledContextStopsRetry(t *testing.T) {
	e := NewExecutor(fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	boom := errors.New("transient")
	calls := 0
	err := e.Execute(ctx, "op", func(context.Context) error {
		calls++
		cancel()
		return boom
	}, retryableClassifier)

	if !errors.Is(err, boom) {
		t.Fatalf("expected last call error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 after cancellation", calls)
	}
}

func TestExecute_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	e := NewExecutor(cfg)

	boom := errors.New("backend down")
	for i := 0; i < 5; i++ {
		_ = e.Execute(context.Background(), "op", func(context.Context) error {
			return boom
		}, retryableClassifier)
	}

	calls := 0
	err := e.Execute(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	}, retryableClassifier)

	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls != 0 {
		t.Fatal("open breaker must not invoke the callback")
	}
}

func TestExecute_BreakersArePerOperation(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	e := NewExecutor(cfg)

	boom := errors.New("backend down")
	for i := 0; i < 5; i++ {
		_ = e.Execute(context.Background(), "failing_op", func(context.Context) error {
			return boom
		}, retryableClassifier)
	}

	if err := e.Execute(context.Background(), "healthy_op", func(context.Context) error {
		return nil
	}, retryableClassifier); err != nil {
		t.Fatalf("healthy operation must have its own breaker, got %v", err)
	}
}

func TestExecute_FailuresNotRecordedKeepBreakerClosed(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	e := NewExecutor(cfg)

	for i := 0; i < 10; i++ {
		_ = e.Execute(context.Background(), "op", func(context.Context) error {
			return errors.New("caller bug")
		}, permanentClassifier)
	}

	if err := e.Execute(context.Background(), "op", func(context.Context) error {
		return nil
	}, permanentClassifier); err != nil {
		t.Fatalf("unrecorded failures must not trip the breaker, got %v", err)
	}
}
