package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:      maxRetries,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		Multiplier:      2.0,
		JitterFactor:    0,
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialInterval != 200*time.Millisecond {
		t.Errorf("InitialInterval = %v, want 200ms", config.InitialInterval)
	}
	if config.MaxInterval != 2*time.Second {
		t.Errorf("MaxInterval = %v, want 2s", config.MaxInterval)
	}
	if config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", config.Multiplier)
	}
}

func TestNew_WithZeroValues(t *testing.T) {
	config := &Config{JitterFactor: 4}
	retrier := New(config)

	if retrier.config.InitialInterval != 200*time.Millisecond {
		t.Errorf("InitialInterval = %v, want 200ms (default)", retrier.config.InitialInterval)
	}
	if retrier.config.JitterFactor != 1 {
		t.Errorf("JitterFactor = %f, want clamped to 1", retrier.config.JitterFactor)
	}
	if config.InitialInterval != 0 {
		t.Error("New must not mutate the caller's config")
	}
}

func TestRetrier_Do_Success(t *testing.T) {
	attempts := 0
	result := New(fastConfig(3)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if result.Err != nil {
		t.Errorf("Err = %v, want nil", result.Err)
	}
	if result.Attempts != 1 || attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
}

func TestRetrier_Do_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	result := New(fastConfig(3)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	if result.Err != nil {
		t.Errorf("Err = %v, want nil", result.Err)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
}

func TestRetrier_Do_MaxRetriesExceeded(t *testing.T) {
	want := errors.New("persistent error")
	result := New(fastConfig(2)).Do(context.Background(), func(ctx context.Context) error {
		return want
	})

	if !errors.Is(result.Err, ErrMaxRetriesExceeded) {
		t.Errorf("Err = %v, want ErrMaxRetriesExceeded", result.Err)
	}
	if result.LastError != want {
		t.Errorf("LastError = %v, want %v", result.LastError, want)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
}

func TestRetrier_Do_PermanentError(t *testing.T) {
	permErr := errors.New("permanent error")
	attempts := 0
	result := New(fastConfig(5)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Permanent(permErr)
	})

	if result.Err != permErr {
		t.Errorf("Err = %v, want %v", result.Err, permErr)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should return nil")
	}

	err := errors.New("x")
	var pe *PermanentError
	if !errors.As(Permanent(err), &pe) || pe.Unwrap() != err {
		t.Error("Permanent should wrap the original error")
	}
}

func TestRetrier_Do_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := fastConfig(10)
	config.InitialInterval = time.Second
	config.MaxInterval = time.Second

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := New(config).Do(ctx, func(ctx context.Context) error {
		return errors.New("error")
	})

	if !errors.Is(result.Err, ErrContextCanceled) {
		t.Errorf("Err = %v, want ErrContextCanceled", result.Err)
	}
}

func TestRetrier_DoWithCallback(t *testing.T) {
	var calls []int
	result := New(fastConfig(2)).DoWithCallback(context.Background(), func(ctx context.Context) error {
		return errors.New("error")
	}, func(attempt int, err error, next time.Duration) {
		calls = append(calls, attempt)
	})

	if result.Err == nil {
		t.Fatal("expected error")
	}
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("callback attempts = %v, want [1 2]", calls)
	}
}

func TestInterval_ExponentialBackoff(t *testing.T) {
	retrier := New(&Config{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     1 * time.Second,
		Multiplier:      2.0,
	})

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second},
	}

	for _, tt := range tests {
		if got := retrier.interval(tt.attempt); got != tt.expected {
			t.Errorf("interval(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestInterval_WithJitter(t *testing.T) {
	retrier := New(&Config{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	})

	for i := 0; i < 100; i++ {
		got := retrier.interval(0)
		if got < 90*time.Millisecond || got > 110*time.Millisecond {
			t.Fatalf("interval(0) = %v, want within ±10%% of 100ms", got)
		}
	}
}

func TestDo_ConvenienceFunction(t *testing.T) {
	attempts := 0
	result := New(fastConfig(1)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("error")
	})

	if result.Attempts != 2 || attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
	if result.TotalDuration <= 0 {
		t.Error("TotalDuration should be positive")
	}
}
