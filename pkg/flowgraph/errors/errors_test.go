package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		expected string
	}{
		{CategoryTransient, "transient"},
		{CategoryPermanent, "permanent"},
		{CategoryInvalidInput, "invalid_input"},
		{Category(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.category.String())
		})
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Category
	}{
		{"nil error", nil, CategoryPermanent},
		{"HTTP 429", &HTTPError{StatusCode: 429}, CategoryTransient},
		{"HTTP 503", &HTTPError{StatusCode: 503}, CategoryTransient},
		{"HTTP 500", &HTTPError{StatusCode: 500}, CategoryTransient},
		{"HTTP 408", &HTTPError{StatusCode: 408}, CategoryTransient},
		{"HTTP 401", &HTTPError{StatusCode: 401}, CategoryPermanent},
		{"HTTP 404", &HTTPError{StatusCode: 404}, CategoryPermanent},
		{"HTTP 400", &HTTPError{StatusCode: 400}, CategoryInvalidInput},
		{"HTTP 418", &HTTPError{StatusCode: 418}, CategoryPermanent},
		{"wrapped HTTP 429", fmt.Errorf("call: %w", &HTTPError{StatusCode: 429}), CategoryTransient},
		{"validation error", &ValidationError{Message: "missing field"}, CategoryInvalidInput},
		{"timeout error", &TimeoutError{Operation: "model call", Duration: 30 * time.Second}, CategoryTransient},
		{"deadline exceeded", context.DeadlineExceeded, CategoryTransient},
		{"canceled", context.Canceled, CategoryPermanent},
		{"categorized error", &CategorizedError{Category: CategoryTransient}, CategoryTransient},
		{"unknown error", errors.New("unknown"), CategoryPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.err))
		})
	}
}

func TestCategorizedError(t *testing.T) {
	t.Run("error message with context", func(t *testing.T) {
		err := NewCategorized(errors.New("failed"), CategoryTransient, "model call")
		assert.Equal(t, "model call: failed (category: transient, attempts: 0)", err.Error())
	})

	t.Run("error message without context", func(t *testing.T) {
		err := &CategorizedError{Err: errors.New("failed"), Category: CategoryTransient}
		assert.Equal(t, "failed (category: transient, attempts: 0)", err.Error())
	})

	t.Run("unwrap", func(t *testing.T) {
		inner := errors.New("inner error")
		err := NewCategorized(inner, CategoryPermanent, "test")
		assert.ErrorIs(t, err, inner)
	})
}

func TestErrorConstructors(t *testing.T) {
	inner := errors.New("test error")

	assert.Equal(t, CategoryTransient, Transient(inner, "x").Category)
	assert.Equal(t, CategoryPermanent, Permanent(inner, "x").Category)
	assert.Equal(t, CategoryInvalidInput, InvalidInput(inner, "x").Category)
}

func TestHTTPError(t *testing.T) {
	t.Run("with endpoint", func(t *testing.T) {
		err := &HTTPError{StatusCode: 429, Message: "rate limited", Endpoint: "/chat/completions"}
		assert.Equal(t, "HTTP 429 at /chat/completions: rate limited", err.Error())
	})

	t.Run("without endpoint", func(t *testing.T) {
		err := &HTTPError{StatusCode: 500, Message: "boom"}
		assert.Equal(t, "HTTP 500: boom", err.Error())
	})

	t.Run("unwraps provider error", func(t *testing.T) {
		provider := errors.New("provider says no")
		err := &HTTPError{StatusCode: 401, Err: provider}
		assert.ErrorIs(t, err, provider)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&HTTPError{StatusCode: 503}))
	assert.False(t, IsRetryable(&HTTPError{StatusCode: 401}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestWithRetry(t *testing.T) {
	t.Run("success on first try", func(t *testing.T) {
		calls := 0
		cfg := NewRetryConfig(WithMaxAttempts(3))
		result := WithRetry(cfg, func() (string, error) {
			calls++
			return "success", nil
		})

		require.NoError(t, result.Err)
		assert.Equal(t, "success", result.Value)
		assert.Equal(t, 1, result.Attempts)
		assert.Equal(t, 1, calls)
	})

	t.Run("success on retry", func(t *testing.T) {
		calls := 0
		cfg := NewRetryConfig(
			WithMaxAttempts(3),
			WithInitialBackoff(time.Millisecond),
		)
		result := WithRetry(cfg, func() (string, error) {
			calls++
			if calls < 2 {
				return "", &HTTPError{StatusCode: 503}
			}
			return "success", nil
		})

		require.NoError(t, result.Err)
		assert.Equal(t, 2, result.Attempts)
	})

	t.Run("max attempts exceeded", func(t *testing.T) {
		cfg := NewRetryConfig(
			WithMaxAttempts(3),
			WithInitialBackoff(time.Millisecond),
		)
		result := WithRetry(cfg, func() (string, error) {
			return "", &HTTPError{StatusCode: 503}
		})

		require.Error(t, result.Err)
		assert.Equal(t, 3, result.Attempts)

		var httpErr *HTTPError
		assert.ErrorAs(t, result.Err, &httpErr)
	})

	t.Run("non-retryable error stops immediately", func(t *testing.T) {
		calls := 0
		cfg := NewRetryConfig(WithMaxAttempts(3))
		result := WithRetry(cfg, func() (string, error) {
			calls++
			return "", &HTTPError{StatusCode: 401}
		})

		require.Error(t, result.Err)
		assert.Equal(t, 1, calls)
	})

	t.Run("custom retryable func", func(t *testing.T) {
		calls := 0
		cfg := NewRetryConfig(
			WithMaxAttempts(3),
			WithInitialBackoff(time.Millisecond),
			WithRetryableFunc(func(_ error) bool { return true }),
		)
		result := WithRetry(cfg, func() (string, error) {
			calls++
			return "", &HTTPError{StatusCode: 404}
		})

		assert.Equal(t, 3, calls)
		assert.Equal(t, 3, result.Attempts)
	})

	t.Run("on retry hook sees each failed attempt", func(t *testing.T) {
		var attempts []int
		cfg := NewRetryConfig(
			WithMaxAttempts(3),
			WithInitialBackoff(time.Millisecond),
			WithJitter(0),
			WithOnRetry(func(attempt int, err error, wait time.Duration) {
				attempts = append(attempts, attempt)
				assert.Error(t, err)
				assert.Positive(t, wait)
			}),
		)
		WithRetry(cfg, func() (int, error) {
			return 0, &HTTPError{StatusCode: 429}
		})

		assert.Equal(t, []int{1, 2}, attempts)
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		calls := 0
		result := WithRetry(RetryConfig{}, func() (int, error) {
			calls++
			return 7, nil
		})

		require.NoError(t, result.Err)
		assert.Equal(t, 1, calls)
	})
}

func TestWithRetryContext(t *testing.T) {
	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		cfg := NewRetryConfig(WithMaxAttempts(3))
		result := WithRetryContext(ctx, cfg, func(_ context.Context) (string, error) {
			return "never reached", nil
		})

		require.Error(t, result.Err)
		assert.ErrorIs(t, result.Err, context.Canceled)
		assert.Equal(t, 0, result.Attempts)
	})

	t.Run("cancellation during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0

		cfg := NewRetryConfig(
			WithMaxAttempts(5),
			WithInitialBackoff(100*time.Millisecond),
		)

		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		result := WithRetryContext(ctx, cfg, func(_ context.Context) (string, error) {
			calls++
			return "", &HTTPError{StatusCode: 503}
		})

		require.Error(t, result.Err)
		assert.LessOrEqual(t, calls, 2)
	})
}

func TestNewRetryConfig(t *testing.T) {
	cfg := NewRetryConfig(
		WithMaxAttempts(5),
		WithInitialBackoff(2*time.Second),
		WithMaxBackoff(time.Minute),
		WithBackoffFactor(3),
		WithJitter(0.5),
	)

	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.InitialBackoff)
	assert.Equal(t, time.Minute, cfg.MaxBackoff)
	assert.Equal(t, 3.0, cfg.BackoffFactor)
	assert.Equal(t, 0.5, cfg.Jitter)

	assert.Equal(t, DefaultRetry.MaxAttempts, NewRetryConfig().MaxAttempts)
	assert.Equal(t, 1, NoRetry.MaxAttempts)
}
