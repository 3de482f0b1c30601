package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	fgerrors "github.com/randalmurphal/healthops/pkg/flowgraph/errors"
	"github.com/randalmurphal/healthops/pkg/flowgraph/observability"
)

// WithRetry wraps client so transient failures are retried with backoff.
//
// An *Error decides retryability through its Retryable flag; other errors
// go through the errors package categories. Retries are logged to logger
// when it is non-nil.
func WithRetry(client Client, cfg fgerrors.RetryConfig, logger *slog.Logger) Client {
	if cfg.RetryableFunc == nil {
		cfg.RetryableFunc = isRetryable
	}
	if cfg.OnRetry == nil && logger != nil {
		cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
			observability.LogModelRetry(logger, attempt, err, wait)
		}
	}

	return ClientFunc(func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
		result := fgerrors.WithRetryContext(ctx, cfg, func(ctx context.Context) (*CompletionResponse, error) {
			return client.Complete(ctx, req)
		})
		return result.Value, result.Err
	})
}

func isRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return fgerrors.IsRetryable(err)
}

// WithTimeout bounds every call to client by d. Non-positive d disables it.
func WithTimeout(client Client, d time.Duration) Client {
	if d <= 0 {
		return client
	}
	return ClientFunc(func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		resp, err := client.Complete(ctx, req)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewError("complete", &fgerrors.TimeoutError{Operation: "model call", Duration: d}, true)
		}
		return resp, err
	})
}

// Instrument records metrics, spans and debug logs for every call.
// model labels the telemetry when responses do not name one.
func Instrument(client Client, model string, metrics observability.MetricsRecorder, spans observability.SpanManager, logger *slog.Logger) Client {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if spans == nil {
		spans = observability.NoopSpanManager{}
	}

	return ClientFunc(func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
		label := req.Model
		if label == "" {
			label = model
		}

		spanCtx, span := spans.StartModelSpan(ctx, label)
		done := observability.TimedOperation()
		start := time.Now()

		resp, err := client.Complete(spanCtx, req)

		tokens := 0
		if resp != nil {
			tokens = resp.Usage.TotalTokens
		}
		metrics.RecordModelCall(spanCtx, label, time.Since(start), tokens, err)
		spans.EndSpanWithError(span, err)
		observability.LogModelCall(logger, label, done(), tokens, err)

		return resp, err
	})
}
