// Package llm defines the model-call boundary used by workflow nodes.
//
// Nodes depend only on Client. OpenAIClient talks to a real provider,
// MockClient scripts responses for tests and offline runs, and the
// decorators in this package add retries, timeouts and metrics without
// the nodes knowing.
package llm

import (
	"context"
	"fmt"
)

// Client sends an ordered list of role-tagged messages to a model and
// returns its text.
//
// Implementations must honor ctx cancellation and must be safe for
// concurrent use.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}

// Error is returned by clients for failed calls.
type Error struct {
	// Op is the client operation ("complete").
	Op string
	// Err is the underlying failure.
	Err error
	// Retryable reports whether the same request might succeed later.
	Retryable bool
}

// NewError creates an Error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
