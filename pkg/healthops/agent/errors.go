package agent

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/healthops/pkg/flowgraph"
	fgerrors "github.com/randalmurphal/healthops/pkg/flowgraph/errors"
)

// Error codes carried by ValidationError and ProcessingError.
const (
	CodeInputValidation = "INPUT_VALIDATION_ERROR"
	CodeStateValidation = "STATE_VALIDATION_ERROR"
	CodeProcessing      = "PROCESSING_ERROR"
	CodeUnexpected      = "UNEXPECTED_ERROR"
	CodeStore           = "STORE_ERROR"
)

// ValidationError reports input or state that was rejected before the
// workflow ran. It is never worth retrying.
type ValidationError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ProcessingError reports a failed turn. NodeID names the node that
// failed when known; CauseType is the Go type of the innermost cause.
type ProcessingError struct {
	Code      string
	Message   string
	NodeID    string
	CauseType string
	Err       error
}

func (e *ProcessingError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s at node %s: %v", e.Code, e.Message, e.NodeID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Retryable reports whether the cause looks transient, such as a model
// rate limit or timeout. The agent itself never retries.
func (e *ProcessingError) Retryable() bool {
	return fgerrors.IsRetryable(e.Err)
}

// wrapRunError classifies a workflow failure. Errors raised by a node or
// the graph engine are processing errors; anything else is unexpected.
func wrapRunError(err error) error {
	pe := &ProcessingError{
		Code:      CodeProcessing,
		Message:   "failed to process input",
		CauseType: fmt.Sprintf("%T", rootCause(err)),
		Err:       err,
	}

	var (
		nodeErr   *flowgraph.NodeError
		panicErr  *flowgraph.PanicError
		routerErr *flowgraph.RouterError
		cancelErr *flowgraph.CancellationError
		maxErr    *flowgraph.MaxIterationsError
	)
	switch {
	case errors.As(err, &nodeErr):
		pe.NodeID = nodeErr.NodeID
	case errors.As(err, &panicErr):
		pe.NodeID = panicErr.NodeID
	case errors.As(err, &routerErr):
		pe.NodeID = routerErr.FromNode
	case errors.As(err, &cancelErr):
		pe.NodeID = cancelErr.NodeID
	case errors.As(err, &maxErr):
		pe.NodeID = maxErr.LastNodeID
	default:
		pe.Code = CodeUnexpected
		pe.Message = "an unexpected error occurred"
	}
	return pe
}

func storeError(op string, err error) error {
	return &ProcessingError{
		Code:      CodeStore,
		Message:   op,
		CauseType: fmt.Sprintf("%T", rootCause(err)),
		Err:       err,
	}
}

// rootCause follows single-error Unwrap chains to the innermost error.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
