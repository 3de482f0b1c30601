// Package agent is the entry point for conversational turns. It loads
// the thread's state, appends the user's message, runs the workflow and
// commits the terminal state only when the whole turn succeeded.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/healthops/pkg/flowgraph"
	"github.com/randalmurphal/healthops/pkg/flowgraph/llm"
	"github.com/randalmurphal/healthops/pkg/healthops/conversation"
	"github.com/randalmurphal/healthops/pkg/healthops/state"
	"github.com/randalmurphal/healthops/pkg/healthops/store"
	"github.com/randalmurphal/healthops/pkg/healthops/workflow"
)

// Request is one user turn.
type Request struct {
	// ThreadID selects the conversation. Empty starts a new one.
	ThreadID string
	// Input is the user's message. Blank input is rejected.
	Input string
	// Context carries caller data. "budget_info" feeds the resource
	// manager; other keys land in the state's extensions.
	Context map[string]any
	// Metrics is merged into the thread's metrics before the run.
	Metrics *state.MetricsPatch
}

// Response is the outcome of a successful turn.
type Response struct {
	ThreadID  string          `json:"thread_id"`
	Response  string          `json:"response"`
	Task      state.TaskType  `json:"task"`
	Priority  state.Priority  `json:"priority"`
	Analysis  *state.Analysis `json:"analysis,omitempty"`
	Metrics   state.Metrics   `json:"metrics"`
	Timestamp time.Time       `json:"timestamp"`
}

// Agent runs turns. It is safe for concurrent use; turns on the same
// thread are serialized, turns on different threads run in parallel.
type Agent struct {
	client   llm.Client
	workflow *workflow.Workflow
	registry *conversation.Registry
	logger   *slog.Logger
	locks    *threadLocks
	now      func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithWorkflow sets the compiled workflow. Default: workflow.New().
func WithWorkflow(w *workflow.Workflow) Option {
	return func(a *Agent) { a.workflow = w }
}

// WithRegistry sets the conversation registry. Default: an in-memory
// store.
func WithRegistry(r *conversation.Registry) Option {
	return func(a *Agent) { a.registry = r }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an agent calling the model through client.
func New(client llm.Client, opts ...Option) (*Agent, error) {
	if client == nil {
		return nil, errors.New("agent: model client is required")
	}
	a := &Agent{
		client: client,
		logger: slog.Default(),
		locks:  newThreadLocks(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workflow == nil {
		w, err := workflow.New(workflow.WithLogger(a.logger))
		if err != nil {
			return nil, fmt.Errorf("agent: build workflow: %w", err)
		}
		a.workflow = w
	}
	if a.registry == nil {
		a.registry = conversation.NewRegistry(store.NewMemoryStore())
	}
	return a, nil
}

// Process runs one turn.
//
// Blank input fails with a *ValidationError before the registry or the
// model is touched. Any later failure is a *ProcessingError and leaves the
// stored thread unchanged.
func (a *Agent) Process(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Input) == "" {
		err := &ValidationError{
			Code:    CodeInputValidation,
			Message: "input text cannot be empty",
			Details: map[string]any{"provided_input": req.Input},
		}
		a.logger.Error("validation error", "error_code", err.Code, "error", err.Message)
		return nil, err
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.New().String()
	}
	logger := a.logger.With("thread_id", threadID)
	start := a.now()

	unlock := a.locks.lock(threadID)
	defer unlock()

	current, err := a.registry.GetOrCreate(ctx, threadID)
	if err != nil {
		return nil, a.fail(logger, storeError("failed to load conversation", err))
	}

	turn := state.Merge(current, state.Update{
		Messages: []state.Message{state.UserMessage(req.Input)},
		Metrics:  req.Metrics,
		Context:  state.ContextFromMap(req.Context),
	})
	if err := state.Validate(turn); err != nil {
		return nil, a.fail(logger, &ValidationError{
			Code:    CodeStateValidation,
			Message: "invalid conversation state",
			Err:     err,
		})
	}

	fgCtx := flowgraph.NewContext(ctx,
		flowgraph.WithLogger(logger),
		flowgraph.WithLLM(a.client),
	)
	final, err := a.workflow.Run(fgCtx, turn)
	if err != nil {
		return nil, a.fail(logger, wrapRunError(err))
	}

	if err := a.registry.Put(ctx, final); err != nil {
		return nil, a.fail(logger, storeError("failed to save conversation", err))
	}

	logger.Info("turn complete",
		"task", string(final.CurrentTask),
		"priority", int(final.Priority),
		"department", final.Department,
		"duration_ms", a.now().Sub(start).Milliseconds(),
	)

	return &Response{
		ThreadID:  threadID,
		Response:  final.LatestResponse(),
		Task:      final.CurrentTask,
		Priority:  final.Priority,
		Analysis:  final.Analysis,
		Metrics:   final.Metrics,
		Timestamp: a.now(),
	}, nil
}

// GetConversationHistory returns the thread's messages in order, or an
// empty slice for an unknown thread.
func (a *Agent) GetConversationHistory(ctx context.Context, threadID string) ([]state.Message, error) {
	history, err := a.registry.History(ctx, threadID)
	if err != nil {
		return nil, a.fail(a.logger.With("thread_id", threadID), storeError("failed to retrieve conversation history", err))
	}
	return history, nil
}

// ResetConversation discards the thread's state. It reports true once the
// thread is back to its default state, whether or not it existed.
func (a *Agent) ResetConversation(ctx context.Context, threadID string) (bool, error) {
	unlock := a.locks.lock(threadID)
	defer unlock()

	logger := a.logger.With("thread_id", threadID)
	_, existed, err := a.registry.Reset(ctx, threadID)
	if err != nil {
		return false, a.fail(logger, storeError("failed to reset conversation", err))
	}
	logger.Info("conversation reset", "existed", existed)
	return true, nil
}

// Threads lists the stored thread ids.
func (a *Agent) Threads(ctx context.Context) ([]string, error) {
	ids, err := a.registry.Threads(ctx)
	if err != nil {
		return nil, storeError("failed to list conversations", err)
	}
	return ids, nil
}

// Close releases the registry's store.
func (a *Agent) Close() error {
	return a.registry.Close()
}

func (a *Agent) fail(logger *slog.Logger, err error) error {
	var (
		ve *ValidationError
		pe *ProcessingError
	)
	switch {
	case errors.As(err, &ve):
		logger.Error("validation error", "error_code", ve.Code, "error", err)
	case errors.As(err, &pe):
		logger.Error("turn failed",
			"error_code", pe.Code,
			"node_id", pe.NodeID,
			"error_type", pe.CauseType,
			"error", err,
		)
	default:
		logger.Error("turn failed", "error", err)
	}
	return err
}
