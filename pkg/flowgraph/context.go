package flowgraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/randalmurphal/healthops/pkg/flowgraph/llm"
)

// Context provides execution context to nodes.
// It extends context.Context with services and run metadata.
//
// Context is immutable after creation. The executor derives a context per
// node with NodeID set and the logger enriched.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and node context.
	// Never returns nil; defaults to slog.Default().
	Logger() *slog.Logger

	// LLM returns the model client, or nil if not configured.
	LLM() llm.Client

	// RunID returns the unique identifier for this execution run.
	RunID() string

	// NodeID returns the current node being executed.
	// Empty string outside of node execution.
	NodeID() string

	// Attempt returns the attempt number (1 = first attempt).
	Attempt() int
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger    *slog.Logger
	llmClient llm.Client
	runID     string
	nodeID    string
	attempt   int
}

func (c *executionContext) Logger() *slog.Logger { return c.logger }
func (c *executionContext) LLM() llm.Client      { return c.llmClient }
func (c *executionContext) RunID() string        { return c.runID }
func (c *executionContext) NodeID() string       { return c.nodeID }
func (c *executionContext) Attempt() int         { return c.attempt }

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger is enriched with run_id, node_id and attempt during execution.
// A nil logger is ignored.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLLM sets the model client for the context.
func WithLLM(client llm.Client) ContextOption {
	return func(c *executionContext) {
		c.llmClient = client
	}
}

// WithContextRunID sets the run identifier for the context.
// If not set, a UUID is generated.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		if id != "" {
			c.runID = id
		}
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := flowgraph.NewContext(context.Background(),
//	    flowgraph.WithLogger(logger),
//	    flowgraph.WithLLM(client))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
		attempt: 1,
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withNodeID returns a copy of the context scoped to nodeID.
func (c *executionContext) withNodeID(nodeID string) *executionContext {
	return &executionContext{
		Context:   c.Context,
		logger:    c.logger.With("run_id", c.runID, "node_id", nodeID, "attempt", c.attempt),
		llmClient: c.llmClient,
		runID:     c.runID,
		nodeID:    nodeID,
		attempt:   c.attempt,
	}
}

// withStdContext returns a copy carrying std (for span propagation).
func (c *executionContext) withStdContext(std context.Context) *executionContext {
	cp := *c
	cp.Context = std
	return &cp
}
