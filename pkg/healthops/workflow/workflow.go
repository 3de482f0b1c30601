// Package workflow assembles the healthcare operations graph and runs one
// conversational turn through it.
//
// The graph is fixed:
//
//	input_analyzer → task_router ─┬→ patient_flow ─────┐
//	                              ├→ resource_manager ─┤
//	                              ├→ quality_monitor ──┼→ output_synthesizer → END
//	                              ├→ staff_scheduler ──┤
//	                              └────────────────────┘
//
// Nodes return partial updates; the workflow merges each one into the state
// before the next node reads it.
package workflow

import (
	"fmt"
	"log/slog"

	"github.com/randalmurphal/healthops/pkg/flowgraph"
	"github.com/randalmurphal/healthops/pkg/healthops/nodes"
	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

// GraphName labels run spans and logs.
const GraphName = "healthops"

// Workflow is a compiled turn pipeline. It is immutable and safe to share
// between goroutines.
type Workflow struct {
	graph   *flowgraph.CompiledGraph[state.State]
	runOpts []flowgraph.RunOption
}

// Option configures a Workflow.
type Option func(*config)

type config struct {
	nodes     nodes.Options
	overrides map[string]nodes.Node
	logger    *slog.Logger
	metrics   bool
	tracing   bool
	maxSteps  int
}

// WithNodeOptions sets prompts, thresholds and departments for the
// standard nodes.
func WithNodeOptions(opts nodes.Options) Option {
	return func(c *config) { c.nodes = opts }
}

// WithNode replaces the standard node registered under name.
func WithNode(name string, n nodes.Node) Option {
	return func(c *config) {
		if c.overrides == nil {
			c.overrides = map[string]nodes.Node{}
		}
		c.overrides[name] = n
	}
}

// WithLogger enables run and node lifecycle logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMetrics toggles OpenTelemetry metrics for every run.
func WithMetrics(enabled bool) Option {
	return func(c *config) { c.metrics = enabled }
}

// WithTracing toggles OpenTelemetry spans for every run.
func WithTracing(enabled bool) Option {
	return func(c *config) { c.tracing = enabled }
}

// WithMaxSteps bounds the number of node executions per run.
func WithMaxSteps(n int) Option {
	return func(c *config) { c.maxSteps = n }
}

// defaultMaxSteps covers the longest path (four nodes) with headroom.
const defaultMaxSteps = 16

// New builds and compiles the workflow graph.
func New(opts ...Option) (*Workflow, error) {
	cfg := config{maxSteps: defaultMaxSteps}
	for _, opt := range opts {
		opt(&cfg)
	}

	registry := nodes.Standard(cfg.nodes)
	for name, n := range cfg.overrides {
		if _, ok := registry[name]; !ok {
			return nil, fmt.Errorf("override unknown node %q", name)
		}
		registry[name] = n
	}

	g := flowgraph.NewGraph[state.State]()
	for _, name := range []string{
		nodes.InputAnalyzer,
		nodes.TaskRouter,
		nodes.PatientFlow,
		nodes.ResourceManager,
		nodes.QualityMonitor,
		nodes.StaffScheduler,
		nodes.OutputSynthesizer,
	} {
		g.AddNode(name, adapt(registry[name]))
	}

	g.AddEdge(nodes.InputAnalyzer, nodes.TaskRouter)
	g.AddConditionalEdge(nodes.TaskRouter, nodes.NextNode, nodes.RouteTargets()...)
	for _, name := range nodes.Specialists {
		g.AddEdge(name, nodes.OutputSynthesizer)
	}
	g.AddEdge(nodes.OutputSynthesizer, flowgraph.END)
	g.SetEntry(nodes.InputAnalyzer)

	compiled, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile workflow: %w", err)
	}

	if cfg.maxSteps <= 0 || cfg.maxSteps > flowgraph.MaxIterationsLimit {
		return nil, fmt.Errorf("max steps must be in 1..%d, got %d", flowgraph.MaxIterationsLimit, cfg.maxSteps)
	}
	runOpts := []flowgraph.RunOption{
		flowgraph.WithGraphName(GraphName),
		flowgraph.WithMaxIterations(cfg.maxSteps),
		flowgraph.WithMetrics(cfg.metrics),
		flowgraph.WithTracing(cfg.tracing),
	}
	if cfg.logger != nil {
		runOpts = append(runOpts, flowgraph.WithObservabilityLogger(cfg.logger))
	}

	return &Workflow{graph: compiled, runOpts: runOpts}, nil
}

// adapt turns a Node into a graph node that merges its update.
func adapt(n nodes.Node) flowgraph.NodeFunc[state.State] {
	return func(ctx flowgraph.Context, s state.State) (state.State, error) {
		u, err := n.Run(ctx, s)
		if err != nil {
			return s, err
		}
		return state.Merge(s, u), nil
	}
}

// Run executes one turn. The initial state is validated and cloned first,
// so the caller's value is never modified. On error the returned state is
// the one at the point of failure and must not be committed.
func (w *Workflow) Run(ctx flowgraph.Context, initial state.State, opts ...flowgraph.RunOption) (state.State, error) {
	if err := state.Validate(initial); err != nil {
		return initial, err
	}
	all := append(append([]flowgraph.RunOption{}, w.runOpts...), opts...)
	return w.graph.Run(ctx, state.Clone(initial), all...)
}

// Nodes lists the node names in the compiled graph.
func (w *Workflow) Nodes() []string {
	return w.graph.NodeIDs()
}
