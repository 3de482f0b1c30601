/*
Package flowgraph executes directed graphs of typed nodes over a shared state.

Nodes perform work, edges define flow, and conditional edges pick the next
node from the state at runtime. The healthops workflow is built on it, but
the package knows nothing about hospitals: the state type is a parameter.

# Basic Usage

	type State struct {
	    Input  string
	    Output string
	}

	func answer(ctx flowgraph.Context, s State) (State, error) {
	    s.Output = "Answered: " + s.Input
	    return s, nil
	}

	graph := flowgraph.NewGraph[State]().
	    AddNode("answer", answer).
	    AddEdge("answer", flowgraph.END).
	    SetEntry("answer")

	compiled, err := graph.Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := compiled.Run(ctx, State{Input: "hello"})

# Conditional Branching

Routers return the ID of the next node. Declaring the possible targets
lets Compile check them and lets Run reject anything else:

	graph.AddConditionalEdge("triage", func(ctx flowgraph.Context, s State) string {
	    return s.Next
	}, "beds", "supplies", flowgraph.END)

# Execution

Run is strictly sequential. Each node sees the state returned by the
previous one. Panics inside nodes are recovered into *PanicError, node
failures are wrapped in *NodeError, and routing failures in *RouterError.
Loops are bounded by WithMaxIterations (default 1000).

# Context and Services

Nodes receive a Context carrying the logger, the model client and run
metadata:

	func summarize(ctx flowgraph.Context, s State) (State, error) {
	    ctx.Logger().Info("summarizing", "input_len", len(s.Input))
	    resp, err := ctx.LLM().Complete(ctx, llm.CompletionRequest{...})
	    ...
	}

# Observability

WithObservabilityLogger, WithMetrics and WithTracing attach slog run logs,
OpenTelemetry metrics and spans to a run. All are off by default.
*/
package flowgraph
