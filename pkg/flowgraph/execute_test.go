package flowgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/healthops/pkg/flowgraph/llm"
)

func classifyAs(next string) NodeFunc[Triage] {
	return func(_ Context, s Triage) (Triage, error) {
		s.Next = next
		s.Visited = append(append([]string(nil), s.Visited...), "classify")
		return s, nil
	}
}

// TestRun_Linear tests a straight chain of nodes.
func TestRun_Linear(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddNode("c", increment).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Value)
}

// TestRun_ConditionalEdge tests that exactly one routed branch runs.
func TestRun_ConditionalEdge(t *testing.T) {
	for _, next := range []string{"beds", "supplies"} {
		t.Run(next, func(t *testing.T) {
			compiled, err := triageGraph(classifyAs(next)).Compile()
			require.NoError(t, err)

			result, err := compiled.Run(testCtx(), Triage{})
			require.NoError(t, err)
			assert.Equal(t, []string{"classify", next, "summary"}, result.Visited)
		})
	}
}

// TestRun_ConditionalEdge_DirectToSummary tests routing straight to the
// final node.
func TestRun_ConditionalEdge_DirectToSummary(t *testing.T) {
	compiled, err := triageGraph(classifyAs("summary")).Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Triage{})
	require.NoError(t, err)
	assert.Equal(t, []string{"classify", "summary"}, result.Visited)
}

// TestRun_RouterEmptyResult tests that an empty route fails the run.
func TestRun_RouterEmptyResult(t *testing.T) {
	compiled, err := triageGraph(classifyAs("")).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Triage{})

	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, "classify", routerErr.FromNode)
	assert.ErrorIs(t, err, ErrInvalidRouterResult)
}

// TestRun_RouterUnknownNode tests a route to a node that does not exist.
func TestRun_RouterUnknownNode(t *testing.T) {
	compiled, err := triageGraph(classifyAs("pharmacy")).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Triage{})
	assert.ErrorIs(t, err, ErrRouterTargetNotFound)
}

// TestRun_RouterUndeclaredTarget tests a route to an existing node that
// was not declared on the edge.
func TestRun_RouterUndeclaredTarget(t *testing.T) {
	compiled, err := NewGraph[Triage]().
		AddNode("classify", classifyAs("classify")).
		AddNode("beds", visit("beds")).
		AddConditionalEdge("classify", routeNext, "beds").
		AddEdge("beds", END).
		SetEntry("classify").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Triage{})

	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, "classify", routerErr.Returned)
	assert.ErrorIs(t, err, ErrRouterTargetUndeclared)
	assert.Equal(t, []string{"classify"}, result.Visited)
}

// TestRun_NodeError tests that node failures are wrapped with the node ID
// and stop the run.
func TestRun_NodeError(t *testing.T) {
	modelDown := errors.New("model unavailable")
	compiled, err := NewGraph[Triage]().
		AddNode("classify", classifyAs("beds")).
		AddNode("beds", makeFailingNode(modelDown)).
		AddNode("summary", visit("summary")).
		AddConditionalEdge("classify", routeNext, "beds").
		AddEdge("beds", "summary").
		AddEdge("summary", END).
		SetEntry("classify").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Triage{})

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "beds", nodeErr.NodeID)
	assert.Equal(t, "execute", nodeErr.Op)
	assert.ErrorIs(t, err, modelDown)
	assert.NotContains(t, result.Visited, "summary")
}

// TestRun_Panic tests that panics become PanicError with a stack.
func TestRun_Panic(t *testing.T) {
	compiled, err := NewGraph[Triage]().
		AddNode("classify", makePanicNode("nil map")).
		AddEdge("classify", END).
		SetEntry("classify").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Triage{Question: "q"})

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "classify", panicErr.NodeID)
	assert.Equal(t, "nil map", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.ErrorIs(t, err, ErrNodePanicked)
}

// TestRun_NilContext tests the nil context guard.
func TestRun_NilContext(t *testing.T) {
	compiled, err := triageGraph(classifyAs("beds")).Compile()
	require.NoError(t, err)

	//nolint:staticcheck // nil context is the point of the test
	_, err = compiled.Run(nil, Triage{})
	assert.ErrorIs(t, err, ErrNilContext)
}

// TestRun_CancelledBeforeStart tests cancellation checks between nodes.
func TestRun_CancelledBeforeStart(t *testing.T) {
	compiled, err := triageGraph(classifyAs("beds")).Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = compiled.Run(NewContext(ctx), Triage{})

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "classify", cancelErr.NodeID)
	assert.False(t, cancelErr.WasExecuting)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRun_CancelledDuringNode tests that a node returning the context
// error is reported as a cancellation.
func TestRun_CancelledDuringNode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocking := func(c Context, s Triage) (Triage, error) {
		cancel()
		<-c.Done()
		return s, c.Err()
	}

	compiled, err := NewGraph[Triage]().
		AddNode("slow", blocking).
		AddEdge("slow", END).
		SetEntry("slow").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(NewContext(ctx), Triage{})

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.True(t, cancelErr.WasExecuting)
	assert.Equal(t, "slow", cancelErr.NodeID)
}

// TestRun_MaxIterations tests the loop bound.
func TestRun_MaxIterations(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("inc", increment).
		AddConditionalEdge("inc", func(_ Context, _ Counter) string { return "inc" }).
		SetEntry("inc").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{}, WithMaxIterations(5))

	var maxErr *MaxIterationsError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 5, maxErr.Max)
	assert.Equal(t, 5, result.Value)
	assert.ErrorIs(t, err, ErrMaxIterations)
}

// TestRun_LoopUntilDone tests a bounded loop that exits through END.
func TestRun_LoopUntilDone(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("inc", increment).
		AddConditionalEdge("inc", func(_ Context, s Counter) string {
			if s.Value >= 4 {
				return END
			}
			return "inc"
		}, "inc", END).
		SetEntry("inc").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Value)
}

// TestRun_ContextCarriesNodeIDAndLLM tests the per-node context.
func TestRun_ContextCarriesNodeIDAndLLM(t *testing.T) {
	mock := llm.NewMockClient("beds")
	var seen []string

	ask := func(ctx Context, s Triage) (Triage, error) {
		seen = append(seen, ctx.NodeID())
		resp, err := ctx.LLM().Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{{Role: llm.RoleUser, Content: s.Question}},
		})
		if err != nil {
			return s, err
		}
		s.Category = resp.Content
		return s, nil
	}

	compiled, err := NewGraph[Triage]().
		AddNode("ask", ask).
		AddEdge("ask", END).
		SetEntry("ask").
		Compile()
	require.NoError(t, err)

	ctx := NewContext(context.Background(), WithLLM(mock), WithContextRunID("run-7"))
	assert.Equal(t, "run-7", ctx.RunID())
	assert.Equal(t, 1, ctx.Attempt())

	result, err := compiled.Run(ctx, Triage{Question: "how many beds?"})
	require.NoError(t, err)

	assert.Equal(t, "beds", result.Category)
	assert.Equal(t, []string{"ask"}, seen)
	assert.Equal(t, "how many beds?", mock.LastCall().Messages[0].Content)
}

// TestRun_StateIsolation tests that a failed run leaves the caller's
// state untouched when nodes copy before appending.
func TestRun_StateIsolation(t *testing.T) {
	compiled, err := triageGraph(classifyAs("beds")).Compile()
	require.NoError(t, err)

	initial := Triage{Visited: make([]string, 0, 8)}
	_, err = compiled.Run(testCtx(), initial)
	require.NoError(t, err)
	assert.Empty(t, initial.Visited)
}

// TestRun_Concurrent tests that a compiled graph can serve parallel runs.
func TestRun_Concurrent(t *testing.T) {
	compiled, err := triageGraph(func(_ Context, s Triage) (Triage, error) {
		s.Next = s.Question
		return s, nil
	}).Compile()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := "beds"
			if i%2 == 0 {
				next = "supplies"
			}
			result, err := compiled.Run(testCtx(), Triage{Question: next})
			assert.NoError(t, err)
			assert.Equal(t, []string{next, "summary"}, result.Visited, fmt.Sprint(i))
		}(i)
	}
	wg.Wait()
}

// TestRun_WithRunIDOption tests that the run option overrides the context ID.
func TestRun_WithRunIDOption(t *testing.T) {
	h := &captureHandler{}
	compiled, err := triageGraph(classifyAs("beds")).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Triage{},
		WithRunID("turn-42"),
		WithObservabilityLogger(newCaptureLogger(h)),
	)
	require.NoError(t, err)

	start := h.find("workflow run starting")
	require.NotNil(t, start)
	assert.Equal(t, "turn-42", start["run_id"])
}
