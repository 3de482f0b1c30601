package flowgraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// AddConditionalEdge and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Construct it from a single
// goroutine, then call Compile() to obtain an immutable CompiledGraph that
// can be shared.
//
// Example:
//
//	graph := flowgraph.NewGraph[MyState]().
//	    AddNode("classify", classify).
//	    AddNode("answer", answer).
//	    AddEdge("classify", "answer").
//	    AddEdge("answer", flowgraph.END).
//	    SetEntry("classify")
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu               sync.RWMutex
	nodes            map[string]NodeFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]conditionalEdge[S]
	entryPoint       string
}

// conditionalEdge pairs a router with the targets it may return.
// A nil targets slice means the router is unconstrained.
type conditionalEdge[S any] struct {
	router  RouterFunc[S]
	targets []string
}

// allows reports whether next is a declared target of the edge.
func (e conditionalEdge[S]) allows(next string) bool {
	if e.targets == nil {
		return true
	}
	for _, t := range e.targets {
		if t == next {
			return true
		}
	}
	return false
}

// NewGraph creates a new graph builder for state type S.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]NodeFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]conditionalEdge[S]),
	}
}

// AddNode adds a named node to the graph.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("flowgraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == END {
		panic("flowgraph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("flowgraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("flowgraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("flowgraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or flowgraph.END.
//
// Edge validation happens at Compile() time, so edges may be added
// before the nodes they reference.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge adds an edge whose destination is chosen at runtime
// by router.
//
// targets lists every node ID (or END) the router may return. When targets
// are declared, Compile checks that each exists and Run rejects any other
// value with ErrRouterTargetUndeclared. With no targets the router may
// return any node in the graph.
//
// A conditional edge takes precedence over simple edges from the same node.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S], targets ...string) *Graph[S] {
	if router == nil {
		panic("flowgraph: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	edge := conditionalEdge[S]{router: router}
	if len(targets) > 0 {
		edge.targets = append([]string(nil), targets...)
	}
	g.conditionalEdges[from] = edge
	return g
}

// SetEntry designates the entry point node.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
