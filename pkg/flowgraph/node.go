package flowgraph

// END is the terminal node identifier.
// Use this as an edge target to indicate the graph should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and current state and return the
// state the next node should see.
//
// State is passed by value. A node that needs to change slices or maps
// inside the state must copy them first; the engine does not deep-copy.
//
// Example:
//
//	func classify(ctx flowgraph.Context, s Ticket) (Ticket, error) {
//	    s.Category = "billing"
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc selects the next node from the current state.
// It must return a node ID or flowgraph.END. An empty string or an
// unknown node ID fails the run with a *RouterError.
//
// Example:
//
//	func route(ctx flowgraph.Context, s Ticket) string {
//	    if s.Category == "" {
//	        return flowgraph.END
//	    }
//	    return s.Category
//	}
type RouterFunc[S any] func(ctx Context, state S) string
