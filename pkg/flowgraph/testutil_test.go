package flowgraph

import (
	"context"
)

// Triage is the state used across engine tests.
type Triage struct {
	Question string
	Category string
	Next     string
	Visited  []string
	Count    int
}

// Counter is a minimal state for loop tests.
type Counter struct {
	Value int
}

func increment(_ Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

func passthrough[S any](_ Context, s S) (S, error) {
	return s, nil
}

// visit returns a node that records its name in Visited.
func visit(name string) NodeFunc[Triage] {
	return func(_ Context, s Triage) (Triage, error) {
		s.Visited = append(append([]string(nil), s.Visited...), name)
		return s, nil
	}
}

// makeFailingNode returns a node that fails with err.
func makeFailingNode(err error) NodeFunc[Triage] {
	return func(_ Context, s Triage) (Triage, error) {
		return s, err
	}
}

// makePanicNode returns a node that panics with value.
func makePanicNode(value any) NodeFunc[Triage] {
	return func(_ Context, _ Triage) (Triage, error) {
		panic(value)
	}
}

// routeNext routes on the Next field.
func routeNext(_ Context, s Triage) string {
	return s.Next
}

func testCtx() Context {
	return NewContext(context.Background())
}

// triageGraph builds classify -> (router) -> beds|supplies|summary -> END.
func triageGraph(classify NodeFunc[Triage]) *Graph[Triage] {
	return NewGraph[Triage]().
		AddNode("classify", classify).
		AddNode("beds", visit("beds")).
		AddNode("supplies", visit("supplies")).
		AddNode("summary", visit("summary")).
		AddConditionalEdge("classify", routeNext, "beds", "supplies", "summary").
		AddEdge("beds", "summary").
		AddEdge("supplies", "summary").
		AddEdge("summary", END).
		SetEntry("classify")
}
