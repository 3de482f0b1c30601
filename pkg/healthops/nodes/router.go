package nodes

import (
	"github.com/randalmurphal/healthops/pkg/flowgraph"
	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

// Route maps a task category to the node that handles it. It is total:
// general and any unrecognised value go straight to the synthesizer.
func Route(task state.TaskType) string {
	switch task {
	case state.TaskPatientFlow:
		return PatientFlow
	case state.TaskResourceManagement:
		return ResourceManager
	case state.TaskQualityMonitoring:
		return QualityMonitor
	case state.TaskStaffScheduling:
		return StaffScheduler
	}
	return OutputSynthesizer
}

// RouteTargets lists every node Route can return.
func RouteTargets() []string {
	return append(append([]string{}, Specialists...), OutputSynthesizer)
}

// Router is the task_router node. It records the route in the context
// for the graph's conditional edge to follow.
type Router struct{}

// Run writes Route(s.CurrentTask) to the next-node field.
func (Router) Run(ctx flowgraph.Context, s state.State) (state.Update, error) {
	next := Route(s.CurrentTask)
	ctx.Logger().Debug("task routed", "task", string(s.CurrentTask), "next_node", next)
	return state.Update{Context: &state.ContextUpdate{NextNode: &next}}, nil
}

// NextNode is the router function for the task_router conditional edge.
func NextNode(_ flowgraph.Context, s state.State) string {
	return s.Context.NextNode
}
