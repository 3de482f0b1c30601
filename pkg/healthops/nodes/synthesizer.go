package nodes

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/healthops/pkg/flowgraph"
	"github.com/randalmurphal/healthops/pkg/healthops/hospital"
	"github.com/randalmurphal/healthops/pkg/healthops/prompts"
	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

// Synthesizer is the output_synthesizer node. It is terminal.
type Synthesizer struct {
	prompts *prompts.Library
}

// NewSynthesizer returns the output_synthesizer node.
func NewSynthesizer(lib *prompts.Library) *Synthesizer {
	return &Synthesizer{prompts: lib}
}

// Run makes one model call over a summary of the whole state and replaces
// the analysis with the final structured result. Assessments and metrics
// impact from the specialist are carried over.
func (n *Synthesizer) Run(ctx flowgraph.Context, s state.State) (state.Update, error) {
	text, err := consult(ctx, n.prompts, prompts.OutputSynthesis, map[string]any{"context": ContextSummary(s)})
	if err != nil {
		return fail(ctx, "output synthesis", err)
	}

	ex := Extract(text)
	final := &state.Analysis{
		Category:        s.CurrentTask,
		Priority:        s.Priority,
		Summary:         ex.Summary,
		Findings:        ex.Findings,
		Recommendations: ex.Recommendations,
		ActionItems:     ex.ActionItems,
	}
	if prev := s.Analysis; prev != nil {
		final.MetricsImpact = prev.MetricsImpact
		final.Assessments = prev.Assessments
	}

	return state.Update{
		Messages: []state.Message{state.AssistantMessage(OutputSynthesizer, text)},
		Analysis: final,
	}, nil
}

// ContextSummary renders the task, priority, department and one line per
// metric domain, followed by the user's request and any specialist
// findings.
func ContextSummary(s state.State) string {
	dept := s.Department
	if dept == "" {
		dept = "All Departments"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task Type: %s\n", s.CurrentTask)
	fmt.Fprintf(&b, "Priority Level: %d (%s)\n", int(s.Priority), s.Priority)
	fmt.Fprintf(&b, "Department: %s\n", dept)
	b.WriteString("Key Metrics Summary:\n")
	fmt.Fprintf(&b, "- Patient Flow: %s\n", SummarizePatientFlow(s.Metrics))
	fmt.Fprintf(&b, "- Resources: %s\n", SummarizeResources(s.Metrics))
	fmt.Fprintf(&b, "- Quality: %s\n", SummarizeQuality(s.Metrics))
	fmt.Fprintf(&b, "- Staffing: %s\n", SummarizeStaffing(s.Metrics))

	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == state.RoleUser {
			fmt.Fprintf(&b, "Request: %s\n", s.Messages[i].Content)
			break
		}
	}

	if a := s.Analysis; a != nil {
		writeList(&b, "Specialist Findings", a.Findings)
		writeList(&b, "Specialist Recommendations", a.Recommendations)
		for _, as := range a.Assessments {
			fmt.Fprintf(&b, "- Assessment %s: %s (%s)\n", as.Name, as.Value, as.Status)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

// SummarizePatientFlow renders "Occupancy 80.0%".
func SummarizePatientFlow(m state.Metrics) string {
	return fmt.Sprintf("Occupancy %.1f%%", hospital.Occupancy(m.PatientFlow))
}

// SummarizeResources renders "Utilization 75.0%".
func SummarizeResources(m state.Metrics) string {
	return fmt.Sprintf("Utilization %.1f%%", m.Resources.ResourceUtilization*100)
}

// SummarizeQuality renders "Satisfaction 8.5/10".
func SummarizeQuality(m state.Metrics) string {
	return fmt.Sprintf("Satisfaction %.1f/10", m.Quality.PatientSatisfaction)
}

// SummarizeStaffing renders "Staff Available: 300".
func SummarizeStaffing(m state.Metrics) string {
	return fmt.Sprintf("Staff Available: %d", hospital.AvailableStaff(m.Staffing))
}
