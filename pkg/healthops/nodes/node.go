// Package nodes implements the workflow steps of a turn: the input
// classifier, the task router, the four domain specialists and the output
// synthesizer.
//
// Every step implements Node. A node reads the current state and returns
// only the fields it changes; the workflow merges that update before the
// next node runs. Nodes that call the model take the client from the
// flowgraph.Context.
package nodes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/healthops/pkg/flowgraph"
	fgerrors "github.com/randalmurphal/healthops/pkg/flowgraph/errors"
	"github.com/randalmurphal/healthops/pkg/flowgraph/llm"
	"github.com/randalmurphal/healthops/pkg/healthops/hospital"
	"github.com/randalmurphal/healthops/pkg/healthops/prompts"
	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

// Node names as registered in the workflow graph.
const (
	InputAnalyzer     = "input_analyzer"
	TaskRouter        = "task_router"
	PatientFlow       = "patient_flow"
	ResourceManager   = "resource_manager"
	QualityMonitor    = "quality_monitor"
	StaffScheduler    = "staff_scheduler"
	OutputSynthesizer = "output_synthesizer"
)

// Specialists lists the four domain nodes.
var Specialists = []string{PatientFlow, ResourceManager, QualityMonitor, StaffScheduler}

// Node is one workflow step.
type Node interface {
	Run(ctx flowgraph.Context, s state.State) (state.Update, error)
}

// Func adapts a function to Node.
type Func func(ctx flowgraph.Context, s state.State) (state.Update, error)

// Run calls f.
func (f Func) Run(ctx flowgraph.Context, s state.State) (state.Update, error) {
	return f(ctx, s)
}

var (
	// ErrNoMessages is returned by the classifier when the state holds no
	// message to classify.
	ErrNoMessages = fgerrors.InvalidInput(errors.New("no messages in state"), "input analysis")

	// ErrNoClient is returned when the context carries no model client.
	ErrNoClient = errors.New("no model client configured")

	// ErrEmptyResponse is returned when the model answers with blank text.
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// DefaultDepartments are the department names the classifier recognises
// when none are configured.
var DefaultDepartments = []string{"ER", "ICU", "General", "Surgery", "Pediatrics"}

// Options configures the standard node set.
type Options struct {
	Prompts     *prompts.Library
	Thresholds  hospital.Thresholds
	Departments []string
}

func (o Options) withDefaults() Options {
	if o.Prompts == nil {
		o.Prompts = prompts.Default()
	}
	if o.Thresholds == (hospital.Thresholds{}) {
		o.Thresholds = hospital.DefaultThresholds()
	}
	if len(o.Departments) == 0 {
		o.Departments = DefaultDepartments
	}
	return o
}

// Standard returns every node keyed by name.
func Standard(opts Options) map[string]Node {
	opts = opts.withDefaults()
	return map[string]Node{
		InputAnalyzer:     NewClassifier(opts.Prompts, opts.Departments),
		TaskRouter:        Router{},
		PatientFlow:       NewPatientFlow(opts.Prompts, opts.Thresholds),
		ResourceManager:   NewResourceManager(opts.Prompts, opts.Thresholds),
		QualityMonitor:    NewQualityMonitor(opts.Prompts, opts.Thresholds),
		StaffScheduler:    NewStaffScheduler(opts.Prompts, opts.Thresholds),
		OutputSynthesizer: NewSynthesizer(opts.Prompts),
	}
}

// complete sends req through the context's client and returns the
// trimmed response text.
func complete(ctx flowgraph.Context, req llm.CompletionRequest) (string, error) {
	client := ctx.LLM()
	if client == nil {
		return "", ErrNoClient
	}
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// consult renders a domain template and sends it under the assistant
// persona.
func consult(ctx flowgraph.Context, lib *prompts.Library, template string, vars map[string]any) (string, error) {
	prompt, err := lib.Render(template, vars)
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}
	persona, err := lib.Render(prompts.System, nil)
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}
	return complete(ctx, llm.CompletionRequest{
		SystemPrompt: persona,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
}

// fail logs err against the running node and returns it with the step
// name attached.
func fail(ctx flowgraph.Context, step string, err error) (state.Update, error) {
	ctx.Logger().Error(step+" failed", "error", err)
	return state.Update{}, fmt.Errorf("%s: %w", step, err)
}

// specialistUpdate packages a specialist's response: the raw text as an
// assistant message and an analysis fragment built from the extraction.
func specialistUpdate(node string, s state.State, text string, impact map[string]float64, assessments []state.Assessment) state.Update {
	ex := Extract(text)
	return state.Update{
		Messages: []state.Message{state.AssistantMessage(node, text)},
		Analysis: &state.Analysis{
			Category:        s.CurrentTask,
			Priority:        s.Priority,
			Summary:         ex.Summary,
			Findings:        ex.Findings,
			Recommendations: ex.Recommendations,
			ActionItems:     ex.ActionItems,
			MetricsImpact:   impact,
			Assessments:     assessments,
		},
	}
}
