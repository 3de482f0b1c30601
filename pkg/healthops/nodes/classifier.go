package nodes

import (
	"regexp"
	"strings"

	"github.com/randalmurphal/healthops/pkg/flowgraph"
	"github.com/randalmurphal/healthops/pkg/flowgraph/llm"
	"github.com/randalmurphal/healthops/pkg/healthops/prompts"
	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

// Classifier is the input_analyzer node. It asks the model to analyse the
// latest message and classifies the answer by keyword.
type Classifier struct {
	prompts     *prompts.Library
	departments []department
}

type department struct {
	name    string
	pattern *regexp.Regexp
}

// NewClassifier returns a classifier recognising the given department
// names as whole words, case-insensitively.
func NewClassifier(lib *prompts.Library, departments []string) *Classifier {
	c := &Classifier{prompts: lib}
	for _, name := range departments {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c.departments = append(c.departments, department{
			name:    name,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`),
		})
	}
	return c
}

// Run classifies the latest message. The update always clears the route
// so a route left over from an earlier turn is never followed.
func (c *Classifier) Run(ctx flowgraph.Context, s state.State) (state.Update, error) {
	latest, ok := s.LatestMessage()
	if !ok {
		return fail(ctx, "input analysis", ErrNoMessages)
	}

	instruction, err := c.prompts.Render(prompts.InputAnalyzer, map[string]any{"input": latest.Content})
	if err != nil {
		return fail(ctx, "input analysis", err)
	}
	text, err := complete(ctx, llm.CompletionRequest{
		SystemPrompt: instruction,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: latest.Content}},
	})
	if err != nil {
		return fail(ctx, "input analysis", err)
	}

	task := ClassifyTask(text)
	priority := ClassifyPriority(text)
	u := state.Update{
		CurrentTask: &task,
		Priority:    &priority,
		Context:     &state.ContextUpdate{NextNode: state.Ptr("")},
	}
	if dept := c.detectDepartment(latest.Content, text); dept != "" {
		u.Department = &dept
	}

	ctx.Logger().Debug("input classified",
		"task", string(task),
		"priority", int(priority),
		"department", derefOr(u.Department, s.Department),
	)
	return u, nil
}

// detectDepartment returns the first configured department named in the
// user's message, then in the model's answer.
func (c *Classifier) detectDepartment(texts ...string) string {
	for _, text := range texts {
		for _, d := range c.departments {
			if d.pattern.MatchString(text) {
				return d.name
			}
		}
	}
	return ""
}

// ClassifyTask maps model output to a task category by keyword, checked
// in order: "patient flow", "resource", "quality", then "staff" or
// "schedule". Anything else is general.
func ClassifyTask(text string) state.TaskType {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "patient flow"):
		return state.TaskPatientFlow
	case strings.Contains(t, "resource"):
		return state.TaskResourceManagement
	case strings.Contains(t, "quality"):
		return state.TaskQualityMonitoring
	case strings.Contains(t, "staff"), strings.Contains(t, "schedule"):
		return state.TaskStaffScheduling
	}
	return state.TaskGeneral
}

// ClassifyPriority escalates to critical on "urgent" or "critical", to
// high on "high", and is medium otherwise.
func ClassifyPriority(text string) state.Priority {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "urgent"), strings.Contains(t, "critical"):
		return state.PriorityCritical
	case strings.Contains(t, "high"):
		return state.PriorityHigh
	}
	return state.PriorityMedium
}

func derefOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}
