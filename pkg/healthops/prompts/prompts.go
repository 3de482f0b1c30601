// Package prompts holds the named prompt templates used by the workflow
// nodes and renders them with strict variable substitution.
//
// Templates use ${name} placeholders. Rendering fails with a
// *MissingVariableError when any placeholder has no value, so a node never
// sends a half-filled prompt to the model.
package prompts

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Template names.
const (
	System          = "system"
	InputAnalyzer   = "input_analyzer"
	PatientFlow     = "patient_flow"
	ResourceManager = "resource_manager"
	QualityMonitor  = "quality_monitor"
	StaffScheduler  = "staff_scheduler"
	OutputSynthesis = "output_synthesis"
)

// ErrUnknownPrompt is returned for a template name the library lacks.
var ErrUnknownPrompt = errors.New("unknown prompt")

var defaults = map[string]string{
	System: `You are an expert Healthcare Operations Management Assistant.
Your role is to optimize hospital operations through:
- Patient flow management
- Resource allocation
- Quality monitoring
- Staff scheduling

Always maintain HIPAA compliance and healthcare standards in your responses.
Base your analysis on the provided metrics and department data.`,

	InputAnalyzer: `Analyze the following input and determine:
1. Primary task category (patient_flow, resource_management, quality_monitoring, staff_scheduling)
2. Required context information
3. Priority level (1-5, where 5 is highest)
4. Relevant department(s)

Current input: ${input}`,

	PatientFlow: `Analyze patient flow based on:
- Current occupancy: ${occupancy}%
- Waiting times: ${wait_times} minutes
- Department capacity: ${department_capacity}
- Admission rate: ${admission_rate} per hour
- Bed capacity status: ${capacity_status}
- Admission priority for the waiting queue: ${admission_priority}
- Estimated queue wait: ${estimated_wait} minutes
- Discharge forecast for new admissions: ${discharge_forecast}

Provide specific recommendations for optimization.
List findings under "Findings:", recommendations under "Recommendations:" and concrete steps under "Action Items:".`,

	ResourceManager: `Evaluate resource utilization:
- Equipment availability: ${equipment_status}
- Supply levels: ${supply_levels}
- Resource allocation: ${resource_allocation}
- Budget constraints: ${budget_info}

Recommend optimal resource distribution.
List findings under "Findings:", recommendations under "Recommendations:" and concrete steps under "Action Items:".`,

	QualityMonitor: `Review quality metrics:
- Patient satisfaction: ${satisfaction_score}/10
- Care outcomes: ${care_outcomes}
- Compliance rates: ${compliance_rates}%
- Incident reports: ${incident_count}

Identify areas for improvement.
List findings under "Findings:", recommendations under "Recommendations:" and concrete steps under "Action Items:".`,

	StaffScheduler: `Optimize staff scheduling considering:
- Staff availability: ${staff_available}
- Department needs: ${department_needs}
- Skill mix requirements: ${skill_requirements}
- Work hour regulations: ${work_hours}

Provide scheduling recommendations.
List findings under "Findings:", recommendations under "Recommendations:" and concrete steps under "Action Items:".`,

	OutputSynthesis: `Synthesize findings and provide:
1. Key insights
2. Actionable recommendations
3. Priority actions
4. Implementation timeline

Start with a one-line summary.

Context: ${context}`,
}

// Library is a set of named templates. The zero value is not usable;
// call Default or New.
type Library struct {
	mu        sync.RWMutex
	templates map[string]string
}

// Default returns a library holding the built-in templates.
func Default() *Library {
	return New(nil)
}

// New returns the built-in templates with overrides applied on top.
func New(overrides map[string]string) *Library {
	l := &Library{templates: make(map[string]string, len(defaults)+len(overrides))}
	for k, v := range defaults {
		l.templates[k] = v
	}
	for k, v := range overrides {
		l.templates[k] = v
	}
	return l
}

// Set replaces or adds a template.
func (l *Library) Set(name, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[name] = text
}

// Get returns the raw template text.
func (l *Library) Get(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[name]
	return t, ok
}

// Names lists the template names, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.templates))
	for n := range l.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Render expands the named template with vars.
func (l *Library) Render(name string, vars map[string]any) (string, error) {
	text, ok := l.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
	}
	return expand(name, text, vars)
}
