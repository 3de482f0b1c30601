// Package state defines the record threaded through the workflow for one
// conversation thread, along with the partial updates nodes return and
// the rules for merging them.
//
// A State is a value. Merge never mutates its input: it deep-copies first
// and applies the update to the copy, so a failed turn leaves the caller's
// state exactly as it was.
package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// now is swapped in tests.
var now = time.Now

// State is the per-thread record.
type State struct {
	ThreadID    string    `json:"thread_id"`
	Messages    []Message `json:"messages"`
	CurrentTask TaskType  `json:"current_task"`
	Priority    Priority  `json:"priority_level"`
	Department  string    `json:"department,omitempty"`
	Metrics     Metrics   `json:"metrics"`
	Analysis    *Analysis `json:"analysis,omitempty"`
	Context     Context   `json:"context"`
	Timestamp   time.Time `json:"timestamp"`
}

// New returns a fully populated default state for threadID: default
// metrics, no messages, task general, priority medium and no route.
func New(threadID string) State {
	return State{
		ThreadID:    threadID,
		Messages:    []Message{},
		CurrentTask: TaskGeneral,
		Priority:    PriorityMedium,
		Metrics:     DefaultMetrics(),
		Context:     Context{},
		Timestamp:   now(),
	}
}

// LatestMessage returns the most recent message, if any.
func (s State) LatestMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LatestResponse returns the content of the most recent assistant message.
func (s State) LatestResponse() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Clone returns a deep copy of s. Extension values are copied shallowly.
func Clone(s State) State {
	out := s
	out.Messages = append(make([]Message, 0, len(s.Messages)), s.Messages...)
	out.Metrics = s.Metrics.clone()
	if s.Analysis != nil {
		a := cloneAnalysis(*s.Analysis)
		out.Analysis = &a
	}
	out.Context = cloneContext(s.Context)
	return out
}

func cloneAnalysis(a Analysis) Analysis {
	a.Findings = cloneSlice(a.Findings)
	a.Recommendations = cloneSlice(a.Recommendations)
	a.ActionItems = cloneSlice(a.ActionItems)
	a.MetricsImpact = cloneMap(a.MetricsImpact)
	a.Assessments = cloneSlice(a.Assessments)
	return a
}

func cloneContext(c Context) Context {
	out := c
	if c.Resource != nil {
		r := *c.Resource
		r.CriticalSupplies = cloneSlice(r.CriticalSupplies)
		out.Resource = &r
	}
	if c.Quality != nil {
		q := *c.Quality
		q.QualityScores = cloneMap(q.QualityScores)
		out.Quality = &q
	}
	if c.Staffing != nil {
		st := *c.Staffing
		out.Staffing = &st
	}
	out.Extensions = cloneMap(c.Extensions)
	return out
}

// ErrInvalidState is matched by every *StateError.
var ErrInvalidState = errors.New("invalid state")

// StateError reports the first field that failed validation.
type StateError struct {
	Field  string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state validation failed: %s: %s", e.Field, e.Reason)
}

// Is matches ErrInvalidState.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

func invalid(field, format string, args ...any) error {
	return &StateError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks s and returns a *StateError naming the first bad field.
func Validate(s State) error {
	if strings.TrimSpace(s.ThreadID) == "" {
		return invalid("thread_id", "must not be empty")
	}
	for i, m := range s.Messages {
		if !m.Role.Valid() {
			return invalid(fmt.Sprintf("messages[%d].role", i), "unknown role %q", m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return invalid(fmt.Sprintf("messages[%d].content", i), "must not be empty")
		}
	}
	if !s.CurrentTask.Valid() {
		return invalid("current_task", "unknown task type %q", s.CurrentTask)
	}
	if !s.Priority.Valid() {
		return invalid("priority_level", "must be between %d and %d, got %d", PriorityLow, PriorityCritical, s.Priority)
	}
	if s.Timestamp.IsZero() {
		return invalid("timestamp", "must be set")
	}
	return validateMetrics(s.Metrics)
}

func validateMetrics(m Metrics) error {
	counters := []struct {
		field string
		value float64
	}{
		{"metrics.patient_flow.total_beds", float64(m.PatientFlow.TotalBeds)},
		{"metrics.patient_flow.occupied_beds", float64(m.PatientFlow.OccupiedBeds)},
		{"metrics.patient_flow.waiting_patients", float64(m.PatientFlow.WaitingPatients)},
		{"metrics.patient_flow.average_wait_time", m.PatientFlow.AverageWaitTime},
		{"metrics.resources.pending_requests", float64(m.Resources.PendingRequests)},
		{"metrics.quality.incident_count", float64(m.Quality.IncidentCount)},
		{"metrics.staffing.total_staff", float64(m.Staffing.TotalStaff)},
		{"metrics.staffing.overtime_hours", m.Staffing.OvertimeHours},
	}
	for _, c := range counters {
		if c.value < 0 {
			return invalid(c.field, "must not be negative")
		}
	}
	for role, n := range m.Staffing.AvailableStaff {
		if n < 0 {
			return invalid("metrics.staffing.available_staff."+role, "must not be negative")
		}
	}
	for name, d := range m.PatientFlow.Departments {
		if d.Capacity < 0 || d.CurrentOccupancy < 0 {
			return invalid("metrics.patient_flow.departments."+name, "must not be negative")
		}
		if d.CurrentOccupancy > d.Capacity {
			return invalid("metrics.patient_flow.departments."+name, "occupancy %d exceeds capacity %d", d.CurrentOccupancy, d.Capacity)
		}
	}
	return nil
}
