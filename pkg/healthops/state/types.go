package state

import (
	"fmt"
	"time"
)

// TaskType is the category a turn is classified into.
type TaskType string

// Task categories.
const (
	TaskPatientFlow        TaskType = "patient_flow"
	TaskResourceManagement TaskType = "resource_management"
	TaskQualityMonitoring  TaskType = "quality_monitoring"
	TaskStaffScheduling    TaskType = "staff_scheduling"
	TaskGeneral            TaskType = "general"
)

// TaskTypes lists every task category.
var TaskTypes = []TaskType{
	TaskPatientFlow,
	TaskResourceManagement,
	TaskQualityMonitoring,
	TaskStaffScheduling,
	TaskGeneral,
}

// Valid reports whether t is a known category.
func (t TaskType) Valid() bool {
	switch t {
	case TaskPatientFlow, TaskResourceManagement, TaskQualityMonitoring, TaskStaffScheduling, TaskGeneral:
		return true
	}
	return false
}

// Priority is an ordered urgency level from 1 (low) to 5 (critical).
type Priority int

// Priority levels.
const (
	PriorityLow      Priority = 1
	PriorityMedium   Priority = 2
	PriorityHigh     Priority = 3
	PriorityUrgent   Priority = 4
	PriorityCritical Priority = 5
)

// Valid reports whether p is within 1..5.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	case PriorityCritical:
		return "critical"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Role identifies who produced a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// Message is one entry of a conversation. Name records the node that
// produced an assistant entry.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserMessage returns a user entry stamped with the current time.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: now()}
}

// AssistantMessage returns an assistant entry attributed to node.
func AssistantMessage(node, content string) Message {
	return Message{Role: RoleAssistant, Content: content, Name: node, Timestamp: now()}
}

// ActionItem is a concrete follow-up extracted from a model response.
type ActionItem struct {
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Assessment is a derived status computed from metrics, such as
// "bed_capacity" = "Critical".
type Assessment struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Status string `json:"status"`
}

// Analysis is the structured result of the most recent specialist or of
// the synthesizer.
type Analysis struct {
	Category        TaskType           `json:"category"`
	Priority        Priority           `json:"priority"`
	Summary         string             `json:"summary,omitempty"`
	Findings        []string           `json:"findings"`
	Recommendations []string           `json:"recommendations"`
	ActionItems     []ActionItem       `json:"action_items"`
	MetricsImpact   map[string]float64 `json:"metrics_impact,omitempty"`
	Assessments     []Assessment       `json:"assessments,omitempty"`
}

// ResourceSignal is written by the resource manager.
type ResourceSignal struct {
	CriticalSupplies []string `json:"critical_supplies"`
	PendingRequests  int      `json:"pending_requests"`
}

// QualitySignal is written by the quality monitor.
type QualitySignal struct {
	QualityScores map[string]float64 `json:"quality_scores"`
	LastAudit     time.Time          `json:"last_audit"`
}

// StaffingSignal is written by the staff scheduler.
type StaffingSignal struct {
	StaffSatisfaction float64 `json:"staff_satisfaction"`
	SkillMixIndex     float64 `json:"skill_mix_index"`
}

// Context carries routing and inter-node signals. Each specialist owns
// exactly one signal field. Extensions holds caller-supplied data that has
// no dedicated field.
type Context struct {
	NextNode   string          `json:"next_node"`
	BudgetInfo string          `json:"budget_info,omitempty"`
	Resource   *ResourceSignal `json:"resource,omitempty"`
	Quality    *QualitySignal  `json:"quality,omitempty"`
	Staffing   *StaffingSignal `json:"staffing,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}
