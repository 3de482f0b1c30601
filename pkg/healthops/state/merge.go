package state

import "fmt"

// Update is the partial state a node returns. Nil fields are left
// untouched by Merge.
type Update struct {
	// Messages are appended in order.
	Messages    []Message
	CurrentTask *TaskType
	Priority    *Priority
	Department  *string
	Metrics     *MetricsPatch
	// Analysis replaces the previous analysis.
	Analysis *Analysis
	Context  *ContextUpdate
}

// ContextUpdate is a partial Context write. Extensions merge key by key.
type ContextUpdate struct {
	NextNode   *string
	BudgetInfo *string
	Resource   *ResourceSignal
	Quality    *QualitySignal
	Staffing   *StaffingSignal
	Extensions map[string]any
}

// Merge returns a new state with u applied to a deep copy of s.
//
// Messages are concatenated, scalar and record fields overwritten, metric
// sections patched field by field, and context fields merged with
// extensions applied key by key. Any metrics write refreshes
// Metrics.LastUpdated.
func Merge(s State, u Update) State {
	out := Clone(s)

	for _, m := range u.Messages {
		if m.Timestamp.IsZero() {
			m.Timestamp = now()
		}
		out.Messages = append(out.Messages, m)
	}
	setIf(&out.CurrentTask, u.CurrentTask)
	setIf(&out.Priority, u.Priority)
	setIf(&out.Department, u.Department)

	if !u.Metrics.Empty() {
		u.Metrics.apply(&out.Metrics)
		out.Metrics.LastUpdated = now()
	}
	if u.Analysis != nil {
		a := cloneAnalysis(*u.Analysis)
		out.Analysis = &a
	}
	if u.Context != nil {
		u.Context.apply(&out.Context)
	}
	return out
}

func (u *ContextUpdate) apply(c *Context) {
	setIf(&c.NextNode, u.NextNode)
	setIf(&c.BudgetInfo, u.BudgetInfo)
	if u.Resource != nil || u.Quality != nil || u.Staffing != nil {
		signals := cloneContext(Context{Resource: u.Resource, Quality: u.Quality, Staffing: u.Staffing})
		if signals.Resource != nil {
			c.Resource = signals.Resource
		}
		if signals.Quality != nil {
			c.Quality = signals.Quality
		}
		if signals.Staffing != nil {
			c.Staffing = signals.Staffing
		}
	}
	if len(u.Extensions) > 0 {
		if c.Extensions == nil {
			c.Extensions = make(map[string]any, len(u.Extensions))
		}
		for k, v := range u.Extensions {
			c.Extensions[k] = v
		}
	}
}

// ContextFromMap converts caller-supplied context overrides into a
// ContextUpdate. "budget_info" has a dedicated field; every other key,
// including a caller-supplied "next_node", lands in Extensions so callers
// cannot steer routing.
func ContextFromMap(m map[string]any) *ContextUpdate {
	if len(m) == 0 {
		return nil
	}
	u := &ContextUpdate{}
	for k, v := range m {
		if k == "budget_info" {
			s := fmt.Sprint(v)
			u.BudgetInfo = &s
			continue
		}
		if u.Extensions == nil {
			u.Extensions = make(map[string]any)
		}
		u.Extensions[k] = v
	}
	return u
}

// Ptr returns a pointer to v, for building updates.
func Ptr[T any](v T) *T {
	return &v
}
