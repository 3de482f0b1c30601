package nodes

import (
	"fmt"
	"sort"

	"github.com/randalmurphal/healthops/pkg/flowgraph"
	"github.com/randalmurphal/healthops/pkg/healthops/hospital"
	"github.com/randalmurphal/healthops/pkg/healthops/prompts"
	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

const (
	noBudgetInfo    = "Budget information not available"
	dischargeLayout = "2006-01-02 15:04"
)

// PatientFlowNode analyses bed occupancy and the admission queue.
type PatientFlowNode struct {
	prompts    *prompts.Library
	thresholds hospital.Thresholds
}

// NewPatientFlow returns the patient_flow node.
func NewPatientFlow(lib *prompts.Library, th hospital.Thresholds) *PatientFlowNode {
	return &PatientFlowNode{prompts: lib, thresholds: th}
}

// Run implements Node.
func (n *PatientFlowNode) Run(ctx flowgraph.Context, s state.State) (state.Update, error) {
	pf := s.Metrics.PatientFlow
	occupancy := hospital.Occupancy(pf)
	beds := hospital.AnalyzeBedCapacity(pf, n.thresholds)
	admission := hospital.AssessAdmissionPriority(
		hospital.ConditionForPriority(s.Priority), pf.AverageWaitTime, occupancy/100, n.thresholds)
	// Doctors see the queue.
	queueWait := hospital.WaitTime(pf.WaitingPatients, s.Metrics.Staffing.AvailableStaff["doctors"])
	stay := hospital.StayCondition(s.Priority)
	discharge := hospital.PredictDischarge(s.Timestamp, stay, s.Department)
	stayDays := discharge.Sub(s.Timestamp).Hours() / 24

	text, err := consult(ctx, n.prompts, prompts.PatientFlow, map[string]any{
		"occupancy":           fmt.Sprintf("%.1f", occupancy),
		"wait_times":          fmt.Sprintf("%.1f", pf.AverageWaitTime),
		"department_capacity": hospital.FormatDepartments(pf.Departments),
		"admission_rate":      fmt.Sprintf("%.1f", pf.AdmissionRate),
		"capacity_status":     beds.Status,
		"admission_priority":  fmt.Sprintf("%s (score %.2f)", admission.Level, admission.Score),
		"estimated_wait":      fmt.Sprintf("%.1f", queueWait),
		"discharge_forecast":  fmt.Sprintf("%s (%.1f day %s stay)", discharge.Format(dischargeLayout), stayDays, stay),
	})
	if err != nil {
		return fail(ctx, "patient flow analysis", err)
	}

	assessments := []state.Assessment{
		{Name: "bed_capacity", Value: fmt.Sprintf("%.1f%%", occupancy), Status: beds.Status},
		{Name: "admission_priority", Value: fmt.Sprintf("%.2f", admission.Score), Status: admission.Level},
		{Name: "queue_wait", Value: fmt.Sprintf("%.1f min", queueWait), Status: hospital.QueueWaitStatus(queueWait, pf.AverageWaitTime)},
		{Name: "discharge_forecast", Value: discharge.Format(dischargeLayout), Status: stay},
	}
	for _, a := range hospital.DepartmentAlerts(pf.Departments) {
		status := hospital.StatusHigh
		if a.Critical {
			status = hospital.StatusCritical
		}
		assessments = append(assessments, state.Assessment{
			Name:   "department:" + a.Department,
			Value:  fmt.Sprintf("%.0f%%, transfer %d", a.Utilization*100, a.RecommendedTransfer),
			Status: status,
		})
	}

	return specialistUpdate(PatientFlow, s, text, map[string]float64{
		"occupancy_pct":            occupancy,
		"available_beds":           float64(beds.AvailableBeds),
		"admission_priority_score": admission.Score,
		"estimated_queue_wait_min": queueWait,
		"expected_stay_days":       stayDays,
	}, assessments), nil
}

// ResourceManagerNode analyses equipment, supplies and utilization.
type ResourceManagerNode struct {
	prompts    *prompts.Library
	thresholds hospital.Thresholds
}

// NewResourceManager returns the resource_manager node.
func NewResourceManager(lib *prompts.Library, th hospital.Thresholds) *ResourceManagerNode {
	return &ResourceManagerNode{prompts: lib, thresholds: th}
}

// Run implements Node. Besides the analysis it writes the resource signal:
// the reported critical supplies plus any supply in the critical tier.
func (n *ResourceManagerNode) Run(ctx flowgraph.Context, s state.State) (state.Update, error) {
	r := s.Metrics.Resources
	budget := s.Context.BudgetInfo
	if budget == "" {
		budget = noBudgetInfo
	}

	text, err := consult(ctx, n.prompts, prompts.ResourceManager, map[string]any{
		"equipment_status":    hospital.FormatEquipment(r.EquipmentAvailability),
		"supply_levels":       hospital.FormatSupplies(r.SupplyLevels, n.thresholds),
		"resource_allocation": fmt.Sprintf("%.1f%% utilization, %d pending requests", r.ResourceUtilization*100, r.PendingRequests),
		"budget_info":         budget,
	})
	if err != nil {
		return fail(ctx, "resource analysis", err)
	}

	critical := map[string]bool{}
	for _, item := range r.CriticalSupplies {
		critical[item] = true
	}
	var assessments []state.Assessment
	for _, sup := range hospital.ClassifySupplies(r.SupplyLevels, n.thresholds) {
		if sup.Tier == hospital.SupplyCritical {
			critical[sup.Item] = true
		}
		assessments = append(assessments, state.Assessment{
			Name:   "supply:" + sup.Item,
			Value:  fmt.Sprintf("%.0f%%", sup.Level*100),
			Status: sup.Tier,
		})
	}
	criticalList := make([]string, 0, len(critical))
	for item := range critical {
		criticalList = append(criticalList, item)
	}
	sort.Strings(criticalList)

	u := specialistUpdate(ResourceManager, s, text, map[string]float64{
		"resource_utilization_pct": r.ResourceUtilization * 100,
		"critical_supplies":        float64(len(criticalList)),
		"pending_requests":         float64(r.PendingRequests),
	}, assessments)
	u.Context = &state.ContextUpdate{Resource: &state.ResourceSignal{
		CriticalSupplies: criticalList,
		PendingRequests:  r.PendingRequests,
	}}
	return u, nil
}

// QualityMonitorNode reviews satisfaction, outcomes and compliance.
type QualityMonitorNode struct {
	prompts    *prompts.Library
	thresholds hospital.Thresholds
}

// NewQualityMonitor returns the quality_monitor node.
func NewQualityMonitor(lib *prompts.Library, th hospital.Thresholds) *QualityMonitorNode {
	return &QualityMonitorNode{prompts: lib, thresholds: th}
}

// Run implements Node. It writes the quality signal (scores and the last
// audit date).
func (n *QualityMonitorNode) Run(ctx flowgraph.Context, s state.State) (state.Update, error) {
	q := s.Metrics.Quality

	text, err := consult(ctx, n.prompts, prompts.QualityMonitor, map[string]any{
		"satisfaction_score": fmt.Sprintf("%.1f", q.PatientSatisfaction),
		"care_outcomes":      hospital.FormatScores(q.CareOutcomes),
		"compliance_rates":   fmt.Sprintf("%.1f", q.ComplianceRate*100),
		"incident_count":     q.IncidentCount,
	})
	if err != nil {
		return fail(ctx, "quality analysis", err)
	}

	u := specialistUpdate(QualityMonitor, s, text, map[string]float64{
		"patient_satisfaction": q.PatientSatisfaction,
		"compliance_pct":       q.ComplianceRate * 100,
		"incident_count":       float64(q.IncidentCount),
	}, []state.Assessment{
		{Name: "patient_satisfaction", Value: fmt.Sprintf("%.1f/10", q.PatientSatisfaction), Status: hospital.SatisfactionStatus(q.PatientSatisfaction, n.thresholds)},
		{Name: "compliance", Value: fmt.Sprintf("%.1f%%", q.ComplianceRate*100), Status: hospital.ComplianceStatus(q.ComplianceRate, n.thresholds)},
		{Name: "incidents", Value: fmt.Sprintf("%d", q.IncidentCount), Status: hospital.IncidentStatus(q.IncidentCount, n.thresholds)},
	})
	u.Context = &state.ContextUpdate{Quality: &state.QualitySignal{
		QualityScores: q.QualityScores,
		LastAudit:     q.LastAuditDate,
	}}
	return u, nil
}

// StaffSchedulerNode plans staffing against department demand.
type StaffSchedulerNode struct {
	prompts    *prompts.Library
	thresholds hospital.Thresholds
}

// NewStaffScheduler returns the staff_scheduler node.
func NewStaffScheduler(lib *prompts.Library, th hospital.Thresholds) *StaffSchedulerNode {
	return &StaffSchedulerNode{prompts: lib, thresholds: th}
}

// Run implements Node. It writes the staffing signal.
func (n *StaffSchedulerNode) Run(ctx flowgraph.Context, s state.State) (state.Update, error) {
	st := s.Metrics.Staffing

	text, err := consult(ctx, n.prompts, prompts.StaffScheduler, map[string]any{
		"staff_available":    hospital.FormatStaffAvailability(st),
		"department_needs":   hospital.FormatDepartments(s.Metrics.PatientFlow.Departments),
		"skill_requirements": fmt.Sprintf("Skill Mix Index: %.2f", st.SkillMixIndex),
		"work_hours":         fmt.Sprintf("%.1f overtime hours", st.OvertimeHours),
	})
	if err != nil {
		return fail(ctx, "staff scheduling analysis", err)
	}

	u := specialistUpdate(StaffScheduler, s, text, map[string]float64{
		"available_staff":    float64(hospital.AvailableStaff(st)),
		"overtime_per_staff": hospital.OvertimePerStaff(st),
		"skill_mix_index":    st.SkillMixIndex,
	}, []state.Assessment{
		{Name: "overtime", Value: fmt.Sprintf("%.2f h/staff", hospital.OvertimePerStaff(st)), Status: hospital.OvertimeStatus(st, n.thresholds)},
		{Name: "staff_satisfaction", Value: fmt.Sprintf("%.1f/10", st.StaffSatisfaction), Status: hospital.StaffSatisfactionStatus(st.StaffSatisfaction, n.thresholds)},
	})
	u.Context = &state.ContextUpdate{Staffing: &state.StaffingSignal{
		StaffSatisfaction: st.StaffSatisfaction,
		SkillMixIndex:     st.SkillMixIndex,
	}}
	return u, nil
}
