package state

import "time"

// Department describes one hospital unit.
type Department struct {
	ID               string         `json:"id" yaml:"id"`
	Name             string         `json:"name" yaml:"name"`
	Capacity         int            `json:"capacity" yaml:"capacity"`
	CurrentOccupancy int            `json:"current_occupancy" yaml:"current_occupancy"`
	StaffCount       map[string]int `json:"staff_count,omitempty" yaml:"staff_count"`
	WaitTime         int            `json:"wait_time" yaml:"wait_time"`
}

// PatientFlowMetrics holds bed and queue counters. Rates are per hour,
// wait times in minutes.
type PatientFlowMetrics struct {
	TotalBeds       int                   `json:"total_beds"`
	OccupiedBeds    int                   `json:"occupied_beds"`
	WaitingPatients int                   `json:"waiting_patients"`
	AverageWaitTime float64               `json:"average_wait_time"`
	AdmissionRate   float64               `json:"admission_rate"`
	DischargeRate   float64               `json:"discharge_rate"`
	Departments     map[string]Department `json:"departments"`
}

// ResourceMetrics holds equipment and supply levels. Supply levels and
// utilization are fractions in [0, 1].
type ResourceMetrics struct {
	EquipmentAvailability map[string]bool    `json:"equipment_availability"`
	SupplyLevels          map[string]float64 `json:"supply_levels"`
	ResourceUtilization   float64            `json:"resource_utilization"`
	PendingRequests       int                `json:"pending_requests"`
	CriticalSupplies      []string           `json:"critical_supplies"`
}

// QualityMetrics holds satisfaction and compliance counters.
type QualityMetrics struct {
	PatientSatisfaction float64            `json:"patient_satisfaction"`
	CareOutcomes        map[string]float64 `json:"care_outcomes"`
	ComplianceRate      float64            `json:"compliance_rate"`
	IncidentCount       int                `json:"incident_count"`
	QualityScores       map[string]float64 `json:"quality_scores"`
	LastAuditDate       time.Time          `json:"last_audit_date"`
}

// StaffingMetrics holds workforce counters.
type StaffingMetrics struct {
	TotalStaff        int                `json:"total_staff"`
	AvailableStaff    map[string]int     `json:"available_staff"`
	ShiftsCoverage    map[string]float64 `json:"shifts_coverage"`
	OvertimeHours     float64            `json:"overtime_hours"`
	SkillMixIndex     float64            `json:"skill_mix_index"`
	StaffSatisfaction float64            `json:"staff_satisfaction"`
}

// Metrics groups the four metric sections.
type Metrics struct {
	PatientFlow PatientFlowMetrics `json:"patient_flow"`
	Resources   ResourceMetrics    `json:"resources"`
	Quality     QualityMetrics     `json:"quality"`
	Staffing    StaffingMetrics    `json:"staffing"`
	LastUpdated time.Time          `json:"last_updated"`
}

// DefaultMetrics returns the baseline hospital snapshot a new thread
// starts from.
func DefaultMetrics() Metrics {
	t := now()
	return Metrics{
		PatientFlow: PatientFlowMetrics{
			TotalBeds:       300,
			OccupiedBeds:    240,
			WaitingPatients: 15,
			AverageWaitTime: 35.0,
			AdmissionRate:   4.2,
			DischargeRate:   3.8,
			Departments:     map[string]Department{},
		},
		Resources: ResourceMetrics{
			EquipmentAvailability: map[string]bool{},
			SupplyLevels:          map[string]float64{},
			ResourceUtilization:   0.75,
			PendingRequests:       5,
			CriticalSupplies:      []string{},
		},
		Quality: QualityMetrics{
			PatientSatisfaction: 8.5,
			CareOutcomes:        map[string]float64{},
			ComplianceRate:      0.95,
			IncidentCount:       2,
			QualityScores:       map[string]float64{},
			LastAuditDate:       t,
		},
		Staffing: StaffingMetrics{
			TotalStaff: 500,
			AvailableStaff: map[string]int{
				"doctors":     50,
				"nurses":      150,
				"specialists": 30,
				"support":     70,
			},
			ShiftsCoverage:    map[string]float64{},
			OvertimeHours:     120.5,
			SkillMixIndex:     0.85,
			StaffSatisfaction: 7.8,
		},
		LastUpdated: t,
	}
}

// MetricsPatch is a partial metrics write. A nil section is left alone;
// inside a section only non-nil fields are applied.
type MetricsPatch struct {
	PatientFlow *PatientFlowPatch `json:"patient_flow,omitempty" yaml:"patient_flow"`
	Resources   *ResourcePatch    `json:"resources,omitempty" yaml:"resources"`
	Quality     *QualityPatch     `json:"quality,omitempty" yaml:"quality"`
	Staffing    *StaffingPatch    `json:"staffing,omitempty" yaml:"staffing"`
}

// Empty reports whether the patch writes nothing.
func (p *MetricsPatch) Empty() bool {
	return p == nil || (p.PatientFlow == nil && p.Resources == nil && p.Quality == nil && p.Staffing == nil)
}

// PatientFlowPatch updates PatientFlowMetrics field by field.
type PatientFlowPatch struct {
	TotalBeds       *int                  `json:"total_beds,omitempty" yaml:"total_beds"`
	OccupiedBeds    *int                  `json:"occupied_beds,omitempty" yaml:"occupied_beds"`
	WaitingPatients *int                  `json:"waiting_patients,omitempty" yaml:"waiting_patients"`
	AverageWaitTime *float64              `json:"average_wait_time,omitempty" yaml:"average_wait_time"`
	AdmissionRate   *float64              `json:"admission_rate,omitempty" yaml:"admission_rate"`
	DischargeRate   *float64              `json:"discharge_rate,omitempty" yaml:"discharge_rate"`
	Departments     map[string]Department `json:"departments,omitempty" yaml:"departments"`
}

// ResourcePatch updates ResourceMetrics field by field.
type ResourcePatch struct {
	EquipmentAvailability map[string]bool    `json:"equipment_availability,omitempty" yaml:"equipment_availability"`
	SupplyLevels          map[string]float64 `json:"supply_levels,omitempty" yaml:"supply_levels"`
	ResourceUtilization   *float64           `json:"resource_utilization,omitempty" yaml:"resource_utilization"`
	PendingRequests       *int               `json:"pending_requests,omitempty" yaml:"pending_requests"`
	CriticalSupplies      []string           `json:"critical_supplies,omitempty" yaml:"critical_supplies"`
}

// QualityPatch updates QualityMetrics field by field.
type QualityPatch struct {
	PatientSatisfaction *float64           `json:"patient_satisfaction,omitempty" yaml:"patient_satisfaction"`
	CareOutcomes        map[string]float64 `json:"care_outcomes,omitempty" yaml:"care_outcomes"`
	ComplianceRate      *float64           `json:"compliance_rate,omitempty" yaml:"compliance_rate"`
	IncidentCount       *int               `json:"incident_count,omitempty" yaml:"incident_count"`
	QualityScores       map[string]float64 `json:"quality_scores,omitempty" yaml:"quality_scores"`
	LastAuditDate       *time.Time         `json:"last_audit_date,omitempty" yaml:"last_audit_date"`
}

// StaffingPatch updates StaffingMetrics field by field.
type StaffingPatch struct {
	TotalStaff        *int               `json:"total_staff,omitempty" yaml:"total_staff"`
	AvailableStaff    map[string]int     `json:"available_staff,omitempty" yaml:"available_staff"`
	ShiftsCoverage    map[string]float64 `json:"shifts_coverage,omitempty" yaml:"shifts_coverage"`
	OvertimeHours     *float64           `json:"overtime_hours,omitempty" yaml:"overtime_hours"`
	SkillMixIndex     *float64           `json:"skill_mix_index,omitempty" yaml:"skill_mix_index"`
	StaffSatisfaction *float64           `json:"staff_satisfaction,omitempty" yaml:"staff_satisfaction"`
}

// apply writes the patch into m. Map and slice fields replace the
// existing value wholesale, matching the shallow section merge.
func (p *MetricsPatch) apply(m *Metrics) {
	if pf := p.PatientFlow; pf != nil {
		setIf(&m.PatientFlow.TotalBeds, pf.TotalBeds)
		setIf(&m.PatientFlow.OccupiedBeds, pf.OccupiedBeds)
		setIf(&m.PatientFlow.WaitingPatients, pf.WaitingPatients)
		setIf(&m.PatientFlow.AverageWaitTime, pf.AverageWaitTime)
		setIf(&m.PatientFlow.AdmissionRate, pf.AdmissionRate)
		setIf(&m.PatientFlow.DischargeRate, pf.DischargeRate)
		if pf.Departments != nil {
			m.PatientFlow.Departments = cloneDepartments(pf.Departments)
		}
	}
	if r := p.Resources; r != nil {
		if r.EquipmentAvailability != nil {
			m.Resources.EquipmentAvailability = cloneMap(r.EquipmentAvailability)
		}
		if r.SupplyLevels != nil {
			m.Resources.SupplyLevels = cloneMap(r.SupplyLevels)
		}
		setIf(&m.Resources.ResourceUtilization, r.ResourceUtilization)
		setIf(&m.Resources.PendingRequests, r.PendingRequests)
		if r.CriticalSupplies != nil {
			m.Resources.CriticalSupplies = append([]string{}, r.CriticalSupplies...)
		}
	}
	if q := p.Quality; q != nil {
		setIf(&m.Quality.PatientSatisfaction, q.PatientSatisfaction)
		if q.CareOutcomes != nil {
			m.Quality.CareOutcomes = cloneMap(q.CareOutcomes)
		}
		setIf(&m.Quality.ComplianceRate, q.ComplianceRate)
		setIf(&m.Quality.IncidentCount, q.IncidentCount)
		if q.QualityScores != nil {
			m.Quality.QualityScores = cloneMap(q.QualityScores)
		}
		setIf(&m.Quality.LastAuditDate, q.LastAuditDate)
	}
	if s := p.Staffing; s != nil {
		setIf(&m.Staffing.TotalStaff, s.TotalStaff)
		if s.AvailableStaff != nil {
			m.Staffing.AvailableStaff = cloneMap(s.AvailableStaff)
		}
		if s.ShiftsCoverage != nil {
			m.Staffing.ShiftsCoverage = cloneMap(s.ShiftsCoverage)
		}
		setIf(&m.Staffing.OvertimeHours, s.OvertimeHours)
		setIf(&m.Staffing.SkillMixIndex, s.SkillMixIndex)
		setIf(&m.Staffing.StaffSatisfaction, s.StaffSatisfaction)
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (m Metrics) clone() Metrics {
	out := m
	out.PatientFlow.Departments = cloneDepartments(m.PatientFlow.Departments)
	out.Resources.EquipmentAvailability = cloneMap(m.Resources.EquipmentAvailability)
	out.Resources.SupplyLevels = cloneMap(m.Resources.SupplyLevels)
	out.Resources.CriticalSupplies = cloneSlice(m.Resources.CriticalSupplies)
	out.Quality.CareOutcomes = cloneMap(m.Quality.CareOutcomes)
	out.Quality.QualityScores = cloneMap(m.Quality.QualityScores)
	out.Staffing.AvailableStaff = cloneMap(m.Staffing.AvailableStaff)
	out.Staffing.ShiftsCoverage = cloneMap(m.Staffing.ShiftsCoverage)
	return out
}

func cloneDepartments(in map[string]Department) map[string]Department {
	if in == nil {
		return nil
	}
	out := make(map[string]Department, len(in))
	for k, d := range in {
		d.StaffCount = cloneMap(d.StaffCount)
		out[k] = d
	}
	return out
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}
