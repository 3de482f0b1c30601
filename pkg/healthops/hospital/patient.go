package hospital

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

// Capacity status labels.
const (
	StatusNormal   = "Normal"
	StatusHigh     = "High"
	StatusCritical = "Critical"
)

// minutesPerPatient is the average handling time used by WaitTime.
const minutesPerPatient = 15

// Occupancy returns occupied/total beds as a percentage. A hospital with
// no beds reports 0.
func Occupancy(m state.PatientFlowMetrics) float64 {
	if m.TotalBeds <= 0 {
		return 0
	}
	return float64(m.OccupiedBeds) / float64(m.TotalBeds) * 100
}

// BedCapacity summarises bed usage.
type BedCapacity struct {
	TotalBeds         int
	OccupiedBeds      int
	AvailableBeds     int
	UtilizationRate   float64
	PendingAdmissions int
	Status            string
}

// AnalyzeBedCapacity computes utilization and the capacity status:
// Critical above the critical threshold, High above the high threshold.
func AnalyzeBedCapacity(m state.PatientFlowMetrics, t Thresholds) BedCapacity {
	rate := Occupancy(m)
	return BedCapacity{
		TotalBeds:         m.TotalBeds,
		OccupiedBeds:      m.OccupiedBeds,
		AvailableBeds:     m.TotalBeds - m.OccupiedBeds,
		UtilizationRate:   rate,
		PendingAdmissions: m.WaitingPatients,
		Status:            CapacityStatus(rate, t),
	}
}

// CapacityStatus maps an occupancy percentage to a status label.
func CapacityStatus(occupancyPct float64, t Thresholds) string {
	switch {
	case occupancyPct > t.OccupancyCritical:
		return StatusCritical
	case occupancyPct > t.OccupancyHigh:
		return StatusHigh
	}
	return StatusNormal
}

// WaitTime estimates minutes until a queued patient is seen.
func WaitTime(queue, staffAvailable int) float64 {
	if staffAvailable < 1 {
		staffAvailable = 1
	}
	return round(float64(queue*minutesPerPatient)/float64(staffAvailable), 1)
}

// Queue wait labels.
const (
	WaitWithinAverage = "Within average"
	WaitAboveAverage  = "Above average"
)

// QueueWaitStatus compares an estimated queue wait with the observed
// average wait.
func QueueWaitStatus(estimate, average float64) string {
	if estimate > average {
		return WaitAboveAverage
	}
	return WaitWithinAverage
}

var conditionScores = map[string]float64{
	"critical": 10,
	"urgent":   8,
	"moderate": 5,
	"routine":  3,
}

// AdmissionScore is the result of AssessAdmissionPriority.
type AdmissionScore struct {
	Score          float64
	Level          string
	ConditionScore float64
	WaitFactor     float64
	LoadPenalty    float64
}

// AssessAdmissionPriority scores an admission as the condition's base
// score plus min(wait/30, 2), minus the department load when the load
// exceeds the penalty threshold. Unknown conditions score as routine.
func AssessAdmissionPriority(condition string, waitMinutes, load float64, t Thresholds) AdmissionScore {
	base, ok := conditionScores[strings.ToLower(condition)]
	if !ok {
		base = conditionScores["routine"]
	}
	wait := math.Min(waitMinutes/30, 2)
	penalty := 0.0
	if load > t.AdmissionLoadPenalty {
		penalty = load
	}

	score := base + wait - penalty
	level := "Low"
	switch {
	case score > 7:
		level = "High"
	case score > 4:
		level = "Medium"
	}
	return AdmissionScore{
		Score:          round(score, 2),
		Level:          level,
		ConditionScore: base,
		WaitFactor:     round(wait, 2),
		LoadPenalty:    round(penalty, 2),
	}
}

// ConditionForPriority maps a turn priority onto the admission condition
// scale.
func ConditionForPriority(p state.Priority) string {
	switch p {
	case state.PriorityCritical:
		return "critical"
	case state.PriorityUrgent:
		return "urgent"
	case state.PriorityHigh:
		return "moderate"
	}
	return "routine"
}

var lengthOfStay = map[string]float64{
	"routine":   3,
	"acute":     5,
	"critical":  7,
	"emergency": 2,
}

// StayCondition maps a turn priority onto the length-of-stay scale used by
// PredictDischarge.
func StayCondition(p state.Priority) string {
	switch p {
	case state.PriorityCritical:
		return "critical"
	case state.PriorityUrgent:
		return "emergency"
	case state.PriorityHigh:
		return "acute"
	}
	return "routine"
}

// PredictDischarge estimates the discharge time from the typical length
// of stay for condition, extended by half for ICU patients.
func PredictDischarge(admitted time.Time, condition, department string) time.Time {
	days, ok := lengthOfStay[strings.ToLower(condition)]
	if !ok {
		days = 4
	}
	if strings.EqualFold(department, "icu") {
		days *= 1.5
	}
	return admitted.Add(time.Duration(days * 24 * float64(time.Hour)))
}

// CapacityAlert flags a department running hot.
type CapacityAlert struct {
	Department          string
	Utilization         float64
	Critical            bool
	RecommendedTransfer int
}

// DepartmentAlerts returns alerts for departments above 85% utilization,
// sorted by name. Above 90% the alert is critical. The transfer count is
// the number of patients that would bring the unit back to 80%.
func DepartmentAlerts(departments map[string]state.Department) []CapacityAlert {
	var alerts []CapacityAlert
	for key, d := range departments {
		if d.Capacity <= 0 {
			continue
		}
		u := float64(d.CurrentOccupancy) / float64(d.Capacity)
		if u <= 0.85 {
			continue
		}
		name := d.Name
		if name == "" {
			name = key
		}
		alerts = append(alerts, CapacityAlert{
			Department:          name,
			Utilization:         u,
			Critical:            u > 0.9,
			RecommendedTransfer: max(1, int((u-0.8)*float64(d.Capacity))),
		})
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Department < alerts[j].Department })
	return alerts
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
