package hospital

import (
	"fmt"
	"sort"
	"strings"

	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

// Supply tiers.
const (
	SupplyCritical = "critical"
	SupplyLow      = "low"
	SupplyAdequate = "adequate"
)

// SupplyTier classifies a stock level given as a fraction of par.
func SupplyTier(level float64, t Thresholds) string {
	switch {
	case level < t.SupplyCritical:
		return SupplyCritical
	case level < t.SupplyLow:
		return SupplyLow
	}
	return SupplyAdequate
}

// SupplyStatus is one classified supply line.
type SupplyStatus struct {
	Item  string
	Level float64
	Tier  string
}

// ClassifySupplies tiers every supply, sorted by item name.
func ClassifySupplies(levels map[string]float64, t Thresholds) []SupplyStatus {
	out := make([]SupplyStatus, 0, len(levels))
	for _, item := range sortedKeys(levels) {
		out = append(out, SupplyStatus{Item: item, Level: levels[item], Tier: SupplyTier(levels[item], t)})
	}
	return out
}

// FormatSupplies renders supplies as "gloves: 15% (critical)" lines
// joined by commas. An empty map renders as "No supply data".
func FormatSupplies(levels map[string]float64, t Thresholds) string {
	if len(levels) == 0 {
		return "No supply data"
	}
	parts := make([]string, 0, len(levels))
	for _, s := range ClassifySupplies(levels, t) {
		parts = append(parts, fmt.Sprintf("%s: %.0f%% (%s)", s.Item, s.Level*100, s.Tier))
	}
	return strings.Join(parts, ", ")
}

// FormatEquipment renders availability as "ventilator: available" pairs.
func FormatEquipment(equipment map[string]bool) string {
	if len(equipment) == 0 {
		return "No equipment data"
	}
	parts := make([]string, 0, len(equipment))
	for _, name := range sortedKeys(equipment) {
		status := "unavailable"
		if equipment[name] {
			status = "available"
		}
		parts = append(parts, name+": "+status)
	}
	return strings.Join(parts, ", ")
}

// SatisfactionStatus is "Good" at or above the good threshold.
func SatisfactionStatus(score float64, t Thresholds) string {
	if score >= t.SatisfactionGood {
		return "Good"
	}
	return "Needs Improvement"
}

// ComplianceStatus is "Compliant" at or above the target rate.
func ComplianceStatus(rate float64, t Thresholds) string {
	if rate >= t.ComplianceTarget {
		return "Compliant"
	}
	return "Review Required"
}

// IncidentStatus is "High" above the incident threshold.
func IncidentStatus(count int, t Thresholds) string {
	if count > t.IncidentsHigh {
		return "High"
	}
	return "Low"
}

// AvailableStaff totals the per-role counts.
func AvailableStaff(m state.StaffingMetrics) int {
	total := 0
	for _, n := range m.AvailableStaff {
		total += n
	}
	return total
}

// OvertimePerStaff spreads overtime hours across the workforce.
func OvertimePerStaff(m state.StaffingMetrics) float64 {
	if m.TotalStaff <= 0 {
		return 0
	}
	return m.OvertimeHours / float64(m.TotalStaff)
}

// OvertimeStatus is "Excessive" when overtime per staff member is above
// the threshold.
func OvertimeStatus(m state.StaffingMetrics, t Thresholds) string {
	if OvertimePerStaff(m) > t.OvertimePerStaffHigh {
		return "Excessive"
	}
	return "Acceptable"
}

// StaffSatisfactionStatus is "Needs Attention" below the threshold.
func StaffSatisfactionStatus(score float64, t Thresholds) string {
	if score < t.StaffSatisfactionLow {
		return "Needs Attention"
	}
	return "Stable"
}

// FormatStaffAvailability renders "doctors: 50 available, ..." sorted by role.
func FormatStaffAvailability(m state.StaffingMetrics) string {
	if len(m.AvailableStaff) == 0 {
		return "No staffing data"
	}
	parts := make([]string, 0, len(m.AvailableStaff))
	for _, role := range sortedKeys(m.AvailableStaff) {
		parts = append(parts, fmt.Sprintf("%s: %d available", role, m.AvailableStaff[role]))
	}
	return strings.Join(parts, ", ")
}

// FormatDepartments renders each department as
// "ICU: 18/20 beds, wait 40 min" sorted by key.
func FormatDepartments(departments map[string]state.Department) string {
	if len(departments) == 0 {
		return "No department data"
	}
	parts := make([]string, 0, len(departments))
	for _, key := range sortedKeys(departments) {
		d := departments[key]
		name := d.Name
		if name == "" {
			name = key
		}
		parts = append(parts, fmt.Sprintf("%s: %d/%d beds, wait %d min", name, d.CurrentOccupancy, d.Capacity, d.WaitTime))
	}
	return strings.Join(parts, "; ")
}

// FormatScores renders a name → value map as "name: 0.92" pairs.
func FormatScores(scores map[string]float64) string {
	if len(scores) == 0 {
		return "No data"
	}
	parts := make([]string, 0, len(scores))
	for _, k := range sortedKeys(scores) {
		parts = append(parts, fmt.Sprintf("%s: %.2f", k, scores[k]))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
