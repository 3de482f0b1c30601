// Package hospital computes derived operational values from raw metrics:
// occupancy, capacity status, supply tiers, admission priority and the
// status bands the specialists report as assessments.
//
// Every function is pure.
package hospital

import (
	"fmt"

	"github.com/randalmurphal/healthops/pkg/flowgraph/config"
)

// Thresholds holds the cut-offs behind each status band. Percentages are
// 0..100, supply levels and compliance are fractions.
type Thresholds struct {
	OccupancyCritical    float64
	OccupancyHigh        float64
	SupplyCritical       float64
	SupplyLow            float64
	SatisfactionGood     float64
	ComplianceTarget     float64
	IncidentsHigh        int
	OvertimePerStaffHigh float64
	StaffSatisfactionLow float64
	AdmissionLoadPenalty float64
}

// DefaultThresholds returns the standard cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OccupancyCritical:    90,
		OccupancyHigh:        80,
		SupplyCritical:       0.2,
		SupplyLow:            0.4,
		SatisfactionGood:     8,
		ComplianceTarget:     0.95,
		IncidentsHigh:        5,
		OvertimePerStaffHigh: 10,
		StaffSatisfactionLow: 7,
		AdmissionLoadPenalty: 0.8,
	}
}

// ThresholdsFromConfig overlays any keys present in cfg on the defaults.
// Keys match the snake_case field names, e.g. "occupancy_critical".
func ThresholdsFromConfig(cfg config.Config) Thresholds {
	d := DefaultThresholds()
	return Thresholds{
		OccupancyCritical:    cfg.Float("occupancy_critical", d.OccupancyCritical),
		OccupancyHigh:        cfg.Float("occupancy_high", d.OccupancyHigh),
		SupplyCritical:       cfg.Float("supply_critical", d.SupplyCritical),
		SupplyLow:            cfg.Float("supply_low", d.SupplyLow),
		SatisfactionGood:     cfg.Float("satisfaction_good", d.SatisfactionGood),
		ComplianceTarget:     cfg.Float("compliance_target", d.ComplianceTarget),
		IncidentsHigh:        cfg.Int("incidents_high", d.IncidentsHigh),
		OvertimePerStaffHigh: cfg.Float("overtime_per_staff_high", d.OvertimePerStaffHigh),
		StaffSatisfactionLow: cfg.Float("staff_satisfaction_low", d.StaffSatisfactionLow),
		AdmissionLoadPenalty: cfg.Float("admission_load_penalty", d.AdmissionLoadPenalty),
	}
}

// Validate rejects inverted or out-of-range bands.
func (t Thresholds) Validate() error {
	switch {
	case t.OccupancyHigh <= 0 || t.OccupancyCritical > 100:
		return fmt.Errorf("occupancy thresholds must be within (0, 100]")
	case t.OccupancyHigh >= t.OccupancyCritical:
		return fmt.Errorf("occupancy_high (%.1f) must be below occupancy_critical (%.1f)", t.OccupancyHigh, t.OccupancyCritical)
	case t.SupplyCritical <= 0 || t.SupplyLow > 1:
		return fmt.Errorf("supply thresholds must be within (0, 1]")
	case t.SupplyCritical >= t.SupplyLow:
		return fmt.Errorf("supply_critical (%.2f) must be below supply_low (%.2f)", t.SupplyCritical, t.SupplyLow)
	case t.ComplianceTarget <= 0 || t.ComplianceTarget > 1:
		return fmt.Errorf("compliance_target must be within (0, 1]")
	case t.IncidentsHigh < 0:
		return fmt.Errorf("incidents_high must not be negative")
	}
	return nil
}
