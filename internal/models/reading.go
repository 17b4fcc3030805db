// ABOUTME: Reading model for blood-glucose measurements.
// ABOUTME: Carries value, unit, free-text food/activity notes and assigned category.
package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Unit is the unit a glucose value was recorded in.
type Unit string

const (
	UnitMgDL  Unit = "mg/dL"
	UnitMmolL Unit = "mmol/L"
)

// MgDLPerMmolL converts mmol/L to mg/dL.
const MgDLPerMmolL = 18.0182

// ParseUnit accepts the common spellings of both units.
func ParseUnit(s string) (Unit, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mg/dl", "mgdl", "mg":
		return UnitMgDL, true
	case "mmol/l", "mmol", "mmoll":
		return UnitMmolL, true
	}
	return "", false
}

// IsMeasurable reports whether v could come from a meter: finite and above zero.
func IsMeasurable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// ToMgDL converts a value in unit u to mg/dL.
func ToMgDL(value float64, u Unit) float64 {
	if u == UnitMmolL {
		return value * MgDLPerMmolL
	}
	return value
}

// Category is the severity label assigned to a reading.
type Category string

const (
	CategoryNormal     Category = "normal"
	CategoryBorderline Category = "borderline"
	CategoryAbnormal   Category = "abnormal"
)

// Severity orders categories; higher is more severe.
func (c Category) Severity() int {
	switch c {
	case CategoryAbnormal:
		return 3
	case CategoryBorderline:
		return 2
	case CategoryNormal:
		return 1
	}
	return 0
}

// Reading is a single time-stamped glucose measurement for a patient.
type Reading struct {
	ID            uuid.UUID `json:"id" yaml:"id"`
	PatientID     string    `json:"patient_id" yaml:"patient_id"`
	RecordedAt    time.Time `json:"recorded_at" yaml:"recorded_at"`
	Value         float64   `json:"value" yaml:"value"`
	Unit          Unit      `json:"unit" yaml:"unit"`
	FoodNotes     string    `json:"food_notes,omitempty" yaml:"food_notes,omitempty"`
	ActivityNotes string    `json:"activity_notes,omitempty" yaml:"activity_notes,omitempty"`
	Category      Category  `json:"category,omitempty" yaml:"category,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// NewReading creates a mg/dL Reading with generated UUID and current timestamp.
func NewReading(patientID string, value float64) *Reading {
	now := time.Now()
	return &Reading{
		ID:         uuid.New(),
		PatientID:  patientID,
		RecordedAt: now,
		Value:      value,
		Unit:       UnitMgDL,
		CreatedAt:  now,
	}
}

// WithRecordedAt sets a custom recorded_at timestamp.
func (r *Reading) WithRecordedAt(t time.Time) *Reading {
	r.RecordedAt = t
	return r
}

// WithUnit sets the unit the value was measured in.
func (r *Reading) WithUnit(u Unit) *Reading {
	r.Unit = u
	return r
}

// WithFood sets the free-text food notes.
func (r *Reading) WithFood(notes string) *Reading {
	r.FoodNotes = notes
	return r
}

// WithActivity sets the free-text activity notes.
func (r *Reading) WithActivity(notes string) *Reading {
	r.ActivityNotes = notes
	return r
}

// ValueMgDL returns the value in mg/dL, the unit thresholds are stored in.
func (r *Reading) ValueMgDL() float64 {
	return ToMgDL(r.Value, r.Unit)
}

// IsAbnormal reports whether the reading was categorized abnormal.
func (r *Reading) IsAbnormal() bool {
	return r.Category == CategoryAbnormal
}
