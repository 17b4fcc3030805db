// ABOUTME: Versioned threshold sets and per-patient normal-range overrides.
// ABOUTME: Ranges are closed intervals expressed in mg/dL.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Range is a closed interval [Low, High].
type Range struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Contains reports whether v lies within the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Low && v <= r.High
}

// Validate rejects inverted ranges.
func (r Range) Validate() error {
	if r.Low > r.High {
		return fmt.Errorf("low %.2f exceeds high %.2f", r.Low, r.High)
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("%.1f-%.1f", r.Low, r.High)
}

// ThresholdSet is one immutable version of the system-wide category boundaries.
// Updates are always new versions; an existing version is never edited.
type ThresholdSet struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	Version     int       `json:"version" yaml:"version"`
	Normal      Range     `json:"normal" yaml:"normal"`
	Borderline  Range     `json:"borderline" yaml:"borderline"`
	Abnormal    Range     `json:"abnormal" yaml:"abnormal"`
	EffectiveAt time.Time `json:"effective_at" yaml:"effective_at"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`

	// Overridden is set on resolved views where a patient override replaced Normal.
	Overridden bool `json:"overridden,omitempty" yaml:"overridden,omitempty"`
}

// NewThresholdSet creates a threshold version effective immediately.
// The version number is assigned by storage on insert.
func NewThresholdSet(normal, borderline, abnormal Range) *ThresholdSet {
	now := time.Now()
	return &ThresholdSet{
		ID:          uuid.New(),
		Normal:      normal,
		Borderline:  borderline,
		Abnormal:    abnormal,
		EffectiveAt: now,
		CreatedAt:   now,
	}
}

// WithEffectiveAt sets the instant from which this version applies.
func (t *ThresholdSet) WithEffectiveAt(at time.Time) *ThresholdSet {
	t.EffectiveAt = at
	return t
}

// Validate checks all three ranges.
func (t *ThresholdSet) Validate() error {
	for name, r := range map[string]Range{"normal": t.Normal, "borderline": t.Borderline, "abnormal": t.Abnormal} {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s range: %w", name, err)
		}
	}
	return nil
}

// PatientOverride replaces only the Normal range for one patient.
type PatientOverride struct {
	PatientID string    `json:"patient_id" yaml:"patient_id"`
	Normal    Range     `json:"normal" yaml:"normal"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
