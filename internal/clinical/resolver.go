// ABOUTME: Resolves the threshold version effective at an instant.
// ABOUTME: Overlays a patient's normal-range override on the system version.
package clinical

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/glucose/internal/models"
)

// ThresholdSource fetches threshold data. Both methods return nil, nil when
// nothing is stored.
type ThresholdSource interface {
	SystemThresholds(ctx context.Context, asOf time.Time) (*models.ThresholdSet, error)
	PatientOverride(ctx context.Context, patientID string) (*models.PatientOverride, error)
}

// Resolver combines the latest system threshold version with a patient's override.
type Resolver struct {
	src ThresholdSource
}

// NewResolver reads thresholds and overrides from src.
func NewResolver(src ThresholdSource) *Resolver {
	return &Resolver{src: src}
}

// Resolve returns the thresholds that apply to patientID at asOf.
func (r *Resolver) Resolve(ctx context.Context, patientID string, asOf time.Time) (*models.ThresholdSet, error) {
	system, err := r.src.SystemThresholds(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("resolve thresholds: %w", err)
	}
	if system == nil {
		return nil, fmt.Errorf("%w: no version effective at %s", ErrNotConfigured, asOf.Format(time.RFC3339))
	}

	override, err := r.src.PatientOverride(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("resolve thresholds: %w", err)
	}
	return ApplyOverride(system, override), nil
}

// ApplyOverride returns a copy of system with Normal replaced by the override.
// Borderline and Abnormal always come from the system version.
func ApplyOverride(system *models.ThresholdSet, o *models.PatientOverride) *models.ThresholdSet {
	merged := *system
	if o != nil {
		merged.Normal = o.Normal
		merged.Overridden = true
	}
	return &merged
}
