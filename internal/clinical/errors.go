// ABOUTME: Error kinds returned by categorization and alert evaluation.
// ABOUTME: Also holds the value checks applied before categorization.

// Package clinical classifies glucose readings, raises weekly abnormal-reading
// alerts, and mines abnormal history for recurring food and activity triggers.
package clinical

import (
	"errors"
	"fmt"

	"github.com/harperreed/glucose/internal/models"
)

var (
	// ErrNotConfigured means no threshold version is effective at the
	// requested instant. Readings cannot be accepted without one.
	ErrNotConfigured = errors.New("thresholds not configured")

	// ErrUncategorizableValue means a value falls in a gap between ranges.
	// Callers fall back to borderline and log the anomaly.
	ErrUncategorizableValue = errors.New("value outside all threshold ranges")

	// ErrInvalidValue means a value cannot be a glucose measurement at all:
	// zero, negative, NaN or infinite. It is rejected before categorization.
	ErrInvalidValue = errors.New("invalid glucose value")

	// ErrAlertDetectionFailed wraps storage or lookup failures during alert evaluation.
	ErrAlertDetectionFailed = errors.New("alert detection failed")

	// ErrDispatchFailed wraps delivery failures. They never roll back an alert.
	ErrDispatchFailed = errors.New("alert dispatch failed")
)

func detectionFailed(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrAlertDetectionFailed, step, err)
}

// ValidateValue rejects values no meter can report.
func ValidateValue(v float64) error {
	if !models.IsMeasurable(v) {
		return fmt.Errorf("%w: %v", ErrInvalidValue, v)
	}
	return nil
}
