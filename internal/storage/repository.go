// ABOUTME: Repository interface for glucose data storage.
// ABOUTME: Defines the contract for readings, thresholds, alerts and suggestions.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/glucose/internal/models"
)

var (
	// ErrNotFound is returned by single-record getters when nothing matches.
	ErrNotFound = errors.New("not found")

	// ErrAlertExists is returned by InsertAlert when an alert already exists
	// for the same patient and week start.
	ErrAlertExists = errors.New("alert already exists for week")
)

// Repository defines the storage interface for glucose data.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	// Reading operations
	CreateReading(ctx context.Context, r *models.Reading) error
	GetReading(ctx context.Context, idOrPrefix string) (*models.Reading, error)
	ListReadings(ctx context.Context, patientID string, limit int) ([]*models.Reading, error)
	AbnormalReadings(ctx context.Context, patientID string) ([]*models.Reading, error)
	AbnormalCount(ctx context.Context, patientID string, since time.Time) (int, error)
	UpdateReadingCategory(ctx context.Context, id uuid.UUID, c models.Category) error
	ListPatients(ctx context.Context) ([]string, error)

	// Threshold operations
	InsertThresholdSet(ctx context.Context, t *models.ThresholdSet) error
	SystemThresholds(ctx context.Context, asOf time.Time) (*models.ThresholdSet, error)
	ListThresholdSets(ctx context.Context) ([]*models.ThresholdSet, error)
	PatientOverride(ctx context.Context, patientID string) (*models.PatientOverride, error)
	SetPatientOverride(ctx context.Context, o *models.PatientOverride) error
	ClearPatientOverride(ctx context.Context, patientID string) error

	// Care team operations
	AssignSpecialist(ctx context.Context, patientID, specialistID string) error
	AssignedSpecialist(ctx context.Context, patientID string) (string, bool, error)
	SetContactEmail(ctx context.Context, id, email string) error
	ContactEmail(ctx context.Context, id string) (string, bool, error)

	// Alert operations
	FindAlert(ctx context.Context, patientID string, weekStart time.Time) (*models.Alert, error)
	InsertAlert(ctx context.Context, a *models.Alert) error
	UpdateDelivery(ctx context.Context, alertID uuid.UUID, d models.Delivery) error
	ListAlerts(ctx context.Context, patientID string, limit int) ([]*models.Alert, error)

	// Suggestion operations
	ReplaceSuggestions(ctx context.Context, patientID string, s []models.Suggestion) error
	ListSuggestions(ctx context.Context, patientID string) ([]models.Suggestion, error)

	// Export
	GetPatientData(ctx context.Context, patientID string) (*ExportData, error)
	ImportJSON(ctx context.Context, data []byte) (*ImportSummary, error)

	// Lifecycle
	Close() error
}

// Compile-time check that DB implements Repository.
var _ Repository = (*DB)(nil)
