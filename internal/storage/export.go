// ABOUTME: Export and restore of a patient's glucose history.
// ABOUTME: Exports JSON or YAML; JSON exports can be imported back.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/glucose/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for one patient.
type ExportData struct {
	Version     string                  `json:"version" yaml:"version"`
	ExportedAt  time.Time               `json:"exported_at" yaml:"exported_at"`
	Tool        string                  `json:"tool" yaml:"tool"`
	PatientID   string                  `json:"patient_id" yaml:"patient_id"`
	Override    *models.PatientOverride `json:"override,omitempty" yaml:"override,omitempty"`
	Readings    []*models.Reading       `json:"readings" yaml:"readings"`
	Alerts      []*models.Alert         `json:"alerts" yaml:"alerts"`
	Suggestions []models.Suggestion     `json:"suggestions" yaml:"suggestions"`
}

// GetPatientData retrieves everything stored for a patient.
func (d *DB) GetPatientData(ctx context.Context, patientID string) (*ExportData, error) {
	readings, err := d.ListReadings(ctx, patientID, 0)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}

	alerts, err := d.ListAlerts(ctx, patientID, 0)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	suggestions, err := d.ListSuggestions(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}

	override, err := d.PatientOverride(ctx, patientID)
	if err != nil {
		return nil, err
	}

	return &ExportData{
		Version:     "1.0",
		ExportedAt:  time.Now(),
		Tool:        "glucose",
		PatientID:   patientID,
		Override:    override,
		Readings:    readings,
		Alerts:      alerts,
		Suggestions: suggestions,
	}, nil
}

// ExportJSON exports a patient's data as JSON.
func (d *DB) ExportJSON(ctx context.Context, patientID string) ([]byte, error) {
	data, err := d.GetPatientData(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports a patient's data as YAML, with readings grouped by category.
func (d *DB) ExportYAML(ctx context.Context, patientID string) ([]byte, error) {
	data, err := d.GetPatientData(ctx, patientID)
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version     string                   `yaml:"version"`
		ExportedAt  string                   `yaml:"exported_at"`
		Tool        string                   `yaml:"tool"`
		PatientID   string                   `yaml:"patient_id"`
		Readings    map[string][]yamlReading `yaml:"readings"`
		Alerts      []yamlAlert              `yaml:"alerts"`
		Suggestions []models.Suggestion      `yaml:"suggestions"`
	}{
		Version:     data.Version,
		ExportedAt:  data.ExportedAt.Format(time.RFC3339),
		Tool:        data.Tool,
		PatientID:   data.PatientID,
		Readings:    make(map[string][]yamlReading),
		Alerts:      make([]yamlAlert, 0, len(data.Alerts)),
		Suggestions: data.Suggestions,
	}

	for _, r := range data.Readings {
		yamlData.Readings[string(r.Category)] = append(yamlData.Readings[string(r.Category)], yamlReading{
			ID:         r.ID.String()[:8],
			Value:      r.Value,
			Unit:       string(r.Unit),
			RecordedAt: r.RecordedAt.Format(time.RFC3339),
			Food:       r.FoodNotes,
			Activity:   r.ActivityNotes,
		})
	}

	for _, a := range data.Alerts {
		ya := yamlAlert{
			ID:            a.ID.String()[:8],
			WeekStart:     a.WeekKey(),
			AbnormalCount: a.AbnormalCount,
			Deliveries:    make(map[string]string, len(a.Deliveries)),
		}
		for _, dl := range a.Deliveries {
			ya.Deliveries[dl.RecipientID+"/"+string(dl.Channel)] = string(dl.Status)
		}
		yamlData.Alerts = append(yamlData.Alerts, ya)
	}

	return yaml.Marshal(yamlData)
}

// ImportSummary counts what ImportJSON wrote. Records already present are skipped.
type ImportSummary struct {
	PatientID       string
	Readings        int
	SkippedReadings int
	Alerts          int
	SkippedAlerts   int
	Suggestions     int
	Override        bool
}

// ErrInvalidExport is returned when import data is not a usable patient export.
var ErrInvalidExport = errors.New("invalid export")

// ImportJSON restores a patient export produced by ExportJSON in one
// transaction. Readings and alerts whose IDs (or alert weeks) already exist
// are skipped, so restoring the same file twice is harmless. The override and
// suggestion set are replaced.
func (d *DB) ImportJSON(ctx context.Context, data []byte) (*ImportSummary, error) {
	var export ExportData
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExport, err)
	}
	if err := export.validate(); err != nil {
		return nil, err
	}

	sum := &ImportSummary{PatientID: export.PatientID}
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range export.Readings {
			inserted, err := insertReading(ctx, tx, r, true)
			if err != nil {
				return fmt.Errorf("import reading %s: %w", r.ID, err)
			}
			if inserted {
				sum.Readings++
			} else {
				sum.SkippedReadings++
			}
		}

		for _, a := range export.Alerts {
			inserted, err := insertAlert(ctx, tx, a)
			if err != nil {
				return fmt.Errorf("import alert %s: %w", a.ID, err)
			}
			if inserted {
				sum.Alerts++
			} else {
				sum.SkippedAlerts++
			}
		}

		if export.Override != nil {
			if err := upsertOverride(ctx, tx, export.Override); err != nil {
				return fmt.Errorf("import override: %w", err)
			}
			sum.Override = true
		}

		if err := replaceSuggestions(ctx, tx, export.PatientID, export.Suggestions); err != nil {
			return fmt.Errorf("import suggestions: %w", err)
		}
		sum.Suggestions = len(export.Suggestions)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// validate checks that every record belongs to the exported patient and that
// readings carry a category and a measurable value.
func (e *ExportData) validate() error {
	if e.Tool != "glucose" {
		return fmt.Errorf("%w: produced by %q, not glucose", ErrInvalidExport, e.Tool)
	}
	if e.PatientID == "" {
		return fmt.Errorf("%w: missing patient_id", ErrInvalidExport)
	}
	for _, r := range e.Readings {
		if r == nil || r.PatientID != e.PatientID {
			return fmt.Errorf("%w: reading for another patient", ErrInvalidExport)
		}
		if r.Category == "" || !models.IsMeasurable(r.Value) {
			return fmt.Errorf("%w: reading %s has no category or an impossible value", ErrInvalidExport, r.ID)
		}
	}
	for _, a := range e.Alerts {
		if a == nil || a.PatientID != e.PatientID {
			return fmt.Errorf("%w: alert for another patient", ErrInvalidExport)
		}
	}
	if e.Override != nil && e.Override.PatientID != e.PatientID {
		return fmt.Errorf("%w: override for another patient", ErrInvalidExport)
	}
	return nil
}

type yamlReading struct {
	ID         string  `yaml:"id"`
	Value      float64 `yaml:"value"`
	Unit       string  `yaml:"unit"`
	RecordedAt string  `yaml:"recorded_at"`
	Food       string  `yaml:"food,omitempty"`
	Activity   string  `yaml:"activity,omitempty"`
}

type yamlAlert struct {
	ID            string            `yaml:"id"`
	WeekStart     string            `yaml:"week_start"`
	AbnormalCount int               `yaml:"abnormal_count"`
	Deliveries    map[string]string `yaml:"deliveries"`
}
