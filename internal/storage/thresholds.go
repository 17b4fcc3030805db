// ABOUTME: Threshold version and patient override storage.
// ABOUTME: Versions are insert-only; the latest effective version is authoritative.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/glucose/internal/models"
)

const thresholdColumns = `id, version, normal_low, normal_high, borderline_low, borderline_high,
	abnormal_low, abnormal_high, effective_at, created_at`

// InsertThresholdSet stores a new version, assigning the next version number.
func (d *DB) InsertThresholdSet(ctx context.Context, t *models.ThresholdSet) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("insert threshold set: %w", err)
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) + 1 FROM threshold_sets").Scan(&next); err != nil {
			return fmt.Errorf("next threshold version: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO threshold_sets (`+thresholdColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID.String(), next,
			t.Normal.Low, t.Normal.High,
			t.Borderline.Low, t.Borderline.High,
			t.Abnormal.Low, t.Abnormal.High,
			formatTime(t.EffectiveAt), formatTime(t.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert threshold set: %w", err)
		}
		t.Version = next
		return nil
	})
}

// SystemThresholds returns the most recent version effective at or before asOf,
// or nil when none exists.
func (d *DB) SystemThresholds(ctx context.Context, asOf time.Time) (*models.ThresholdSet, error) {
	query := `
		SELECT ` + thresholdColumns + `
		FROM threshold_sets
		WHERE effective_at <= ?
		ORDER BY effective_at DESC, version DESC
		LIMIT 1
	`
	t, err := scanThresholdSet(d.db.QueryRowContext(ctx, query, formatTime(asOf)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch system thresholds: %w", err)
	}
	return t, nil
}

// ListThresholdSets returns every version, newest first.
func (d *DB) ListThresholdSets(ctx context.Context) ([]*models.ThresholdSet, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+thresholdColumns+` FROM threshold_sets ORDER BY version DESC`)
	if err != nil {
		return nil, fmt.Errorf("list threshold sets: %w", err)
	}
	defer rows.Close()

	var sets []*models.ThresholdSet
	for rows.Next() {
		t, err := scanThresholdSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan threshold set: %w", err)
		}
		sets = append(sets, t)
	}
	return sets, rows.Err()
}

// PatientOverride returns the patient's normal-range override, or nil.
func (d *DB) PatientOverride(ctx context.Context, patientID string) (*models.PatientOverride, error) {
	var o models.PatientOverride
	var updatedAt string
	err := d.db.QueryRowContext(ctx,
		"SELECT patient_id, normal_low, normal_high, updated_at FROM patient_overrides WHERE patient_id = ?",
		patientID,
	).Scan(&o.PatientID, &o.Normal.Low, &o.Normal.High, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch patient override: %w", err)
	}
	o.UpdatedAt = parseTime(updatedAt)
	return &o, nil
}

// SetPatientOverride creates or replaces a patient's normal-range override.
func (d *DB) SetPatientOverride(ctx context.Context, o *models.PatientOverride) error {
	if err := upsertOverride(ctx, d.db, o); err != nil {
		return fmt.Errorf("set patient override: %w", err)
	}
	return nil
}

func upsertOverride(ctx context.Context, ex execer, o *models.PatientOverride) error {
	if err := o.Normal.Validate(); err != nil {
		return err
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now()
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO patient_overrides (patient_id, normal_low, normal_high, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(patient_id) DO UPDATE SET
			normal_low = excluded.normal_low,
			normal_high = excluded.normal_high,
			updated_at = excluded.updated_at`,
		o.PatientID, o.Normal.Low, o.Normal.High, formatTime(o.UpdatedAt),
	)
	return err
}

// ClearPatientOverride removes a patient's override, if any.
func (d *DB) ClearPatientOverride(ctx context.Context, patientID string) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM patient_overrides WHERE patient_id = ?", patientID); err != nil {
		return fmt.Errorf("clear patient override: %w", err)
	}
	return nil
}

func scanThresholdSet(row rowScanner) (*models.ThresholdSet, error) {
	var t models.ThresholdSet
	var idStr, effectiveAt, createdAt string
	err := row.Scan(&idStr, &t.Version,
		&t.Normal.Low, &t.Normal.High,
		&t.Borderline.Low, &t.Borderline.High,
		&t.Abnormal.Low, &t.Abnormal.High,
		&effectiveAt, &createdAt)
	if err != nil {
		return nil, err
	}
	t.ID, _ = uuid.Parse(idStr)
	t.EffectiveAt = parseTime(effectiveAt)
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}
