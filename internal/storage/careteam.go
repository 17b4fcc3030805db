// ABOUTME: Patient-specialist assignment and contact directory storage.
// ABOUTME: Resolves alert recipients and their email addresses.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AssignSpecialist sets (or replaces) the specialist assigned to a patient.
func (d *DB) AssignSpecialist(ctx context.Context, patientID, specialistID string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO specialist_assignments (patient_id, specialist_id, assigned_at)
		VALUES (?, ?, ?)
		ON CONFLICT(patient_id) DO UPDATE SET
			specialist_id = excluded.specialist_id,
			assigned_at = excluded.assigned_at`,
		patientID, specialistID, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("assign specialist: %w", err)
	}
	return nil
}

// AssignedSpecialist returns the patient's specialist, if any.
func (d *DB) AssignedSpecialist(ctx context.Context, patientID string) (string, bool, error) {
	var id string
	err := d.db.QueryRowContext(ctx,
		"SELECT specialist_id FROM specialist_assignments WHERE patient_id = ?", patientID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("fetch assigned specialist: %w", err)
	}
	return id, true, nil
}

// SetContactEmail records the email address for a patient or specialist.
func (d *DB) SetContactEmail(ctx context.Context, id, email string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO contacts (id, email, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			updated_at = excluded.updated_at`,
		id, email, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set contact email: %w", err)
	}
	return nil
}

// ContactEmail looks up the email address for a recipient.
func (d *DB) ContactEmail(ctx context.Context, id string) (string, bool, error) {
	var email string
	err := d.db.QueryRowContext(ctx, "SELECT email FROM contacts WHERE id = ?", id).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("fetch contact email: %w", err)
	}
	return email, true, nil
}
