// ABOUTME: Alert and delivery-status storage.
// ABOUTME: InsertAlert is an atomic insert-if-absent keyed by (patient, week start).
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

const alertColumns = `id, patient_id, specialist_id, week_start, abnormal_count, message, created_at`

// InsertAlert stores an alert and its pending deliveries in one transaction.
// If an alert already exists for the same patient and week start nothing is
// written and ErrAlertExists is returned.
func (d *DB) InsertAlert(ctx context.Context, a *models.Alert) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		inserted, err := insertAlert(ctx, tx, a)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrAlertExists
		}
		return nil
	})
}

// insertAlert writes a and its deliveries unless the patient's week (or the
// alert ID) is already taken. Run it inside a transaction.
func insertAlert(ctx context.Context, tx *sql.Tx, a *models.Alert) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		a.ID.String(),
		a.PatientID,
		a.SpecialistID,
		a.WeekKey(),
		a.AbnormalCount,
		a.Message,
		formatTime(a.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert alert: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	for _, dl := range a.Deliveries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO alert_deliveries (alert_id, recipient_id, role, channel, status, error, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID.String(), dl.RecipientID, string(dl.Role), string(dl.Channel),
			string(dl.Status), dl.Error, formatTime(dl.UpdatedAt),
		)
		if err != nil {
			return false, fmt.Errorf("insert alert delivery: %w", err)
		}
	}
	return true, nil
}

// FindAlert returns the alert for a patient's week, or nil.
func (d *DB) FindAlert(ctx context.Context, patientID string, weekStart time.Time) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE patient_id = ? AND week_start = ?`
	a, err := scanAlert(d.db.QueryRowContext(ctx, query, patientID, weekStart.Format(models.WeekKeyLayout)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find alert: %w", err)
	}
	if err := d.loadDeliveries(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateDelivery records the outcome of one (recipient, channel) delivery.
func (d *DB) UpdateDelivery(ctx context.Context, alertID uuid.UUID, dl models.Delivery) error {
	if dl.UpdatedAt.IsZero() {
		dl.UpdatedAt = time.Now()
	}
	result, err := d.db.ExecContext(ctx, `
		UPDATE alert_deliveries
		SET status = ?, error = ?, updated_at = ?
		WHERE alert_id = ? AND recipient_id = ? AND channel = ?`,
		string(dl.Status), dl.Error, formatTime(dl.UpdatedAt),
		alertID.String(), dl.RecipientID, string(dl.Channel),
	)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update delivery %s/%s: %w", dl.RecipientID, dl.Channel, ErrNotFound)
	}
	return nil
}

// ListAlerts returns a patient's alerts, newest week first.
func (d *DB) ListAlerts(ctx context.Context, patientID string, limit int) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE patient_id = ? ORDER BY week_start DESC`
	args := []interface{}{patientID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	var alerts []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	rows.Close()

	for _, a := range alerts {
		if err := d.loadDeliveries(ctx, a); err != nil {
			return nil, err
		}
	}
	return alerts, nil
}

func (d *DB) loadDeliveries(ctx context.Context, a *models.Alert) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT recipient_id, role, channel, status, error, updated_at
		FROM alert_deliveries
		WHERE alert_id = ?
		ORDER BY role DESC, recipient_id, channel`,
		a.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	a.Deliveries = nil
	for rows.Next() {
		var dl models.Delivery
		var role, channel, status, updatedAt string
		if err := rows.Scan(&dl.RecipientID, &role, &channel, &status, &dl.Error, &updatedAt); err != nil {
			return fmt.Errorf("scan delivery: %w", err)
		}
		dl.Role = models.Role(role)
		dl.Channel = models.Channel(channel)
		dl.Status = models.DeliveryStatus(status)
		dl.UpdatedAt = parseTime(updatedAt)
		a.Deliveries = append(a.Deliveries, dl)
	}
	return rows.Err()
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var a models.Alert
	var idStr, weekStart, createdAt string
	var specialist sql.NullString

	err := row.Scan(&idStr, &a.PatientID, &specialist, &weekStart, &a.AbnormalCount, &a.Message, &createdAt)
	if err != nil {
		return nil, err
	}

	a.ID, _ = uuid.Parse(idStr)
	if specialist.Valid {
		a.SpecialistID = &specialist.String
	}
	a.WeekStart, _ = time.Parse(models.WeekKeyLayout, weekStart)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}
