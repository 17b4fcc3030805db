// ABOUTME: Reading CRUD and abnormal-history queries for SQLite storage.
// ABOUTME: Implements Repository interface methods for readings.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/glucose/internal/models"
)

const readingColumns = `id, patient_id, recorded_at, value, unit, food_notes, activity_notes, category, created_at`

// CreateReading stores a categorized reading. A reading cannot be stored
// without a category.
func (d *DB) CreateReading(ctx context.Context, r *models.Reading) error {
	if _, err := insertReading(ctx, d.db, r, false); err != nil {
		return fmt.Errorf("create reading: %w", err)
	}
	return nil
}

// insertReading writes r. With skipExisting an ID already present is left
// untouched and reported as not inserted.
func insertReading(ctx context.Context, ex execer, r *models.Reading, skipExisting bool) (bool, error) {
	if r.Category == "" {
		return false, errors.New("category not assigned")
	}
	query := `INSERT INTO readings (` + readingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if skipExisting {
		query += ` ON CONFLICT(id) DO NOTHING`
	}
	result, err := ex.ExecContext(ctx, query,
		r.ID.String(),
		r.PatientID,
		formatTime(r.RecordedAt),
		r.Value,
		string(r.Unit),
		r.FoodNotes,
		r.ActivityNotes,
		string(r.Category),
		formatTime(r.CreatedAt),
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetReading retrieves a reading by ID or ID prefix.
func (d *DB) GetReading(ctx context.Context, idOrPrefix string) (*models.Reading, error) {
	id, err := d.resolveReadingID(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + readingColumns + ` FROM readings WHERE id = ?`
	r, err := scanReading(d.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get reading %s: %w", idOrPrefix, ErrNotFound)
	}
	return r, err
}

// ListReadings returns a patient's readings, most recent first.
func (d *DB) ListReadings(ctx context.Context, patientID string, limit int) ([]*models.Reading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM readings
		WHERE patient_id = ?
		ORDER BY recorded_at DESC
	`
	args := []interface{}{patientID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// AbnormalReadings returns the full abnormal history for a patient, oldest first.
func (d *DB) AbnormalReadings(ctx context.Context, patientID string) ([]*models.Reading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM readings
		WHERE patient_id = ? AND category = ?
		ORDER BY recorded_at ASC, id ASC
	`
	rows, err := d.db.QueryContext(ctx, query, patientID, string(models.CategoryAbnormal))
	if err != nil {
		return nil, fmt.Errorf("list abnormal readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// AbnormalCount counts abnormal readings with recorded_at >= since.
func (d *DB) AbnormalCount(ctx context.Context, patientID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM readings
		WHERE patient_id = ? AND category = ? AND recorded_at >= ?
	`
	var n int
	err := d.db.QueryRowContext(ctx, query, patientID, string(models.CategoryAbnormal), formatTime(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count abnormal readings: %w", err)
	}
	return n, nil
}

// UpdateReadingCategory re-applies a category. Only used when thresholds are
// explicitly re-applied to history.
func (d *DB) UpdateReadingCategory(ctx context.Context, id uuid.UUID, c models.Category) error {
	result, err := d.db.ExecContext(ctx, "UPDATE readings SET category = ? WHERE id = ?", string(c), id.String())
	if err != nil {
		return fmt.Errorf("update reading category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reading category: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update reading category %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListPatients returns every patient with at least one reading.
func (d *DB) ListPatients(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT DISTINCT patient_id FROM readings ORDER BY patient_id")
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// resolveReadingID finds the full ID from a prefix.
func (d *DB) resolveReadingID(ctx context.Context, idOrPrefix string) (string, error) {
	// If it looks like a full UUID, use it directly
	if len(idOrPrefix) == 36 && strings.Count(idOrPrefix, "-") == 4 {
		return idOrPrefix, nil
	}

	rows, err := d.db.QueryContext(ctx, `SELECT id FROM readings WHERE id LIKE ? || '%'`, idOrPrefix)
	if err != nil {
		return "", fmt.Errorf("resolve reading ID: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan reading ID: %w", err)
		}
		matches = append(matches, id)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("reading %s: %w", idOrPrefix, ErrNotFound)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous prefix %s: matches multiple records", idOrPrefix)
	}

	return matches[0], nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReading(row rowScanner) (*models.Reading, error) {
	var r models.Reading
	var idStr, unit, category, recordedAt, createdAt string

	err := row.Scan(&idStr, &r.PatientID, &recordedAt, &r.Value, &unit,
		&r.FoodNotes, &r.ActivityNotes, &category, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan reading: %w", err)
	}

	r.ID, _ = uuid.Parse(idStr)
	r.Unit = models.Unit(unit)
	r.Category = models.Category(category)
	r.RecordedAt = parseTime(recordedAt)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

func scanReadings(rows *sql.Rows) ([]*models.Reading, error) {
	var readings []*models.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}
