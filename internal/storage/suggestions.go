// ABOUTME: Suggestion storage.
// ABOUTME: Each mining run supersedes the patient's previous suggestion set.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/glucose/internal/models"
)

// ReplaceSuggestions atomically swaps a patient's suggestions for a new set.
func (d *DB) ReplaceSuggestions(ctx context.Context, patientID string, suggestions []models.Suggestion) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		return replaceSuggestions(ctx, tx, patientID, suggestions)
	})
}

func replaceSuggestions(ctx context.Context, ex execer, patientID string, suggestions []models.Suggestion) error {
	if _, err := ex.ExecContext(ctx, "DELETE FROM suggestions WHERE patient_id = ?", patientID); err != nil {
		return fmt.Errorf("clear suggestions: %w", err)
	}
	for _, s := range suggestions {
		_, err := ex.ExecContext(ctx, `
			INSERT INTO suggestions (patient_id, trigger_token, occurrences, percent, time_of_day, severity, message, generated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			patientID, s.Trigger, s.Occurrences, s.Percent,
			string(s.TimeOfDay), string(s.Severity), s.Message, formatTime(s.GeneratedAt),
		)
		if err != nil {
			return fmt.Errorf("insert suggestion %q: %w", s.Trigger, err)
		}
	}
	return nil
}

// ListSuggestions returns the stored suggestions, highest percentage first.
func (d *DB) ListSuggestions(ctx context.Context, patientID string) ([]models.Suggestion, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT patient_id, trigger_token, occurrences, percent, time_of_day, severity, message, generated_at
		FROM suggestions
		WHERE patient_id = ?
		ORDER BY percent DESC, occurrences DESC, trigger_token ASC`,
		patientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var out []models.Suggestion
	for rows.Next() {
		var s models.Suggestion
		var bucket, severity, generatedAt string
		if err := rows.Scan(&s.PatientID, &s.Trigger, &s.Occurrences, &s.Percent, &bucket, &severity, &s.Message, &generatedAt); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		s.TimeOfDay = models.TimeBucket(bucket)
		s.Severity = models.SuggestionSeverity(severity)
		s.GeneratedAt = parseTime(generatedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}
