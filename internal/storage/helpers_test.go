// ABOUTME: Shared test helpers for storage tests.
// ABOUTME: Provides setupTestDB and fixtures for readings and thresholds.
package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/glucose/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "glucose.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func addReading(t *testing.T, db *DB, patientID string, value float64, c models.Category, at time.Time) *models.Reading {
	t.Helper()

	r := models.NewReading(patientID, value).WithRecordedAt(at)
	r.Category = c
	if err := db.CreateReading(context.Background(), r); err != nil {
		t.Fatalf("CreateReading failed: %v", err)
	}
	return r
}

func defaultThresholds() *models.ThresholdSet {
	return models.NewThresholdSet(
		models.Range{Low: 70, High: 140},
		models.Range{Low: 141, High: 180},
		models.Range{Low: 181, High: 600},
	)
}
