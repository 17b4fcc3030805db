// ABOUTME: Tests for the SQLite Repository implementation.
// ABOUTME: Verifies readings, threshold versions, overrides and care team storage.
package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/glucose/internal/models"
)

func TestCreateAndGetReading(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := models.NewReading("p1", 7.8).WithUnit(models.UnitMmolL).WithFood("Pizza, soda").WithActivity("walk")
	r.Category = models.CategoryBorderline
	if err := db.CreateReading(ctx, r); err != nil {
		t.Fatalf("CreateReading failed: %v", err)
	}

	got, err := db.GetReading(ctx, r.ID.String())
	if err != nil {
		t.Fatalf("GetReading failed: %v", err)
	}
	if got.ID != r.ID {
		t.Errorf("ID mismatch: got %v, want %v", got.ID, r.ID)
	}
	if got.Unit != models.UnitMmolL {
		t.Errorf("Unit mismatch: got %s", got.Unit)
	}
	if got.FoodNotes != "Pizza, soda" || got.ActivityNotes != "walk" {
		t.Errorf("Notes mismatch: %q / %q", got.FoodNotes, got.ActivityNotes)
	}
	if !got.RecordedAt.Equal(r.RecordedAt) {
		t.Errorf("RecordedAt mismatch: got %v, want %v", got.RecordedAt, r.RecordedAt)
	}

	// Retrieve by 8-char prefix
	byPrefix, err := db.GetReading(ctx, r.ID.String()[:8])
	if err != nil {
		t.Fatalf("GetReading by prefix failed: %v", err)
	}
	if byPrefix.ID != r.ID {
		t.Errorf("Prefix lookup returned %v", byPrefix.ID)
	}
}

func TestCreateReadingRequiresCategory(t *testing.T) {
	db := setupTestDB(t)

	r := models.NewReading("p1", 100)
	if err := db.CreateReading(context.Background(), r); err == nil {
		t.Error("Expected error for uncategorized reading")
	}
}

func TestGetReadingNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetReading(context.Background(), "deadbeef")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListReadingsOrderAndLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	oldest := addReading(t, db, "p1", 100, models.CategoryNormal, now.Add(-3*time.Hour))
	addReading(t, db, "p1", 150, models.CategoryBorderline, now.Add(-2*time.Hour))
	newest := addReading(t, db, "p1", 200, models.CategoryAbnormal, now.Add(-1*time.Hour))
	addReading(t, db, "p2", 90, models.CategoryNormal, now)

	all, err := db.ListReadings(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("ListReadings failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 readings, got %d", len(all))
	}
	if all[0].ID != newest.ID || all[2].ID != oldest.ID {
		t.Error("Expected most recent first")
	}

	limited, err := db.ListReadings(ctx, "p1", 2)
	if err != nil {
		t.Fatalf("ListReadings with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 readings with limit, got %d", len(limited))
	}
}

func TestAbnormalCountWindow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	addReading(t, db, "p1", 250, models.CategoryAbnormal, now.Add(-8*24*time.Hour))
	addReading(t, db, "p1", 250, models.CategoryAbnormal, now.Add(-6*24*time.Hour))
	addReading(t, db, "p1", 250, models.CategoryAbnormal, now.Add(-1*time.Hour))
	addReading(t, db, "p1", 120, models.CategoryNormal, now.Add(-1*time.Hour))
	addReading(t, db, "p2", 250, models.CategoryAbnormal, now.Add(-1*time.Hour))

	since := now.Add(-7 * 24 * time.Hour)
	n, err := db.AbnormalCount(ctx, "p1", since)
	if err != nil {
		t.Fatalf("AbnormalCount failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 abnormal readings in window, got %d", n)
	}

	// Boundary is inclusive.
	edge := addReading(t, db, "p1", 250, models.CategoryAbnormal, since)
	n, _ = db.AbnormalCount(ctx, "p1", since)
	if n != 3 {
		t.Errorf("Expected reading at window start (%v) to count, got %d", edge.RecordedAt, n)
	}

	history, err := db.AbnormalReadings(ctx, "p1")
	if err != nil {
		t.Fatalf("AbnormalReadings failed: %v", err)
	}
	if len(history) != 4 {
		t.Errorf("Expected 4 abnormal readings in history, got %d", len(history))
	}
}

func TestUpdateReadingCategory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := addReading(t, db, "p1", 175, models.CategoryBorderline, time.Now())
	if err := db.UpdateReadingCategory(ctx, r.ID, models.CategoryAbnormal); err != nil {
		t.Fatalf("UpdateReadingCategory failed: %v", err)
	}
	got, _ := db.GetReading(ctx, r.ID.String())
	if got.Category != models.CategoryAbnormal {
		t.Errorf("Expected abnormal, got %s", got.Category)
	}

	missing := models.NewReading("p1", 1)
	if err := db.UpdateReadingCategory(ctx, missing.ID, models.CategoryNormal); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListPatients(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	addReading(t, db, "p2", 100, models.CategoryNormal, now)
	addReading(t, db, "p1", 100, models.CategoryNormal, now)
	addReading(t, db, "p1", 100, models.CategoryNormal, now)

	ids, err := db.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p2" {
		t.Errorf("Unexpected patients: %v", ids)
	}
}

func TestThresholdVersions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	none, err := db.SystemThresholds(ctx, base)
	if err != nil {
		t.Fatalf("SystemThresholds failed: %v", err)
	}
	if none != nil {
		t.Fatal("Expected nil with no versions")
	}

	v1 := defaultThresholds().WithEffectiveAt(base)
	if err := db.InsertThresholdSet(ctx, v1); err != nil {
		t.Fatalf("InsertThresholdSet failed: %v", err)
	}
	v2 := models.NewThresholdSet(
		models.Range{Low: 80, High: 130},
		models.Range{Low: 131, High: 170},
		models.Range{Low: 171, High: 600},
	).WithEffectiveAt(base.Add(30 * 24 * time.Hour))
	if err := db.InsertThresholdSet(ctx, v2); err != nil {
		t.Fatalf("InsertThresholdSet failed: %v", err)
	}

	if v1.Version != 1 || v2.Version != 2 {
		t.Errorf("Expected versions 1 and 2, got %d and %d", v1.Version, v2.Version)
	}

	tests := []struct {
		name    string
		asOf    time.Time
		version int
	}{
		{"before any version", base.Add(-time.Hour), 0},
		{"exactly at v1", base, 1},
		{"between versions", base.Add(10 * 24 * time.Hour), 1},
		{"after v2", base.Add(60 * 24 * time.Hour), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.SystemThresholds(ctx, tt.asOf)
			if err != nil {
				t.Fatalf("SystemThresholds failed: %v", err)
			}
			if tt.version == 0 {
				if got != nil {
					t.Errorf("Expected nil, got version %d", got.Version)
				}
				return
			}
			if got == nil || got.Version != tt.version {
				t.Fatalf("Expected version %d, got %+v", tt.version, got)
			}
		})
	}

	all, err := db.ListThresholdSets(ctx)
	if err != nil {
		t.Fatalf("ListThresholdSets failed: %v", err)
	}
	if len(all) != 2 || all[0].Version != 2 {
		t.Errorf("Expected newest first, got %+v", all)
	}
	if all[1].Normal != v1.Normal || all[1].Abnormal != v1.Abnormal {
		t.Errorf("Stored ranges differ: %+v", all[1])
	}
}

func TestInsertThresholdSetRejectsInvalid(t *testing.T) {
	db := setupTestDB(t)

	bad := models.NewThresholdSet(models.Range{Low: 140, High: 70}, models.Range{}, models.Range{})
	if err := db.InsertThresholdSet(context.Background(), bad); err == nil {
		t.Error("Expected validation error")
	}
}

func TestPatientOverrideLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	got, err := db.PatientOverride(ctx, "p1")
	if err != nil || got != nil {
		t.Fatalf("Expected no override, got %+v, %v", got, err)
	}

	o := &models.PatientOverride{PatientID: "p1", Normal: models.Range{Low: 80, High: 160}}
	if err := db.SetPatientOverride(ctx, o); err != nil {
		t.Fatalf("SetPatientOverride failed: %v", err)
	}
	o.Normal = models.Range{Low: 90, High: 150}
	if err := db.SetPatientOverride(ctx, o); err != nil {
		t.Fatalf("SetPatientOverride (replace) failed: %v", err)
	}

	got, err = db.PatientOverride(ctx, "p1")
	if err != nil {
		t.Fatalf("PatientOverride failed: %v", err)
	}
	if got == nil || got.Normal != (models.Range{Low: 90, High: 150}) {
		t.Errorf("Unexpected override: %+v", got)
	}

	if err := db.ClearPatientOverride(ctx, "p1"); err != nil {
		t.Fatalf("ClearPatientOverride failed: %v", err)
	}
	got, _ = db.PatientOverride(ctx, "p1")
	if got != nil {
		t.Error("Expected override to be cleared")
	}
}

func TestCareTeam(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.AssignedSpecialist(ctx, "p1"); err != nil || ok {
		t.Fatalf("Expected no specialist, got ok=%v err=%v", ok, err)
	}

	if err := db.AssignSpecialist(ctx, "p1", "s1"); err != nil {
		t.Fatalf("AssignSpecialist failed: %v", err)
	}
	if err := db.AssignSpecialist(ctx, "p1", "s2"); err != nil {
		t.Fatalf("AssignSpecialist (reassign) failed: %v", err)
	}
	id, ok, err := db.AssignedSpecialist(ctx, "p1")
	if err != nil || !ok || id != "s2" {
		t.Errorf("Expected s2, got %q ok=%v err=%v", id, ok, err)
	}

	if err := db.SetContactEmail(ctx, "s2", "doc@example.com"); err != nil {
		t.Fatalf("SetContactEmail failed: %v", err)
	}
	email, ok, err := db.ContactEmail(ctx, "s2")
	if err != nil || !ok || email != "doc@example.com" {
		t.Errorf("Unexpected contact: %q ok=%v err=%v", email, ok, err)
	}
	if _, ok, _ := db.ContactEmail(ctx, "nobody"); ok {
		t.Error("Expected no contact for unknown id")
	}
}
