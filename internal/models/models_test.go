// ABOUTME: Unit tests for reading, threshold, alert and suggestion models.
// ABOUTME: Covers unit conversion, range checks, recipients and time buckets.
package models

import (
	"math"
	"testing"
	"time"
)

func TestNewReading(t *testing.T) {
	r := NewReading("p1", 142)

	if r.ID.String() == "" {
		t.Error("Expected non-empty ID")
	}
	if r.Unit != UnitMgDL {
		t.Errorf("Expected default unit mg/dL, got %s", r.Unit)
	}
	if r.Category != "" {
		t.Errorf("Expected no category before categorization, got %s", r.Category)
	}
	if time.Since(r.RecordedAt) > time.Second {
		t.Error("RecordedAt should be approximately now")
	}
}

func TestReadingValueMgDL(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		unit     Unit
		expected float64
	}{
		{"mg/dL passthrough", 120, UnitMgDL, 120},
		{"mmol/L 5.5", 5.5, UnitMmolL, 99.1},
		{"mmol/L 10", 10, UnitMmolL, 180.18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReading("p1", tt.value).WithUnit(tt.unit)
			got := r.ValueMgDL()
			if math.Abs(got-tt.expected) > 0.1 {
				t.Errorf("ValueMgDL() = %f, want approximately %f", got, tt.expected)
			}
		})
	}
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		input string
		want  Unit
		ok    bool
	}{
		{"", UnitMgDL, true},
		{"mg/dL", UnitMgDL, true},
		{"MMOL/L", UnitMmolL, true},
		{"mmol", UnitMmolL, true},
		{"grams", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseUnit(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseUnit(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRangeContainsIsClosed(t *testing.T) {
	r := Range{Low: 70, High: 140}

	for _, v := range []float64{70, 100, 140} {
		if !r.Contains(v) {
			t.Errorf("Expected %v inside %s", v, r)
		}
	}
	for _, v := range []float64{69.99, 140.01} {
		if r.Contains(v) {
			t.Errorf("Expected %v outside %s", v, r)
		}
	}
}

func TestThresholdSetValidate(t *testing.T) {
	ok := NewThresholdSet(Range{70, 140}, Range{141, 180}, Range{181, 600})
	if err := ok.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	bad := NewThresholdSet(Range{140, 70}, Range{141, 180}, Range{181, 600})
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for inverted normal range")
	}
}

func TestAlertRecipients(t *testing.T) {
	week := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	a := NewAlert("p1", week, 4)
	if got := a.Recipients(); len(got) != 1 || got[0].Role != RolePatient {
		t.Errorf("Expected only the patient, got %+v", got)
	}

	a.WithSpecialist("s1")
	got := a.Recipients()
	if len(got) != 2 {
		t.Fatalf("Expected 2 recipients, got %d", len(got))
	}
	if got[1].ID != "s1" || got[1].Role != RoleSpecialist {
		t.Errorf("Unexpected specialist recipient: %+v", got[1])
	}

	if a.WeekKey() != "2025-03-03" {
		t.Errorf("WeekKey() = %s, want 2025-03-03", a.WeekKey())
	}
}

func TestAlertRecipientsSelfSpecialist(t *testing.T) {
	a := NewAlert("p1", time.Now(), 4).WithSpecialist("p1")
	got := a.Recipients()
	if len(got) != 1 || got[0].ID != "p1" || got[0].Role != RolePatient {
		t.Fatalf("Expected the patient once, got %+v", got)
	}

	a.InitDeliveries([]Channel{ChannelEmail, ChannelRealtime})
	seen := make(map[string]bool)
	for _, d := range a.Deliveries {
		key := d.RecipientID + "/" + string(d.Channel)
		if seen[key] {
			t.Errorf("Duplicate delivery %s", key)
		}
		seen[key] = true
	}
	if len(a.Deliveries) != 2 {
		t.Errorf("Expected 2 deliveries, got %d", len(a.Deliveries))
	}
}

func TestAlertInitDeliveries(t *testing.T) {
	a := NewAlert("p1", time.Now(), 5).WithSpecialist("s1")
	a.InitDeliveries([]Channel{ChannelEmail, ChannelRealtime})

	if len(a.Deliveries) != 4 {
		t.Fatalf("Expected 4 deliveries, got %d", len(a.Deliveries))
	}
	for _, d := range a.Deliveries {
		if d.Status != DeliveryPending {
			t.Errorf("Expected pending, got %s for %s/%s", d.Status, d.RecipientID, d.Channel)
		}
	}
}

func TestBucketForHour(t *testing.T) {
	tests := []struct {
		hour int
		want TimeBucket
	}{
		{0, BucketEvening},
		{5, BucketEvening},
		{6, BucketMorning},
		{10, BucketMorning},
		{11, BucketLunch},
		{14, BucketLunch},
		{15, BucketAfternoon},
		{18, BucketAfternoon},
		{19, BucketEvening},
		{23, BucketEvening},
	}

	for _, tt := range tests {
		if got := BucketForHour(tt.hour); got != tt.want {
			t.Errorf("BucketForHour(%d) = %s, want %s", tt.hour, got, tt.want)
		}
	}
}

func TestCategorySeverityOrder(t *testing.T) {
	if !(CategoryAbnormal.Severity() > CategoryBorderline.Severity() &&
		CategoryBorderline.Severity() > CategoryNormal.Severity()) {
		t.Error("Expected abnormal > borderline > normal")
	}
}
