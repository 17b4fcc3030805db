// ABOUTME: Suggestion model produced by trigger mining.
// ABOUTME: Includes time-of-day buckets and the two message severities.
package models

import "time"

// TimeBucket is a coarse time-of-day slot.
type TimeBucket string

const (
	BucketMorning   TimeBucket = "morning"
	BucketLunch     TimeBucket = "lunch"
	BucketAfternoon TimeBucket = "afternoon"
	BucketEvening   TimeBucket = "evening"
)

// AllBuckets is the enumeration order, also used to break ties.
var AllBuckets = []TimeBucket{BucketMorning, BucketLunch, BucketAfternoon, BucketEvening}

// BucketForHour maps a local hour to its bucket:
// [6,11) morning, [11,15) lunch, [15,19) afternoon, otherwise evening.
func BucketForHour(hour int) TimeBucket {
	switch {
	case hour >= 6 && hour < 11:
		return BucketMorning
	case hour >= 11 && hour < 15:
		return BucketLunch
	case hour >= 15 && hour < 19:
		return BucketAfternoon
	default:
		return BucketEvening
	}
}

// SuggestionSeverity selects the message tier.
type SuggestionSeverity string

const (
	SeverityStrong   SuggestionSeverity = "strong"
	SeverityModerate SuggestionSeverity = "moderate"
)

// Suggestion is an actionable trigger correlated with abnormal readings.
type Suggestion struct {
	PatientID   string             `json:"patient_id" yaml:"patient_id"`
	Trigger     string             `json:"trigger" yaml:"trigger"`
	Occurrences int                `json:"occurrences" yaml:"occurrences"`
	Percent     float64            `json:"percent" yaml:"percent"`
	TimeOfDay   TimeBucket         `json:"time_of_day" yaml:"time_of_day"`
	Severity    SuggestionSeverity `json:"severity" yaml:"severity"`
	Message     string             `json:"message" yaml:"message"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
}
