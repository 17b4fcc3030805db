// ABOUTME: Mines abnormal readings for recurring food and activity triggers.
// ABOUTME: Produces ranked suggestions with a dominant time of day.
package clinical

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/glucose/internal/models"
)

const (
	DefaultMinOccurrences = 3
	DefaultMinPercent     = 0.4
	DefaultStrongPercent  = 0.7
)

// MinerOptions tunes trigger mining. Zero values take the defaults.
type MinerOptions struct {
	MinOccurrences int
	// MinPercent is a fraction in (0, 1].
	MinPercent float64
	// StrongPercent is the fraction at or above which the message recommends avoidance.
	StrongPercent float64
	// Location is used for time-of-day buckets.
	Location *time.Location
	Now      func() time.Time
}

// DefaultMinerOptions returns the thresholds applied when options are left zero.
func DefaultMinerOptions() MinerOptions {
	return MinerOptions{
		MinOccurrences: DefaultMinOccurrences,
		MinPercent:     DefaultMinPercent,
		StrongPercent:  DefaultStrongPercent,
	}
}

func (o MinerOptions) withDefaults() MinerOptions {
	def := DefaultMinerOptions()
	if o.MinOccurrences <= 0 {
		o.MinOccurrences = def.MinOccurrences
	}
	if o.MinPercent <= 0 {
		o.MinPercent = def.MinPercent
	}
	if o.StrongPercent <= 0 {
		o.StrongPercent = def.StrongPercent
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// NormalizeTokens splits comma-separated notes, trims and lower-cases each
// token, and drops empties. Tokens are returned once each, in first-seen order.
func NormalizeTokens(notes ...string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, n := range notes {
		for _, raw := range strings.Split(n, ",") {
			tok := strings.ToLower(strings.TrimSpace(raw))
			if tok == "" || seen[tok] {
				continue
			}
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

type tokenStats struct {
	readings int
	buckets  map[models.TimeBucket]int
}

// Mine finds food and activity tokens that recur across a patient's abnormal
// readings. Non-abnormal readings in the input are ignored. The result is
// sorted by percentage, highest first. Mine does no I/O.
func Mine(readings []*models.Reading, opts MinerOptions) []models.Suggestion {
	opts = opts.withDefaults()

	var abnormal []*models.Reading
	for _, r := range readings {
		if r != nil && r.IsAbnormal() {
			abnormal = append(abnormal, r)
		}
	}
	if len(abnormal) < opts.MinOccurrences {
		return nil
	}

	stats := make(map[string]*tokenStats)
	for _, r := range abnormal {
		bucket := models.BucketForHour(r.RecordedAt.In(opts.Location).Hour())
		for _, tok := range NormalizeTokens(r.FoodNotes, r.ActivityNotes) {
			st, ok := stats[tok]
			if !ok {
				st = &tokenStats{buckets: make(map[models.TimeBucket]int)}
				stats[tok] = st
			}
			st.readings++
			st.buckets[bucket]++
		}
	}

	total := len(abnormal)
	generatedAt := opts.Now()
	var out []models.Suggestion
	for tok, st := range stats {
		fraction := float64(st.readings) / float64(total)
		if st.readings < opts.MinOccurrences || fraction < opts.MinPercent {
			continue
		}

		s := models.Suggestion{
			PatientID:   abnormal[0].PatientID,
			Trigger:     tok,
			Occurrences: st.readings,
			Percent:     float64(st.readings) * 100 / float64(total),
			TimeOfDay:   dominantBucket(st.buckets),
			GeneratedAt: generatedAt,
		}
		if fraction >= opts.StrongPercent {
			s.Severity = models.SeverityStrong
		} else {
			s.Severity = models.SeverityModerate
		}
		s.Message = suggestionMessage(s)
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent > out[j].Percent
		}
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		return out[i].Trigger < out[j].Trigger
	})
	return out
}

// dominantBucket picks the most frequent bucket; ties go to the earlier bucket
// in enumeration order.
func dominantBucket(counts map[models.TimeBucket]int) models.TimeBucket {
	best := models.AllBuckets[0]
	bestN := -1
	for _, b := range models.AllBuckets {
		if counts[b] > bestN {
			best, bestN = b, counts[b]
		}
	}
	return best
}

func suggestionMessage(s models.Suggestion) string {
	lead := fmt.Sprintf("%q appears in %.0f%% of your abnormal readings (%d times), mostly in the %s.",
		s.Trigger, s.Percent, s.Occurrences, s.TimeOfDay)
	if s.Severity == models.SeverityStrong {
		return lead + " Consider avoiding it and discuss it with your specialist."
	}
	return lead + " Try smaller portions or moving it to a different time of day."
}
