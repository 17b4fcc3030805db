// ABOUTME: Weekly alert detection over a trailing window of abnormal readings.
// ABOUTME: Persists at most one alert per patient and week, then dispatches it.
package clinical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/glucose/internal/logger"
	"github.com/harperreed/glucose/internal/models"
	"github.com/harperreed/glucose/internal/notify"
	"github.com/harperreed/glucose/internal/storage"
)

const (
	DefaultAlertWindow    = 7 * 24 * time.Hour
	DefaultAlertThreshold = 3
)

// AlertStore is the storage the detector needs. InsertAlert must be an atomic
// insert-if-absent on (patient, week start) returning storage.ErrAlertExists
// when the week already has an alert.
type AlertStore interface {
	AbnormalCount(ctx context.Context, patientID string, since time.Time) (int, error)
	AssignedSpecialist(ctx context.Context, patientID string) (string, bool, error)
	FindAlert(ctx context.Context, patientID string, weekStart time.Time) (*models.Alert, error)
	InsertAlert(ctx context.Context, a *models.Alert) error
	UpdateDelivery(ctx context.Context, alertID uuid.UUID, d models.Delivery) error
}

// DetectorConfig tunes the rolling window. Zero values take the defaults.
type DetectorConfig struct {
	// Window is the trailing period counted back from evaluation time.
	Window time.Duration
	// Threshold is the count that must be exceeded to raise an alert.
	Threshold int
	// Location anchors the Monday week start used as the dedup key.
	Location *time.Location
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	if c.Window <= 0 {
		c.Window = DefaultAlertWindow
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultAlertThreshold
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// AlertOutcome reports what an evaluation did.
type AlertOutcome struct {
	Created       bool          `json:"created"`
	Alert         *models.Alert `json:"alert,omitempty"`
	AbnormalCount int           `json:"abnormal_count"`
	WeekStart     time.Time     `json:"week_start"`
}

// Detector decides whether a patient's recent abnormal readings warrant an alert.
type Detector struct {
	store       AlertStore
	dispatchers []notify.Dispatcher
	log         *logger.Logger
	cfg         DetectorConfig
	now         func() time.Time
}

// NewDetector builds a detector. Zero config fields take the defaults; a nil
// log discards output.
func NewDetector(store AlertStore, dispatchers []notify.Dispatcher, log *logger.Logger, cfg DetectorConfig) *Detector {
	if log == nil {
		log = logger.Nop()
	}
	return &Detector{
		store:       store,
		dispatchers: dispatchers,
		log:         log.With("component", "AlertDetector"),
		cfg:         cfg.withDefaults(),
		now:         time.Now,
	}
}

// WithClock replaces the evaluation clock.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// WeekStart returns the Monday of the calendar week containing t in loc, as a
// UTC-midnight date.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	offset := (int(lt.Weekday()) + 6) % 7
	monday := lt.AddDate(0, 0, -offset)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// Evaluate counts the patient's abnormal readings in the trailing window and
// creates at most one alert per week. The window is anchored at evaluation
// time, not at any reading's timestamp.
func (d *Detector) Evaluate(ctx context.Context, patientID string) (*AlertOutcome, error) {
	now := d.now()
	since := now.Add(-d.cfg.Window)
	log := d.log.With("patient_id", patientID)

	count, err := d.store.AbnormalCount(ctx, patientID, since)
	if err != nil {
		return nil, detectionFailed("count abnormal readings", err)
	}

	week := WeekStart(now, d.cfg.Location)
	outcome := &AlertOutcome{AbnormalCount: count, WeekStart: week}
	if count <= d.cfg.Threshold {
		return outcome, nil
	}

	existing, err := d.store.FindAlert(ctx, patientID, week)
	if err != nil {
		return nil, detectionFailed("find alert", err)
	}
	if existing != nil {
		log.Debug("alert already raised this week", "week_start", existing.WeekKey())
		outcome.Alert = existing
		return outcome, nil
	}

	alert := models.NewAlert(patientID, week, count)
	alert.CreatedAt = now
	specialist, ok, err := d.store.AssignedSpecialist(ctx, patientID)
	if err != nil {
		return nil, detectionFailed("fetch assigned specialist", err)
	}
	if ok {
		alert.WithSpecialist(specialist)
	}
	alert.Message = alertMessage(count, d.cfg.Window, alert.WeekKey())
	alert.InitDeliveries(notify.Channels(d.dispatchers))

	if err := d.store.InsertAlert(ctx, alert); err != nil {
		if errors.Is(err, storage.ErrAlertExists) {
			// Lost a race with a concurrent evaluation for the same week.
			log.Debug("alert inserted concurrently", "week_start", alert.WeekKey())
			existing, ferr := d.store.FindAlert(ctx, patientID, week)
			if ferr != nil {
				return nil, detectionFailed("find alert", ferr)
			}
			outcome.Alert = existing
			return outcome, nil
		}
		return nil, detectionFailed("insert alert", err)
	}

	log.Info("alert raised", "alert_id", alert.ID, "week_start", alert.WeekKey(), "abnormal_count", count)
	d.dispatch(ctx, alert, log)

	outcome.Created = true
	outcome.Alert = alert
	return outcome, nil
}

// dispatch hands the alert to each channel once and records every outcome.
// Failures are logged only; the alert stays persisted.
func (d *Detector) dispatch(ctx context.Context, alert *models.Alert, log *logger.Logger) {
	payload := notify.PayloadFromAlert(alert)

	for _, disp := range d.dispatchers {
		for _, res := range disp.Dispatch(ctx, payload) {
			status := models.DeliverySent
			var errText string
			if res.Err != nil {
				status = models.DeliveryFailed
				errText = res.Err.Error()
				log.Warn("alert delivery failed",
					"error", fmt.Errorf("%w: %s to %s: %w", ErrDispatchFailed, res.Channel, res.RecipientID, res.Err),
					"alert_id", alert.ID)
			}

			upd := models.Delivery{
				RecipientID: res.RecipientID,
				Channel:     res.Channel,
				Status:      status,
				Error:       errText,
				UpdatedAt:   d.now(),
			}
			if err := d.store.UpdateDelivery(ctx, alert.ID, upd); err != nil {
				log.Warn("record delivery status", "error", err, "alert_id", alert.ID,
					"recipient_id", res.RecipientID, "channel", res.Channel)
				continue
			}
			for i := range alert.Deliveries {
				dl := &alert.Deliveries[i]
				if dl.RecipientID == res.RecipientID && dl.Channel == res.Channel {
					dl.Status, dl.Error, dl.UpdatedAt = upd.Status, upd.Error, upd.UpdatedAt
				}
			}
		}
	}
}

func alertMessage(count int, window time.Duration, weekKey string) string {
	days := int(window / (24 * time.Hour))
	return fmt.Sprintf("%d abnormal glucose readings in the last %d days (week of %s). "+
		"Please review recent readings and contact your care team.", count, days, weekKey)
}
