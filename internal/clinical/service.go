// ABOUTME: Clinical service tying categorization, storage, alerts and mining together.
// ABOUTME: Entry point for the CLI and MCP server.
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
	"golang.org/x/sync/errgroup"
)

// Store is the full storage surface the service uses.
type Store interface {
	ThresholdSource
	AlertStore
	CreateReading(ctx context.Context, r *models.Reading) error
	ListReadings(ctx context.Context, patientID string, limit int) ([]*models.Reading, error)
	AbnormalReadings(ctx context.Context, patientID string) ([]*models.Reading, error)
	UpdateReadingCategory(ctx context.Context, id uuid.UUID, c models.Category) error
	ListPatients(ctx context.Context) ([]string, error)
	ReplaceSuggestions(ctx context.Context, patientID string, s []models.Suggestion) error
}

// Options configures a Service.
type Options struct {
	Detector DetectorConfig
	Miner    MinerOptions
	Now      func() time.Time
}

// Service is the entry point for reading intake, alert evaluation and
// suggestion generation.
type Service struct {
	store    Store
	resolver *Resolver
	detector *Detector
	miner    MinerOptions
	log      *logger.Logger
	now      func() time.Time
}

// NewService wires a service over store. The miner inherits the detector's
// location and the service clock unless set.
func NewService(store Store, dispatchers []notify.Dispatcher, log *logger.Logger, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Miner.Location == nil {
		opts.Miner.Location = opts.Detector.Location
	}
	if opts.Miner.Now == nil {
		opts.Miner.Now = opts.Now
	}
	return &Service{
		store:    store,
		resolver: NewResolver(store),
		detector: NewDetector(store, dispatchers, log, opts.Detector).WithClock(opts.Now),
		miner:    opts.Miner,
		log:      log,
		now:      opts.Now,
	}
}

// CategorizeReading labels a value for patientID using the thresholds effective at.
// It does not store anything.
func (s *Service) CategorizeReading(ctx context.Context, patientID string, value float64, unit models.Unit, at time.Time) (models.Category, error) {
	if err := ValidateValue(value); err != nil {
		return "", err
	}
	t, err := s.resolver.Resolve(ctx, patientID, at)
	if err != nil {
		return "", err
	}
	return Categorize(models.ToMgDL(value, unit), t)
}

// RecordResult describes what RecordReading did.
type RecordResult struct {
	Reading *models.Reading `json:"reading"`
	// Degraded is set when the value fell between ranges and was stored as borderline.
	Degraded bool          `json:"degraded,omitempty"`
	Alert    *AlertOutcome `json:"alert,omitempty"`
	// AlertErr is a failed follow-up evaluation. The reading is stored regardless.
	AlertErr error `json:"-"`
}

// RecordReading categorizes r, stores it, and re-evaluates alerts when it is abnormal.
func (s *Service) RecordReading(ctx context.Context, r *models.Reading) (*RecordResult, error) {
	if r.PatientID == "" {
		return nil, errors.New("record reading: patient id is required")
	}
	if err := ValidateValue(r.Value); err != nil {
		return nil, fmt.Errorf("record reading: %w", err)
	}
	if r.Unit == "" {
		r.Unit = models.UnitMgDL
	}

	res := &RecordResult{Reading: r}
	cat, err := s.CategorizeReading(ctx, r.PatientID, r.Value, r.Unit, r.RecordedAt)
	switch {
	case errors.Is(err, ErrUncategorizableValue):
		s.log.Warn("reading outside all threshold ranges, storing as borderline",
			"patient_id", r.PatientID, "reading_id", r.ID, "value_mgdl", r.ValueMgDL(), "error", err)
		cat = models.CategoryBorderline
		res.Degraded = true
	case err != nil:
		return nil, fmt.Errorf("categorize reading: %w", err)
	}
	r.Category = cat

	if err := s.store.CreateReading(ctx, r); err != nil {
		return nil, fmt.Errorf("record reading: %w", err)
	}

	if r.IsAbnormal() {
		outcome, err := s.detector.Evaluate(ctx, r.PatientID)
		if err != nil {
			s.log.Error("alert evaluation after abnormal reading", "patient_id", r.PatientID, "error", err)
			res.AlertErr = err
		}
		res.Alert = outcome
	}
	return res, nil
}

// EvaluateAlert runs the weekly alert check for one patient.
func (s *Service) EvaluateAlert(ctx context.Context, patientID string) (*AlertOutcome, error) {
	return s.detector.Evaluate(ctx, patientID)
}

// MineSuggestions mines the patient's abnormal history without storing the result.
func (s *Service) MineSuggestions(ctx context.Context, patientID string) ([]models.Suggestion, error) {
	readings, err := s.store.AbnormalReadings(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load abnormal readings: %w", err)
	}
	return Mine(readings, s.miner), nil
}

// GenerateSuggestions mines and replaces the patient's stored suggestions.
// Running it twice over the same history yields the same set.
func (s *Service) GenerateSuggestions(ctx context.Context, patientID string) ([]models.Suggestion, error) {
	suggestions, err := s.MineSuggestions(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceSuggestions(ctx, patientID, suggestions); err != nil {
		return nil, fmt.Errorf("store suggestions: %w", err)
	}
	s.log.Debug("suggestions generated", "patient_id", patientID, "count", len(suggestions))
	return suggestions, nil
}

// ReapplyThresholds recategorizes every stored reading for patientID against
// the thresholds effective at each reading's time, and returns how many changed.
func (s *Service) ReapplyThresholds(ctx context.Context, patientID string) (int, error) {
	readings, err := s.store.ListReadings(ctx, patientID, 0)
	if err != nil {
		return 0, fmt.Errorf("load readings: %w", err)
	}

	changed := 0
	for _, r := range readings {
		cat, err := s.CategorizeReading(ctx, patientID, r.Value, r.Unit, r.RecordedAt)
		switch {
		case errors.Is(err, ErrUncategorizableValue):
			cat = models.CategoryBorderline
		case errors.Is(err, ErrNotConfigured):
			// Predates the first threshold version; keep what it has.
			continue
		case errors.Is(err, ErrInvalidValue):
			s.log.Warn("skipping stored reading with invalid value", "reading_id", r.ID, "value", r.Value)
			continue
		case err != nil:
			return changed, fmt.Errorf("recategorize %s: %w", r.ID, err)
		}
		if cat == r.Category {
			continue
		}
		if err := s.store.UpdateReadingCategory(ctx, r.ID, cat); err != nil {
			return changed, fmt.Errorf("recategorize %s: %w", r.ID, err)
		}
		s.log.Info("reading recategorized", "reading_id", r.ID, "from", r.Category, "to", cat)
		changed++
	}
	return changed, nil
}

// PatientOutcome pairs a patient with its evaluation result.
type PatientOutcome struct {
	PatientID string        `json:"patient_id"`
	Outcome   *AlertOutcome `json:"outcome,omitempty"`
	Err       error         `json:"-"`
}

// EvaluateAll evaluates every patient that has readings, at most concurrency
// at a time. Per-patient failures are reported in the outcomes; the returned
// error is only for failing to list patients or a cancelled context.
func (s *Service) EvaluateAll(ctx context.Context, concurrency int) ([]PatientOutcome, error) {
	patients, err := s.store.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	out := make([]PatientOutcome, len(patients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, p := range patients {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := s.detector.Evaluate(gctx, p)
			out[i] = PatientOutcome{PatientID: p, Outcome: outcome, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
