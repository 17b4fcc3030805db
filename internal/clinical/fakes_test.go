// ABOUTME: In-memory store and dispatcher doubles for clinical tests.
// ABOUTME: The store enforces one alert per patient and week like the SQLite schema.
package clinical

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/glucose/internal/models"
	"github.com/harperreed/glucose/internal/notify"
	"github.com/harperreed/glucose/internal/storage"
)

type memStore struct {
	mu          sync.Mutex
	readings    []*models.Reading
	system      []*models.ThresholdSet
	overrides   map[string]*models.PatientOverride
	specialists map[string]string
	alerts      map[string]*models.Alert
	suggestions map[string][]models.Suggestion

	// failOn makes the named method return errStoreDown.
	failOn      map[string]bool
	insertCalls int
}

var errStoreDown = errors.New("store unavailable")

func newMemStore() *memStore {
	return &memStore{
		overrides:   make(map[string]*models.PatientOverride),
		specialists: make(map[string]string),
		alerts:      make(map[string]*models.Alert),
		suggestions: make(map[string][]models.Suggestion),
		failOn:      make(map[string]bool),
	}
}

func alertKey(patientID string, week time.Time) string {
	return patientID + "|" + week.Format(models.WeekKeyLayout)
}

func (m *memStore) fail(method string) error {
	if m.failOn[method] {
		return errStoreDown
	}
	return nil
}

func (m *memStore) SystemThresholds(_ context.Context, asOf time.Time) (*models.ThresholdSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SystemThresholds"); err != nil {
		return nil, err
	}
	var best *models.ThresholdSet
	for _, t := range m.system {
		if t.EffectiveAt.After(asOf) {
			continue
		}
		if best == nil || t.EffectiveAt.After(best.EffectiveAt) ||
			(t.EffectiveAt.Equal(best.EffectiveAt) && t.Version > best.Version) {
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (m *memStore) PatientOverride(_ context.Context, patientID string) (*models.PatientOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("PatientOverride"); err != nil {
		return nil, err
	}
	return m.overrides[patientID], nil
}

func (m *memStore) addThresholds(t *models.ThresholdSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.Version = len(m.system) + 1
	m.system = append(m.system, t)
}

func (m *memStore) CreateReading(_ context.Context, r *models.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateReading"); err != nil {
		return err
	}
	cp := *r
	m.readings = append(m.readings, &cp)
	return nil
}

func (m *memStore) ListReadings(_ context.Context, patientID string, limit int) ([]*models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Reading
	for _, r := range m.readings {
		if r.PatientID == patientID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) AbnormalReadings(_ context.Context, patientID string) ([]*models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AbnormalReadings"); err != nil {
		return nil, err
	}
	var out []*models.Reading
	for _, r := range m.readings {
		if r.PatientID == patientID && r.IsAbnormal() {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (m *memStore) AbnormalCount(_ context.Context, patientID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AbnormalCount"); err != nil {
		return 0, err
	}
	n := 0
	for _, r := range m.readings {
		if r.PatientID == patientID && r.IsAbnormal() && !r.RecordedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpdateReadingCategory(_ context.Context, id uuid.UUID, c models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.readings {
		if r.ID == id {
			r.Category = c
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) ListPatients(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, r := range m.readings {
		if !seen[r.PatientID] {
			seen[r.PatientID] = true
			out = append(out, r.PatientID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) AssignedSpecialist(_ context.Context, patientID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AssignedSpecialist"); err != nil {
		return "", false, err
	}
	s, ok := m.specialists[patientID]
	return s, ok, nil
}

func (m *memStore) FindAlert(_ context.Context, patientID string, weekStart time.Time) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindAlert"); err != nil {
		return nil, err
	}
	a, ok := m.alerts[alertKey(patientID, weekStart)]
	if !ok {
		return nil, nil
	}
	cp := *a
	cp.Deliveries = append([]models.Delivery(nil), a.Deliveries...)
	return &cp, nil
}

func (m *memStore) InsertAlert(_ context.Context, a *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if err := m.fail("InsertAlert"); err != nil {
		return err
	}
	key := alertKey(a.PatientID, a.WeekStart)
	if _, ok := m.alerts[key]; ok {
		return storage.ErrAlertExists
	}
	cp := *a
	cp.Deliveries = append([]models.Delivery(nil), a.Deliveries...)
	m.alerts[key] = &cp
	return nil
}

func (m *memStore) UpdateDelivery(_ context.Context, alertID uuid.UUID, d models.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID != alertID {
			continue
		}
		for i := range a.Deliveries {
			dl := &a.Deliveries[i]
			if dl.RecipientID == d.RecipientID && dl.Channel == d.Channel {
				dl.Status, dl.Error, dl.UpdatedAt = d.Status, d.Error, d.UpdatedAt
				return nil
			}
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) ReplaceSuggestions(_ context.Context, patientID string, s []models.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suggestions[patientID] = append([]models.Suggestion(nil), s...)
	return nil
}

func (m *memStore) alertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

func (m *memStore) onlyAlert() *models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		return a
	}
	return nil
}

var _ Store = (*memStore)(nil)

// recordingDispatcher records every payload and fails recipients listed in failFor.
type recordingDispatcher struct {
	mu       sync.Mutex
	channel  models.Channel
	payloads []notify.Payload
	failFor  map[string]error
}

func newRecordingDispatcher(ch models.Channel) *recordingDispatcher {
	return &recordingDispatcher{channel: ch, failFor: make(map[string]error)}
}

func (d *recordingDispatcher) Channel() models.Channel { return d.channel }

func (d *recordingDispatcher) Dispatch(_ context.Context, p notify.Payload) []notify.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, p)
	var out []notify.Result
	for _, r := range p.Recipients {
		out = append(out, notify.Result{RecipientID: r.ID, Channel: d.channel, Err: d.failFor[r.ID]})
	}
	return out
}

func (d *recordingDispatcher) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.payloads)
}

func standardThresholds() *models.ThresholdSet {
	return models.NewThresholdSet(
		models.Range{Low: 70, High: 140},
		models.Range{Low: 141, High: 180},
		models.Range{Low: 181, High: 600},
	).WithEffectiveAt(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
}

func abnormalAt(patientID string, at time.Time, food string) *models.Reading {
	r := models.NewReading(patientID, 250).WithRecordedAt(at).WithFood(food)
	r.Category = models.CategoryAbnormal
	return r
}
