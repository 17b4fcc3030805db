// ABOUTME: Weekly abnormal-reading alert and per-recipient delivery tracking.
// ABOUTME: One alert may exist per patient and week start.
package models

import (
	"time"

	"github.com/google/uuid"
)

// WeekKeyLayout formats an alert's week start as an ISO date.
const WeekKeyLayout = "2006-01-02"

// Role identifies why a recipient receives an alert.
type Role string

const (
	RolePatient    Role = "patient"
	RoleSpecialist Role = "specialist"
)

// Channel is a delivery transport.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelRealtime Channel = "realtime"
)

// DeliveryStatus tracks one (recipient, channel) delivery.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Recipient is an intended receiver of an alert.
type Recipient struct {
	ID   string `json:"id" yaml:"id"`
	Role Role   `json:"role" yaml:"role"`
}

// Delivery is the outcome of sending an alert to one recipient over one channel.
type Delivery struct {
	RecipientID string         `json:"recipient_id" yaml:"recipient_id"`
	Role        Role           `json:"role" yaml:"role"`
	Channel     Channel        `json:"channel" yaml:"channel"`
	Status      DeliveryStatus `json:"status" yaml:"status"`
	Error       string         `json:"error,omitempty" yaml:"error,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at" yaml:"updated_at"`
}

// Alert records that a patient crossed the abnormal-reading threshold in a week.
type Alert struct {
	ID            uuid.UUID  `json:"id" yaml:"id"`
	PatientID     string     `json:"patient_id" yaml:"patient_id"`
	SpecialistID  *string    `json:"specialist_id,omitempty" yaml:"specialist_id,omitempty"`
	WeekStart     time.Time  `json:"week_start" yaml:"week_start"`
	AbnormalCount int        `json:"abnormal_count" yaml:"abnormal_count"`
	Message       string     `json:"message" yaml:"message"`
	Deliveries    []Delivery `json:"deliveries" yaml:"deliveries"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
}

// NewAlert creates an alert for patientID keyed by weekStart.
func NewAlert(patientID string, weekStart time.Time, abnormalCount int) *Alert {
	return &Alert{
		ID:            uuid.New(),
		PatientID:     patientID,
		WeekStart:     weekStart,
		AbnormalCount: abnormalCount,
		CreatedAt:     time.Now(),
	}
}

// WithSpecialist sets the assigned specialist.
func (a *Alert) WithSpecialist(id string) *Alert {
	a.SpecialistID = &id
	return a
}

// WeekKey is the dedup key for the alert's week window.
func (a *Alert) WeekKey() string {
	return a.WeekStart.Format(WeekKeyLayout)
}

// Recipients returns the patient and, when assigned, the specialist.
// A specialist with the patient's own ID is listed once, as the patient.
func (a *Alert) Recipients() []Recipient {
	rs := []Recipient{{ID: a.PatientID, Role: RolePatient}}
	if a.SpecialistID != nil && *a.SpecialistID != "" && *a.SpecialistID != a.PatientID {
		rs = append(rs, Recipient{ID: *a.SpecialistID, Role: RoleSpecialist})
	}
	return rs
}

// InitDeliveries marks every (recipient, channel) pair pending.
func (a *Alert) InitDeliveries(channels []Channel) {
	a.Deliveries = a.Deliveries[:0]
	for _, r := range a.Recipients() {
		for _, ch := range channels {
			a.Deliveries = append(a.Deliveries, Delivery{
				RecipientID: r.ID,
				Role:        r.Role,
				Channel:     ch,
				Status:      DeliveryPending,
				UpdatedAt:   a.CreatedAt,
			})
		}
	}
}
