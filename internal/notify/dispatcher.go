// ABOUTME: Notification dispatcher contract for alert delivery.
// ABOUTME: The core builds payloads; dispatchers own transport and report per-recipient results.
package notify

import (
	"context"
	"time"

	"github.com/harperreed/glucose/internal/models"
)

// Payload is everything a dispatcher needs to deliver one alert.
type Payload struct {
	AlertID       string             `json:"alert_id"`
	PatientID     string             `json:"patient_id"`
	SpecialistID  *string            `json:"specialist_id,omitempty"`
	WeekStart     string             `json:"week_start"`
	AbnormalCount int                `json:"abnormal_count"`
	Subject       string             `json:"subject"`
	Message       string             `json:"message"`
	Recipients    []models.Recipient `json:"recipients"`
	CreatedAt     time.Time          `json:"created_at"`
}

// PayloadFromAlert builds the dispatcher payload for a stored alert.
func PayloadFromAlert(a *models.Alert) Payload {
	return Payload{
		AlertID:       a.ID.String(),
		PatientID:     a.PatientID,
		SpecialistID:  a.SpecialistID,
		WeekStart:     a.WeekKey(),
		AbnormalCount: a.AbnormalCount,
		Subject:       "Glucose alert: frequent abnormal readings",
		Message:       a.Message,
		Recipients:    a.Recipients(),
		CreatedAt:     a.CreatedAt,
	}
}

// Result is the delivery outcome for one recipient on one channel.
type Result struct {
	RecipientID string
	Channel     models.Channel
	Err         error
}

// Dispatcher delivers alert payloads over a single channel.
type Dispatcher interface {
	Channel() models.Channel
	// Dispatch attempts delivery to every recipient and returns one Result each.
	Dispatch(ctx context.Context, p Payload) []Result
}

// Channels lists the channels served by the given dispatchers, in order.
func Channels(ds []Dispatcher) []models.Channel {
	out := make([]models.Channel, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Channel())
	}
	return out
}

// failAll reports the same error for every recipient.
func failAll(ch models.Channel, p Payload, err error) []Result {
	results := make([]Result, 0, len(p.Recipients))
	for _, r := range p.Recipients {
		results = append(results, Result{RecipientID: r.ID, Channel: ch, Err: err})
	}
	return results
}
