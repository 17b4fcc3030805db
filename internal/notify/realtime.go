// ABOUTME: Real-time alert dispatcher publishing JSON events over Redis pub/sub.
// ABOUTME: Each recipient has its own channel, <prefix>:user:<id>.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/harperreed/glucose/internal/models"
)

const AlertEventType = "glucose.alert"

// Publisher is the slice of the Redis client the dispatcher needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// AlertEvent is the message pushed to a recipient's channel.
type AlertEvent struct {
	Type          string      `json:"type"`
	RecipientID   string      `json:"recipient_id"`
	Role          models.Role `json:"role"`
	AlertID       string      `json:"alert_id"`
	PatientID     string      `json:"patient_id"`
	WeekStart     string      `json:"week_start"`
	AbnormalCount int         `json:"abnormal_count"`
	Subject       string      `json:"subject"`
	Message       string      `json:"message"`
	CreatedAt     time.Time   `json:"created_at"`
}

type RealtimeDispatcher struct {
	pub    Publisher
	prefix string
}

func NewRealtimeDispatcher(pub Publisher, prefix string) *RealtimeDispatcher {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "glucose"
	}
	return &RealtimeDispatcher{pub: pub, prefix: prefix}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*goredis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (d *RealtimeDispatcher) Channel() models.Channel { return models.ChannelRealtime }

// UserChannel is the pub/sub channel a recipient listens on.
func (d *RealtimeDispatcher) UserChannel(id string) string {
	return d.prefix + ":user:" + id
}

func (d *RealtimeDispatcher) Dispatch(ctx context.Context, p Payload) []Result {
	if d.pub == nil {
		return failAll(models.ChannelRealtime, p, fmt.Errorf("realtime publisher not initialized"))
	}

	results := make([]Result, 0, len(p.Recipients))
	for _, r := range p.Recipients {
		raw, err := json.Marshal(AlertEvent{
			Type:          AlertEventType,
			RecipientID:   r.ID,
			Role:          r.Role,
			AlertID:       p.AlertID,
			PatientID:     p.PatientID,
			WeekStart:     p.WeekStart,
			AbnormalCount: p.AbnormalCount,
			Subject:       p.Subject,
			Message:       p.Message,
			CreatedAt:     p.CreatedAt,
		})
		if err == nil {
			err = d.pub.Publish(ctx, d.UserChannel(r.ID), raw).Err()
			if err != nil {
				err = fmt.Errorf("redis publish: %w", err)
			}
		}
		results = append(results, Result{RecipientID: r.ID, Channel: models.ChannelRealtime, Err: err})
	}
	return results
}
