// Package notification delivers redistribution events to facilities and
// suppresses repeats of the same event inside a trailing window.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pharma-redistribution-api-server/internal/models"

	"go.uber.org/zap"
)

const DefaultDedupWindow = 24 * time.Hour

// Dispatcher is the contract the relay depends on.
type Dispatcher interface {
	Notify(ctx context.Context, facilityID string, event models.NotificationEvent) error
}

// Sender pushes a serialized message to the users of a facility.
type Sender interface {
	SendToFacility(facilityID string, message []byte) (int, error)
}

// Deduper claims a key for a window. Claim returns false while a previous claim is live.
type Deduper interface {
	Claim(ctx context.Context, key string, window time.Duration) (bool, error)
	// Release drops a claim so the next Notify for the key is sent.
	Release(ctx context.Context, key string) error
}

type Service struct {
	sender Sender
	dedup  Deduper
	window time.Duration
	logger *zap.Logger
}

func NewService(sender Sender, dedup Deduper, window time.Duration, logger *zap.Logger) *Service {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Service{sender: sender, dedup: dedup, window: window, logger: logger.Named("notification")}
}

type message struct {
	Event  string                   `json:"event"`
	Data   models.NotificationEvent `json:"data"`
	SentAt time.Time                `json:"sentAt"`
}

// DedupKey identifies "the same notification" for a facility: one per drug and event type.
func DedupKey(facilityID string, event models.NotificationEvent) string {
	return fmt.Sprintf("notify:%s:%s:%s", facilityID, event.DrugID, event.Type)
}

func (s *Service) Notify(ctx context.Context, facilityID string, event models.NotificationEvent) error {
	key := DedupKey(facilityID, event)
	claimed, err := s.dedup.Claim(ctx, key, s.window)
	if err != nil {
		// Fail open: a duplicate is better than a lost notification.
		s.logger.Warn("dedup check failed, sending anyway", zap.String("key", key), zap.Error(err))
		claimed = true
	}
	if !claimed {
		s.logger.Debug("duplicate notification suppressed", zap.String("key", key))
		return nil
	}

	payload, err := json.Marshal(message{Event: string(event.Type), Data: event, SentAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	sent, err := s.sender.SendToFacility(facilityID, payload)
	if err != nil {
		// Nobody received it, so a later retry of the same event must not be suppressed.
		if sent == 0 {
			if rerr := s.dedup.Release(ctx, key); rerr != nil {
				s.logger.Warn("failed to release dedup claim", zap.String("key", key), zap.Error(rerr))
			}
		}
		return fmt.Errorf("send notification to facility %s: %w", facilityID, err)
	}
	s.logger.Debug("notification sent",
		zap.String("facility_id", facilityID),
		zap.String("type", string(event.Type)),
		zap.String("request_id", event.RequestID),
		zap.Int("connections", sent),
	)
	return nil
}

var _ Dispatcher = (*Service)(nil)
