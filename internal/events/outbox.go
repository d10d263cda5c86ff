// Package events stages side effects in the transactional outbox and relays
// them to the audit recorder and notification dispatcher after commit.
package events

import (
	"time"

	"pharma-redistribution-api-server/internal/models"

	"github.com/google/uuid"
)

// Publisher receives events whose transaction has committed.
type Publisher interface {
	Publish(events ...models.OutboxEvent)
}

func NewAudit(actor, action, module, targetID, message string, at time.Time) models.OutboxEvent {
	return models.OutboxEvent{
		ID:   uuid.NewString(),
		Kind: models.OutboxAudit,
		Audit: &models.AuditEntry{
			Actor:     actor,
			Action:    action,
			Module:    module,
			TargetID:  targetID,
			Message:   message,
			CreatedAt: at,
		},
		CreatedAt: at,
	}
}

func NewNotification(facilityID string, event models.NotificationEvent, at time.Time) models.OutboxEvent {
	ev := event
	return models.OutboxEvent{
		ID:           uuid.NewString(),
		Kind:         models.OutboxNotification,
		TargetID:     facilityID,
		Notification: &ev,
		CreatedAt:    at,
	}
}

// Batch accumulates the events of one transaction attempt. A fresh Batch is
// used per attempt so nothing from a rolled back attempt leaks out.
type Batch struct {
	events []models.OutboxEvent
}

func (b *Batch) Add(events ...models.OutboxEvent) {
	b.events = append(b.events, events...)
}

func (b *Batch) Events() []models.OutboxEvent {
	return b.events
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(...models.OutboxEvent) {}
