package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pharma-redistribution-api-server/internal/audit"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/notification"
	"pharma-redistribution-api-server/internal/store"

	"go.uber.org/zap"
)

type RelayConfig struct {
	Workers       int
	QueueSize     int
	SweepInterval time.Duration
	// SweepAge is how old an undelivered event must be before the sweeper takes it.
	SweepAge time.Duration
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 30 * time.Second
	}
	if c.SweepAge <= 0 {
		c.SweepAge = time.Minute
	}
	return c
}

// Relay delivers committed outbox events. Delivery is claimed before it is
// attempted, so an event reaches its sink at most once.
type Relay struct {
	outbox     store.OutboxReader
	recorder   audit.Recorder
	dispatcher notification.Dispatcher
	cfg        RelayConfig
	queue      chan models.OutboxEvent
	logger     *zap.Logger
	now        func() time.Time
}

func NewRelay(outbox store.OutboxReader, recorder audit.Recorder, dispatcher notification.Dispatcher, cfg RelayConfig, logger *zap.Logger) *Relay {
	cfg = cfg.withDefaults()
	return &Relay{
		outbox:     outbox,
		recorder:   recorder,
		dispatcher: dispatcher,
		cfg:        cfg,
		queue:      make(chan models.OutboxEvent, cfg.QueueSize),
		logger:     logger.Named("outbox-relay"),
		now:        time.Now,
	}
}

// Publish enqueues without blocking. Events that do not fit are left for the sweeper.
func (r *Relay) Publish(events ...models.OutboxEvent) {
	for _, ev := range events {
		select {
		case r.queue <- ev:
		default:
			r.logger.Warn("relay queue full, deferring event to sweep", zap.String("event_id", ev.ID))
		}
	}
}

// Run processes the queue and sweeps periodically until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("starting outbox relay", zap.Int("workers", r.cfg.Workers))
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-r.queue:
					r.Deliver(ctx, ev)
				}
			}
		}()
	}

	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			r.logger.Info("stopping outbox relay")
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("outbox sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep delivers events that were committed but never relayed, e.g. after a crash.
func (r *Relay) Sweep(ctx context.Context) error {
	pending, err := r.outbox.Pending(ctx, r.now().Add(-r.cfg.SweepAge), 100)
	if err != nil {
		return fmt.Errorf("list pending outbox events: %w", err)
	}
	for _, ev := range pending {
		r.Deliver(ctx, ev)
	}
	return nil
}

// Deliver claims ev and hands it to its sink. Failures are logged, never returned.
func (r *Relay) Deliver(ctx context.Context, ev models.OutboxEvent) {
	claimed, err := r.outbox.Claim(ctx, ev.ID)
	if err != nil {
		r.logger.Error("claim outbox event", zap.String("event_id", ev.ID), zap.Error(err))
		return
	}
	if !claimed {
		return
	}

	switch ev.Kind {
	case models.OutboxAudit:
		if ev.Audit == nil {
			return
		}
		if err := r.recorder.Record(ctx, *ev.Audit); err != nil {
			r.logger.Error("audit record failed",
				zap.String("event_id", ev.ID),
				zap.String("action", ev.Audit.Action),
				zap.String("target_id", ev.Audit.TargetID),
				zap.Error(err),
			)
		}
	case models.OutboxNotification:
		if ev.Notification == nil {
			return
		}
		if err := r.dispatcher.Notify(ctx, ev.TargetID, *ev.Notification); err != nil {
			r.logger.Warn("notification dispatch failed",
				zap.String("event_id", ev.ID),
				zap.String("facility_id", ev.TargetID),
				zap.Error(err),
			)
		}
	default:
		r.logger.Warn("unknown outbox event kind", zap.String("kind", string(ev.Kind)))
	}
}

var _ Publisher = (*Relay)(nil)
