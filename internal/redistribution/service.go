// Package redistribution implements the request/approve/decline workflow that
// moves stock of one lot from a source facility to a destination facility.
package redistribution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharma-redistribution-api-server/internal/apperror"
	"pharma-redistribution-api-server/internal/audit"
	"pharma-redistribution-api-server/internal/events"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"
	"pharma-redistribution-api-server/internal/validate"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultReorderLevel = 10

type Config struct {
	// DefaultReorderLevel applies to lots created at a destination by a transfer.
	DefaultReorderLevel int
	Retry               store.RetryPolicy
}

type CreateInput struct {
	DrugID       string `validate:"required"`
	Quantity     int    `validate:"gt=0"`
	ToFacilityID string `validate:"notblank"`
	Reason       string `validate:"notblank"`
}

type Service struct {
	store       store.Store
	coordinator *Coordinator
	publisher   events.Publisher
	retry       store.RetryPolicy
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(st store.Store, publisher events.Publisher, cfg Config, logger *zap.Logger) *Service {
	return newService(st, publisher, cfg, logger, time.Now)
}

func newService(st store.Store, publisher events.Publisher, cfg Config, logger *zap.Logger, now func() time.Time) *Service {
	if cfg.DefaultReorderLevel < 0 {
		cfg.DefaultReorderLevel = DefaultReorderLevel
	}
	return &Service{
		store:       st,
		coordinator: NewCoordinator(cfg.DefaultReorderLevel, now),
		publisher:   publisher,
		retry:       cfg.Retry,
		logger:      logger.Named("redistribution"),
		now:         now,
	}
}

func newRequestID() string {
	return fmt.Sprintf("RDR-%s", uuid.New().String()[:8])
}

// Create records a pending request from the actor's facility. The stock check
// here is advisory; approval re-checks it authoritatively.
func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.RedistributionRequest, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	in.ToFacilityID = strings.TrimSpace(in.ToFacilityID)
	in.Reason = strings.TrimSpace(in.Reason)

	from := actor.FacilityID
	if from == "" {
		return nil, apperror.Authorization("user %s is not attached to a facility", actor.UserID)
	}
	if in.ToFacilityID == from {
		return nil, apperror.SelfTransfer(from)
	}

	var (
		created *models.RedistributionRequest
		batch   *events.Batch
	)
	err := s.retry.Execute(ctx, s.store, func(ctx context.Context, tx store.Tx) error {
		batch = &events.Batch{}
		if _, err := tx.Facilities().FindByID(ctx, in.ToFacilityID); err != nil {
			return err
		}
		lot, err := tx.Lots().FindByID(ctx, in.DrugID)
		if err != nil {
			return err
		}
		if lot.FacilityID != from {
			return apperror.NotFound("lot at facility "+from, in.DrugID)
		}
		if lot.CurrentStock < in.Quantity {
			return apperror.InsufficientStock(lot.CurrentStock, in.Quantity)
		}

		now := s.now()
		req := &models.RedistributionRequest{
			RequestID:      newRequestID(),
			DrugID:         lot.ID.Hex(),
			Quantity:       in.Quantity,
			FromFacilityID: from,
			ToFacilityID:   in.ToFacilityID,
			Reason:         in.Reason,
			ExpiryDate:     lot.ExpiryDate,
			Status:         models.RedistributionPending,
			RequestedBy:    actor.UserID,
			CreatedAt:      now,
		}
		if err := tx.Requests().Insert(ctx, req); err != nil {
			return err
		}

		event := withCounterpart(notificationFor(models.NotificationRedistributionCreated, req, lot), from)
		batch.Add(
			events.NewAudit(actor.UserID, "CREATE_REDISTRIBUTION", audit.ModuleRedistribution, req.RequestID,
				fmt.Sprintf("requested transfer of %d %s (%s) to %s: %s",
					req.Quantity, lot.DrugName, lot.BatchNumber, req.ToFacilityID, req.Reason), now),
			events.NewNotification(req.ToFacilityID, event, now),
		)
		if err := tx.Outbox().Append(ctx, batch.Events()...); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(batch.Events()...)
	s.logger.Info("redistribution requested",
		zap.String("request_id", created.RequestID),
		zap.String("from", created.FromFacilityID),
		zap.String("to", created.ToFacilityID),
		zap.Int("quantity", created.Quantity),
	)
	return created, nil
}

// Approve completes a pending request and moves its stock atomically. On any
// failure the request stays pending and no stock moves.
func (s *Service) Approve(ctx context.Context, requestID string, actor models.Actor) (*models.RedistributionRequest, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, apperror.Validation("request id is required")
	}

	var (
		result *TransferResult
		batch  *events.Batch
	)
	err := s.retry.Execute(ctx, s.store, func(ctx context.Context, tx store.Tx) error {
		batch = &events.Batch{}
		var err error
		result, err = s.coordinator.Transfer(ctx, tx, requestID, actor, batch)
		return err
	})
	if err != nil {
		s.logger.Info("redistribution approval rejected",
			zap.String("request_id", requestID),
			zap.String("actor", actor.UserID),
			zap.String("reason", string(apperror.KindOf(err))),
			zap.Error(err),
		)
		return nil, err
	}

	s.publisher.Publish(batch.Events()...)
	s.logger.Info("redistribution completed",
		zap.String("request_id", requestID),
		zap.Int("quantity", result.Request.Quantity),
		zap.Int("source_stock", result.Source.CurrentStock),
		zap.Int("destination_stock", result.Destination.CurrentStock),
		zap.Bool("destination_created", result.DestinationCreated),
	)
	req := result.Request
	return &req, nil
}

// Decline resolves a pending request without touching inventory.
func (s *Service) Decline(ctx context.Context, requestID string, actor models.Actor) (*models.RedistributionRequest, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, apperror.Validation("request id is required")
	}

	var (
		declined *models.RedistributionRequest
		batch    *events.Batch
	)
	err := s.retry.Execute(ctx, s.store, func(ctx context.Context, tx store.Tx) error {
		batch = &events.Batch{}
		req, err := loadResolvable(ctx, tx, requestID, actor)
		if err != nil {
			return err
		}

		// The lot only enriches the log and notification; a removed lot must not block a decline.
		lot, err := tx.Lots().FindByID(ctx, req.DrugID)
		if err != nil {
			if apperror.KindOf(err) != apperror.KindNotFound {
				return err
			}
			lot = nil
		}

		now := s.now()
		req.Status = models.RedistributionDeclined
		req.DeclinedBy = actor.UserID
		req.DeclinedAt = &now
		if err := tx.Requests().Resolve(ctx, req); err != nil {
			return err
		}
		if err := tx.Logs().Insert(ctx, newLog(req, lot, actor.UserID, now)); err != nil {
			return err
		}

		event := withCounterpart(notificationFor(models.NotificationRedistributionDeclined, req, lot), req.ToFacilityID)
		batch.Add(
			events.NewAudit(actor.UserID, "DECLINE_REDISTRIBUTION", audit.ModuleRedistribution, req.RequestID,
				fmt.Sprintf("declined transfer of %d units from %s", req.Quantity, req.FromFacilityID), now),
			events.NewNotification(req.FromFacilityID, event, now),
		)
		if err := tx.Outbox().Append(ctx, batch.Events()...); err != nil {
			return err
		}
		declined = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(batch.Events()...)
	s.logger.Info("redistribution declined",
		zap.String("request_id", requestID),
		zap.String("actor", actor.UserID),
	)
	return declined, nil
}

// List returns requests where facilityID is the source or the destination.
func (s *Service) List(ctx context.Context, facilityID string) ([]models.RedistributionRequest, error) {
	var out []models.RedistributionRequest
	err := s.store.Execute(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Requests().ListByFacility(ctx, facilityID)
		return err
	})
	return out, err
}

func (s *Service) Logs(ctx context.Context, facilityID string) ([]models.RedistributionLog, error) {
	var out []models.RedistributionLog
	err := s.store.Execute(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Logs().ListByFacility(ctx, facilityID)
		return err
	})
	return out, err
}
