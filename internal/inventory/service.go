package inventory

import (
	"context"
	"fmt"
	"time"

	"pharma-redistribution-api-server/internal/apperror"
	"pharma-redistribution-api-server/internal/audit"
	"pharma-redistribution-api-server/internal/events"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"
	"pharma-redistribution-api-server/internal/validate"

	"go.uber.org/zap"
)

type DispenseInput struct {
	LotID    string `validate:"required"`
	Quantity int    `validate:"gt=0"`
}

type ReceiveInput struct {
	DrugName     string `validate:"notblank"`
	BatchNumber  string `validate:"notblank"`
	Supplier     string
	Quantity     int `validate:"gt=0"`
	ReorderLevel int `validate:"gte=0"`
	ExpiryDate   time.Time
}

// Service handles stock movements that originate at a single facility.
type Service struct {
	store     store.Store
	publisher events.Publisher
	retry     store.RetryPolicy
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(st store.Store, publisher events.Publisher, retry store.RetryPolicy, logger *zap.Logger) *Service {
	return &Service{
		store:     st,
		publisher: publisher,
		retry:     retry,
		logger:    logger.Named("inventory"),
		now:       time.Now,
	}
}

// Dispense removes quantity from a lot held by the actor's facility.
func (s *Service) Dispense(ctx context.Context, actor models.Actor, in DispenseInput) (*models.InventoryLot, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	var (
		result *models.InventoryLot
		batch  *events.Batch
	)
	err := s.retry.Execute(ctx, s.store, func(ctx context.Context, tx store.Tx) error {
		batch = &events.Batch{}
		lot, err := tx.Lots().FindByID(ctx, in.LotID)
		if err != nil {
			return err
		}
		if !actor.ActsFor(lot.FacilityID) {
			return apperror.Authorization("lot %s belongs to facility %s", in.LotID, lot.FacilityID)
		}
		if err := ApplyDelta(ctx, tx, lot, -in.Quantity); err != nil {
			return err
		}
		now := s.now()
		batch.Add(events.NewAudit(actor.UserID, "DISPENSE_STOCK", audit.ModuleInventory, lot.ID.Hex(),
			fmt.Sprintf("dispensed %d of %s (%s), %d remaining", in.Quantity, lot.DrugName, lot.BatchNumber, lot.CurrentStock), now))
		if err := tx.Outbox().Append(ctx, batch.Events()...); err != nil {
			return err
		}
		result = lot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(batch.Events()...)
	s.logger.Info("stock dispensed",
		zap.String("lot_id", result.ID.Hex()),
		zap.String("facility_id", result.FacilityID),
		zap.Int("quantity", in.Quantity),
		zap.Int("remaining", result.CurrentStock),
	)
	return result, nil
}

// Receive credits stock to the actor's facility, creating the lot if needed.
func (s *Service) Receive(ctx context.Context, actor models.Actor, in ReceiveInput) (*models.InventoryLot, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.ExpiryDate.IsZero() {
		return nil, apperror.Validation("ExpiryDate is required")
	}
	if actor.FacilityID == "" {
		return nil, apperror.Authorization("user %s is not attached to a facility", actor.UserID)
	}

	var (
		result  *models.InventoryLot
		created bool
		batch   *events.Batch
	)
	err := s.retry.Execute(ctx, s.store, func(ctx context.Context, tx store.Tx) error {
		batch = &events.Batch{}
		if _, err := tx.Facilities().FindByID(ctx, actor.FacilityID); err != nil {
			return err
		}
		lot, isNew, err := Credit(ctx, tx, LotFields{
			FacilityID:   actor.FacilityID,
			DrugName:     in.DrugName,
			BatchNumber:  in.BatchNumber,
			Supplier:     in.Supplier,
			ReorderLevel: in.ReorderLevel,
			ExpiryDate:   in.ExpiryDate,
		}, in.Quantity)
		if err != nil {
			return err
		}
		batch.Add(events.NewAudit(actor.UserID, "RECEIVE_STOCK", audit.ModuleInventory, lot.ID.Hex(),
			fmt.Sprintf("received %d of %s (%s)", in.Quantity, lot.DrugName, lot.BatchNumber), s.now()))
		if err := tx.Outbox().Append(ctx, batch.Events()...); err != nil {
			return err
		}
		result, created = lot, isNew
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(batch.Events()...)
	s.logger.Info("stock received",
		zap.String("lot_id", result.ID.Hex()),
		zap.String("facility_id", result.FacilityID),
		zap.Int("quantity", in.Quantity),
		zap.Bool("created", created),
	)
	return result, nil
}

func (s *Service) ListLots(ctx context.Context, facilityID string) ([]models.InventoryLot, error) {
	var lots []models.InventoryLot
	err := s.store.Execute(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		lots, err = tx.Lots().ListByFacility(ctx, facilityID)
		return err
	})
	return lots, err
}
