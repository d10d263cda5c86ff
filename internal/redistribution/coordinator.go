package redistribution

import (
	"context"
	"fmt"
	"time"

	"pharma-redistribution-api-server/internal/apperror"
	"pharma-redistribution-api-server/internal/audit"
	"pharma-redistribution-api-server/internal/events"
	"pharma-redistribution-api-server/internal/inventory"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"
)

// TransferResult describes a committed approval.
type TransferResult struct {
	Request            models.RedistributionRequest
	Source             models.InventoryLot
	Destination        models.InventoryLot
	DestinationCreated bool
}

// Coordinator performs the stock movement behind an approval. Every method
// takes the transaction explicitly; it never commits on its own.
type Coordinator struct {
	defaultReorderLevel int
	now                 func() time.Time
}

func NewCoordinator(defaultReorderLevel int, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{defaultReorderLevel: defaultReorderLevel, now: now}
}

// Transfer re-validates the request inside tx, moves the stock, resolves the
// request, appends the log and stages side effects into batch and the outbox.
func (c *Coordinator) Transfer(ctx context.Context, tx store.Tx, requestID string, actor models.Actor, batch *events.Batch) (*TransferResult, error) {
	// 1. Re-check state and authorization inside the unit.
	req, err := loadResolvable(ctx, tx, requestID, actor)
	if err != nil {
		return nil, err
	}

	// 2. Locate the source lot and re-validate stock against committed data.
	ref, err := tx.Lots().FindByID(ctx, req.DrugID)
	if err != nil {
		return nil, err
	}
	source, err := inventory.FindLot(ctx, tx, req.FromFacilityID, ref.DrugName, ref.BatchNumber)
	if err != nil {
		return nil, err
	}
	if source.CurrentStock < req.Quantity {
		return nil, apperror.InsufficientStock(source.CurrentStock, req.Quantity)
	}

	// 3. Debit the source.
	if err := inventory.ApplyDelta(ctx, tx, source, -req.Quantity); err != nil {
		return nil, err
	}

	// 4. Credit or create the destination lot.
	dest, created, err := inventory.Credit(ctx, tx, inventory.LotFields{
		FacilityID:   req.ToFacilityID,
		DrugName:     source.DrugName,
		BatchNumber:  source.BatchNumber,
		Supplier:     source.Supplier,
		ReorderLevel: c.defaultReorderLevel,
		ExpiryDate:   source.ExpiryDate,
	}, req.Quantity)
	if err != nil {
		return nil, err
	}

	// 5. Resolve the request; the store refuses if it is no longer pending.
	now := c.now()
	req.Status = models.RedistributionCompleted
	req.ReceivedBy = actor.UserID
	req.ReceivedAt = &now
	if err := tx.Requests().Resolve(ctx, req); err != nil {
		return nil, err
	}

	// 6. Immutable log entry.
	if err := tx.Logs().Insert(ctx, newLog(req, source, actor.UserID, now)); err != nil {
		return nil, err
	}

	// 7. Stage audit and notifications; delivered only after commit.
	event := notificationFor(models.NotificationRedistributionApproved, req, source)
	batch.Add(
		events.NewAudit(actor.UserID, "APPROVE_REDISTRIBUTION", audit.ModuleRedistribution, req.RequestID,
			fmt.Sprintf("approved transfer of %d %s (%s) from %s to %s",
				req.Quantity, source.DrugName, source.BatchNumber, req.FromFacilityID, req.ToFacilityID), now),
		events.NewNotification(req.FromFacilityID, withCounterpart(event, req.ToFacilityID), now),
		events.NewNotification(req.ToFacilityID, withCounterpart(event, req.FromFacilityID), now),
	)
	if err := tx.Outbox().Append(ctx, batch.Events()...); err != nil {
		return nil, err
	}

	return &TransferResult{
		Request:            *req,
		Source:             *source,
		Destination:        *dest,
		DestinationCreated: created,
	}, nil
}

// loadResolvable fetches a request the actor may resolve. Only the destination
// facility (or a superadmin acting for it) may approve or decline.
func loadResolvable(ctx context.Context, tx store.Tx, requestID string, actor models.Actor) (*models.RedistributionRequest, error) {
	req, err := tx.Requests().FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !actor.ActsFor(req.ToFacilityID) {
		return nil, apperror.Authorization("only facility %s can resolve request %s", req.ToFacilityID, requestID)
	}
	if !req.IsPending() {
		return nil, apperror.InvalidState("redistribution request %s is already %s", requestID, req.Status)
	}
	return req, nil
}

func newLog(req *models.RedistributionRequest, lot *models.InventoryLot, resolvedBy string, at time.Time) *models.RedistributionLog {
	entry := &models.RedistributionLog{
		RequestID:      req.RequestID,
		DrugID:         req.DrugID,
		Quantity:       req.Quantity,
		FromFacilityID: req.FromFacilityID,
		ToFacilityID:   req.ToFacilityID,
		Reason:         req.Reason,
		Status:         req.Status,
		RequestedBy:    req.RequestedBy,
		ResolvedBy:     resolvedBy,
		ResolvedAt:     at,
	}
	if lot != nil {
		entry.DrugName = lot.DrugName
		entry.BatchNumber = lot.BatchNumber
	}
	return entry
}

func notificationFor(t models.NotificationType, req *models.RedistributionRequest, lot *models.InventoryLot) models.NotificationEvent {
	ev := models.NotificationEvent{
		Type:      t,
		RequestID: req.RequestID,
		DrugID:    req.DrugID,
		Quantity:  req.Quantity,
	}
	if lot != nil {
		ev.DrugName = lot.DrugName
		ev.BatchNumber = lot.BatchNumber
	}
	return ev
}

func withCounterpart(ev models.NotificationEvent, facilityID string) models.NotificationEvent {
	ev.CounterpartFacilityID = facilityID
	return ev
}
