// Package store declares the persistence contracts of the redistribution core.
//
// Every mutation of lots, requests, logs and the outbox happens through a Tx
// handed out by Scope.Execute. The ctx passed to the callback carries the
// transaction (for Mongo it is the session context) and must be the one used
// for every repository call inside the unit; nothing is ambient.
package store

import (
	"context"
	"time"

	"pharma-redistribution-api-server/internal/models"
)

// Scope runs fn as one all-or-nothing unit. If fn returns an error nothing it
// wrote is visible afterwards. Commit conflicts and timeouts are reported as
// apperror.KindTransaction.
type Scope interface {
	Execute(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes repositories bound to a single transaction.
type Tx interface {
	Lots() LotRepository
	Requests() RequestRepository
	Logs() LogRepository
	Facilities() FacilityDirectory
	Outbox() OutboxWriter
}

// Store is the full persistence surface used by the services and the relay.
type Store interface {
	Scope
	Users() UserDirectory
	Outbox() OutboxReader
}

type LotRepository interface {
	// FindByID returns apperror.KindNotFound when the lot does not exist.
	FindByID(ctx context.Context, id string) (*models.InventoryLot, error)
	// FindByKey returns apperror.KindNotFound when no lot matches.
	FindByKey(ctx context.Context, key models.LotKey) (*models.InventoryLot, error)
	ListByFacility(ctx context.Context, facilityID string) ([]models.InventoryLot, error)
	// Insert assigns lot.ID. A duplicate (facility, drug, batch) yields apperror.KindTransaction.
	Insert(ctx context.Context, lot *models.InventoryLot) error
	// UpdateStock persists lot.CurrentStock and lot.Status only if the stored stock
	// still equals expectedStock; otherwise apperror.KindTransaction.
	UpdateStock(ctx context.Context, lot *models.InventoryLot, expectedStock int) error
}

type RequestRepository interface {
	FindByRequestID(ctx context.Context, requestID string) (*models.RedistributionRequest, error)
	ListByFacility(ctx context.Context, facilityID string) ([]models.RedistributionRequest, error)
	Insert(ctx context.Context, req *models.RedistributionRequest) error
	// Resolve moves a pending request to req.Status together with its resolution
	// stamps. If the stored request is no longer pending it returns apperror.KindInvalidState.
	Resolve(ctx context.Context, req *models.RedistributionRequest) error
}

type LogRepository interface {
	Insert(ctx context.Context, entry *models.RedistributionLog) error
	ListByFacility(ctx context.Context, facilityID string) ([]models.RedistributionLog, error)
}

type FacilityDirectory interface {
	FindByID(ctx context.Context, facilityID string) (*models.Facility, error)
	List(ctx context.Context) ([]models.Facility, error)
}

type UserDirectory interface {
	FindByID(ctx context.Context, userID string) (*models.User, error)
}

type OutboxWriter interface {
	Append(ctx context.Context, events ...models.OutboxEvent) error
}

// OutboxReader is used outside transactions by the relay.
type OutboxReader interface {
	// Pending lists undelivered events created before olderThan, oldest first.
	Pending(ctx context.Context, olderThan time.Time, limit int) ([]models.OutboxEvent, error)
	// Claim marks the event delivered. It returns false when someone else claimed it first.
	Claim(ctx context.Context, id string) (bool, error)
}
