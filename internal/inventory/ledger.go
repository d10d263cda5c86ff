// Package inventory owns per-facility lot records and the stock status rules
// shared by dispensation, receipt and redistribution transfers.
package inventory

import (
	"context"
	"time"

	"pharma-redistribution-api-server/internal/apperror"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"
)

// DeriveStatus is the only place a stock status is computed.
func DeriveStatus(currentStock, reorderLevel int) models.StockStatus {
	switch {
	case currentStock <= 0:
		return models.StatusOutOfStock
	case currentStock < reorderLevel:
		return models.StatusLowStock
	default:
		return models.StatusAdequate
	}
}

// AdjustStock applies delta to lot in memory and re-derives its status. The lot
// is left untouched when the result would be negative.
func AdjustStock(lot *models.InventoryLot, delta int) error {
	next := lot.CurrentStock + delta
	if next < 0 {
		return apperror.InsufficientStock(lot.CurrentStock, -delta)
	}
	lot.CurrentStock = next
	lot.Status = DeriveStatus(lot.CurrentStock, lot.ReorderLevel)
	return nil
}

type LotFields struct {
	FacilityID   string
	DrugName     string
	BatchNumber  string
	Supplier     string
	CurrentStock int
	ReorderLevel int
	ExpiryDate   time.Time
}

// NewLot builds an unsaved lot with its initial status.
func NewLot(f LotFields) models.InventoryLot {
	return models.InventoryLot{
		FacilityID:   f.FacilityID,
		DrugName:     f.DrugName,
		BatchNumber:  f.BatchNumber,
		Supplier:     f.Supplier,
		CurrentStock: f.CurrentStock,
		ReorderLevel: f.ReorderLevel,
		ExpiryDate:   f.ExpiryDate,
		Status:       DeriveStatus(f.CurrentStock, f.ReorderLevel),
	}
}

func FindLot(ctx context.Context, tx store.Tx, facilityID, drugName, batchNumber string) (*models.InventoryLot, error) {
	return tx.Lots().FindByKey(ctx, models.LotKey{FacilityID: facilityID, DrugName: drugName, BatchNumber: batchNumber})
}

// ApplyDelta adjusts lot and persists it through tx, conditioned on the stock it was read with.
func ApplyDelta(ctx context.Context, tx store.Tx, lot *models.InventoryLot, delta int) error {
	before := lot.CurrentStock
	if err := AdjustStock(lot, delta); err != nil {
		return err
	}
	return tx.Lots().UpdateStock(ctx, lot, before)
}

// Credit adds quantity to the lot identified by template's key, creating it from
// template when the facility holds no such lot yet. The created lot starts at
// quantity regardless of template.CurrentStock.
func Credit(ctx context.Context, tx store.Tx, template LotFields, quantity int) (*models.InventoryLot, bool, error) {
	lot, err := FindLot(ctx, tx, template.FacilityID, template.DrugName, template.BatchNumber)
	switch {
	case err == nil:
		if err := ApplyDelta(ctx, tx, lot, quantity); err != nil {
			return nil, false, err
		}
		return lot, false, nil
	case apperror.KindOf(err) == apperror.KindNotFound:
		template.CurrentStock = quantity
		created := NewLot(template)
		if err := tx.Lots().Insert(ctx, &created); err != nil {
			return nil, false, err
		}
		return &created, true, nil
	default:
		return nil, false, err
	}
}
