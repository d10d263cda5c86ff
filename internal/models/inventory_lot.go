package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StockStatus string

const (
	StatusAdequate   StockStatus = "Adequate"
	StatusLowStock   StockStatus = "LowStock"
	StatusOutOfStock StockStatus = "OutOfStock"
)

// InventoryLot is one stocked batch of one drug at one facility.
// (FacilityID, DrugName, BatchNumber) is unique.
type InventoryLot struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FacilityID   string             `bson:"facilityID" json:"facilityID"`
	DrugName     string             `bson:"drugName" json:"drugName"`
	BatchNumber  string             `bson:"batchNumber" json:"batchNumber"`
	Supplier     string             `bson:"supplier,omitempty" json:"supplier,omitempty"`
	CurrentStock int                `bson:"currentStock" json:"currentStock"`
	ReorderLevel int                `bson:"reorderLevel" json:"reorderLevel"`
	ExpiryDate   time.Time          `bson:"expiryDate" json:"expiryDate"`
	Status       StockStatus        `bson:"status" json:"status"`
}

// LotKey is the logical identity of a lot.
type LotKey struct {
	FacilityID  string
	DrugName    string
	BatchNumber string
}

func (l InventoryLot) Key() LotKey {
	return LotKey{FacilityID: l.FacilityID, DrugName: l.DrugName, BatchNumber: l.BatchNumber}
}
