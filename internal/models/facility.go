// server/internal/models/facility.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Facility struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FacilityID string             `bson:"facilityID" json:"facilityID"` // User-friendly unique ID, e.g. "hosp-central"
	Name       string             `bson:"name" json:"name"`
	Type       string             `bson:"type" json:"type"` // HOSPITAL, CLINIC, PHARMACY, WAREHOUSE
	Address    Address            `bson:"address" json:"address"`
	Status     string             `bson:"status" json:"status"` // ACTIVE, INACTIVE
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
