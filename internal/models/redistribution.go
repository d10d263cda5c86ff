package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RedistributionStatus string

const (
	RedistributionPending   RedistributionStatus = "pending"
	RedistributionCompleted RedistributionStatus = "completed"
	RedistributionDeclined  RedistributionStatus = "declined"
)

// RedistributionRequest is a proposed or resolved transfer of Quantity units of the
// source lot DrugID from FromFacilityID to ToFacilityID.
type RedistributionRequest struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	RequestID      string               `bson:"requestID" json:"requestID"`
	DrugID         string               `bson:"drugID" json:"drugID"`
	Quantity       int                  `bson:"quantity" json:"quantity"`
	FromFacilityID string               `bson:"fromFacilityID" json:"fromFacilityID"`
	ToFacilityID   string               `bson:"toFacilityID" json:"toFacilityID"`
	Reason         string               `bson:"reason" json:"reason"`
	ExpiryDate     time.Time            `bson:"expiryDate" json:"expiryDate"`
	Status         RedistributionStatus `bson:"status" json:"status"`
	RequestedBy    string               `bson:"requestedBy" json:"requestedBy"`
	ReceivedBy     string               `bson:"receivedBy,omitempty" json:"receivedBy,omitempty"`
	ReceivedAt     *time.Time           `bson:"receivedAt,omitempty" json:"receivedAt,omitempty"`
	DeclinedBy     string               `bson:"declinedBy,omitempty" json:"declinedBy,omitempty"`
	DeclinedAt     *time.Time           `bson:"declinedAt,omitempty" json:"declinedAt,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
}

func (r RedistributionRequest) IsPending() bool {
	return r.Status == RedistributionPending
}

// RedistributionLog is the append-only analytics record of a resolved request.
type RedistributionLog struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	RequestID      string               `bson:"requestID" json:"requestID"`
	DrugID         string               `bson:"drugID" json:"drugID"`
	DrugName       string               `bson:"drugName" json:"drugName"`
	BatchNumber    string               `bson:"batchNumber" json:"batchNumber"`
	Quantity       int                  `bson:"quantity" json:"quantity"`
	FromFacilityID string               `bson:"fromFacilityID" json:"fromFacilityID"`
	ToFacilityID   string               `bson:"toFacilityID" json:"toFacilityID"`
	Reason         string               `bson:"reason" json:"reason"`
	Status         RedistributionStatus `bson:"status" json:"status"`
	RequestedBy    string               `bson:"requestedBy" json:"requestedBy"`
	ResolvedBy     string               `bson:"resolvedBy" json:"resolvedBy"`
	ResolvedAt     time.Time            `bson:"resolvedAt" json:"resolvedAt"`
}
