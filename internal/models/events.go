package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationRedistributionCreated  NotificationType = "REDISTRIBUTION_CREATED"
	NotificationRedistributionApproved NotificationType = "REDISTRIBUTION_APPROVED"
	NotificationRedistributionDeclined NotificationType = "REDISTRIBUTION_DECLINED"
)

// NotificationEvent is what a facility receives about a redistribution.
type NotificationEvent struct {
	Type                  NotificationType `bson:"type" json:"type"`
	RequestID             string           `bson:"requestID" json:"requestID"`
	DrugID                string           `bson:"drugID" json:"drugID"`
	DrugName              string           `bson:"drugName" json:"drugName"`
	BatchNumber           string           `bson:"batchNumber" json:"batchNumber"`
	Quantity              int              `bson:"quantity" json:"quantity"`
	CounterpartFacilityID string           `bson:"counterpartFacilityID" json:"counterpartFacilityID"`
}

// AuditEntry records who did what.
type AuditEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Actor     string             `bson:"actor" json:"actor"`
	Action    string             `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`
	TargetID  string             `bson:"targetID" json:"targetID"`
	Message   string             `bson:"message" json:"message"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type OutboxKind string

const (
	OutboxAudit        OutboxKind = "audit"
	OutboxNotification OutboxKind = "notification"
)

// OutboxEvent is a side effect staged inside a transaction and delivered after commit.
type OutboxEvent struct {
	ID           string             `bson:"_id" json:"id"`
	Kind         OutboxKind         `bson:"kind" json:"kind"`
	Audit        *AuditEntry        `bson:"audit,omitempty" json:"audit,omitempty"`
	TargetID     string             `bson:"targetID,omitempty" json:"targetID,omitempty"` // facility receiving a notification
	Notification *NotificationEvent `bson:"notification,omitempty" json:"notification,omitempty"`
	Delivered    bool               `bson:"delivered" json:"delivered"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
