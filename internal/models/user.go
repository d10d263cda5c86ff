package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is the read-only projection of a user document used for authorization.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"userID" json:"userID"`
	Email      string             `bson:"email" json:"email"`
	Name       string             `bson:"name" json:"name"`
	Role       string             `bson:"role" json:"role"`
	FacilityID string             `bson:"facilityID" json:"facilityID"`
	Status     string             `bson:"status" json:"status"` // active, suspended
}

func (u User) Active() bool {
	return u.Status == "" || u.Status == "active"
}
