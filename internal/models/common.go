// server/internal/models/common.go
package models

// Address is the structured location of a facility.
type Address struct {
	FullText  string  `bson:"fullText" json:"fullText"`
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Actor is the authenticated user on whose behalf an operation runs.
// Authorization is decided by FacilityID, not by the individual user.
type Actor struct {
	UserID     string
	FacilityID string
	Role       string
}

const RoleSuperAdmin = "superadmin"

// ActsFor reports whether the actor may act on behalf of facilityID.
func (a Actor) ActsFor(facilityID string) bool {
	return a.Role == RoleSuperAdmin || (a.FacilityID != "" && a.FacilityID == facilityID)
}
