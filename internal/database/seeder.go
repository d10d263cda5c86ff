// server/internal/database/seeder.go
package database

import (
	"context"
	"fmt"
	"time"

	"pharma-redistribution-api-server/internal/inventory"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store/memstore"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// SeedSuperAdmin makes sure the directory contains the superadmin user that
// platform operators authenticate as.
func SeedSuperAdmin(ctx context.Context, db *mongo.Database, userID string, logger *zap.Logger) error {
	superAdmin := models.User{
		UserID:     userID,
		Email:      "superadmin@example.com",
		Name:       "Super Admin",
		Role:       models.RoleSuperAdmin,
		FacilityID: "system",
		Status:     "active",
	}
	result, err := db.Collection("users").UpdateOne(ctx,
		bson.M{"userID": userID},
		bson.M{"$setOnInsert": superAdmin},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("seed superadmin: %w", err)
	}
	if result.UpsertedCount > 0 {
		logger.Info("super admin seeded", zap.String("user_id", userID))
	}
	return nil
}

// SeedDemo fills an in-memory store with two facilities, their pharmacists and
// a few lots so the API can be exercised locally without MongoDB.
func SeedDemo(st *memstore.Store, now time.Time) {
	facilities := []models.Facility{
		{FacilityID: "hosp-central", Name: "Central Hospital", Type: "HOSPITAL", Status: "ACTIVE"},
		{FacilityID: "clinic-north", Name: "North Clinic", Type: "CLINIC", Status: "ACTIVE"},
	}
	for _, f := range facilities {
		f.CreatedAt, f.UpdatedAt = now, now
		st.PutFacility(f)
	}

	st.PutUser(models.User{UserID: "superadmin", Name: "Super Admin", Role: models.RoleSuperAdmin, FacilityID: "system", Status: "active"})
	st.PutUser(models.User{UserID: "pharm-central", Name: "Central Pharmacist", Role: "pharmacist", FacilityID: "hosp-central", Status: "active"})
	st.PutUser(models.User{UserID: "pharm-north", Name: "North Pharmacist", Role: "pharmacist", FacilityID: "clinic-north", Status: "active"})

	lots := []inventory.LotFields{
		{FacilityID: "hosp-central", DrugName: "Amoxicillin 500mg", BatchNumber: "AMX-2401", Supplier: "MedSupply", CurrentStock: 100, ReorderLevel: 20, ExpiryDate: now.AddDate(0, 2, 0)},
		{FacilityID: "hosp-central", DrugName: "Paracetamol 500mg", BatchNumber: "PCM-2312", Supplier: "MedSupply", CurrentStock: 400, ReorderLevel: 50, ExpiryDate: now.AddDate(0, 1, 0)},
		{FacilityID: "clinic-north", DrugName: "Paracetamol 500mg", BatchNumber: "PCM-2312", Supplier: "MedSupply", CurrentStock: 12, ReorderLevel: 40, ExpiryDate: now.AddDate(0, 1, 0)},
	}
	for _, f := range lots {
		st.PutLot(inventory.NewLot(f))
	}
}
