package database

import (
	"context"
	"testing"
	"time"

	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"
	"pharma-redistribution-api-server/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDemo(t *testing.T) {
	st := memstore.New()
	SeedDemo(st, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	err := st.Execute(context.Background(), func(ctx context.Context, tx store.Tx) error {
		facilities, err := tx.Facilities().List(ctx)
		require.NoError(t, err)
		assert.Len(t, facilities, 2)

		lots, err := tx.Lots().ListByFacility(ctx, "clinic-north")
		require.NoError(t, err)
		require.Len(t, lots, 1)
		assert.Equal(t, models.StatusLowStock, lots[0].Status)
		return nil
	})
	require.NoError(t, err)

	admin, err := st.Users().FindByID(context.Background(), "superadmin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, admin.Role)
}
