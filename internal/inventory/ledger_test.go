package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pharma-redistribution-api-server/internal/apperror"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"
	"pharma-redistribution-api-server/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		stock, reorder int
		want           models.StockStatus
	}{
		{0, 10, models.StatusOutOfStock},
		{-1, 10, models.StatusOutOfStock},
		{0, 0, models.StatusOutOfStock},
		{1, 10, models.StatusLowStock},
		{9, 10, models.StatusLowStock},
		{10, 10, models.StatusAdequate},
		{70, 20, models.StatusAdequate},
		{1, 0, models.StatusAdequate},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveStatus(tt.stock, tt.reorder), "stock=%d reorder=%d", tt.stock, tt.reorder)
	}
}

func TestAdjustStock(t *testing.T) {
	lot := NewLot(LotFields{CurrentStock: 12, ReorderLevel: 10})
	require.Equal(t, models.StatusAdequate, lot.Status)

	require.NoError(t, AdjustStock(&lot, -5))
	assert.Equal(t, 7, lot.CurrentStock)
	assert.Equal(t, models.StatusLowStock, lot.Status)

	err := AdjustStock(&lot, -8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrInsufficientStock))
	assert.Equal(t, "insufficient stock: 7 available, 8 requested", err.Error())
	assert.Equal(t, 7, lot.CurrentStock, "lot must be unchanged on failure")

	require.NoError(t, AdjustStock(&lot, -7))
	assert.Equal(t, models.StatusOutOfStock, lot.Status)

	require.NoError(t, AdjustStock(&lot, 30))
	assert.Equal(t, models.StatusAdequate, lot.Status)
}

func TestCredit_CreatesThenUpdates(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	template := LotFields{
		FacilityID:   "fac-b",
		DrugName:     "Paracetamol",
		BatchNumber:  "P-7",
		ReorderLevel: 10,
		ExpiryDate:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		CurrentStock: 999,
	}

	var created bool
	err := st.Execute(ctx, func(ctx context.Context, tx store.Tx) error {
		lot, isNew, err := Credit(ctx, tx, template, 4)
		if err != nil {
			return err
		}
		created = isNew
		assert.Equal(t, 4, lot.CurrentStock)
		assert.Equal(t, models.StatusLowStock, lot.Status)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, created)

	err = st.Execute(ctx, func(ctx context.Context, tx store.Tx) error {
		_, isNew, err := Credit(ctx, tx, template, 6)
		created = isNew
		return err
	})
	require.NoError(t, err)
	assert.False(t, created)

	lot, ok := st.Lot(models.LotKey{FacilityID: "fac-b", DrugName: "Paracetamol", BatchNumber: "P-7"})
	require.True(t, ok)
	assert.Equal(t, 10, lot.CurrentStock)
	assert.Equal(t, models.StatusAdequate, lot.Status)
}

func TestFindLot_NotFound(t *testing.T) {
	st := memstore.New()

	err := st.Execute(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := FindLot(ctx, tx, "fac-a", "Nothing", "N-0")
		return err
	})

	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
