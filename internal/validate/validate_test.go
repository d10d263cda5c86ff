package validate

import (
	"errors"
	"testing"

	"pharma-redistribution-api-server/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string `validate:"notblank"`
	Quantity int    `validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	t.Run("valid input", func(t *testing.T) {
		assert.NoError(t, Struct(sample{Name: "Amoxicillin", Quantity: 1}))
	})

	t.Run("reports every failing field", func(t *testing.T) {
		err := Struct(sample{Name: "   ", Quantity: 0})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrValidation))
		assert.Contains(t, err.Error(), "Name is required")
		assert.Contains(t, err.Error(), "Quantity must be greater than 0")
	})
}
