package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := InsufficientStock(5, 10)

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "insufficient stock: 5 available, 10 requested", err.Error())
}

func TestError_WrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("approve RDR-1: %w", InvalidState("request is %s", "completed"))

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestTransaction_UnwrapsCause(t *testing.T) {
	cause := errors.New("write conflict")
	err := Transaction("commit failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "commit failed: write conflict", err.Error())
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.False(t, IsRetryable(errors.New("boom")))
}
