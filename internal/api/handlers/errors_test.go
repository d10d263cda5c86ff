package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pharma-redistribution-api-server/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		want int
	}{
		{apperror.Validation("quantity must be positive"), http.StatusBadRequest},
		{apperror.SelfTransfer("fac-a"), http.StatusBadRequest},
		{apperror.Authorization("not yours"), http.StatusForbidden},
		{apperror.NotFound("lot", "x"), http.StatusNotFound},
		{apperror.InvalidState("already completed"), http.StatusConflict},
		{apperror.InsufficientStock(5, 10), http.StatusConflict},
		{apperror.Transaction("conflict", nil), http.StatusServiceUnavailable},
		{fmt.Errorf("approve: %w", apperror.InvalidState("declined")), http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		respondError(c, tt.err)

		assert.Equal(t, tt.want, w.Code, tt.err.Error())
		if tt.want == http.StatusInternalServerError {
			assert.NotContains(t, w.Body.String(), "connection reset")
		}
	}
}
