// server/internal/api/handlers/errors.go
package handlers

import (
	"net/http"

	"pharma-redistribution-api-server/internal/api/middleware"
	"pharma-redistribution-api-server/internal/apperror"
	"pharma-redistribution-api-server/internal/models"

	"github.com/gin-gonic/gin"
)

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation, apperror.KindSelfTransfer:
		return http.StatusBadRequest
	case apperror.KindAuthorization:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInvalidState, apperror.KindInsufficientStock:
		return http.StatusConflict
	case apperror.KindTransaction:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Infrastructure errors are not echoed to the client.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	kind := apperror.KindOf(err)
	status := statusFor(kind)
	switch status {
	case http.StatusInternalServerError:
		c.JSON(status, gin.H{"error": "Internal server error"})
	case http.StatusServiceUnavailable:
		c.JSON(status, gin.H{"error": "The operation conflicted with another update, please retry", "code": kind})
	default:
		c.JSON(status, gin.H{"error": err.Error(), "code": kind})
	}
}

func currentActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return models.Actor{}, false
	}
	return actor, true
}
