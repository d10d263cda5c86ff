// server/internal/api/middleware/auth.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"pharma-redistribution-api-server/internal/apperror"
	"pharma-redistribution-api-server/internal/auth"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID     = "user_id"
	ContextUserRole   = "user_role"
	ContextFacilityID = "user_facility_id"
	contextActor      = "actor"
)

// Authenticate verifies the bearer token and resolves the caller through the
// user directory, which is authoritative for role and facility.
func Authenticate(tokens *auth.TokenManager, users store.UserDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		actor, status, msg := ResolveActor(c, tokens, users, tokenString)
		if status != 0 {
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		SetActor(c, actor)
		c.Next()
	}
}

// ResolveActor turns a raw token into an actor. A non-zero status means the
// caller must be rejected with msg.
func ResolveActor(c *gin.Context, tokens *auth.TokenManager, users store.UserDirectory, tokenString string) (models.Actor, int, string) {
	claims, err := tokens.ParseJWT(tokenString)
	if err != nil {
		return models.Actor{}, http.StatusUnauthorized, "Invalid or expired token"
	}
	actor := claims.Actor()
	if users == nil {
		return actor, 0, ""
	}

	user, err := users.FindByID(c.Request.Context(), claims.UserID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return models.Actor{}, http.StatusUnauthorized, "User no longer exists"
	case err != nil:
		return models.Actor{}, http.StatusInternalServerError, "Failed to load user"
	case !user.Active():
		return models.Actor{}, http.StatusForbidden, "User account is suspended"
	}
	actor.Role = user.Role
	actor.FacilityID = user.FacilityID
	return actor, 0, ""
}

func SetActor(c *gin.Context, actor models.Actor) {
	c.Set(contextActor, actor)
	c.Set(ContextUserID, actor.UserID)
	c.Set(ContextUserRole, actor.Role)
	c.Set(ContextFacilityID, actor.FacilityID)
}

// ActorFrom returns the authenticated actor stored by Authenticate.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(contextActor)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

// Authorize only lets the listed roles through.
func Authorize(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString(ContextUserRole)
		if userRole == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "User role not found in context"})
			return
		}

		for _, role := range allowedRoles {
			if role == userRole {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
	}
}
