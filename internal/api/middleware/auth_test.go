package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pharma-redistribution-api-server/internal/auth"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*gin.Engine, *auth.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokenManager("test-secret")
	st := memstore.New()
	st.PutUser(models.User{UserID: "u-a", Role: "pharmacist", FacilityID: "fac-a", Status: "active"})
	st.PutUser(models.User{UserID: "u-moved", Role: "pharmacist", FacilityID: "fac-new", Status: "active"})
	st.PutUser(models.User{UserID: "u-off", Role: "pharmacist", FacilityID: "fac-a", Status: "suspended"})
	st.PutUser(models.User{UserID: "root", Role: models.RoleSuperAdmin, Status: "active"})

	r := gin.New()
	protected := r.Group("/", Authenticate(tokens, st.Users()))
	protected.GET("/me", func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"facility": actor.FacilityID})
	})
	protected.GET("/admin", Authorize(models.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, tokens
}

func call(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	r, tokens := setupRouter(t)
	sign := func(userID, facility string) string {
		tok, err := tokens.GenerateJWT(userID, "pharmacist", facility, time.Hour)
		require.NoError(t, err)
		return "Bearer " + tok
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Token abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
		{"unknown user", sign("u-ghost", "fac-a"), http.StatusUnauthorized},
		{"suspended user", sign("u-off", "fac-a"), http.StatusForbidden},
		{"valid", sign("u-a", "fac-a"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, call(r, "/me", tt.header).Code)
		})
	}
}

func TestAuthenticate_DirectoryFacilityWins(t *testing.T) {
	r, tokens := setupRouter(t)
	tok, err := tokens.GenerateJWT("u-moved", "pharmacist", "fac-old", time.Hour)
	require.NoError(t, err)

	w := call(r, "/me", "Bearer "+tok)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"facility":"fac-new"}`, w.Body.String())
}

func TestAuthorize(t *testing.T) {
	r, tokens := setupRouter(t)
	user, err := tokens.GenerateJWT("u-a", "pharmacist", "fac-a", time.Hour)
	require.NoError(t, err)
	admin, err := tokens.GenerateJWT("root", models.RoleSuperAdmin, "", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, call(r, "/admin", "Bearer "+user).Code)
	assert.Equal(t, http.StatusNoContent, call(r, "/admin", "Bearer "+admin).Code)
}
