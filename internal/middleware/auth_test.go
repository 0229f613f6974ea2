package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func setupRouter(secret string) (*gin.Engine, *string, *string) {
	gin.SetMode(gin.TestMode)
	var tenantID, actor string
	r := gin.New()
	r.GET("/protected", AuthMiddleware(secret), func(c *gin.Context) {
		tenantID = GetTenantID(c)
		actor = GetActor(c)
		c.Status(http.StatusOK)
	})
	return r, &tenantID, &actor
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	r, tenantID, actor := setupRouter("secret")

	token := signToken(t, "secret", jwt.MapClaims{
		"sub":   "user_abc",
		"slug":  "loja",
		"actor": "Carlos",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user_abc", *tenantID)
	assert.Equal(t, "Carlos", *actor)
}

func TestAuthMiddleware_DefaultsActorToAdmin(t *testing.T) {
	r, _, actor := setupRouter("secret")

	token := signToken(t, "secret", jwt.MapClaims{
		"sub": "user_abc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Admin", *actor)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	r, _, _ := setupRouter("secret")

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", jwt.MapClaims{
			"sub": "user_abc",
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"expired", "Bearer " + signToken(t, "secret", jwt.MapClaims{
			"sub": "user_abc",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{"missing tenant", "Bearer " + signToken(t, "secret", jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
