package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware guards the owner dashboard routes. The token carries the
// tenant id and the acting user's display name (owner or sub-account).
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		token, err := jwt.Parse(header[7:], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}

		tenantID, _ := claims["sub"].(string)
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid tenant"})
			return
		}
		actor, _ := claims["actor"].(string)
		if actor == "" {
			actor = "Admin"
		}

		c.Set("tenantID", tenantID)
		c.Set("actor", actor)
		c.Next()
	}
}

func GetTenantID(c *gin.Context) string {
	id, _ := c.Get("tenantID")
	tenantID, _ := id.(string)
	return tenantID
}

func GetActor(c *gin.Context) string {
	a, _ := c.Get("actor")
	actor, _ := a.(string)
	return actor
}
