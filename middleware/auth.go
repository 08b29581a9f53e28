package middleware

import (
	"net/http"
	"strings"

	"marketlink/models"
	"marketlink/utils"

	"github.com/gin-gonic/gin"
)

const (
	partyIDKey = "partyID"
	roleKey    = "role"
)

// JWTAuthMiddleware accepts a bearer token issued by the identity service and puts
// the caller's party id and role on the context. Browsers cannot set headers on
// EventSource and WebSocket requests, so a "token" query parameter is accepted too.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		partyID, role, err := utils.ExtractIdentity(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		if !models.Role(role).Valid() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Token role must be seeker or provider"})
			return
		}

		c.Set(partyIDKey, partyID)
		c.Set(roleKey, models.Role(role))
		c.Next()
	}
}

// Identity returns the caller set by JWTAuthMiddleware.
func Identity(c *gin.Context) (string, models.Role, bool) {
	partyID := c.GetString(partyIDKey)
	raw, exists := c.Get(roleKey)
	role, ok := raw.(models.Role)
	if !exists || !ok || partyID == "" {
		return "", "", false
	}
	return partyID, role, true
}

// RequireRole rejects callers whose token carries a different role.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, r, ok := Identity(c); !ok || r != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Only " + string(role) + "s may do this"})
			return
		}
		c.Next()
	}
}
