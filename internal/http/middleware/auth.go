package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentinel-app/sentinel-backend/internal/auth"
)

const (
	// userIDKey is the Gin context key holding the authenticated user ID.
	userIDKey = "userID"
	// userEmailKey is the Gin context key holding the authenticated email.
	userEmailKey = "userEmail"
)

// RequireAuth verifies the bearer token on every request and stores the
// authenticated identity in the Gin context. Requests without a valid
// token are rejected with the standard 401 envelope; token issuance lives
// in the account subsystem, not here.
func RequireAuth(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.BearerToken(c.GetHeader("Authorization"))
		id, err := v.Verify(raw)
		if err != nil {
			rid, _ := c.Get(requestIDKey)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": asString(rid),
				"code":       "unauthorized",
				"message":    "valid bearer token required",
			})
			return
		}
		c.Set(userIDKey, id.UserID)
		c.Set(userEmailKey, id.Email)
		c.Next()
	}
}

// UserID returns the authenticated user ID stored by RequireAuth, empty
// when the request is unauthenticated.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
