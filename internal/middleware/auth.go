package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storyfairy/storyfairy-api/internal/auth"
)

// TokenValidator is what the middleware needs from the auth package.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, error)
}

// AuthMiddleware rejects requests without a valid bearer token and
// stores the verified user id in the context for handlers.
func AuthMiddleware(verifier TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.ExtractBearer(c.GetHeader("Authorization"))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			c.Abort()
			return
		}

		userID, err := verifier.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
