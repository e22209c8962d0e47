package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDKey    = "user_id"
	userEmailKey = "user_email"
)

// AuthMiddleware validates the Authorization bearer token and stores the
// caller's id and email in the gin context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(os.Getenv("JWT_SECRET")), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		userID, ok := claims["id"].(string)
		if !ok || userID == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		if email, ok := claims["email"].(string); ok {
			c.Set(userEmailKey, email)
		}

		c.Next()
	}
}

// GetUserID returns the authenticated user's id, or "" when unauthenticated.
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// GetUserEmail returns the authenticated user's email, or "".
func GetUserEmail(c *gin.Context) string {
	return c.GetString(userEmailKey)
}
