// Package middleware provides gin middleware for authentication and
// rate limiting.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// Context keys populated by Auth for downstream handlers.
const (
	ContextUserIDKey    = "user_id"
	ContextUserEmailKey = "user_email"
)

// Auth validates the Bearer token and puts user_id and user_email into the
// gin context.
func Auth(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return jwtSecret, nil
		})
		if err != nil {
			var ve *jwt.ValidationError
			switch {
			case errors.Is(err, jwt.ErrSignatureInvalid):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token signature is invalid"})
			case errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			case errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorMalformed != 0:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is malformed"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			c.Abort()
			return
		}
		if !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is not valid"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		rawID, ok := claims["user_id"].(float64)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}
		email, _ := claims["email"].(string)

		userID := uint(rawID)
		logrus.WithFields(logrus.Fields{"user_id": userID, "path": c.Request.URL.Path}).Debug("Authenticated request")
		c.Set(ContextUserIDKey, userID)
		c.Set(ContextUserEmailKey, email)
		c.Next()
	}
}
