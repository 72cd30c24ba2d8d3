package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
)

// RateLimit throttles requests per client IP using the redis-backed
// counter. On a redis failure it fails open so the backend outage does not
// take the API down with it.
func RateLimit(stateRepo repository.StateRepository, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s", c.ClientIP())

		exceeded, err := stateRepo.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logrus.WithField("client_ip", c.ClientIP()).WithError(err).Warn("Rate limit check failed, allowing request")
			c.Next()
			return
		}
		if exceeded {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
