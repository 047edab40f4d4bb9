package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimit allows each client IP rps requests per second with the given
// burst. Rejected requests get a Retry-After header and are passed to
// onLimited, which must write the response; the chain is aborted afterwards.
func RateLimit(rps float64, burst int, onLimited gin.HandlerFunc) gin.HandlerFunc {
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}
	if burst <= 0 {
		burst = 1
	}
	limiters := expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter, ok := limiters.Get(ip)
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters.Add(ip, limiter)
		}

		c.Header("X-RateLimit-Limit", strconv.FormatFloat(rps, 'f', -1, 64))

		reservation := limiter.Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			onLimited(c)
			if c.Writer.Written() {
				c.Abort()
			} else {
				c.AbortWithStatus(http.StatusTooManyRequests)
			}
			return
		}

		c.Next()
	}
}
