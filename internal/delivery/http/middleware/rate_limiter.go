package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// windowEntry tracks the request count of one client in the current window.
type windowEntry struct {
	count int
	start time.Time
}

// RateLimiter returns a middleware that allows maxRequests per minute per
// client. Clients are keyed by owner when the owner header is present and by
// IP otherwise.
func RateLimiter(maxRequests int) gin.HandlerFunc {
	var mu sync.Mutex
	clients := make(map[string]*windowEntry)
	lastSweep := time.Now()

	return func(c *gin.Context) {
		key := c.GetHeader(OwnerHeader)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > 5*time.Minute {
			for k, e := range clients {
				if now.Sub(e.start) > 2*time.Minute {
					delete(clients, k)
				}
			}
			lastSweep = now
		}

		entry, ok := clients[key]
		if !ok || now.Sub(entry.start) > time.Minute {
			entry = &windowEntry{start: now}
			clients[key] = entry
		}
		if entry.count >= maxRequests {
			retry := time.Minute - now.Sub(entry.start)
			mu.Unlock()
			c.Header("Retry-After", fmt.Sprintf("%d", int(retry.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Rate limit exceeded. Maximum %d requests per minute.", maxRequests),
			})
			return
		}
		entry.count++
		mu.Unlock()

		c.Next()
	}
}
