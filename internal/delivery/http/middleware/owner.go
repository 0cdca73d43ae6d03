package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OwnerHeader carries the caller identity set by the upstream auth proxy.
const OwnerHeader = "X-Owner-ID"

const ownerKey = "owner_id"

// RequireOwner rejects requests without an owner and stores it for handlers.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing " + OwnerHeader + " header",
			})
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

// Owner returns the owner stored by RequireOwner.
func Owner(c *gin.Context) string {
	return c.GetString(ownerKey)
}
