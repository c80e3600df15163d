package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CallerIDHeader carries the authenticated user, set by the upstream auth layer
	CallerIDHeader = "X-User-ID"

	CallerIDKey = "caller_id"
)

// CallerIdentity rejects requests without a valid caller id
func CallerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(CallerIDHeader)
		if raw == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+CallerIDHeader+" header")
			return
		}
		callerID, err := uuid.Parse(raw)
		if err != nil || callerID == uuid.Nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid "+CallerIDHeader+" header")
			return
		}

		c.Set(CallerIDKey, callerID)
		c.Next()
	}
}

// GetCallerID returns the caller set by CallerIdentity
func GetCallerID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(CallerIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
