package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pawsitter-settlement/internal/api_gateway/middleware"
)

// pathUUID parses a path parameter, answering 400 when it is not a UUID
func pathUUID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondBadRequest(c, "Invalid "+label)
		return uuid.Nil, false
	}
	return id, true
}

// callerID reads the caller set by the identity middleware
func callerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetCallerID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return uuid.Nil, false
	}
	return id, true
}
