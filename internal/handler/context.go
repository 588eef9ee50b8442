package handler

import (
	"net/http"

	"fixtrack/backend/internal/service"
	"fixtrack/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentActor rebuilds the authenticated actor from the values the auth
// middleware stored on the request context.
func currentActor(c *gin.Context) (service.Actor, bool) {
	rawID, ok := c.Get("userID")
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
		return service.Actor{}, false
	}
	idStr, _ := rawID.(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return service.Actor{}, false
	}

	return service.Actor{
		ID:   id,
		Name: c.GetString("userName"),
		Role: c.GetString("userRole"),
	}, true
}

// pathUUID parses a uuid path parameter, replying 400 on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
