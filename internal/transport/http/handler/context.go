package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"pdfquery/internal/transport/http/middleware"
)

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := raw.(uint)
	return userID, ok && userID != 0
}

func getSessionIDFromContext(c *gin.Context) (string, bool) {
	raw, exists := c.Get(middleware.ContextSessionIDKey)
	if !exists {
		return "", false
	}
	sessionID, ok := raw.(string)
	return sessionID, ok && sessionID != ""
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	u, err := strconv.ParseUint(c.Param(key), 10, 64)
	return uint(u), err
}
