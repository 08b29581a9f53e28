package handlers

import (
	"marketlink/middleware"
	"marketlink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger returns the request logger, tagged with the caller when known.
func getLogger(c *gin.Context) *zap.Logger {
	logger := utils.LoggerFrom(c).With(zap.String("route", c.FullPath()))
	if partyID, role, ok := middleware.Identity(c); ok {
		logger = logger.With(zap.String("partyId", partyID), zap.String("role", string(role)))
	}
	return logger
}
