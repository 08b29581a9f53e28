package handlers

import (
	"net/http"

	"marketlink/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the last health check results; it answers 503 if any
// dependency is down.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	for _, up := range status.Services {
		if !up {
			code = http.StatusServiceUnavailable
			break
		}
	}
	c.JSON(code, status)
}
