package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/customeros/mailbridge/interfaces"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Status returns the current state and counters of the bridge loop
func Status(bridge interfaces.BridgeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := bridge.Status()
		c.JSON(http.StatusOK, status)
	}
}
