package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/tracing"
)

// Trigger wakes the bridge loop so the next poll cycle starts immediately
func Trigger(bridge interfaces.BridgeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, _ := tracing.StartTracerSpan(c.Request.Context(), "Trigger")
		defer span.Finish()
		tracing.TagComponentRest(span)

		bridge.TriggerNow()

		c.JSON(http.StatusAccepted, gin.H{
			"status": "scheduled",
		})
	}
}
