package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailbridge/api/handlers"
	"github.com/customeros/mailbridge/api/middleware"
	"github.com/customeros/mailbridge/internal/tracing"
	"github.com/customeros/mailbridge/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())                                         // Gin's built-in recovery
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer())) // Our custom Jaeger recovery

	// Health check and status endpoints (no auth needed)
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Status(s.BridgeService))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-MAILBRIDGE-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.TracingMiddleware()) // Add tracing for all /v1/* endpoints
	{
		api.POST("/trigger", handlers.Trigger(s.BridgeService))
	}
}
