package api

import (
	"chargex_project/internal/fanout"
	"chargex_project/internal/predict"
	"chargex_project/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes plus the websocket endpoint
func SetupRoutes(
	r *gin.Engine,
	pipeline *service.Pipeline,
	query *service.QueryService,
	alerts *service.AlertEngine,
	predictor *predict.Engine,
	hub *fanout.Hub,
) {
	h := NewHandler(pipeline, query)
	alertHandler := NewAlertHandler(alerts, query)
	predictHandler := NewPredictHandler(predictor)
	wsHandler := NewWSHandler(hub)

	api := r.Group("/api")
	{
		// Ingestion
		telemetry := api.Group("/telemetry")
		{
			telemetry.POST("", h.SubmitTelemetry)
			telemetry.POST("/batch", h.SubmitTelemetryBatch)
			telemetry.GET("/device/:deviceId", h.GetDeviceTelemetry)
			telemetry.GET("/device/:deviceId/latest", h.GetLatestDeviceTelemetry)
			telemetry.GET("/battery/:batteryId", h.GetBatteryTelemetry)
			telemetry.GET("/battery/:batteryId/latest", h.GetLatestBatteryTelemetry)
		}

		// Alert lifecycle
		alertGroup := api.Group("/alerts")
		{
			alertGroup.GET("/active", alertHandler.GetActiveAlerts)
			alertGroup.GET("/critical", alertHandler.GetCriticalAlerts)
			alertGroup.GET("/:id", alertHandler.GetAlert)
			alertGroup.POST("/:id/resolve", alertHandler.ResolveAlert)
			alertGroup.POST("/:id/acknowledge", alertHandler.AcknowledgeAlert)
		}

		// Predictive maintenance
		predictions := api.Group("/predictions")
		{
			predictions.GET("/battery/:batteryId", predictHandler.PredictRUL)
			predictions.GET("/battery/:batteryId/recommendations", predictHandler.GetRecommendations)
			predictions.GET("/fleet/overview", predictHandler.GetFleetOverview)
		}

		// Time-series analytics
		api.GET("/metrics", h.GetMetrics)

		// Pipeline counters
		api.GET("/stats", h.GetStats)
	}

	r.GET("/ws", wsHandler.Serve)
}
