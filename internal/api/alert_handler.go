package api

import (
	"errors"
	"net/http"

	"chargex_project/internal/domain"
	"chargex_project/internal/service"
	"chargex_project/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AlertHandler handles alert lifecycle HTTP requests
type AlertHandler struct {
	engine *service.AlertEngine
	query  *service.QueryService
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(engine *service.AlertEngine, query *service.QueryService) *AlertHandler {
	return &AlertHandler{engine: engine, query: query}
}

// GetActiveAlerts handles GET /api/alerts/active
func (h *AlertHandler) GetActiveAlerts(c *gin.Context) {
	alerts, err := h.query.ActiveAlerts(c.Request.Context(), c.Query("deviceId"), getIntParam(c, "limit", 100))
	if err != nil {
		logger.Error("Active alert query failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  alerts,
		"count": len(alerts),
	})
}

// GetCriticalAlerts handles GET /api/alerts/critical
func (h *AlertHandler) GetCriticalAlerts(c *gin.Context) {
	alerts, err := h.query.CriticalAlerts(c.Request.Context(), getIntParam(c, "limit", 100))
	if err != nil {
		logger.Error("Critical alert query failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  alerts,
		"count": len(alerts),
	})
}

// GetAlert handles GET /api/alerts/:id
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, err := h.query.AlertByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		logger.Error("Alert lookup failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alert)
}

type resolveRequest struct {
	ResolvedBy string `json:"resolvedBy"`
	Resolution string `json:"resolution"`
}

// ResolveAlert handles POST /api/alerts/:id/resolve
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	alert, err := h.engine.Resolve(c.Request.Context(), c.Param("id"), req.ResolvedBy, req.Resolution)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		logger.Error("Alert resolve failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alert)
}

type acknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledgedBy"`
}

// AcknowledgeAlert handles POST /api/alerts/:id/acknowledge
func (h *AlertHandler) AcknowledgeAlert(c *gin.Context) {
	var req acknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	alert, err := h.engine.Acknowledge(c.Request.Context(), c.Param("id"), req.AcknowledgedBy)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		logger.Error("Alert acknowledge failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alert)
}
