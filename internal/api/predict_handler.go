package api

import (
	"net/http"

	"chargex_project/internal/domain"
	"chargex_project/internal/predict"
	"chargex_project/pkg/logger"

	"github.com/gin-gonic/gin"
)

// PredictHandler handles predictive maintenance HTTP requests
type PredictHandler struct {
	engine *predict.Engine
}

// NewPredictHandler creates a new prediction handler
func NewPredictHandler(engine *predict.Engine) *PredictHandler {
	return &PredictHandler{engine: engine}
}

// PredictRUL handles GET /api/predictions/battery/:batteryId
func (h *PredictHandler) PredictRUL(c *gin.Context) {
	result, err := h.engine.Predict(c.Request.Context(), c.Param("batteryId"))
	if err != nil {
		if domain.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Prediction failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecommendations handles GET /api/predictions/battery/:batteryId/recommendations
func (h *PredictHandler) GetRecommendations(c *gin.Context) {
	recs, err := h.engine.Recommend(c.Request.Context(), c.Param("batteryId"))
	if err != nil {
		if domain.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Recommendation failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batteryId":       c.Param("batteryId"),
		"recommendations": recs,
		"count":           len(recs),
	})
}

// GetFleetOverview handles GET /api/predictions/fleet/overview
func (h *PredictHandler) GetFleetOverview(c *gin.Context) {
	overview, err := h.engine.FleetOverview(c.Request.Context(), getIntParam(c, "limit", 0))
	if err != nil {
		logger.Error("Fleet overview failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, overview)
}
