package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"chargex_project/internal/domain"
	"chargex_project/internal/repository"
	"chargex_project/internal/service"
	"chargex_project/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handler handles telemetry HTTP requests
type Handler struct {
	pipeline *service.Pipeline
	query    *service.QueryService
}

// NewHandler creates a new handler
func NewHandler(pipeline *service.Pipeline, query *service.QueryService) *Handler {
	return &Handler{pipeline: pipeline, query: query}
}

// SubmitTelemetry handles POST /api/telemetry
func (h *Handler) SubmitTelemetry(c *gin.Context) {
	var record domain.TelemetryRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	result, err := h.pipeline.Submit(c.Request.Context(), record)
	if err != nil {
		if domain.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Telemetry submit failed: " + err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to store telemetry"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"result": result,
	})
}

// SubmitTelemetryBatch handles POST /api/telemetry/batch
func (h *Handler) SubmitTelemetryBatch(c *gin.Context) {
	var records []domain.TelemetryRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Batch is empty"})
		return
	}

	result, err := h.pipeline.SubmitBatch(c.Request.Context(), records)
	if err != nil {
		if domain.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Telemetry batch failed: " + err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to store telemetry batch"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"result": result,
	})
}

// GetDeviceTelemetry handles GET /api/telemetry/device/:deviceId
func (h *Handler) GetDeviceTelemetry(c *gin.Context) {
	filter := buildQueryFilter(c)
	filter.DeviceID = c.Param("deviceId")
	h.respondTelemetry(c, filter)
}

// GetBatteryTelemetry handles GET /api/telemetry/battery/:batteryId
func (h *Handler) GetBatteryTelemetry(c *gin.Context) {
	filter := buildQueryFilter(c)
	filter.BatteryID = c.Param("batteryId")
	h.respondTelemetry(c, filter)
}

func (h *Handler) respondTelemetry(c *gin.Context, filter domain.QueryFilter) {
	records, total, err := h.query.Telemetry(c.Request.Context(), filter)
	if err != nil {
		logger.Error("Telemetry query failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  records,
		"count": len(records),
		"total": total,
		"limit": filter.Limit,
		"skip":  filter.Skip,
	})
}

// GetLatestDeviceTelemetry handles GET /api/telemetry/device/:deviceId/latest
func (h *Handler) GetLatestDeviceTelemetry(c *gin.Context) {
	record, err := h.query.LatestByDevice(c.Request.Context(), c.Param("deviceId"))
	h.respondLatest(c, record, err)
}

// GetLatestBatteryTelemetry handles GET /api/telemetry/battery/:batteryId/latest
func (h *Handler) GetLatestBatteryTelemetry(c *gin.Context) {
	record, err := h.query.LatestByBattery(c.Request.Context(), c.Param("batteryId"))
	h.respondLatest(c, record, err)
}

func (h *Handler) respondLatest(c *gin.Context, record *domain.TelemetryRecord, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No telemetry found"})
			return
		}
		logger.Error("Latest telemetry lookup failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetMetrics handles GET /api/metrics
func (h *Handler) GetMetrics(c *gin.Context) {
	q := repository.MetricQuery{
		Measurement: c.Query("measurement"),
		DeviceID:    c.Query("deviceId"),
		BatteryID:   c.Query("batteryId"),
		Field:       c.Query("field"),
		Aggregation: c.Query("aggregation"),
		IntervalSec: getIntParam(c, "interval", 0),
		Limit:       getIntParam(c, "limit", 1000),
	}
	if q.Measurement == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "measurement is required"})
		return
	}
	if start, ok := getTimeParam(c, "startDate"); ok {
		q.Start = &start
	}
	if end, ok := getTimeParam(c, "endDate"); ok {
		q.End = &end
	}

	rows, err := h.query.Metrics(c.Request.Context(), q)
	if err != nil {
		logger.Error("Metric query failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  rows,
		"count": len(rows),
	})
}

// GetStats handles GET /api/stats
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Stats())
}

func buildQueryFilter(c *gin.Context) domain.QueryFilter {
	filter := domain.QueryFilter{
		Limit:   getIntParam(c, "limit", 100),
		Skip:    getIntParam(c, "skip", 0),
		SortAsc: c.Query("sort") == "asc",
	}
	if start, ok := getTimeParam(c, "startDate"); ok {
		filter.StartTime = &start
	}
	if end, ok := getTimeParam(c, "endDate"); ok {
		filter.EndTime = &end
	}
	return filter
}

func getIntParam(c *gin.Context, name string, def int) int {
	str := c.Query(name)
	if str == "" {
		return def
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return def
	}
	return val
}

func getTimeParam(c *gin.Context, name string) (time.Time, bool) {
	str := c.Query(name)
	if str == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
