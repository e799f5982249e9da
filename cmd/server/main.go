package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chargex_project/internal/api"
	"chargex_project/internal/config"
	"chargex_project/internal/fanout"
	"chargex_project/internal/mqtt"
	"chargex_project/internal/predict"
	"chargex_project/internal/repository"
	"chargex_project/internal/service"
	"chargex_project/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize logger
	logger.Init()
	logger.Info("Starting ChargeX Telematics Service")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize storage backends
	db, err := config.InitDatabases(cfg)
	if err != nil {
		log.Fatal("Failed to initialize databases:", err)
	}
	defer db.Close()

	// Repositories
	telemetry := repository.NewMongoTelemetryRepo(db.Mongo)
	alerts := repository.NewMongoAlertRepo(db.Mongo)
	thresholds := repository.NewMongoThresholdRepo(db.Mongo)
	sink := repository.NewInfluxSink(db.Influx)
	cache := repository.NewRedisCache(db.Redis,
		time.Duration(cfg.LatestTelemetryTTLSec)*time.Second,
		time.Duration(cfg.AlertCacheTTLSec)*time.Second,
		time.Duration(cfg.ThresholdCacheTTLSec)*time.Second,
	)

	// Websocket fan-out hub
	hub := fanout.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Services
	alertEngine := service.NewAlertEngine(alerts, cache, hub)
	pipeline := service.NewPipeline(
		telemetry, sink, cache, alertEngine, thresholds, hub,
		time.Duration(cfg.SinkTimeoutMS)*time.Millisecond,
		service.PipelineOptions{},
	)
	query := service.NewQueryService(telemetry, alerts, sink, cache)

	// Prediction engine: trained model if available, heuristic otherwise
	var scorer predict.Scorer
	if trained, err := predict.NewTrainedScorer(cfg.ModelPath); err != nil {
		logger.Warnf("RUL model not available (%v), using heuristic scorer", err)
		scorer = predict.NewHeuristicScorer()
	} else {
		logger.Infof("Loaded RUL model from %s", cfg.ModelPath)
		scorer = trained
	}
	predictor := predict.NewEngine(telemetry, scorer, predict.Params{
		WindowSize:   cfg.RULWindowSize,
		ScaleDays:    cfg.RULScaleDays,
		CriticalDays: cfg.RULCriticalDays,
		WarningDays:  cfg.RULWarningDays,
		GoodDays:     cfg.RULGoodDays,
	})

	// MQTT bridge (optional)
	if cfg.MQTTEnabled {
		bridge, err := mqtt.NewBridge(mqtt.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
		}, pipeline)
		if err != nil {
			logger.Errorf("MQTT bridge disabled: %v", err)
		} else {
			defer bridge.Close()
		}
	}

	// Setup HTTP server
	router := setupRouter(pipeline, query, alertEngine, predictor, hub)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info(fmt.Sprintf("Server starting on port %d", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error:", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced shutdown:", err)
	}

	logger.Info("Server stopped gracefully")
}

func setupRouter(
	pipeline *service.Pipeline,
	query *service.QueryService,
	alerts *service.AlertEngine,
	predictor *predict.Engine,
	hub *fanout.Hub,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(api.Logger())
	r.Use(api.CORS())

	// API routes
	api.SetupRoutes(r, pipeline, query, alerts, predictor, hub)

	return r
}
