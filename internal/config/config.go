package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	// Server
	ServerPort int

	// MongoDB
	MongoURI string
	MongoDB  string

	// InfluxDB
	InfluxURL      string
	InfluxToken    string
	InfluxDatabase string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MQTT bridge (disabled unless MQTT_ENABLED=true)
	MQTTEnabled   bool
	MQTTBrokerURL string
	MQTTUsername  string
	MQTTPassword  string

	// Pipeline
	SinkTimeoutMS          int // per-call budget for secondary sinks
	LatestTelemetryTTLSec  int
	AlertCacheTTLSec       int
	ThresholdCacheTTLSec   int
	TelemetryRetentionDays int

	// Predictive engine
	ModelPath      string
	RULWindowSize  int
	RULScaleDays   float64
	RULCriticalDays float64
	RULWarningDays  float64
	RULGoodDays     float64

	// Logging
	LogLevel string
	LogDir   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DATABASE", "chargex_telematics"),

		InfluxURL:      getEnv("INFLUXDB_URL", "http://localhost:8086"),
		InfluxToken:    getEnv("INFLUXDB_TOKEN", ""),
		InfluxDatabase: getEnv("INFLUXDB_DATABASE", "telemetry"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MQTTEnabled:   getEnvBool("MQTT_ENABLED", false),
		MQTTBrokerURL: getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTUsername:  getEnv("MQTT_USERNAME", ""),
		MQTTPassword:  getEnv("MQTT_PASSWORD", ""),

		SinkTimeoutMS:          getEnvInt("SINK_TIMEOUT_MS", 3000),
		LatestTelemetryTTLSec:  getEnvInt("LATEST_TELEMETRY_TTL", 3600),
		AlertCacheTTLSec:       getEnvInt("ALERT_CACHE_TTL", 86400),
		ThresholdCacheTTLSec:   getEnvInt("THRESHOLD_CACHE_TTL", 86400),
		TelemetryRetentionDays: getEnvInt("TELEMETRY_RETENTION_DAYS", 30),

		ModelPath:       getEnv("RUL_MODEL_PATH", "./models/rul_model.json"),
		RULWindowSize:   getEnvInt("RUL_WINDOW_SIZE", 50),
		RULScaleDays:    getEnvFloat("RUL_SCALE_DAYS", 365),
		RULCriticalDays: getEnvFloat("RUL_CRITICAL_DAYS", 30),
		RULWarningDays:  getEnvFloat("RUL_WARNING_DAYS", 90),
		RULGoodDays:     getEnvFloat("RUL_GOOD_DAYS", 180),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogDir:   getEnv("LOG_DIRECTORY", "./logs"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.ServerPort)
	}

	if c.RULWindowSize < 1 {
		return fmt.Errorf("invalid RUL_WINDOW_SIZE: %d (must be >= 1)", c.RULWindowSize)
	}

	if c.RULCriticalDays >= c.RULWarningDays {
		return fmt.Errorf("RUL_CRITICAL_DAYS (%v) must be below RUL_WARNING_DAYS (%v)",
			c.RULCriticalDays, c.RULWarningDays)
	}

	if c.SinkTimeoutMS < 100 {
		return fmt.Errorf("invalid SINK_TIMEOUT_MS: %d (must be >= 100)", c.SinkTimeoutMS)
	}

	if c.TelemetryRetentionDays < 1 {
		return fmt.Errorf("invalid TELEMETRY_RETENTION_DAYS: %d", c.TelemetryRetentionDays)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
