package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chargex_project/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements HotCache on Redis. Keys mirror the dashboard
// contract: device:<id>:latest_telemetry, battery:<id>:latest_telemetry,
// alert:<id>, device:<id>:config.
type RedisCache struct {
	client       *redis.Client
	telemetryTTL time.Duration
	alertTTL     time.Duration
	thresholdTTL time.Duration
}

// NewRedisCache creates a Redis-backed hot cache with per-kind TTLs.
func NewRedisCache(client *redis.Client, telemetryTTL, alertTTL, thresholdTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:       client,
		telemetryTTL: telemetryTTL,
		alertTTL:     alertTTL,
		thresholdTTL: thresholdTTL,
	}
}

// SetLatestTelemetry stores the record under both the device-keyed and the
// battery-keyed latest slots.
func (c *RedisCache) SetLatestTelemetry(ctx context.Context, record domain.TelemetryRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry: %w", err)
	}

	pipe := c.client.Pipeline()
	if record.DeviceID != "" {
		pipe.Set(ctx, fmt.Sprintf("device:%s:latest_telemetry", record.DeviceID), payload, c.telemetryTTL)
	}
	if record.BatteryID != "" {
		pipe.Set(ctx, fmt.Sprintf("battery:%s:latest_telemetry", record.BatteryID), payload, c.telemetryTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// LatestTelemetryByDevice returns the device's latest record or nil.
func (c *RedisCache) LatestTelemetryByDevice(ctx context.Context, deviceID string) (*domain.TelemetryRecord, error) {
	return c.getTelemetry(ctx, fmt.Sprintf("device:%s:latest_telemetry", deviceID))
}

// LatestTelemetryByBattery returns the battery's latest record or nil.
func (c *RedisCache) LatestTelemetryByBattery(ctx context.Context, batteryID string) (*domain.TelemetryRecord, error) {
	return c.getTelemetry(ctx, fmt.Sprintf("battery:%s:latest_telemetry", batteryID))
}

func (c *RedisCache) getTelemetry(ctx context.Context, key string) (*domain.TelemetryRecord, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var record domain.TelemetryRecord
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached telemetry: %w", err)
	}
	return &record, nil
}

// SetAlert caches an alert by id.
func (c *RedisCache) SetAlert(ctx context.Context, alert domain.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	key := fmt.Sprintf("alert:%s", alert.ID)
	if err := c.client.Set(ctx, key, payload, c.alertTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Alert returns a cached alert or nil.
func (c *RedisCache) Alert(ctx context.Context, id string) (*domain.Alert, error) {
	val, err := c.client.Get(ctx, fmt.Sprintf("alert:%s", id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var alert domain.Alert
	if err := json.Unmarshal(val, &alert); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached alert: %w", err)
	}
	return &alert, nil
}

// SetThresholds caches a device's threshold configuration.
func (c *RedisCache) SetThresholds(ctx context.Context, deviceID string, cfg domain.ThresholdConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal thresholds: %w", err)
	}
	key := fmt.Sprintf("device:%s:config", deviceID)
	if err := c.client.Set(ctx, key, payload, c.thresholdTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Thresholds returns a device's cached threshold configuration or nil.
func (c *RedisCache) Thresholds(ctx context.Context, deviceID string) (*domain.ThresholdConfig, error) {
	val, err := c.client.Get(ctx, fmt.Sprintf("device:%s:config", deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cfg domain.ThresholdConfig
	if err := json.Unmarshal(val, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached thresholds: %w", err)
	}
	return &cfg, nil
}
