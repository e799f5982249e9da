package repository

import (
	"context"
	"time"

	"chargex_project/internal/domain"
)

// TelemetryStore is the durable record of accepted submissions.
type TelemetryStore interface {
	// Insert writes a single record
	Insert(ctx context.Context, record domain.TelemetryRecord) error

	// InsertMany writes a batch of records
	InsertMany(ctx context.Context, records []domain.TelemetryRecord) error

	// Query retrieves records based on filter
	Query(ctx context.Context, filter domain.QueryFilter) ([]domain.TelemetryRecord, error)

	// Count returns number of records matching filter
	Count(ctx context.Context, filter domain.QueryFilter) (int64, error)

	// DistinctBatteryIDs returns up to limit battery ids observed in telemetry
	DistinctBatteryIDs(ctx context.Context, limit int) ([]string, error)
}

// AlertFilter narrows alert reads.
type AlertFilter struct {
	DeviceID  string
	BatteryID string
	Status    domain.AlertStatus
	Severity  domain.AlertSeverity
	Limit     int
}

// AlertStore is the durable record of alerts.
type AlertStore interface {
	// UpsertActive atomically bumps the active alert for (deviceId, type)
	// or creates it with occurrences = 1. Returns the post-update alert and
	// whether it was newly created.
	UpsertActive(ctx context.Context, candidate domain.Alert) (domain.Alert, bool, error)

	// FindByID returns a single alert or domain.ErrNotFound
	FindByID(ctx context.Context, id string) (domain.Alert, error)

	// Find retrieves alerts based on filter, newest first
	Find(ctx context.Context, filter AlertFilter) ([]domain.Alert, error)

	// Resolve transitions an alert to resolved
	Resolve(ctx context.Context, id, resolvedBy, resolution string) (domain.Alert, error)

	// Acknowledge transitions an alert to acknowledged
	Acknowledge(ctx context.Context, id, acknowledgedBy string) (domain.Alert, error)
}

// MetricQuery selects scalar points from the time-series sink.
type MetricQuery struct {
	Measurement string
	DeviceID    string
	BatteryID   string
	Field       string
	Start       *time.Time
	End         *time.Time
	Aggregation string // "", "mean", "max", "min"
	IntervalSec int
	Limit       int
}

// MetricRow is one row of a time-series query result.
type MetricRow struct {
	Time   time.Time              `json:"time"`
	Values map[string]interface{} `json:"values"`
}

// TimeSeriesSink stores scalar metric projections of telemetry. Writes are
// best-effort for analytics; a failing sink must never fail ingestion.
type TimeSeriesSink interface {
	WriteRecord(ctx context.Context, record domain.TelemetryRecord) error
	QueryMetric(ctx context.Context, q MetricQuery) ([]MetricRow, error)
}

// HotCache holds short-TTL "most recent value" snapshots, distinct from the
// durable primary store.
type HotCache interface {
	SetLatestTelemetry(ctx context.Context, record domain.TelemetryRecord) error
	LatestTelemetryByDevice(ctx context.Context, deviceID string) (*domain.TelemetryRecord, error)
	LatestTelemetryByBattery(ctx context.Context, batteryID string) (*domain.TelemetryRecord, error)

	SetAlert(ctx context.Context, alert domain.Alert) error
	Alert(ctx context.Context, id string) (*domain.Alert, error)

	SetThresholds(ctx context.Context, deviceID string, cfg domain.ThresholdConfig) error
	Thresholds(ctx context.Context, deviceID string) (*domain.ThresholdConfig, error)
}
