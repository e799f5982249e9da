package service

import (
	"context"

	"chargex_project/internal/domain"
	"chargex_project/internal/repository"
	"chargex_project/pkg/logger"
)

// QueryService exposes the read-only accessors consumed by the API layer.
type QueryService struct {
	telemetry repository.TelemetryStore
	alerts    repository.AlertStore
	sink      repository.TimeSeriesSink
	cache     repository.HotCache
}

// NewQueryService creates the read-side facade.
func NewQueryService(
	telemetry repository.TelemetryStore,
	alerts repository.AlertStore,
	sink repository.TimeSeriesSink,
	cache repository.HotCache,
) *QueryService {
	return &QueryService{telemetry: telemetry, alerts: alerts, sink: sink, cache: cache}
}

// Telemetry returns records matching the filter plus the total match count.
func (q *QueryService) Telemetry(ctx context.Context, filter domain.QueryFilter) ([]domain.TelemetryRecord, int64, error) {
	total, err := q.telemetry.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	records, err := q.telemetry.Query(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// LatestByDevice serves the hot cache first and falls back to the primary
// store when the snapshot expired.
func (q *QueryService) LatestByDevice(ctx context.Context, deviceID string) (*domain.TelemetryRecord, error) {
	if q.cache != nil {
		cached, err := q.cache.LatestTelemetryByDevice(ctx, deviceID)
		if err != nil {
			logger.Warnf("Latest-telemetry cache lookup failed for device %s: %v", deviceID, err)
		} else if cached != nil {
			return cached, nil
		}
	}
	return q.latestFromPrimary(ctx, domain.QueryFilter{DeviceID: deviceID, Limit: 1})
}

// LatestByBattery serves the hot cache first, then the primary store.
func (q *QueryService) LatestByBattery(ctx context.Context, batteryID string) (*domain.TelemetryRecord, error) {
	if q.cache != nil {
		cached, err := q.cache.LatestTelemetryByBattery(ctx, batteryID)
		if err != nil {
			logger.Warnf("Latest-telemetry cache lookup failed for battery %s: %v", batteryID, err)
		} else if cached != nil {
			return cached, nil
		}
	}
	return q.latestFromPrimary(ctx, domain.QueryFilter{BatteryID: batteryID, Limit: 1})
}

func (q *QueryService) latestFromPrimary(ctx context.Context, filter domain.QueryFilter) (*domain.TelemetryRecord, error) {
	records, err := q.telemetry.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	return &records[0], nil
}

// ActiveAlerts returns active alerts, optionally narrowed by device.
func (q *QueryService) ActiveAlerts(ctx context.Context, deviceID string, limit int) ([]domain.Alert, error) {
	return q.alerts.Find(ctx, repository.AlertFilter{
		DeviceID: deviceID,
		Status:   domain.AlertActive,
		Limit:    limit,
	})
}

// CriticalAlerts returns active critical alerts fleet-wide.
func (q *QueryService) CriticalAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	return q.alerts.Find(ctx, repository.AlertFilter{
		Status:   domain.AlertActive,
		Severity: domain.SeverityCritical,
		Limit:    limit,
	})
}

// AlertByID serves the hot cache first, then the primary store.
func (q *QueryService) AlertByID(ctx context.Context, id string) (domain.Alert, error) {
	if q.cache != nil {
		cached, err := q.cache.Alert(ctx, id)
		if err != nil {
			logger.Warnf("Alert cache lookup failed for %s: %v", id, err)
		} else if cached != nil {
			return *cached, nil
		}
	}
	return q.alerts.FindByID(ctx, id)
}

// Metrics runs an aggregation query against the time-series sink.
func (q *QueryService) Metrics(ctx context.Context, query repository.MetricQuery) ([]repository.MetricRow, error) {
	return q.sink.QueryMetric(ctx, query)
}
