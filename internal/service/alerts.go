package service

import (
	"context"
	"fmt"
	"math"

	"chargex_project/internal/domain"
	"chargex_project/internal/fanout"
	"chargex_project/internal/repository"
	"chargex_project/pkg/logger"
)

const earthRadiusMeters = 6371000

// AlertEngine evaluates telemetry against per-device thresholds,
// deduplicates against the active-alert set in the primary store, and fans
// out every raised-or-bumped alert.
type AlertEngine struct {
	alerts repository.AlertStore
	cache  repository.HotCache
	bus    fanout.Bus
}

// NewAlertEngine creates an alert engine.
func NewAlertEngine(alerts repository.AlertStore, cache repository.HotCache, bus fanout.Bus) *AlertEngine {
	return &AlertEngine{alerts: alerts, cache: cache, bus: bus}
}

// candidate is a threshold violation before deduplication.
type candidate struct {
	Type     domain.AlertType
	Severity domain.AlertSeverity
	Message  string
	Data     domain.AlertData
}

// Evaluate checks one record against the device's thresholds and returns
// the alerts raised or bumped. A failure in one dimension never suppresses
// the remaining dimensions.
func (e *AlertEngine) Evaluate(ctx context.Context, record domain.TelemetryRecord, thresholds *domain.ThresholdConfig) []domain.Alert {
	if thresholds == nil {
		return nil
	}

	dimensions := []struct {
		name  string
		check func(domain.TelemetryRecord, *domain.ThresholdConfig) []candidate
	}{
		{"voltage", checkVoltage},
		{"temperature", checkTemperature},
		{"soc", checkSOC},
		{"device_battery", checkDeviceBattery},
		{"signal_strength", checkSignalStrength},
		{"geofence", checkGeofence},
	}

	var alerts []domain.Alert
	for _, dim := range dimensions {
		candidates := e.safeCheck(dim.name, dim.check, record, thresholds)
		for _, cand := range candidates {
			alert, err := e.raise(ctx, record, cand)
			if err != nil {
				logger.Errorf("Failed to raise %s alert for device %s: %v", cand.Type, record.DeviceID, err)
				continue
			}
			alerts = append(alerts, alert)
		}
	}

	return alerts
}

// safeCheck runs one dimension check, absorbing panics so a malformed
// threshold cannot suppress alerting for the remaining dimensions.
func (e *AlertEngine) safeCheck(
	name string,
	check func(domain.TelemetryRecord, *domain.ThresholdConfig) []candidate,
	record domain.TelemetryRecord,
	thresholds *domain.ThresholdConfig,
) (result []candidate) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Alert dimension %s failed for device %s: %v", name, record.DeviceID, r)
			result = nil
		}
	}()
	return check(record, thresholds)
}

// raise deduplicates the candidate against the active-alert set and
// publishes the created-or-bumped alert to the global, device and battery
// rooms.
func (e *AlertEngine) raise(ctx context.Context, record domain.TelemetryRecord, cand candidate) (domain.Alert, error) {
	alert, _, err := e.alerts.UpsertActive(ctx, domain.Alert{
		Type:      cand.Type,
		Severity:  cand.Severity,
		DeviceID:  record.DeviceID,
		BatteryID: record.BatteryID,
		Message:   cand.Message,
		Data:      cand.Data,
	})
	if err != nil {
		return domain.Alert{}, err
	}

	if e.cache != nil {
		if err := e.cache.SetAlert(ctx, alert); err != nil {
			logger.Warnf("Failed to cache alert %s: %v", alert.ID, err)
		}
	}

	if e.bus != nil {
		e.bus.Publish(fanout.GlobalRoom, fanout.EventNewAlert, alert)
		e.bus.Publish(fanout.DeviceRoom(alert.DeviceID), fanout.EventDeviceAlert, alert)
		if alert.BatteryID != "" {
			e.bus.Publish(fanout.BatteryRoom(alert.BatteryID), fanout.EventBatteryAlert, alert)
		}
	}

	return alert, nil
}

// Resolve transitions an alert to resolved and announces it fleet-wide.
func (e *AlertEngine) Resolve(ctx context.Context, id, resolvedBy, resolution string) (domain.Alert, error) {
	alert, err := e.alerts.Resolve(ctx, id, resolvedBy, resolution)
	if err != nil {
		return domain.Alert{}, err
	}

	if e.cache != nil {
		if err := e.cache.SetAlert(ctx, alert); err != nil {
			logger.Warnf("Failed to cache resolved alert %s: %v", alert.ID, err)
		}
	}
	if e.bus != nil {
		e.bus.Publish(fanout.GlobalRoom, fanout.EventAlertResolved, alert)
	}
	return alert, nil
}

// Acknowledge transitions an alert to acknowledged.
func (e *AlertEngine) Acknowledge(ctx context.Context, id, acknowledgedBy string) (domain.Alert, error) {
	alert, err := e.alerts.Acknowledge(ctx, id, acknowledgedBy)
	if err != nil {
		return domain.Alert{}, err
	}

	if e.cache != nil {
		if err := e.cache.SetAlert(ctx, alert); err != nil {
			logger.Warnf("Failed to cache acknowledged alert %s: %v", alert.ID, err)
		}
	}
	return alert, nil
}

func checkVoltage(record domain.TelemetryRecord, th *domain.ThresholdConfig) []candidate {
	if record.Battery == nil || record.Battery.Voltage == nil || th.Voltage == nil {
		return nil
	}

	total := record.Battery.Voltage.Total
	var out []candidate

	if th.Voltage.Min != nil && total < *th.Voltage.Min {
		out = append(out, candidate{
			Type:     domain.AlertVoltageLow,
			Severity: domain.SeverityWarning,
			Message: fmt.Sprintf("Battery voltage (%gV) below minimum threshold (%gV)",
				total, *th.Voltage.Min),
			Data: domain.AlertData{Current: total, Threshold: *th.Voltage.Min, Unit: "V"},
		})
	}

	if th.Voltage.Max != nil && total > *th.Voltage.Max {
		out = append(out, candidate{
			Type:     domain.AlertVoltageHigh,
			Severity: domain.SeverityWarning,
			Message: fmt.Sprintf("Battery voltage (%gV) above maximum threshold (%gV)",
				total, *th.Voltage.Max),
			Data: domain.AlertData{Current: total, Threshold: *th.Voltage.Max, Unit: "V"},
		})
	}

	return out
}

func checkTemperature(record domain.TelemetryRecord, th *domain.ThresholdConfig) []candidate {
	if record.Battery == nil || record.Battery.Temperature == nil || th.Temperature == nil {
		return nil
	}

	average := record.Battery.Temperature.Average
	var out []candidate

	if th.Temperature.Min != nil && average < *th.Temperature.Min {
		out = append(out, candidate{
			Type:     domain.AlertTemperatureLow,
			Severity: domain.SeverityWarning,
			Message: fmt.Sprintf("Battery temperature (%g°C) below minimum threshold (%g°C)",
				average, *th.Temperature.Min),
			Data: domain.AlertData{Current: average, Threshold: *th.Temperature.Min, Unit: "°C"},
		})
	}

	if th.Temperature.Max != nil && average > *th.Temperature.Max {
		severity := domain.SeverityWarning
		if th.Temperature.CriticalMax != nil && average > *th.Temperature.CriticalMax {
			severity = domain.SeverityCritical
		}
		out = append(out, candidate{
			Type:     domain.AlertTemperatureHigh,
			Severity: severity,
			Message: fmt.Sprintf("Battery temperature (%g°C) above maximum threshold (%g°C)",
				average, *th.Temperature.Max),
			Data: domain.AlertData{Current: average, Threshold: *th.Temperature.Max, Unit: "°C"},
		})
	}

	return out
}

func checkSOC(record domain.TelemetryRecord, th *domain.ThresholdConfig) []candidate {
	if record.Battery == nil || record.Battery.SOC == nil || th.SOC == nil || th.SOC.Min == nil {
		return nil
	}

	soc := *record.Battery.SOC
	if soc >= *th.SOC.Min {
		return nil
	}

	severity := domain.SeverityWarning
	if th.SOC.CriticalMin != nil && soc < *th.SOC.CriticalMin {
		severity = domain.SeverityCritical
	}

	return []candidate{{
		Type:     domain.AlertSOCLow,
		Severity: severity,
		Message: fmt.Sprintf("Battery SOC (%g%%) below minimum threshold (%g%%)",
			soc, *th.SOC.Min),
		Data: domain.AlertData{Current: soc, Threshold: *th.SOC.Min, Unit: "%"},
	}}
}

func checkDeviceBattery(record domain.TelemetryRecord, th *domain.ThresholdConfig) []candidate {
	if record.System == nil || record.System.BatteryLevel == nil || th.DeviceBattery == nil || th.DeviceBattery.Min == nil {
		return nil
	}

	level := *record.System.BatteryLevel
	if level >= *th.DeviceBattery.Min {
		return nil
	}

	return []candidate{{
		Type:     domain.AlertDeviceBatteryLow,
		Severity: domain.SeverityWarning,
		Message: fmt.Sprintf("Device battery level (%g%%) below minimum threshold (%g%%)",
			level, *th.DeviceBattery.Min),
		Data: domain.AlertData{Current: level, Threshold: *th.DeviceBattery.Min, Unit: "%"},
	}}
}

func checkSignalStrength(record domain.TelemetryRecord, th *domain.ThresholdConfig) []candidate {
	if record.System == nil || record.System.SignalStrength == nil || th.SignalStrength == nil || th.SignalStrength.Min == nil {
		return nil
	}

	strength := *record.System.SignalStrength
	if strength >= *th.SignalStrength.Min {
		return nil
	}

	return []candidate{{
		Type:     domain.AlertSignalStrengthLow,
		Severity: domain.SeverityInfo,
		Message: fmt.Sprintf("Signal strength (%g%%) below minimum threshold (%g%%)",
			strength, *th.SignalStrength.Min),
		Data: domain.AlertData{Current: strength, Threshold: *th.SignalStrength.Min, Unit: "%"},
	}}
}

func checkGeofence(record domain.TelemetryRecord, th *domain.ThresholdConfig) []candidate {
	gf := th.Geofence
	if gf == nil || !gf.Enabled || len(gf.Center) != 2 || gf.RadiusMeters <= 0 {
		return nil
	}
	if record.Location == nil || len(record.Location.Coordinates) != 2 {
		return nil
	}

	coords := record.Location.Coordinates
	distance := haversineDistance(coords[1], coords[0], gf.Center[1], gf.Center[0])

	// A point at exactly the radius is inside.
	if distance <= gf.RadiusMeters {
		return nil
	}

	return []candidate{{
		Type:     domain.AlertGeofenceViolation,
		Severity: domain.SeverityWarning,
		Message: fmt.Sprintf("Device outside geofence (%.2fm from center, radius: %gm)",
			distance, gf.RadiusMeters),
		Data: domain.AlertData{
			Current:     distance,
			Threshold:   gf.RadiusMeters,
			Unit:        "m",
			Coordinates: coords,
			Center:      gf.Center,
		},
	}}
}

// haversineDistance returns the great-circle distance in meters.
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
