package service

import (
	"chargex_project/internal/domain"
)

// validateRecord enforces the submission contract. A rejected record is
// never partially written: callers must not touch any sink on error.
func validateRecord(record *domain.TelemetryRecord) error {
	if record.DeviceID == "" {
		return &domain.ValidationError{Field: "deviceId", Reason: "is required"}
	}
	if record.BatteryID == "" {
		return &domain.ValidationError{Field: "batteryId", Reason: "is required"}
	}

	if b := record.Battery; b != nil {
		if b.Voltage != nil && b.Voltage.Total < 0 {
			return &domain.ValidationError{Field: "battery.voltage.total", Reason: "must be >= 0"}
		}
		if b.SOC != nil && (*b.SOC < 0 || *b.SOC > 100) {
			return &domain.ValidationError{Field: "battery.soc", Reason: "must be in [0, 100]"}
		}
		if b.SOH != nil && (*b.SOH < 0 || *b.SOH > 100) {
			return &domain.ValidationError{Field: "battery.soh", Reason: "must be in [0, 100]"}
		}
	}

	if loc := record.Location; loc != nil && len(loc.Coordinates) > 0 {
		if len(loc.Coordinates) != 2 {
			return &domain.ValidationError{Field: "location.coordinates", Reason: "must be [longitude, latitude]"}
		}
		lon, lat := loc.Coordinates[0], loc.Coordinates[1]
		if lon < -180 || lon > 180 {
			return &domain.ValidationError{Field: "location.coordinates", Reason: "longitude must be in [-180, 180]"}
		}
		if lat < -90 || lat > 90 {
			return &domain.ValidationError{Field: "location.coordinates", Reason: "latitude must be in [-90, 90]"}
		}
	}

	return nil
}
