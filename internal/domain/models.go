package domain

import "time"

// ChargingStatus enumerates the battery charging states reported by devices.
type ChargingStatus string

const (
	StatusCharging    ChargingStatus = "CHARGING"
	StatusDischarging ChargingStatus = "DISCHARGING"
	StatusIdle        ChargingStatus = "IDLE"
	StatusFull        ChargingStatus = "FULL"
	StatusError       ChargingStatus = "ERROR"
)

// BatteryVoltage carries pack voltage plus optional per-cell readings.
type BatteryVoltage struct {
	Total float64   `json:"total" bson:"total"`
	Cells []float64 `json:"cells,omitempty" bson:"cells,omitempty"`
}

// BatteryTemperature carries averaged, per-cell and ambient readings.
type BatteryTemperature struct {
	Average float64   `json:"average" bson:"average"`
	Cells   []float64 `json:"cells,omitempty" bson:"cells,omitempty"`
	Ambient float64   `json:"ambient,omitempty" bson:"ambient,omitempty"`
}

// BatteryData is the battery block of a telemetry record.
type BatteryData struct {
	Voltage        *BatteryVoltage     `json:"voltage,omitempty" bson:"voltage,omitempty"`
	Current        *float64            `json:"current,omitempty" bson:"current,omitempty"`
	Temperature    *BatteryTemperature `json:"temperature,omitempty" bson:"temperature,omitempty"`
	SOC            *float64            `json:"soc,omitempty" bson:"soc,omitempty"`
	SOH            *float64            `json:"soh,omitempty" bson:"soh,omitempty"`
	CycleCount     *int                `json:"cycleCount,omitempty" bson:"cycleCount,omitempty"`
	ChargingStatus ChargingStatus      `json:"chargingStatus,omitempty" bson:"chargingStatus,omitempty"`
}

// LocationData is a GPS fix; Coordinates is [longitude, latitude].
type LocationData struct {
	Coordinates []float64 `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Altitude    float64   `json:"altitude,omitempty" bson:"altitude,omitempty"`
	Speed       float64   `json:"speed,omitempty" bson:"speed,omitempty"`
	Heading     float64   `json:"heading,omitempty" bson:"heading,omitempty"`
	Accuracy    float64   `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
}

// SystemData describes the tracking device itself, not the battery pack.
type SystemData struct {
	CPUTemperature *float64 `json:"cpuTemperature,omitempty" bson:"cpuTemperature,omitempty"`
	SignalStrength *float64 `json:"signalStrength,omitempty" bson:"signalStrength,omitempty"`
	BatteryLevel   *float64 `json:"batteryLevel,omitempty" bson:"batteryLevel,omitempty"`
	MemoryUsage    *float64 `json:"memoryUsage,omitempty" bson:"memoryUsage,omitempty"`
	Uptime         *float64 `json:"uptime,omitempty" bson:"uptime,omitempty"`
}

// TelemetryRecord is one accepted device submission. Records are immutable
// once accepted; field names and nesting are part of the wire contract with
// existing dashboards.
type TelemetryRecord struct {
	DeviceID  string        `json:"deviceId" bson:"deviceId"`
	BatteryID string        `json:"batteryId" bson:"batteryId"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
	Battery   *BatteryData  `json:"battery,omitempty" bson:"battery,omitempty"`
	Location  *LocationData `json:"location,omitempty" bson:"location,omitempty"`
	System    *SystemData   `json:"system,omitempty" bson:"system,omitempty"`
}

// Range is a min/max bound pair; a nil side is not configured.
type Range struct {
	Min *float64 `json:"min,omitempty" bson:"min,omitempty"`
	Max *float64 `json:"max,omitempty" bson:"max,omitempty"`
}

// TemperatureThreshold adds a critical ceiling on top of the soft bounds.
type TemperatureThreshold struct {
	Min         *float64 `json:"min,omitempty" bson:"min,omitempty"`
	Max         *float64 `json:"max,omitempty" bson:"max,omitempty"`
	CriticalMax *float64 `json:"criticalMax,omitempty" bson:"criticalMax,omitempty"`
}

// SOCThreshold adds a critical floor below the soft minimum.
type SOCThreshold struct {
	Min         *float64 `json:"min,omitempty" bson:"min,omitempty"`
	CriticalMin *float64 `json:"criticalMin,omitempty" bson:"criticalMin,omitempty"`
}

// MinThreshold is a lower-bound only dimension.
type MinThreshold struct {
	Min *float64 `json:"min,omitempty" bson:"min,omitempty"`
}

// GeofenceConfig describes a circular geofence; Center is [longitude, latitude].
type GeofenceConfig struct {
	Enabled      bool      `json:"enabled" bson:"enabled"`
	Center       []float64 `json:"center,omitempty" bson:"center,omitempty"`
	RadiusMeters float64   `json:"radiusMeters,omitempty" bson:"radiusMeters,omitempty"`
}

// ThresholdConfig is a device's alert configuration. Owned by the device
// management service; read-only here. A nil dimension is not configured
// and is skipped during evaluation.
type ThresholdConfig struct {
	Voltage        *Range                `json:"voltage,omitempty" bson:"voltage,omitempty"`
	Temperature    *TemperatureThreshold `json:"temperature,omitempty" bson:"temperature,omitempty"`
	SOC            *SOCThreshold         `json:"soc,omitempty" bson:"soc,omitempty"`
	DeviceBattery  *MinThreshold         `json:"deviceBattery,omitempty" bson:"deviceBattery,omitempty"`
	SignalStrength *MinThreshold         `json:"signalStrength,omitempty" bson:"signalStrength,omitempty"`
	Geofence       *GeofenceConfig       `json:"geofence,omitempty" bson:"geofence,omitempty"`
}

// AlertType identifies the threshold dimension an alert was raised for.
type AlertType string

const (
	AlertVoltageLow        AlertType = "battery_voltage_low"
	AlertVoltageHigh       AlertType = "battery_voltage_high"
	AlertTemperatureLow    AlertType = "battery_temperature_low"
	AlertTemperatureHigh   AlertType = "battery_temperature_high"
	AlertSOCLow            AlertType = "battery_soc_low"
	AlertDeviceBatteryLow  AlertType = "device_battery_low"
	AlertSignalStrengthLow AlertType = "signal_strength_low"
	AlertGeofenceViolation AlertType = "geofence_violation"
)

// AlertSeverity grades alerts for dashboards and notification routing.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// AlertData holds the measured value and the threshold that tripped,
// plus type-specific extras (geofence coordinates etc).
type AlertData struct {
	Current     float64   `json:"current" bson:"current"`
	Threshold   float64   `json:"threshold" bson:"threshold"`
	Unit        string    `json:"unit" bson:"unit"`
	Coordinates []float64 `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Center      []float64 `json:"center,omitempty" bson:"center,omitempty"`
}

// Alert is a threshold violation. At most one active alert exists per
// (deviceId, type); re-occurrences bump Occurrences instead of creating
// duplicates. Alerts are never deleted, only status-transitioned.
type Alert struct {
	ID             string        `json:"id" bson:"_id"`
	Type           AlertType     `json:"type" bson:"type"`
	Severity       AlertSeverity `json:"severity" bson:"severity"`
	Status         AlertStatus   `json:"status" bson:"status"`
	DeviceID       string        `json:"deviceId" bson:"deviceId"`
	BatteryID      string        `json:"batteryId,omitempty" bson:"batteryId,omitempty"`
	Message        string        `json:"message" bson:"message"`
	Data           AlertData     `json:"data" bson:"data"`
	Occurrences    int           `json:"occurrences" bson:"occurrences"`
	CreatedAt      time.Time     `json:"createdAt" bson:"createdAt"`
	LastOccurrence time.Time     `json:"lastOccurrence" bson:"lastOccurrence"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	ResolvedBy     string        `json:"resolvedBy,omitempty" bson:"resolvedBy,omitempty"`
	Resolution     string        `json:"resolution,omitempty" bson:"resolution,omitempty"`
	AcknowledgedAt *time.Time    `json:"acknowledgedAt,omitempty" bson:"acknowledgedAt,omitempty"`
	AcknowledgedBy string        `json:"acknowledgedBy,omitempty" bson:"acknowledgedBy,omitempty"`
}

// DeviceStatus is the online/last-seen projection computed from each
// accepted record. The device management service owns persisting it.
type DeviceStatus struct {
	DeviceID       string        `json:"deviceId"`
	LastSeen       time.Time     `json:"lastSeen"`
	Online         bool          `json:"online"`
	BatteryLevel   *float64      `json:"batteryLevel,omitempty"`
	SignalStrength *float64      `json:"signalStrength,omitempty"`
	Location       *LocationData `json:"location,omitempty"`
}

// QueryFilter narrows telemetry reads by id and time range.
type QueryFilter struct {
	DeviceID  string
	BatteryID string
	StartTime *time.Time
	EndTime   *time.Time
	SortAsc   bool
	Skip      int
	Limit     int
}
