// Package fanout delivers telemetry and alert events to room-scoped
// real-time subscribers. Delivery is at-least-once and best-effort: a
// failed publish is logged and never rolls back a persisted write.
package fanout

import "time"

// Event names on the wire. Part of the dashboard contract.
const (
	EventTelemetryUpdate = "telemetry_update"
	EventBatteryUpdate   = "battery_update"
	EventNewAlert        = "new_alert"
	EventDeviceAlert     = "device_alert"
	EventBatteryAlert    = "battery_alert"
	EventAlertResolved   = "alert_resolved"
)

// GlobalRoom receives fleet-wide events (new alerts, device lifecycle).
const GlobalRoom = ""

// DeviceRoom names the subscription channel for one device.
func DeviceRoom(deviceID string) string {
	return "device:" + deviceID
}

// BatteryRoom names the subscription channel for one battery.
func BatteryRoom(batteryID string) string {
	return "battery:" + batteryID
}

// Envelope is the wire frame for every published event.
type Envelope struct {
	Event     string      `json:"event"`
	Room      string      `json:"room,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Bus is the injected publish handle. Components never reach for a shared
// socket singleton; they get a Bus at construction time.
type Bus interface {
	Publish(room, event string, payload interface{})
}
