package domain

import "time"

// RULStatus is the maintenance-urgency band of a prediction.
type RULStatus string

const (
	RULCritical RULStatus = "CRITICAL"
	RULWarning  RULStatus = "WARNING"
	RULGood     RULStatus = "GOOD"
)

// RemainingUsefulLife is the predicted days until a battery needs service.
type RemainingUsefulLife struct {
	Days       int       `json:"days"`
	Status     RULStatus `json:"status"`
	Confidence int       `json:"confidence"`
}

// BatteryHealth is the health snapshot a prediction was derived from.
type BatteryHealth struct {
	SOH         float64 `json:"soh"`
	CycleCount  int     `json:"cycleCount"`
	Temperature float64 `json:"temperature"`
}

// PredictionResult is recomputed on every request and never persisted as
// the system of record.
type PredictionResult struct {
	BatteryID           string              `json:"batteryId"`
	RemainingUsefulLife RemainingUsefulLife `json:"remainingUsefulLife"`
	BatteryHealth       BatteryHealth       `json:"batteryHealth"`
	NextMaintenanceDate time.Time           `json:"nextMaintenanceDate"`
	Timestamp           time.Time           `json:"timestamp"`
}

// RecommendationPriority orders maintenance actions.
type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "HIGH"
	PriorityMedium RecommendationPriority = "MEDIUM"
	PriorityLow    RecommendationPriority = "LOW"
)

// RecommendationAction names a concrete maintenance step.
type RecommendationAction string

const (
	ActionReplace      RecommendationAction = "REPLACE"
	ActionInspect      RecommendationAction = "INSPECT"
	ActionCooling      RecommendationAction = "COOLING"
	ActionMonitor      RecommendationAction = "MONITOR"
	ActionCapacityTest RecommendationAction = "CAPACITY_TEST"
)

// Recommendation is derived deterministically from a PredictionResult.
type Recommendation struct {
	Priority    RecommendationPriority `json:"priority"`
	Action      RecommendationAction   `json:"action"`
	Description string                 `json:"description"`
	Deadline    time.Time              `json:"deadline"`
}

// StatusDistribution counts batteries per urgency band.
type StatusDistribution struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Good     int `json:"good"`
}

// CriticalBattery summarizes one battery in the CRITICAL band.
type CriticalBattery struct {
	BatteryID           string    `json:"batteryId"`
	RemainingDays       int       `json:"remainingDays"`
	NextMaintenanceDate time.Time `json:"nextMaintenanceDate"`
}

// FleetOverview aggregates predictions across the fleet.
type FleetOverview struct {
	TotalBatteries      int                `json:"totalBatteries"`
	AverageRUL          int                `json:"averageRUL"`
	StatusDistribution  StatusDistribution `json:"statusDistribution"`
	MaintenanceRequired int                `json:"maintenanceRequired"`
	CriticalBatteries   []CriticalBattery  `json:"criticalBatteries"`
	Timestamp           time.Time          `json:"timestamp"`
}
