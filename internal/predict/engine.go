package predict

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"chargex_project/internal/domain"
	"chargex_project/internal/repository"
	"chargex_project/pkg/logger"
)

// Params carries the tunable constants of the prediction pipeline.
type Params struct {
	// WindowSize is the number of consecutive records the scorer consumes.
	WindowSize int
	// ScaleDays converts a normalized score to a day count.
	ScaleDays float64
	// CriticalDays and WarningDays are the upper bounds (inclusive) of the
	// CRITICAL and WARNING bands.
	CriticalDays float64
	WarningDays  float64
	// GoodDays is the confidence denominator: confidence = days/GoodDays*100.
	GoodDays float64
}

// featureCount is the width of the scorer input matrix: total voltage,
// current, average temperature, SOC, SOH, cycle count, CPU temperature
// and signal strength.
const featureCount = 8

// maxFleetSize bounds how many batteries a fleet overview scores in one call.
const maxFleetSize = 100

// defaultFleet is used when the telemetry store holds no battery IDs yet,
// so fleet endpoints stay demonstrable on an empty deployment.
var defaultFleet = []string{"batt-001", "batt-002", "batt-003", "batt-004", "batt-005"}

// Engine produces remaining-useful-life estimates, maintenance
// recommendations and fleet-level summaries from stored telemetry.
type Engine struct {
	telemetry repository.TelemetryStore
	scorer    Scorer
	fallback  Scorer
	params    Params
}

// NewEngine wires the engine with a primary scorer and the heuristic
// fallback for cold-start batteries.
func NewEngine(telemetry repository.TelemetryStore, scorer Scorer, params Params) *Engine {
	return &Engine{
		telemetry: telemetry,
		scorer:    scorer,
		fallback:  NewHeuristicScorer(),
		params:    params,
	}
}

// Predict estimates the remaining useful life of a battery. Batteries with
// fewer than WindowSize records fall back to the heuristic scorer with
// synthesized health figures.
func (e *Engine) Predict(ctx context.Context, batteryID string) (*domain.PredictionResult, error) {
	if batteryID == "" {
		return nil, &domain.ValidationError{Field: "batteryId", Reason: "is required"}
	}

	records, err := e.telemetry.Query(ctx, domain.QueryFilter{
		BatteryID: batteryID,
		SortAsc:   false,
		Limit:     2 * e.params.WindowSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load telemetry for %s: %w", batteryID, err)
	}

	if len(records) < e.params.WindowSize {
		logger.Debugf("Battery %s has %d records, below window %d; using heuristic fallback",
			batteryID, len(records), e.params.WindowSize)
		return e.heuristicResult(batteryID), nil
	}

	// Query returned newest-first; the scorer wants the most recent
	// WindowSize records in chronological order.
	window := records[:e.params.WindowSize]
	matrix := make([][]float64, e.params.WindowSize)
	for i := range window {
		matrix[e.params.WindowSize-1-i] = extractFeatures(&window[i])
	}

	score, err := e.scorer.Score(matrix)
	if err != nil {
		logger.Warnf("Model scoring failed for %s, using heuristic fallback: %v", batteryID, err)
		return e.heuristicResult(batteryID), nil
	}

	days := score * e.params.ScaleDays
	latest := records[0]

	health := domain.BatteryHealth{}
	if latest.Battery != nil {
		if latest.Battery.SOH != nil {
			health.SOH = *latest.Battery.SOH
		}
		if latest.Battery.CycleCount != nil {
			health.CycleCount = *latest.Battery.CycleCount
		}
		if latest.Battery.Temperature != nil {
			health.Temperature = latest.Battery.Temperature.Average
		}
	}

	return e.buildResult(batteryID, days, health), nil
}

// Recommend derives maintenance recommendations from a prediction. Rules
// are evaluated in a fixed order so output ordering is stable.
func (e *Engine) Recommend(ctx context.Context, batteryID string) ([]domain.Recommendation, error) {
	result, err := e.Predict(ctx, batteryID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recs := make([]domain.Recommendation, 0, 5)

	switch result.RemainingUsefulLife.Status {
	case domain.RULCritical:
		recs = append(recs, domain.Recommendation{
			Action:      domain.ActionReplace,
			Priority:    domain.PriorityHigh,
			Description: fmt.Sprintf("Battery %s requires replacement within %d days", batteryID, result.RemainingUsefulLife.Days),
			Deadline:    now.AddDate(0, 0, 30),
		})
	case domain.RULWarning:
		recs = append(recs, domain.Recommendation{
			Action:      domain.ActionInspect,
			Priority:    domain.PriorityMedium,
			Description: fmt.Sprintf("Battery %s should be inspected for degradation", batteryID),
			Deadline:    now.AddDate(0, 0, 30),
		})
	}

	if result.BatteryHealth.Temperature > 35 {
		recs = append(recs, domain.Recommendation{
			Action:      domain.ActionCooling,
			Priority:    domain.PriorityMedium,
			Description: fmt.Sprintf("Battery %s is running hot (%.1f°C); check the cooling system", batteryID, result.BatteryHealth.Temperature),
			Deadline:    now.AddDate(0, 0, 7),
		})
	}

	if result.BatteryHealth.SOH > 0 && result.BatteryHealth.SOH < 80 {
		recs = append(recs, domain.Recommendation{
			Action:      domain.ActionMonitor,
			Priority:    domain.PriorityMedium,
			Description: fmt.Sprintf("Battery %s state of health is %.1f%%; increase monitoring frequency", batteryID, result.BatteryHealth.SOH),
			Deadline:    now.AddDate(0, 0, 14),
		})
	}

	if result.BatteryHealth.CycleCount > 500 {
		recs = append(recs, domain.Recommendation{
			Action:      domain.ActionCapacityTest,
			Priority:    domain.PriorityLow,
			Description: fmt.Sprintf("Battery %s has %d cycles; schedule a capacity test", batteryID, result.BatteryHealth.CycleCount),
			Deadline:    now.AddDate(0, 0, 60),
		})
	}

	return recs, nil
}

// FleetOverview runs predictions across up to limit known batteries and
// aggregates status counts. Per-battery failures are logged and skipped.
func (e *Engine) FleetOverview(ctx context.Context, limit int) (*domain.FleetOverview, error) {
	if limit <= 0 || limit > maxFleetSize {
		limit = maxFleetSize
	}
	ids, err := e.telemetry.DistinctBatteryIDs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batteries: %w", err)
	}
	if len(ids) == 0 {
		ids = defaultFleet
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	overview := &domain.FleetOverview{
		TotalBatteries: len(ids),
		Timestamp:      time.Now().UTC(),
	}

	var totalDays float64
	scored := 0
	for _, id := range ids {
		result, err := e.Predict(ctx, id)
		if err != nil {
			logger.Warnf("Fleet prediction failed for %s: %v", id, err)
			continue
		}
		scored++
		totalDays += float64(result.RemainingUsefulLife.Days)
		switch result.RemainingUsefulLife.Status {
		case domain.RULCritical:
			overview.StatusDistribution.Critical++
			overview.CriticalBatteries = append(overview.CriticalBatteries, domain.CriticalBattery{
				BatteryID:           id,
				RemainingDays:       result.RemainingUsefulLife.Days,
				NextMaintenanceDate: result.NextMaintenanceDate,
			})
		case domain.RULWarning:
			overview.StatusDistribution.Warning++
		default:
			overview.StatusDistribution.Good++
		}
	}

	overview.MaintenanceRequired = overview.StatusDistribution.Critical + overview.StatusDistribution.Warning
	if scored > 0 {
		overview.AverageRUL = int(math.Round(totalDays / float64(scored)))
	}
	return overview, nil
}

func (e *Engine) buildResult(batteryID string, days float64, health domain.BatteryHealth) *domain.PredictionResult {
	confidence := days / e.params.GoodDays * 100
	if confidence > 100 {
		confidence = 100
	}
	if confidence < 0 {
		confidence = 0
	}

	now := time.Now().UTC()
	roundedDays := int(math.Round(days))
	return &domain.PredictionResult{
		BatteryID: batteryID,
		RemainingUsefulLife: domain.RemainingUsefulLife{
			Days:       roundedDays,
			Status:     e.classify(days),
			Confidence: int(math.Round(confidence)),
		},
		BatteryHealth:       health,
		NextMaintenanceDate: now.AddDate(0, 0, roundedDays),
		Timestamp:           now,
	}
}

// heuristicResult produces a fallback prediction with synthesized health
// figures for batteries without enough history to score.
func (e *Engine) heuristicResult(batteryID string) *domain.PredictionResult {
	score, _ := e.fallback.Score(nil)
	days := score * e.params.ScaleDays

	health := domain.BatteryHealth{
		SOH:         80 + rand.Float64()*20,
		CycleCount:  rand.Intn(500),
		Temperature: 25 + rand.Float64()*10,
	}
	return e.buildResult(batteryID, days, health)
}

func (e *Engine) classify(days float64) domain.RULStatus {
	switch {
	case days <= e.params.CriticalDays:
		return domain.RULCritical
	case days <= e.params.WarningDays:
		return domain.RULWarning
	default:
		return domain.RULGood
	}
}

// extractFeatures flattens a telemetry record into the scorer's feature
// vector. Missing readings contribute zero.
func extractFeatures(record *domain.TelemetryRecord) []float64 {
	features := make([]float64, featureCount)
	if b := record.Battery; b != nil {
		if b.Voltage != nil {
			features[0] = b.Voltage.Total
		}
		if b.Current != nil {
			features[1] = *b.Current
		}
		if b.Temperature != nil {
			features[2] = b.Temperature.Average
		}
		if b.SOC != nil {
			features[3] = *b.SOC
		}
		if b.SOH != nil {
			features[4] = *b.SOH
		}
		if b.CycleCount != nil {
			features[5] = float64(*b.CycleCount)
		}
	}
	if s := record.System; s != nil {
		if s.CPUTemperature != nil {
			features[6] = *s.CPUTemperature
		}
		if s.SignalStrength != nil {
			features[7] = *s.SignalStrength
		}
	}
	return features
}
