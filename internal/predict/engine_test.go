package predict

import (
	"context"
	"errors"
	"testing"
	"time"

	"chargex_project/internal/domain"
)

// fakeTelemetry is a canned TelemetryStore for engine tests.
type fakeTelemetry struct {
	records map[string][]domain.TelemetryRecord
	ids     []string
}

func (f *fakeTelemetry) Insert(ctx context.Context, record domain.TelemetryRecord) error {
	return nil
}

func (f *fakeTelemetry) InsertMany(ctx context.Context, records []domain.TelemetryRecord) error {
	return nil
}

func (f *fakeTelemetry) Query(ctx context.Context, filter domain.QueryFilter) ([]domain.TelemetryRecord, error) {
	records := f.records[filter.BatteryID]
	if filter.Limit > 0 && filter.Limit < len(records) {
		records = records[:filter.Limit]
	}
	return records, nil
}

func (f *fakeTelemetry) Count(ctx context.Context, filter domain.QueryFilter) (int64, error) {
	return int64(len(f.records[filter.BatteryID])), nil
}

func (f *fakeTelemetry) DistinctBatteryIDs(ctx context.Context, limit int) ([]string, error) {
	return f.ids, nil
}

// fixedScorer always returns the same normalized score.
type fixedScorer struct {
	score float64
	err   error
}

func (s *fixedScorer) Score(window [][]float64) (float64, error) {
	return s.score, s.err
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func testParams() Params {
	return Params{WindowSize: 2, ScaleDays: 365, CriticalDays: 30, WarningDays: 90, GoodDays: 180}
}

// dayParams uses a unit scale so a stub score is a day count directly,
// keeping band boundaries exact.
func dayParams() Params {
	p := testParams()
	p.ScaleDays = 1
	return p
}

func healthyRecords(batteryID string, n int, soh, temp float64, cycles int) []domain.TelemetryRecord {
	base := time.Now().UTC()
	records := make([]domain.TelemetryRecord, n)
	for i := range records {
		records[i] = domain.TelemetryRecord{
			DeviceID:  "dev-1",
			BatteryID: batteryID,
			Timestamp: base.Add(-time.Duration(i) * time.Minute),
			Battery: &domain.BatteryData{
				Voltage:     &domain.BatteryVoltage{Total: 48},
				SOC:         floatPtr(80),
				SOH:         floatPtr(soh),
				CycleCount:  intPtr(cycles),
				Temperature: &domain.BatteryTemperature{Average: temp},
			},
		}
	}
	return records
}

func TestPredictStatusBands(t *testing.T) {
	cases := []struct {
		days   float64
		status domain.RULStatus
	}{
		{25, domain.RULCritical},
		{30, domain.RULCritical},  // boundary is inclusive
		{30.5, domain.RULWarning}, // just above the critical band
		{90, domain.RULWarning},
		{91, domain.RULGood},
		{200, domain.RULGood},
	}

	for _, tc := range cases {
		store := &fakeTelemetry{records: map[string][]domain.TelemetryRecord{
			"batt-1": healthyRecords("batt-1", 4, 95, 28, 120),
		}}
		engine := NewEngine(store, &fixedScorer{score: tc.days}, dayParams())

		result, err := engine.Predict(context.Background(), "batt-1")
		if err != nil {
			t.Fatalf("days=%v: predict failed: %v", tc.days, err)
		}
		if result.RemainingUsefulLife.Status != tc.status {
			t.Fatalf("days=%v: expected %s, got %s", tc.days, tc.status, result.RemainingUsefulLife.Status)
		}
	}
}

func TestPredictConfidenceClamped(t *testing.T) {
	store := &fakeTelemetry{records: map[string][]domain.TelemetryRecord{
		"batt-1": healthyRecords("batt-1", 4, 95, 28, 120),
	}}

	// 90 days over a 180-day denominator is 50%.
	engine := NewEngine(store, &fixedScorer{score: 90}, dayParams())
	result, err := engine.Predict(context.Background(), "batt-1")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if result.RemainingUsefulLife.Confidence != 50 {
		t.Fatalf("expected confidence 50, got %d", result.RemainingUsefulLife.Confidence)
	}

	// 365 days would be 202%; clamp to 100.
	engine = NewEngine(store, &fixedScorer{score: 365}, dayParams())
	result, _ = engine.Predict(context.Background(), "batt-1")
	if result.RemainingUsefulLife.Confidence != 100 {
		t.Fatalf("expected confidence clamped to 100, got %d", result.RemainingUsefulLife.Confidence)
	}
}

func TestPredictReportsLatestHealth(t *testing.T) {
	store := &fakeTelemetry{records: map[string][]domain.TelemetryRecord{
		"batt-1": healthyRecords("batt-1", 4, 87.5, 31.2, 340),
	}}
	engine := NewEngine(store, &fixedScorer{score: 0.5}, testParams())

	result, err := engine.Predict(context.Background(), "batt-1")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if result.BatteryHealth.SOH != 87.5 {
		t.Fatalf("expected soh 87.5, got %v", result.BatteryHealth.SOH)
	}
	if result.BatteryHealth.CycleCount != 340 {
		t.Fatalf("expected 340 cycles, got %d", result.BatteryHealth.CycleCount)
	}
	if result.BatteryHealth.Temperature != 31.2 {
		t.Fatalf("expected 31.2°C, got %v", result.BatteryHealth.Temperature)
	}
}

func TestPredictFallbackOnShortHistory(t *testing.T) {
	store := &fakeTelemetry{records: map[string][]domain.TelemetryRecord{
		"batt-1": healthyRecords("batt-1", 1, 95, 28, 120),
	}}
	engine := NewEngine(store, &fixedScorer{score: 0.5}, testParams())

	result, err := engine.Predict(context.Background(), "batt-1")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	days := result.RemainingUsefulLife.Days
	if days < 30 || days > 365 {
		t.Fatalf("fallback days out of range: %d", days)
	}
	if result.BatteryHealth.SOH < 80 || result.BatteryHealth.SOH > 100 {
		t.Fatalf("fallback soh out of range: %v", result.BatteryHealth.SOH)
	}
	if result.BatteryHealth.Temperature < 25 || result.BatteryHealth.Temperature > 35 {
		t.Fatalf("fallback temperature out of range: %v", result.BatteryHealth.Temperature)
	}
	if result.BatteryHealth.CycleCount < 0 || result.BatteryHealth.CycleCount >= 500 {
		t.Fatalf("fallback cycle count out of range: %d", result.BatteryHealth.CycleCount)
	}
}

func TestPredictFallbackOnScorerError(t *testing.T) {
	store := &fakeTelemetry{records: map[string][]domain.TelemetryRecord{
		"batt-1": healthyRecords("batt-1", 4, 95, 28, 120),
	}}
	engine := NewEngine(store, &fixedScorer{err: errors.New("model exploded")}, testParams())

	result, err := engine.Predict(context.Background(), "batt-1")
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	if result.RemainingUsefulLife.Days < 30 || result.RemainingUsefulLife.Days > 365 {
		t.Fatalf("fallback days out of range: %d", result.RemainingUsefulLife.Days)
	}
}

func TestPredictRequiresBatteryID(t *testing.T) {
	engine := NewEngine(&fakeTelemetry{}, &fixedScorer{score: 0.5}, testParams())
	if _, err := engine.Predict(context.Background(), ""); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecommendCriticalBattery(t *testing.T) {
	// 25 days, hot, degraded, heavily cycled: everything except INSPECT.
	store := &fakeTelemetry{records: map[string][]domain.TelemetryRecord{
		"batt-1": healthyRecords("batt-1", 4, 72.5, 38.2, 550),
	}}
	engine := NewEngine(store, &fixedScorer{score: 25}, dayParams())

	recs, err := engine.Recommend(context.Background(), "batt-1")
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}

	want := []domain.RecommendationAction{
		domain.ActionReplace,
		domain.ActionCooling,
		domain.ActionMonitor,
		domain.ActionCapacityTest,
	}
	if len(recs) != len(want) {
		t.Fatalf("expected %d recommendations, got %d: %+v", len(want), len(recs), recs)
	}
	for i, action := range want {
		if recs[i].Action != action {
			t.Fatalf("recommendation %d: expected %s, got %s", i, action, recs[i].Action)
		}
	}
	if recs[0].Priority != domain.PriorityHigh {
		t.Fatalf("expected REPLACE to be high priority, got %s", recs[0].Priority)
	}
}

func TestRecommendWarningBattery(t *testing.T) {
	store := &fakeTelemetry{records: map[string][]domain.TelemetryRecord{
		"batt-1": healthyRecords("batt-1", 4, 92, 28, 100),
	}}
	engine := NewEngine(store, &fixedScorer{score: 60}, dayParams())

	recs, err := engine.Recommend(context.Background(), "batt-1")
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if len(recs) != 1 || recs[0].Action != domain.ActionInspect {
		t.Fatalf("expected a single INSPECT recommendation, got %+v", recs)
	}
}

func TestRecommendHealthyBattery(t *testing.T) {
	store := &fakeTelemetry{records: map[string][]domain.TelemetryRecord{
		"batt-1": healthyRecords("batt-1", 4, 97, 26, 50),
	}}
	engine := NewEngine(store, &fixedScorer{score: 200}, dayParams())

	recs, err := engine.Recommend(context.Background(), "batt-1")
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no recommendations, got %+v", recs)
	}
}

func TestFleetOverview(t *testing.T) {
	store := &fakeTelemetry{
		ids: []string{"batt-1", "batt-2", "batt-3"},
		records: map[string][]domain.TelemetryRecord{
			"batt-1": healthyRecords("batt-1", 4, 95, 28, 100),
			"batt-2": healthyRecords("batt-2", 4, 95, 28, 100),
			"batt-3": healthyRecords("batt-3", 4, 95, 28, 100),
		},
	}
	engine := NewEngine(store, &fixedScorer{score: 25}, dayParams())

	overview, err := engine.FleetOverview(context.Background(), 0)
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.TotalBatteries != 3 {
		t.Fatalf("expected 3 batteries, got %d", overview.TotalBatteries)
	}
	if overview.StatusDistribution.Critical != 3 {
		t.Fatalf("expected 3 critical, got %d", overview.StatusDistribution.Critical)
	}
	if overview.MaintenanceRequired != 3 {
		t.Fatalf("expected 3 maintenance-required, got %d", overview.MaintenanceRequired)
	}
	if len(overview.CriticalBatteries) != 3 {
		t.Fatalf("expected 3 critical summaries, got %d", len(overview.CriticalBatteries))
	}
	if overview.AverageRUL != 25 {
		t.Fatalf("expected average RUL 25, got %d", overview.AverageRUL)
	}

	limited, err := engine.FleetOverview(context.Background(), 2)
	if err != nil {
		t.Fatalf("limited overview failed: %v", err)
	}
	if limited.TotalBatteries != 2 {
		t.Fatalf("expected limit to cap the fleet at 2, got %d", limited.TotalBatteries)
	}
}

func TestFleetOverviewDefaultFleet(t *testing.T) {
	// No telemetry yet: the default fleet keeps the endpoint demonstrable.
	engine := NewEngine(&fakeTelemetry{}, &fixedScorer{score: 0.5}, testParams())

	overview, err := engine.FleetOverview(context.Background(), 0)
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.TotalBatteries != len(defaultFleet) {
		t.Fatalf("expected %d default batteries, got %d", len(defaultFleet), overview.TotalBatteries)
	}
	total := overview.StatusDistribution.Critical + overview.StatusDistribution.Warning + overview.StatusDistribution.Good
	if total != len(defaultFleet) {
		t.Fatalf("status distribution does not cover the fleet: %+v", overview.StatusDistribution)
	}
}
