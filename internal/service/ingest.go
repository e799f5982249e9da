package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"chargex_project/internal/domain"
	"chargex_project/internal/fanout"
	"chargex_project/internal/repository"
	"chargex_project/pkg/logger"
)

// ThresholdStore resolves a device's current alert-threshold configuration.
// Owned by the device management collaborator; read-only here.
type ThresholdStore interface {
	GetThresholds(ctx context.Context, deviceID string) (*domain.ThresholdConfig, error)
}

// DeviceStatusFunc receives the device status projection computed from each
// accepted record. The device management collaborator persists it.
type DeviceStatusFunc func(status domain.DeviceStatus)

// PersistedHook is a fire-and-forget side channel (blockchain anchoring,
// knowledge-base sync). The pipeline never awaits or retries it.
type PersistedHook func(record domain.TelemetryRecord)

// SubmitResult is the outcome of a single submission.
type SubmitResult struct {
	Accepted bool           `json:"accepted"`
	Alerts   []domain.Alert `json:"alerts,omitempty"`
}

// BatchResult is the outcome of a batch submission.
type BatchResult struct {
	ProcessedCount int `json:"processedCount"`
	AlertCount     int `json:"alertCount"`
}

// telemetryUpdate is the device-room fan-out payload.
type telemetryUpdate struct {
	domain.TelemetryRecord
	Alerts []domain.Alert `json:"alerts,omitempty"`
}

// batteryUpdate is the battery-room fan-out payload, slimmed to
// battery-relevant fields plus location.
type batteryUpdate struct {
	BatteryID string           `json:"batteryId"`
	Telemetry batteryTelemetry `json:"telemetry"`
}

type batteryTelemetry struct {
	*domain.BatteryData
	Location  *domain.LocationData `json:"location,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Pipeline orchestrates validation, multi-sink persistence, alert
// evaluation and real-time fan-out for telemetry submissions.
type Pipeline struct {
	telemetry   repository.TelemetryStore
	sink        repository.TimeSeriesSink
	cache       repository.HotCache
	engine      *AlertEngine
	thresholds  ThresholdStore
	bus         fanout.Bus
	sinkTimeout time.Duration

	onAccepted  DeviceStatusFunc
	onPersisted PersistedHook

	// Lock-free statistics
	receivedCount uint64
	acceptedCount uint64
	rejectedCount uint64
	alertCount    uint64
}

// PipelineOptions configures optional collaborator hooks.
type PipelineOptions struct {
	OnAccepted  DeviceStatusFunc
	OnPersisted PersistedHook
}

// NewPipeline creates the ingestion pipeline.
func NewPipeline(
	telemetry repository.TelemetryStore,
	sink repository.TimeSeriesSink,
	cache repository.HotCache,
	engine *AlertEngine,
	thresholds ThresholdStore,
	bus fanout.Bus,
	sinkTimeout time.Duration,
	opts PipelineOptions,
) *Pipeline {
	return &Pipeline{
		telemetry:   telemetry,
		sink:        sink,
		cache:       cache,
		engine:      engine,
		thresholds:  thresholds,
		bus:         bus,
		sinkTimeout: sinkTimeout,
		onAccepted:  opts.OnAccepted,
		onPersisted: opts.OnPersisted,
	}
}

// Submit processes one telemetry record: validation, primary write (fatal
// on failure), best-effort secondary sinks, alert evaluation, fan-out.
func (p *Pipeline) Submit(ctx context.Context, record domain.TelemetryRecord) (SubmitResult, error) {
	atomic.AddUint64(&p.receivedCount, 1)

	if err := validateRecord(&record); err != nil {
		atomic.AddUint64(&p.rejectedCount, 1)
		return SubmitResult{}, err
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	// Primary write must succeed before anything downstream runs; once
	// acknowledged it is never rolled back.
	if err := p.telemetry.Insert(ctx, record); err != nil {
		atomic.AddUint64(&p.rejectedCount, 1)
		return SubmitResult{}, fmt.Errorf("%w: %v", domain.ErrPrimaryWrite, err)
	}
	atomic.AddUint64(&p.acceptedCount, 1)

	if p.onPersisted != nil {
		go p.onPersisted(record)
	}

	// Secondary sinks are best-effort and independent of alert evaluation.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.writeTimeSeries(ctx, record)
	}()
	go func() {
		defer wg.Done()
		p.writeHotCache(ctx, record)
	}()

	alerts := p.evaluateAlerts(ctx, record)
	atomic.AddUint64(&p.alertCount, uint64(len(alerts)))

	p.notifyAccepted(record)
	p.publishUpdates(record, alerts)

	wg.Wait()

	return SubmitResult{Accepted: true, Alerts: alerts}, nil
}

// SubmitBatch processes entries independently, evaluating every entry's
// alerts while the representative latest entry alone drives the device
// status update and the primary fan-out payload.
func (p *Pipeline) SubmitBatch(ctx context.Context, records []domain.TelemetryRecord) (BatchResult, error) {
	if len(records) == 0 {
		return BatchResult{}, &domain.ValidationError{Field: "telemetryBatch", Reason: "must not be empty"}
	}

	now := time.Now().UTC()
	valid := make([]domain.TelemetryRecord, 0, len(records))
	for i := range records {
		record := records[i]
		if err := validateRecord(&record); err != nil {
			atomic.AddUint64(&p.rejectedCount, 1)
			logger.Warnf("Skipping invalid batch entry %d: %v", i, err)
			continue
		}
		if record.Timestamp.IsZero() {
			record.Timestamp = now
		}
		valid = append(valid, record)
	}

	if len(valid) == 0 {
		return BatchResult{}, &domain.ValidationError{Field: "telemetryBatch", Reason: "contains no valid entries"}
	}

	atomic.AddUint64(&p.receivedCount, uint64(len(valid)))

	if err := p.telemetry.InsertMany(ctx, valid); err != nil {
		atomic.AddUint64(&p.rejectedCount, uint64(len(valid)))
		return BatchResult{}, fmt.Errorf("%w: %v", domain.ErrPrimaryWrite, err)
	}
	atomic.AddUint64(&p.acceptedCount, uint64(len(valid)))

	// Representative latest entry, chosen up front so out-of-order sink
	// completions cannot race the device status update. Array order breaks
	// timestamp ties, last wins.
	latest := valid[0]
	for _, record := range valid[1:] {
		if !record.Timestamp.Before(latest.Timestamp) {
			latest = record
		}
	}

	if p.onPersisted != nil {
		for _, record := range valid {
			go p.onPersisted(record)
		}
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		allAlerts []domain.Alert
	)
	for _, record := range valid {
		record := record
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.writeTimeSeries(ctx, record)
			alerts := p.evaluateAlerts(ctx, record)
			if len(alerts) > 0 {
				mu.Lock()
				allAlerts = append(allAlerts, alerts...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	atomic.AddUint64(&p.alertCount, uint64(len(allAlerts)))

	// Hot cache gets only the per-device/battery latest entries, so a
	// slower write for an older record cannot clobber a newer snapshot.
	for _, record := range latestPerKey(valid) {
		p.writeHotCache(ctx, record)
	}

	p.notifyAccepted(latest)

	latestAlerts := make([]domain.Alert, 0, len(allAlerts))
	for _, alert := range allAlerts {
		if alert.DeviceID == latest.DeviceID {
			latestAlerts = append(latestAlerts, alert)
		}
	}
	p.publishUpdates(latest, latestAlerts)

	return BatchResult{ProcessedCount: len(valid), AlertCount: len(allAlerts)}, nil
}

// latestPerKey picks the max-timestamp record per device and per battery.
func latestPerKey(records []domain.TelemetryRecord) []domain.TelemetryRecord {
	byDevice := map[string]domain.TelemetryRecord{}
	for _, record := range records {
		if prev, ok := byDevice[record.DeviceID]; !ok || !record.Timestamp.Before(prev.Timestamp) {
			byDevice[record.DeviceID] = record
		}
	}

	byBattery := map[string]domain.TelemetryRecord{}
	for _, record := range records {
		if prev, ok := byBattery[record.BatteryID]; !ok || !record.Timestamp.Before(prev.Timestamp) {
			byBattery[record.BatteryID] = record
		}
	}

	seen := map[string]bool{}
	out := make([]domain.TelemetryRecord, 0, len(byDevice))
	for _, record := range byDevice {
		key := record.DeviceID + "|" + record.BatteryID + "|" + record.Timestamp.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, record)
		}
	}
	for _, record := range byBattery {
		key := record.DeviceID + "|" + record.BatteryID + "|" + record.Timestamp.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, record)
		}
	}
	return out
}

func (p *Pipeline) writeTimeSeries(ctx context.Context, record domain.TelemetryRecord) {
	if p.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, p.sinkTimeout)
	defer cancel()

	if err := p.sink.WriteRecord(ctx, record); err != nil {
		logger.Warnf("Time-series write failed for device %s: %v", record.DeviceID, err)
	}
}

func (p *Pipeline) writeHotCache(ctx context.Context, record domain.TelemetryRecord) {
	if p.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, p.sinkTimeout)
	defer cancel()

	if err := p.cache.SetLatestTelemetry(ctx, record); err != nil {
		logger.Warnf("Hot cache write failed for device %s: %v", record.DeviceID, err)
	}
}

// evaluateAlerts resolves thresholds (cache first) and runs the engine.
func (p *Pipeline) evaluateAlerts(ctx context.Context, record domain.TelemetryRecord) []domain.Alert {
	thresholds := p.resolveThresholds(ctx, record.DeviceID)
	if thresholds == nil {
		return nil
	}
	return p.engine.Evaluate(ctx, record, thresholds)
}

func (p *Pipeline) resolveThresholds(ctx context.Context, deviceID string) *domain.ThresholdConfig {
	if p.cache != nil {
		cached, err := p.cache.Thresholds(ctx, deviceID)
		if err != nil {
			logger.Warnf("Threshold cache lookup failed for device %s: %v", deviceID, err)
		} else if cached != nil {
			return cached
		}
	}

	if p.thresholds == nil {
		return nil
	}

	cfg, err := p.thresholds.GetThresholds(ctx, deviceID)
	if err != nil {
		logger.Warnf("Threshold lookup failed for device %s: %v", deviceID, err)
		return nil
	}
	if cfg == nil {
		return nil
	}

	if p.cache != nil {
		if err := p.cache.SetThresholds(ctx, deviceID, *cfg); err != nil {
			logger.Warnf("Threshold cache write failed for device %s: %v", deviceID, err)
		}
	}
	return cfg
}

// notifyAccepted computes the device status projection and hands it to the
// device management collaborator.
func (p *Pipeline) notifyAccepted(record domain.TelemetryRecord) {
	if p.onAccepted == nil {
		return
	}

	status := domain.DeviceStatus{
		DeviceID: record.DeviceID,
		LastSeen: time.Now().UTC(),
		Online:   true,
		Location: record.Location,
	}
	if record.System != nil {
		status.BatteryLevel = record.System.BatteryLevel
		status.SignalStrength = record.System.SignalStrength
	}

	p.onAccepted(status)
}

func (p *Pipeline) publishUpdates(record domain.TelemetryRecord, alerts []domain.Alert) {
	if p.bus == nil {
		return
	}

	p.bus.Publish(fanout.DeviceRoom(record.DeviceID), fanout.EventTelemetryUpdate, telemetryUpdate{
		TelemetryRecord: record,
		Alerts:          alerts,
	})

	if record.BatteryID != "" {
		p.bus.Publish(fanout.BatteryRoom(record.BatteryID), fanout.EventBatteryUpdate, batteryUpdate{
			BatteryID: record.BatteryID,
			Telemetry: batteryTelemetry{
				BatteryData: record.Battery,
				Location:    record.Location,
				Timestamp:   record.Timestamp,
			},
		})
	}
}

// Stats reports pipeline counters.
func (p *Pipeline) Stats() map[string]uint64 {
	return map[string]uint64{
		"received": atomic.LoadUint64(&p.receivedCount),
		"accepted": atomic.LoadUint64(&p.acceptedCount),
		"rejected": atomic.LoadUint64(&p.rejectedCount),
		"alerts":   atomic.LoadUint64(&p.alertCount),
	}
}
