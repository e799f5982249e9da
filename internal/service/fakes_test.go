package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"chargex_project/internal/domain"
	"chargex_project/internal/repository"
)

// memTelemetryStore is an in-memory TelemetryStore for pipeline tests.
type memTelemetryStore struct {
	mu      sync.Mutex
	records []domain.TelemetryRecord
	failing bool
}

func (s *memTelemetryStore) Insert(ctx context.Context, record domain.TelemetryRecord) error {
	if s.failing {
		return errors.New("insert failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *memTelemetryStore) InsertMany(ctx context.Context, records []domain.TelemetryRecord) error {
	if s.failing {
		return errors.New("insert failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *memTelemetryStore) Query(ctx context.Context, filter domain.QueryFilter) ([]domain.TelemetryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.TelemetryRecord
	for _, r := range s.records {
		if filter.DeviceID != "" && r.DeviceID != filter.DeviceID {
			continue
		}
		if filter.BatteryID != "" && r.BatteryID != filter.BatteryID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.SortAsc {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[j].Timestamp.Before(out[i].Timestamp)
	})
	if filter.Skip > 0 && filter.Skip < len(out) {
		out = out[filter.Skip:]
	} else if filter.Skip >= len(out) {
		return nil, nil
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memTelemetryStore) Count(ctx context.Context, filter domain.QueryFilter) (int64, error) {
	records, err := s.Query(ctx, domain.QueryFilter{DeviceID: filter.DeviceID, BatteryID: filter.BatteryID})
	return int64(len(records)), err
}

func (s *memTelemetryStore) DistinctBatteryIDs(ctx context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	var ids []string
	for _, r := range s.records {
		if !seen[r.BatteryID] {
			seen[r.BatteryID] = true
			ids = append(ids, r.BatteryID)
		}
	}
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *memTelemetryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// memAlertStore is an in-memory AlertStore with the same active-alert
// dedup semantics as the MongoDB implementation.
type memAlertStore struct {
	mu     sync.Mutex
	alerts map[string]*domain.Alert // by id
	nextID int

	// failTypes makes UpsertActive fail for the listed alert types.
	failTypes map[domain.AlertType]bool
}

func newMemAlertStore() *memAlertStore {
	return &memAlertStore{alerts: map[string]*domain.Alert{}}
}

func (s *memAlertStore) UpsertActive(ctx context.Context, cand domain.Alert) (domain.Alert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failTypes[cand.Type] {
		return domain.Alert{}, false, errors.New("upsert failed")
	}

	now := time.Now().UTC()
	for _, a := range s.alerts {
		if a.DeviceID == cand.DeviceID && a.Type == cand.Type && a.Status == domain.AlertActive {
			a.Occurrences++
			a.Data = cand.Data
			a.LastOccurrence = now
			return *a, false, nil
		}
	}

	s.nextID++
	created := cand
	created.ID = string(rune('a' + s.nextID - 1))
	created.Status = domain.AlertActive
	created.Occurrences = 1
	created.CreatedAt = now
	created.LastOccurrence = now
	s.alerts[created.ID] = &created
	return created, true, nil
}

func (s *memAlertStore) FindByID(ctx context.Context, id string) (domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.alerts[id]; ok {
		return *a, nil
	}
	return domain.Alert{}, domain.ErrNotFound
}

func (s *memAlertStore) Find(ctx context.Context, filter repository.AlertFilter) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Alert
	for _, a := range s.alerts {
		if filter.DeviceID != "" && a.DeviceID != filter.DeviceID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *memAlertStore) Resolve(ctx context.Context, id, resolvedBy, resolution string) (domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return domain.Alert{}, domain.ErrNotFound
	}
	now := time.Now().UTC()
	a.Status = domain.AlertResolved
	a.ResolvedAt = &now
	a.ResolvedBy = resolvedBy
	a.Resolution = resolution
	return *a, nil
}

func (s *memAlertStore) Acknowledge(ctx context.Context, id, acknowledgedBy string) (domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return domain.Alert{}, domain.ErrNotFound
	}
	now := time.Now().UTC()
	a.Status = domain.AlertAcknowledged
	a.AcknowledgedAt = &now
	a.AcknowledgedBy = acknowledgedBy
	return *a, nil
}

func (s *memAlertStore) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.alerts {
		if a.Status == domain.AlertActive {
			n++
		}
	}
	return n
}

// memCache is an in-memory HotCache.
type memCache struct {
	mu         sync.Mutex
	byDevice   map[string]domain.TelemetryRecord
	byBattery  map[string]domain.TelemetryRecord
	alerts     map[string]domain.Alert
	thresholds map[string]domain.ThresholdConfig
}

func newMemCache() *memCache {
	return &memCache{
		byDevice:   map[string]domain.TelemetryRecord{},
		byBattery:  map[string]domain.TelemetryRecord{},
		alerts:     map[string]domain.Alert{},
		thresholds: map[string]domain.ThresholdConfig{},
	}
}

func (c *memCache) SetLatestTelemetry(ctx context.Context, record domain.TelemetryRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byDevice[record.DeviceID] = record
	c.byBattery[record.BatteryID] = record
	return nil
}

func (c *memCache) LatestTelemetryByDevice(ctx context.Context, deviceID string) (*domain.TelemetryRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.byDevice[deviceID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (c *memCache) LatestTelemetryByBattery(ctx context.Context, batteryID string) (*domain.TelemetryRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.byBattery[batteryID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (c *memCache) SetAlert(ctx context.Context, alert domain.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts[alert.ID] = alert
	return nil
}

func (c *memCache) Alert(ctx context.Context, id string) (*domain.Alert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.alerts[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (c *memCache) SetThresholds(ctx context.Context, deviceID string, cfg domain.ThresholdConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thresholds[deviceID] = cfg
	return nil
}

func (c *memCache) Thresholds(ctx context.Context, deviceID string) (*domain.ThresholdConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg, ok := c.thresholds[deviceID]; ok {
		return &cfg, nil
	}
	return nil, nil
}

// memThresholdStore is an in-memory ThresholdStore that counts lookups.
type memThresholdStore struct {
	mu      sync.Mutex
	configs map[string]*domain.ThresholdConfig
	lookups int
}

func newMemThresholdStore() *memThresholdStore {
	return &memThresholdStore{configs: map[string]*domain.ThresholdConfig{}}
}

func (s *memThresholdStore) GetThresholds(ctx context.Context, deviceID string) (*domain.ThresholdConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	return s.configs[deviceID], nil
}

// memSink is an in-memory TimeSeriesSink.
type memSink struct {
	mu      sync.Mutex
	records []domain.TelemetryRecord
}

func (s *memSink) WriteRecord(ctx context.Context, record domain.TelemetryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *memSink) QueryMetric(ctx context.Context, q repository.MetricQuery) ([]repository.MetricRow, error) {
	return nil, nil
}

func (s *memSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// published is one captured fan-out event.
type published struct {
	Room    string
	Event   string
	Payload interface{}
}

// memBus captures fan-out events.
type memBus struct {
	mu     sync.Mutex
	events []published
}

func (b *memBus) Publish(room, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{Room: room, Event: event, Payload: payload})
}

func (b *memBus) byEvent(event string) []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []published
	for _, e := range b.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }
