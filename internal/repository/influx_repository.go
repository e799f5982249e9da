package repository

import (
	"context"
	"fmt"
	"time"

	"chargex_project/internal/config"
	"chargex_project/internal/domain"

	influxdb3 "github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
)

// InfluxSink implements TimeSeriesSink on InfluxDB v3.
type InfluxSink struct {
	db *config.InfluxDatabase
}

// NewInfluxSink creates an InfluxDB-backed time-series sink.
func NewInfluxSink(db *config.InfluxDatabase) *InfluxSink {
	return &InfluxSink{db: db}
}

// WriteRecord projects one telemetry record into independent typed points.
func (s *InfluxSink) WriteRecord(ctx context.Context, record domain.TelemetryRecord) error {
	if s.db == nil || s.db.Client == nil {
		return fmt.Errorf("influx client not initialized")
	}

	points := recordToPoints(record)
	if len(points) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.db.Client.WritePoints(ctx, points); err != nil {
		return fmt.Errorf("WritePoints failed: %w (points: %d, db: %s)",
			err, len(points), s.db.Database)
	}
	return nil
}

func recordToPoints(record domain.TelemetryRecord) []*influxdb3.Point {
	tags := map[string]string{
		"device_id":  record.DeviceID,
		"battery_id": record.BatteryID,
	}

	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var points []*influxdb3.Point

	if b := record.Battery; b != nil {
		if b.Voltage != nil {
			fields := map[string]interface{}{"total": b.Voltage.Total}
			for i, cell := range b.Voltage.Cells {
				fields[fmt.Sprintf("cell_%d", i+1)] = cell
			}
			points = append(points, influxdb3.NewPoint("battery_voltage", tags, fields, ts))
		}

		if b.Current != nil {
			points = append(points, influxdb3.NewPoint("battery_current", tags,
				map[string]interface{}{"value": *b.Current}, ts))
		}

		if b.Temperature != nil {
			fields := map[string]interface{}{"average": b.Temperature.Average}
			if b.Temperature.Ambient != 0 {
				fields["ambient"] = b.Temperature.Ambient
			}
			for i, cell := range b.Temperature.Cells {
				fields[fmt.Sprintf("cell_%d", i+1)] = cell
			}
			points = append(points, influxdb3.NewPoint("battery_temperature", tags, fields, ts))
		}

		if b.SOC != nil || b.SOH != nil || b.CycleCount != nil {
			fields := map[string]interface{}{}
			if b.SOC != nil {
				fields["soc"] = *b.SOC
			}
			if b.SOH != nil {
				fields["soh"] = *b.SOH
			}
			if b.CycleCount != nil {
				fields["cycle_count"] = *b.CycleCount
			}
			points = append(points, influxdb3.NewPoint("battery_soc", tags, fields, ts))
		}
	}

	if sys := record.System; sys != nil {
		fields := map[string]interface{}{}
		if sys.CPUTemperature != nil {
			fields["cpu_temperature"] = *sys.CPUTemperature
		}
		if sys.SignalStrength != nil {
			fields["signal_strength"] = *sys.SignalStrength
		}
		if sys.BatteryLevel != nil {
			fields["battery_level"] = *sys.BatteryLevel
		}
		if sys.MemoryUsage != nil {
			fields["memory_usage"] = *sys.MemoryUsage
		}
		if sys.Uptime != nil {
			fields["uptime"] = *sys.Uptime
		}
		if len(fields) > 0 {
			points = append(points, influxdb3.NewPoint("system_metrics", tags, fields, ts))
		}
	}

	if loc := record.Location; loc != nil && len(loc.Coordinates) == 2 {
		fields := map[string]interface{}{
			"longitude": loc.Coordinates[0],
			"latitude":  loc.Coordinates[1],
		}
		if loc.Altitude != 0 {
			fields["altitude"] = loc.Altitude
		}
		if loc.Speed != 0 {
			fields["speed"] = loc.Speed
		}
		points = append(points, influxdb3.NewPoint("location", tags, fields, ts))
	}

	return points
}

// QueryMetric retrieves rows for one measurement, optionally windowed with
// an aggregation function.
func (s *InfluxSink) QueryMetric(ctx context.Context, q MetricQuery) ([]MetricRow, error) {
	if s.db == nil || s.db.Client == nil {
		return nil, fmt.Errorf("influx client not initialized")
	}

	query := buildMetricQuery(q)

	iterator, err := s.db.Client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("metric query failed: %w (query: %s)", err, query)
	}

	var rows []MetricRow
	for iterator.Next() {
		value := iterator.Value()
		row := MetricRow{Values: map[string]interface{}{}}
		for k, v := range value {
			if k == "time" {
				if ts, ok := v.(time.Time); ok {
					row.Time = ts
				}
				continue
			}
			row.Values[k] = v
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func buildMetricQuery(q MetricQuery) string {
	field := q.Field
	if field == "" {
		field = "*"
	}

	var query string
	if q.Aggregation != "" && q.IntervalSec > 0 && field != "*" {
		query = fmt.Sprintf(
			"SELECT date_bin(INTERVAL '%d seconds', time) AS time, %s(%s) AS %s FROM %s WHERE 1=1",
			q.IntervalSec, q.Aggregation, field, field, q.Measurement)
	} else {
		query = fmt.Sprintf("SELECT time, %s FROM %s WHERE 1=1", field, q.Measurement)
	}

	if q.DeviceID != "" {
		query += fmt.Sprintf(" AND device_id = '%s'", q.DeviceID)
	}
	if q.BatteryID != "" {
		query += fmt.Sprintf(" AND battery_id = '%s'", q.BatteryID)
	}
	if q.Start != nil {
		query += fmt.Sprintf(" AND time >= '%s'", q.Start.Format(time.RFC3339))
	}
	if q.End != nil {
		query += fmt.Sprintf(" AND time <= '%s'", q.End.Format(time.RFC3339))
	}

	if q.Aggregation != "" && q.IntervalSec > 0 && field != "*" {
		query += " GROUP BY 1 ORDER BY 1 DESC"
	} else {
		query += " ORDER BY time DESC"
	}

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	return query
}
