package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chargex_project/internal/config"
	"chargex_project/internal/domain"
	"chargex_project/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTelemetryRepo implements TelemetryStore on MongoDB.
type MongoTelemetryRepo struct {
	db *config.MongoDatabase
}

// NewMongoTelemetryRepo creates a MongoDB-backed telemetry store.
func NewMongoTelemetryRepo(db *config.MongoDatabase) *MongoTelemetryRepo {
	return &MongoTelemetryRepo{db: db}
}

// Insert writes a single telemetry record.
func (r *MongoTelemetryRepo) Insert(ctx context.Context, record domain.TelemetryRecord) error {
	if _, err := r.db.Telemetry.InsertOne(ctx, record); err != nil {
		logger.Errorf("Telemetry insert failed for device %s: %v", record.DeviceID, err)
		return fmt.Errorf("telemetry insert failed: %w", err)
	}
	return nil
}

// InsertMany writes records with unordered batch inserts.
func (r *MongoTelemetryRepo) InsertMany(ctx context.Context, records []domain.TelemetryRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, len(records))
	for i, record := range records {
		docs[i] = record
	}

	opts := options.InsertMany().SetOrdered(false)
	if _, err := r.db.Telemetry.InsertMany(ctx, docs, opts); err != nil {
		logger.Errorf("Telemetry batch insert failed (%d docs): %v", len(docs), err)
		return fmt.Errorf("telemetry batch insert failed: %w", err)
	}
	return nil
}

// Query retrieves records based on filter.
func (r *MongoTelemetryRepo) Query(ctx context.Context, filter domain.QueryFilter) ([]domain.TelemetryRecord, error) {
	query := buildTelemetryQuery(filter)

	sortDir := -1
	if filter.SortAsc {
		sortDir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: sortDir}})

	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Skip > 0 {
		opts.SetSkip(int64(filter.Skip))
	}

	cursor, err := r.db.Telemetry.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("telemetry query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var results []domain.TelemetryRecord
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("telemetry decode failed: %w", err)
	}

	return results, nil
}

// Count returns the number of records matching filter.
func (r *MongoTelemetryRepo) Count(ctx context.Context, filter domain.QueryFilter) (int64, error) {
	count, err := r.db.Telemetry.CountDocuments(ctx, buildTelemetryQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("telemetry count failed: %w", err)
	}
	return count, nil
}

// DistinctBatteryIDs returns up to limit battery ids observed in telemetry.
func (r *MongoTelemetryRepo) DistinctBatteryIDs(ctx context.Context, limit int) ([]string, error) {
	values, err := r.db.Telemetry.Distinct(ctx, "batteryId", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct battery ids failed: %w", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		id, ok := v.(string)
		if !ok || id == "" {
			continue
		}
		ids = append(ids, id)
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

func buildTelemetryQuery(filter domain.QueryFilter) bson.M {
	query := bson.M{}

	if filter.DeviceID != "" {
		query["deviceId"] = filter.DeviceID
	}
	if filter.BatteryID != "" {
		query["batteryId"] = filter.BatteryID
	}

	if filter.StartTime != nil || filter.EndTime != nil {
		ts := bson.M{}
		if filter.StartTime != nil {
			ts["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			ts["$lte"] = *filter.EndTime
		}
		query["timestamp"] = ts
	}

	return query
}

// MongoAlertRepo implements AlertStore on MongoDB.
type MongoAlertRepo struct {
	db *config.MongoDatabase
}

// NewMongoAlertRepo creates a MongoDB-backed alert store.
func NewMongoAlertRepo(db *config.MongoDatabase) *MongoAlertRepo {
	return &MongoAlertRepo{db: db}
}

// UpsertActive performs a single atomic increment-or-create against the
// (deviceId, type, status=active) tuple, so concurrent submissions cannot
// tear the occurrence count or create duplicate active alerts.
func (r *MongoAlertRepo) UpsertActive(ctx context.Context, candidate domain.Alert) (domain.Alert, bool, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"deviceId": candidate.DeviceID,
		"type":     candidate.Type,
		"status":   domain.AlertActive,
	}

	update := bson.M{
		"$inc": bson.M{"occurrences": 1},
		"$set": bson.M{
			"data":           candidate.Data,
			"lastOccurrence": now,
		},
		"$setOnInsert": bson.M{
			"_id":       uuid.NewString(),
			"type":      candidate.Type,
			"severity":  candidate.Severity,
			"status":    domain.AlertActive,
			"deviceId":  candidate.DeviceID,
			"batteryId": candidate.BatteryID,
			"message":   candidate.Message,
			"createdAt": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result domain.Alert
	if err := r.db.Alerts.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return domain.Alert{}, false, fmt.Errorf("alert upsert failed: %w", err)
	}

	return result, result.Occurrences == 1, nil
}

// FindByID returns a single alert or domain.ErrNotFound.
func (r *MongoAlertRepo) FindByID(ctx context.Context, id string) (domain.Alert, error) {
	var alert domain.Alert
	err := r.db.Alerts.FindOne(ctx, bson.M{"_id": id}).Decode(&alert)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Alert{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Alert{}, fmt.Errorf("alert lookup failed: %w", err)
	}
	return alert, nil
}

// Find retrieves alerts based on filter, newest first.
func (r *MongoAlertRepo) Find(ctx context.Context, filter AlertFilter) ([]domain.Alert, error) {
	query := bson.M{}
	if filter.DeviceID != "" {
		query["deviceId"] = filter.DeviceID
	}
	if filter.BatteryID != "" {
		query["batteryId"] = filter.BatteryID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Severity != "" {
		query["severity"] = filter.Severity
	}

	opts := options.Find().SetSort(bson.D{{Key: "lastOccurrence", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.db.Alerts.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("alert query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var results []domain.Alert
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("alert decode failed: %w", err)
	}
	return results, nil
}

// Resolve transitions an alert to resolved.
func (r *MongoAlertRepo) Resolve(ctx context.Context, id, resolvedBy, resolution string) (domain.Alert, error) {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"status":     domain.AlertResolved,
		"resolvedAt": now,
		"resolvedBy": resolvedBy,
		"resolution": resolution,
	}}
	return r.transition(ctx, id, update)
}

// Acknowledge transitions an alert to acknowledged.
func (r *MongoAlertRepo) Acknowledge(ctx context.Context, id, acknowledgedBy string) (domain.Alert, error) {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"status":         domain.AlertAcknowledged,
		"acknowledgedAt": now,
		"acknowledgedBy": acknowledgedBy,
	}}
	return r.transition(ctx, id, update)
}

func (r *MongoAlertRepo) transition(ctx context.Context, id string, update bson.M) (domain.Alert, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var alert domain.Alert
	err := r.db.Alerts.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&alert)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Alert{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Alert{}, fmt.Errorf("alert transition failed: %w", err)
	}
	return alert, nil
}
