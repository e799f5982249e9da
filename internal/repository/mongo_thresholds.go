package repository

import (
	"context"
	"errors"
	"fmt"

	"chargex_project/internal/config"
	"chargex_project/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoThresholdRepo reads per-device alert configuration from the devices
// collection. The device management service owns writes to it.
type MongoThresholdRepo struct {
	devices *mongo.Collection
}

// NewMongoThresholdRepo creates a read-only view over device configs.
func NewMongoThresholdRepo(db *config.MongoDatabase) *MongoThresholdRepo {
	return &MongoThresholdRepo{devices: db.Database.Collection("devices")}
}

type deviceConfigDoc struct {
	Config struct {
		Alerts *domain.ThresholdConfig `bson:"alerts"`
	} `bson:"config"`
}

// GetThresholds returns the device's alert thresholds, or nil when the
// device is unknown or has no alert configuration.
func (r *MongoThresholdRepo) GetThresholds(ctx context.Context, deviceID string) (*domain.ThresholdConfig, error) {
	var doc deviceConfigDoc
	err := r.devices.FindOne(ctx, bson.M{"deviceId": deviceID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("device config lookup failed for %s: %w", deviceID, err)
	}
	return doc.Config.Alerts, nil
}
