package config

import (
	"context"
	"fmt"
	"time"

	influxdb3 "github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDatabase wraps the MongoDB client and the core collections.
type MongoDatabase struct {
	Client    *mongo.Client
	Database  *mongo.Database
	Telemetry *mongo.Collection
	Alerts    *mongo.Collection
}

// InfluxDatabase wraps the InfluxDB v3 client.
type InfluxDatabase struct {
	Client   *influxdb3.Client
	Database string
}

// Databases bundles every storage backend the service talks to.
type Databases struct {
	Mongo  *MongoDatabase
	Influx *InfluxDatabase
	Redis  *redis.Client
}

// InitDatabases connects to MongoDB, InfluxDB and Redis and verifies each
// connection before returning.
func InitDatabases(cfg *Config) (*Databases, error) {
	mongoDB, err := initMongo(cfg)
	if err != nil {
		return nil, err
	}

	influxDB, err := initInflux(cfg)
	if err != nil {
		mongoDB.Close()
		return nil, err
	}

	redisClient, err := initRedis(cfg)
	if err != nil {
		mongoDB.Close()
		influxDB.Close()
		return nil, err
	}

	return &Databases{
		Mongo:  mongoDB,
		Influx: influxDB,
		Redis:  redisClient,
	}, nil
}

// Close releases every backend connection.
func (d *Databases) Close() {
	if d.Mongo != nil {
		d.Mongo.Close()
	}
	if d.Influx != nil {
		d.Influx.Close()
	}
	if d.Redis != nil {
		d.Redis.Close()
	}
}

func initMongo(cfg *Config) (*MongoDatabase, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(50).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	database := client.Database(cfg.MongoDB)
	telemetry := database.Collection("telemetry")
	alerts := database.Collection("alerts")

	if err := createMongoIndexes(ctx, telemetry, alerts, cfg.TelemetryRetentionDays); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &MongoDatabase{
		Client:    client,
		Database:  database,
		Telemetry: telemetry,
		Alerts:    alerts,
	}, nil
}

func createMongoIndexes(ctx context.Context, telemetry, alerts *mongo.Collection, retentionDays int) error {
	telemetryIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "deviceId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "batteryId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{
			// Retention is enforced by the store, not the pipeline.
			Keys: bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(int32(retentionDays * 24 * 60 * 60)),
		},
	}
	if _, err := telemetry.Indexes().CreateMany(ctx, telemetryIndexes); err != nil {
		return err
	}

	alertIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "deviceId", Value: 1}, {Key: "type", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "batteryId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}, {Key: "severity", Value: 1}}},
	}
	if _, err := alerts.Indexes().CreateMany(ctx, alertIndexes); err != nil {
		return err
	}

	return nil
}

// Close disconnects the MongoDB client.
func (m *MongoDatabase) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

func initInflux(cfg *Config) (*InfluxDatabase, error) {
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     cfg.InfluxURL,
		Token:    cfg.InfluxToken,
		Database: cfg.InfluxDatabase,
	})
	if err != nil {
		return nil, fmt.Errorf("influx client failed: %w", err)
	}

	return &InfluxDatabase{
		Client:   client,
		Database: cfg.InfluxDatabase,
	}, nil
}

// Close shuts down the InfluxDB client.
func (i *InfluxDatabase) Close() error {
	return i.Client.Close()
}

func initRedis(cfg *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
