package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/env"
)

// ReportsCollection holds report documents when REPORT_STORE=mongo
const ReportsCollection = "reports"

var (
	mongoClient *mongo.Client
	mongoDB     *mongo.Database
)

// UseMongoReports reports whether reports live in MongoDB instead of the SQL database
func UseMongoReports() bool {
	return strings.EqualFold(env.GetEnv("REPORT_STORE", "sql"), "mongo")
}

// ConnectMongo opens the singleton MongoDB connection and ensures the report indexes.
func ConnectMongo(ctx context.Context) error {
	if mongoClient != nil && mongoDB != nil {
		return nil
	}

	uri := env.GetEnv("MONGO_URI", "mongodb://localhost:27017")
	name := env.GetEnv("MONGO_DB", "bantaydalan")
	start := time.Now()
	log.Infof("[Mongo] Connecting uri=%s db=%s", redactURI(uri), name)

	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	if err = c.Ping(dctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return fmt.Errorf("mongo ping: %w", err)
	}

	mongoClient = c
	mongoDB = c.Database(name)

	if err := createIndexes(ctx); err != nil {
		log.Warnf("[Mongo] Index creation warnings: %v", err)
	}

	log.Infof("[Mongo] Connected in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// DisconnectMongo closes the connection if one is open
func DisconnectMongo(ctx context.Context) error {
	if mongoClient == nil {
		return nil
	}
	defer func() { mongoClient, mongoDB = nil, nil }()
	return mongoClient.Disconnect(ctx)
}

// Col returns a collection of the connected database
func Col(name string) *mongo.Collection {
	if mongoDB == nil {
		panic("mongo not connected: call database.ConnectMongo first")
	}
	return mongoDB.Collection(name)
}

func createIndexes(ctx context.Context) error {
	ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	col := Col(ReportsCollection)
	indexes := map[string]mongo.IndexModel{
		"created_at": {Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		"status":     {Keys: bson.D{{Key: "status", Value: 1}}},
		"type":       {Keys: bson.D{{Key: "type", Value: 1}}},
		"lat,lng":    {Keys: bson.D{{Key: "location.latitude", Value: 1}, {Key: "location.longitude", Value: 1}}},
		"tracking_code": {
			Keys:    bson.D{{Key: "tracking_code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	var errs []string
	for name, model := range indexes {
		if _, err := col.Indexes().CreateOne(ictx, model); err != nil {
			errs = append(errs, name+": "+err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func redactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
