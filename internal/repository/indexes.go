package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureIndexes creates the indexes the repositories query on. Failures are
// logged and do not stop startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) {
	createIndex(ctx, logger, db.Collection("surveys"), bson.D{
		{Key: "tenantId", Value: 1},
		{Key: "updatedAt", Value: -1},
	}, false)
	createIndex(ctx, logger, db.Collection("submissions"), bson.D{
		{Key: "tenantId", Value: 1},
		{Key: "surveyId", Value: 1},
		{Key: "submittedAt", Value: -1},
	}, false)

	logger.Info("mongo indexes ensured")
}

func createIndex(ctx context.Context, logger *zap.Logger, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		logger.Warn("failed to create index", zap.String("collection", coll.Name()), zap.Error(err))
	}
}
