// internal/output/mongodb.go
package output

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/ChartMiner/internal/config"
	"github.com/valpere/ChartMiner/internal/dataset"
	"github.com/valpere/ChartMiner/internal/utils"
)

// MongoWriter mirrors the final dataset into a document collection. Records
// are upserted keyed by URL, so repeated runs converge instead of piling up
// duplicates.
type MongoWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	logger     utils.Logger
}

// NewMongoWriter connects and pings before returning, so a bad URI fails
// the run up front rather than at export time.
func NewMongoWriter(ctx context.Context, cfg *config.MongoConfig, logger utils.Logger) (*MongoWriter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mongodb configuration is required")
	}
	if logger == nil {
		logger = utils.NewComponentLogger("mongodb")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetRetryWrites(true))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(connectCtx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Infof("connected to MongoDB %s.%s", cfg.Database, cfg.Collection)
	return &MongoWriter{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// Write upserts every record in one bulk operation.
func (w *MongoWriter) Write(ctx context.Context, records []*dataset.Record) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"url": rec.URL}).
			SetReplacement(rec).
			SetUpsert(true))
	}

	writeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	result, err := w.collection.BulkWrite(writeCtx, models)
	if err != nil {
		return fmt.Errorf("failed to upsert records: %w", err)
	}

	w.logger.Infof("upserted %d records (inserted %d, modified %d)",
		len(records), result.UpsertedCount, result.ModifiedCount)
	return nil
}

// Close disconnects from the server.
func (w *MongoWriter) Close(ctx context.Context) error {
	closeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.client.Disconnect(closeCtx)
}
