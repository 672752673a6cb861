package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBackend mirrors export rows into a MongoDB collection so
// dashboards can query reports without touching the SQLite file.
type MongoBackend struct {
	client     *mongo.Client
	collection *mongo.Collection
	count      int
	logger     *slog.Logger
}

func NewMongoBackend(uri, database, collection string, logger *slog.Logger) (*MongoBackend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoBackend{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_export"),
	}, nil
}

func (b *MongoBackend) Name() string { return "mongodb" }

func (b *MongoBackend) Write(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	exportedAt := time.Now().UTC()
	docs := make([]any, len(rows))
	for i, row := range rows {
		doc := map[string]any{
			"keyword":     row.Keyword,
			"source":      row.Source,
			"score":       row.Score,
			"exported_at": exportedAt,
		}
		if row.Category != "" {
			doc["category"] = row.Category
		}
		putInt(doc, "autocomplete_position", row.AutocompletePosition)
		putInt(doc, "competition_count", row.CompetitionCount)
		putInt(doc, "estimated_volume", row.EstimatedVolume)
		putInt(doc, "impressions", row.Impressions)
		putInt(doc, "clicks", row.Clicks)
		putInt(doc, "orders", row.Orders)
		if row.SuggestedBid != nil {
			doc["suggested_bid"] = *row.SuggestedBid
		}
		docs[i] = doc
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := b.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}
	b.count += len(rows)
	return nil
}

func (b *MongoBackend) Close() error {
	b.logger.Info("mongodb mirror closing", "rows", b.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}

func putInt(doc map[string]any, key string, v *int) {
	if v != nil {
		doc[key] = *v
	}
}
