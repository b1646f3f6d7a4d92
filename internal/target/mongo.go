package target

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/bankclean/bankclean/internal/dataset"
)

// insertBatchSize bounds the documents sent per InsertMany call.
const insertBatchSize = 1000

// MongoSink writes each table to a collection of the same name. The
// collection is dropped and refilled on every write.
type MongoSink struct {
	client   *mongo.Client
	database string
}

// NewMongoSink connects to MongoDB and verifies the connection.
func NewMongoSink(ctx context.Context, connectionString, database string) (*MongoSink, error) {
	opts := options.Client().ApplyURI(connectionString)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	return &MongoSink{client: client, database: database}, nil
}

func (m *MongoSink) WriteTable(ctx context.Context, t *dataset.Table) error {
	coll := m.client.Database(m.database).Collection(t.Name)
	if err := coll.Drop(ctx); err != nil {
		return fmt.Errorf("dropping collection %s: %w", t.Name, err)
	}

	batch := make([]interface{}, 0, insertBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := coll.InsertMany(ctx, batch); err != nil {
			return fmt.Errorf("inserting into %s: %w", t.Name, err)
		}
		batch = batch[:0]
		return nil
	}
	for _, row := range t.Rows {
		batch = append(batch, Document(t.Columns, row))
		if len(batch) == insertBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if len(t.Columns) > 0 && t.Len() > 0 {
		idx := mongo.IndexModel{
			Keys:    bson.D{{Key: t.Columns[0], Value: 1}},
			Options: options.Index().SetName(t.Columns[0] + "_1"),
		}
		if _, err := coll.Indexes().CreateOne(ctx, idx); err != nil {
			return fmt.Errorf("creating index on %s.%s: %w", t.Name, t.Columns[0], err)
		}
	}
	return nil
}

// CountDocuments returns the number of documents in a collection.
func (m *MongoSink) CountDocuments(ctx context.Context, collection string) (int64, error) {
	n, err := m.client.Database(m.database).Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("counting documents in %s: %w", collection, err)
	}
	return n, nil
}

func (m *MongoSink) Location() string {
	return "mongodb:" + m.database
}

// Close disconnects from MongoDB.
func (m *MongoSink) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Document converts a row into an ordered BSON document. Missing values are
// stored as null so every document carries every column.
func Document(columns []string, row []any) bson.D {
	doc := make(bson.D, 0, len(columns))
	for i, c := range columns {
		var v any
		if i < len(row) && !dataset.IsNull(row[i]) {
			v = bsonValue(row[i])
		}
		doc = append(doc, bson.E{Key: c, Value: v})
	}
	return doc
}

func bsonValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		d, err := bson.ParseDecimal128(x.String())
		if err != nil {
			return x.String()
		}
		return d
	case decimal.NullDecimal:
		if !x.Valid {
			return nil
		}
		return bsonValue(x.Decimal)
	case time.Time:
		return x.UTC()
	}
	return v
}
