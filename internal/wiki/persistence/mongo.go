package persistence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoRecord is the stored shape: one document per record name.
type mongoRecord struct {
	Name      string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoAdapter stores records in a MongoDB collection keyed by record name.
type MongoAdapter struct {
	col *mongo.Collection
}

// NewMongoAdapter uses the given collection. Caller owns the client.
func NewMongoAdapter(col *mongo.Collection) *MongoAdapter {
	return &MongoAdapter{col: col}
}

func (m *MongoAdapter) Load(ctx context.Context, name string) ([]byte, error) {
	var rec mongoRecord
	if err := m.col.FindOne(ctx, bson.M{"_id": name}).Decode(&rec); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("mongo load %s: %w", name, err)
	}
	return rec.Data, nil
}

func (m *MongoAdapter) Save(ctx context.Context, name string, data []byte) error {
	rec := mongoRecord{Name: name, Data: data, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.col.ReplaceOne(ctx, bson.M{"_id": name}, rec, opts); err != nil {
		return fmt.Errorf("mongo save %s: %w", name, err)
	}
	return nil
}
