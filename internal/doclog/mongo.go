package doclog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store over a MongoDB database.
type MongoStore struct {
	client   *mongo.Client
	database string
}

// ConnectMongo establishes a MongoDB connection and verifies it with a ping
// before returning, so the composing layer never accepts traffic against a
// store that was never reachable.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, database: database}, nil
}

// InsertRecord appends record to the named collection.
func (s *MongoStore) InsertRecord(ctx context.Context, collection string, record any) (bool, error) {
	res, err := s.client.Database(s.database).Collection(collection).InsertOne(ctx, record)
	if err != nil {
		return false, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return res.InsertedID != nil, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
