package eventlog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists events in MongoDB with a unique index on the
// message id.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to uri and ensures the unique message-id
// index on database/collection "wabridge.webhook_events".
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, Registry.New(ErrConnectionFailed).WithCause(err)
	}

	collection := client.Database("wabridge").Collection("webhook_events")
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "message_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, Registry.New(ErrConnectionFailed).WithCause(err).WithDetail("operation", "ensure_index")
	}

	return &MongoStore{client: client, collection: collection}, nil
}

func (s *MongoStore) Record(ctx context.Context, ev Event) (bool, error) {
	_, err := s.collection.InsertOne(ctx, ev)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return true, nil
		}
		return false, Registry.New(ErrRecordFailed).WithCause(err)
	}
	return false, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
