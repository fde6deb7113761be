package registry

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// toolConnection is the subset of an integrated tool connection the stream needs.
type toolConnection struct {
	AgentToolID string `bson:"agentToolId"`
	MachineID   string `bson:"machineId"`
}

// Mongo looks bindings up in the integrated tool connections collection.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongo connects to uri and verifies the connection.
func NewMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	if collection == "" {
		collection = DefaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Mongo{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// FindMachineIDByAgentID returns the machine of the connection whose agentToolId is agentID.
func (m *Mongo) FindMachineIDByAgentID(ctx context.Context, agentID string) (string, bool, error) {
	opts := options.FindOne().SetProjection(bson.M{"agentToolId": 1, "machineId": 1})

	var conn toolConnection
	err := m.collection.FindOne(ctx, bson.M{"agentToolId": agentID}, opts).Decode(&conn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find tool connection %s: %w", agentID, err)
	}
	if conn.MachineID == "" {
		return "", false, nil
	}
	return conn.MachineID, true, nil
}

// Ping checks the connection.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
