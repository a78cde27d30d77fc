package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/seedbank/internal/domain/models"
)

const (
	snapshotsCollection       = "inventory_snapshots"
	reconciliationsCollection = "reconciliation_reports"
)

// Repository defines the interface for report storage.
type Repository interface {
	SaveInventorySnapshot(ctx context.Context, snapshot models.InventorySnapshot) error
	ListInventorySnapshots(ctx context.Context, limit int64) ([]models.InventorySnapshot, error)
	SaveReconciliationReport(ctx context.Context, report models.ReconciliationReport) error
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{client: client, dbName: dbName}, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// SaveInventorySnapshot stores the snapshot for its day, replacing an earlier run of the same day.
func (r *MongoDBRepository) SaveInventorySnapshot(ctx context.Context, snapshot models.InventorySnapshot) error {
	_, err := r.collection(snapshotsCollection).ReplaceOne(ctx,
		bson.M{"date": snapshot.Date},
		snapshot,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert inventory snapshot: %w", err)
	}
	return nil
}

// ListInventorySnapshots returns the latest snapshots, newest first.
func (r *MongoDBRepository) ListInventorySnapshots(ctx context.Context, limit int64) ([]models.InventorySnapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	cursor, err := r.collection(snapshotsCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory snapshots: %w", err)
	}

	snapshots := []models.InventorySnapshot{}
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode inventory snapshots: %w", err)
	}
	return snapshots, nil
}

// SaveReconciliationReport appends one reconciliation run.
func (r *MongoDBRepository) SaveReconciliationReport(ctx context.Context, report models.ReconciliationReport) error {
	if _, err := r.collection(reconciliationsCollection).InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to insert reconciliation report: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
