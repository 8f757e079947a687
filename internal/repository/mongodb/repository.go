package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/wellcast/internal/domain/models"
)

const financialsCollection = "financial_summaries"

// Repository defines the interface for financial summary storage.
type Repository interface {
	SaveFinancialSummaries(ctx context.Context, summaries []models.FinancialSummary) error
	ListFinancialSummaries(ctx context.Context, wellCode string) ([]models.FinancialSummary, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: financialsCollection,
	}, nil
}

// SaveFinancialSummaries inserts the summaries in one batch.
func (r *MongoDBRepository) SaveFinancialSummaries(ctx context.Context, summaries []models.FinancialSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	docs := make([]interface{}, len(summaries))
	for i := range summaries {
		docs[i] = summaries[i]
	}

	collection := r.client.Database(r.dbName).Collection(r.collName)
	if _, err := collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert financial summaries: %w", err)
	}
	return nil
}

// ListFinancialSummaries returns stored summaries, optionally restricted to one well, oldest first.
func (r *MongoDBRepository) ListFinancialSummaries(ctx context.Context, wellCode string) ([]models.FinancialSummary, error) {
	filter := bson.M{}
	if wellCode != "" {
		filter["well_code"] = wellCode
	}

	collection := r.client.Database(r.dbName).Collection(r.collName)
	cursor, err := collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "reference_date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query financial summaries: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.FinancialSummary
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode financial summaries: %w", err)
	}
	return out, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
