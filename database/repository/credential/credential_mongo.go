package credentialRepo

import (
	"context"
	"fmt"
	"time"

	"coursebill/database"
	"coursebill/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCredentialRepo implements CredentialRepository using MongoDB.
type MongoCredentialRepo struct {
	coll *mongo.Collection
}

// NewMongoCredentialRepo creates a new instance of CredentialRepository using MongoDB.
func NewMongoCredentialRepo() CredentialRepository {
	coll := database.Collection("payment_credentials")
	repo := &MongoCredentialRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoCredentialRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoCredentialRepo) GetEnabledByTenant(tenantID string) (*models.PaymentCredential, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var credential models.PaymentCredential
	err := r.coll.FindOne(ctx, bson.M{"tenant_id": tenantID, "enabled": true}).Decode(&credential)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch credentials for tenant %s: %w", tenantID, err)
	}
	return &credential, nil
}
