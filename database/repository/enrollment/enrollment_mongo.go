package enrollmentRepo

import (
	"context"
	"fmt"
	"time"

	"coursebill/database"
	"coursebill/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEnrollmentRepo implements EnrollmentRepository using MongoDB.
type MongoEnrollmentRepo struct {
	coll *mongo.Collection
}

// NewMongoEnrollmentRepo creates a new instance of EnrollmentRepository using MongoDB.
func NewMongoEnrollmentRepo() EnrollmentRepository {
	coll := database.Collection("enrollments")
	repo := &MongoEnrollmentRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoEnrollmentRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoEnrollmentRepo) Insert(enrollment models.Enrollment) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to insert enrollment: %w", err)
	}
	return nil
}

func (r *MongoEnrollmentRepo) GetByID(id string) (*models.Enrollment, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var enrollment models.Enrollment
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&enrollment)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch enrollment %s: %w", id, err)
	}
	return &enrollment, nil
}

func (r *MongoEnrollmentRepo) ListByUserAndProducts(tenantID, userID string, productIDs []string) ([]models.Enrollment, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"tenant_id":  tenantID,
		"user_id":    userID,
		"product_id": bson.M{"$in": productIDs},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer cursor.Close(ctx)

	var enrollments []models.Enrollment
	if err := cursor.All(ctx, &enrollments); err != nil {
		return nil, fmt.Errorf("failed to decode enrollments: %w", err)
	}
	return enrollments, nil
}

func (r *MongoEnrollmentRepo) updateByID(id string, update bson.M) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update enrollment %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("enrollment %s not found", id)
	}
	return nil
}

func (r *MongoEnrollmentRepo) SetStripeCustomerID(id, customerID string) error {
	return r.updateByID(id, bson.M{"$set": bson.M{"stripe_customer_id": customerID}})
}

func (r *MongoEnrollmentRepo) ClearStripeCustomerID(id string) error {
	return r.updateByID(id, bson.M{"$unset": bson.M{"stripe_customer_id": ""}})
}

func (r *MongoEnrollmentRepo) SetPaidAmount(id string, paidAmount decimal.Decimal, paymentStatus models.PaymentStatus) error {
	return r.updateByID(id, bson.M{"$set": bson.M{
		"paid_amount":    paidAmount,
		"payment_status": paymentStatus,
	}})
}
