package paymentRepo

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

// MongoPaymentRepo implements PaymentRepository using MongoDB.
type MongoPaymentRepo struct {
	coll *mongo.Collection
}

// NewMongoPaymentRepo creates a new instance of PaymentRepository using MongoDB.
func NewMongoPaymentRepo() PaymentRepository {
	coll := database.Collection("payments")
	repo := &MongoPaymentRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoPaymentRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "schedule_id", Value: 1}}},
		{Keys: bson.D{{Key: "enrollment_id", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepo) Insert(record models.PaymentRecord) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert payment record: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepo) GetByScheduleID(scheduleID string) (*models.PaymentRecord, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var record models.PaymentRecord
	err := r.coll.FindOne(
		ctx,
		bson.M{"schedule_id": scheduleID},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment record for schedule %s: %w", scheduleID, err)
	}
	return &record, nil
}

func (r *MongoPaymentRepo) ApplyRefund(id string, refundedAmount decimal.Decimal, status models.PaymentRecordStatus, reason string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{
		"refunded_amount": refundedAmount,
		"status":          status,
		"refund_reason":   reason,
		"updated_at":      time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("failed to apply refund to payment record %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("payment record %s not found", id)
	}
	return nil
}
