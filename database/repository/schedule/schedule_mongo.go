package scheduleRepo

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

// MongoScheduleRepo implements ScheduleRepository using MongoDB.
type MongoScheduleRepo struct {
	coll *mongo.Collection
}

// NewMongoScheduleRepo creates a new instance of ScheduleRepository using MongoDB.
func NewMongoScheduleRepo() ScheduleRepository {
	coll := database.Collection("payment_schedules")
	repo := &MongoScheduleRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoScheduleRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "enrollment_id", Value: 1}, {Key: "payment_number", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_date", Value: 1}}},
		{Keys: bson.D{{Key: "stripe_invoice_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "stripe_intent_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoScheduleRepo) InsertMany(rows []models.PaymentSchedule) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	docs := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row)
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert schedule rows: %w", err)
	}
	return nil
}

func (r *MongoScheduleRepo) findOne(filter bson.M) (*models.PaymentSchedule, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var row models.PaymentSchedule
	err := r.coll.FindOne(ctx, filter).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule row: %w", err)
	}
	return &row, nil
}

func (r *MongoScheduleRepo) GetByID(id string) (*models.PaymentSchedule, error) {
	return r.findOne(bson.M{"id": id})
}

func (r *MongoScheduleRepo) GetByInvoiceID(invoiceID string) (*models.PaymentSchedule, error) {
	return r.findOne(bson.M{"stripe_invoice_id": invoiceID})
}

func (r *MongoScheduleRepo) GetByIntentID(intentID string) (*models.PaymentSchedule, error) {
	return r.findOne(bson.M{"stripe_intent_id": intentID})
}

func (r *MongoScheduleRepo) findMany(filter bson.M, opts ...*options.FindOptions) ([]models.PaymentSchedule, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule rows: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []models.PaymentSchedule
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode schedule rows: %w", err)
	}
	return rows, nil
}

func (r *MongoScheduleRepo) ListByEnrollment(enrollmentID string) ([]models.PaymentSchedule, error) {
	return r.findMany(
		bson.M{"enrollment_id": enrollmentID},
		options.Find().SetSort(bson.D{{Key: "payment_number", Value: 1}}),
	)
}

func (r *MongoScheduleRepo) ListDue(horizon time.Time) ([]models.PaymentSchedule, error) {
	// Failed rows are eligible regardless of a leftover invoice reference: a
	// declined charge keeps its invoice id for settlement matching, and must
	// still be retried by the next sweep.
	filter := bson.M{
		"scheduled_date": bson.M{"$lte": horizon},
		"$or": []bson.M{
			{
				"status": bson.M{"$in": []models.ScheduleStatus{
					models.SchedulePending,
					models.ScheduleAdjusted,
				}},
				"stripe_invoice_id": bson.M{"$in": []interface{}{nil, ""}},
			},
			{"status": models.ScheduleFailed},
		},
	}
	return r.findMany(filter, options.Find().SetSort(bson.D{{Key: "scheduled_date", Value: 1}}))
}

func (r *MongoScheduleRepo) ListUncollected(enrollmentIDs []string) ([]models.PaymentSchedule, error) {
	if len(enrollmentIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"enrollment_id": bson.M{"$in": enrollmentIDs},
		"status": bson.M{"$in": []models.ScheduleStatus{
			models.SchedulePending,
			models.ScheduleFailed,
			models.ScheduleAdjusted,
		}},
	}
	return r.findMany(filter)
}

func (r *MongoScheduleRepo) updateByID(id string, update bson.M) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update schedule row %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("schedule row %s not found", id)
	}
	return nil
}

func (r *MongoScheduleRepo) SetProcessing(id, invoiceID, intentID string) error {
	set := bson.M{
		"status":     models.ScheduleProcessing,
		"updated_at": time.Now(),
	}
	if invoiceID != "" {
		set["stripe_invoice_id"] = invoiceID
	}
	if intentID != "" {
		set["stripe_intent_id"] = intentID
	}
	return r.updateByID(id, bson.M{"$set": set})
}

func (r *MongoScheduleRepo) SetIntent(id, intentID string) error {
	return r.updateByID(id, bson.M{"$set": bson.M{
		"stripe_intent_id": intentID,
		"updated_at":       time.Now(),
	}})
}

func (r *MongoScheduleRepo) MarkPaid(id string, paidAt time.Time) error {
	return r.updateByID(id, bson.M{"$set": bson.M{
		"status":     models.SchedulePaid,
		"paid_date":  paidAt,
		"updated_at": time.Now(),
	}})
}

func (r *MongoScheduleRepo) MarkFailed(id string) error {
	return r.updateByID(id, bson.M{"$set": bson.M{
		"status":     models.ScheduleFailed,
		"updated_at": time.Now(),
	}})
}

func (r *MongoScheduleRepo) SetRefund(id string, status models.ScheduleStatus, refundedAmount decimal.Decimal) error {
	return r.updateByID(id, bson.M{"$set": bson.M{
		"status":          status,
		"refunded_amount": refundedAmount,
		"updated_at":      time.Now(),
	}})
}

func (r *MongoScheduleRepo) Adjust(id string, amount decimal.Decimal, scheduledDate time.Time) error {
	return r.updateByID(id, bson.M{"$set": bson.M{
		"amount":            amount,
		"scheduled_date":    scheduledDate,
		"status":            models.ScheduleAdjusted,
		"stripe_invoice_id": "",
		"stripe_intent_id":  "",
		"updated_at":        time.Now(),
	}})
}

func (r *MongoScheduleRepo) SumPaid(enrollmentID string) (decimal.Decimal, error) {
	rows, err := r.findMany(bson.M{
		"enrollment_id": enrollmentID,
		"status":        models.SchedulePaid,
	})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total, nil
}
