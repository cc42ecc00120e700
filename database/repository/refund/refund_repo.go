package refundRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	"github.com/Rohit420bhainwal/book-my-event-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RefundRepository stores refund audit records.
type RefundRepository interface {
	// Create returns database.ErrDuplicate when the payment already has an
	// unbooked refund record.
	Create(ctx context.Context, refund *models.Refund) error
	GetByID(ctx context.Context, id string) (*models.Refund, error)
	// Update replaces status, legs, amount and external references.
	Update(ctx context.Context, refund *models.Refund) error
	ListByBooking(ctx context.Context, bookingID string) ([]models.Refund, error)
	// GetByIntent returns the refund of a payment that never became a booking.
	GetByIntent(ctx context.Context, intentID string) (*models.Refund, error)
	List(ctx context.Context, limit int) ([]models.Refund, error)
}

type MongoRefundRepo struct {
	coll *mongo.Collection
}

func NewMongoRefundRepo() RefundRepository {
	repo := &MongoRefundRepo{coll: database.Database().Collection("refunds")}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "bookingId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{
			Keys: bson.D{{Key: "paymentIntentId", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"paymentIntentId": bson.M{"$exists": true}}),
		},
	})
	if err != nil {
		fmt.Printf("failed to create refund indexes: %v\n", err)
	}
	return repo
}

func (r *MongoRefundRepo) Create(ctx context.Context, refund *models.Refund) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, refund); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return database.ErrDuplicate
		}
		return fmt.Errorf("error creating refund record: %w", err)
	}
	return nil
}

func (r *MongoRefundRepo) GetByID(ctx context.Context, id string) (*models.Refund, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var refund models.Refund
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&refund); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching refund %s: %w", id, err)
	}
	return &refund, nil
}

func (r *MongoRefundRepo) Update(ctx context.Context, refund *models.Refund) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	refund.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"status":             refund.Status,
		"amount":             refund.Amount,
		"legs":               refund.Legs,
		"stripeRefundId":     refund.ExternalRefundID,
		"reversedTransferId": refund.ReversedTransfer,
		"errorMessage":       refund.ErrorMessage,
		"updatedAt":          refund.UpdatedAt,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": refund.ID}, update)
	if err != nil {
		return fmt.Errorf("error updating refund %s: %w", refund.ID, err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (r *MongoRefundRepo) GetByIntent(ctx context.Context, intentID string) (*models.Refund, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var refund models.Refund
	if err := r.coll.FindOne(ctx, bson.M{"paymentIntentId": intentID}).Decode(&refund); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching refund for payment %s: %w", intentID, err)
	}
	return &refund, nil
}

func (r *MongoRefundRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.Refund, error) {
	return r.find(ctx, bson.M{"bookingId": bookingID}, 0)
}

func (r *MongoRefundRepo) List(ctx context.Context, limit int) ([]models.Refund, error) {
	return r.find(ctx, bson.M{}, limit)
}

func (r *MongoRefundRepo) find(ctx context.Context, filter bson.M, limit int) ([]models.Refund, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing refunds: %w", err)
	}
	defer cursor.Close(ctx)

	refunds := []models.Refund{}
	if err := cursor.All(ctx, &refunds); err != nil {
		return nil, fmt.Errorf("error decoding refunds: %w", err)
	}
	return refunds, nil
}
