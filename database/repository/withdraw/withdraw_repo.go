package withdrawRepo

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

// WithdrawRepository stores provider cash-out requests.
type WithdrawRepository interface {
	// Create returns database.ErrDuplicate when a pending withdraw already
	// references the same booking.
	Create(ctx context.Context, w *models.Withdraw) error
	GetByID(ctx context.Context, id string) (*models.Withdraw, error)
	// ExistsActiveForBooking reports a pending, processing or approved withdraw
	// for the booking.
	ExistsActiveForBooking(ctx context.Context, bookingID string) (bool, error)
	// UpdateStatus moves a withdraw out of from, writing the given fields.
	// It returns database.ErrStale when the withdraw is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to models.WithdrawStatus, fields WithdrawUpdate) error
	List(ctx context.Context, filter WithdrawFilter) ([]models.Withdraw, error)
}

// WithdrawUpdate holds optional fields written with a status change.
type WithdrawUpdate struct {
	TransferID      string
	Simulated       bool
	RejectionReason string
	ErrorMessage    string
}

type WithdrawFilter struct {
	ProviderID string
	Status     models.WithdrawStatus
}

type MongoWithdrawRepo struct {
	coll *mongo.Collection
}

func NewMongoWithdrawRepo() WithdrawRepository {
	repo := &MongoWithdrawRepo{coll: database.Database().Collection("withdraws")}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "bookingId", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"bookingId": bson.M{"$exists": true},
				"status":    models.WithdrawPending,
			}),
		},
		{Keys: bson.D{{Key: "providerId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		fmt.Printf("failed to create withdraw indexes: %v\n", err)
	}
	return repo
}

func (r *MongoWithdrawRepo) Create(ctx context.Context, w *models.Withdraw) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, w); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("withdraw for booking %s: %w", w.BookingID, database.ErrDuplicate)
		}
		return fmt.Errorf("error creating withdraw: %w", err)
	}
	return nil
}

func (r *MongoWithdrawRepo) GetByID(ctx context.Context, id string) (*models.Withdraw, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var w models.Withdraw
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching withdraw %s: %w", id, err)
	}
	return &w, nil
}

func (r *MongoWithdrawRepo) ExistsActiveForBooking(ctx context.Context, bookingID string) (bool, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"$or": bson.A{
			bson.M{"bookingId": bookingID},
			bson.M{"bookingIds": bookingID},
		},
		"status": bson.M{"$in": bson.A{models.WithdrawPending, models.WithdrawProcessing, models.WithdrawApproved}},
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("error checking withdraws for booking %s: %w", bookingID, err)
	}
	return n > 0, nil
}

func (r *MongoWithdrawRepo) UpdateStatus(ctx context.Context, id string, from, to models.WithdrawStatus, fields WithdrawUpdate) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"status": to, "updatedAt": time.Now().UTC()}
	if fields.TransferID != "" {
		set["stripeTransferId"] = fields.TransferID
		set["simulated"] = fields.Simulated
	}
	if fields.RejectionReason != "" {
		set["rejectionReason"] = fields.RejectionReason
	}
	if fields.ErrorMessage != "" {
		set["errorMessage"] = fields.ErrorMessage
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error updating withdraw %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("withdraw %s: %w", id, database.ErrStale)
	}
	return nil
}

func (r *MongoWithdrawRepo) List(ctx context.Context, f WithdrawFilter) ([]models.Withdraw, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{}
	if f.ProviderID != "" {
		filter["providerId"] = f.ProviderID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing withdraws: %w", err)
	}
	defer cursor.Close(ctx)

	withdraws := []models.Withdraw{}
	if err := cursor.All(ctx, &withdraws); err != nil {
		return nil, fmt.Errorf("error decoding withdraws: %w", err)
	}
	return withdraws, nil
}
