package providerRepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	"github.com/Rohit420bhainwal/book-my-event-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProviderRepo implements ProviderRepository using MongoDB.
type MongoProviderRepo struct {
	coll *mongo.Collection
}

// NewMongoProviderRepo creates a new instance of ProviderRepository using MongoDB.
func NewMongoProviderRepo() ProviderRepository {
	repo := &MongoProviderRepo{coll: database.Database().Collection("providers")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create provider indexes: %v\n", err)
	}
	return repo
}

func (r *MongoProviderRepo) GetByID(ctx context.Context, id string) (*models.Provider, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoProviderRepo) GetByStripeAccountID(ctx context.Context, accountID string) (*models.Provider, error) {
	return r.findOne(ctx, bson.M{"stripeAccountId": accountID})
}

func (r *MongoProviderRepo) findOne(ctx context.Context, filter bson.M) (*models.Provider, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var provider models.Provider
	if err := r.coll.FindOne(ctx, filter).Decode(&provider); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch provider: %w", err)
	}
	return &provider, nil
}

func (r *MongoProviderRepo) Create(ctx context.Context, provider *models.Provider) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	provider.CreatedAt, provider.UpdatedAt = now, now
	if _, err := r.coll.InsertOne(ctx, provider); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return database.ErrDuplicate
		}
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

func (r *MongoProviderRepo) SetStripeAccount(ctx context.Context, id, accountID string) error {
	return r.updateOne(ctx, bson.M{"id": id}, bson.M{
		"stripeAccountId":           accountID,
		"stripeOnboardingCompleted": false,
	})
}

func (r *MongoProviderRepo) MarkStripeOnboarded(ctx context.Context, accountID string) error {
	return r.updateOne(ctx, bson.M{"stripeAccountId": accountID}, bson.M{
		"stripeOnboardingCompleted": true,
	})
}

func (r *MongoProviderRepo) UpdateStatus(ctx context.Context, id string, status models.ProviderStatus) error {
	return r.updateOne(ctx, bson.M{"id": id}, bson.M{"status": status})
}

func (r *MongoProviderRepo) List(ctx context.Context, status models.ProviderStatus) ([]models.Provider, error) {
	ctx, cancel := database.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer cursor.Close(ctx)

	providers := []models.Provider{}
	if err := cursor.All(ctx, &providers); err != nil {
		return nil, fmt.Errorf("failed to decode providers: %w", err)
	}
	return providers, nil
}

func (r *MongoProviderRepo) UpdateFCMToken(ctx context.Context, id, token string) error {
	return r.updateOne(ctx, bson.M{"id": id}, bson.M{"fcmToken": token})
}

func (r *MongoProviderRepo) updateOne(ctx context.Context, filter, set bson.M) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set["updatedAt"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ApplyRating recomputes the running average in a single pipeline update so
// concurrent reviews never overwrite each other.
func (r *MongoProviderRepo) ApplyRating(ctx context.Context, id string, rating int) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count := bson.D{{Key: "$ifNull", Value: bson.A{"$rating.count", 0}}}
	average := bson.D{{Key: "$ifNull", Value: bson.A{"$rating.average", 0}}}
	bucket := "rating.distribution." + strconv.Itoa(rating)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "rating.average", Value: bson.D{{Key: "$divide", Value: bson.A{
				bson.D{{Key: "$add", Value: bson.A{
					bson.D{{Key: "$multiply", Value: bson.A{average, count}}},
					rating,
				}}},
				bson.D{{Key: "$add", Value: bson.A{count, 1}}},
			}}}},
			{Key: "rating.count", Value: bson.D{{Key: "$add", Value: bson.A{count, 1}}}},
			{Key: bucket, Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$" + bucket, 0}}},
				1,
			}}}},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, pipeline)
	if err != nil {
		return fmt.Errorf("failed to apply rating to provider %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}
