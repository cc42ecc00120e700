package availabilityRepo

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

// AvailabilityRepository stores one weekly schedule per service.
type AvailabilityRepository interface {
	// Upsert replaces the schedule of cfg.ServiceID, keeping CreatedAt.
	Upsert(ctx context.Context, cfg *models.AvailabilityConfig) error
	// GetByService returns database.ErrNotFound when no schedule exists.
	GetByService(ctx context.Context, serviceID string) (*models.AvailabilityConfig, error)
}

type MongoAvailabilityRepo struct {
	coll *mongo.Collection
}

func NewMongoAvailabilityRepo() AvailabilityRepository {
	repo := &MongoAvailabilityRepo{coll: database.Database().Collection("availability_configs")}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "serviceId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "providerId", Value: 1}}},
	})
	if err != nil {
		fmt.Printf("failed to create availability indexes: %v\n", err)
	}
	return repo
}

func (r *MongoAvailabilityRepo) Upsert(ctx context.Context, cfg *models.AvailabilityConfig) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	cfg.UpdatedAt = now
	update := bson.M{
		"$set": bson.M{
			"providerId":  cfg.ProviderID,
			"workingDays": cfg.WorkingDays,
			"slots":       cfg.Slots,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"serviceId": cfg.ServiceID}, update, opts).Decode(cfg); err != nil {
		return fmt.Errorf("error saving availability for service %s: %w", cfg.ServiceID, err)
	}
	return nil
}

func (r *MongoAvailabilityRepo) GetByService(ctx context.Context, serviceID string) (*models.AvailabilityConfig, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cfg models.AvailabilityConfig
	if err := r.coll.FindOne(ctx, bson.M{"serviceId": serviceID}).Decode(&cfg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching availability for service %s: %w", serviceID, err)
	}
	return &cfg, nil
}
