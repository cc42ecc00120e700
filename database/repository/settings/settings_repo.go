package settingsRepo

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

// SettingsRepository reads and writes keyed platform settings.
type SettingsRepository interface {
	// Get returns database.ErrNotFound when the key was never written.
	Get(ctx context.Context, key string) (*models.Settings, error)
	Upsert(ctx context.Context, s *models.Settings) error
}

type MongoSettingsRepo struct {
	coll *mongo.Collection
}

func NewMongoSettingsRepo() SettingsRepository {
	repo := &MongoSettingsRepo{coll: database.Database().Collection("settings")}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		fmt.Printf("failed to create settings index: %v\n", err)
	}
	return repo
}

func (r *MongoSettingsRepo) Get(ctx context.Context, key string) (*models.Settings, error) {
	ctx, cancel := database.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s models.Settings
	if err := r.coll.FindOne(ctx, bson.M{"key": key}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching settings %s: %w", key, err)
	}
	return &s, nil
}

func (r *MongoSettingsRepo) Upsert(ctx context.Context, s *models.Settings) error {
	ctx, cancel := database.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s.UpdatedAt = time.Now().UTC()
	_, err := r.coll.ReplaceOne(ctx, bson.M{"key": s.Key}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving settings %s: %w", s.Key, err)
	}
	return nil
}
