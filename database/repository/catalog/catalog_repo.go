package catalogRepo

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

// CatalogRepository stores provider service listings.
type CatalogRepository interface {
	Create(ctx context.Context, svc *models.ServiceListing) error
	// GetByID returns database.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.ServiceListing, error)
	AddImage(ctx context.Context, id, filename string) error
	RemoveImage(ctx context.Context, id, filename string) error
}

type MongoCatalogRepo struct {
	coll *mongo.Collection
}

func NewMongoCatalogRepo() CatalogRepository {
	repo := &MongoCatalogRepo{coll: database.Database().Collection("services")}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "providerId", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "active", Value: 1}}},
	})
	if err != nil {
		fmt.Printf("failed to create service indexes: %v\n", err)
	}
	return repo
}

func (r *MongoCatalogRepo) Create(ctx context.Context, svc *models.ServiceListing) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, svc); err != nil {
		return fmt.Errorf("error creating service: %w", err)
	}
	return nil
}

func (r *MongoCatalogRepo) GetByID(ctx context.Context, id string) (*models.ServiceListing, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var svc models.ServiceListing
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&svc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching service %s: %w", id, err)
	}
	return &svc, nil
}

func (r *MongoCatalogRepo) AddImage(ctx context.Context, id, filename string) error {
	return r.update(ctx, id, bson.M{
		"$addToSet": bson.M{"images": filename},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *MongoCatalogRepo) RemoveImage(ctx context.Context, id, filename string) error {
	return r.update(ctx, id, bson.M{
		"$pull": bson.M{"images": filename},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *MongoCatalogRepo) update(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("error updating service %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}
