package userRepo

import (
	"context"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
)

// UserRepository defines methods for customer data access.
type UserRepository interface {
	// GetByID retrieves a user by its unique ID.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Create inserts a new user record.
	Create(ctx context.Context, user *models.User) error
	// UpdateFCMToken stores the user's push token.
	UpdateFCMToken(ctx context.Context, id, token string) error
}
