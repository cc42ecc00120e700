package providerRepo

import (
	"context"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
)

// ProviderRepository defines methods for provider data access.
type ProviderRepository interface {
	// GetByID retrieves a provider by its unique ID.
	GetByID(ctx context.Context, id string) (*models.Provider, error)
	// GetByStripeAccountID retrieves the provider owning a connected account.
	GetByStripeAccountID(ctx context.Context, accountID string) (*models.Provider, error)
	// Create inserts a new provider record.
	Create(ctx context.Context, provider *models.Provider) error
	// SetStripeAccount binds a connected account to the provider.
	SetStripeAccount(ctx context.Context, id, accountID string) error
	// MarkStripeOnboarded flags the connected account as ready for transfers.
	MarkStripeOnboarded(ctx context.Context, accountID string) error
	// UpdateFCMToken stores the provider's push token.
	UpdateFCMToken(ctx context.Context, id, token string) error
	// ApplyRating folds one review rating into the provider's summary.
	ApplyRating(ctx context.Context, id string, rating int) error
	// List returns providers newest first. An empty status matches all.
	List(ctx context.Context, status models.ProviderStatus) ([]models.Provider, error)
	// UpdateStatus sets the approval status of a provider.
	UpdateStatus(ctx context.Context, id string, status models.ProviderStatus) error
}
