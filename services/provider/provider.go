package provider

import (
	"context"
	"errors"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	providerRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/provider"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"go.uber.org/zap"
)

type ProviderService interface {
	GetProviderByID(ctx context.Context, id string) (*models.Provider, error)
	// ConnectStripe creates or reuses the provider's connected account and
	// returns a fresh onboarding link for it.
	ConnectStripe(ctx context.Context, providerID string) (*StripeOnboarding, error)
	HandleAccountUpdated(ctx context.Context, status *payment.AccountStatus) error
	// ListProviders returns providers for the admin console, optionally by status.
	ListProviders(ctx context.Context, status models.ProviderStatus) ([]models.Provider, error)
	// UpdateStatus approves, rejects or suspends a provider.
	UpdateStatus(ctx context.Context, providerID string, status models.ProviderStatus) (*models.Provider, error)
}

type StripeOnboarding struct {
	AccountID     string `json:"accountId"`
	OnboardingURL string `json:"onboardingUrl"`
	Completed     bool   `json:"completed"`
}

// DefaultProviderService is the production implementation.
type DefaultProviderService struct {
	Repo      providerRepo.ProviderRepository
	Onboarder payment.AccountOnboarder
	Logger    *zap.Logger
}

func NewDefaultProviderService(repo providerRepo.ProviderRepository, onboarder payment.AccountOnboarder, logger *zap.Logger) *DefaultProviderService {
	return &DefaultProviderService{Repo: repo, Onboarder: onboarder, Logger: logger}
}

func (s *DefaultProviderService) GetProviderByID(ctx context.Context, id string) (*models.Provider, error) {
	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, utils.NewNotFoundError("provider %s not found", id)
		}
		return nil, utils.NewInternalError(err, "failed to load provider %s", id)
	}
	return p, nil
}

func (s *DefaultProviderService) ConnectStripe(ctx context.Context, providerID string) (*StripeOnboarding, error) {
	p, err := s.GetProviderByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if s.Onboarder == nil {
		return nil, utils.NewStateError("stripe onboarding is not configured")
	}

	accountID := p.StripeAccountID
	if accountID == "" {
		accountID, err = s.Onboarder.CreateConnectedAccount(ctx, p.ID, p.Contact)
		if err != nil {
			return nil, utils.NewGatewayError(err, "failed to create connected account")
		}
		if err := s.Repo.SetStripeAccount(ctx, p.ID, accountID); err != nil {
			return nil, utils.NewInternalError(err, "failed to save connected account")
		}
		s.Logger.Info("connected account created", zap.String("providerId", p.ID), zap.String("accountId", accountID))
	}

	link, err := s.Onboarder.OnboardingLink(ctx, accountID)
	if err != nil {
		return nil, utils.NewGatewayError(err, "failed to create onboarding link")
	}
	return &StripeOnboarding{
		AccountID:     accountID,
		OnboardingURL: link,
		Completed:     p.StripeOnboardingCompleted,
	}, nil
}

// HandleAccountUpdated marks the provider's payout destination ready once the
// connected account can receive transfers. Unknown accounts are ignored.
func (s *DefaultProviderService) HandleAccountUpdated(ctx context.Context, status *payment.AccountStatus) error {
	if status == nil || !status.Ready() {
		return nil
	}
	err := s.Repo.MarkStripeOnboarded(ctx, status.ID)
	if errors.Is(err, database.ErrNotFound) {
		s.Logger.Warn("account.updated for unknown connected account", zap.String("accountId", status.ID))
		return nil
	}
	if err != nil {
		return utils.NewInternalError(err, "failed to mark account %s onboarded", status.ID)
	}
	s.Logger.Info("connected account ready for payouts", zap.String("accountId", status.ID))
	return nil
}

func (s *DefaultProviderService) ListProviders(ctx context.Context, status models.ProviderStatus) ([]models.Provider, error) {
	if status != "" && !status.Valid() {
		return nil, utils.NewValidationError("unknown provider status %q", status)
	}
	out, err := s.Repo.List(ctx, status)
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to list providers")
	}
	return out, nil
}

func (s *DefaultProviderService) UpdateStatus(ctx context.Context, providerID string, status models.ProviderStatus) (*models.Provider, error) {
	switch status {
	case models.ProviderApproved, models.ProviderRejected, models.ProviderSuspended:
	default:
		return nil, utils.NewValidationError("status must be approved, rejected or suspended")
	}
	p, err := s.GetProviderByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if p.Status == status {
		return p, nil
	}
	if err := s.Repo.UpdateStatus(ctx, providerID, status); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, utils.NewNotFoundError("provider %s not found", providerID)
		}
		return nil, utils.NewInternalError(err, "failed to update provider %s", providerID)
	}
	s.Logger.Info("provider status changed",
		zap.String("providerId", providerID),
		zap.String("from", string(p.Status)),
		zap.String("to", string(status)))
	p.Status = status
	return p, nil
}
