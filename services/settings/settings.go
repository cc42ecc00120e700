package settings

import (
	"context"
	"errors"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	settingsRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/settings"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/booking"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"go.uber.org/zap"
)

// SettingsService reads the commission policy from the settings store on
// every call, so an admin update applies to the next booking priced.
type SettingsService interface {
	Commission(ctx context.Context) (models.CommissionPolicy, error)
	UpdateCommission(ctx context.Context, policy models.CommissionPolicy) (*models.Settings, error)
}

type DefaultSettingsService struct {
	repo     settingsRepo.SettingsRepository
	defaults models.CommissionPolicy
	logger   *zap.Logger
}

func NewSettingsService(repo settingsRepo.SettingsRepository, defaults models.CommissionPolicy, logger *zap.Logger) *DefaultSettingsService {
	return &DefaultSettingsService{repo: repo, defaults: defaults, logger: logger}
}

// Commission falls back to the configured default when nothing is stored.
func (s *DefaultSettingsService) Commission(ctx context.Context) (models.CommissionPolicy, error) {
	stored, err := s.repo.Get(ctx, models.CommissionSettingsKey)
	if errors.Is(err, database.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return models.CommissionPolicy{}, err
	}
	return stored.CommissionPolicy, nil
}

func (s *DefaultSettingsService) UpdateCommission(ctx context.Context, policy models.CommissionPolicy) (*models.Settings, error) {
	if err := booking.ValidatePolicy(policy); err != nil {
		return nil, err
	}
	doc := &models.Settings{
		Key:              models.CommissionSettingsKey,
		CommissionPolicy: policy,
		UpdatedAt:        time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, doc); err != nil {
		return nil, utils.NewInternalError(err, "failed to save commission settings")
	}
	s.logger.Info("commission policy updated",
		zap.String("type", string(policy.Type)),
		zap.Float64("value", policy.Value))
	return doc, nil
}
