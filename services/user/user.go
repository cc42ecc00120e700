package user

import (
	"context"
	"errors"
	"strings"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	providerRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/provider"
	userRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/user"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"go.uber.org/zap"
)

type UserService interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// UpdateFCMToken stores the caller's push token on the collection
	// matching their role.
	UpdateFCMToken(ctx context.Context, caller models.Principal, token string) error
}

type DefaultUserService struct {
	Users     userRepo.UserRepository
	Providers providerRepo.ProviderRepository
	Logger    *zap.Logger
}

func NewDefaultUserService(users userRepo.UserRepository, providers providerRepo.ProviderRepository, logger *zap.Logger) *DefaultUserService {
	return &DefaultUserService{Users: users, Providers: providers, Logger: logger}
}

func (s *DefaultUserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, utils.NewNotFoundError("user %s not found", id)
		}
		return nil, utils.NewInternalError(err, "failed to load user %s", id)
	}
	return u, nil
}

func (s *DefaultUserService) UpdateFCMToken(ctx context.Context, caller models.Principal, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return utils.NewValidationError("fcmToken is required")
	}

	var err error
	switch caller.Role {
	case models.RoleCustomer:
		err = s.Users.UpdateFCMToken(ctx, caller.UserID, token)
	case models.RoleProvider:
		err = s.Providers.UpdateFCMToken(ctx, caller.UserID, token)
	default:
		return utils.NewAuthorizationError("role %s cannot register a device token", caller.Role)
	}
	if errors.Is(err, database.ErrNotFound) {
		return utils.NewNotFoundError("%s %s not found", caller.Role, caller.UserID)
	}
	if err != nil {
		return utils.NewInternalError(err, "failed to update device token")
	}
	s.Logger.Debug("fcm token updated", zap.String("userId", caller.UserID), zap.String("role", string(caller.Role)))
	return nil
}
