package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	catalogRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/catalog"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/storage"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImagesPerListing caps the gallery of one listing.
const MaxImagesPerListing = 10

type CatalogService interface {
	Create(ctx context.Context, providerID string, req CreateListingRequest) (*models.ServiceListing, error)
	Get(ctx context.Context, id string) (*models.ServiceListing, error)
	AddImage(ctx context.Context, providerID, serviceID string, r io.Reader, originalName string) (*models.ServiceListing, error)
	RemoveImage(ctx context.Context, providerID, serviceID, filename string) (*models.ServiceListing, error)
}

type CreateListingRequest struct {
	Name     string  `json:"name" binding:"required"`
	Category string  `json:"category" binding:"required"`
	Price    float64 `json:"price" binding:"required"`
	Currency string  `json:"currency"`
}

type DefaultCatalogService struct {
	repo              catalogRepo.CatalogRepository
	blobs             storage.BlobStore
	logger            *zap.Logger
	defaultCurrency   string
	allowedCurrencies []string
}

func NewCatalogService(repo catalogRepo.CatalogRepository, blobs storage.BlobStore, logger *zap.Logger, defaultCurrency string, allowedCurrencies []string) *DefaultCatalogService {
	return &DefaultCatalogService{
		repo:              repo,
		blobs:             blobs,
		logger:            logger,
		defaultCurrency:   defaultCurrency,
		allowedCurrencies: allowedCurrencies,
	}
}

func (s *DefaultCatalogService) Create(ctx context.Context, providerID string, req CreateListingRequest) (*models.ServiceListing, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, utils.NewValidationError("name is required")
	}
	if req.Price <= 0 {
		return nil, utils.NewValidationError("price must be greater than zero")
	}
	currency := utils.NormalizeCurrency(req.Currency)
	if currency == "" {
		currency = utils.NormalizeCurrency(s.defaultCurrency)
	}
	if !utils.CurrencyAllowed(currency, s.allowedCurrencies) {
		return nil, utils.NewValidationError("currency %q is not supported", currency)
	}

	now := time.Now().UTC()
	svc := &models.ServiceListing{
		ID:         uuid.New().String(),
		ProviderID: providerID,
		Name:       name,
		Category:   strings.ToLower(strings.TrimSpace(req.Category)),
		Price:      utils.RoundMoney(req.Price),
		Currency:   currency,
		Images:     []string{},
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, utils.NewInternalError(err, "failed to create service")
	}
	s.logger.Info("service listing created", zap.String("serviceId", svc.ID), zap.String("providerId", providerID))
	return svc, nil
}

func (s *DefaultCatalogService) Get(ctx context.Context, id string) (*models.ServiceListing, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, utils.NewNotFoundError("service %s not found", id)
		}
		return nil, utils.NewInternalError(err, "failed to load service %s", id)
	}
	return svc, nil
}

// AddImage uploads the image and appends it to the listing gallery.
func (s *DefaultCatalogService) AddImage(ctx context.Context, providerID, serviceID string, r io.Reader, originalName string) (*models.ServiceListing, error) {
	svc, err := s.owned(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}
	if len(svc.Images) >= MaxImagesPerListing {
		return nil, utils.NewValidationError("a service may have at most %d images", MaxImagesPerListing)
	}

	filename, err := s.blobs.Store(ctx, providerID, r, originalName)
	if err != nil {
		return nil, utils.NewValidationError("failed to store image: %v", err)
	}
	if err := s.repo.AddImage(ctx, serviceID, filename); err != nil {
		// Keep the blob store in step with the listing.
		if delErr := s.blobs.Delete(ctx, filename); delErr != nil {
			s.logger.Warn("orphaned image", zap.String("filename", filename), zap.Error(delErr))
		}
		return nil, utils.NewInternalError(err, "failed to attach image")
	}
	svc.Images = append(svc.Images, filename)
	return svc, nil
}

func (s *DefaultCatalogService) RemoveImage(ctx context.Context, providerID, serviceID, filename string) (*models.ServiceListing, error) {
	svc, err := s.owned(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, img := range svc.Images {
		if img == filename {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, utils.NewNotFoundError("image %s not found on service %s", filename, serviceID)
	}

	if err := s.repo.RemoveImage(ctx, serviceID, filename); err != nil {
		return nil, utils.NewInternalError(err, "failed to detach image")
	}
	if err := s.blobs.Delete(ctx, filename); err != nil {
		s.logger.Warn("failed to delete image blob", zap.String("filename", filename), zap.Error(err))
	}
	svc.Images = append(svc.Images[:idx], svc.Images[idx+1:]...)
	return svc, nil
}

func (s *DefaultCatalogService) owned(ctx context.Context, providerID, serviceID string) (*models.ServiceListing, error) {
	svc, err := s.Get(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.ProviderID != providerID {
		return nil, utils.NewAuthorizationError("service %s does not belong to this provider", serviceID)
	}
	return svc, nil
}
