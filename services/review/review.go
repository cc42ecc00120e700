package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	bookingRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/booking"
	catalogRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/catalog"
	providerRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/provider"
	reviewRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/review"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/notification"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewService interface {
	Submit(ctx context.Context, customerID string, req SubmitRequest) (*models.Review, error)
	ListByProvider(ctx context.Context, providerID string, limit int) ([]models.Review, error)
}

type SubmitRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Comment   string `json:"comment"`
}

type DefaultReviewService struct {
	reviews   reviewRepo.ReviewRepository
	bookings  bookingRepo.BookingRepository
	providers providerRepo.ProviderRepository
	catalog   catalogRepo.CatalogRepository
	publisher notification.Publisher
	logger    *zap.Logger
}

func NewReviewService(
	reviews reviewRepo.ReviewRepository,
	bookings bookingRepo.BookingRepository,
	providers providerRepo.ProviderRepository,
	catalog catalogRepo.CatalogRepository,
	publisher notification.Publisher,
	logger *zap.Logger,
) *DefaultReviewService {
	if publisher == nil {
		publisher = notification.NopPublisher{}
	}
	return &DefaultReviewService{
		reviews:   reviews,
		bookings:  bookings,
		providers: providers,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
	}
}

// Submit records the customer's review of a completed booking and folds the
// rating into the provider summary.
func (s *DefaultReviewService) Submit(ctx context.Context, customerID string, req SubmitRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, utils.NewValidationError("rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) > models.MaxReviewCommentLength {
		return nil, utils.NewValidationError("comment must be at most %d characters", models.MaxReviewCommentLength)
	}

	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, utils.NewNotFoundError("booking %s not found", req.BookingID)
		}
		return nil, utils.NewInternalError(err, "failed to load booking %s", req.BookingID)
	}
	if b.CustomerID != customerID {
		return nil, utils.NewAuthorizationError("booking %s does not belong to this customer", b.ID)
	}
	if b.Status != models.BookingCompleted || b.RefundStatus != models.RefundNone {
		return nil, utils.NewStateError("only completed, unrefunded bookings can be reviewed")
	}
	if b.ReviewStatus != models.ReviewPending {
		return nil, utils.NewConflictError("booking %s has already been reviewed", b.ID)
	}

	rv := &models.Review{
		ID:         uuid.New().String(),
		BookingID:  b.ID,
		CustomerID: customerID,
		ProviderID: b.ProviderID,
		ServiceID:  b.ServiceID,
		Rating:     req.Rating,
		Comment:    comment,
		Status:     models.ReviewActive,
		CreatedAt:  time.Now().UTC(),
	}
	if p, err := s.providers.GetByID(ctx, b.ProviderID); err == nil {
		rv.ProviderName = p.BusinessName
	}
	if svc, err := s.catalog.GetByID(ctx, b.ServiceID); err == nil {
		rv.ServiceName = svc.Name
	}

	if err := s.reviews.Create(ctx, rv); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, utils.NewConflictError("booking %s has already been reviewed", b.ID)
		}
		return nil, utils.NewInternalError(err, "failed to save review")
	}

	submitted := models.ReviewSubmitted
	state := b.State()
	err = s.bookings.Transition(ctx, b.ID, state, state, models.BookingChanges{
		ReviewStatus: &submitted,
		ReviewID:     &rv.ID,
	})
	if err != nil {
		s.logger.Warn("failed to flag booking as reviewed",
			zap.String("bookingId", b.ID), zap.String("reviewId", rv.ID), zap.Error(err))
	}

	if err := s.providers.ApplyRating(ctx, b.ProviderID, req.Rating); err != nil {
		s.logger.Error("failed to update provider rating",
			zap.String("providerId", b.ProviderID), zap.String("reviewId", rv.ID), zap.Error(err))
	}

	s.logger.Info("review submitted", zap.String("bookingId", b.ID), zap.Int("rating", req.Rating))
	ev := notification.ForProvider(models.EventReviewSubmitted, b, "New review",
		fmt.Sprintf("A customer left a %d-star review.", req.Rating))
	notification.Emit(ctx, s.publisher, s.logger, ev)
	return rv, nil
}

func (s *DefaultReviewService) ListByProvider(ctx context.Context, providerID string, limit int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	out, err := s.reviews.ListByProvider(ctx, providerID, limit)
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to list reviews")
	}
	return out, nil
}
