package booking

import (
	"context"
	"time"

	bookingRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/booking"
	catalogRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/catalog"
	providerRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/provider"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/notification"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/services/refund"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"go.uber.org/zap"
)

// BookingService drives a booking from payment intent to completion.
type BookingService interface {
	CreateIntent(ctx context.Context, customerID string, req CreateIntentRequest) (*models.PaymentIntentResponse, error)
	Confirm(ctx context.Context, customerID, intentID string) (*models.Booking, error)
	Respond(ctx context.Context, providerID, bookingID string, accept bool, reason string) (*models.Booking, error)
	CreateRemainingIntent(ctx context.Context, customerID, bookingID string) (*models.PaymentIntentResponse, error)
	ConfirmRemaining(ctx context.Context, customerID, bookingID, intentID string) (*models.Booking, error)
	Complete(ctx context.Context, providerID, bookingID string) (*models.Booking, error)
	ProviderCancel(ctx context.Context, providerID, bookingID, reason string) (*refund.Result, error)
	HandleIntentSucceeded(ctx context.Context, intent *payment.Intent) error
	Get(ctx context.Context, caller models.Principal, bookingID string) (*models.Booking, error)
	ListForCustomer(ctx context.Context, customerID string) ([]models.Booking, error)
	ListForProvider(ctx context.Context, providerID string, status models.BookingStatus) ([]models.Booking, error)
	CheckAvailability(ctx context.Context, serviceID, date, slot, customerID string) (bool, error)
}

// CommissionSource yields the commission policy in force right now.
type CommissionSource interface {
	Commission(ctx context.Context) (models.CommissionPolicy, error)
}

// CreateIntentRequest is the customer's provisional booking request.
type CreateIntentRequest struct {
	ProviderID  string             `json:"providerId"`
	ServiceID   string             `json:"serviceId" binding:"required"`
	Date        string             `json:"date" binding:"required"`
	Slot        string             `json:"slot" binding:"required"`
	PaymentMode models.PaymentMode `json:"paymentMode"`
	Currency    string             `json:"currency"`
}

// Dependencies wires a DefaultBookingService.
type Dependencies struct {
	Bookings          bookingRepo.BookingRepository
	Catalog           catalogRepo.CatalogRepository
	Providers         providerRepo.ProviderRepository
	Gateway           payment.Gateway
	Refunds           refund.Coordinator
	Commission        CommissionSource
	Availability      *AvailabilityChecker
	Publisher         notification.Publisher
	Logger            *zap.Logger
	DefaultCurrency   string
	AllowedCurrencies []string
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	bookings          bookingRepo.BookingRepository
	catalog           catalogRepo.CatalogRepository
	providers         providerRepo.ProviderRepository
	gateway           payment.Gateway
	refunds           refund.Coordinator
	commission        CommissionSource
	availability      *AvailabilityChecker
	publisher         notification.Publisher
	logger            *zap.Logger
	defaultCurrency   string
	allowedCurrencies []string
	now               func() time.Time
}

func NewBookingService(d Dependencies) *DefaultBookingService {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Publisher == nil {
		d.Publisher = notification.NopPublisher{}
	}
	if d.Availability == nil {
		d.Availability = NewAvailabilityChecker(d.Bookings, nil, d.Logger)
	}
	return &DefaultBookingService{
		bookings:          d.Bookings,
		catalog:           d.Catalog,
		providers:         d.Providers,
		gateway:           d.Gateway,
		refunds:           d.Refunds,
		commission:        d.Commission,
		availability:      d.Availability,
		publisher:         d.Publisher,
		logger:            d.Logger,
		defaultCurrency:   d.DefaultCurrency,
		allowedCurrencies: d.AllowedCurrencies,
		now:               d.Now,
	}
}

func (s *DefaultBookingService) load(ctx context.Context, bookingID string) (*models.Booking, error) {
	if bookingID == "" {
		return nil, utils.NewValidationError("booking id is required")
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, lookupError(err, "booking", bookingID)
	}
	return b, nil
}

// loadOwned loads a booking and checks the caller is its customer or provider.
func (s *DefaultBookingService) loadOwned(ctx context.Context, bookingID, userID string, role models.Role) (*models.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	switch role {
	case models.RoleCustomer:
		if b.CustomerID != userID {
			return nil, utils.NewAuthorizationError("booking %s does not belong to this customer", bookingID)
		}
	case models.RoleProvider:
		if b.ProviderID != userID {
			return nil, utils.NewAuthorizationError("booking %s does not belong to this provider", bookingID)
		}
	}
	return b, nil
}

func (s *DefaultBookingService) Get(ctx context.Context, caller models.Principal, bookingID string) (*models.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleAdmin && !b.IsParticipant(caller.UserID) {
		return nil, utils.NewAuthorizationError("not allowed to view booking %s", bookingID)
	}
	return b, nil
}

func (s *DefaultBookingService) ListForCustomer(ctx context.Context, customerID string) ([]models.Booking, error) {
	out, err := s.bookings.List(ctx, models.BookingFilter{CustomerID: customerID})
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to list bookings")
	}
	return out, nil
}

func (s *DefaultBookingService) ListForProvider(ctx context.Context, providerID string, status models.BookingStatus) ([]models.Booking, error) {
	out, err := s.bookings.List(ctx, models.BookingFilter{ProviderID: providerID, Status: status})
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to list bookings")
	}
	return out, nil
}

func (s *DefaultBookingService) CheckAvailability(ctx context.Context, serviceID, date, slot, customerID string) (bool, error) {
	if serviceID == "" || slot == "" {
		return false, utils.NewValidationError("serviceId and slot are required")
	}
	day, err := time.Parse(utils.DateLayout, date)
	if err != nil {
		return false, utils.NewValidationError("date must be formatted as YYYY-MM-DD")
	}
	return s.availability.AvailableFor(ctx, serviceID, day, slot, customerID)
}

func (s *DefaultBookingService) emit(ctx context.Context, events ...models.BookingEvent) {
	notification.Emit(ctx, s.publisher, s.logger, events...)
}
