// File: handlers/bundle.go
package handlers

import (
	"github.com/Rohit420bhainwal/book-my-event-api/services/booking"
	"github.com/Rohit420bhainwal/book-my-event-api/services/catalog"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payout"
	"github.com/Rohit420bhainwal/book-my-event-api/services/provider"
	"github.com/Rohit420bhainwal/book-my-event-api/services/refund"
	"github.com/Rohit420bhainwal/book-my-event-api/services/review"
	"github.com/Rohit420bhainwal/book-my-event-api/services/settings"
	"github.com/Rohit420bhainwal/book-my-event-api/services/user"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Booking  *BookingHandler
	Withdraw *WithdrawHandler
	Admin    *AdminHandler
	Webhook  *WebhookHandler
	Review   *ReviewHandler
	Provider *ProviderHandler
	Catalog  *CatalogHandler
	Schedule *ScheduleHandler
	Health   *HealthHandler

	AdminToken        string
	MaxRequestsPerMin int
}

// Services is everything the handlers delegate to.
type Services struct {
	Bookings  booking.BookingService
	Withdraws payout.WithdrawService
	Refunds   refund.Coordinator
	Settings  settings.SettingsService
	Webhooks  provider.WebhookService
	Reviews   review.ReviewService
	Providers provider.ProviderService
	Users     user.UserService
	Catalog   catalog.CatalogService
	Schedules booking.ScheduleService
}

// NewHandlerBundle builds every handler on top of svc.
func NewHandlerBundle(svc Services, adminToken string, maxRequestsPerMin int) *HandlerBundle {
	return &HandlerBundle{
		Booking:  &BookingHandler{Service: svc.Bookings},
		Withdraw: &WithdrawHandler{Service: svc.Withdraws},
		Admin: &AdminHandler{
			Refunds:   svc.Refunds,
			Withdraws: svc.Withdraws,
			Settings:  svc.Settings,
			Providers: svc.Providers,
		},
		Webhook:  &WebhookHandler{Service: svc.Webhooks},
		Review:   &ReviewHandler{Service: svc.Reviews},
		Provider: &ProviderHandler{Service: svc.Providers, Users: svc.Users, Withdraws: svc.Withdraws},
		Catalog:  &CatalogHandler{Service: svc.Catalog},
		Schedule: &ScheduleHandler{Service: svc.Schedules},
		Health:   &HealthHandler{},

		AdminToken:        adminToken,
		MaxRequestsPerMin: maxRequestsPerMin,
	}
}
