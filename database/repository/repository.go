package repository

import (
	availabilityRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/availability"
	bookingRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/booking"
	catalogRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/catalog"
	providerRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/provider"
	refundRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/refund"
	reviewRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/review"
	settingsRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/settings"
	userRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/user"
	withdrawRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/withdraw"
)

// Re-export the repository interfaces.
type (
	BookingRepository  = bookingRepo.BookingRepository
	RefundRepository   = refundRepo.RefundRepository
	WithdrawRepository = withdrawRepo.WithdrawRepository
	SettingsRepository = settingsRepo.SettingsRepository
	ProviderRepository = providerRepo.ProviderRepository
	UserRepository     = userRepo.UserRepository
	CatalogRepository  = catalogRepo.CatalogRepository
	ReviewRepository   = reviewRepo.ReviewRepository

	AvailabilityRepository = availabilityRepo.AvailabilityRepository
)

// Repositories groups every collection-backed store the app uses.
type Repositories struct {
	Bookings  BookingRepository
	Refunds   RefundRepository
	Withdraws WithdrawRepository
	Settings  SettingsRepository
	Providers ProviderRepository
	Users     UserRepository
	Catalog   CatalogRepository
	Reviews   ReviewRepository
	// Schedules holds provider availability configs.
	Schedules AvailabilityRepository
}

// NewMongoRepositories builds all repositories on the global Mongo client.
// database.InitDB must have run first.
func NewMongoRepositories() *Repositories {
	return &Repositories{
		Bookings:  bookingRepo.NewMongoBookingRepo(),
		Refunds:   refundRepo.NewMongoRefundRepo(),
		Withdraws: withdrawRepo.NewMongoWithdrawRepo(),
		Settings:  settingsRepo.NewMongoSettingsRepo(),
		Providers: providerRepo.NewMongoProviderRepo(),
		Users:     userRepo.NewMongoUserRepo(),
		Catalog:   catalogRepo.NewMongoCatalogRepo(),
		Reviews:   reviewRepo.NewMongoReviewRepo(),
		Schedules: availabilityRepo.NewMongoAvailabilityRepo(),
	}
}
