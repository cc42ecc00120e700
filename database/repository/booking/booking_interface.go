package bookingRepo

import (
	"context"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
)

// BookingRepository persists bookings. Every status change goes through
// Transition, which only applies when the stored state still equals from.
type BookingRepository interface {
	// Create inserts a booking. It returns database.ErrDuplicate when the slot
	// or the advance payment intent is already bound to another booking.
	Create(ctx context.Context, booking *models.Booking) error

	// GetByID returns database.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.Booking, error)

	// GetByAdvancePaymentID finds the booking created from an intent.
	GetByAdvancePaymentID(ctx context.Context, intentID string) (*models.Booking, error)

	// SlotTaken reports whether a non-cancelled booking holds the slot.
	SlotTaken(ctx context.Context, serviceID string, date time.Time, slot string) (bool, error)
	// ListActiveBetween returns non-cancelled bookings of a service whose day
	// falls in [from, to).
	ListActiveBetween(ctx context.Context, serviceID string, from, to time.Time) ([]models.Booking, error)

	// Transition atomically moves a booking from one joint state to another
	// and writes changes. It returns database.ErrStale when the stored state
	// no longer equals from.
	Transition(ctx context.Context, id string, from, to models.BookingState, changes models.BookingChanges) error

	// List returns bookings matching the filter, newest first.
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)

	// ReleaseDuePayouts applies moves to bookings whose payout release date
	// is not after now. Only bookings in a move's From state (and of its Type,
	// when set) are changed.
	ReleaseDuePayouts(ctx context.Context, now time.Time, moves []models.StateMove) (int64, error)

	// MarkOverdue applies moves to bookings whose payment deadline is before now.
	MarkOverdue(ctx context.Context, now time.Time, moves []models.StateMove) (int64, error)

	// FindAutoCancelCandidates lists paid pending bookings whose provider
	// response deadline lapsed without a refund.
	FindAutoCancelCandidates(ctx context.Context, now time.Time, limit int) ([]models.Booking, error)

	// ResetProcessingPayouts moves a provider's processing payouts back to
	// available. When bookingIDs is empty every processing booking of the
	// provider is reset.
	ResetProcessingPayouts(ctx context.Context, providerID string, bookingIDs []string) (int64, error)

	// EarningsByPayoutStatus sums providerEarning per payout status.
	EarningsByPayoutStatus(ctx context.Context, providerID string) (map[models.PayoutStatus]float64, int, error)
}
