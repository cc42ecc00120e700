package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/lifecycle"
	"github.com/Rohit420bhainwal/book-my-event-api/services/notification"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/services/refund"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"go.uber.org/zap"
)

// apply fires ev on b and persists the result with changes.
func (s *DefaultBookingService) apply(ctx context.Context, b *models.Booking, ev lifecycle.Event, changes models.BookingChanges) error {
	from := b.State()
	to, err := lifecycle.Next(from, ev)
	if err != nil {
		return err
	}
	if err := s.bookings.Transition(ctx, b.ID, from, to, changes); err != nil {
		return transitionError(err, b.ID)
	}
	b.SetState(to)
	changes.Apply(b)
	b.UpdatedAt = s.now()
	return nil
}

// Respond records the provider's decision on a pending booking. Rejecting
// refunds whatever the customer paid.
func (s *DefaultBookingService) Respond(ctx context.Context, providerID, bookingID string, accept bool, reason string) (*models.Booking, error) {
	b, err := s.loadOwned(ctx, bookingID, providerID, models.RoleProvider)
	if err != nil {
		return nil, err
	}

	if !accept {
		if b.Status != models.BookingPending {
			return nil, utils.NewStateError("only pending bookings can be rejected; booking is %s", b.Status)
		}
		if reason == "" {
			reason = "rejected by provider"
		}
		res, err := s.refunds.Refund(ctx, b.ID, reason, models.InitiatedByProvider)
		if err != nil {
			return nil, err
		}
		s.emit(ctx, notification.ForCustomer(models.EventBookingRejected, res.Booking,
			"Booking declined", "The provider could not take your booking. Your payment has been refunded."))
		return res.Booking, nil
	}

	now := s.now()
	if now.After(b.ProviderResponseDeadline) {
		return nil, utils.NewStateError("the response deadline for booking %s has passed", b.ID)
	}
	if err := s.apply(ctx, b, lifecycle.ProviderConfirm, models.BookingChanges{}); err != nil {
		return nil, err
	}

	s.logger.Info("booking confirmed", zap.String("bookingId", b.ID), zap.String("providerId", providerID))
	body := fmt.Sprintf("Your booking on %s (%s) is confirmed.", b.Date.Format(utils.DateLayout), b.Slot)
	if b.PaymentStatus == models.PaymentAdvancePaid && b.PaymentDeadline != nil {
		body += fmt.Sprintf(" Please pay the remaining %.2f %s by %s.",
			b.RemainingAmount, strings.ToUpper(b.Currency), b.PaymentDeadline.Format(utils.DateLayout))
	}
	s.emit(ctx, notification.ForCustomer(models.EventBookingConfirmed, b, "Booking confirmed", body))
	return b, nil
}

// Complete closes a delivered booking and makes its payout available.
func (s *DefaultBookingService) Complete(ctx context.Context, providerID, bookingID string) (*models.Booking, error) {
	b, err := s.loadOwned(ctx, bookingID, providerID, models.RoleProvider)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if now.Before(dayStart(b.Date)) {
		return nil, utils.NewStateError("booking %s cannot be completed before its service date %s",
			b.ID, b.Date.Format(utils.DateLayout))
	}
	if err := s.apply(ctx, b, lifecycle.Complete, models.BookingChanges{CompletedAt: &now}); err != nil {
		return nil, err
	}

	s.logger.Info("booking completed", zap.String("bookingId", b.ID))
	s.emit(ctx,
		notification.ForCustomer(models.EventBookingCompleted, b, "How did it go?",
			"Your booking is complete. Leave a review for your provider."),
		notification.ForProvider(models.EventPayoutAvailable, b, "Payout available",
			fmt.Sprintf("%.2f %s is ready to withdraw.", b.ProviderEarning, strings.ToUpper(b.Currency))),
	)
	return b, nil
}

// ProviderCancel cancels an active booking and refunds the customer.
func (s *DefaultBookingService) ProviderCancel(ctx context.Context, providerID, bookingID, reason string) (*refund.Result, error) {
	b, err := s.loadOwned(ctx, bookingID, providerID, models.RoleProvider)
	if err != nil {
		return nil, err
	}
	if b.RefundStatus == models.RefundNone &&
		b.Status != models.BookingPending && b.Status != models.BookingConfirmed {
		return nil, utils.NewStateError("a %s booking cannot be cancelled", b.Status)
	}
	if reason == "" {
		reason = "cancelled by provider"
	}
	res, err := s.refunds.Refund(ctx, b.ID, reason, models.InitiatedByProvider)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CreateRemainingIntent opens an intent for the unpaid balance of an
// advance-paid booking.
func (s *DefaultBookingService) CreateRemainingIntent(ctx context.Context, customerID, bookingID string) (*models.PaymentIntentResponse, error) {
	b, err := s.loadOwned(ctx, bookingID, customerID, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	if err := s.remainingPayable(b); err != nil {
		return nil, err
	}

	md := intentMetadata{Kind: models.IntentRemaining, BookingID: b.ID, CustomerID: b.CustomerID}
	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		Amount:         utils.ToMinorUnits(b.RemainingAmount),
		Currency:       b.Currency,
		Metadata:       md.toMap(),
		IdempotencyKey: "remaining-" + b.ID,
	})
	if err != nil {
		return nil, utils.NewGatewayError(err, "failed to create remaining payment intent")
	}

	return &models.PaymentIntentResponse{
		PaymentIntentID:  intent.ID,
		ClientSecret:     intent.ClientSecret,
		Amount:           b.RemainingAmount,
		Currency:         b.Currency,
		TotalAmount:      b.TotalAmount,
		AdvanceAmount:    b.AdvanceAmount,
		RemainingAmount:  b.RemainingAmount,
		CommissionAmount: b.CommissionAmount,
		ProviderEarning:  b.ProviderEarning,
		BookingType:      b.BookingType,
		PaymentMode:      b.PaymentMode,
	}, nil
}

// remainingPayable checks the balance can still be paid right now.
func (s *DefaultBookingService) remainingPayable(b *models.Booking) error {
	if !lifecycle.Allowed(b.State(), lifecycle.PayRemaining) {
		if b.PaymentStatus == models.PaymentOverdue {
			return utils.NewStateError("the remaining payment for booking %s is overdue", b.ID)
		}
		return utils.NewStateError("booking %s has no remaining balance payable (payment %s)", b.ID, b.PaymentStatus)
	}
	if b.PaymentDeadline != nil && s.now().After(*b.PaymentDeadline) {
		return utils.NewStateError("the payment deadline for booking %s has passed", b.ID)
	}
	return nil
}

// ConfirmRemaining verifies the balance payment and marks the booking fully paid.
func (s *DefaultBookingService) ConfirmRemaining(ctx context.Context, customerID, bookingID, intentID string) (*models.Booking, error) {
	if intentID == "" {
		return nil, utils.NewValidationError("paymentIntentId is required")
	}
	b, err := s.loadOwned(ctx, bookingID, customerID, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	if b.RemainingPaymentID == intentID {
		return b, nil
	}

	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, utils.NewGatewayError(err, "failed to verify payment %s", intentID)
	}
	if !intent.Succeeded() {
		return nil, utils.NewValidationError("payment %s has not succeeded (status %s)", intentID, intent.Status)
	}
	md, err := parseIntentMetadata(intent.Metadata)
	if err != nil {
		return nil, err
	}
	if md.Kind != models.IntentRemaining || md.BookingID != b.ID {
		return nil, utils.NewValidationError("payment %s is not the remaining payment of booking %s", intentID, b.ID)
	}
	return s.applyRemaining(ctx, b, intent)
}

// applyRemaining records a captured balance payment. If the booking can no
// longer take it, the payment is refunded and the cause returned.
func (s *DefaultBookingService) applyRemaining(ctx context.Context, b *models.Booking, intent *payment.Intent) (*models.Booking, error) {
	if intent.Amount != 0 && intent.Amount != utils.ToMinorUnits(b.RemainingAmount) {
		return nil, s.refundUnbooked(ctx, intent, "remaining-mismatch-"+intent.ID,
			utils.NewValidationError("captured amount does not match the remaining balance"))
	}
	if err := s.remainingPayable(b); err != nil {
		return nil, s.refundUnbooked(ctx, intent, "remaining-rejected-"+intent.ID, err)
	}

	paid := b.TotalAmount
	zero := 0.0
	intentID := intent.ID
	err := s.apply(ctx, b, lifecycle.PayRemaining, models.BookingChanges{
		PaidAmount:         &paid,
		RemainingAmount:    &zero,
		RemainingPaymentID: &intentID,
	})
	if err != nil {
		if !utils.IsKind(err, utils.KindConflict) {
			return nil, err
		}
		// Lost a race: either the same payment was applied concurrently or
		// the booking moved on.
		fresh, getErr := s.bookings.GetByID(ctx, b.ID)
		if getErr == nil && fresh.RemainingPaymentID == intent.ID {
			return fresh, nil
		}
		if getErr != nil && !errors.Is(getErr, database.ErrNotFound) {
			return nil, utils.NewInternalError(getErr, "failed to reload booking %s", b.ID)
		}
		return nil, s.refundUnbooked(ctx, intent, "remaining-rejected-"+intent.ID, err)
	}

	s.logger.Info("remaining payment applied", zap.String("bookingId", b.ID), zap.String("intentId", intent.ID))
	s.emit(ctx, notification.ForProvider(models.EventRemainingPaid, b, "Booking fully paid",
		fmt.Sprintf("The customer paid the balance for %s (%s).", b.Date.Format(utils.DateLayout), b.Slot)))
	return b, nil
}
