package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/lifecycle"
	"github.com/Rohit420bhainwal/book-my-event-api/services/notification"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateIntent validates the request, prices it and opens a payment intent
// for the amount due now. No booking exists until the payment is confirmed.
func (s *DefaultBookingService) CreateIntent(ctx context.Context, customerID string, req CreateIntentRequest) (*models.PaymentIntentResponse, error) {
	if customerID == "" {
		return nil, utils.NewAuthorizationError("customer identity required")
	}
	if req.ServiceID == "" || req.Slot == "" {
		return nil, utils.NewValidationError("serviceId and slot are required")
	}
	date, err := time.Parse(utils.DateLayout, req.Date)
	if err != nil {
		return nil, utils.NewValidationError("date must be formatted as YYYY-MM-DD")
	}
	mode := req.PaymentMode
	if mode == "" {
		mode = models.PaymentModeFull
	}

	listing, provider, err := s.bookable(ctx, req.ServiceID, req.ProviderID)
	if err != nil {
		return nil, err
	}

	currency := utils.NormalizeCurrency(req.Currency)
	if currency == "" {
		currency = utils.NormalizeCurrency(listing.Currency)
	}
	if currency == "" {
		currency = utils.NormalizeCurrency(s.defaultCurrency)
	}
	if !utils.CurrencyAllowed(currency, s.allowedCurrencies) {
		return nil, utils.NewValidationError("currency %q is not supported", currency)
	}

	if err := s.availability.OnSchedule(ctx, listing.ID, date, req.Slot); err != nil {
		return nil, err
	}
	available, err := s.availability.AvailableFor(ctx, listing.ID, date, req.Slot, customerID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, utils.NewConflictError("slot %s on %s is not available", req.Slot, req.Date)
	}

	policy, err := s.commission.Commission(ctx)
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to load commission settings")
	}
	now := s.now()
	quote, err := Calculate(listing.Price, policy, mode, date, now)
	if err != nil {
		return nil, err
	}

	if !s.availability.Hold(ctx, listing.ID, date, req.Slot, customerID) {
		return nil, utils.NewConflictError("slot %s on %s is being booked by someone else", req.Slot, req.Date)
	}

	md := intentMetadata{
		Kind:            models.IntentAdvance,
		CustomerID:      customerID,
		ProviderID:      provider.ID,
		ServiceID:       listing.ID,
		Date:            date,
		Slot:            req.Slot,
		Mode:            mode,
		Price:           listing.Price,
		Currency:        currency,
		CommissionType:  policy.Type,
		CommissionValue: policy.Value,
	}
	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		Amount:         utils.ToMinorUnits(quote.DueNow()),
		Currency:       currency,
		Metadata:       md.toMap(),
		IdempotencyKey: "intent-" + uuid.New().String(),
	})
	if err != nil {
		s.availability.Release(ctx, listing.ID, date, req.Slot, customerID)
		return nil, utils.NewGatewayError(err, "failed to create payment intent")
	}

	s.logger.Info("payment intent created",
		zap.String("intentId", intent.ID),
		zap.String("customerId", customerID),
		zap.String("serviceId", listing.ID),
		zap.String("mode", string(mode)),
		zap.Float64("amount", quote.DueNow()))

	return &models.PaymentIntentResponse{
		PaymentIntentID:  intent.ID,
		ClientSecret:     intent.ClientSecret,
		Amount:           quote.DueNow(),
		Currency:         currency,
		TotalAmount:      quote.TotalAmount,
		AdvanceAmount:    quote.AdvanceAmount,
		RemainingAmount:  quote.RemainingAmount,
		CommissionAmount: quote.CommissionAmount,
		ProviderEarning:  quote.ProviderEarning,
		BookingType:      quote.BookingType,
		PaymentMode:      mode,
	}, nil
}

// bookable loads an active listing and its provider.
func (s *DefaultBookingService) bookable(ctx context.Context, serviceID, providerID string) (*models.ServiceListing, *models.Provider, error) {
	listing, err := s.catalog.GetByID(ctx, serviceID)
	if err != nil {
		return nil, nil, lookupError(err, "service", serviceID)
	}
	if !listing.Active {
		return nil, nil, utils.NewValidationError("service %s is not accepting bookings", serviceID)
	}
	if providerID != "" && listing.ProviderID != providerID {
		return nil, nil, utils.NewValidationError("service %s is not offered by provider %s", serviceID, providerID)
	}
	provider, err := s.providers.GetByID(ctx, listing.ProviderID)
	if err != nil {
		return nil, nil, lookupError(err, "provider", listing.ProviderID)
	}
	if !provider.CanAcceptBookings() {
		return nil, nil, utils.NewValidationError("provider %s is not accepting bookings", provider.ID)
	}
	return listing, provider, nil
}

// Confirm turns a succeeded payment intent into a pending booking. Confirming
// the same intent again returns the booking it already produced.
func (s *DefaultBookingService) Confirm(ctx context.Context, customerID, intentID string) (*models.Booking, error) {
	if intentID == "" {
		return nil, utils.NewValidationError("paymentIntentId is required")
	}
	if existing, err := s.bookings.GetByAdvancePaymentID(ctx, intentID); err == nil {
		if existing.CustomerID != customerID {
			return nil, utils.NewAuthorizationError("payment %s belongs to another customer", intentID)
		}
		return existing, nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, utils.NewInternalError(err, "failed to look up booking for payment %s", intentID)
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
	if md.Kind != models.IntentAdvance {
		return nil, utils.NewValidationError("payment %s is not a booking payment", intentID)
	}
	if md.CustomerID != customerID {
		return nil, utils.NewAuthorizationError("payment %s belongs to another customer", intentID)
	}
	return s.createFromIntent(ctx, intent, md)
}

// createFromIntent persists the booking for a captured payment. Any failure
// after capture refunds the payment so money is never held without a booking,
// and a payment refunded that way is never booked later.
func (s *DefaultBookingService) createFromIntent(ctx context.Context, intent *payment.Intent, md intentMetadata) (*models.Booking, error) {
	log := s.logger.With(zap.String("intentId", intent.ID), zap.String("serviceId", md.ServiceID))

	refunded, err := s.refunds.IntentRefund(ctx, intent.ID)
	if err != nil {
		return nil, err
	}
	if refunded != nil {
		log.Warn("refunded payment presented again", zap.String("refundId", refunded.ID))
		cause := utils.NewConflictError("payment %s was refunded and can no longer be booked", intent.ID).
			WithDetails(map[string]string{"refundId": refunded.ID, "paymentIntentId": intent.ID})
		if refunded.Status != models.RefundRecordProcessed {
			return nil, s.refundUnbooked(ctx, intent, "unbooked-"+intent.ID, cause)
		}
		return nil, cause
	}

	listing, provider, err := s.bookable(ctx, md.ServiceID, md.ProviderID)
	if err != nil {
		if utils.IsKind(err, utils.KindInternal) {
			return nil, err
		}
		return nil, s.refundUnbooked(ctx, intent, "invalid-"+intent.ID, err)
	}

	available, err := s.availability.IsAvailable(ctx, listing.ID, md.Date, md.Slot)
	if err != nil {
		return nil, err
	}
	if !available {
		log.Warn("slot claimed between intent and confirmation")
		return nil, s.refundUnbooked(ctx, intent, "slot-conflict-"+intent.ID,
			utils.NewConflictError("slot %s on %s was booked by someone else; your payment is being refunded",
				md.Slot, md.Date.Format(utils.DateLayout)))
	}

	now := s.now()
	quote, err := Calculate(md.Price, md.policy(), md.Mode, md.Date, now)
	if err != nil {
		return nil, s.refundUnbooked(ctx, intent, "invalid-"+intent.ID, err)
	}
	if intent.Amount != 0 && intent.Amount != utils.ToMinorUnits(quote.DueNow()) {
		return nil, s.refundUnbooked(ctx, intent, "amount-mismatch-"+intent.ID,
			utils.NewValidationError("captured amount does not match the booking price"))
	}

	state := lifecycle.Initial(md.Mode)
	paid := quote.AdvanceAmount
	b := &models.Booking{
		ID:                       uuid.New().String(),
		CustomerID:               md.CustomerID,
		ProviderID:               provider.ID,
		ServiceID:                listing.ID,
		Category:                 listing.Category,
		Date:                     md.Date,
		Slot:                     md.Slot,
		BookingType:              quote.BookingType,
		ReviewStatus:             models.ReviewPending,
		PaymentMode:              md.Mode,
		Currency:                 md.Currency,
		TotalAmount:              quote.TotalAmount,
		AdvanceAmount:            quote.AdvanceAmount,
		PaidAmount:               paid,
		RemainingAmount:          quote.RemainingAmount,
		CommissionType:           quote.CommissionType,
		CommissionValue:          quote.CommissionValue,
		CommissionAmount:         quote.CommissionAmount,
		ProviderEarning:          quote.ProviderEarning,
		AdvancePaymentID:         intent.ID,
		PayoutReleaseDate:        quote.PayoutReleaseDate,
		PaymentDeadline:          quote.PaymentDeadline,
		ProviderResponseDeadline: quote.ProviderResponseDeadline,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	b.SetState(state)
	if err := lifecycle.Validate(state); err != nil {
		return nil, utils.NewInternalError(err, "initial booking state invalid")
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		if !errors.Is(err, database.ErrDuplicate) {
			return nil, utils.NewInternalError(err, "failed to save booking")
		}
		// Either this intent was confirmed concurrently, or the slot index
		// rejected a double booking.
		if existing, getErr := s.bookings.GetByAdvancePaymentID(ctx, intent.ID); getErr == nil {
			return existing, nil
		}
		return nil, s.refundUnbooked(ctx, intent, "slot-conflict-"+intent.ID,
			utils.NewConflictError("slot %s on %s was booked by someone else; your payment is being refunded",
				md.Slot, md.Date.Format(utils.DateLayout)))
	}
	s.availability.Release(ctx, listing.ID, md.Date, md.Slot, md.CustomerID)

	log.Info("booking created",
		zap.String("bookingId", b.ID),
		zap.String("bookingType", string(b.BookingType)),
		zap.String("paymentStatus", string(b.PaymentStatus)))

	day := b.Date.Format(utils.DateLayout)
	s.emit(ctx,
		notification.ForProvider(models.EventBookingCreated, b, "New booking request",
			fmt.Sprintf("%s on %s (%s). Respond by %s.", listing.Name, day, b.Slot,
				b.ProviderResponseDeadline.Format(time.RFC822))),
		notification.ForCustomer(models.EventBookingCreated, b, "Booking requested",
			fmt.Sprintf("You paid %.2f %s towards %s on %s. Waiting for the provider to confirm.",
				b.PaidAmount, strings.ToUpper(b.Currency), listing.Name, day)),
	)
	return b, nil
}

// refundUnbooked refunds a captured payment that produced no booking and
// returns cause. A failing refund is reported as a gateway error instead.
func (s *DefaultBookingService) refundUnbooked(ctx context.Context, intent *payment.Intent, key string, cause error) error {
	refundID, err := s.refunds.RefundIntent(ctx, intent, key, "booking not created")
	if err != nil {
		return utils.NewGatewayError(err, "payment %s could not be booked and the automatic refund failed", intent.ID).
			WithDetails(map[string]string{"reason": cause.Error()})
	}
	var appErr *utils.AppError
	if errors.As(cause, &appErr) && appErr.Details == nil {
		appErr.Details = map[string]string{"refundId": refundID, "paymentIntentId": intent.ID}
	}
	return cause
}

// HandleIntentSucceeded applies a payment_intent.succeeded webhook. It is a
// no-op when the HTTP confirm path already handled the intent.
func (s *DefaultBookingService) HandleIntentSucceeded(ctx context.Context, intent *payment.Intent) error {
	if !intent.Succeeded() {
		return nil
	}
	md, err := parseIntentMetadata(intent.Metadata)
	if err != nil {
		s.logger.Debug("ignoring non-booking payment", zap.String("intentId", intent.ID))
		return nil
	}

	switch md.Kind {
	case models.IntentAdvance:
		if _, err := s.bookings.GetByAdvancePaymentID(ctx, intent.ID); err == nil {
			return nil
		} else if !errors.Is(err, database.ErrNotFound) {
			return utils.NewInternalError(err, "failed to look up booking for payment %s", intent.ID)
		}
		_, err := s.createFromIntent(ctx, intent, md)
		return err
	case models.IntentRemaining:
		b, err := s.load(ctx, md.BookingID)
		if err != nil {
			return err
		}
		if b.RemainingPaymentID == intent.ID {
			return nil
		}
		_, err = s.applyRemaining(ctx, b, intent)
		return err
	}
	return nil
}
