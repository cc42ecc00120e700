// Package refund undoes the money side of a booking: it refunds every
// captured payment leg, reverses an executed payout transfer and records the
// attempt in a Refund audit record.
package refund

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	bookingRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/booking"
	refundRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/refund"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/lifecycle"
	"github.com/Rohit420bhainwal/book-my-event-api/services/notification"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Coordinator is the single path through which bookings are refunded.
type Coordinator interface {
	// Refund cancels the booking and returns its captured money.
	Refund(ctx context.Context, bookingID, reason string, initiator models.RefundInitiator) (*Result, error)
	// RefundIntent returns a captured payment that never became part of a
	// booking, e.g. when the slot was lost between intent and confirmation.
	// The refund record is written first and blocks the payment from ever
	// being booked afterwards.
	RefundIntent(ctx context.Context, intent *payment.Intent, idempotencyKey, reason string) (string, error)
	IntentRefund(ctx context.Context, intentID string) (*models.Refund, error)
	List(ctx context.Context, bookingID string, limit int) ([]models.Refund, error)
}

// Result is the outcome of a refund attempt, including a per-leg breakdown.
type Result struct {
	Booking *models.Booking `json:"booking"`
	Refund  *models.Refund  `json:"refund"`
}

// LegFailure is the error detail attached when some legs could not be refunded.
type LegFailure struct {
	RefundID string             `json:"refundId"`
	Legs     []models.RefundLeg `json:"legs"`
}

type DefaultCoordinator struct {
	bookings  bookingRepo.BookingRepository
	refunds   refundRepo.RefundRepository
	gateway   payment.Gateway
	payouter  payment.Payouter
	publisher notification.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewCoordinator(
	bookings bookingRepo.BookingRepository,
	refunds refundRepo.RefundRepository,
	gateway payment.Gateway,
	payouter payment.Payouter,
	publisher notification.Publisher,
	logger *zap.Logger,
) *DefaultCoordinator {
	return &DefaultCoordinator{
		bookings:  bookings,
		refunds:   refunds,
		gateway:   gateway,
		payouter:  payouter,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (c *DefaultCoordinator) WithClock(now func() time.Time) *DefaultCoordinator {
	c.now = now
	return c
}

func (c *DefaultCoordinator) Refund(ctx context.Context, bookingID, reason string, initiator models.RefundInitiator) (*Result, error) {
	log := c.logger.With(zap.String("bookingId", bookingID), zap.String("initiator", string(initiator)))

	b, err := c.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, utils.NewNotFoundError("booking %s not found", bookingID)
		}
		return nil, utils.NewInternalError(err, "failed to load booking")
	}

	event, err := c.startEvent(b, initiator)
	if err != nil {
		return nil, err
	}
	if b.AdvancePaymentID == "" && b.RemainingPaymentID == "" {
		return nil, utils.NewValidationError("booking %s has no payment to refund", bookingID)
	}

	from := b.State()
	claimed, err := lifecycle.Next(from, event)
	if err != nil {
		return nil, err
	}

	now := c.now()
	rec := &models.Refund{
		ID:          uuid.New().String(),
		BookingID:   b.ID,
		CustomerID:  b.CustomerID,
		ProviderID:  b.ProviderID,
		Currency:    b.Currency,
		Status:      models.RefundRecordInitiated,
		Reason:      reason,
		InitiatedBy: initiator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Claiming the booking is the concurrency guard: a second caller sees a
	// stale state and gets a conflict.
	if err := c.bookings.Transition(ctx, b.ID, from, claimed, models.BookingChanges{RefundID: &rec.ID}); err != nil {
		if errors.Is(err, database.ErrStale) {
			return nil, utils.NewConflictError("booking %s is already being refunded", bookingID)
		}
		return nil, utils.NewInternalError(err, "failed to lock booking for refund")
	}
	b.SetState(claimed)
	b.RefundID = rec.ID

	if err := c.refunds.Create(ctx, rec); err != nil {
		log.Error("failed to create refund record", zap.Error(err))
		c.markFailed(ctx, b, rec, err.Error(), log)
		return nil, utils.NewInternalError(err, "failed to record refund")
	}

	previous, err := c.previousAttempts(ctx, b.ID, rec.ID)
	if err != nil {
		log.Warn("could not load earlier refund attempts", zap.Error(err))
	}

	legs, legErr := c.refundLegs(ctx, b, reason, previous, log)
	rec.Legs = legs
	rec.Amount = refundedTotal(legs)
	rec.ExternalRefundID = joinExternalIDs(legs)

	var reverseErr error
	if legErr == nil && b.PayoutID != "" {
		if prior := reversedTransfer(previous); prior != "" {
			rec.ReversedTransfer = prior
		} else if reverseErr = c.payouter.Reverse(ctx, b.PayoutID, "reverse-"+b.ID); reverseErr == nil {
			rec.ReversedTransfer = b.PayoutID
		}
	}

	if legErr != nil || reverseErr != nil {
		msg := errorMessage(legErr, reverseErr)
		rec.Status = models.RefundRecordFailed
		rec.ErrorMessage = msg
		rec.UpdatedAt = c.now()
		if err := c.refunds.Update(ctx, rec); err != nil {
			log.Error("failed to update refund record", zap.Error(err))
		}
		c.markFailed(ctx, b, rec, msg, log)
		notification.Emit(ctx, c.publisher, c.logger,
			notification.NewEvent(models.EventRefundFailed, b.ID, b.CustomerID, models.RoleCustomer,
				"Refund delayed", "We could not complete your refund yet. Our team will follow up."))
		cause := legErr
		if cause == nil {
			cause = reverseErr
		}
		return nil, utils.NewGatewayError(cause, "refund for booking %s did not complete", b.ID).
			WithDetails(LegFailure{RefundID: rec.ID, Legs: legs})
	}

	rec.Status = models.RefundRecordProcessed
	rec.UpdatedAt = c.now()
	if err := c.refunds.Update(ctx, rec); err != nil {
		log.Error("failed to mark refund processed", zap.Error(err))
	}

	done, err := lifecycle.Next(b.State(), lifecycle.RefundSucceeded)
	if err != nil {
		return nil, err
	}
	changes := models.BookingChanges{RefundID: &rec.ID}
	if reason != "" {
		changes.CancelReason = &reason
	}
	if err := c.bookings.Transition(ctx, b.ID, b.State(), done, changes); err != nil {
		// Money already moved; the audit record is final and the booking
		// stays in refund initiated for reconciliation.
		log.Error("refund processed but booking update failed", zap.String("refundId", rec.ID), zap.Error(err))
		return nil, utils.NewInternalError(err, "refund %s processed but booking update failed", rec.ID)
	}
	b.SetState(done)
	changes.Apply(b)

	log.Info("booking refunded",
		zap.String("refundId", rec.ID),
		zap.Float64("amount", rec.Amount),
		zap.Int("legs", len(legs)))

	body := fmt.Sprintf("%.2f %s has been refunded to your original payment method.", rec.Amount, strings.ToUpper(rec.Currency))
	events := []models.BookingEvent{
		notification.ForCustomer(models.EventRefundProcessed, b, "Refund processed", body),
		notification.ForProvider(models.EventBookingCancelled, b, "Booking cancelled",
			fmt.Sprintf("Booking on %s (%s) was cancelled.", b.Date.Format(utils.DateLayout), b.Slot)),
	}
	notification.Emit(ctx, c.publisher, c.logger, events...)

	return &Result{Booking: b, Refund: rec}, nil
}

// startEvent picks the claiming event and turns a repeated refund into a
// conflict rather than a state error.
func (c *DefaultCoordinator) startEvent(b *models.Booking, initiator models.RefundInitiator) (lifecycle.Event, error) {
	switch b.RefundStatus {
	case models.RefundNone:
		return lifecycle.StartRefund, nil
	case models.RefundFailed:
		if initiator == models.InitiatedByAdmin {
			return lifecycle.RetryRefund, nil
		}
		return "", utils.NewConflictError("an earlier refund of booking %s failed and awaits manual reconciliation", b.ID)
	case models.RefundInitiated:
		return "", utils.NewConflictError("booking %s is already being refunded", b.ID)
	default:
		return "", utils.NewConflictError("booking %s was already refunded", b.ID)
	}
}

type leg struct {
	kind     models.PaymentLeg
	intentID string
	amount   float64
}

// capturedLegs lists the payments actually collected for the booking.
func capturedLegs(b *models.Booking) []leg {
	var legs []leg
	if b.AdvancePaymentID != "" {
		legs = append(legs, leg{models.LegAdvance, b.AdvancePaymentID, b.AdvanceAmount})
	}
	if b.RemainingPaymentID != "" && b.PaymentStatus == models.PaymentFullyPaid {
		remaining := utils.RoundMoney(b.TotalAmount - b.AdvanceAmount)
		if remaining > 0 {
			legs = append(legs, leg{models.LegRemaining, b.RemainingPaymentID, remaining})
		}
	}
	return legs
}

// refundLegs refunds each captured leg. A failing leg does not undo legs that
// already succeeded; those are reported alongside the failure.
func (c *DefaultCoordinator) refundLegs(ctx context.Context, b *models.Booking, reason string, previous []models.Refund, log *zap.Logger) ([]models.RefundLeg, error) {
	var (
		out    []models.RefundLeg
		failed []string
		first  error
	)
	for _, l := range capturedLegs(b) {
		if done, ok := alreadyRefunded(previous, l.kind); ok {
			out = append(out, done)
			continue
		}
		result := models.RefundLeg{Leg: l.kind, PaymentIntentID: l.intentID, Amount: l.amount}
		id, err := c.gateway.Refund(ctx, payment.RefundRequest{
			PaymentIntentID: l.intentID,
			Amount:          utils.ToMinorUnits(l.amount),
			Reason:          reason,
			IdempotencyKey:  fmt.Sprintf("refund-%s-%s", b.ID, l.kind),
		})
		if err != nil {
			log.Warn("refund leg failed", zap.String("leg", string(l.kind)), zap.String("intentId", l.intentID), zap.Error(err))
			result.Error = err.Error()
			failed = append(failed, string(l.kind))
			if first == nil {
				first = err
			}
		} else {
			result.ExternalID = id
			result.Succeeded = true
		}
		out = append(out, result)
	}
	if first != nil {
		return out, fmt.Errorf("legs %s failed: %w", strings.Join(failed, ","), first)
	}
	return out, nil
}

func (c *DefaultCoordinator) markFailed(ctx context.Context, b *models.Booking, rec *models.Refund, msg string, log *zap.Logger) {
	failed, err := lifecycle.Next(b.State(), lifecycle.RefundFailed)
	if err != nil {
		log.Error("cannot mark refund failed", zap.Error(err))
		return
	}
	if err := c.bookings.Transition(ctx, b.ID, b.State(), failed, models.BookingChanges{RefundID: &rec.ID}); err != nil {
		log.Error("failed to flag booking refund as failed", zap.String("reason", msg), zap.Error(err))
		return
	}
	b.SetState(failed)
}

func (c *DefaultCoordinator) previousAttempts(ctx context.Context, bookingID, currentID string) ([]models.Refund, error) {
	all, err := c.refunds.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.ID != currentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *DefaultCoordinator) RefundIntent(ctx context.Context, intent *payment.Intent, idempotencyKey, reason string) (string, error) {
	log := c.logger.With(zap.String("intentId", intent.ID))
	record, err := c.intentRecord(ctx, intent, reason)
	if err != nil {
		return "", err
	}
	if record.Status == models.RefundRecordProcessed {
		return record.ID, nil
	}

	id, err := c.gateway.Refund(ctx, payment.RefundRequest{
		PaymentIntentID: intent.ID,
		Reason:          reason,
		IdempotencyKey:  idempotencyKey,
	})
	leg := models.RefundLeg{
		Leg:             models.LegAdvance,
		PaymentIntentID: intent.ID,
		Amount:          record.Amount,
		ExternalID:      id,
		Succeeded:       err == nil,
	}
	if err != nil {
		leg.Error = err.Error()
	}
	record.Legs = []models.RefundLeg{leg}
	if err != nil {
		record.Status = models.RefundRecordFailed
		record.ErrorMessage = err.Error()
		if updErr := c.refunds.Update(ctx, record); updErr != nil {
			log.Error("failed to record refund failure", zap.Error(updErr))
		}
		log.Error("failed to refund orphaned payment", zap.Error(err))
		return "", utils.NewGatewayError(err, "failed to refund payment %s", intent.ID).
			WithDetails(map[string]string{"refundId": record.ID})
	}
	record.Status = models.RefundRecordProcessed
	record.ExternalRefundID = id
	record.ErrorMessage = ""
	if err := c.refunds.Update(ctx, record); err != nil {
		log.Error("failed to record orphaned refund", zap.String("refundId", record.ID), zap.Error(err))
	}
	log.Info("orphaned payment refunded", zap.String("refundId", record.ID), zap.String("externalId", id))
	return record.ID, nil
}

// intentRecord returns the refund record of an unbooked payment, creating it
// before any money moves.
func (c *DefaultCoordinator) intentRecord(ctx context.Context, intent *payment.Intent, reason string) (*models.Refund, error) {
	record, err := c.refunds.GetByIntent(ctx, intent.ID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, utils.NewInternalError(err, "failed to look up refund for payment %s", intent.ID)
	}
	now := c.now()
	record = &models.Refund{
		ID:              uuid.New().String(),
		PaymentIntentID: intent.ID,
		CustomerID:      intent.Metadata["customerId"],
		ProviderID:      intent.Metadata["providerId"],
		Amount:          utils.FromMinorUnits(intent.Amount),
		Currency:        intent.Currency,
		Status:          models.RefundRecordPending,
		Reason:          reason,
		InitiatedBy:     models.InitiatedBySystem,
		Legs:            []models.RefundLeg{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := c.refunds.Create(ctx, record); err != nil {
		if !errors.Is(err, database.ErrDuplicate) {
			return nil, utils.NewInternalError(err, "failed to record refund for payment %s", intent.ID)
		}
		if record, err = c.refunds.GetByIntent(ctx, intent.ID); err != nil {
			return nil, utils.NewInternalError(err, "failed to look up refund for payment %s", intent.ID)
		}
	}
	return record, nil
}

// IntentRefund returns the refund recorded for an unbooked payment, or nil
// when the payment was never refunded that way.
func (c *DefaultCoordinator) IntentRefund(ctx context.Context, intentID string) (*models.Refund, error) {
	record, err := c.refunds.GetByIntent(ctx, intentID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to look up refund for payment %s", intentID)
	}
	return record, nil
}

func (c *DefaultCoordinator) List(ctx context.Context, bookingID string, limit int) ([]models.Refund, error) {
	var (
		out []models.Refund
		err error
	)
	if bookingID != "" {
		out, err = c.refunds.ListByBooking(ctx, bookingID)
	} else {
		out, err = c.refunds.List(ctx, limit)
	}
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to list refunds")
	}
	return out, nil
}

func alreadyRefunded(previous []models.Refund, kind models.PaymentLeg) (models.RefundLeg, bool) {
	for i := range previous {
		if l, ok := previous[i].RefundedLeg(kind); ok {
			return l, true
		}
	}
	return models.RefundLeg{}, false
}

func reversedTransfer(previous []models.Refund) string {
	for _, r := range previous {
		if r.ReversedTransfer != "" {
			return r.ReversedTransfer
		}
	}
	return ""
}

func refundedTotal(legs []models.RefundLeg) float64 {
	total := 0.0
	for _, l := range legs {
		if l.Succeeded {
			total += l.Amount
		}
	}
	return utils.RoundMoney(total)
}

func joinExternalIDs(legs []models.RefundLeg) string {
	var ids []string
	for _, l := range legs {
		if l.ExternalID != "" {
			ids = append(ids, l.ExternalID)
		}
	}
	return strings.Join(ids, ",")
}

func errorMessage(legErr, reverseErr error) string {
	switch {
	case legErr != nil:
		return legErr.Error()
	case reverseErr != nil:
		return "transfer reversal failed: " + reverseErr.Error()
	}
	return ""
}
