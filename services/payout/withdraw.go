package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	bookingRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/booking"
	providerRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/provider"
	withdrawRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/withdraw"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/lifecycle"
	"github.com/Rohit420bhainwal/book-my-event-api/services/notification"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WithdrawService handles provider cash-out requests and their approval.
type WithdrawService interface {
	RequestWithdraw(ctx context.Context, providerID, bookingID, destination string) (*models.Withdraw, error)
	RequestProviderWithdraw(ctx context.Context, providerID, destination string) (*models.Withdraw, error)
	Approve(ctx context.Context, withdrawID string) (*models.Withdraw, error)
	Reject(ctx context.Context, withdrawID, reason string) (*models.Withdraw, error)
	RunAutoPayout(ctx context.Context) ([]models.PayoutResult, error)
	List(ctx context.Context, filter withdrawRepo.WithdrawFilter) ([]models.Withdraw, error)
	Earnings(ctx context.Context, providerID string) (*models.EarningsSummary, error)
}

type DefaultWithdrawService struct {
	bookings  bookingRepo.BookingRepository
	withdraws withdrawRepo.WithdrawRepository
	providers providerRepo.ProviderRepository
	payouter  payment.Payouter
	publisher notification.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewWithdrawService(
	bookings bookingRepo.BookingRepository,
	withdraws withdrawRepo.WithdrawRepository,
	providers providerRepo.ProviderRepository,
	payouter payment.Payouter,
	publisher notification.Publisher,
	logger *zap.Logger,
) *DefaultWithdrawService {
	if publisher == nil {
		publisher = notification.NopPublisher{}
	}
	return &DefaultWithdrawService{
		bookings:  bookings,
		withdraws: withdraws,
		providers: providers,
		payouter:  payouter,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *DefaultWithdrawService) WithClock(now func() time.Time) *DefaultWithdrawService {
	s.now = now
	return s
}

// RequestWithdraw asks for the payout of one completed booking. Moving the
// booking's payout to requested is a conditional update, so of two
// concurrent requests exactly one gets through.
func (s *DefaultWithdrawService) RequestWithdraw(ctx context.Context, providerID, bookingID, destination string) (*models.Withdraw, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFoundOr(err, "booking", bookingID)
	}
	if b.ProviderID != providerID {
		return nil, utils.NewAuthorizationError("booking %s does not belong to this provider", bookingID)
	}
	if in(b.PayoutStatus, models.PayoutRequested, models.PayoutProcessing, models.PayoutWithdrawn) {
		return nil, utils.NewConflictError("a withdrawal for booking %s already exists", bookingID)
	}
	from := b.State()
	to, err := lifecycle.Next(from, lifecycle.RequestWithdraw)
	if err != nil {
		return nil, err
	}
	active, err := s.withdraws.ExistsActiveForBooking(ctx, bookingID)
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to check existing withdrawals")
	}
	if active {
		return nil, utils.NewConflictError("a withdrawal for booking %s already exists", bookingID)
	}

	if destination == "" {
		if p, err := s.providers.GetByID(ctx, providerID); err == nil {
			destination = p.PayoutDestination()
		}
	}

	if err := s.bookings.Transition(ctx, b.ID, from, to, models.BookingChanges{}); err != nil {
		if errors.Is(err, database.ErrStale) {
			return nil, utils.NewConflictError("a withdrawal for booking %s already exists", bookingID)
		}
		return nil, utils.NewInternalError(err, "failed to lock booking %s for withdrawal", bookingID)
	}
	b.SetState(to)

	now := s.now()
	w := &models.Withdraw{
		ID:          uuid.New().String(),
		ProviderID:  providerID,
		BookingID:   b.ID,
		Amount:      b.ProviderEarning,
		Currency:    b.Currency,
		Status:      models.WithdrawPending,
		Destination: destination,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.withdraws.Create(ctx, w); err != nil {
		s.revert(ctx, b, lifecycle.WithdrawRejected)
		if errors.Is(err, database.ErrDuplicate) {
			return nil, utils.NewConflictError("a withdrawal for booking %s already exists", bookingID)
		}
		return nil, utils.NewInternalError(err, "failed to save withdrawal")
	}

	s.logger.Info("withdrawal requested",
		zap.String("withdrawId", w.ID),
		zap.String("bookingId", b.ID),
		zap.Float64("amount", w.Amount))
	s.emit(ctx, w, models.EventWithdrawRequested, "Withdrawal requested",
		fmt.Sprintf("Your request to withdraw %.2f %s is awaiting approval.", w.Amount, strings.ToUpper(w.Currency)))
	return w, nil
}

// RequestProviderWithdraw bundles every withdrawable booking of the provider
// into one request. Bookings go straight to processing.
func (s *DefaultWithdrawService) RequestProviderWithdraw(ctx context.Context, providerID, destination string) (*models.Withdraw, error) {
	candidates, err := s.bookings.List(ctx, models.BookingFilter{
		ProviderID:   providerID,
		Status:       models.BookingCompleted,
		PayoutStatus: models.PayoutAvailable,
	})
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to list available payouts")
	}

	var (
		ids      []string
		total    float64
		currency string
	)
	for i := range candidates {
		b := &candidates[i]
		if currency != "" && b.Currency != currency {
			continue
		}
		from := b.State()
		to, err := lifecycle.Next(from, lifecycle.BeginPayout)
		if err != nil {
			continue
		}
		if err := s.bookings.Transition(ctx, b.ID, from, to, models.BookingChanges{}); err != nil {
			s.logger.Debug("skipping booking for bulk withdrawal", zap.String("bookingId", b.ID), zap.Error(err))
			continue
		}
		currency = b.Currency
		ids = append(ids, b.ID)
		total += b.ProviderEarning
	}
	if len(ids) == 0 {
		return nil, utils.NewValidationError("no completed bookings with an available payout")
	}

	if destination == "" {
		if p, err := s.providers.GetByID(ctx, providerID); err == nil {
			destination = p.PayoutDestination()
		}
	}

	now := s.now()
	w := &models.Withdraw{
		ID:          uuid.New().String(),
		ProviderID:  providerID,
		BookingIDs:  ids,
		Amount:      utils.RoundMoney(total),
		Currency:    currency,
		Status:      models.WithdrawPending,
		Destination: destination,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.withdraws.Create(ctx, w); err != nil {
		if _, resetErr := s.bookings.ResetProcessingPayouts(ctx, providerID, ids); resetErr != nil {
			s.logger.Error("failed to reset payouts after withdrawal error", zap.Strings("bookingIds", ids), zap.Error(resetErr))
		}
		return nil, utils.NewInternalError(err, "failed to save withdrawal")
	}

	s.logger.Info("bulk withdrawal requested",
		zap.String("withdrawId", w.ID),
		zap.Int("bookings", len(ids)),
		zap.Float64("amount", w.Amount))
	s.emit(ctx, w, models.EventWithdrawRequested, "Withdrawal requested",
		fmt.Sprintf("Your request to withdraw %.2f %s across %d bookings is awaiting approval.",
			w.Amount, strings.ToUpper(w.Currency), len(ids)))
	return w, nil
}

// Approve pays out a pending withdrawal. The withdrawal is claimed
// (pending -> processing) before any booking or money moves, so a concurrent
// Reject or Approve loses. A failed transfer marks the withdrawal failed and
// makes the bookings available again.
func (s *DefaultWithdrawService) Approve(ctx context.Context, withdrawID string) (*models.Withdraw, error) {
	w, err := s.withdraws.GetByID(ctx, withdrawID)
	if err != nil {
		return nil, notFoundOr(err, "withdrawal", withdrawID)
	}
	if w.Status != models.WithdrawPending {
		return nil, utils.NewConflictError("withdrawal %s is already %s", w.ID, w.Status)
	}
	log := s.logger.With(zap.String("withdrawId", w.ID), zap.String("providerId", w.ProviderID))

	provider, err := s.providers.GetByID(ctx, w.ProviderID)
	if err != nil {
		return nil, notFoundOr(err, "provider", w.ProviderID)
	}
	destination, err := s.destination(provider, w)
	if err != nil {
		return nil, err
	}

	if err := s.withdraws.UpdateStatus(ctx, w.ID, models.WithdrawPending, models.WithdrawProcessing,
		withdrawRepo.WithdrawUpdate{}); err != nil {
		if errors.Is(err, database.ErrStale) {
			return nil, utils.NewConflictError("withdrawal %s was processed concurrently", w.ID)
		}
		return nil, utils.NewInternalError(err, "failed to claim withdrawal %s", w.ID)
	}
	w.Status = models.WithdrawProcessing

	bookings, err := s.beginPayout(ctx, w)
	if err != nil {
		// Nothing was paid; hand the request back to the admin queue.
		if uErr := s.withdraws.UpdateStatus(ctx, w.ID, models.WithdrawProcessing, models.WithdrawPending,
			withdrawRepo.WithdrawUpdate{}); uErr != nil {
			log.Error("failed to release withdrawal claim", zap.Error(uErr))
		}
		return nil, err
	}

	transferID, err := s.payouter.Transfer(ctx, payment.TransferRequest{
		Destination:    destination,
		Amount:         utils.ToMinorUnits(w.Amount),
		Currency:       w.Currency,
		Description:    "Payout " + w.ID,
		Metadata:       map[string]string{"withdrawId": w.ID, "providerId": w.ProviderID},
		IdempotencyKey: "payout-" + w.ID,
	})
	if err != nil {
		log.Error("payout transfer failed", zap.Error(err))
		if uErr := s.withdraws.UpdateStatus(ctx, w.ID, models.WithdrawProcessing, models.WithdrawFailed,
			withdrawRepo.WithdrawUpdate{ErrorMessage: err.Error()}); uErr != nil {
			log.Error("failed to mark withdrawal failed", zap.Error(uErr))
		}
		for _, b := range bookings {
			s.revert(ctx, b, lifecycle.PayoutFailed)
		}
		w.Status = models.WithdrawFailed
		w.ErrorMessage = err.Error()
		s.emit(ctx, w, models.EventWithdrawFailed, "Withdrawal failed",
			"We could not send your payout. Your earnings are available to withdraw again.")
		return nil, utils.NewGatewayError(err, "payout transfer for withdrawal %s failed", w.ID).
			WithDetails(map[string]string{"withdrawId": w.ID})
	}

	now := s.now()
	var unsettled []string
	for _, b := range bookings {
		from := b.State()
		to, err := lifecycle.Next(from, lifecycle.PayoutSucceeded)
		if err == nil {
			err = s.bookings.Transition(ctx, b.ID, from, to, models.BookingChanges{PayoutID: &transferID, WithdrawnAt: &now})
		}
		if err != nil {
			log.Error("transfer sent but booking payout not settled", zap.String("bookingId", b.ID), zap.Error(err))
			unsettled = append(unsettled, b.ID)
		}
	}

	// The money has moved, so the record is approved even when a booking
	// could not be settled.
	settleErr := s.withdraws.UpdateStatus(ctx, w.ID, models.WithdrawProcessing, models.WithdrawApproved,
		withdrawRepo.WithdrawUpdate{TransferID: transferID, Simulated: s.payouter.Simulated()})
	if settleErr != nil {
		log.Error("transfer sent but withdrawal not marked approved", zap.String("transferId", transferID), zap.Error(settleErr))
	}
	if settleErr != nil || len(unsettled) > 0 {
		return nil, utils.NewInternalError(settleErr, "transfer %s sent for withdrawal %s but settlement is incomplete", transferID, w.ID).
			WithDetails(map[string]any{"withdrawId": w.ID, "transferId": transferID, "unsettledBookings": unsettled})
	}
	w.Status = models.WithdrawApproved
	w.TransferID = transferID
	w.Simulated = s.payouter.Simulated()
	w.UpdatedAt = now

	log.Info("withdrawal approved", zap.String("transferId", transferID), zap.Bool("simulated", w.Simulated))
	s.emit(ctx, w, models.EventWithdrawApproved, "Payout sent",
		fmt.Sprintf("%.2f %s is on its way to you.", w.Amount, strings.ToUpper(w.Currency)))
	return w, nil
}

// destination resolves where the transfer goes. Real transfers need an
// onboarded connected account; simulated ones accept any destination.
func (s *DefaultWithdrawService) destination(p *models.Provider, w *models.Withdraw) (string, error) {
	if !s.payouter.Simulated() {
		if p.StripeAccountID == "" || !p.StripeOnboardingCompleted {
			return "", utils.NewValidationError("provider %s has not completed payout onboarding", p.ID)
		}
		return p.StripeAccountID, nil
	}
	if d := p.PayoutDestination(); d != "" {
		return d, nil
	}
	if w.Destination != "" {
		return w.Destination, nil
	}
	return "", utils.NewValidationError("provider %s has no payout destination", p.ID)
}

// beginPayout moves every covered booking to processing. Bookings already
// moved stay in processing on error; Reject or a retried Approve picks
// them up.
func (s *DefaultWithdrawService) beginPayout(ctx context.Context, w *models.Withdraw) ([]*models.Booking, error) {
	var out []*models.Booking
	for _, id := range w.Covers() {
		b, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return nil, notFoundOr(err, "booking", id)
		}
		if b.PayoutStatus == models.PayoutProcessing {
			out = append(out, b)
			continue
		}
		from := b.State()
		to, err := lifecycle.Next(from, lifecycle.BeginPayout)
		if err != nil {
			return nil, err
		}
		if err := s.bookings.Transition(ctx, b.ID, from, to, models.BookingChanges{}); err != nil {
			if errors.Is(err, database.ErrStale) {
				return nil, utils.NewConflictError("booking %s changed while approving withdrawal", b.ID)
			}
			return nil, utils.NewInternalError(err, "failed to lock booking %s for payout", b.ID)
		}
		b.SetState(to)
		out = append(out, b)
	}
	return out, nil
}

// Reject declines a pending withdrawal and returns its bookings to available.
// A withdrawal claimed by Approve can no longer be rejected.
func (s *DefaultWithdrawService) Reject(ctx context.Context, withdrawID, reason string) (*models.Withdraw, error) {
	w, err := s.withdraws.GetByID(ctx, withdrawID)
	if err != nil {
		return nil, notFoundOr(err, "withdrawal", withdrawID)
	}
	if w.Status != models.WithdrawPending {
		return nil, utils.NewConflictError("withdrawal %s is already %s", w.ID, w.Status)
	}
	if err := s.withdraws.UpdateStatus(ctx, w.ID, models.WithdrawPending, models.WithdrawRejected,
		withdrawRepo.WithdrawUpdate{RejectionReason: reason}); err != nil {
		if errors.Is(err, database.ErrStale) {
			return nil, utils.NewConflictError("withdrawal %s was processed concurrently", w.ID)
		}
		return nil, utils.NewInternalError(err, "failed to reject withdrawal")
	}

	if w.BookingID != "" {
		b, err := s.bookings.GetByID(ctx, w.BookingID)
		if err != nil {
			s.logger.Error("rejected withdrawal references missing booking", zap.String("bookingId", w.BookingID), zap.Error(err))
		} else {
			s.revert(ctx, b, lifecycle.WithdrawRejected)
		}
	}
	if _, err := s.bookings.ResetProcessingPayouts(ctx, w.ProviderID, w.Covers()); err != nil {
		s.logger.Error("failed to reset processing payouts", zap.String("withdrawId", w.ID), zap.Error(err))
	}

	w.Status = models.WithdrawRejected
	w.RejectionReason = reason
	w.UpdatedAt = s.now()
	s.logger.Info("withdrawal rejected", zap.String("withdrawId", w.ID), zap.String("reason", reason))
	body := "Your withdrawal request was declined."
	if reason != "" {
		body += " Reason: " + reason
	}
	s.emit(ctx, w, models.EventWithdrawRejected, "Withdrawal declined", body)
	return w, nil
}

// RunAutoPayout requests and approves a withdrawal for every completed
// booking with an available payout whose provider can be paid.
func (s *DefaultWithdrawService) RunAutoPayout(ctx context.Context) ([]models.PayoutResult, error) {
	available, err := s.bookings.List(ctx, models.BookingFilter{
		Status:       models.BookingCompleted,
		PayoutStatus: models.PayoutAvailable,
	})
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to list available payouts")
	}

	providers := map[string]*models.Provider{}
	results := make([]models.PayoutResult, 0, len(available))
	for i := range available {
		if ctx.Err() != nil {
			break
		}
		b := &available[i]
		res := models.PayoutResult{BookingID: b.ID, ProviderID: b.ProviderID, Amount: b.ProviderEarning}

		p, ok := providers[b.ProviderID]
		if !ok {
			p, err = s.providers.GetByID(ctx, b.ProviderID)
			if err != nil {
				p = nil
			}
			providers[b.ProviderID] = p
		}
		if p == nil {
			res.Error = "provider not found"
			results = append(results, res)
			continue
		}
		if _, err := s.destination(p, &models.Withdraw{}); err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		w, err := s.RequestWithdraw(ctx, b.ProviderID, b.ID, "")
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		res.WithdrawID = w.ID
		approved, err := s.Approve(ctx, w.ID)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		res.TransferID = approved.TransferID
		res.Success = true
		results = append(results, res)
	}

	s.logger.Info("automated payout run finished", zap.Int("bookings", len(results)))
	return results, nil
}

func (s *DefaultWithdrawService) List(ctx context.Context, filter withdrawRepo.WithdrawFilter) ([]models.Withdraw, error) {
	out, err := s.withdraws.List(ctx, filter)
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to list withdrawals")
	}
	return out, nil
}

func (s *DefaultWithdrawService) Earnings(ctx context.Context, providerID string) (*models.EarningsSummary, error) {
	totals, count, err := s.bookings.EarningsByPayoutStatus(ctx, providerID)
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to compute earnings")
	}
	sum := &models.EarningsSummary{
		ProviderID: providerID,
		Pending:    utils.RoundMoney(totals[models.PayoutPending]),
		Available:  utils.RoundMoney(totals[models.PayoutAvailable]),
		InFlight:   utils.RoundMoney(totals[models.PayoutRequested] + totals[models.PayoutProcessing]),
		Withdrawn:  utils.RoundMoney(totals[models.PayoutWithdrawn]),
		Bookings:   count,
	}
	sum.TotalEarned = utils.RoundMoney(sum.Pending + sum.Available + sum.InFlight + sum.Withdrawn)
	return sum, nil
}

// revert fires a compensating payout event on b, logging on failure.
func (s *DefaultWithdrawService) revert(ctx context.Context, b *models.Booking, ev lifecycle.Event) {
	from := b.State()
	to, err := lifecycle.Next(from, ev)
	if err != nil {
		s.logger.Warn("cannot revert booking payout", zap.String("bookingId", b.ID), zap.String("event", string(ev)), zap.Error(err))
		return
	}
	if err := s.bookings.Transition(ctx, b.ID, from, to, models.BookingChanges{}); err != nil {
		s.logger.Error("failed to revert booking payout", zap.String("bookingId", b.ID), zap.Error(err))
		return
	}
	b.SetState(to)
}

func (s *DefaultWithdrawService) emit(ctx context.Context, w *models.Withdraw, typ models.BookingEventType, title, body string) {
	ev := notification.NewEvent(typ, w.BookingID, w.ProviderID, models.RoleProvider, title, body)
	ev.WithdrawID = w.ID
	ev.Data["withdrawId"] = w.ID
	notification.Emit(ctx, s.publisher, s.logger, ev)
}

func notFoundOr(err error, what, id string) error {
	if errors.Is(err, database.ErrNotFound) {
		return utils.NewNotFoundError("%s %s not found", what, id)
	}
	return utils.NewInternalError(err, "failed to load %s %s", what, id)
}

func in[T comparable](v T, set ...T) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
