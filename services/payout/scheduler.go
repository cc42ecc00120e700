// Package payout moves provider earnings from held to withdrawable to paid,
// and runs the periodic sweeps that advance bookings over time.
package payout

import (
	"context"
	"time"

	bookingRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/booking"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/lifecycle"
	"github.com/Rohit420bhainwal/book-my-event-api/services/notification"
	"github.com/Rohit420bhainwal/book-my-event-api/services/refund"

	"go.uber.org/zap"
)

const (
	defaultSweepBatch = 200
	autoCancelReason  = "provider did not respond before the deadline"
)

// SweepReport summarises one auto-cancel pass.
type SweepReport struct {
	Candidates int      `json:"candidates"`
	Cancelled  int      `json:"cancelled"`
	Failed     int      `json:"failed"`
	FailedIDs  []string `json:"failedIds,omitempty"`
}

// Scheduler runs the time-driven booking sweeps. The release sweep only
// touches confirmed bookings and the auto-cancel sweep only pending ones, so
// the two never act on the same booking.
type Scheduler struct {
	bookings  bookingRepo.BookingRepository
	refunds   refund.Coordinator
	publisher notification.Publisher
	logger    *zap.Logger
	batchSize int
	now       func() time.Time
}

func NewScheduler(bookings bookingRepo.BookingRepository, refunds refund.Coordinator, publisher notification.Publisher, logger *zap.Logger) *Scheduler {
	if publisher == nil {
		publisher = notification.NopPublisher{}
	}
	return &Scheduler{
		bookings:  bookings,
		refunds:   refunds,
		publisher: publisher,
		logger:    logger,
		batchSize: defaultSweepBatch,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

var (
	releaseMoves = append(lifecycle.Moves(lifecycle.ReleasePayout), lifecycle.Moves(lifecycle.ReleaseUrgentPayout)...)
	overdueMoves = lifecycle.Moves(lifecycle.MarkOverdue)
)

// ReleaseSweep makes payouts of confirmed bookings available once their
// release date has passed.
func (s *Scheduler) ReleaseSweep(ctx context.Context) (int64, error) {
	n, err := s.bookings.ReleaseDuePayouts(ctx, s.now(), releaseMoves)
	if err != nil {
		s.logger.Error("payout release sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.logger.Info("payouts released", zap.Int64("count", n))
	}
	return n, nil
}

// OverdueSweep flags advance-paid bookings whose balance deadline passed.
func (s *Scheduler) OverdueSweep(ctx context.Context) (int64, error) {
	n, err := s.bookings.MarkOverdue(ctx, s.now(), overdueMoves)
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.logger.Info("bookings marked overdue", zap.Int64("count", n))
	}
	return n, nil
}

// AutoCancelSweep cancels and refunds pending bookings the provider never
// answered. Each booking is handled on its own; one failure does not stop
// the rest. A failed refund leaves the booking flagged for reconciliation
// and it is not picked up again.
func (s *Scheduler) AutoCancelSweep(ctx context.Context) (SweepReport, error) {
	candidates, err := s.bookings.FindAutoCancelCandidates(ctx, s.now(), s.batchSize)
	if err != nil {
		s.logger.Error("auto-cancel sweep query failed", zap.Error(err))
		return SweepReport{}, err
	}

	report := SweepReport{Candidates: len(candidates)}
	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		b := candidates[i]
		res, err := s.refunds.Refund(ctx, b.ID, autoCancelReason, models.InitiatedBySystem)
		if err != nil {
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, b.ID)
			s.logger.Warn("auto-cancel failed",
				zap.String("bookingId", b.ID),
				zap.Time("deadline", b.ProviderResponseDeadline),
				zap.Error(err))
			continue
		}
		report.Cancelled++
		notification.Emit(ctx, s.publisher, s.logger,
			notification.ForCustomer(models.EventBookingAutoCancel, res.Booking, "Booking cancelled",
				"The provider did not respond in time, so your booking was cancelled and refunded."),
			notification.ForProvider(models.EventBookingAutoCancel, res.Booking, "Booking expired",
				"A booking request expired because it was not answered in time."),
		)
	}

	if report.Candidates > 0 {
		s.logger.Info("auto-cancel sweep finished",
			zap.Int("candidates", report.Candidates),
			zap.Int("cancelled", report.Cancelled),
			zap.Int("failed", report.Failed))
	}
	return report, nil
}
