// Package lifecycle is the booking state machine. A booking's status,
// payment, payout and refund fields form one joint state; every change is an
// Event whose rule checks the current state and returns the complete next
// state, which is then validated against the cross-field invariants.
package lifecycle

import (
	"fmt"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"
)

type Event string

const (
	ProviderConfirm  Event = "provider_confirm"
	PayRemaining     Event = "pay_remaining"
	MarkOverdue      Event = "mark_overdue"
	Complete         Event = "complete"
	ReleasePayout    Event = "release_payout"
	// ReleaseUrgentPayout applies to urgent bookings only, whatever part of
	// the price was captured.
	ReleaseUrgentPayout Event = "release_urgent_payout"
	StartRefund      Event = "start_refund"
	RetryRefund      Event = "retry_refund"
	RefundSucceeded  Event = "refund_succeeded"
	RefundFailed     Event = "refund_failed"
	RequestWithdraw  Event = "request_withdraw"
	BeginPayout      Event = "begin_payout"
	PayoutSucceeded  Event = "payout_succeeded"
	PayoutFailed     Event = "payout_failed"
	WithdrawRejected Event = "withdraw_rejected"
)

// TransitionError reports an event that is not legal from the current state.
type TransitionError struct {
	Event Event
	From  models.BookingState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s booking in state %s/%s/%s/%s",
		e.Event, e.From.Status, e.From.Payment, e.From.Payout, e.From.Refund)
}

type rule struct {
	allowed func(models.BookingState) bool
	next    func(models.BookingState) models.BookingState
	reason  string
	// bookingType restricts bulk application of the rule.
	bookingType models.BookingType
}

func in[T comparable](v T, set ...T) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// captured reports whether money is held for the booking.
func captured(p models.PaymentStatus) bool {
	return in(p, models.PaymentAdvancePaid, models.PaymentFullyPaid, models.PaymentOverdue)
}

var rules = map[Event]rule{
	ProviderConfirm: {
		reason: "only pending, paid bookings can be confirmed",
		allowed: func(s models.BookingState) bool {
			return s.Status == models.BookingPending &&
				s.Refund == models.RefundNone &&
				in(s.Payment, models.PaymentAdvancePaid, models.PaymentFullyPaid)
		},
		next: func(s models.BookingState) models.BookingState {
			s.Status = models.BookingConfirmed
			return s
		},
	},
	PayRemaining: {
		reason: "remaining payment requires an active advance-paid booking",
		allowed: func(s models.BookingState) bool {
			return in(s.Status, models.BookingPending, models.BookingConfirmed) &&
				s.Payment == models.PaymentAdvancePaid &&
				s.Refund == models.RefundNone
		},
		next: func(s models.BookingState) models.BookingState {
			s.Payment = models.PaymentFullyPaid
			return s
		},
	},
	MarkOverdue: {
		reason: "only unpaid remainders can become overdue",
		allowed: func(s models.BookingState) bool {
			return in(s.Status, models.BookingPending, models.BookingConfirmed) &&
				s.Payment == models.PaymentAdvancePaid &&
				s.Refund == models.RefundNone
		},
		next: func(s models.BookingState) models.BookingState {
			s.Payment = models.PaymentOverdue
			return s
		},
	},
	Complete: {
		reason: "only confirmed, fully paid, unrefunded bookings can be completed",
		allowed: func(s models.BookingState) bool {
			return s.Status == models.BookingConfirmed &&
				s.Payment == models.PaymentFullyPaid &&
				s.Refund == models.RefundNone &&
				in(s.Payout, models.PayoutPending, models.PayoutAvailable)
		},
		next: func(s models.BookingState) models.BookingState {
			s.Status = models.BookingCompleted
			s.Payout = models.PayoutAvailable
			return s
		},
	},
	ReleasePayout: {
		reason: "only pending payouts of confirmed, fully paid bookings can be released",
		allowed: func(s models.BookingState) bool {
			return s.Status == models.BookingConfirmed &&
				s.Payout == models.PayoutPending &&
				s.Refund == models.RefundNone &&
				s.Payment == models.PaymentFullyPaid
		},
		next: func(s models.BookingState) models.BookingState {
			s.Payout = models.PayoutAvailable
			return s
		},
	},
	ReleaseUrgentPayout: {
		reason:      "only pending payouts of confirmed bookings can be released",
		bookingType: models.BookingUrgent,
		allowed: func(s models.BookingState) bool {
			return s.Status == models.BookingConfirmed &&
				s.Payout == models.PayoutPending &&
				s.Refund == models.RefundNone &&
				captured(s.Payment)
		},
		next: func(s models.BookingState) models.BookingState {
			s.Payout = models.PayoutAvailable
			return s
		},
	},
	StartRefund: {
		reason: "booking has no refundable payment or a payout is in flight",
		allowed: func(s models.BookingState) bool {
			return s.Refund == models.RefundNone && refundable(s)
		},
		next: func(s models.BookingState) models.BookingState {
			s.Refund = models.RefundInitiated
			return s
		},
	},
	RetryRefund: {
		reason: "only failed refunds can be retried",
		allowed: func(s models.BookingState) bool {
			return s.Refund == models.RefundFailed && refundable(s)
		},
		next: func(s models.BookingState) models.BookingState {
			s.Refund = models.RefundInitiated
			return s
		},
	},
	RefundSucceeded: {
		reason: "no refund in progress",
		allowed: func(s models.BookingState) bool {
			return s.Refund == models.RefundInitiated
		},
		next: func(s models.BookingState) models.BookingState {
			return models.BookingState{
				Status:  models.BookingCancelled,
				Payment: models.PaymentRefunded,
				Payout:  models.PayoutCancelled,
				Refund:  models.RefundRefunded,
			}
		},
	},
	RefundFailed: {
		reason: "no refund in progress",
		allowed: func(s models.BookingState) bool {
			return s.Refund == models.RefundInitiated
		},
		next: func(s models.BookingState) models.BookingState {
			s.Refund = models.RefundFailed
			return s
		},
	},
	RequestWithdraw: {
		reason: "payout is not available for withdrawal",
		allowed: func(s models.BookingState) bool {
			return s.Status == models.BookingCompleted &&
				s.Payout == models.PayoutAvailable &&
				s.Refund == models.RefundNone
		},
		next: func(s models.BookingState) models.BookingState {
			s.Payout = models.PayoutRequested
			return s
		},
	},
	BeginPayout: {
		reason: "payout is not requested or available",
		allowed: func(s models.BookingState) bool {
			return s.Status == models.BookingCompleted &&
				in(s.Payout, models.PayoutRequested, models.PayoutAvailable) &&
				s.Refund == models.RefundNone
		},
		next: func(s models.BookingState) models.BookingState {
			s.Payout = models.PayoutProcessing
			return s
		},
	},
	PayoutSucceeded: {
		reason: "payout is not processing",
		allowed: func(s models.BookingState) bool {
			return s.Payout == models.PayoutProcessing && s.Refund == models.RefundNone
		},
		next: func(s models.BookingState) models.BookingState {
			s.Payout = models.PayoutWithdrawn
			return s
		},
	},
	PayoutFailed: {
		reason: "payout is not processing",
		allowed: func(s models.BookingState) bool {
			return s.Payout == models.PayoutProcessing
		},
		next: func(s models.BookingState) models.BookingState {
			s.Payout = models.PayoutAvailable
			return s
		},
	},
	WithdrawRejected: {
		reason: "payout is not awaiting approval",
		allowed: func(s models.BookingState) bool {
			return in(s.Payout, models.PayoutRequested, models.PayoutProcessing) &&
				s.Refund == models.RefundNone
		},
		next: func(s models.BookingState) models.BookingState {
			s.Payout = models.PayoutAvailable
			return s
		},
	},
}

// refundable: money was captured, the booking is not terminal-cancelled, and
// no payout transfer is mid-flight.
func refundable(s models.BookingState) bool {
	return in(s.Status, models.BookingPending, models.BookingConfirmed, models.BookingCompleted) &&
		captured(s.Payment) &&
		!in(s.Payout, models.PayoutRequested, models.PayoutProcessing)
}

// Allowed reports whether ev may fire from cur.
func Allowed(cur models.BookingState, ev Event) bool {
	r, ok := rules[ev]
	return ok && r.allowed(cur)
}

// Next returns the state reached by firing ev from cur. Illegal events yield
// a state-kind AppError wrapping a *TransitionError.
func Next(cur models.BookingState, ev Event) (models.BookingState, error) {
	r, ok := rules[ev]
	if !ok {
		return cur, utils.NewInternalError(nil, "unknown booking event %q", ev)
	}
	if !r.allowed(cur) {
		return cur, &utils.AppError{
			Kind:    utils.KindState,
			Message: r.reason,
			Details: stateDetails(cur),
			Err:     &TransitionError{Event: ev, From: cur},
		}
	}
	next := r.next(cur)
	if err := Validate(next); err != nil {
		return cur, utils.NewInternalError(err, "event %s produced an invalid booking state", ev)
	}
	return next, nil
}

func stateDetails(s models.BookingState) map[string]string {
	return map[string]string{
		"status":        string(s.Status),
		"paymentStatus": string(s.Payment),
		"payoutStatus":  string(s.Payout),
		"refundStatus":  string(s.Refund),
	}
}

var (
	allStatuses = []models.BookingStatus{models.BookingPending, models.BookingConfirmed, models.BookingCancelled, models.BookingCompleted}
	allPayments = []models.PaymentStatus{models.PaymentPending, models.PaymentAdvancePaid, models.PaymentFullyPaid, models.PaymentOverdue, models.PaymentRefunded}
	allPayouts  = []models.PayoutStatus{models.PayoutPending, models.PayoutAvailable, models.PayoutRequested, models.PayoutProcessing, models.PayoutWithdrawn, models.PayoutRejected, models.PayoutCancelled}
	allRefunds  = []models.RefundStatus{models.RefundNone, models.RefundInitiated, models.RefundRefunded, models.RefundFailed}
)

// Moves enumerates every valid state ev may fire from, paired with the state
// it leads to. Stores use it to apply time-driven events in bulk with exactly
// the rule Next enforces.
func Moves(ev Event) []models.StateMove {
	r, ok := rules[ev]
	if !ok {
		return nil
	}
	var out []models.StateMove
	for _, st := range allStatuses {
		for _, pay := range allPayments {
			for _, po := range allPayouts {
				for _, rf := range allRefunds {
					from := models.BookingState{Status: st, Payment: pay, Payout: po, Refund: rf}
					if Validate(from) != nil || !r.allowed(from) {
						continue
					}
					to := r.next(from)
					if Validate(to) != nil {
						continue
					}
					out = append(out, models.StateMove{From: from, To: to, Type: r.bookingType})
				}
			}
		}
	}
	return out
}

// Initial returns the state of a booking created from a captured payment.
func Initial(mode models.PaymentMode) models.BookingState {
	payment := models.PaymentAdvancePaid
	if mode == models.PaymentModeFull {
		payment = models.PaymentFullyPaid
	}
	return models.BookingState{
		Status:  models.BookingPending,
		Payment: payment,
		Payout:  models.PayoutPending,
		Refund:  models.RefundNone,
	}
}

// Validate rejects combinations no sequence of legal events can reach.
func Validate(s models.BookingState) error {
	switch {
	case s.Refund == models.RefundRefunded &&
		(s.Status != models.BookingCancelled || s.Payout != models.PayoutCancelled || s.Payment != models.PaymentRefunded):
		return fmt.Errorf("refunded booking must be cancelled with payout cancelled")
	case s.Payment == models.PaymentRefunded && s.Refund != models.RefundRefunded:
		return fmt.Errorf("payment refunded without a completed refund")
	case s.Status == models.BookingCompleted && s.Payment != models.PaymentFullyPaid:
		return fmt.Errorf("completed booking must be fully paid")
	case s.Status == models.BookingPending && s.Payout != models.PayoutPending:
		return fmt.Errorf("pending booking cannot have payout %s", s.Payout)
	case in(s.Payout, models.PayoutRequested, models.PayoutProcessing, models.PayoutWithdrawn) &&
		s.Status != models.BookingCompleted:
		return fmt.Errorf("payout %s requires a completed booking", s.Payout)
	case s.Payout == models.PayoutAvailable &&
		!in(s.Status, models.BookingConfirmed, models.BookingCompleted):
		return fmt.Errorf("payout available requires a confirmed or completed booking")
	}
	return nil
}
