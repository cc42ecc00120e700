package models

import "time"

type BookingEventType string

const (
	EventBookingCreated    BookingEventType = "booking.created"
	EventBookingConfirmed  BookingEventType = "booking.confirmed"
	EventBookingRejected   BookingEventType = "booking.rejected"
	EventBookingCancelled  BookingEventType = "booking.cancelled"
	EventBookingAutoCancel BookingEventType = "booking.auto_cancelled"
	EventBookingCompleted  BookingEventType = "booking.completed"
	EventRemainingPaid     BookingEventType = "booking.remaining_paid"
	EventPaymentOverdue    BookingEventType = "booking.payment_overdue"
	EventRefundProcessed   BookingEventType = "refund.processed"
	EventRefundFailed      BookingEventType = "refund.failed"
	EventPayoutAvailable   BookingEventType = "payout.available"
	EventWithdrawRequested BookingEventType = "withdraw.requested"
	EventWithdrawApproved  BookingEventType = "withdraw.approved"
	EventWithdrawRejected  BookingEventType = "withdraw.rejected"
	EventWithdrawFailed    BookingEventType = "withdraw.failed"
	EventReviewSubmitted   BookingEventType = "review.submitted"
)

// BookingEvent is emitted after a booking-related write commits.
type BookingEvent struct {
	ID          string            `json:"id"`
	Type        BookingEventType  `json:"type"`
	BookingID   string            `json:"bookingId,omitempty"`
	WithdrawID  string            `json:"withdrawId,omitempty"`
	RecipientID string            `json:"recipientId"`
	Recipient   Role              `json:"recipientRole"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	OccurredAt  time.Time         `json:"occurredAt"`
}
