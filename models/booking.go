package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentAdvancePaid PaymentStatus = "advance_paid"
	PaymentFullyPaid   PaymentStatus = "fully_paid"
	PaymentOverdue     PaymentStatus = "overdue"
	PaymentRefunded    PaymentStatus = "refunded"
)

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutAvailable  PayoutStatus = "available"
	PayoutRequested  PayoutStatus = "requested"
	PayoutProcessing PayoutStatus = "processing"
	PayoutWithdrawn  PayoutStatus = "withdrawn"
	PayoutRejected   PayoutStatus = "rejected"
	PayoutCancelled  PayoutStatus = "cancelled"
)

type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundInitiated RefundStatus = "initiated"
	RefundRefunded  RefundStatus = "refunded"
	RefundFailed    RefundStatus = "failed"
)

type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewSubmitted ReviewStatus = "submitted"
)

type BookingType string

const (
	BookingRegular BookingType = "regular"
	BookingUrgent  BookingType = "urgent"
)

// PaymentMode selects between a 25% advance capture and a full upfront capture.
type PaymentMode string

const (
	PaymentModeAdvance PaymentMode = "ADVANCE"
	PaymentModeFull    PaymentMode = "FULL"
)

// Booking is the central record of the marketplace. Its four status fields
// are only ever changed together through lifecycle transitions.
type Booking struct {
	ID         string `bson:"id" json:"id"`
	CustomerID string `bson:"customerId" json:"customerId"`
	ProviderID string `bson:"providerId" json:"providerId"`
	ServiceID  string `bson:"serviceId" json:"serviceId"`
	Category   string `bson:"category,omitempty" json:"category,omitempty"`

	Date        time.Time   `bson:"date" json:"date"`
	Slot        string      `bson:"slot" json:"slot"`
	BookingType BookingType `bson:"bookingType" json:"bookingType"`
	// SlotKey is set only while the booking holds its slot; a unique partial
	// index on it rejects double bookings.
	SlotKey string `bson:"slotKey,omitempty" json:"-"`

	Status        BookingStatus `bson:"status" json:"status"`
	PaymentStatus PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	PayoutStatus  PayoutStatus  `bson:"payoutStatus" json:"payoutStatus"`
	RefundStatus  RefundStatus  `bson:"refundStatus" json:"refundStatus"`
	ReviewStatus  ReviewStatus  `bson:"reviewStatus" json:"reviewStatus"`

	PaymentMode     PaymentMode `bson:"paymentMode" json:"paymentMode"`
	Currency        string      `bson:"currency" json:"currency"`
	TotalAmount     float64     `bson:"totalAmount" json:"totalAmount"`
	AdvanceAmount   float64     `bson:"advanceAmount" json:"advanceAmount"`
	PaidAmount      float64     `bson:"paidAmount" json:"paidAmount"`
	RemainingAmount float64     `bson:"remainingAmount" json:"remainingAmount"`

	CommissionType   CommissionType `bson:"commissionType" json:"commissionType"`
	CommissionValue  float64        `bson:"commissionValue" json:"commissionValue"`
	CommissionAmount float64        `bson:"commissionAmount" json:"commissionAmount"`
	ProviderEarning  float64        `bson:"providerEarning" json:"providerEarning"`

	AdvancePaymentID   string `bson:"advancePaymentId,omitempty" json:"advancePaymentId,omitempty"`
	RemainingPaymentID string `bson:"remainingPaymentId,omitempty" json:"remainingPaymentId,omitempty"`

	PayoutReleaseDate time.Time  `bson:"payoutReleaseDate" json:"payoutReleaseDate"`
	PayoutID          string     `bson:"payoutId,omitempty" json:"payoutId,omitempty"`
	WithdrawnAt       *time.Time `bson:"withdrawnAt,omitempty" json:"withdrawnAt,omitempty"`

	PaymentDeadline          *time.Time `bson:"paymentDeadline,omitempty" json:"paymentDeadline,omitempty"`
	ProviderResponseDeadline time.Time  `bson:"providerResponseDeadline" json:"providerResponseDeadline"`

	RefundID     string     `bson:"refundId,omitempty" json:"refundId,omitempty"`
	ReviewID     string     `bson:"reviewId,omitempty" json:"reviewId,omitempty"`
	CancelReason string     `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CompletedAt  *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// BookingState is the joint value of the four status fields.
type BookingState struct {
	Status  BookingStatus `json:"status"`
	Payment PaymentStatus `json:"paymentStatus"`
	Payout  PayoutStatus  `json:"payoutStatus"`
	Refund  RefundStatus  `json:"refundStatus"`
}

// StateMove is one from/to pair of a transition applied to many bookings at
// once. A non-empty Type limits the move to bookings of that type.
type StateMove struct {
	From BookingState
	To   BookingState
	Type BookingType
}

// State returns the booking's current joint status.
func (b *Booking) State() BookingState {
	return BookingState{
		Status:  b.Status,
		Payment: b.PaymentStatus,
		Payout:  b.PayoutStatus,
		Refund:  b.RefundStatus,
	}
}

// SetState overwrites the four status fields.
func (b *Booking) SetState(s BookingState) {
	b.Status = s.Status
	b.PaymentStatus = s.Payment
	b.PayoutStatus = s.Payout
	b.RefundStatus = s.Refund
}

// IsParticipant reports whether the user is the booking's customer or provider.
func (b *Booking) IsParticipant(userID string) bool {
	return userID != "" && (b.CustomerID == userID || b.ProviderID == userID)
}

// SlotKeyFor builds the key identifying one bookable (service, day, slot) tuple.
func SlotKeyFor(serviceID string, date time.Time, slot string) string {
	return serviceID + "|" + date.UTC().Format("2006-01-02") + "|" + slot
}

// BookingChanges carries the non-status fields written alongside a transition.
// Nil fields are left untouched.
type BookingChanges struct {
	PaidAmount         *float64
	RemainingAmount    *float64
	RemainingPaymentID *string
	PayoutID           *string
	WithdrawnAt        *time.Time
	RefundID           *string
	CancelReason       *string
	CompletedAt        *time.Time
	ReviewStatus       *ReviewStatus
	ReviewID           *string
}

// Apply copies the set fields onto b.
func (c BookingChanges) Apply(b *Booking) {
	if c.PaidAmount != nil {
		b.PaidAmount = *c.PaidAmount
	}
	if c.RemainingAmount != nil {
		b.RemainingAmount = *c.RemainingAmount
	}
	if c.RemainingPaymentID != nil {
		b.RemainingPaymentID = *c.RemainingPaymentID
	}
	if c.PayoutID != nil {
		b.PayoutID = *c.PayoutID
	}
	if c.WithdrawnAt != nil {
		t := *c.WithdrawnAt
		b.WithdrawnAt = &t
	}
	if c.RefundID != nil {
		b.RefundID = *c.RefundID
	}
	if c.CancelReason != nil {
		b.CancelReason = *c.CancelReason
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		b.CompletedAt = &t
	}
	if c.ReviewStatus != nil {
		b.ReviewStatus = *c.ReviewStatus
	}
	if c.ReviewID != nil {
		b.ReviewID = *c.ReviewID
	}
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	CustomerID   string
	ProviderID   string
	Status       BookingStatus
	PayoutStatus PayoutStatus
}

// EarningsSummary aggregates a provider's booking earnings by payout status.
type EarningsSummary struct {
	ProviderID  string  `json:"providerId"`
	TotalEarned float64 `json:"totalEarned"`
	Pending     float64 `json:"pending"`
	Available   float64 `json:"available"`
	InFlight    float64 `json:"inFlight"`
	Withdrawn   float64 `json:"withdrawn"`
	Bookings    int     `json:"bookings"`
}
