package models

import "time"

type RefundRecordStatus string

const (
	RefundRecordPending   RefundRecordStatus = "pending"
	RefundRecordInitiated RefundRecordStatus = "initiated"
	RefundRecordProcessed RefundRecordStatus = "processed"
	RefundRecordFailed    RefundRecordStatus = "failed"
)

type RefundInitiator string

const (
	InitiatedByAdmin    RefundInitiator = "admin"
	InitiatedBySystem   RefundInitiator = "system"
	InitiatedByProvider RefundInitiator = "provider"
)

type PaymentLeg string

const (
	LegAdvance   PaymentLeg = "advance"
	LegRemaining PaymentLeg = "remaining"
)

// RefundLeg is the outcome of refunding one captured payment.
type RefundLeg struct {
	Leg             PaymentLeg `bson:"leg" json:"leg"`
	PaymentIntentID string     `bson:"paymentIntentId" json:"paymentIntentId"`
	Amount          float64    `bson:"amount" json:"amount"`
	ExternalID      string     `bson:"externalId,omitempty" json:"externalId,omitempty"`
	Succeeded       bool       `bson:"succeeded" json:"succeeded"`
	Error           string     `bson:"error,omitempty" json:"error,omitempty"`
}

// Refund is the audit record of one refund attempt.
type Refund struct {
	ID          string             `bson:"id" json:"id"`
	BookingID   string             `bson:"bookingId" json:"bookingId"`
	CustomerID  string             `bson:"customerId" json:"customerId"`
	ProviderID  string             `bson:"providerId" json:"providerId"`
	Amount      float64            `bson:"amount" json:"amount"`
	Currency    string             `bson:"currency" json:"currency"`
	Status      RefundRecordStatus `bson:"status" json:"status"`
	Reason      string             `bson:"reason" json:"reason"`
	InitiatedBy RefundInitiator    `bson:"initiatedBy" json:"initiatedBy"`
	Legs        []RefundLeg        `bson:"legs" json:"legs"`
	// PaymentIntentID is set instead of BookingID when the refunded payment
	// never became a booking.
	PaymentIntentID string `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	// ExternalRefundID joins the gateway refund ids of all succeeded legs.
	ExternalRefundID string    `bson:"stripeRefundId,omitempty" json:"stripeRefundId,omitempty"`
	ReversedTransfer string    `bson:"reversedTransferId,omitempty" json:"reversedTransferId,omitempty"`
	ErrorMessage     string    `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

// RefundedLeg reports whether leg was already refunded by this record.
func (r *Refund) RefundedLeg(leg PaymentLeg) (RefundLeg, bool) {
	for _, l := range r.Legs {
		if l.Leg == leg && l.Succeeded {
			return l, true
		}
	}
	return RefundLeg{}, false
}
