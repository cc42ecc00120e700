package models

import "time"

type WithdrawStatus string

const (
	WithdrawPending WithdrawStatus = "pending"
	// WithdrawProcessing is held by the approver while the transfer runs.
	WithdrawProcessing WithdrawStatus = "processing"
	WithdrawApproved   WithdrawStatus = "approved"
	WithdrawRejected   WithdrawStatus = "rejected"
	WithdrawFailed     WithdrawStatus = "failed"
)

// Withdraw is a provider cash-out request. Booking-scoped withdraws carry
// BookingID; provider-scoped ones list every booking they cover in BookingIDs.
type Withdraw struct {
	ID              string         `bson:"id" json:"id"`
	ProviderID      string         `bson:"providerId" json:"providerId"`
	BookingID       string         `bson:"bookingId,omitempty" json:"bookingId,omitempty"`
	BookingIDs      []string       `bson:"bookingIds,omitempty" json:"bookingIds,omitempty"`
	Amount          float64        `bson:"amount" json:"amount"`
	Currency        string         `bson:"currency" json:"currency"`
	Status          WithdrawStatus `bson:"status" json:"status"`
	Destination     string         `bson:"destination,omitempty" json:"destination,omitempty"`
	TransferID      string         `bson:"stripeTransferId,omitempty" json:"stripeTransferId,omitempty"`
	Simulated       bool           `bson:"simulated" json:"simulated"`
	RejectionReason string         `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	ErrorMessage    string         `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	CreatedAt       time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// Covers returns every booking id the withdraw pays out.
func (w *Withdraw) Covers() []string {
	if w.BookingID != "" {
		return []string{w.BookingID}
	}
	return w.BookingIDs
}

// PayoutResult is one line of an automated payout run.
type PayoutResult struct {
	BookingID  string  `json:"bookingId"`
	ProviderID string  `json:"providerId"`
	Amount     float64 `json:"amount"`
	WithdrawID string  `json:"withdrawId,omitempty"`
	TransferID string  `json:"transferId,omitempty"`
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
}
