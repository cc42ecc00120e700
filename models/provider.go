package models

import "time"

// ProviderStatus gates whether a provider can take bookings.
type ProviderStatus string

const (
	ProviderPendingApproval ProviderStatus = "pending"
	ProviderApproved        ProviderStatus = "approved"
	ProviderRejected        ProviderStatus = "rejected"
	ProviderSuspended       ProviderStatus = "suspended"
)

// Valid reports whether s is a known provider status.
func (s ProviderStatus) Valid() bool {
	switch s {
	case ProviderPendingApproval, ProviderApproved, ProviderRejected, ProviderSuspended:
		return true
	}
	return false
}

// RatingSummary keeps a running average and per-star histogram.
type RatingSummary struct {
	Average      float64        `bson:"average" json:"average"`
	Count        int            `bson:"count" json:"count"`
	Distribution map[string]int `bson:"distribution" json:"distribution"`
}

// Provider is the payout-facing view of a service provider.
type Provider struct {
	ID           string         `bson:"id" json:"id"`
	BusinessName string         `bson:"businessName" json:"businessName"`
	Contact      Identifier     `bson:"contact" json:"contact"`
	Status       ProviderStatus `bson:"status" json:"status"`
	FCMToken     string         `bson:"fcmToken,omitempty" json:"-"`

	// Stripe-related
	StripeAccountID           string `bson:"stripeAccountId,omitempty" json:"stripeAccountId,omitempty"`
	StripeOnboardingCompleted bool   `bson:"stripeOnboardingCompleted" json:"stripeOnboardingCompleted"`
	// UpiID is an alternative payout destination used by simulated payouts.
	UpiID string `bson:"upiId,omitempty" json:"upiId,omitempty"`

	Rating    RatingSummary `bson:"rating" json:"rating"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// PayoutDestination returns where transfers to this provider land, or "".
func (p *Provider) PayoutDestination() string {
	if p.StripeAccountID != "" && p.StripeOnboardingCompleted {
		return p.StripeAccountID
	}
	return p.UpiID
}

// CanAcceptBookings reports whether new bookings may reference the provider.
func (p *Provider) CanAcceptBookings() bool {
	return p.Status == ProviderApproved
}
