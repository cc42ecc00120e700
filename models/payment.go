package models

// IntentKind tags a payment intent with the booking leg it pays for.
type IntentKind string

const (
	IntentAdvance   IntentKind = "advance"
	IntentRemaining IntentKind = "remaining"
)

// PaymentIntentResponse is returned to the client after intent creation.
type PaymentIntentResponse struct {
	PaymentIntentID  string      `json:"paymentIntentId"`
	ClientSecret     string      `json:"clientSecret"`
	Amount           float64     `json:"amount"`
	Currency         string      `json:"currency"`
	TotalAmount      float64     `json:"totalAmount"`
	AdvanceAmount    float64     `json:"advanceAmount"`
	RemainingAmount  float64     `json:"remainingAmount"`
	CommissionAmount float64     `json:"commissionAmount"`
	ProviderEarning  float64     `json:"providerEarning"`
	BookingType      BookingType `json:"bookingType"`
	PaymentMode      PaymentMode `json:"paymentMode"`
}
