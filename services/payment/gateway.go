package payment

import (
	"context"
	"fmt"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
)

// Gateway is the external payment processor. Implementations hold no
// business state; every mutating call accepts an idempotency key.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	Refund(ctx context.Context, req RefundRequest) (string, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (string, error)
	ReverseTransfer(ctx context.Context, transferID, idempotencyKey string) error
}

// AccountOnboarder creates connected payout accounts.
type AccountOnboarder interface {
	CreateConnectedAccount(ctx context.Context, providerID string, contact models.Identifier) (string, error)
	OnboardingLink(ctx context.Context, accountID string) (string, error)
}

// IntentStatusSucceeded is the only status that means money was captured.
const IntentStatusSucceeded = "succeeded"

type IntentRequest struct {
	Amount         int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

// Succeeded reports whether the intent captured its funds.
func (i *Intent) Succeeded() bool {
	return i != nil && i.Status == IntentStatusSucceeded
}

type RefundRequest struct {
	PaymentIntentID string
	// Amount in minor units; zero refunds the full captured amount.
	Amount         int64
	Reason         string
	IdempotencyKey string
}

type TransferRequest struct {
	Destination    string
	Amount         int64
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// GatewayError is a failure reported by the payment processor.
type GatewayError struct {
	Code    string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment gateway: %s", e.Message)
	}
	return fmt.Sprintf("payment gateway: %s (%s)", e.Message, e.Code)
}

func (e *GatewayError) Unwrap() error { return e.Err }
