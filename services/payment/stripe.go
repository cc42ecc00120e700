package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// StripeConfig configures the Stripe adapter.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
	Country       string
	RefreshURL    string
	ReturnURL     string
}

// StripeGateway implements Gateway and AccountOnboarder on Stripe.
type StripeGateway struct {
	api    *client.API
	cfg    StripeConfig
	logger *zap.Logger
}

// NewStripeGateway builds a client with bounded HTTP timeouts and no
// automatic network retries; callers retry with the same idempotency key.
func NewStripeGateway(cfg StripeConfig, logger *zap.Logger) *StripeGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}
	return &StripeGateway{
		api:    client.New(cfg.SecretKey, backends),
		cfg:    cfg,
		logger: logger,
	}
}

func (g *StripeGateway) params(ctx context.Context, idempotencyKey string) stripe.Params {
	p := stripe.Params{Context: ctx}
	if idempotencyKey != "" {
		p.SetIdempotencyKey(idempotencyKey)
	}
	return p
}

func (g *StripeGateway) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.cfg.Timeout)
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Params:   g.params(ctx, req.IdempotencyKey),
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapStripeError("create payment intent", err)
	}
	return intentFromStripe(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	pi, err := g.api.PaymentIntents.Get(intentID, &stripe.PaymentIntentParams{Params: g.params(ctx, "")})
	if err != nil {
		return nil, wrapStripeError("retrieve payment intent", err)
	}
	return intentFromStripe(pi), nil
}

func (g *StripeGateway) Refund(ctx context.Context, req RefundRequest) (string, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	params := &stripe.RefundParams{
		Params:        g.params(ctx, req.IdempotencyKey),
		PaymentIntent: stripe.String(req.PaymentIntentID),
	}
	if req.Amount > 0 {
		params.Amount = stripe.Int64(req.Amount)
	}
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}

	r, err := g.api.Refunds.New(params)
	if err != nil {
		return "", wrapStripeError("refund", err)
	}
	g.logger.Info("stripe refund created",
		zap.String("refundId", r.ID),
		zap.String("paymentIntent", req.PaymentIntentID),
		zap.Int64("amount", r.Amount))
	return r.ID, nil
}

func (g *StripeGateway) CreateTransfer(ctx context.Context, req TransferRequest) (string, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	params := &stripe.TransferParams{
		Params:      g.params(ctx, req.IdempotencyKey),
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(req.Currency),
		Destination: stripe.String(req.Destination),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	t, err := g.api.Transfers.New(params)
	if err != nil {
		return "", wrapStripeError("transfer", err)
	}
	return t.ID, nil
}

func (g *StripeGateway) ReverseTransfer(ctx context.Context, transferID, idempotencyKey string) error {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	params := &stripe.TransferReversalParams{
		Params: g.params(ctx, idempotencyKey),
		ID:     stripe.String(transferID),
	}
	if _, err := g.api.TransferReversals.New(params); err != nil {
		return wrapStripeError("reverse transfer", err)
	}
	return nil
}

// CreateConnectedAccount opens an Express account able to receive transfers.
func (g *StripeGateway) CreateConnectedAccount(ctx context.Context, providerID string, contact models.Identifier) (string, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	params := &stripe.AccountParams{
		Params:  g.params(ctx, "account-"+providerID),
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(g.cfg.Country),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	switch contact.Kind {
	case models.IdentifierEmail:
		params.Email = stripe.String(contact.Value)
	case models.IdentifierPhone:
		params.BusinessProfile = &stripe.AccountBusinessProfileParams{SupportPhone: stripe.String(contact.Value)}
	}
	params.AddMetadata("providerId", providerID)

	acct, err := g.api.Accounts.New(params)
	if err != nil {
		return "", wrapStripeError("create connected account", err)
	}
	return acct.ID, nil
}

func (g *StripeGateway) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	link, err := g.api.AccountLinks.New(&stripe.AccountLinkParams{
		Params:     g.params(ctx, ""),
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(g.cfg.RefreshURL),
		ReturnURL:  stripe.String(g.cfg.ReturnURL),
		Type:       stripe.String("account_onboarding"),
	})
	if err != nil {
		return "", wrapStripeError("create onboarding link", err)
	}
	return link.URL, nil
}

// WebhookEvent is the subset of a verified Stripe event the app reacts to.
type WebhookEvent struct {
	ID      string
	Type    string
	Intent  *Intent
	Account *AccountStatus
}

// AccountStatus reports the readiness of a connected account.
type AccountStatus struct {
	ID               string
	DetailsSubmitted bool
	ChargesEnabled   bool
	PayoutsEnabled   bool
}

// Ready reports whether transfers to the account can be made.
func (a *AccountStatus) Ready() bool {
	return a.DetailsSubmitted && a.ChargesEnabled && a.PayoutsEnabled
}

// VerifyWebhook checks the signature header and decodes the event payload.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("invalid webhook signature: %w", err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.Intent = intentFromStripe(&pi)
	case "account.updated":
		var acct stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		out.Account = &AccountStatus{
			ID:               acct.ID,
			DetailsSubmitted: acct.DetailsSubmitted,
			ChargesEnabled:   acct.ChargesEnabled,
			PayoutsEnabled:   acct.PayoutsEnabled,
		}
	}
	return out, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

func wrapStripeError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &GatewayError{Code: string(se.Code), Message: op + ": " + se.Msg, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GatewayError{Code: "timeout", Message: op + ": request timed out", Err: err}
	}
	return &GatewayError{Message: op + ": " + err.Error(), Err: err}
}
