package provider

import (
	"context"

	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"go.uber.org/zap"
)

// WebhookVerifier authenticates and decodes gateway callbacks.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// IntentHandler applies a captured payment to its booking.
type IntentHandler interface {
	HandleIntentSucceeded(ctx context.Context, intent *payment.Intent) error
}

type WebhookService interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

// DefaultWebhookService routes verified gateway events to the services that
// own them.
type DefaultWebhookService struct {
	verifier  WebhookVerifier
	bookings  IntentHandler
	providers ProviderService
	logger    *zap.Logger
}

func NewWebhookService(verifier WebhookVerifier, bookings IntentHandler, providers ProviderService, logger *zap.Logger) *DefaultWebhookService {
	return &DefaultWebhookService{verifier: verifier, bookings: bookings, providers: providers, logger: logger}
}

func (s *DefaultWebhookService) Handle(ctx context.Context, payload []byte, signature string) error {
	if signature == "" {
		return utils.NewValidationError("missing Stripe-Signature header")
	}
	event, err := s.verifier.VerifyWebhook(payload, signature)
	if err != nil {
		return utils.NewValidationError("invalid webhook: %v", err)
	}

	log := s.logger.With(zap.String("eventId", event.ID), zap.String("type", event.Type))
	switch event.Type {
	case "payment_intent.succeeded":
		if event.Intent == nil {
			return nil
		}
		err := s.bookings.HandleIntentSucceeded(ctx, event.Intent)
		if utils.IsKind(err, utils.KindConflict) {
			// Already refunded; redelivery cannot change the outcome.
			log.Warn("captured payment not booked", zap.String("intentId", event.Intent.ID), zap.Error(err))
			return nil
		}
		if err != nil {
			log.Error("failed to apply captured payment", zap.String("intentId", event.Intent.ID), zap.Error(err))
			return err
		}
	case "payment_intent.payment_failed":
		if event.Intent != nil {
			log.Info("payment failed", zap.String("intentId", event.Intent.ID))
		}
	case "account.updated":
		if err := s.providers.HandleAccountUpdated(ctx, event.Account); err != nil {
			log.Error("failed to apply account update", zap.Error(err))
			return err
		}
	default:
		log.Debug("ignoring webhook event")
	}
	return nil
}
