package notification

import (
	"context"
	"fmt"

	providerRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/provider"
	userRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/user"
	"github.com/Rohit420bhainwal/book-my-event-api/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// MessageSender is satisfied by *messaging.Client.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMDispatcher delivers booking events as push notifications.
type FCMDispatcher struct {
	users     userRepo.UserRepository
	providers providerRepo.ProviderRepository
	sender    MessageSender
	logger    *zap.Logger
}

func NewFCMDispatcher(users userRepo.UserRepository, providers providerRepo.ProviderRepository, sender MessageSender, logger *zap.Logger) (*FCMDispatcher, error) {
	if users == nil || providers == nil {
		return nil, fmt.Errorf("notification dispatcher initialization error: user or provider repository is nil")
	}
	return &FCMDispatcher{users: users, providers: providers, sender: sender, logger: logger}, nil
}

// Dispatch pushes the event to its recipient. A recipient without a device
// token is skipped.
func (d *FCMDispatcher) Dispatch(ctx context.Context, event models.BookingEvent) error {
	token, err := d.tokenFor(ctx, event)
	if err != nil {
		return err
	}
	if token == "" {
		d.logger.Debug("no push token for recipient",
			zap.String("recipientId", event.RecipientID),
			zap.String("role", string(event.Recipient)))
		return nil
	}
	if d.sender == nil {
		d.logger.Info("push disabled, dropping notification",
			zap.String("type", string(event.Type)),
			zap.String("recipientId", event.RecipientID))
		return nil
	}

	data := make(map[string]string, len(event.Data)+1)
	for k, v := range event.Data {
		data[k] = v
	}
	if _, ok := data["role"]; !ok {
		data["role"] = string(event.Recipient)
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: event.Title,
			Body:  event.Body,
		},
		Data: data,
	}
	if event.Recipient == models.RoleProvider {
		msg.Android = &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		}
		msg.APNS = &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		}
	}

	id, err := d.sender.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) {
			d.logger.Warn("stale push token", zap.String("recipientId", event.RecipientID))
			return nil
		}
		return fmt.Errorf("failed to send FCM message for %s: %w", event.Type, err)
	}
	d.logger.Debug("push sent", zap.String("messageId", id), zap.String("type", string(event.Type)))
	return nil
}

func (d *FCMDispatcher) tokenFor(ctx context.Context, event models.BookingEvent) (string, error) {
	switch event.Recipient {
	case models.RoleProvider:
		p, err := d.providers.GetByID(ctx, event.RecipientID)
		if err != nil {
			return "", fmt.Errorf("could not find provider %s: %w", event.RecipientID, err)
		}
		return p.FCMToken, nil
	case models.RoleCustomer:
		u, err := d.users.GetByID(ctx, event.RecipientID)
		if err != nil {
			return "", fmt.Errorf("could not find user %s: %w", event.RecipientID, err)
		}
		return u.FCMToken, nil
	default:
		return "", nil
	}
}
