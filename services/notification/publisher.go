package notification

import (
	"context"
	"errors"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher hands committed booking events to an outbound channel.
type Publisher interface {
	Publish(ctx context.Context, event models.BookingEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.BookingEvent) error { return nil }

// FanoutPublisher hands each event to every sink. A failing sink does not
// keep the event from the others.
type FanoutPublisher struct {
	sinks []Publisher
}

func NewFanoutPublisher(sinks ...Publisher) *FanoutPublisher {
	return &FanoutPublisher{sinks: sinks}
}

func (p *FanoutPublisher) Publish(ctx context.Context, event models.BookingEvent) error {
	var errs []error
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit publishes events after a write has committed. Failures are logged and
// never returned; the financial state is already final.
func Emit(ctx context.Context, pub Publisher, logger *zap.Logger, events ...models.BookingEvent) {
	if pub == nil {
		return
	}
	for _, ev := range events {
		if err := pub.Publish(ctx, ev); err != nil {
			logger.Warn("failed to publish booking event",
				zap.String("type", string(ev.Type)),
				zap.String("bookingId", ev.BookingID),
				zap.String("recipientId", ev.RecipientID),
				zap.Error(err))
		}
	}
}

// NewEvent builds an event addressed to one recipient.
func NewEvent(typ models.BookingEventType, bookingID, recipientID string, role models.Role, title, body string) models.BookingEvent {
	return models.BookingEvent{
		ID:          uuid.New().String(),
		Type:        typ,
		BookingID:   bookingID,
		RecipientID: recipientID,
		Recipient:   role,
		Title:       title,
		Body:        body,
		Data: map[string]string{
			"type":      string(typ),
			"bookingId": bookingID,
			"role":      string(role),
		},
		OccurredAt: time.Now().UTC(),
	}
}

// ForCustomer addresses an event about b to its customer.
func ForCustomer(typ models.BookingEventType, b *models.Booking, title, body string) models.BookingEvent {
	return NewEvent(typ, b.ID, b.CustomerID, models.RoleCustomer, title, body)
}

// ForProvider addresses an event about b to its provider.
func ForProvider(typ models.BookingEventType, b *models.Booking, title, body string) models.BookingEvent {
	return NewEvent(typ, b.ID, b.ProviderID, models.RoleProvider, title, body)
}
