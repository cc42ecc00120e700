package tasks

import (
	"encoding/json"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/models"

	"github.com/hibiken/asynq"
)

const (
	TypeBookingEvent  = "notify:booking_event"
	TypePayoutRelease = "payout:release"
	TypeAutoCancel    = "booking:auto_cancel"
	TypeMarkOverdue   = "booking:mark_overdue"
	TypeAutoPayout    = "payout:auto_run"

	QueueDefault       = "default"
	QueueNotifications = "notifications"

	notificationRetries = 5
)

// NewBookingEventTask wraps a booking event for asynchronous delivery.
func NewBookingEventTask(event models.BookingEvent) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingEvent, b)
	opts := []asynq.Option{
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(notificationRetries),
		asynq.TaskID(event.ID),
	}
	return task, opts, nil
}

// ParseBookingEvent decodes the payload of a TypeBookingEvent task.
func ParseBookingEvent(task *asynq.Task) (models.BookingEvent, error) {
	var ev models.BookingEvent
	err := json.Unmarshal(task.Payload(), &ev)
	return ev, err
}

// SweepTypes are the periodic maintenance tasks. TypeAutoPayout is only
// scheduled when automated payouts are enabled.
var SweepTypes = []string{TypePayoutRelease, TypeAutoCancel, TypeMarkOverdue}

// NewSweepTask builds a payload-less periodic task. Uniqueness keeps a slow
// sweep from overlapping with the next tick.
func NewSweepTask(taskType string, interval time.Duration) (*asynq.Task, []asynq.Option) {
	return asynq.NewTask(taskType, nil), []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.Unique(interval),
	}
}
