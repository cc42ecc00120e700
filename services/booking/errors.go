package booking

import (
	"errors"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"
)

func slotKey(serviceID string, date time.Time, slot string) string {
	return models.SlotKeyFor(serviceID, date, slot)
}

// lookupError maps a repository read failure to an AppError.
func lookupError(err error, what, id string) error {
	if errors.Is(err, database.ErrNotFound) {
		return utils.NewNotFoundError("%s %s not found", what, id)
	}
	return utils.NewInternalError(err, "failed to load %s %s", what, id)
}

// transitionError maps a failed conditional booking update.
func transitionError(err error, bookingID string) error {
	if errors.Is(err, database.ErrStale) {
		return utils.NewConflictError("booking %s was modified concurrently; reload and retry", bookingID)
	}
	return utils.NewInternalError(err, "failed to update booking %s", bookingID)
}
