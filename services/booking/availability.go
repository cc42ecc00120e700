package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	availabilityRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/availability"
	bookingRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/booking"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SlotHolds keeps short-lived provisional claims on a slot between intent
// creation and confirmation. Holds are advisory; the booking store is the
// source of truth.
type SlotHolds interface {
	// Hold claims key for owner. It succeeds when the key is free or already
	// held by the same owner.
	Hold(ctx context.Context, key, owner string) (bool, error)
	// HeldByOther reports whether someone other than owner holds key.
	HeldByOther(ctx context.Context, key, owner string) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

// releaseScript deletes the hold only if owner still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSlotHolds stores holds as SET NX keys with a TTL.
type RedisSlotHolds struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSlotHolds(client *redis.Client, ttl time.Duration) *RedisSlotHolds {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisSlotHolds{client: client, ttl: ttl}
}

func (h *RedisSlotHolds) Hold(ctx context.Context, key, owner string) (bool, error) {
	k := utils.SlotHoldPrefix + key
	ok, err := h.client.SetNX(ctx, k, owner, h.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("slot hold %s: %w", key, err)
	}
	if ok {
		return true, nil
	}
	current, err := h.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		return h.client.SetNX(ctx, k, owner, h.ttl).Result()
	}
	if err != nil {
		return false, fmt.Errorf("slot hold %s: %w", key, err)
	}
	if current == owner {
		return true, h.client.Expire(ctx, k, h.ttl).Err()
	}
	return false, nil
}

func (h *RedisSlotHolds) HeldByOther(ctx context.Context, key, owner string) (bool, error) {
	current, err := h.client.Get(ctx, utils.SlotHoldPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("slot hold %s: %w", key, err)
	}
	return current != owner, nil
}

func (h *RedisSlotHolds) Release(ctx context.Context, key, owner string) error {
	return releaseScript.Run(ctx, h.client, []string{utils.SlotHoldPrefix + key}, owner).Err()
}

// AvailabilityChecker answers whether a (service, day, slot) tuple is free.
type AvailabilityChecker struct {
	bookings  bookingRepo.BookingRepository
	schedules availabilityRepo.AvailabilityRepository
	holds     SlotHolds
	logger    *zap.Logger
}

// NewAvailabilityChecker builds a checker. holds may be nil.
func NewAvailabilityChecker(bookings bookingRepo.BookingRepository, holds SlotHolds, logger *zap.Logger) *AvailabilityChecker {
	return &AvailabilityChecker{bookings: bookings, holds: holds, logger: logger}
}

// WithSchedules restricts bookable slots to each service's configured
// working days and slots. Services without a schedule stay unrestricted.
func (a *AvailabilityChecker) WithSchedules(schedules availabilityRepo.AvailabilityRepository) *AvailabilityChecker {
	a.schedules = schedules
	return a
}

// schedule returns the service's config, or nil when none applies.
func (a *AvailabilityChecker) schedule(ctx context.Context, serviceID string) (*models.AvailabilityConfig, error) {
	if a.schedules == nil {
		return nil, nil
	}
	cfg, err := a.schedules.GetByService(ctx, serviceID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to load availability for service %s", serviceID)
	}
	return cfg, nil
}

// OnSchedule returns a validation error when the provider does not offer
// slot on date's weekday.
func (a *AvailabilityChecker) OnSchedule(ctx context.Context, serviceID string, date time.Time, slot string) error {
	cfg, err := a.schedule(ctx, serviceID)
	if err != nil || cfg == nil {
		return err
	}
	if !cfg.WorksOn(date.UTC().Weekday()) {
		return utils.NewValidationError("service %s is not offered on %s", serviceID, date.UTC().Weekday())
	}
	if !cfg.HasSlot(slot) {
		return utils.NewValidationError("slot %s is not offered for service %s", slot, serviceID)
	}
	return nil
}

// IsAvailable is true iff the slot is on the service's schedule and no
// non-cancelled booking holds the exact tuple.
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, serviceID string, date time.Time, slot string) (bool, error) {
	if err := a.OnSchedule(ctx, serviceID, date, slot); err != nil {
		if utils.IsKind(err, utils.KindValidation) {
			return false, nil
		}
		return false, err
	}
	taken, err := a.bookings.SlotTaken(ctx, serviceID, date, slot)
	if err != nil {
		return false, utils.NewInternalError(err, "failed to check slot availability")
	}
	return !taken, nil
}

// AvailableFor additionally treats a live hold by another customer as taken.
// A failing hold store degrades to the booking check alone.
func (a *AvailabilityChecker) AvailableFor(ctx context.Context, serviceID string, date time.Time, slot, customerID string) (bool, error) {
	ok, err := a.IsAvailable(ctx, serviceID, date, slot)
	if err != nil || !ok || a.holds == nil {
		return ok, err
	}
	key := slotKey(serviceID, date, slot)
	held, err := a.holds.HeldByOther(ctx, key, customerID)
	if err != nil {
		a.logger.Warn("slot hold lookup failed", zap.String("slot", key), zap.Error(err))
		return true, nil
	}
	return !held, nil
}

// Hold places a provisional claim for customerID. It reports false when
// another customer holds the slot.
func (a *AvailabilityChecker) Hold(ctx context.Context, serviceID string, date time.Time, slot, customerID string) bool {
	if a.holds == nil {
		return true
	}
	key := slotKey(serviceID, date, slot)
	ok, err := a.holds.Hold(ctx, key, customerID)
	if err != nil {
		a.logger.Warn("slot hold failed", zap.String("slot", key), zap.Error(err))
		return true
	}
	return ok
}

// Release drops customerID's hold, if any.
func (a *AvailabilityChecker) Release(ctx context.Context, serviceID string, date time.Time, slot, customerID string) {
	if a.holds == nil {
		return
	}
	key := slotKey(serviceID, date, slot)
	if err := a.holds.Release(ctx, key, customerID); err != nil {
		a.logger.Warn("slot hold release failed", zap.String("slot", key), zap.Error(err))
	}
}
