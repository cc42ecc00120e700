package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	availabilityRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/availability"
	bookingRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/booking"
	catalogRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/catalog"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"go.uber.org/zap"
)

const (
	clockLayout = "15:04"
	monthLayout = "2006-01"
)

// ScheduleService manages provider working hours and the booking calendar
// derived from them.
type ScheduleService interface {
	SaveSchedule(ctx context.Context, providerID string, req ScheduleRequest) (*models.AvailabilityConfig, error)
	GetSchedule(ctx context.Context, serviceID string) (*models.AvailabilityConfig, error)
	MonthlyAvailability(ctx context.Context, serviceID, month string) (*models.MonthlyAvailability, error)
}

type ScheduleRequest struct {
	ServiceID   string                `json:"serviceId" binding:"required"`
	WorkingDays []int                 `json:"workingDays" binding:"required"`
	Slots       []models.ScheduleSlot `json:"slots" binding:"required"`
}

type DefaultScheduleService struct {
	schedules availabilityRepo.AvailabilityRepository
	catalog   catalogRepo.CatalogRepository
	bookings  bookingRepo.BookingRepository
	logger    *zap.Logger
}

func NewScheduleService(schedules availabilityRepo.AvailabilityRepository, catalog catalogRepo.CatalogRepository, bookings bookingRepo.BookingRepository, logger *zap.Logger) *DefaultScheduleService {
	return &DefaultScheduleService{schedules: schedules, catalog: catalog, bookings: bookings, logger: logger}
}

// SaveSchedule creates or replaces the schedule of a service the provider owns.
func (s *DefaultScheduleService) SaveSchedule(ctx context.Context, providerID string, req ScheduleRequest) (*models.AvailabilityConfig, error) {
	listing, err := s.catalog.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, lookupError(err, "service", req.ServiceID)
	}
	if listing.ProviderID != providerID {
		return nil, utils.NewAuthorizationError("service %s belongs to another provider", req.ServiceID)
	}
	days, err := normalizeDays(req.WorkingDays)
	if err != nil {
		return nil, err
	}
	slots, err := normalizeSlots(req.Slots)
	if err != nil {
		return nil, err
	}

	cfg := &models.AvailabilityConfig{
		ProviderID:  providerID,
		ServiceID:   listing.ID,
		WorkingDays: days,
		Slots:       slots,
	}
	if err := s.schedules.Upsert(ctx, cfg); err != nil {
		return nil, utils.NewInternalError(err, "failed to save availability")
	}
	s.logger.Info("availability saved",
		zap.String("serviceId", cfg.ServiceID),
		zap.Ints("workingDays", cfg.WorkingDays),
		zap.Int("slots", len(cfg.Slots)))
	return cfg, nil
}

func (s *DefaultScheduleService) GetSchedule(ctx context.Context, serviceID string) (*models.AvailabilityConfig, error) {
	cfg, err := s.schedules.GetByService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, utils.NewNotFoundError("availability is not configured for service %s", serviceID)
		}
		return nil, utils.NewInternalError(err, "failed to load availability for service %s", serviceID)
	}
	return cfg, nil
}

// MonthlyAvailability marks each day of month (YYYY-MM) as unavailable when
// the provider does not work that weekday, full when every configured slot
// is booked, and available otherwise.
func (s *DefaultScheduleService) MonthlyAvailability(ctx context.Context, serviceID, month string) (*models.MonthlyAvailability, error) {
	if serviceID == "" || month == "" {
		return nil, utils.NewValidationError("serviceId and month are required")
	}
	first, err := time.Parse(monthLayout, month)
	if err != nil {
		return nil, utils.NewValidationError("month must be formatted as YYYY-MM")
	}
	cfg, err := s.GetSchedule(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	next := first.AddDate(0, 1, 0)

	booked, err := s.bookings.ListActiveBetween(ctx, serviceID, first, next)
	if err != nil {
		return nil, utils.NewInternalError(err, "failed to load bookings for service %s", serviceID)
	}
	taken := make(map[string]map[string]bool)
	for _, b := range booked {
		day := b.Date.UTC().Format(utils.DateLayout)
		if taken[day] == nil {
			taken[day] = map[string]bool{}
		}
		taken[day][b.Slot] = true
	}

	out := &models.MonthlyAvailability{
		ServiceID: serviceID,
		Month:     first.Format(monthLayout),
		Days:      make(map[string]models.DayAvailability, 31),
	}
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		key := d.Format(utils.DateLayout)
		switch {
		case !cfg.WorksOn(d.Weekday()):
			out.Days[key] = models.DayUnavailable
		case allTaken(cfg.Slots, taken[key]):
			out.Days[key] = models.DayFull
		default:
			out.Days[key] = models.DayAvailable
		}
	}
	return out, nil
}

func allTaken(slots []models.ScheduleSlot, taken map[string]bool) bool {
	if len(slots) == 0 {
		return true
	}
	for _, s := range slots {
		if !taken[s.Label()] {
			return false
		}
	}
	return true
}

func normalizeDays(days []int) ([]int, error) {
	if len(days) == 0 {
		return nil, utils.NewValidationError("at least one working day is required")
	}
	seen := map[int]bool{}
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < int(time.Sunday) || d > int(time.Saturday) {
			return nil, utils.NewValidationError("working day %d is out of range 0-6", d)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out, nil
}

// normalizeSlots validates HH:MM ranges, sorts them by start and rejects
// overlaps.
func normalizeSlots(slots []models.ScheduleSlot) ([]models.ScheduleSlot, error) {
	if len(slots) == 0 {
		return nil, utils.NewValidationError("at least one slot is required")
	}
	type span struct {
		slot       models.ScheduleSlot
		start, end time.Time
	}
	spans := make([]span, 0, len(slots))
	for _, sl := range slots {
		start, err := time.Parse(clockLayout, sl.Start)
		if err != nil {
			return nil, utils.NewValidationError("slot start %q must be formatted as HH:MM", sl.Start)
		}
		end, err := time.Parse(clockLayout, sl.End)
		if err != nil {
			return nil, utils.NewValidationError("slot end %q must be formatted as HH:MM", sl.End)
		}
		if !end.After(start) {
			return nil, utils.NewValidationError("slot %s must end after it starts", sl.Label())
		}
		if sl.Capacity < 1 {
			return nil, utils.NewValidationError("slot %s needs a capacity of at least 1", sl.Label())
		}
		spans = append(spans, span{slot: sl, start: start, end: end})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	out := make([]models.ScheduleSlot, 0, len(spans))
	for i, sp := range spans {
		if i > 0 && sp.start.Before(spans[i-1].end) {
			return nil, utils.NewValidationError("slots %s and %s overlap", spans[i-1].slot.Label(), sp.slot.Label())
		}
		out = append(out, sp.slot)
	}
	return out, nil
}
