package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	availabilityRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/availability"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
)

var _ availabilityRepo.AvailabilityRepository = (*AvailabilityRepo)(nil)

// AvailabilityRepo keeps service schedules in memory.
type AvailabilityRepo struct {
	mu   sync.Mutex
	rows map[string]models.AvailabilityConfig
}

func NewAvailabilityRepo(configs ...models.AvailabilityConfig) *AvailabilityRepo {
	r := &AvailabilityRepo{rows: map[string]models.AvailabilityConfig{}}
	for _, c := range configs {
		r.rows[c.ServiceID] = cloneSchedule(c)
	}
	return r
}

func cloneSchedule(c models.AvailabilityConfig) models.AvailabilityConfig {
	c.WorkingDays = append([]int(nil), c.WorkingDays...)
	c.Slots = append([]models.ScheduleSlot(nil), c.Slots...)
	return c
}

func (r *AvailabilityRepo) Upsert(ctx context.Context, cfg *models.AvailabilityConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.rows[cfg.ServiceID]; ok {
		cfg.CreatedAt = existing.CreatedAt
	} else {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	r.rows[cfg.ServiceID] = cloneSchedule(*cfg)
	return nil
}

func (r *AvailabilityRepo) GetByService(ctx context.Context, serviceID string) (*models.AvailabilityConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[serviceID]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := cloneSchedule(c)
	return &out, nil
}
