// Package testutil holds in-memory stand-ins for the Mongo repositories and
// the payment processor, for use in package tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	bookingRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/booking"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
)

// BookingRepo mirrors the Mongo booking repository, including the partial
// unique index on slotKey and the conditional Transition update.
type BookingRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Booking
}

var _ bookingRepo.BookingRepository = (*BookingRepo)(nil)

func NewBookingRepo() *BookingRepo {
	return &BookingRepo{rows: map[string]*models.Booking{}}
}

func cloneBooking(b *models.Booking) *models.Booking {
	c := *b
	if b.PaymentDeadline != nil {
		t := *b.PaymentDeadline
		c.PaymentDeadline = &t
	}
	if b.WithdrawnAt != nil {
		t := *b.WithdrawnAt
		c.WithdrawnAt = &t
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Put stores b as is, bypassing the uniqueness checks.
func (r *BookingRepo) Put(b models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.SlotKey == "" && b.Status != models.BookingCancelled {
		b.SlotKey = models.SlotKeyFor(b.ServiceID, b.Date, b.Slot)
	}
	r.rows[b.ID] = cloneBooking(&b)
}

// Count returns the number of stored bookings.
func (r *BookingRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *BookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.SlotKey == "" && booking.Status != models.BookingCancelled {
		booking.SlotKey = models.SlotKeyFor(booking.ServiceID, booking.Date, booking.Slot)
	}
	for _, existing := range r.rows {
		if existing.ID == booking.ID {
			return fmt.Errorf("booking %s: %w", booking.ID, database.ErrDuplicate)
		}
		if booking.AdvancePaymentID != "" && existing.AdvancePaymentID == booking.AdvancePaymentID {
			return fmt.Errorf("booking %s: %w", booking.ID, database.ErrDuplicate)
		}
		if booking.SlotKey != "" && existing.SlotKey == booking.SlotKey {
			return fmt.Errorf("booking %s: %w", booking.ID, database.ErrDuplicate)
		}
	}
	r.rows[booking.ID] = cloneBooking(booking)
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepo) GetByAdvancePaymentID(ctx context.Context, intentID string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.rows {
		if intentID != "" && b.AdvancePaymentID == intentID {
			return cloneBooking(b), nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *BookingRepo) SlotTaken(ctx context.Context, serviceID string, date time.Time, slot string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := dayOf(date)
	for _, b := range r.rows {
		if b.ServiceID == serviceID && dayOf(b.Date).Equal(day) && b.Slot == slot && b.Status != models.BookingCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r *BookingRepo) ListActiveBetween(ctx context.Context, serviceID string, from, to time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lo, hi := dayOf(from), dayOf(to)
	out := []models.Booking{}
	for _, b := range r.rows {
		day := dayOf(b.Date)
		if b.ServiceID != serviceID || b.Status == models.BookingCancelled || day.Before(lo) || !day.Before(hi) {
			continue
		}
		out = append(out, *cloneBooking(b))
	}
	return out, nil
}

func (r *BookingRepo) Transition(ctx context.Context, id string, from, to models.BookingState, changes models.BookingChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok || b.State() != from {
		return fmt.Errorf("booking %s: %w", id, database.ErrStale)
	}
	b.SetState(to)
	changes.Apply(b)
	b.UpdatedAt = time.Now().UTC()
	if to.Status == models.BookingCancelled {
		b.SlotKey = ""
	}
	return nil
}

func (r *BookingRepo) List(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Booking{}
	for _, b := range r.rows {
		if f.CustomerID != "" && b.CustomerID != f.CustomerID {
			continue
		}
		if f.ProviderID != "" && b.ProviderID != f.ProviderID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.PayoutStatus != "" && b.PayoutStatus != f.PayoutStatus {
			continue
		}
		out = append(out, *cloneBooking(b))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *BookingRepo) ReleaseDuePayouts(ctx context.Context, now time.Time, moves []models.StateMove) (int64, error) {
	return r.applyMoves(now, moves, func(b *models.Booking) bool {
		return !b.PayoutReleaseDate.After(now)
	}), nil
}

func (r *BookingRepo) MarkOverdue(ctx context.Context, now time.Time, moves []models.StateMove) (int64, error) {
	return r.applyMoves(now, moves, func(b *models.Booking) bool {
		return b.PaymentDeadline != nil && b.PaymentDeadline.Before(now)
	}), nil
}

func (r *BookingRepo) applyMoves(now time.Time, moves []models.StateMove, due func(*models.Booking) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range moves {
		for _, b := range r.rows {
			if b.State() != m.From || !due(b) {
				continue
			}
			if m.Type != "" && b.BookingType != m.Type {
				continue
			}
			b.SetState(m.To)
			b.UpdatedAt = now
			n++
		}
	}
	return n
}

func (r *BookingRepo) FindAutoCancelCandidates(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.rows {
		if b.Status != models.BookingPending || b.RefundStatus != models.RefundNone {
			continue
		}
		if !b.ProviderResponseDeadline.Before(now) {
			continue
		}
		switch b.PaymentStatus {
		case models.PaymentAdvancePaid, models.PaymentFullyPaid, models.PaymentOverdue:
			out = append(out, *cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProviderResponseDeadline.Before(out[j].ProviderResponseDeadline)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *BookingRepo) ResetProcessingPayouts(ctx context.Context, providerID string, bookingIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range bookingIDs {
		want[id] = true
	}
	var n int64
	for _, b := range r.rows {
		if b.ProviderID != providerID || b.PayoutStatus != models.PayoutProcessing || b.RefundStatus != models.RefundNone {
			continue
		}
		if len(want) > 0 && !want[b.ID] {
			continue
		}
		b.PayoutStatus = models.PayoutAvailable
		b.UpdatedAt = time.Now().UTC()
		n++
	}
	return n, nil
}

func (r *BookingRepo) EarningsByPayoutStatus(ctx context.Context, providerID string) (map[models.PayoutStatus]float64, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := map[models.PayoutStatus]float64{}
	count := 0
	for _, b := range r.rows {
		if b.ProviderID != providerID || b.RefundStatus != models.RefundNone || b.Status == models.BookingCancelled {
			continue
		}
		totals[b.PayoutStatus] += b.ProviderEarning
		count++
	}
	return totals, count, nil
}
