package testutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	catalogRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/catalog"
	providerRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/provider"
	refundRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/refund"
	reviewRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/review"
	settingsRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/settings"
	userRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/user"
	withdrawRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/withdraw"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
)

var (
	_ refundRepo.RefundRepository     = (*RefundRepo)(nil)
	_ withdrawRepo.WithdrawRepository = (*WithdrawRepo)(nil)
	_ settingsRepo.SettingsRepository = (*SettingsRepo)(nil)
	_ providerRepo.ProviderRepository = (*ProviderRepo)(nil)
	_ userRepo.UserRepository         = (*UserRepo)(nil)
	_ catalogRepo.CatalogRepository   = (*CatalogRepo)(nil)
	_ reviewRepo.ReviewRepository     = (*ReviewRepo)(nil)
)

// RefundRepo keeps refund audit records in memory.
type RefundRepo struct {
	mu   sync.Mutex
	rows []models.Refund
}

func NewRefundRepo() *RefundRepo { return &RefundRepo{} }

func cloneRefund(r models.Refund) models.Refund {
	r.Legs = append([]models.RefundLeg(nil), r.Legs...)
	return r
}

func (r *RefundRepo) Create(ctx context.Context, refund *models.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if refund.PaymentIntentID != "" {
		for _, row := range r.rows {
			if row.PaymentIntentID == refund.PaymentIntentID {
				return database.ErrDuplicate
			}
		}
	}
	r.rows = append(r.rows, cloneRefund(*refund))
	return nil
}

func (r *RefundRepo) GetByID(ctx context.Context, id string) (*models.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			c := cloneRefund(row)
			return &c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *RefundRepo) Update(ctx context.Context, refund *models.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == refund.ID {
			r.rows[i] = cloneRefund(*refund)
			return nil
		}
	}
	return database.ErrNotFound
}

func (r *RefundRepo) GetByIntent(ctx context.Context, intentID string) (*models.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if intentID != "" && row.PaymentIntentID == intentID {
			c := cloneRefund(row)
			return &c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *RefundRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Refund{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].BookingID == bookingID {
			out = append(out, cloneRefund(r.rows[i]))
		}
	}
	return out, nil
}

func (r *RefundRepo) List(ctx context.Context, limit int) ([]models.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Refund{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, cloneRefund(r.rows[i]))
	}
	return out, nil
}

// WithdrawRepo keeps withdraw requests in memory.
type WithdrawRepo struct {
	mu   sync.Mutex
	rows []*models.Withdraw
}

func NewWithdrawRepo() *WithdrawRepo { return &WithdrawRepo{} }

func cloneWithdraw(w *models.Withdraw) *models.Withdraw {
	c := *w
	c.BookingIDs = append([]string(nil), w.BookingIDs...)
	return &c
}

func (r *WithdrawRepo) Create(ctx context.Context, w *models.Withdraw) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if w.BookingID != "" && row.BookingID == w.BookingID && row.Status == models.WithdrawPending {
			return fmt.Errorf("withdraw for booking %s: %w", w.BookingID, database.ErrDuplicate)
		}
	}
	r.rows = append(r.rows, cloneWithdraw(w))
	return nil
}

func (r *WithdrawRepo) GetByID(ctx context.Context, id string) (*models.Withdraw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			return cloneWithdraw(row), nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *WithdrawRepo) ExistsActiveForBooking(ctx context.Context, bookingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		switch row.Status {
		case models.WithdrawPending, models.WithdrawProcessing, models.WithdrawApproved:
		default:
			continue
		}
		for _, id := range row.Covers() {
			if id == bookingID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *WithdrawRepo) UpdateStatus(ctx context.Context, id string, from, to models.WithdrawStatus, fields withdrawRepo.WithdrawUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID != id {
			continue
		}
		if row.Status != from {
			break
		}
		row.Status = to
		row.UpdatedAt = time.Now().UTC()
		if fields.TransferID != "" {
			row.TransferID = fields.TransferID
			row.Simulated = fields.Simulated
		}
		if fields.RejectionReason != "" {
			row.RejectionReason = fields.RejectionReason
		}
		if fields.ErrorMessage != "" {
			row.ErrorMessage = fields.ErrorMessage
		}
		return nil
	}
	return fmt.Errorf("withdraw %s: %w", id, database.ErrStale)
}

func (r *WithdrawRepo) List(ctx context.Context, f withdrawRepo.WithdrawFilter) ([]models.Withdraw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Withdraw{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		row := r.rows[i]
		if f.ProviderID != "" && row.ProviderID != f.ProviderID {
			continue
		}
		if f.Status != "" && row.Status != f.Status {
			continue
		}
		out = append(out, *cloneWithdraw(row))
	}
	return out, nil
}

// SettingsRepo is a keyed settings store.
type SettingsRepo struct {
	mu   sync.Mutex
	rows map[string]models.Settings
}

func NewSettingsRepo() *SettingsRepo {
	return &SettingsRepo{rows: map[string]models.Settings{}}
}

func (r *SettingsRepo) Get(ctx context.Context, key string) (*models.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[key]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &s, nil
}

func (r *SettingsRepo) Upsert(ctx context.Context, s *models.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.Key] = *s
	return nil
}

// ProviderRepo keeps providers in memory.
type ProviderRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Provider
}

func NewProviderRepo(providers ...models.Provider) *ProviderRepo {
	r := &ProviderRepo{rows: map[string]*models.Provider{}}
	for i := range providers {
		p := providers[i]
		r.rows[p.ID] = &p
	}
	return r
}

func cloneProvider(p *models.Provider) *models.Provider {
	c := *p
	if p.Rating.Distribution != nil {
		c.Rating.Distribution = make(map[string]int, len(p.Rating.Distribution))
		for k, v := range p.Rating.Distribution {
			c.Rating.Distribution[k] = v
		}
	}
	return &c
}

func (r *ProviderRepo) GetByID(ctx context.Context, id string) (*models.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneProvider(p), nil
}

func (r *ProviderRepo) GetByStripeAccountID(ctx context.Context, accountID string) (*models.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if accountID != "" && p.StripeAccountID == accountID {
			return cloneProvider(p), nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *ProviderRepo) Create(ctx context.Context, provider *models.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[provider.ID]; ok {
		return database.ErrDuplicate
	}
	r.rows[provider.ID] = cloneProvider(provider)
	return nil
}

func (r *ProviderRepo) update(match func(*models.Provider) bool, apply func(*models.Provider)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if match(p) {
			apply(p)
			p.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return database.ErrNotFound
}

func (r *ProviderRepo) SetStripeAccount(ctx context.Context, id, accountID string) error {
	return r.update(func(p *models.Provider) bool { return p.ID == id },
		func(p *models.Provider) { p.StripeAccountID = accountID })
}

func (r *ProviderRepo) MarkStripeOnboarded(ctx context.Context, accountID string) error {
	return r.update(func(p *models.Provider) bool { return accountID != "" && p.StripeAccountID == accountID },
		func(p *models.Provider) { p.StripeOnboardingCompleted = true })
}

func (r *ProviderRepo) UpdateStatus(ctx context.Context, id string, status models.ProviderStatus) error {
	return r.update(func(p *models.Provider) bool { return p.ID == id },
		func(p *models.Provider) { p.Status = status })
}

func (r *ProviderRepo) List(ctx context.Context, status models.ProviderStatus) ([]models.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Provider{}
	for _, p := range r.rows {
		if status == "" || p.Status == status {
			out = append(out, *cloneProvider(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ProviderRepo) UpdateFCMToken(ctx context.Context, id, token string) error {
	return r.update(func(p *models.Provider) bool { return p.ID == id },
		func(p *models.Provider) { p.FCMToken = token })
}

func (r *ProviderRepo) ApplyRating(ctx context.Context, id string, rating int) error {
	return r.update(func(p *models.Provider) bool { return p.ID == id }, func(p *models.Provider) {
		total := p.Rating.Average*float64(p.Rating.Count) + float64(rating)
		p.Rating.Count++
		p.Rating.Average = total / float64(p.Rating.Count)
		if p.Rating.Distribution == nil {
			p.Rating.Distribution = map[string]int{}
		}
		p.Rating.Distribution[strconv.Itoa(rating)]++
	})
}

// UserRepo keeps customers in memory.
type UserRepo struct {
	mu   sync.Mutex
	rows map[string]*models.User
}

func NewUserRepo(users ...models.User) *UserRepo {
	r := &UserRepo{rows: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		r.rows[u.ID] = &u
	}
	return r
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[user.ID]; ok {
		return database.ErrDuplicate
	}
	c := *user
	r.rows[user.ID] = &c
	return nil
}

func (r *UserRepo) UpdateFCMToken(ctx context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return database.ErrNotFound
	}
	u.FCMToken = token
	return nil
}

// CatalogRepo keeps service listings in memory.
type CatalogRepo struct {
	mu   sync.Mutex
	rows map[string]*models.ServiceListing
}

func NewCatalogRepo(listings ...models.ServiceListing) *CatalogRepo {
	r := &CatalogRepo{rows: map[string]*models.ServiceListing{}}
	for i := range listings {
		l := listings[i]
		r.rows[l.ID] = &l
	}
	return r
}

func cloneListing(l *models.ServiceListing) *models.ServiceListing {
	c := *l
	c.Images = append([]string(nil), l.Images...)
	return &c
}

func (r *CatalogRepo) Create(ctx context.Context, svc *models.ServiceListing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[svc.ID] = cloneListing(svc)
	return nil
}

func (r *CatalogRepo) GetByID(ctx context.Context, id string) (*models.ServiceListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneListing(l), nil
}

func (r *CatalogRepo) AddImage(ctx context.Context, id, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.rows[id]
	if !ok {
		return database.ErrNotFound
	}
	l.Images = append(l.Images, filename)
	return nil
}

func (r *CatalogRepo) RemoveImage(ctx context.Context, id, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.rows[id]
	if !ok {
		return database.ErrNotFound
	}
	kept := l.Images[:0]
	for _, img := range l.Images {
		if img != filename {
			kept = append(kept, img)
		}
	}
	l.Images = kept
	return nil
}

// ReviewRepo keeps reviews in memory with one review per booking.
type ReviewRepo struct {
	mu   sync.Mutex
	rows []models.Review
}

func NewReviewRepo() *ReviewRepo { return &ReviewRepo{} }

func (r *ReviewRepo) Create(ctx context.Context, review *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.BookingID == review.BookingID || row.ID == review.ID {
			return database.ErrDuplicate
		}
	}
	r.rows = append(r.rows, *review)
	return nil
}

func (r *ReviewRepo) GetByID(ctx context.Context, id string) (*models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			c := row
			return &c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *ReviewRepo) ListByProvider(ctx context.Context, providerID string, limit int) ([]models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Review{}
	for _, row := range r.rows {
		if row.ProviderID == providerID && row.Status == models.ReviewActive {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
