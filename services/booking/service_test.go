package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/services/refund"
	"github.com/Rohit420bhainwal/book-my-event-api/testutil"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	customerID = "cust-1"
	otherCust  = "cust-2"
	providerID = "prov-1"
	serviceID  = "svc-1"
	eveSlot    = "18:00-22:00"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type staticCommission struct{ policy models.CommissionPolicy }

func (s staticCommission) Commission(context.Context) (models.CommissionPolicy, error) {
	return s.policy, nil
}

// memHolds is a SlotHolds without expiry.
type memHolds struct {
	mu    sync.Mutex
	holds map[string]string
}

func (h *memHolds) Hold(_ context.Context, key, owner string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.holds[key]; ok && cur != owner {
		return false, nil
	}
	h.holds[key] = owner
	return true, nil
}

func (h *memHolds) HeldByOther(_ context.Context, key, owner string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.holds[key]
	return ok && cur != owner, nil
}

func (h *memHolds) Release(_ context.Context, key, owner string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.holds[key] == owner {
		delete(h.holds, key)
	}
	return nil
}

type harness struct {
	clock    *testClock
	bookings *testutil.BookingRepo
	refunds  *testutil.RefundRepo
	gw       *testutil.Gateway
	pub      *testutil.Publisher
	svc      *DefaultBookingService
}

func newHarness(t *testing.T, holds SlotHolds) *harness {
	t.Helper()
	logger := zap.NewNop()
	h := &harness{
		clock:    &testClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		bookings: testutil.NewBookingRepo(),
		refunds:  testutil.NewRefundRepo(),
		gw:       testutil.NewGateway(),
		pub:      &testutil.Publisher{},
	}
	providers := testutil.NewProviderRepo(
		models.Provider{ID: providerID, BusinessName: "Night Owl Sound", Status: models.ProviderApproved},
		models.Provider{ID: "prov-suspended", Status: models.ProviderSuspended},
	)
	catalog := testutil.NewCatalogRepo(
		models.ServiceListing{ID: serviceID, ProviderID: providerID, Name: "Wedding DJ", Category: "music", Price: 1000, Currency: "usd", Active: true},
		models.ServiceListing{ID: "svc-suspended", ProviderID: "prov-suspended", Name: "Catering", Price: 400, Active: true},
		models.ServiceListing{ID: "svc-inactive", ProviderID: providerID, Name: "Karaoke", Price: 300, Active: false},
	)
	coordinator := refund.NewCoordinator(h.bookings, h.refunds, h.gw,
		payment.NewGatewayPayouter(h.gw, logger), h.pub, logger).WithClock(h.clock.Now)

	h.svc = NewBookingService(Dependencies{
		Bookings:          h.bookings,
		Catalog:           catalog,
		Providers:         providers,
		Gateway:           h.gw,
		Refunds:           coordinator,
		Commission:        staticCommission{fifteenPct},
		Availability:      NewAvailabilityChecker(h.bookings, holds, logger),
		Publisher:         h.pub,
		Logger:            logger,
		DefaultCurrency:   "usd",
		AllowedCurrencies: []string{"usd", "eur"},
		Now:               h.clock.Now,
	})
	return h
}

func (h *harness) book(t *testing.T, customer string, mode models.PaymentMode, date, slot string) *models.Booking {
	t.Helper()
	ctx := context.Background()
	intent, err := h.svc.CreateIntent(ctx, customer, CreateIntentRequest{ServiceID: serviceID, Date: date, Slot: slot, PaymentMode: mode})
	require.NoError(t, err)
	h.gw.Succeed(intent.PaymentIntentID)
	b, err := h.svc.Confirm(ctx, customer, intent.PaymentIntentID)
	require.NoError(t, err)
	return b
}

func TestAdvanceBookingLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	intent, err := h.svc.CreateIntent(ctx, customerID, CreateIntentRequest{
		ServiceID: serviceID, Date: "2025-03-10", Slot: eveSlot, PaymentMode: models.PaymentModeAdvance,
	})
	require.NoError(t, err)
	assert.Equal(t, 250.0, intent.Amount)
	assert.Equal(t, 750.0, intent.RemainingAmount)
	assert.Equal(t, 150.0, intent.CommissionAmount)
	assert.Equal(t, models.BookingRegular, intent.BookingType)
	assert.Equal(t, 0, h.bookings.Count(), "no booking before payment")

	h.gw.Succeed(intent.PaymentIntentID)
	b, err := h.svc.Confirm(ctx, customerID, intent.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, models.PaymentAdvancePaid, b.PaymentStatus)
	assert.Equal(t, models.PayoutPending, b.PayoutStatus)
	assert.Equal(t, models.RefundNone, b.RefundStatus)
	assert.Equal(t, 250.0, b.PaidAmount)
	assert.Equal(t, 750.0, b.RemainingAmount)
	assert.Equal(t, 850.0, b.ProviderEarning)
	assert.Len(t, h.pub.OfType(models.EventBookingCreated), 2)

	again, err := h.svc.Confirm(ctx, customerID, intent.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, again.ID)
	assert.Equal(t, 1, h.bookings.Count())

	b, err = h.svc.Respond(ctx, providerID, b.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)

	rem, err := h.svc.CreateRemainingIntent(ctx, customerID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 750.0, rem.Amount)
	h.gw.Succeed(rem.PaymentIntentID)

	b, err = h.svc.ConfirmRemaining(ctx, customerID, b.ID, rem.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFullyPaid, b.PaymentStatus)
	assert.Equal(t, 0.0, b.RemainingAmount)
	assert.Equal(t, 1000.0, b.PaidAmount)

	_, err = h.svc.Complete(ctx, providerID, b.ID)
	require.Error(t, err)
	assert.Equal(t, utils.KindState, utils.KindOf(err))

	h.clock.Set(time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC))
	b, err = h.svc.Complete(ctx, providerID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, b.Status)
	assert.Equal(t, models.PayoutAvailable, b.PayoutStatus)

	stored, err := h.bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.State(), stored.State())
	assert.NotNil(t, stored.CompletedAt)
	assert.Len(t, h.pub.OfType(models.EventPayoutAvailable), 1)
}

func TestFullPaymentHasNoRemainder(t *testing.T) {
	h := newHarness(t, nil)
	b := h.book(t, customerID, models.PaymentModeFull, "2025-03-10", eveSlot)
	assert.Equal(t, models.PaymentFullyPaid, b.PaymentStatus)
	assert.Equal(t, 1000.0, b.PaidAmount)
	assert.Equal(t, 0.0, b.RemainingAmount)

	_, err := h.svc.CreateRemainingIntent(context.Background(), customerID, b.ID)
	require.Error(t, err)
	assert.Equal(t, utils.KindState, utils.KindOf(err))
}

func TestSlotLostBeforeConfirmIsRefunded(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	req := CreateIntentRequest{ServiceID: serviceID, Date: "2025-03-10", Slot: eveSlot, PaymentMode: models.PaymentModeFull}

	first, err := h.svc.CreateIntent(ctx, customerID, req)
	require.NoError(t, err)
	second, err := h.svc.CreateIntent(ctx, otherCust, req)
	require.NoError(t, err)
	h.gw.Succeed(first.PaymentIntentID)
	h.gw.Succeed(second.PaymentIntentID)

	_, err = h.svc.Confirm(ctx, customerID, first.PaymentIntentID)
	require.NoError(t, err)

	_, err = h.svc.Confirm(ctx, otherCust, second.PaymentIntentID)
	require.Error(t, err)
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, second.PaymentIntentID, details["paymentIntentId"])
	assert.NotEmpty(t, details["refundId"])

	refunds := h.gw.Refunds()
	require.Len(t, refunds, 1)
	assert.Equal(t, second.PaymentIntentID, refunds[0].PaymentIntentID)
	assert.Equal(t, "slot-conflict-"+second.PaymentIntentID, refunds[0].IdempotencyKey)
	assert.Equal(t, 1, h.bookings.Count())

	// A retried confirm refunds idempotently rather than twice.
	_, err = h.svc.Confirm(ctx, otherCust, second.PaymentIntentID)
	require.Error(t, err)
	assert.Len(t, h.gw.Refunds(), 1)
}

func TestRefundedPaymentIsNeverBooked(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	req := CreateIntentRequest{ServiceID: serviceID, Date: "2025-03-10", Slot: eveSlot, PaymentMode: models.PaymentModeFull}

	first, err := h.svc.CreateIntent(ctx, customerID, req)
	require.NoError(t, err)
	second, err := h.svc.CreateIntent(ctx, otherCust, req)
	require.NoError(t, err)
	h.gw.Succeed(first.PaymentIntentID)
	paid := h.gw.Succeed(second.PaymentIntentID)

	b, err := h.svc.Confirm(ctx, customerID, first.PaymentIntentID)
	require.NoError(t, err)
	_, err = h.svc.Confirm(ctx, otherCust, second.PaymentIntentID)
	require.Equal(t, utils.KindConflict, utils.KindOf(err))
	require.Len(t, h.gw.Refunds(), 1)

	// The slot frees up, but the refunded payment must not claim it.
	_, err = h.svc.ProviderCancel(ctx, providerID, b.ID, "equipment failure")
	require.NoError(t, err)
	refundsBefore := len(h.gw.Refunds())

	_, err = h.svc.Confirm(ctx, otherCust, second.PaymentIntentID)
	require.Equal(t, utils.KindConflict, utils.KindOf(err))
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	record, err := h.refunds.GetByIntent(ctx, second.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, details["refundId"])

	err = h.svc.HandleIntentSucceeded(ctx, paid)
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))

	_, err = h.bookings.GetByAdvancePaymentID(ctx, second.PaymentIntentID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.Equal(t, 1, h.bookings.Count())
	assert.Len(t, h.gw.Refunds(), refundsBefore)
}

func TestHoldBlocksOtherCustomers(t *testing.T) {
	holds := &memHolds{holds: map[string]string{}}
	h := newHarness(t, holds)
	ctx := context.Background()
	req := CreateIntentRequest{ServiceID: serviceID, Date: "2025-03-10", Slot: eveSlot}

	_, err := h.svc.CreateIntent(ctx, customerID, req)
	require.NoError(t, err)

	_, err = h.svc.CreateIntent(ctx, otherCust, req)
	require.Error(t, err)
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))

	mine, err := h.svc.CheckAvailability(ctx, serviceID, "2025-03-10", eveSlot, customerID)
	require.NoError(t, err)
	assert.True(t, mine)
	theirs, err := h.svc.CheckAvailability(ctx, serviceID, "2025-03-10", eveSlot, otherCust)
	require.NoError(t, err)
	assert.False(t, theirs)
}

func TestConfirmReleasesHold(t *testing.T) {
	holds := &memHolds{holds: map[string]string{}}
	h := newHarness(t, holds)

	h.book(t, customerID, models.PaymentModeFull, "2025-03-10", eveSlot)
	holds.mu.Lock()
	assert.Empty(t, holds.holds)
	holds.mu.Unlock()
}

func TestCancellationFreesSlot(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	b := h.book(t, customerID, models.PaymentModeFull, "2025-03-10", eveSlot)

	free, err := h.svc.CheckAvailability(ctx, serviceID, "2025-03-10", eveSlot, otherCust)
	require.NoError(t, err)
	assert.False(t, free)

	res, err := h.svc.ProviderCancel(ctx, providerID, b.ID, "double booked")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, res.Booking.Status)
	assert.Equal(t, models.RefundRefunded, res.Booking.RefundStatus)
	assert.Equal(t, "double booked", res.Booking.CancelReason)

	free, err = h.svc.CheckAvailability(ctx, serviceID, "2025-03-10", eveSlot, otherCust)
	require.NoError(t, err)
	assert.True(t, free)

	rebooked := h.book(t, otherCust, models.PaymentModeFull, "2025-03-10", eveSlot)
	assert.NotEqual(t, b.ID, rebooked.ID)
}

func TestRejectRefundsAdvance(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	b := h.book(t, customerID, models.PaymentModeAdvance, "2025-03-10", eveSlot)

	rejected, err := h.svc.Respond(ctx, providerID, b.ID, false, "fully booked")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, rejected.Status)
	assert.Equal(t, models.PaymentRefunded, rejected.PaymentStatus)
	assert.Equal(t, models.PayoutCancelled, rejected.PayoutStatus)
	assert.Equal(t, int64(25000), h.gw.RefundedMinor(b.AdvancePaymentID))
	assert.Len(t, h.pub.OfType(models.EventBookingRejected), 1)

	_, err = h.svc.Respond(ctx, providerID, b.ID, true, "")
	require.Error(t, err)
}

func TestCancelAfterFullPaymentRefundsBothLegs(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	b := h.book(t, customerID, models.PaymentModeAdvance, "2025-03-10", eveSlot)

	rem, err := h.svc.CreateRemainingIntent(ctx, customerID, b.ID)
	require.NoError(t, err)
	h.gw.Succeed(rem.PaymentIntentID)
	_, err = h.svc.ConfirmRemaining(ctx, customerID, b.ID, rem.PaymentIntentID)
	require.NoError(t, err)

	res, err := h.svc.ProviderCancel(ctx, providerID, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, res.Refund.Amount)
	assert.Len(t, res.Refund.Legs, 2)
	assert.Equal(t, int64(25000), h.gw.RefundedMinor(b.AdvancePaymentID))
	assert.Equal(t, int64(75000), h.gw.RefundedMinor(rem.PaymentIntentID))
}

func TestRespondAfterDeadline(t *testing.T) {
	h := newHarness(t, nil)
	b := h.book(t, customerID, models.PaymentModeFull, "2025-03-10", eveSlot)

	h.clock.Set(b.ProviderResponseDeadline.Add(time.Minute))
	_, err := h.svc.Respond(context.Background(), providerID, b.ID, true, "")
	require.Error(t, err)
	assert.Equal(t, utils.KindState, utils.KindOf(err))
}

func TestOnlyOwningProviderMayRespond(t *testing.T) {
	h := newHarness(t, nil)
	b := h.book(t, customerID, models.PaymentModeFull, "2025-03-10", eveSlot)

	_, err := h.svc.Respond(context.Background(), "prov-other", b.ID, true, "")
	require.Error(t, err)
	assert.Equal(t, utils.KindAuthorization, utils.KindOf(err))
}

func TestUrgentBookingDeadlines(t *testing.T) {
	h := newHarness(t, nil)
	b := h.book(t, customerID, models.PaymentModeFull, "2025-03-02", eveSlot)
	assert.Equal(t, models.BookingUrgent, b.BookingType)
	assert.Equal(t, h.clock.Now().Add(time.Hour), b.ProviderResponseDeadline)
	assert.Equal(t, h.clock.Now(), b.PayoutReleaseDate)
}

func TestConfirmRejectsUnpaidOrForeignIntent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	intent, err := h.svc.CreateIntent(ctx, customerID, CreateIntentRequest{ServiceID: serviceID, Date: "2025-03-10", Slot: eveSlot})
	require.NoError(t, err)

	_, err = h.svc.Confirm(ctx, customerID, intent.PaymentIntentID)
	require.Error(t, err)
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))

	h.gw.Succeed(intent.PaymentIntentID)
	_, err = h.svc.Confirm(ctx, otherCust, intent.PaymentIntentID)
	require.Error(t, err)
	assert.Equal(t, utils.KindAuthorization, utils.KindOf(err))
	assert.Equal(t, 0, h.bookings.Count())
}

func TestCreateIntentValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	cases := []struct {
		name string
		req  CreateIntentRequest
		kind utils.ErrorKind
	}{
		{"bad date", CreateIntentRequest{ServiceID: serviceID, Date: "10/03/2025", Slot: eveSlot}, utils.KindValidation},
		{"unknown service", CreateIntentRequest{ServiceID: "nope", Date: "2025-03-10", Slot: eveSlot}, utils.KindNotFound},
		{"inactive service", CreateIntentRequest{ServiceID: "svc-inactive", Date: "2025-03-10", Slot: eveSlot}, utils.KindValidation},
		{"suspended provider", CreateIntentRequest{ServiceID: "svc-suspended", Date: "2025-03-10", Slot: eveSlot}, utils.KindValidation},
		{"provider mismatch", CreateIntentRequest{ServiceID: serviceID, ProviderID: "prov-x", Date: "2025-03-10", Slot: eveSlot}, utils.KindValidation},
		{"unsupported currency", CreateIntentRequest{ServiceID: serviceID, Date: "2025-03-10", Slot: eveSlot, Currency: "JPY"}, utils.KindValidation},
		{"past date", CreateIntentRequest{ServiceID: serviceID, Date: "2025-02-01", Slot: eveSlot}, utils.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.CreateIntent(ctx, customerID, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.kind, utils.KindOf(err))
		})
	}
}

func TestGatewayFailureOnCreateIntent(t *testing.T) {
	holds := &memHolds{holds: map[string]string{}}
	h := newHarness(t, holds)
	h.gw.FailCreate = testutil.ErrGatewayDown

	_, err := h.svc.CreateIntent(context.Background(), customerID, CreateIntentRequest{ServiceID: serviceID, Date: "2025-03-10", Slot: eveSlot})
	require.Error(t, err)
	assert.Equal(t, utils.KindGateway, utils.KindOf(err))
	holds.mu.Lock()
	assert.Empty(t, holds.holds, "hold released after gateway failure")
	holds.mu.Unlock()
}

func TestWebhookCreatesBookingOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	intent, err := h.svc.CreateIntent(ctx, customerID, CreateIntentRequest{ServiceID: serviceID, Date: "2025-03-10", Slot: eveSlot})
	require.NoError(t, err)
	paid := h.gw.Succeed(intent.PaymentIntentID)

	require.NoError(t, h.svc.HandleIntentSucceeded(ctx, paid))
	require.NoError(t, h.svc.HandleIntentSucceeded(ctx, paid))
	assert.Equal(t, 1, h.bookings.Count())

	b, err := h.svc.Confirm(ctx, customerID, intent.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, intent.PaymentIntentID, b.AdvancePaymentID)
	assert.Equal(t, 1, h.bookings.Count())
}

func TestWebhookAppliesRemainingPayment(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	b := h.book(t, customerID, models.PaymentModeAdvance, "2025-03-10", eveSlot)

	rem, err := h.svc.CreateRemainingIntent(ctx, customerID, b.ID)
	require.NoError(t, err)
	paid := h.gw.Succeed(rem.PaymentIntentID)
	require.NoError(t, h.svc.HandleIntentSucceeded(ctx, paid))

	stored, err := h.bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFullyPaid, stored.PaymentStatus)
	assert.Equal(t, rem.PaymentIntentID, stored.RemainingPaymentID)

	again, err := h.svc.ConfirmRemaining(ctx, customerID, b.ID, rem.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFullyPaid, again.PaymentStatus)
}

func TestGetRestrictsToParticipants(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	b := h.book(t, customerID, models.PaymentModeFull, "2025-03-10", eveSlot)

	_, err := h.svc.Get(ctx, models.Principal{UserID: otherCust, Role: models.RoleCustomer}, b.ID)
	assert.Equal(t, utils.KindAuthorization, utils.KindOf(err))

	got, err := h.svc.Get(ctx, models.Principal{UserID: providerID, Role: models.RoleProvider}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = h.svc.Get(ctx, models.Principal{UserID: "ops", Role: models.RoleAdmin}, b.ID)
	assert.NoError(t, err)

	mine, err := h.svc.ListForCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
