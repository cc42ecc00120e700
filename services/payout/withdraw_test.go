package payout

import (
	"context"
	"sync"
	"testing"
	"time"

	withdrawRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/withdraw"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/testutil"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

type withdrawFixture struct {
	bookings  *testutil.BookingRepo
	withdraws *testutil.WithdrawRepo
	gw        *testutil.Gateway
	pub       *testutil.Publisher
	svc       *DefaultWithdrawService
}

func newWithdrawFixture(simulated bool, providers ...models.Provider) *withdrawFixture {
	logger := zap.NewNop()
	f := &withdrawFixture{
		bookings:  testutil.NewBookingRepo(),
		withdraws: testutil.NewWithdrawRepo(),
		gw:        testutil.NewGateway(),
		pub:       &testutil.Publisher{},
	}
	if len(providers) == 0 {
		providers = []models.Provider{{
			ID:                        "prov-1",
			Status:                    models.ProviderApproved,
			StripeAccountID:           "acct_1",
			StripeOnboardingCompleted: true,
		}}
	}
	f.svc = NewWithdrawService(f.bookings, f.withdraws, testutil.NewProviderRepo(providers...),
		payment.NewPayouter(simulated, f.gw, logger), f.pub, logger).
		WithClock(func() time.Time { return testNow })
	return f
}

func completedBooking(id, providerID string, earning float64) models.Booking {
	created := testNow.Add(-72 * time.Hour)
	return models.Booking{
		ID:               id,
		CustomerID:       "cust-1",
		ProviderID:       providerID,
		ServiceID:        "svc-" + id,
		Date:             time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Slot:             "18:00-22:00",
		Status:           models.BookingCompleted,
		PaymentStatus:    models.PaymentFullyPaid,
		PayoutStatus:     models.PayoutAvailable,
		RefundStatus:     models.RefundNone,
		Currency:         "usd",
		TotalAmount:      1000,
		AdvanceAmount:    1000,
		PaidAmount:       1000,
		ProviderEarning:  earning,
		AdvancePaymentID: "pi_" + id,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func TestConcurrentWithdrawRequestsAtMostOnce(t *testing.T) {
	f := newWithdrawFixture(false)
	f.bookings.Put(completedBooking("b1", "prov-1", 850))

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RequestWithdraw(context.Background(), "prov-1", "b1", "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if utils.IsKind(err, utils.KindConflict) || utils.IsKind(err, utils.KindState) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, callers-1, rejected)

	all, err := f.withdraws.List(context.Background(), withdrawRepo.WithdrawFilter{ProviderID: "prov-1"})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	b, err := f.bookings.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutRequested, b.PayoutStatus)
}

func TestApproveSettlesBooking(t *testing.T) {
	f := newWithdrawFixture(false)
	ctx := context.Background()
	f.bookings.Put(completedBooking("b1", "prov-1", 850))

	w, err := f.svc.RequestWithdraw(ctx, "prov-1", "b1", "")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawPending, w.Status)
	assert.Equal(t, 850.0, w.Amount)
	assert.Equal(t, "acct_1", w.Destination)

	approved, err := f.svc.Approve(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawApproved, approved.Status)
	assert.NotEmpty(t, approved.TransferID)
	assert.False(t, approved.Simulated)

	transfers := f.gw.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, int64(85000), transfers[0].Amount)
	assert.Equal(t, "acct_1", transfers[0].Destination)
	assert.Equal(t, "payout-"+w.ID, transfers[0].IdempotencyKey)

	b, err := f.bookings.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutWithdrawn, b.PayoutStatus)
	assert.Equal(t, approved.TransferID, b.PayoutID)
	require.NotNil(t, b.WithdrawnAt)

	_, err = f.svc.Approve(ctx, w.ID)
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
	_, err = f.svc.RequestWithdraw(ctx, "prov-1", "b1", "")
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
	assert.Len(t, f.pub.OfType(models.EventWithdrawApproved), 1)
}

func TestFailedTransferReleasesBooking(t *testing.T) {
	f := newWithdrawFixture(false)
	ctx := context.Background()
	f.bookings.Put(completedBooking("b1", "prov-1", 850))
	f.gw.FailTransfer = testutil.ErrGatewayDown

	w, err := f.svc.RequestWithdraw(ctx, "prov-1", "b1", "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, w.ID)
	require.Error(t, err)
	assert.Equal(t, utils.KindGateway, utils.KindOf(err))

	stored, err := f.withdraws.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawFailed, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)

	b, err := f.bookings.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutAvailable, b.PayoutStatus)

	f.gw.FailTransfer = nil
	retry, err := f.svc.RequestWithdraw(ctx, "prov-1", "b1", "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, retry.ID)
	require.NoError(t, err)
}

func TestRejectReturnsBookingToAvailable(t *testing.T) {
	f := newWithdrawFixture(false)
	ctx := context.Background()
	f.bookings.Put(completedBooking("b1", "prov-1", 850))

	w, err := f.svc.RequestWithdraw(ctx, "prov-1", "b1", "")
	require.NoError(t, err)
	rejected, err := f.svc.Reject(ctx, w.ID, "bank details mismatch")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawRejected, rejected.Status)
	assert.Equal(t, "bank details mismatch", rejected.RejectionReason)

	b, err := f.bookings.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutAvailable, b.PayoutStatus)

	_, err = f.svc.Approve(ctx, w.ID)
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))

	_, err = f.svc.RequestWithdraw(ctx, "prov-1", "b1", "")
	assert.NoError(t, err)
	assert.Empty(t, f.gw.Transfers())
}

func TestWithdrawEligibility(t *testing.T) {
	f := newWithdrawFixture(false)
	ctx := context.Background()

	confirmed := completedBooking("b1", "prov-1", 850)
	confirmed.Status = models.BookingConfirmed
	f.bookings.Put(confirmed)
	_, err := f.svc.RequestWithdraw(ctx, "prov-1", "b1", "")
	assert.Equal(t, utils.KindState, utils.KindOf(err))

	f.bookings.Put(completedBooking("b2", "prov-1", 850))
	_, err = f.svc.RequestWithdraw(ctx, "prov-2", "b2", "")
	assert.Equal(t, utils.KindAuthorization, utils.KindOf(err))

	_, err = f.svc.RequestWithdraw(ctx, "prov-1", "missing", "")
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))
}

func TestApproveRequiresOnboardedAccount(t *testing.T) {
	f := newWithdrawFixture(false, models.Provider{ID: "prov-1", Status: models.ProviderApproved, StripeAccountID: "acct_1"})
	ctx := context.Background()
	f.bookings.Put(completedBooking("b1", "prov-1", 850))

	w, err := f.svc.RequestWithdraw(ctx, "prov-1", "b1", "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, w.ID)
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))

	b, err := f.bookings.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutRequested, b.PayoutStatus)
	assert.Empty(t, f.gw.Transfers())
}

func TestProviderWithdrawBundlesAvailableBookings(t *testing.T) {
	f := newWithdrawFixture(false)
	ctx := context.Background()
	f.bookings.Put(completedBooking("b1", "prov-1", 850))
	f.bookings.Put(completedBooking("b2", "prov-1", 425.5))
	pending := completedBooking("b3", "prov-1", 100)
	pending.PayoutStatus = models.PayoutPending
	pending.Status = models.BookingConfirmed
	f.bookings.Put(pending)
	f.bookings.Put(completedBooking("b4", "prov-2", 300))

	w, err := f.svc.RequestProviderWithdraw(ctx, "prov-1", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b1", "b2"}, w.BookingIDs)
	assert.Equal(t, 1275.5, w.Amount)

	for _, id := range []string{"b1", "b2"} {
		b, err := f.bookings.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.PayoutProcessing, b.PayoutStatus)
	}

	_, err = f.svc.Approve(ctx, w.ID)
	require.NoError(t, err)
	for _, id := range []string{"b1", "b2"} {
		b, err := f.bookings.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.PayoutWithdrawn, b.PayoutStatus)
	}

	_, err = f.svc.RequestProviderWithdraw(ctx, "prov-1", "")
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))
}

func TestRejectBundledWithdraw(t *testing.T) {
	f := newWithdrawFixture(false)
	ctx := context.Background()
	f.bookings.Put(completedBooking("b1", "prov-1", 850))
	f.bookings.Put(completedBooking("b2", "prov-1", 150))

	w, err := f.svc.RequestProviderWithdraw(ctx, "prov-1", "")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, w.ID, "")
	require.NoError(t, err)

	for _, id := range []string{"b1", "b2"} {
		b, err := f.bookings.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.PayoutAvailable, b.PayoutStatus)
	}
}

func TestAutoPayoutSimulated(t *testing.T) {
	f := newWithdrawFixture(true,
		models.Provider{ID: "prov-1", Status: models.ProviderApproved, UpiID: "prov1@upi"},
		models.Provider{ID: "prov-2", Status: models.ProviderApproved},
	)
	ctx := context.Background()
	f.bookings.Put(completedBooking("b1", "prov-1", 850))
	f.bookings.Put(completedBooking("b2", "prov-2", 300))

	results, err := f.svc.RunAutoPayout(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byBooking := map[string]models.PayoutResult{}
	for _, r := range results {
		byBooking[r.BookingID] = r
	}
	assert.True(t, byBooking["b1"].Success)
	assert.Contains(t, byBooking["b1"].TransferID, payment.SimulatedPrefix)
	assert.False(t, byBooking["b2"].Success)
	assert.NotEmpty(t, byBooking["b2"].Error)

	b1, err := f.bookings.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutWithdrawn, b1.PayoutStatus)
	b2, err := f.bookings.GetByID(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutAvailable, b2.PayoutStatus)
	assert.Empty(t, f.gw.Transfers(), "simulated payouts never reach the processor")
}

func TestEarnings(t *testing.T) {
	f := newWithdrawFixture(false)
	ctx := context.Background()
	f.bookings.Put(completedBooking("b1", "prov-1", 850))
	withdrawn := completedBooking("b2", "prov-1", 400)
	withdrawn.PayoutStatus = models.PayoutWithdrawn
	f.bookings.Put(withdrawn)
	held := completedBooking("b3", "prov-1", 120)
	held.Status = models.BookingConfirmed
	held.PayoutStatus = models.PayoutPending
	f.bookings.Put(held)
	cancelled := completedBooking("b4", "prov-1", 999)
	cancelled.SetState(models.BookingState{
		Status: models.BookingCancelled, Payment: models.PaymentRefunded,
		Payout: models.PayoutCancelled, Refund: models.RefundRefunded,
	})
	f.bookings.Put(cancelled)

	sum, err := f.svc.Earnings(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, 850.0, sum.Available)
	assert.Equal(t, 400.0, sum.Withdrawn)
	assert.Equal(t, 120.0, sum.Pending)
	assert.Equal(t, 0.0, sum.InFlight)
	assert.Equal(t, 1370.0, sum.TotalEarned)
	assert.Equal(t, 3, sum.Bookings)
}

// hookPayouter runs duringTransfer while the transfer is in flight.
type hookPayouter struct {
	payment.Payouter
	duringTransfer func()
}

func (p *hookPayouter) Transfer(ctx context.Context, req payment.TransferRequest) (string, error) {
	if p.duringTransfer != nil {
		p.duringTransfer()
	}
	return p.Payouter.Transfer(ctx, req)
}

func withHook(f *withdrawFixture, providers *testutil.ProviderRepo, during func()) {
	logger := zap.NewNop()
	f.svc = NewWithdrawService(f.bookings, f.withdraws, providers,
		&hookPayouter{Payouter: payment.NewGatewayPayouter(f.gw, logger), duringTransfer: during}, f.pub, logger).
		WithClock(func() time.Time { return testNow })
}

func TestRejectCannotInterruptApproval(t *testing.T) {
	f := newWithdrawFixture(false)
	providers := testutil.NewProviderRepo(models.Provider{ID: "prov-1", StripeAccountID: "acct_1", StripeOnboardingCompleted: true})
	ctx := context.Background()
	f.bookings.Put(completedBooking("b1", "prov-1", 850))

	var rejectErr error
	withHook(f, providers, func() {
		ws, err := f.withdraws.List(ctx, withdrawRepo.WithdrawFilter{ProviderID: "prov-1"})
		require.NoError(t, err)
		require.Len(t, ws, 1)
		assert.Equal(t, models.WithdrawProcessing, ws[0].Status)
		_, rejectErr = f.svc.Reject(ctx, ws[0].ID, "changed my mind")
	})

	w, err := f.svc.RequestWithdraw(ctx, "prov-1", "b1", "")
	require.NoError(t, err)
	approved, err := f.svc.Approve(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawApproved, approved.Status)
	assert.Equal(t, utils.KindConflict, utils.KindOf(rejectErr))

	b, err := f.bookings.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutWithdrawn, b.PayoutStatus)

	stored, err := f.withdraws.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawApproved, stored.Status)

	_, err = f.svc.RequestWithdraw(ctx, "prov-1", "b1", "")
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
	_, err = f.svc.Approve(ctx, w.ID)
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
	assert.Len(t, f.gw.Transfers(), 1)
}

func TestApprovalReportsIncompleteSettlement(t *testing.T) {
	f := newWithdrawFixture(false)
	providers := testutil.NewProviderRepo(models.Provider{ID: "prov-1", StripeAccountID: "acct_1", StripeOnboardingCompleted: true})
	ctx := context.Background()
	f.bookings.Put(completedBooking("b1", "prov-1", 850))

	withHook(f, providers, func() {
		// Something outside the withdraw flow moves the booking mid-transfer.
		f.bookings.Put(completedBooking("b1", "prov-1", 850))
	})

	w, err := f.svc.RequestWithdraw(ctx, "prov-1", "b1", "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, w.ID)
	require.Error(t, err)
	assert.Equal(t, utils.KindInternal, utils.KindOf(err))

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"b1"}, details["unsettledBookings"])

	stored, err := f.withdraws.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawApproved, stored.Status)
	assert.NotEmpty(t, stored.TransferID)
	assert.Len(t, f.gw.Transfers(), 1)
}
