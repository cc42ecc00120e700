package review

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/testutil"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reviewFixture struct {
	bookings  *testutil.BookingRepo
	providers *testutil.ProviderRepo
	pub       *testutil.Publisher
	svc       *DefaultReviewService
}

func newReviewFixture() *reviewFixture {
	f := &reviewFixture{
		bookings:  testutil.NewBookingRepo(),
		providers: testutil.NewProviderRepo(models.Provider{ID: "prov-1", BusinessName: "Night Owl Sound", Status: models.ProviderApproved}),
		pub:       &testutil.Publisher{},
	}
	catalog := testutil.NewCatalogRepo(models.ServiceListing{ID: "svc-1", ProviderID: "prov-1", Name: "Wedding DJ", Price: 1000, Active: true})
	f.svc = NewReviewService(testutil.NewReviewRepo(), f.bookings, f.providers, catalog, f.pub, zap.NewNop())
	return f
}

func reviewable(id string) models.Booking {
	return models.Booking{
		ID:            id,
		CustomerID:    "cust-1",
		ProviderID:    "prov-1",
		ServiceID:     "svc-1",
		Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Slot:          id,
		Status:        models.BookingCompleted,
		PaymentStatus: models.PaymentFullyPaid,
		PayoutStatus:  models.PayoutAvailable,
		RefundStatus:  models.RefundNone,
		ReviewStatus:  models.ReviewPending,
	}
}

func TestSubmitReview(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	f.bookings.Put(reviewable("b1"))

	rv, err := f.svc.Submit(ctx, "cust-1", SubmitRequest{BookingID: "b1", Rating: 4, Comment: "  Great set, packed dance floor.  "})
	require.NoError(t, err)
	assert.Equal(t, "Great set, packed dance floor.", rv.Comment)
	assert.Equal(t, "Night Owl Sound", rv.ProviderName)
	assert.Equal(t, "Wedding DJ", rv.ServiceName)
	assert.Equal(t, models.ReviewActive, rv.Status)

	b, err := f.bookings.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewSubmitted, b.ReviewStatus)
	assert.Equal(t, rv.ID, b.ReviewID)

	p, err := f.providers.GetByID(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Rating.Count)
	assert.Equal(t, 4.0, p.Rating.Average)
	assert.Equal(t, 1, p.Rating.Distribution["4"])

	events := f.pub.OfType(models.EventReviewSubmitted)
	require.Len(t, events, 1)
	assert.Equal(t, "prov-1", events[0].RecipientID)

	_, err = f.svc.Submit(ctx, "cust-1", SubmitRequest{BookingID: "b1", Rating: 5})
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
}

func TestRatingAverages(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	for i, rating := range []int{5, 4, 3} {
		id := string(rune('a' + i))
		f.bookings.Put(reviewable(id))
		_, err := f.svc.Submit(ctx, "cust-1", SubmitRequest{BookingID: id, Rating: rating})
		require.NoError(t, err)
	}
	p, err := f.providers.GetByID(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Rating.Count)
	assert.InDelta(t, 4.0, p.Rating.Average, 1e-9)

	list, err := f.svc.ListByProvider(ctx, "prov-1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSubmitReviewRejections(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	f.bookings.Put(reviewable("done"))

	confirmed := reviewable("open")
	confirmed.Status = models.BookingConfirmed
	confirmed.PayoutStatus = models.PayoutPending
	f.bookings.Put(confirmed)

	cases := []struct {
		name     string
		customer string
		req      SubmitRequest
		kind     utils.ErrorKind
	}{
		{"rating too low", "cust-1", SubmitRequest{BookingID: "done", Rating: 0}, utils.KindValidation},
		{"rating too high", "cust-1", SubmitRequest{BookingID: "done", Rating: 6}, utils.KindValidation},
		{"comment too long", "cust-1", SubmitRequest{BookingID: "done", Rating: 3, Comment: strings.Repeat("é", models.MaxReviewCommentLength+1)}, utils.KindValidation},
		{"unknown booking", "cust-1", SubmitRequest{BookingID: "nope", Rating: 3}, utils.KindNotFound},
		{"someone else's booking", "cust-9", SubmitRequest{BookingID: "done", Rating: 3}, utils.KindAuthorization},
		{"not completed", "cust-1", SubmitRequest{BookingID: "open", Rating: 3}, utils.KindState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, tc.customer, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.kind, utils.KindOf(err))
		})
	}
}
