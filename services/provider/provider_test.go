package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/testutil"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnectStripeReusesAccount(t *testing.T) {
	repo := testutil.NewProviderRepo(models.Provider{ID: "prov-1", Status: models.ProviderApproved})
	svc := NewDefaultProviderService(repo, testutil.NewGateway(), zap.NewNop())
	ctx := context.Background()

	first, err := svc.ConnectStripe(ctx, "prov-1")
	require.NoError(t, err)
	assert.NotEmpty(t, first.AccountID)
	assert.Contains(t, first.OnboardingURL, first.AccountID)
	assert.False(t, first.Completed)

	p, err := repo.GetByID(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, first.AccountID, p.StripeAccountID)

	second, err := svc.ConnectStripe(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, first.AccountID, second.AccountID)

	_, err = svc.ConnectStripe(ctx, "nobody")
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))
}

func TestConnectStripeWithoutOnboarder(t *testing.T) {
	repo := testutil.NewProviderRepo(models.Provider{ID: "prov-1"})
	svc := NewDefaultProviderService(repo, nil, zap.NewNop())
	_, err := svc.ConnectStripe(context.Background(), "prov-1")
	assert.Equal(t, utils.KindState, utils.KindOf(err))
}

func TestUpdateStatusApprovesProvider(t *testing.T) {
	repo := testutil.NewProviderRepo(
		models.Provider{ID: "prov-1", Status: models.ProviderPendingApproval},
		models.Provider{ID: "prov-2", Status: models.ProviderApproved},
	)
	svc := NewDefaultProviderService(repo, testutil.NewGateway(), zap.NewNop())
	ctx := context.Background()

	pending, err := svc.ListProviders(ctx, models.ProviderPendingApproval)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.False(t, pending[0].CanAcceptBookings())

	p, err := svc.UpdateStatus(ctx, "prov-1", models.ProviderApproved)
	require.NoError(t, err)
	assert.True(t, p.CanAcceptBookings())

	stored, err := repo.GetByID(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderApproved, stored.Status)

	all, err := svc.ListProviders(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	p, err = svc.UpdateStatus(ctx, "prov-2", models.ProviderSuspended)
	require.NoError(t, err)
	assert.False(t, p.CanAcceptBookings())

	_, err = svc.UpdateStatus(ctx, "prov-1", models.ProviderPendingApproval)
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))
	_, err = svc.UpdateStatus(ctx, "nobody", models.ProviderApproved)
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))
	_, err = svc.ListProviders(ctx, "archived")
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))
}

func TestHandleAccountUpdated(t *testing.T) {
	repo := testutil.NewProviderRepo(models.Provider{ID: "prov-1", StripeAccountID: "acct_7"})
	svc := NewDefaultProviderService(repo, testutil.NewGateway(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.HandleAccountUpdated(ctx, &payment.AccountStatus{ID: "acct_7", DetailsSubmitted: true}))
	p, err := repo.GetByID(ctx, "prov-1")
	require.NoError(t, err)
	assert.False(t, p.StripeOnboardingCompleted)

	ready := &payment.AccountStatus{ID: "acct_7", DetailsSubmitted: true, ChargesEnabled: true, PayoutsEnabled: true}
	require.NoError(t, svc.HandleAccountUpdated(ctx, ready))
	p, err = repo.GetByID(ctx, "prov-1")
	require.NoError(t, err)
	assert.True(t, p.StripeOnboardingCompleted)
	assert.Equal(t, "acct_7", p.PayoutDestination())

	unknown := &payment.AccountStatus{ID: "acct_x", DetailsSubmitted: true, ChargesEnabled: true, PayoutsEnabled: true}
	assert.NoError(t, svc.HandleAccountUpdated(ctx, unknown))
}

type fakeVerifier struct {
	event *payment.WebhookEvent
	err   error
}

func (v fakeVerifier) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	return v.event, v.err
}

type recordingIntents struct {
	got []string
	err error
}

func (r *recordingIntents) HandleIntentSucceeded(ctx context.Context, intent *payment.Intent) error {
	r.got = append(r.got, intent.ID)
	return r.err
}

func TestWebhookDispatch(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewProviderRepo(models.Provider{ID: "prov-1", StripeAccountID: "acct_7"})
	providers := NewDefaultProviderService(repo, nil, zap.NewNop())

	t.Run("payment captured", func(t *testing.T) {
		intents := &recordingIntents{}
		ev := &payment.WebhookEvent{ID: "evt_1", Type: "payment_intent.succeeded", Intent: &payment.Intent{ID: "pi_1"}}
		svc := NewWebhookService(fakeVerifier{event: ev}, intents, providers, zap.NewNop())
		require.NoError(t, svc.Handle(ctx, []byte("{}"), "t=1,v1=sig"))
		assert.Equal(t, []string{"pi_1"}, intents.got)
	})

	t.Run("handler failure is returned", func(t *testing.T) {
		intents := &recordingIntents{err: errors.New("boom")}
		ev := &payment.WebhookEvent{ID: "evt_2", Type: "payment_intent.succeeded", Intent: &payment.Intent{ID: "pi_2"}}
		svc := NewWebhookService(fakeVerifier{event: ev}, intents, providers, zap.NewNop())
		assert.Error(t, svc.Handle(ctx, []byte("{}"), "sig"))
	})

	t.Run("refunded payment is acknowledged", func(t *testing.T) {
		intents := &recordingIntents{err: utils.NewConflictError("payment pi_5 was refunded")}
		ev := &payment.WebhookEvent{ID: "evt_5", Type: "payment_intent.succeeded", Intent: &payment.Intent{ID: "pi_5"}}
		svc := NewWebhookService(fakeVerifier{event: ev}, intents, providers, zap.NewNop())
		require.NoError(t, svc.Handle(ctx, []byte("{}"), "sig"))
		assert.Equal(t, []string{"pi_5"}, intents.got)
	})

	t.Run("account ready", func(t *testing.T) {
		ev := &payment.WebhookEvent{ID: "evt_3", Type: "account.updated", Account: &payment.AccountStatus{
			ID: "acct_7", DetailsSubmitted: true, ChargesEnabled: true, PayoutsEnabled: true,
		}}
		svc := NewWebhookService(fakeVerifier{event: ev}, &recordingIntents{}, providers, zap.NewNop())
		require.NoError(t, svc.Handle(ctx, []byte("{}"), "sig"))
		p, err := repo.GetByID(ctx, "prov-1")
		require.NoError(t, err)
		assert.True(t, p.StripeOnboardingCompleted)
	})

	t.Run("unhandled type is ignored", func(t *testing.T) {
		intents := &recordingIntents{}
		svc := NewWebhookService(fakeVerifier{event: &payment.WebhookEvent{ID: "evt_4", Type: "charge.dispute.created"}}, intents, providers, zap.NewNop())
		require.NoError(t, svc.Handle(ctx, []byte("{}"), "sig"))
		assert.Empty(t, intents.got)
	})

	t.Run("missing signature", func(t *testing.T) {
		svc := NewWebhookService(fakeVerifier{}, &recordingIntents{}, providers, zap.NewNop())
		err := svc.Handle(ctx, []byte("{}"), "")
		assert.Equal(t, utils.KindValidation, utils.KindOf(err))
	})

	t.Run("bad signature", func(t *testing.T) {
		svc := NewWebhookService(fakeVerifier{err: errors.New("no match")}, &recordingIntents{}, providers, zap.NewNop())
		err := svc.Handle(ctx, []byte("{}"), "sig")
		assert.Equal(t, utils.KindValidation, utils.KindOf(err))
	})
}
