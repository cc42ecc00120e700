package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
	"github.com/Rohit420bhainwal/book-my-event-api/testutil"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

func TestBookingStatusRoutes(t *testing.T) {
	f := newAPI(t)
	customer := tokenFor(t, "cust-1", models.RoleCustomer)
	prov := tokenFor(t, "prov-1", models.RoleProvider)

	b := f.book(t, customer, "2030-06-10")
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, models.PaymentFullyPaid, b.PaymentStatus)

	path := "/api/bookings/" + b.ID + "/status"
	w := f.do(t, http.MethodPut, path, prov, map[string]any{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var confirmed models.Booking
	env := decodeData(t, w, &confirmed)
	assert.Equal(t, "Booking confirmed", env.Message)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)

	w = f.do(t, http.MethodPut, path, prov, map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env = decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, utils.KindState, env.Kind)

	w = f.do(t, http.MethodPut, path, prov, map[string]any{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.KindState, decode(t, w).Kind)

	w = f.do(t, http.MethodPut, path, prov, map[string]any{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.KindValidation, decode(t, w).Kind)

	w = f.do(t, http.MethodPut, path, tokenFor(t, "prov-2", models.RoleProvider), map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPut, path, customer, map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProviderCancelRoute(t *testing.T) {
	f := newAPI(t)
	customer := tokenFor(t, "cust-1", models.RoleCustomer)
	prov := tokenFor(t, "prov-1", models.RoleProvider)

	b := f.book(t, customer, "2030-06-10")
	w := f.do(t, http.MethodPost, "/api/bookings/provider/"+b.ID+"/cancel", prov, map[string]any{"reason": "double booked"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Booking models.Booking `json:"booking"`
		Refund  models.Refund  `json:"refund"`
	}
	env := decodeData(t, w, &res)
	assert.Equal(t, "Booking cancelled and refunded", env.Message)
	assert.Equal(t, models.BookingCancelled, res.Booking.Status)
	assert.Equal(t, models.RefundRefunded, res.Booking.RefundStatus)
	assert.Equal(t, 1000.0, res.Refund.Amount)
	assert.Equal(t, int64(100000), f.gw.RefundedMinor(b.AdvancePaymentID))

	w = f.do(t, http.MethodPost, "/api/bookings/provider/"+b.ID+"/cancel", prov, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int64(100000), f.gw.RefundedMinor(b.AdvancePaymentID), "refunded once")

	done := f.book(t, tokenFor(t, "cust-2", models.RoleCustomer), "2030-06-11")
	stored, err := f.bookings.GetByID(context.Background(), done.ID)
	require.NoError(t, err)
	stored.Status = models.BookingCompleted
	stored.PayoutStatus = models.PayoutAvailable
	f.bookings.Put(*stored)
	w = f.do(t, http.MethodPost, "/api/bookings/provider/"+done.ID+"/cancel", prov, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.KindState, decode(t, w).Kind)

	w = f.do(t, http.MethodPost, "/api/bookings/provider/missing/cancel", prov, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSlotConflictResponses(t *testing.T) {
	f := newAPI(t)
	first := tokenFor(t, "cust-1", models.RoleCustomer)
	second := tokenFor(t, "cust-2", models.RoleCustomer)

	a := f.createIntent(t, first, "svc-1", "2030-06-10")
	b := f.createIntent(t, second, "svc-1", "2030-06-10")
	f.gw.Succeed(a)
	f.gw.Succeed(b)

	w := f.do(t, http.MethodPost, "/api/bookings/confirm", first, map[string]any{"paymentIntentId": a})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Paid but lost the slot: conflict carries the refund reference.
	w = f.do(t, http.MethodPost, "/api/bookings/confirm", second, map[string]any{"paymentIntentId": b})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, utils.KindConflict, env.Kind)
	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Details, &details))
	assert.NotEmpty(t, details["refundId"])
	assert.Equal(t, b, details["paymentIntentId"])
	assert.Equal(t, int64(100000), f.gw.RefundedMinor(b))

	// Retrying the refunded payment is still a conflict and never books.
	w = f.do(t, http.MethodPost, "/api/bookings/confirm", second, map[string]any{"paymentIntentId": b})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, f.bookings.Count())

	// Not yet paid: plain conflict, nothing to refund.
	w = f.do(t, http.MethodPost, "/api/bookings/payment-intent", tokenFor(t, "cust-3", models.RoleCustomer),
		map[string]any{"serviceId": "svc-1", "date": "2030-06-10", "slot": eveSlot})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	env = decode(t, w)
	assert.Equal(t, utils.KindConflict, env.Kind)
	assert.Empty(t, env.Details)
}

func TestGatewayFailuresReturnBadGateway(t *testing.T) {
	f := newAPI(t)
	customer := tokenFor(t, "cust-1", models.RoleCustomer)
	prov := tokenFor(t, "prov-1", models.RoleProvider)

	f.gw.FailCreate = testutil.ErrGatewayDown
	w := f.do(t, http.MethodPost, "/api/bookings/payment-intent", customer,
		map[string]any{"serviceId": "svc-1", "date": "2030-06-10", "slot": eveSlot})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, utils.KindGateway, env.Kind)
	assert.NotEmpty(t, env.Message)
	f.gw.FailCreate = nil

	b := f.book(t, customer, "2030-06-10")
	f.gw.FailRefund[b.AdvancePaymentID] = testutil.ErrGatewayDown

	w = f.do(t, http.MethodPost, "/api/bookings/provider/"+b.ID+"/cancel", prov, nil)
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	env = decode(t, w)
	assert.Equal(t, utils.KindGateway, env.Kind)
	var failure struct {
		RefundID string `json:"refundId"`
	}
	require.NoError(t, json.Unmarshal(env.Details, &failure))
	assert.NotEmpty(t, failure.RefundID)

	stored, err := f.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RefundFailed, stored.RefundStatus)
}

func TestAdminRefundRoute(t *testing.T) {
	f := newAPI(t)
	customer := tokenFor(t, "cust-1", models.RoleCustomer)
	prov := tokenFor(t, "prov-1", models.RoleProvider)

	b := f.book(t, customer, "2030-06-10")
	f.gw.FailRefund[b.AdvancePaymentID] = testutil.ErrGatewayDown
	w := f.do(t, http.MethodPost, "/api/bookings/provider/"+b.ID+"/cancel", prov, nil)
	require.Equal(t, http.StatusBadGateway, w.Code)

	path := "/api/admin/refund/" + b.ID
	w = f.do(t, http.MethodPost, path, prov, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, path, adminToken, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	delete(f.gw.FailRefund, b.AdvancePaymentID)
	w = f.do(t, http.MethodPost, path, adminToken, map[string]any{"reason": "manual reconciliation"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Booking models.Booking `json:"booking"`
		Refund  models.Refund  `json:"refund"`
	}
	env := decodeData(t, w, &res)
	assert.Equal(t, "Refund processed", env.Message)
	assert.Equal(t, models.RefundRefunded, res.Booking.RefundStatus)
	assert.Equal(t, models.InitiatedByAdmin, res.Refund.InitiatedBy)
	assert.Equal(t, int64(100000), f.gw.RefundedMinor(b.AdvancePaymentID))

	w = f.do(t, http.MethodPost, path, adminToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int64(100000), f.gw.RefundedMinor(b.AdvancePaymentID), "no second refund")

	w = f.do(t, http.MethodPost, "/api/admin/refund/missing", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWithdrawRoutes(t *testing.T) {
	f := newAPI(t)
	prov := tokenFor(t, "prov-1", models.RoleProvider)
	f.bookings.Put(models.Booking{
		ID:               "b-done",
		CustomerID:       "cust-1",
		ProviderID:       "prov-1",
		ServiceID:        "svc-1",
		Date:             time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Slot:             eveSlot,
		Currency:         "usd",
		TotalAmount:      1000,
		PaidAmount:       1000,
		ProviderEarning:  850,
		AdvancePaymentID: "pi_done",
		Status:           models.BookingCompleted,
		PaymentStatus:    models.PaymentFullyPaid,
		PayoutStatus:     models.PayoutAvailable,
		RefundStatus:     models.RefundNone,
	})

	w := f.do(t, http.MethodPost, "/api/bookings/b-done/withdraw", tokenFor(t, "cust-1", models.RoleCustomer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/bookings/b-done/withdraw", prov, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var wd models.Withdraw
	env := decodeData(t, w, &wd)
	assert.Equal(t, "Withdrawal requested", env.Message)
	assert.Equal(t, models.WithdrawPending, wd.Status)
	assert.Equal(t, 850.0, wd.Amount)

	w = f.do(t, http.MethodPost, "/api/bookings/b-done/withdraw", prov, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	status := "/api/withdraw/" + wd.ID + "/status"
	w = f.do(t, http.MethodPut, status, prov, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPut, status, adminToken, map[string]any{"status": "paid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.KindValidation, decode(t, w).Kind)

	w = f.do(t, http.MethodPut, status, adminToken, map[string]any{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var approved models.Withdraw
	env = decodeData(t, w, &approved)
	assert.Equal(t, "Withdrawal approved and paid out", env.Message)
	assert.Equal(t, models.WithdrawApproved, approved.Status)
	assert.NotEmpty(t, approved.TransferID)
	require.Len(t, f.gw.Transfers(), 1)
	assert.Equal(t, "acct_1", f.gw.Transfers()[0].Destination)

	stored, err := f.bookings.GetByID(context.Background(), "b-done")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutWithdrawn, stored.PayoutStatus)

	w = f.do(t, http.MethodPut, status, adminToken, map[string]any{"status": "rejected"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = f.do(t, http.MethodPut, "/api/withdraw/missing/status", adminToken, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func succeededEvent(t *testing.T, id string, intent *payment.Intent) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        "payment_intent.succeeded",
		"api_version": "2023-10-16",
		"data": map[string]any{"object": map[string]any{
			"id":       intent.ID,
			"object":   "payment_intent",
			"amount":   intent.Amount,
			"currency": intent.Currency,
			"status":   "succeeded",
			"metadata": intent.Metadata,
		}},
	})
	require.NoError(t, err)
	return payload
}

func (f *apiFixture) postWebhook(t *testing.T, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestStripeWebhookVerifiesRawBody(t *testing.T) {
	f := newAPI(t)
	intentID := f.createIntent(t, tokenFor(t, "cust-1", models.RoleCustomer), "svc-1", "2030-06-10")
	intent := f.gw.Succeed(intentID)

	payload := succeededEvent(t, "evt_1", intent)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret})

	w := f.postWebhook(t, payload, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, utils.KindValidation, env.Kind)

	tampered := bytes.Replace(payload, []byte(`"evt_1"`), []byte(`"evt_2"`), 1)
	w = f.postWebhook(t, tampered, signed.Header)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_other"})
	w = f.postWebhook(t, payload, forged.Header)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.bookings.Count())

	w = f.postWebhook(t, payload, signed.Header)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"received":true}`, w.Body.String())
	assert.Equal(t, 1, f.bookings.Count())

	b, err := f.bookings.GetByAdvancePaymentID(context.Background(), intentID)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", b.CustomerID)
	assert.Equal(t, models.PaymentFullyPaid, b.PaymentStatus)

	w = f.postWebhook(t, payload, signed.Header)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.bookings.Count(), "redelivery books once")
}
