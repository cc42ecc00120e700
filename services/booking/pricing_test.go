package booking

import (
	"testing"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pricingNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	fifteenPct = models.CommissionPolicy{Type: models.CommissionPercentage, Value: 15}
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateFullPayment(t *testing.T) {
	q, err := Calculate(1000, fifteenPct, models.PaymentModeFull, day(2025, 3, 10), pricingNow)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, q.TotalAmount)
	assert.Equal(t, 150.0, q.CommissionAmount)
	assert.Equal(t, 850.0, q.ProviderEarning)
	assert.Equal(t, 1000.0, q.AdvanceAmount)
	assert.Equal(t, 0.0, q.RemainingAmount)
	assert.Equal(t, 1000.0, q.DueNow())
	assert.Nil(t, q.PaymentDeadline)
	assert.Equal(t, models.BookingRegular, q.BookingType)
	assert.Equal(t, day(2025, 3, 9), q.PayoutReleaseDate)
	assert.Equal(t, pricingNow.Add(24*time.Hour), q.ProviderResponseDeadline)
}

func TestCalculateAdvancePayment(t *testing.T) {
	q, err := Calculate(1000, fifteenPct, models.PaymentModeAdvance, day(2025, 3, 10), pricingNow)
	require.NoError(t, err)

	assert.Equal(t, 250.0, q.AdvanceAmount)
	assert.Equal(t, 750.0, q.RemainingAmount)
	assert.Equal(t, 250.0, q.DueNow())
	require.NotNil(t, q.PaymentDeadline)
	assert.Equal(t, day(2025, 3, 9), *q.PaymentDeadline)
	// Commission is always computed on the full price.
	assert.Equal(t, 150.0, q.CommissionAmount)
	assert.Equal(t, 850.0, q.ProviderEarning)
}

func TestCalculateAdvanceRoundsToWholeUnits(t *testing.T) {
	q, err := Calculate(999, fifteenPct, models.PaymentModeAdvance, day(2025, 3, 10), pricingNow)
	require.NoError(t, err)
	assert.Equal(t, 250.0, q.AdvanceAmount)
	assert.Equal(t, 749.0, q.RemainingAmount)
	assert.Equal(t, 149.85, q.CommissionAmount)
	assert.Equal(t, 849.15, q.ProviderEarning)
}

func TestAdvanceRejectedWhenItRoundsToZero(t *testing.T) {
	_, err := Calculate(1.5, fifteenPct, models.PaymentModeAdvance, day(2025, 3, 10), pricingNow)
	require.Error(t, err)
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))

	q, err := Calculate(1.5, fifteenPct, models.PaymentModeFull, day(2025, 3, 10), pricingNow)
	require.NoError(t, err)
	assert.Equal(t, 1.5, q.DueNow())

	q, err = Calculate(2, fifteenPct, models.PaymentModeAdvance, day(2025, 3, 10), pricingNow)
	require.NoError(t, err)
	assert.Equal(t, 1.0, q.AdvanceAmount)
	assert.Equal(t, 1.0, q.RemainingAmount)
}

func TestUrgentBoundary(t *testing.T) {
	urgent, err := Calculate(500, fifteenPct, models.PaymentModeFull, day(2025, 3, 3), pricingNow)
	require.NoError(t, err)
	assert.Equal(t, models.BookingUrgent, urgent.BookingType)
	assert.Equal(t, pricingNow, urgent.PayoutReleaseDate)
	assert.Equal(t, pricingNow.Add(time.Hour), urgent.ProviderResponseDeadline)

	regular, err := Calculate(500, fifteenPct, models.PaymentModeFull, day(2025, 3, 4), pricingNow)
	require.NoError(t, err)
	assert.Equal(t, models.BookingRegular, regular.BookingType)
	assert.Equal(t, day(2025, 3, 3), regular.PayoutReleaseDate)
	assert.Equal(t, pricingNow.Add(24*time.Hour), regular.ProviderResponseDeadline)
}

func TestSameDayBookingIsUrgent(t *testing.T) {
	q, err := Calculate(500, fifteenPct, models.PaymentModeFull, day(2025, 3, 1), pricingNow)
	require.NoError(t, err)
	assert.Equal(t, models.BookingUrgent, q.BookingType)
	assert.Equal(t, 0, WholeDaysUntil(day(2025, 3, 1), pricingNow))
}

func TestAdvanceClosedInsideLeadTime(t *testing.T) {
	for _, d := range []time.Time{day(2025, 3, 1), day(2025, 3, 2)} {
		_, err := Calculate(1000, fifteenPct, models.PaymentModeAdvance, d, pricingNow)
		require.Error(t, err, d.Format(utils.DateLayout))
		assert.Equal(t, utils.KindValidation, utils.KindOf(err))
	}

	q, err := Calculate(1000, fifteenPct, models.PaymentModeAdvance, day(2025, 3, 3), pricingNow)
	require.NoError(t, err)
	assert.Equal(t, models.BookingUrgent, q.BookingType)
	assert.Equal(t, day(2025, 3, 2), *q.PaymentDeadline)
}

func TestCalculateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		price  float64
		policy models.CommissionPolicy
		mode   models.PaymentMode
		date   time.Time
	}{
		{"zero price", 0, fifteenPct, models.PaymentModeFull, day(2025, 3, 10)},
		{"negative price", -10, fifteenPct, models.PaymentModeFull, day(2025, 3, 10)},
		{"unknown mode", 1000, fifteenPct, "LATER", day(2025, 3, 10)},
		{"missing date", 1000, fifteenPct, models.PaymentModeFull, time.Time{}},
		{"past date", 1000, fifteenPct, models.PaymentModeFull, day(2025, 2, 28)},
		{"fixed commission above price", 1000, models.CommissionPolicy{Type: models.CommissionFixed, Value: 1200}, models.PaymentModeFull, day(2025, 3, 10)},
		{"percentage above 100", 1000, models.CommissionPolicy{Type: models.CommissionPercentage, Value: 120}, models.PaymentModeFull, day(2025, 3, 10)},
		{"unknown commission type", 1000, models.CommissionPolicy{Type: "tiered", Value: 5}, models.PaymentModeFull, day(2025, 3, 10)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.price, tc.policy, tc.mode, tc.date, pricingNow)
			require.Error(t, err)
			assert.Equal(t, utils.KindValidation, utils.KindOf(err))
		})
	}
}

func TestFixedCommission(t *testing.T) {
	commission, earning, err := Commission(1000, models.CommissionPolicy{Type: models.CommissionFixed, Value: 120})
	require.NoError(t, err)
	assert.Equal(t, 120.0, commission)
	assert.Equal(t, 880.0, earning)

	commission, earning, err = Commission(1000, models.CommissionPolicy{Type: models.CommissionFixed, Value: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, commission)
	assert.Equal(t, 0.0, earning)
}

func TestCalculateIsDeterministic(t *testing.T) {
	a, errA := Calculate(1234.56, fifteenPct, models.PaymentModeAdvance, day(2025, 4, 1), pricingNow)
	b, errB := Calculate(1234.56, fifteenPct, models.PaymentModeAdvance, day(2025, 4, 1), pricingNow)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}
