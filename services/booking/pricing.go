package booking

import (
	"math"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"
)

const (
	// AdvanceRate is the share of the price captured upfront in ADVANCE mode.
	AdvanceRate = 0.25
	// UrgentWindowDays: bookings this many whole days out or fewer are urgent.
	UrgentWindowDays = 2

	urgentResponseWindow  = time.Hour
	regularResponseWindow = 24 * time.Hour
	releaseLeadTime       = 24 * time.Hour
	paymentLeadTime       = 24 * time.Hour
)

// Quote is the full set of amounts and deadlines derived for one booking.
type Quote struct {
	TotalAmount              float64
	CommissionType           models.CommissionType
	CommissionValue          float64
	CommissionAmount         float64
	ProviderEarning          float64
	PaymentMode              models.PaymentMode
	AdvanceAmount            float64
	RemainingAmount          float64
	BookingType              models.BookingType
	PayoutReleaseDate        time.Time
	ProviderResponseDeadline time.Time
	PaymentDeadline          *time.Time
}

// DueNow is the amount the customer pays at booking time.
func (q Quote) DueNow() float64 {
	return q.AdvanceAmount
}

// ValidatePolicy checks a commission policy independent of any price.
func ValidatePolicy(policy models.CommissionPolicy) error {
	switch policy.Type {
	case models.CommissionPercentage:
		if policy.Value < 0 || policy.Value > 100 {
			return utils.NewValidationError("percentage commission must be between 0 and 100")
		}
	case models.CommissionFixed:
		if policy.Value < 0 {
			return utils.NewValidationError("fixed commission cannot be negative")
		}
	default:
		return utils.NewValidationError("unknown commission type %q", policy.Type)
	}
	return nil
}

// Commission splits price into the platform cut and the provider earning.
func Commission(price float64, policy models.CommissionPolicy) (commission, earning float64, err error) {
	if err := ValidatePolicy(policy); err != nil {
		return 0, 0, err
	}
	switch policy.Type {
	case models.CommissionPercentage:
		commission = utils.RoundMoney(price * policy.Value / 100)
	case models.CommissionFixed:
		if policy.Value > price {
			return 0, 0, utils.NewValidationError("fixed commission %.2f exceeds price %.2f", policy.Value, price)
		}
		commission = utils.RoundMoney(policy.Value)
	}
	return commission, utils.RoundMoney(price - commission), nil
}

// WholeDaysUntil counts calendar days from now's day to date's day in UTC.
func WholeDaysUntil(date, now time.Time) int {
	return int(dayStart(date).Sub(dayStart(now)).Hours() / 24)
}

// ClassifyBooking returns urgent when the service day is at most
// UrgentWindowDays away.
func ClassifyBooking(date, now time.Time) models.BookingType {
	if WholeDaysUntil(date, now) <= UrgentWindowDays {
		return models.BookingUrgent
	}
	return models.BookingRegular
}

// Calculate prices a booking. It performs no I/O and returns the same quote
// for the same inputs.
func Calculate(price float64, policy models.CommissionPolicy, mode models.PaymentMode, date, now time.Time) (Quote, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return Quote{}, utils.NewValidationError("price must be greater than zero")
	}
	if mode != models.PaymentModeAdvance && mode != models.PaymentModeFull {
		return Quote{}, utils.NewValidationError("payment mode must be ADVANCE or FULL")
	}
	if date.IsZero() {
		return Quote{}, utils.NewValidationError("booking date is required")
	}
	if WholeDaysUntil(date, now) < 0 {
		return Quote{}, utils.NewValidationError("booking date %s is in the past", date.UTC().Format(utils.DateLayout))
	}

	commission, earning, err := Commission(price, policy)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{
		TotalAmount:      utils.RoundMoney(price),
		CommissionType:   policy.Type,
		CommissionValue:  policy.Value,
		CommissionAmount: commission,
		ProviderEarning:  earning,
		PaymentMode:      mode,
		BookingType:      ClassifyBooking(date, now),
	}

	day := dayStart(date)
	if mode == models.PaymentModeAdvance {
		q.AdvanceAmount = math.Round(price * AdvanceRate)
		if q.AdvanceAmount <= 0 {
			return Quote{}, utils.NewValidationError("price %.2f is too low for an advance payment; pay in full", price)
		}
		q.RemainingAmount = utils.RoundMoney(price - q.AdvanceAmount)
		deadline := day.Add(-paymentLeadTime)
		if !deadline.After(now) {
			return Quote{}, utils.NewValidationError("advance payment is closed for this date; pay in full")
		}
		q.PaymentDeadline = &deadline
	} else {
		q.AdvanceAmount = q.TotalAmount
		q.RemainingAmount = 0
	}

	if q.BookingType == models.BookingUrgent {
		q.PayoutReleaseDate = now
		q.ProviderResponseDeadline = now.Add(urgentResponseWindow)
	} else {
		q.PayoutReleaseDate = day.Add(-releaseLeadTime)
		q.ProviderResponseDeadline = now.Add(regularResponseWindow)
	}
	return q, nil
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
