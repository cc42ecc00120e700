package booking

import (
	"strconv"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"
)

// intentMetadata is what a payment intent carries so a booking can be built
// from the intent alone, by the confirm call or by the webhook.
type intentMetadata struct {
	Kind            models.IntentKind
	BookingID       string
	CustomerID      string
	ProviderID      string
	ServiceID       string
	Date            time.Time
	Slot            string
	Mode            models.PaymentMode
	Price           float64
	Currency        string
	CommissionType  models.CommissionType
	CommissionValue float64
}

func (m intentMetadata) toMap() map[string]string {
	out := map[string]string{
		"kind":       string(m.Kind),
		"customerId": m.CustomerID,
	}
	switch m.Kind {
	case models.IntentRemaining:
		out["bookingId"] = m.BookingID
	case models.IntentAdvance:
		out["providerId"] = m.ProviderID
		out["serviceId"] = m.ServiceID
		out["date"] = m.Date.UTC().Format(utils.DateLayout)
		out["slot"] = m.Slot
		out["paymentMode"] = string(m.Mode)
		out["price"] = strconv.FormatFloat(m.Price, 'f', 2, 64)
		out["currency"] = m.Currency
		out["commissionType"] = string(m.CommissionType)
		out["commissionValue"] = strconv.FormatFloat(m.CommissionValue, 'f', -1, 64)
	}
	return out
}

func parseIntentMetadata(md map[string]string) (intentMetadata, error) {
	m := intentMetadata{
		Kind:       models.IntentKind(md["kind"]),
		CustomerID: md["customerId"],
	}
	switch m.Kind {
	case models.IntentRemaining:
		m.BookingID = md["bookingId"]
		if m.BookingID == "" {
			return m, utils.NewValidationError("payment is not linked to a booking")
		}
		return m, nil
	case models.IntentAdvance:
	default:
		return m, utils.NewValidationError("payment intent kind %q is not a booking payment", m.Kind)
	}

	m.ProviderID = md["providerId"]
	m.ServiceID = md["serviceId"]
	m.Slot = md["slot"]
	m.Mode = models.PaymentMode(md["paymentMode"])
	m.Currency = md["currency"]
	m.CommissionType = models.CommissionType(md["commissionType"])

	var err error
	if m.Date, err = time.Parse(utils.DateLayout, md["date"]); err != nil {
		return m, utils.NewValidationError("payment intent has an invalid booking date")
	}
	if m.Price, err = strconv.ParseFloat(md["price"], 64); err != nil {
		return m, utils.NewValidationError("payment intent has an invalid price")
	}
	if m.CommissionValue, err = strconv.ParseFloat(md["commissionValue"], 64); err != nil {
		return m, utils.NewValidationError("payment intent has an invalid commission")
	}
	if m.CustomerID == "" || m.ServiceID == "" || m.ProviderID == "" || m.Slot == "" {
		return m, utils.NewValidationError("payment intent is missing booking details")
	}
	return m, nil
}

func (m intentMetadata) policy() models.CommissionPolicy {
	return models.CommissionPolicy{Type: m.CommissionType, Value: m.CommissionValue}
}
