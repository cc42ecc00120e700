package routes

import (
	"net/http"
	"testing"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminApprovesProvider(t *testing.T) {
	f := newAPI(t)
	customer := tokenFor(t, "cust-1", models.RoleCustomer)
	intent := map[string]any{"serviceId": "svc-2", "date": "2030-06-10", "slot": eveSlot}

	w := f.do(t, http.MethodPost, "/api/bookings/payment-intent", customer, intent)
	assert.Equal(t, http.StatusBadRequest, w.Code, "pending providers take no bookings")

	w = f.do(t, http.MethodGet, "/api/admin/providers?status=pending", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list struct {
		Count     int               `json:"count"`
		Providers []models.Provider `json:"providers"`
	}
	decodeData(t, w, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "prov-2", list.Providers[0].ID)

	w = f.do(t, http.MethodPut, "/api/admin/providers/prov-2/status", tokenFor(t, "prov-2", models.RoleProvider), map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPut, "/api/admin/providers/prov-2/status", adminToken, map[string]any{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.KindValidation, decode(t, w).Kind)

	w = f.do(t, http.MethodPut, "/api/admin/providers/nobody/status", adminToken, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/api/admin/providers/prov-2/status", adminToken, map[string]any{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p models.Provider
	env := decodeData(t, w, &p)
	assert.Equal(t, "Provider status updated", env.Message)
	assert.Equal(t, models.ProviderApproved, p.Status)

	w = f.do(t, http.MethodGet, "/api/admin/providers/prov-2", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &p)
	assert.Equal(t, models.ProviderApproved, p.Status)

	w = f.do(t, http.MethodGet, "/api/admin/providers?status=archived", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/bookings/payment-intent", customer, intent)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestScheduleRoutes(t *testing.T) {
	f := newAPI(t)
	prov := tokenFor(t, "prov-1", models.RoleProvider)
	customer := tokenFor(t, "cust-1", models.RoleCustomer)
	schedule := map[string]any{
		"serviceId":   "svc-1",
		"workingDays": []int{1, 2, 3, 4, 5},
		"slots":       []map[string]any{{"start": "18:00", "end": "22:00", "capacity": 1}},
	}

	w := f.do(t, http.MethodPost, "/api/provider/availability", customer, schedule)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/provider/availability", tokenFor(t, "prov-2", models.RoleProvider), schedule)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, utils.KindAuthorization, decode(t, w).Kind)

	w = f.do(t, http.MethodPost, "/api/provider/availability", prov, schedule)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cfg models.AvailabilityConfig
	env := decodeData(t, w, &cfg)
	assert.Equal(t, "Availability configuration saved", env.Message)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, cfg.WorkingDays)

	w = f.do(t, http.MethodGet, "/api/provider/availability/svc-1", prov, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 2030-06-09 is a Sunday.
	w = f.do(t, http.MethodPost, "/api/bookings/payment-intent", customer,
		map[string]any{"serviceId": "svc-1", "date": "2030-06-09", "slot": eveSlot})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.book(t, customer, "2030-06-10")

	w = f.do(t, http.MethodGet, "/api/availability/month?serviceId=svc-1&month=2030-06", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/availability/month?serviceId=svc-1&month=2030-06", customer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cal models.MonthlyAvailability
	decodeData(t, w, &cal)
	assert.Len(t, cal.Days, 30)
	assert.Equal(t, models.DayFull, cal.Days["2030-06-10"])
	assert.Equal(t, models.DayAvailable, cal.Days["2030-06-11"])
	assert.Equal(t, models.DayUnavailable, cal.Days["2030-06-09"])

	w = f.do(t, http.MethodGet, "/api/availability/month?serviceId=svc-1&month=06-2030", customer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
