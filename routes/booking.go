package routes

import (
	"github.com/Rohit420bhainwal/book-my-event-api/handlers"
	"github.com/Rohit420bhainwal/book-my-event-api/middleware"
	"github.com/Rohit420bhainwal/book-my-event-api/models"

	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	h := hb.Booking
	bookings := api.Group("/bookings")
	bookings.Use(middleware.JWTAuthMiddleware(hb.AdminToken))

	customer := bookings.Group("")
	customer.Use(middleware.RequireRole(models.RoleCustomer))
	{
		customer.POST("/payment-intent", h.CreatePaymentIntent)
		customer.POST("/confirm", h.ConfirmBooking)
		customer.GET("/customer", h.ListCustomerBookings)
		customer.GET("/availability", h.Availability)
		customer.POST("/:id/remaining-intent", h.CreateRemainingIntent)
		customer.POST("/:id/remaining/confirm", h.ConfirmRemaining)
	}

	provider := bookings.Group("")
	provider.Use(middleware.RequireRole(models.RoleProvider))
	{
		provider.GET("/provider", h.ListProviderBookings)
		provider.PUT("/:id/status", h.UpdateStatus)
		provider.PUT("/:id/complete", h.Complete)
		provider.POST("/provider/:id/cancel", h.ProviderCancel)
		provider.POST("/:id/withdraw", hb.Withdraw.RequestBookingWithdraw)
		provider.POST("/:id/requestWithdraw", hb.Withdraw.RequestBookingWithdraw)
	}

	bookings.GET("/:id", h.GetBooking)
}

// RegisterWithdrawRoutes registers provider cash-out and admin approval endpoints.
func RegisterWithdrawRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	withdraw := api.Group("/withdraw")

	provider := withdraw.Group("")
	provider.Use(middleware.JWTAuthMiddleware(hb.AdminToken), middleware.RequireRole(models.RoleProvider))
	{
		provider.POST("", hb.Withdraw.RequestProviderWithdraw)
		provider.GET("/mine", hb.Withdraw.ListMine)
	}

	admin := withdraw.Group("")
	admin.Use(middleware.JWTAuthAdminMiddleware(hb.AdminToken))
	{
		admin.PUT("/:id/status", hb.Withdraw.UpdateStatus)
	}
}
