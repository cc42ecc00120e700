package routes

import (
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/handlers"
	"github.com/Rohit420bhainwal/book-my-event-api/middleware"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterProviderRoutes registers provider profile, onboarding and earnings endpoints.
func RegisterProviderRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	auth := middleware.JWTAuthMiddleware(hb.AdminToken)

	api.GET("/providers/:id", hb.Provider.GetProviderByIDHandler)
	api.GET("/providers/:id/reviews", hb.Review.ListProviderReviews)

	provider := api.Group("/provider")
	provider.Use(auth, middleware.RequireRole(models.RoleProvider))
	{
		provider.POST("/stripe/account", hb.Provider.ConnectStripe)
		provider.GET("/earnings", hb.Provider.Earnings)
		provider.POST("/availability", hb.Schedule.SaveSchedule)
		provider.GET("/availability/:serviceId", hb.Schedule.GetSchedule)
	}

	api.GET("/availability/month", auth, hb.Schedule.Monthly)

	users := api.Group("/users")
	users.Use(auth, middleware.RequireRole(models.RoleCustomer, models.RoleProvider))
	{
		users.PUT("/me/fcm-token", hb.Provider.UpdateFCMToken)
	}
}

// RegisterCatalogRoutes registers service listing endpoints.
func RegisterCatalogRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	services := api.Group("/services")
	services.GET("/:id", hb.Catalog.GetService)

	owned := services.Group("")
	owned.Use(middleware.JWTAuthMiddleware(hb.AdminToken), middleware.RequireRole(models.RoleProvider))
	{
		owned.POST("", hb.Catalog.CreateService)
		owned.POST("/:id/images", hb.Catalog.UploadImage)
		owned.DELETE("/:id/images/*filename", hb.Catalog.DeleteImage)
	}
}

// RegisterReviewRoutes registers customer review endpoints.
func RegisterReviewRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	reviews := api.Group("/reviews")
	reviews.Use(middleware.JWTAuthMiddleware(hb.AdminToken), middleware.RequireRole(models.RoleCustomer))
	{
		reviews.POST("", hb.Review.SubmitReview)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	admin := api.Group("/admin")
	admin.Use(middleware.JWTAuthAdminMiddleware(hb.AdminToken))
	{
		admin.GET("/providers", hb.Admin.ListProviders)
		admin.GET("/providers/:id", hb.Admin.GetProvider)
		admin.PUT("/providers/:id/status", hb.Admin.UpdateProviderStatus)
		admin.POST("/refund/:bookingId", hb.Admin.RefundBooking)
		admin.GET("/refunds", hb.Admin.ListRefunds)
		admin.GET("/withdraws", hb.Admin.ListWithdraws)
		admin.POST("/payouts/run", hb.Admin.RunPayouts)
		admin.GET("/settings/commission", hb.Admin.GetCommission)
		admin.PUT("/settings/commission", hb.Admin.UpdateCommission)
	}
}

// RegisterWebhookRoutes registers gateway callbacks. They authenticate by
// signature, not bearer token.
func RegisterWebhookRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	api.POST("/stripe/webhook", hb.Webhook.StripeWebhook)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health.Health)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, logger *zap.Logger) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "Stripe-Signature", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))
	r.Use(utils.ErrorHandler())
	r.Use(middleware.RequestLogger(logger))

	RegisterHealthRoute(r, hb)

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(hb.MaxRequestsPerMin))

	RegisterBookingRoutes(api, hb)
	RegisterWithdrawRoutes(api, hb)
	RegisterProviderRoutes(api, hb)
	RegisterCatalogRoutes(api, hb)
	RegisterReviewRoutes(api, hb)
	RegisterAdminRoutes(api, hb)
	RegisterWebhookRoutes(api, hb)
}
