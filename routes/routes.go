package routes

import (
	"net/http"
	"time"

	"coursebill/handlers"
	"coursebill/middleware"
	"coursebill/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterEnrollmentRoutes registers enrollment endpoints.
func RegisterEnrollmentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/billing/enrollments")
	{
		api.Use(middleware.JWTAuthUserMiddleware(hb.UserRepo))
		api.POST("", hb.CreateEnrollmentHandler)
		api.GET("/:id/schedule", hb.GetScheduleHandler)
	}
}

// RegisterBillingRoutes registers checkout and access endpoints.
func RegisterBillingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/billing")
	{
		api.Use(middleware.JWTAuthUserMiddleware(hb.UserRepo))
		api.POST("/checkout/:scheduleID/intent", hb.CreateCheckoutIntentHandler)
		api.GET("/access/:courseID", hb.CheckAccessHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin billing operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/billing")
	{
		adminGroup.Use(middleware.AdminAuthMiddleware())
		adminGroup.POST("/schedules/:scheduleID/refund", hb.RefundHandler)
		adminGroup.POST("/schedules/:scheduleID/adjust", hb.AdjustScheduleHandler)
		adminGroup.POST("/sweep", hb.SweepHandler)
	}
}

// RegisterWebhookRoutes registers processor webhook endpoints. These carry
// their own signature verification instead of JWT auth.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	webhooks := r.Group("/api/webhooks")
	{
		webhooks.POST("/stripe/:tenantID", hb.StripeWebhookHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, utils.GetHealthStatus())
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterEnrollmentRoutes(r, hb)
	RegisterBillingRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
	RegisterWebhookRoutes(r, hb)
	RegisterHealthRoute(r)
}
