package handlers

import (
	userRepoPkg "coursebill/database/repository/user"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	UserRepo userRepoPkg.UserRepository

	// Enrollment endpoints
	CreateEnrollmentHandler gin.HandlerFunc
	GetScheduleHandler      gin.HandlerFunc

	// Billing endpoints
	CreateCheckoutIntentHandler gin.HandlerFunc
	CheckAccessHandler          gin.HandlerFunc

	// Admin endpoints
	RefundHandler         gin.HandlerFunc
	AdjustScheduleHandler gin.HandlerFunc
	SweepHandler          gin.HandlerFunc

	// Webhook endpoints
	StripeWebhookHandler gin.HandlerFunc
}
