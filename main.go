// File: coursebill/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursebill/config"
	"coursebill/cron"
	"coursebill/database"
	courseRepoPkg "coursebill/database/repository/course"
	credentialRepoPkg "coursebill/database/repository/credential"
	enrollmentRepoPkg "coursebill/database/repository/enrollment"
	paymentRepoPkg "coursebill/database/repository/payment"
	scheduleRepoPkg "coursebill/database/repository/schedule"
	userRepoPkg "coursebill/database/repository/user"
	"coursebill/handlers"
	"coursebill/routes"
	"coursebill/services/billing"
	"coursebill/services/enrollment"
	"coursebill/services/notification"
	"coursebill/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitAuthCache()
	utils.FirebaseInit()
	utils.StartHealthMonitor(database.MongoClient, []*redis.Client{utils.GetCacheClient(), utils.GetAuthCacheClient()})

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	userRepo := userRepoPkg.NewMongoUserRepo()
	courseRepo := courseRepoPkg.NewMongoCourseRepo()
	enrollmentRepo := enrollmentRepoPkg.NewMongoEnrollmentRepo()
	scheduleRepo := scheduleRepoPkg.NewMongoScheduleRepo()
	paymentRepo := paymentRepoPkg.NewMongoPaymentRepo()
	credentialRepo := credentialRepoPkg.NewMongoCredentialRepo()

	// services.
	provider := billing.NewStripeProvider(credentialRepo, utils.GetCacheClient(), logger)

	resolver := &billing.CustomerResolver{
		Enrollments: enrollmentRepo,
		Users:       userRepo,
		Logger:      logger,
	}

	orchestrator := &billing.DefaultInvoiceOrchestrator{
		Schedules:   scheduleRepo,
		Enrollments: enrollmentRepo,
		Provider:    provider,
		Resolver:    resolver,
		Logger:      logger,
	}

	var notifier notification.NotificationService
	if svc, err := notification.NewDefaultNotificationService(userRepo); err != nil {
		logger.Sugar().Warnf("main: push notifications disabled: %v", err)
	} else {
		notifier = svc
	}

	reconciler := &billing.DefaultSettlementReconciler{
		Schedules:   scheduleRepo,
		Enrollments: enrollmentRepo,
		Payments:    paymentRepo,
		Provider:    provider,
		Notifier:    notifier,
		Logger:      logger,
	}

	gate := &billing.DefaultAccessGate{
		Courses:     courseRepo,
		Enrollments: enrollmentRepo,
		Schedules:   scheduleRepo,
		Provider:    provider,
		Cache:       utils.GetCacheClient(),
		Notifier:    notifier,
		Logger:      logger,
	}

	enrollmentService := &enrollment.DefaultEnrollmentService{
		Enrollments: enrollmentRepo,
		Schedules:   scheduleRepo,
		Logger:      logger,
	}

	billingHandler := handlers.NewBillingHandler(orchestrator, reconciler, gate)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService)
	webhookHandler := handlers.NewWebhookHandler(provider, reconciler)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		UserRepo: userRepo,

		// Enrollment endpoints.
		CreateEnrollmentHandler: enrollmentHandler.CreateEnrollmentHandler,
		GetScheduleHandler:      enrollmentHandler.GetScheduleHandler,

		// Billing endpoints.
		CreateCheckoutIntentHandler: billingHandler.CreateCheckoutIntentHandler,
		CheckAccessHandler:          billingHandler.CheckAccessHandler,

		// Admin endpoints.
		RefundHandler:         billingHandler.RefundHandler,
		AdjustScheduleHandler: billingHandler.AdjustScheduleHandler,
		SweepHandler:          billingHandler.SweepHandler,

		// Webhook endpoints.
		StripeWebhookHandler: webhookHandler.StripeWebhookHandler,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the scheduled sweep worker.
	cron.InitBillingSweepWorker(orchestrator)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
