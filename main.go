// Package main provides the main entry point for the LeadsHub API
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/impulso-digital/leadshub/app/handlers"
	"github.com/impulso-digital/leadshub/app/middleware"
	"github.com/impulso-digital/leadshub/app/router"
	"github.com/impulso-digital/leadshub/app/services"
	businessflow "github.com/impulso-digital/leadshub/business_flow"
	"github.com/impulso-digital/leadshub/config"
	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
	"github.com/impulso-digital/leadshub/utils"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gofiber/fiber/v3"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting LeadsHub application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Setup graceful shutdown
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging configures the log output with rotation when file output is enabled
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output != "file" && cfg.Output != "both" {
		return
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, rotating))
	} else {
		log.SetOutput(rotating)
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Lead{},
		&models.Referrer{},
		&models.ReferralHit{},
		&models.Transaction{},
		&models.Meeting{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeRedis initializes the Redis client and verifies connectivity
func initializeRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.Addr, cfg.DB)
	return rc, nil
}

// startRedisHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startRedisHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeNotificationService initializes the notification service
func initializeNotificationService(cfg config.DiscordConfig) services.NotificationService {
	if cfg.WebhookURL == "" {
		log.Println("Discord webhook not configured, notifications disabled")
		return services.NewNoopNotificationService()
	}
	return services.NewDiscordNotificationService(cfg.WebhookURL, cfg.Timeout)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeRedis(cfg.Redis)
	if err != nil {
		return nil, err
	}

	cancel := startRedisHealthMonitor(context.Background(), rc, 30*time.Second)
	stopFuncs = append(stopFuncs, cancel)

	location, err := utils.BusinessLocation(cfg.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Booking.Timezone, err)
	}

	// Initialize repositories
	leadRepo := repository.NewLeadRepository(db)
	referrerRepo := repository.NewReferrerRepository(db)
	hitRepo := repository.NewReferralHitRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)

	// Initialize services
	notificationService := initializeNotificationService(cfg.Discord)
	rateLimiter := services.NewRedisRateLimitService(rc, cfg.Redis.Prefix)

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	stripeClient := services.NewStripeClient(
		cfg.Stripe.BaseURL,
		cfg.Stripe.SecretKey,
		cfg.Stripe.WebhookSecret,
		cfg.Stripe.Timeout,
	)

	openPixClient := services.NewOpenPixClient(
		cfg.OpenPix.BaseURL,
		cfg.OpenPix.AppID,
		cfg.OpenPix.WebhookSecret,
		cfg.OpenPix.Timeout,
	)
	if !openPixClient.Enabled() {
		log.Println("OpenPix not configured, PIX checkout disabled")
	}

	// Initialize flows
	leadFlow := businessflow.NewLeadFlow(
		leadRepo,
		referrerRepo,
		hitRepo,
		rateLimiter,
		notificationService,
		db,
	)

	attribution := businessflow.NewAttributionResolver(leadRepo, referrerRepo)

	slotFlow := businessflow.NewSlotFlow(meetingRepo, transactionRepo, location, nil)

	checkoutFlow := businessflow.NewCheckoutFlow(
		leadRepo,
		transactionRepo,
		meetingRepo,
		attribution,
		stripeClient,
		openPixClient,
		location,
		db,
		nil,
	)

	webhookFlow := businessflow.NewWebhookFlow(
		leadRepo,
		transactionRepo,
		meetingRepo,
		stripeClient,
		openPixClient,
		notificationService,
		db,
	)

	referralFlow := businessflow.NewReferralFlow(
		referrerRepo,
		leadRepo,
		hitRepo,
		transactionRepo,
		cfg.Booking.ShareBaseURL,
		db,
		nil,
	)

	adminFlow := businessflow.NewAdminFlow(
		referrerRepo,
		leadRepo,
		hitRepo,
		tokenService,
		cfg.Admin.Email,
		cfg.Admin.PasswordHash,
		db,
	)

	// Initialize handlers
	leadHandler := handlers.NewLeadHandler(leadFlow)
	meetingHandler := handlers.NewMeetingHandler(slotFlow)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutFlow)
	webhookHandler := handlers.NewWebhookHandler(webhookFlow)
	referralHandler := handlers.NewReferralHandler(referralFlow)
	adminHandler := handlers.NewAdminHandler(adminFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		leadHandler,
		meetingHandler,
		checkoutHandler,
		webhookHandler,
		referralHandler,
		adminHandler,
		authMiddleware,
		cfg.Security.AllowedOrigins,
	)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
