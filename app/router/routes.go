// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/impulso-digital/leadshub/app/dto"
	"github.com/impulso-digital/leadshub/app/handlers"
	"github.com/impulso-digital/leadshub/app/middleware"
	"github.com/impulso-digital/leadshub/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app             *fiber.App
	leadHandler     handlers.LeadHandlerInterface
	meetingHandler  handlers.MeetingHandlerInterface
	checkoutHandler handlers.CheckoutHandlerInterface
	webhookHandler  handlers.WebhookHandlerInterface
	referralHandler handlers.ReferralHandlerInterface
	adminHandler    handlers.AdminHandlerInterface
	authMiddleware  *middleware.AuthMiddleware
	allowedOrigins  []string
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	leadHandler handlers.LeadHandlerInterface,
	meetingHandler handlers.MeetingHandlerInterface,
	checkoutHandler handlers.CheckoutHandlerInterface,
	webhookHandler handlers.WebhookHandlerInterface,
	referralHandler handlers.ReferralHandlerInterface,
	adminHandler handlers.AdminHandlerInterface,
	authMiddleware *middleware.AuthMiddleware,
	allowedOrigins []string,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "LeadsHub API",
		ServerHeader: "LeadsHub",
		ErrorHandler: errorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:             app,
		leadHandler:     leadHandler,
		meetingHandler:  meetingHandler,
		checkoutHandler: checkoutHandler,
		webhookHandler:  webhookHandler,
		referralHandler: referralHandler,
		adminHandler:    adminHandler,
		authMiddleware:  authMiddleware,
		allowedOrigins:  allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	// Prometheus metrics endpoint, outside the API group and rate limits
	r.app.Get("/metrics", metricsHandler())

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// General per-IP rate limit across the public API
	api.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			// Provider webhooks bring their own authentication and retries
			return c.Path() == "/api/v1/health" ||
				strings.HasPrefix(c.Path(), "/api/v1/checkout/webhook")
		},
	}))

	// Lead intake
	api.Post("/leads", r.leadHandler.Create)

	// Slot availability
	api.Get("/meetings/available-slots", r.meetingHandler.AvailableSlots)

	// Checkout and payment webhooks
	checkout := api.Group("/checkout")
	checkout.Post("/create-payment-intent", r.checkoutHandler.CreatePaymentIntent)
	checkout.Post("/create-pix", r.checkoutHandler.CreatePix)
	checkout.Post("/webhook", r.webhookHandler.Stripe)
	checkout.Post("/webhook-pix", r.webhookHandler.Pix)

	// Referral program
	referral := api.Group("/referral")
	referral.Post("/create", r.referralHandler.Create)
	referral.Post("/track", r.referralHandler.Track)
	referral.Get("/stats", r.referralHandler.Stats)
	referral.Put("/update-pix", r.referralHandler.UpdatePixKey)

	// Admin surface
	admin := api.Group("/admin")

	// Stricter limit on the login endpoint to slow brute force attempts
	adminAuth := admin.Group("/auth")
	adminAuth.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	}))
	adminAuth.Post("/login", r.adminHandler.Login)

	protected := admin.Group("", r.authMiddleware.AdminAuthenticate())
	protected.Post("/influencers", r.adminHandler.CreateInfluencer)
	protected.Get("/influencers", r.adminHandler.ListInfluencers)
	protected.Get("/influencers/export", r.adminHandler.ExportInfluencers)
	protected.Post("/influencers/:uuid/toggle", r.adminHandler.ToggleInfluencer)
	protected.Put("/influencers/:uuid/pix", r.adminHandler.UpdateInfluencerPixKey)
	protected.Get("/leads", r.adminHandler.ListLeads)
	protected.Put("/leads/:uuid/stage", r.adminHandler.UpdateLeadStage)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000, // 1 year
		HSTSExcludeSubdomains: false,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		XDNSPrefetchControl:   "off",
		XDownloadOptions:      "noopen",
		XPermittedCrossDomain: "none",
	}))

	// CORS middleware, origins come from configuration
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.allowedOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"X-Referral-Token",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"Retry-After",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			contentType := c.Get("Content-Type")
			return strings.Contains(contentType, "image/") ||
				strings.Contains(contentType, "video/")
		},
	}))

	// JSON request logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health" || c.Path() == "/metrics"
		},
	}))

	// HTTP metrics collection
	r.app.Use(middleware.Metrics())

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "leadshub-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// metricsHandler adapts the Prometheus handler to Fiber's fasthttp core
func metricsHandler() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		h(c.RequestCtx())
		return nil
	}
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
