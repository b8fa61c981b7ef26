// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
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

	"github.com/kavehjm/Simorgh/app/dto"
	"github.com/kavehjm/Simorgh/app/handlers"
	"github.com/kavehjm/Simorgh/app/middleware"
	"github.com/kavehjm/Simorgh/utils"
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
	tenantHandler   handlers.TenantHandlerInterface
	catalogHandler  handlers.CatalogHandlerInterface
	ledgerHandler   handlers.LedgerHandlerInterface
	snapshotHandler handlers.SnapshotHandlerInterface
	decisionHandler handlers.DecisionHandlerInterface
	authMiddleware  *middleware.TenantAuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	tenantHandler handlers.TenantHandlerInterface,
	catalogHandler handlers.CatalogHandlerInterface,
	ledgerHandler handlers.LedgerHandlerInterface,
	snapshotHandler handlers.SnapshotHandlerInterface,
	decisionHandler handlers.DecisionHandlerInterface,
	authMiddleware *middleware.TenantAuthMiddleware,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Simorgh API",
		ServerHeader: "Simorgh",
		ErrorHandler: errorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:             app,
		tenantHandler:   tenantHandler,
		catalogHandler:  catalogHandler,
		ledgerHandler:   ledgerHandler,
		snapshotHandler: snapshotHandler,
		decisionHandler: decisionHandler,
		authMiddleware:  authMiddleware,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// Prometheus scrape endpoint, outside the versioned API
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	r.app.Get("/metrics", func(c fiber.Ctx) error {
		metricsHandler(c.RequestCtx())
		return nil
	})

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Apply general rate limiting to all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        2000,
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
			return c.Path() == "/api/v1/health"
		},
	}))

	// Tenant registry routes (control plane, no tenant token required)
	tenants := api.Group("/tenants")

	// Stricter rate limiting on registration and token issuance
	tenants.Use(limiter.New(limiter.Config{
		Max:        20,
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

	tenants.Post("/", r.tenantHandler.CreateTenant)
	tenants.Post("/token", r.tenantHandler.IssueToken)
	tenants.Patch("/:id/status", r.tenantHandler.UpdateStatus)
	tenants.Get("/:id", r.tenantHandler.GetTenant)

	// Data-plane routes require a valid tenant token. The handler binds the
	// tenant into the request context before any scoped repository is touched.
	data := api.Group("", r.authMiddleware.Authenticate())

	// Identity catalog
	data.Put("/profiles", r.catalogHandler.UpsertProfile)
	data.Get("/profiles/:key", r.catalogHandler.GetProfile)
	data.Get("/segments/:segment/contacts", r.catalogHandler.GetSegmentContacts)
	data.Post("/marketing-events", r.catalogHandler.CreateMarketingEvent)
	data.Patch("/marketing-events/:id/content", r.catalogHandler.UpdateMarketingEventContent)
	data.Get("/marketing-events/:id", r.catalogHandler.GetMarketingEvent)
	data.Get("/enrichment/jobs", r.catalogHandler.ListEmbeddingJobs)

	// Truth ledgers
	data.Post("/ledger/behavioral-events", r.ledgerHandler.AppendBehavioralEvent)
	data.Post("/ledger/behavioral-events/batch", r.ledgerHandler.AppendBehavioralEvents)
	data.Get("/ledger/behavioral-events", r.ledgerHandler.ListBehavioralEvents)
	data.Post("/ledger/deliveries", r.ledgerHandler.RecordDelivery)
	data.Post("/ledger/deliveries/result", r.ledgerHandler.RecordDeliveryResult)
	data.Get("/ledger/deliveries", r.ledgerHandler.ListDeliveries)
	data.Get("/ledger/deliveries/export", r.ledgerHandler.ExportDeliveries)
	data.Post("/ledger/outcomes", r.ledgerHandler.RecordOutcome)
	data.Get("/ledger/outcomes", r.ledgerHandler.ListOutcomes)

	// Segment snapshots
	data.Post("/snapshots", r.snapshotHandler.CreateSnapshot)
	data.Get("/snapshots", r.snapshotHandler.ListSnapshots)
	data.Get("/snapshots/:id", r.snapshotHandler.GetSnapshot)
	data.Get("/snapshots/:id/members", r.snapshotHandler.GetMembers)

	// Decision records
	data.Post("/decisions", r.decisionHandler.RecordDecision)
	data.Post("/decisions/:task_id/complete", r.decisionHandler.CompleteDecision)
	data.Post("/decisions/:task_id/fail", r.decisionHandler.FailDecision)
	data.Get("/decisions/:task_id", r.decisionHandler.GetDecision)
	data.Get("/decisions/:task_id/trace", r.decisionHandler.TraceDecision)

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
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		HSTSExcludeSubdomains:     false,
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS middleware
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"https://simorgh.dev",
			"https://api.simorgh.dev",
			"https://console.simorgh.dev",
		},
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
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// xlsx exports are already deflate-compressed
			return c.Path() == "/api/v1/ledger/deliveries/export"
		},
	}))

	// Structured access logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health" || c.Path() == "/metrics"
		},
	}))

	// Prometheus request metrics
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
			"service":   "simorgh-api",
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

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
