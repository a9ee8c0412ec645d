// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amirphl/drift-bottle/app/dto"
	"github.com/amirphl/drift-bottle/app/handlers"
	"github.com/amirphl/drift-bottle/app/middleware"
	"github.com/amirphl/drift-bottle/config"
	"github.com/amirphl/drift-bottle/docs"
	"github.com/amirphl/drift-bottle/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

const (
	healthPath = "/health"
	docsPath   = "/docs/swagger.json"
)

// HealthCheck pings one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app           *fiber.App
	cfg           *config.ProductionConfig
	logger        *zap.Logger
	bottleHandler handlers.BottleHandlerInterface
	healthChecks  map[string]HealthCheck
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	logger *zap.Logger,
	bottleHandler handlers.BottleHandlerInterface,
	healthChecks map[string]HealthCheck,
) *FiberRouter {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &FiberRouter{
		cfg:           cfg,
		logger:        logger,
		bottleHandler: bottleHandler,
		healthChecks:  healthChecks,
	}

	r.app = fiber.New(fiber.Config{
		AppName:      "Drift Bottle Core API",
		ServerHeader: "drift-bottle",
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.logger.Info("setting up routes")

	r.setupMiddleware()

	r.app.Get("/", r.bottleHandler.Welcome)
	r.app.Get(healthPath, r.healthCheck)
	r.app.Get(docsPath, r.serveSwaggerJSON)
	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	bottles := r.app.Group("/bottles")
	bottles.Post("/", r.bottleHandler.Create)
	bottles.Post("/pick/:sender_id", r.pickLimiter(), r.bottleHandler.Pick)
	bottles.Get("/counts/active", r.bottleHandler.CountActive)

	r.app.Use(r.notFoundHandler)

	r.logger.Info("routes configured")
}

func (r *FiberRouter) setupMiddleware() {
	r.app.Use(requestid.New(requestid.Config{
		Header: fiber.HeaderXRequestID,
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic recovered",
				zap.String("request_id", requestid.FromContext(c)),
				zap.Any("panic", e),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
				zap.Stack("stack"))
		},
	}))

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(middleware.AccessLog(r.logger, healthPath, r.cfg.Metrics.Path))
	}
	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics(r.cfg.Metrics.Path))
	}

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{fiber.HeaderXRequestID, fiber.HeaderRetryAfter},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	if r.cfg.Security.GlobalRateLimit > 0 {
		r.app.Use(limiter.New(limiter.Config{
			Max:          r.cfg.Security.GlobalRateLimit,
			Expiration:   r.cfg.Security.RateLimitWindow,
			KeyGenerator: func(c fiber.Ctx) string { return c.IP() },
			LimitReached: rateLimitReached,
			Next: func(c fiber.Ctx) bool {
				return c.Path() == healthPath || c.Path() == r.cfg.Metrics.Path
			},
		}))
	}
}

// pickLimiter throttles claims per client, keyed by IP and requester
func (r *FiberRouter) pickLimiter() fiber.Handler {
	if r.cfg.Security.PickRateLimit <= 0 {
		return func(c fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        r.cfg.Security.PickRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			senderID, err := handlers.PathParam(c, "sender_id")
			if err != nil {
				senderID = c.Params("sender_id")
			}
			return c.IP() + "|" + senderID
		},
		LimitReached: rateLimitReached,
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

func (r *FiberRouter) Start(address string) error {
	r.logger.Info("starting server", zap.String("address", address))
	return r.app.Listen(address)
}

func (r *FiberRouter) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	status := "ok"
	checks := make(map[string]string, len(r.healthChecks))
	for name, check := range r.healthChecks {
		if err := check(ctx); err != nil {
			status = "degraded"
			checks[name] = err.Error()
			r.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			continue
		}
		checks[name] = "ok"
	}

	code := fiber.StatusOK
	message := "Service is healthy"
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
		message = "Service is degraded"
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: status == "ok",
		Message: message,
		Data: dto.HealthResponse{
			Status:      status,
			Timestamp:   utils.FormatTimestamp(utils.UTCNow()),
			Version:     r.cfg.Deployment.Version,
			Environment: r.cfg.Deployment.Environment,
			Checks:      checks,
		},
	})
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		r.logger.Error("failed to render swagger document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errorCode := "INTERNAL_ERROR"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errorCode = strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
		}
	}

	r.logger.Error("request failed",
		zap.Int("status", code),
		zap.String("request_id", requestid.FromContext(c)),
		zap.String("path", c.Path()),
		zap.Error(err))

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// Address formats the listen address from server configuration
func Address(cfg config.ServerConfig) string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
