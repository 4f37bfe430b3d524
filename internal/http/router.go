// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/sentinel-app/sentinel-backend/internal/auth"
	"github.com/sentinel-app/sentinel-backend/internal/config"
	"github.com/sentinel-app/sentinel-backend/internal/domain"
	"github.com/sentinel-app/sentinel-backend/internal/http/handlers"
	"github.com/sentinel-app/sentinel-backend/internal/http/middleware"
	"github.com/sentinel-app/sentinel-backend/internal/repo"
	"github.com/sentinel-app/sentinel-backend/internal/services"
	"github.com/sentinel-app/sentinel-backend/internal/ws"
)

// contactRepoShim adapts the repository free functions to the
// services.ContactRepo interface. This keeps services decoupled from the
// concrete repo package while reusing existing functions.
type contactRepoShim struct{}

func (contactRepoShim) CreateContact(ctx context.Context, db *gorm.DB, c *domain.EmergencyContact) (*domain.EmergencyContact, error) {
	return repo.CreateContact(ctx, db, c)
}

func (contactRepoShim) ListContacts(ctx context.Context, db *gorm.DB, userID string) ([]domain.EmergencyContact, error) {
	return repo.ListContacts(ctx, db, userID)
}

func (contactRepoShim) ListActiveContacts(ctx context.Context, db *gorm.DB, userID string) ([]domain.EmergencyContact, error) {
	return repo.ListActiveContacts(ctx, db, userID)
}

func (contactRepoShim) GetContact(ctx context.Context, db *gorm.DB, id string) (*domain.EmergencyContact, error) {
	return repo.GetContact(ctx, db, id)
}

func (contactRepoShim) UpdateContact(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	return repo.UpdateContact(ctx, db, id, updates)
}

func (contactRepoShim) DeleteContact(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteContact(ctx, db, id)
}

func (contactRepoShim) GetContactStats(ctx context.Context, db *gorm.DB, userID string) (*repo.ContactStats, error) {
	return repo.GetContactStats(ctx, db, userID)
}

// alertRepoShim adapts the alert repository functions to services.AlertRepo.
type alertRepoShim struct{}

func (alertRepoShim) CreateAlert(ctx context.Context, db *gorm.DB, a *domain.EmergencyAlert) (*domain.EmergencyAlert, error) {
	return repo.CreateAlert(ctx, db, a)
}

func (alertRepoShim) GetAlert(ctx context.Context, db *gorm.DB, id string) (*domain.EmergencyAlert, error) {
	return repo.GetAlert(ctx, db, id)
}

func (alertRepoShim) ListAlerts(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.EmergencyAlert, error) {
	return repo.ListAlerts(ctx, db, userID, limit)
}

func (alertRepoShim) TransitionStatus(ctx context.Context, db *gorm.DB, id string, status domain.AlertStatus, extra map[string]any) (*domain.EmergencyAlert, error) {
	return repo.TransitionStatus(ctx, db, id, status, extra)
}

func (alertRepoShim) GetAlertStats(ctx context.Context, db *gorm.DB, userID string) (*repo.AlertStats, error) {
	return repo.GetAlertStats(ctx, db, userID)
}

// userRepoShim adapts the user repository functions to services.UserRepo.
type userRepoShim struct{}

func (userRepoShim) GetUserWithSettings(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUserWithSettings(ctx, db, id)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, the websocket endpoint, health and metrics endpoints,
// and then mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. CORS and Security headers
//  9. Auth + rate limiter (per user/IP) on the API group only
func RegisterRoutes(r *gin.Engine, db *gorm.DB, verifier *auth.Verifier, notifier services.Notifier, hub *ws.Hub, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction. Alert payloads carry phone
	// numbers and coordinates, so bodies are never logged.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-User-ID"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (256 KiB; the largest payload is an alert
	// trigger with a message capped well below that)
	r.Use(limitBody(256 << 10))

	// 6) Compress responses (alert listings with metadata compress well)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (off by default)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Websocket endpoint. The hub performs its own token handshake, so
	// RequireAuth is not applied here.
	r.GET("/ws", hub.HandleWS)

	// Dependency injection: services ← repo/db/notifier/hub
	contactSvc := services.NewContactService(db, contactRepoShim{})
	alertSvc := services.NewAlertService(db, alertRepoShim{}, contactRepoShim{}, userRepoShim{}, notifier, hub)
	h := handlers.New(contactSvc, alertSvc)

	// Token-bucket rate limiter per user/IP. The burst must stay generous
	// enough that a panicked user mashing the SOS button is never refused.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	// Versioned API: every route requires a valid bearer token
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.RequireAuth(verifier))
	api.Use(rl.Handler())
	{
		// Contacts
		api.POST("/contacts", h.CreateContact)
		api.GET("/contacts", h.ListContacts)
		api.GET("/contacts/active", h.ListActiveContacts)
		api.GET("/contacts/stats", h.ContactStats)
		api.PUT("/contacts/:id", h.UpdateContact)
		api.DELETE("/contacts/:id", h.DeleteContact)

		// Alerts
		api.POST("/alerts", h.TriggerAlert)
		api.GET("/alerts", h.ListAlerts)
		api.GET("/alerts/stats", h.AlertStats)
		api.GET("/alerts/:id", h.GetAlert)
		api.PUT("/alerts/:id/status", h.UpdateAlertStatus)
		api.POST("/alerts/test", h.TestAlert)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
