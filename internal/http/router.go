// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// authentication, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/anidigital/harvest-hub/docs" // swagger docs
	"github.com/anidigital/harvest-hub/internal/config"
	"github.com/anidigital/harvest-hub/internal/http/handlers"
	"github.com/anidigital/harvest-hub/internal/http/middleware"
	"github.com/anidigital/harvest-hub/internal/repo"
	"github.com/anidigital/harvest-hub/internal/services"
	"github.com/anidigital/harvest-hub/internal/storage"
)

// Deps are the long-lived collaborators built by the entry point.
type Deps struct {
	DB         *gorm.DB
	Store      storage.Store
	Weather    handlers.WeatherClient
	CropDoctor handlers.CropDoctor
	Auth       middleware.AuthOptions
	Log        zerolog.Logger
}

// repoShim adapts the repository free functions to the idempotency and
// conditional-response interfaces the handlers expect.
type repoShim struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup proxies repo.GetIdempotency; a miss is not an error.
func (s repoShim) Lookup(ctx context.Context, userID, scope, key string) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, userID, scope, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.ResourceID, true, nil
}

// Save proxies repo.CreateIdempotency. A concurrent retry that already
// recorded the key wins.
func (s repoShim) Save(ctx context.Context, userID, scope, key, resourceID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, userID, scope, key, resourceID, status, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// exists is the middleware-side lookup used to flag replays.
func (s repoShim) exists(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.db, userID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// MessagesETag fingerprints a conversation's history for a participant.
// Outsiders get no tag so the handler's access check answers them.
func (s repoShim) MessagesETag(ctx context.Context, userID, conversationID string) (string, error) {
	conv, err := repo.GetConversation(ctx, s.db, conversationID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !conv.HasParticipant(userID) {
		return "", nil
	}
	n, maxCreated, maxRead, err := repo.MessagesStats(ctx, s.db, conversationID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`W/"m:%s:%d:%d:%d"`, conversationID, n, unixNano(maxCreated), unixNano(maxRead)), nil
}

// ProductsETag fingerprints the whole catalogue.
func (s repoShim) ProductsETag(ctx context.Context) (string, error) {
	n, maxUpdated, err := repo.ProductsStats(ctx, s.db)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`W/"p:%d:%d"`, n, unixNano(maxUpdated)), nil
}

func unixNano(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip
//  7. Metrics
//  8. Authenticate: bearer token (or trusted X-User-ID in dev)
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per user/IP, bypass on replay)
//  11. CORS and Security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	shim := repoShim{db: d.DB, ttl: cfg.IdempotencyTTL}

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderIdempotencyKey},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit; multipart uploads dominate the budget.
	r.Use(limitBody(cfg.MaxBodyBytes))

	// 6) Compression; PDFs and images are already compressed, promhttp negotiates its own.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedExtensions([]string{".pdf", ".png", ".jpg", ".jpeg", ".webp"}),
		gzip.WithExcludedPaths([]string{"/metrics"}),
	))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Identity
	r.Use(middleware.Authenticate(d.Auth))

	// 9) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, shim.exists))

	// 10) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 11) CORS posture (allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderUserID, middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "Content-Disposition", "ETag", "Idempotency-Replayed", "Retry-After"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (health checks, curl).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		PrivateCache: true,
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

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Uploaded files when the local backend issues root-relative URLs.
	if ls, ok := d.Store.(*storage.LocalStorage); ok && ls.Root() != "" && strings.HasPrefix(ls.BaseURL(), "/") {
		r.Static(ls.BaseURL(), ls.Root())
	}

	// Dependency injection: services ← repo/db/storage
	handlers.RegisterValidators()
	orders := &services.OrderService{DB: d.DB, Log: d.Log.With().Str("svc", "orders").Logger()}
	h := handlers.New(handlers.Deps{
		Conversations: &services.ConversationService{DB: d.DB},
		Threads: &services.ThreadService{
			DB:              d.DB,
			Store:           d.Store,
			Log:             d.Log.With().Str("svc", "threads").Logger(),
			MaxMessageRunes: cfg.MaxMessageRunes,
		},
		Orders:        orders,
		Payments:      &services.PaymentService{Orders: orders, Store: d.Store},
		Products:      &services.ProductService{DB: d.DB, Store: d.Store, Log: d.Log.With().Str("svc", "products").Logger()},
		Shops:         &services.ShopService{DB: d.DB, Store: d.Store, Log: d.Log.With().Str("svc", "shops").Logger()},
		Ledger:        &services.LedgerService{DB: d.DB},
		Notifications: &services.NotificationService{DB: d.DB},
		Profiles:      &services.ProfileService{DB: d.DB},
		Weather:       d.Weather,
		CropDoctor:    d.CropDoctor,
		Idempotency:   shim,
		Stats:         shim,
	})

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Public storefront
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/shops", h.ListShops)
		api.GET("/shops/:id", h.GetShop)
		api.GET("/profiles/:id", h.GetProfile)
	}

	auth := api.Group("", middleware.RequireUser())
	{
		auth.GET("/features", h.Features)

		// Profile
		auth.GET("/me/profile", h.GetMyProfile)
		auth.PUT("/me/profile", h.SaveMyProfile)

		// Marketplace (seller side)
		auth.POST("/products", h.CreateProduct)
		auth.PUT("/products/:id", h.UpdateProduct)
		auth.DELETE("/products/:id", h.DeleteProduct)
		auth.GET("/shops/mine", h.MyShop)
		auth.POST("/shops", h.CreateShop)
		auth.PUT("/shops/:id", h.UpdateShop)

		// Conversations
		auth.GET("/conversations", h.ListConversations)
		auth.POST("/conversations", h.OpenConversation)
		auth.GET("/conversations/:id", h.GetConversation)
		auth.GET("/conversations/:id/messages", h.ListMessages)
		auth.POST("/conversations/:id/messages", h.SendMessage)
		auth.POST("/conversations/:id/images", h.SendImage)
		auth.POST("/conversations/:id/read", h.MarkRead)
		auth.GET("/conversations/:id/orders", h.ListConversationOrders)

		// Orders and payments
		auth.POST("/orders", h.Purchase)
		auth.GET("/orders/:id", h.GetOrder)
		auth.POST("/orders/:id/pending", h.MarkPending)
		auth.POST("/orders/:id/paid", h.MarkPaid)
		auth.GET("/orders/:id/payment-proofs", h.ListPaymentProofs)
		auth.POST("/orders/:id/payment-proofs", h.SubmitPaymentProof)
		auth.POST("/payment-proofs/:id/verify", h.VerifyPaymentProof)

		// Finances
		auth.GET("/transactions", h.ListTransactions)
		auth.POST("/transactions", h.CreateTransaction)
		auth.DELETE("/transactions/:id", h.DeleteTransaction)
		auth.GET("/finances/summary", h.FinanceSummary)
		auth.GET("/finances/statement.pdf", h.Statement)

		// Notifications
		auth.GET("/notifications", h.ListNotifications)
		auth.GET("/notifications/unread-count", h.UnreadNotifications)
		auth.POST("/notifications/read-all", h.ReadAllNotifications)
		auth.POST("/notifications/:id/read", h.ReadNotification)

		// Advisory
		auth.GET("/weather/current", h.CurrentWeather)
		auth.GET("/weather/forecast", h.Forecast)
		auth.GET("/weather/forecast/daily", h.DailyForecast)
		auth.GET("/weather/polygons", h.ListPolygons)
		auth.POST("/weather/polygons", h.CreatePolygon)
		auth.DELETE("/weather/polygons/:id", h.DeletePolygon)
		auth.POST("/diagnoses", h.Diagnose)
		auth.GET("/diagnoses/:token", h.GetDiagnosis)
		auth.POST("/diagnoses/:token/feedback", h.DiagnosisFeedback)
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
