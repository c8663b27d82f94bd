// Package httpapi wires the HTTP transport (Gin) to the contact services,
// middleware and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency and rate limiting.
package httpapi

import (
	"context"
	"errors"
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

	"github.com/tbourn/go-portfolio-backend/docs"
	"github.com/tbourn/go-portfolio-backend/internal/cache"
	"github.com/tbourn/go-portfolio-backend/internal/config"
	"github.com/tbourn/go-portfolio-backend/internal/domain"
	"github.com/tbourn/go-portfolio-backend/internal/http/handlers"
	"github.com/tbourn/go-portfolio-backend/internal/http/middleware"
	"github.com/tbourn/go-portfolio-backend/internal/mailbox"
	"github.com/tbourn/go-portfolio-backend/internal/mailer"
	"github.com/tbourn/go-portfolio-backend/internal/repo"
	"github.com/tbourn/go-portfolio-backend/internal/services"
)

// contactRepoShim adapts the repository free functions to the
// services.ContactRepo interface expected by ContactService.
type contactRepoShim struct{}

func (contactRepoShim) CreateContact(ctx context.Context, db *gorm.DB, c *domain.ContactSubmission) error {
	return repo.CreateContact(ctx, db, c)
}

func (contactRepoShim) GetContact(ctx context.Context, db *gorm.DB, id uint) (*domain.ContactSubmission, error) {
	return repo.GetContact(ctx, db, id)
}

func (contactRepoShim) ListContactsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ContactSubmission, error) {
	return repo.ListContactsPage(ctx, db, offset, limit)
}

func (contactRepoShim) CountContacts(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountContacts(ctx, db)
}

func (contactRepoShim) CountUnread(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountUnread(ctx, db)
}

func (contactRepoShim) MarkContactRead(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	return repo.MarkContactRead(ctx, db, id)
}

func (contactRepoShim) DeleteContact(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteContact(ctx, db, id)
}

func (contactRepoShim) DeleteRepliesForContact(ctx context.Context, db *gorm.DB, contactID uint) (int64, error) {
	return repo.DeleteRepliesForContact(ctx, db, contactID)
}

func (contactRepoShim) GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, scope, key, now)
}

func (contactRepoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key string, contactID uint, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, scope, key, contactID, status, ttl)
}

// Deps are the long-lived collaborators built by cmd/server.
type Deps struct {
	DB *gorm.DB
	// Mailer sends notification, auto-reply and reply emails. Nil means
	// emails are only logged.
	Mailer *mailer.Mailer
	// Mailbox is the Gmail client. Nil means no mailbox is configured.
	Mailbox *mailbox.Client
	// EmailCache holds MX lookups; nil means an in-process cache.
	EmailCache cache.Cache[services.EmailCheck]
	// Version is reported by the root and health endpoints.
	Version string
}

// API exposes what the background jobs need after routes are registered.
type API struct {
	Handlers       *handlers.Handlers
	GlobalLimiter  *middleware.RateLimiter
	ContactLimiter *middleware.RateLimiter
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and returns the pieces the background jobs sweep.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID, AdminIdentity: correlation id and proxy-asserted admin
//  3. Logger, RedactingLogger: request-scoped logger and scrubbed audit line
//  4. Recovery: capture panics after the loggers
//  5. Body size limit and request deadline
//  6. Metrics, then gzip so /metrics stays uncompressed for scrapers
//  7. CORS and security headers
//  8. Global rate limiter (per admin or IP)
//
// POST /contact additionally runs the idempotency validator before the
// hourly contact limiter so replays bypass it.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) (*API, error) {
	if deps.DB == nil {
		return nil, errors.New("httpapi: nil database")
	}
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID(), middleware.AdminIdentity())
	r.Use(middleware.Logger())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes), requestTimeout(cfg.RequestTimeout))

	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	global := middleware.NewRateLimiter("global", cfg.RateRPS, cfg.RateBurst, middleware.KeyByAdminOrIP())
	r.Use(global.Handler())

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Dependency injection: services <- repo/db/mailer/mailbox
	h, err := buildHandlers(deps, cfg)
	if err != nil {
		return nil, err
	}

	idem := middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, deps.DB, scope, key, now)
			if err != nil || rec == nil {
				return false, err
			}
			return true, nil
		})
	contactRL := middleware.NewHourlyLimiter("contact", cfg.Contact.RatePerHour, middleware.KeyByClientIP())

	r.GET("/", h.Info)
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/health", h.Health)
		api.GET("/health/detailed", middleware.NoStore(), h.DetailedHealth)

		// Public contact form
		public := api.Group("/contact")
		public.POST("", idem, contactRL.Handler(), h.SubmitContact)
		public.POST("/validate-email", h.ValidateEmail)

		// Contact administration
		contacts := api.Group("/contact", middleware.NoStore())
		contacts.GET("", h.ListContacts)
		contacts.GET("/unread-count", h.UnreadCount)
		contacts.GET("/:id", h.GetContact)
		contacts.PATCH("/:id/read", h.MarkRead)
		contacts.GET("/:id/replies", h.ListReplies)
		contacts.POST("/:id/reply", h.PostReply)
		contacts.DELETE("/:id", h.DeleteContact)

		admin := api.Group("/admin", middleware.NoStore())
		admin.GET("/conversations", h.Inbox)
		admin.GET("/conversations/:contactId", h.Thread)
		admin.GET("/mailbox/status", h.MailboxStatus)
		admin.POST("/mailbox/authorize", h.AuthorizeMailbox)
		admin.GET("/mailbox/callback", h.MailboxCallback)
		admin.GET("/mailbox/search", h.SearchMailbox)
	}

	return &API{Handlers: h, GlobalLimiter: global, ContactLimiter: contactRL}, nil
}

func buildHandlers(deps Deps, cfg config.Config) (*handlers.Handlers, error) {
	ml := deps.Mailer
	if ml == nil {
		ml = mailer.New(mailer.LogSender{}, mailer.Config{
			FromEmail:       cfg.Mail.FromEmail,
			ToEmail:         cfg.Mail.ToEmail,
			OwnerName:       cfg.Mail.OwnerName,
			OwnerTitle:      cfg.Mail.OwnerTitle,
			SiteURL:         cfg.Mail.SiteURL,
			MessageIDDomain: cfg.Mail.MessageIDDomain,
		})
	}
	mb := deps.Mailbox
	if mb == nil {
		// Unconfigured client: every mailbox path reports "not configured".
		mb = mailbox.New(mailbox.Options{})
	}
	emailCache := deps.EmailCache
	if emailCache == nil {
		emailCache = cache.NewMemory[services.EmailCheck]()
	}

	contacts := services.NewContactService(deps.DB, contactRepoShim{})
	contacts.Notifier = ml
	contacts.Threads = mb
	if cfg.Contact.MinMessageLength > 0 && cfg.Contact.MaxMessageLength >= cfg.Contact.MinMessageLength {
		contacts.MinMessageRunes = cfg.Contact.MinMessageLength
		contacts.MaxMessageRunes = cfg.Contact.MaxMessageLength
	}
	if cfg.IdempotencyTTL > 0 {
		contacts.IdempotencyTTL = cfg.IdempotencyTTL
	}

	replies, err := services.NewReplyService(deps.DB, ml, cfg.Mail.AdminEmail)
	if err != nil {
		return nil, err
	}
	replies.Threads = mb

	convs := services.NewConversationService(deps.DB, mb)
	if cfg.InboxPageSize > 0 {
		convs.PageSize = cfg.InboxPageSize
	}

	return handlers.New(handlers.Deps{
		Contacts:      contacts,
		Replies:       replies,
		Conversations: convs,
		Emails:        services.NewEmailValidator(emailCache),
		Mailbox:       mb,
		Transport:     ml,
		PageSize:      cfg.InboxPageSize,
		Version:       deps.Version,
	}), nil
}

func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderAuthenticatedUser, middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", "Idempotency-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// Force ACAO even without an Origin header so plain health checks see it.
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader.
// Reads past the cap fail, which binding reports as a bad request. A
// non-positive cap disables the limit.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// requestTimeout bounds the request context. Handlers and services see the
// deadline through ctx; mailbox calls already carry shorter ones.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
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
