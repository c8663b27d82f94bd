// Command server runs the portfolio backend: contact form intake, admin
// replies and the Gmail-backed conversation inbox.
//
//	@title			Portfolio Backend API
//	@version		1.0
//	@description	Contact form intake, admin replies and Gmail-backed conversation threads.
//	@BasePath		/api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-portfolio-backend/internal/cache"
	"github.com/tbourn/go-portfolio-backend/internal/config"
	"github.com/tbourn/go-portfolio-backend/internal/domain"
	httpapi "github.com/tbourn/go-portfolio-backend/internal/http"
	"github.com/tbourn/go-portfolio-backend/internal/identity"
	"github.com/tbourn/go-portfolio-backend/internal/jobs"
	"github.com/tbourn/go-portfolio-backend/internal/mailbox"
	"github.com/tbourn/go-portfolio-backend/internal/mailer"
	"github.com/tbourn/go-portfolio-backend/internal/observability"
	"github.com/tbourn/go-portfolio-backend/internal/repo"
	"github.com/tbourn/go-portfolio-backend/internal/services"
	"github.com/tbourn/go-portfolio-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 15 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		sysutil.ConfigureLogger("info", false, nil)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, nil)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		// Tracing is optional; keep serving without it.
		log.Warn().Err(err).Msg("tracing disabled")
		otelShutdown = func(context.Context) error { return nil }
	}

	if cfg.Database.URL == "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return err
		}
	}
	db, err := repo.Open(cfg.Database.DSN())
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var sweepers = map[string]jobs.Sweeper{}
	var (
		threadCache cache.Cache[[]domain.ExternalMessage]
		emailCache  cache.Cache[services.EmailCheck]
	)
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		threadCache = cache.NewRedis[[]domain.ExternalMessage](rdb, "mailbox:threads:")
		emailCache = cache.NewRedis[services.EmailCheck](rdb, "email:mx:")
		log.Info().Msg("using redis cache")
	} else {
		tc := cache.NewMemory[[]domain.ExternalMessage]()
		ec := cache.NewMemory[services.EmailCheck]()
		sweepers["mailbox_threads"] = func(time.Time) int { return tc.Sweep() }
		sweepers["email_checks"] = func(time.Time) int { return ec.Sweep() }
		threadCache, emailCache = tc, ec
	}

	mb := mailbox.New(mailbox.Options{
		ClientID:      cfg.Mailbox.ClientID,
		ClientSecret:  cfg.Mailbox.ClientSecret,
		RedirectURL:   cfg.Mailbox.RedirectURI,
		RefreshToken:  cfg.Mailbox.RefreshToken,
		AdminEmail:    sysutil.FirstNonEmpty(cfg.Mailbox.FromEmail, cfg.Mail.AdminEmail),
		Cache:         threadCache,
		CacheTTL:      cfg.Mailbox.CacheTTL,
		SearchTimeout: cfg.Mailbox.SearchTimeout,
		FetchTimeout:  cfg.Mailbox.FetchTimeout,
		Cleaner: mailbox.NewCleaner(mailbox.CleanerOptions{
			Names:   cfg.Mailbox.SignatureNames,
			Titles:  cfg.Mailbox.SignatureTitles,
			SiteURL: cfg.Mail.SiteURL,
		}),
		Matcher: &identity.Matcher{
			PositionalGuesses: cfg.Mailbox.PositionalGuesses,
			Allowlist:         identity.DefaultAllowlist,
		},
	})

	var sender mailer.Sender = mailer.LogSender{}
	if cfg.SMTP.Enabled() {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Secure:   cfg.SMTP.Secure,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Pass,
			Timeout:  cfg.SMTP.Timeout,
		})
	} else {
		log.Warn().Msg("SMTP not configured, emails are logged instead of sent")
	}
	ml := mailer.New(sender, mailer.Config{
		FromEmail:       cfg.Mail.FromEmail,
		ToEmail:         cfg.Mail.ToEmail,
		OwnerName:       cfg.Mail.OwnerName,
		OwnerTitle:      cfg.Mail.OwnerTitle,
		SiteURL:         cfg.Mail.SiteURL,
		MessageIDDomain: cfg.Mail.MessageIDDomain,
	})

	r := gin.New()
	api, err := httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:         db,
		Mailer:     ml,
		Mailbox:    mb,
		EmailCache: emailCache,
		Version:    version,
	}, cfg)
	if err != nil {
		return err
	}
	sweepers["rate_global"] = api.GlobalLimiter.Sweep
	sweepers["rate_contact"] = api.ContactLimiter.Sweep
	sweepers["oauth_states"] = func(time.Time) int { return api.Handlers.SweepStates() }

	sched := jobs.New(jobs.Options{
		Specs: jobs.Specs{
			MailboxProbe:     cfg.Jobs.MailboxProbe,
			CacheSweep:       cfg.Jobs.CacheSweep,
			IdempotencyPurge: cfg.Jobs.IdempotencyPurge,
		},
		DB:       db,
		Mailbox:  mb,
		Sweepers: sweepers,
	})
	if err := sched.Start(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Bool("smtp", cfg.SMTP.Enabled()).
			Bool("mailbox", mb.IsConfigured()).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("jobs shutdown")
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	return nil
}
