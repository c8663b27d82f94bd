// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, rate limiting, outbound mail, the Gmail mailbox
// integration, background jobs and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// DatabaseConfig selects the store. A non-empty URL wins over Path.
type DatabaseConfig struct {
	Path string // DATABASE_PATH, SQLite file
	URL  string // DATABASE_URL, Postgres DSN
}

// DSN returns the value handed to repo.Open.
func (d DatabaseConfig) DSN() string {
	if strings.TrimSpace(d.URL) != "" {
		return d.URL
	}
	return d.Path
}

// ContactConfig bounds public submissions.
type ContactConfig struct {
	MinMessageLength int // runes
	MaxMessageLength int // runes
	RatePerHour      int // per client IP
}

// SMTPConfig describes the outbound relay. An empty Host means mail is only
// logged.
type SMTPConfig struct {
	Host    string
	Port    int
	Secure  bool // implicit TLS
	User    string
	Pass    string
	Timeout time.Duration
}

// Enabled reports whether a relay is configured.
func (s SMTPConfig) Enabled() bool { return strings.TrimSpace(s.Host) != "" }

// MailConfig holds addresses and branding for composed emails.
type MailConfig struct {
	FromEmail       string // FROM_EMAIL
	ToEmail         string // TO_EMAIL, owner inbox
	AdminEmail      string // ADMIN_EMAIL, reply sender
	MessageIDDomain string // MESSAGE_ID_DOMAIN
	SiteURL         string // SITE_URL
	OwnerName       string // OWNER_NAME
	OwnerTitle      string // OWNER_TITLE
}

// MailboxConfig configures the Gmail integration.
type MailboxConfig struct {
	ClientID          string
	ClientSecret      string
	RedirectURI       string
	RefreshToken      string
	FromEmail         string // owner address as seen in Gmail
	CacheTTL          time.Duration
	SearchTimeout     time.Duration
	FetchTimeout      time.Duration
	SignatureNames    []string
	SignatureTitles   []string
	PositionalGuesses bool
}

// Configured reports whether OAuth client credentials are present.
func (m MailboxConfig) Configured() bool {
	return m.ClientID != "" && m.ClientSecret != ""
}

// JobsConfig holds cron specs for background jobs. Setting a schedule to
// "off" disables that job.
type JobsConfig struct {
	MailboxProbe     string
	CacheSweep       string
	IdempotencyPurge string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Host              string        // bind address, empty for all interfaces
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 75s
	IdleTimeout       time.Duration // e.g. 60s
	RequestTimeout    time.Duration // per-request context deadline
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	Database DatabaseConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	Contact ContactConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	SMTP    SMTPConfig
	Mail    MailConfig
	Mailbox MailboxConfig

	RedisURL      string // optional shared cache
	InboxPageSize int

	Jobs JobsConfig

	// Observability
	OTEL OTELConfig
}

// Addr is the listen address for http.Server.
func (c Config) Addr() string { return c.Host + ":" + c.Port }

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Host:              getenv("HOST", ""),
		Port:              getenv("PORT", "3001"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 75*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		RequestTimeout:    getdur("REQUEST_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		Database: DatabaseConfig{
			Path: getenv("DATABASE_PATH", "./data/contacts.db"),
			URL:  getenv("DATABASE_URL", ""),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		Contact: ContactConfig{
			MinMessageLength: getint("MIN_MESSAGE_LENGTH", 10),
			MaxMessageLength: getint("MAX_MESSAGE_LENGTH", 5000),
			RatePerHour:      getint("CONTACT_RATE_PER_HOUR", 5),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		SMTP: SMTPConfig{
			Host:    getenv("SMTP_HOST", ""),
			Port:    getint("SMTP_PORT", 587),
			Secure:  getbool("SMTP_SECURE", false),
			User:    getenv("SMTP_USER", ""),
			Pass:    getenv("SMTP_PASS", ""),
			Timeout: getdur("SMTP_TIMEOUT", 15*time.Second),
		},
		Mail: MailConfig{
			FromEmail:       getenv("FROM_EMAIL", ""),
			ToEmail:         getenv("TO_EMAIL", ""),
			AdminEmail:      getenv("ADMIN_EMAIL", ""),
			MessageIDDomain: getenv("MESSAGE_ID_DOMAIN", "portfolio.local"),
			SiteURL:         getenv("SITE_URL", ""),
			OwnerName:       getenv("OWNER_NAME", "Portfolio"),
			OwnerTitle:      getenv("OWNER_TITLE", ""),
		},
		Mailbox: MailboxConfig{
			ClientID:          getenv("GMAIL_CLIENT_ID", ""),
			ClientSecret:      getenv("GMAIL_CLIENT_SECRET", ""),
			RedirectURI:       getenv("GMAIL_REDIRECT_URI", ""),
			RefreshToken:      getenv("GMAIL_REFRESH_TOKEN", ""),
			FromEmail:         getenv("GMAIL_FROM_EMAIL", ""),
			CacheTTL:          getdur("MAILBOX_CACHE_TTL", 2*time.Minute),
			SearchTimeout:     getdur("MAILBOX_SEARCH_TIMEOUT", 5*time.Second),
			FetchTimeout:      getdur("MAILBOX_FETCH_TIMEOUT", 3*time.Second),
			SignatureNames:    splitCSV(getenv("MAIL_SIGNATURE_NAMES", "")),
			SignatureTitles:   splitCSV(getenv("MAIL_SIGNATURE_TITLES", "")),
			PositionalGuesses: getbool("IDENTITY_POSITIONAL_GUESSES", true),
		},

		RedisURL:      getenv("REDIS_URL", ""),
		InboxPageSize: getint("INBOX_PAGE_SIZE", 20),

		Jobs: JobsConfig{
			MailboxProbe:     getschedule("MAILBOX_PROBE_SCHEDULE", "@every 10m"),
			CacheSweep:       getschedule("CACHE_SWEEP_SCHEDULE", "@every 5m"),
			IdempotencyPurge: getschedule("IDEMPOTENCY_PURGE_SCHEDULE", "@hourly"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-portfolio-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Mail.AdminEmail == "" {
		cfg.Mail.AdminEmail = cfg.Mail.FromEmail
	}
	if cfg.Mailbox.FromEmail == "" {
		cfg.Mailbox.FromEmail = cfg.Mail.AdminEmail
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.RequestTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.Database.DSN()) == "" {
		return cfg, errors.New("DATABASE_PATH or DATABASE_URL must be set")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Contact.RatePerHour < 1 {
		return cfg, errors.New("CONTACT_RATE_PER_HOUR must be >= 1")
	}
	if cfg.Contact.MinMessageLength < 1 || cfg.Contact.MaxMessageLength < cfg.Contact.MinMessageLength {
		return cfg, errors.New("MIN_MESSAGE_LENGTH must be >= 1 and <= MAX_MESSAGE_LENGTH")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.SMTP.Port < 1 || cfg.SMTP.Port > 65535 {
		return cfg, errors.New("SMTP_PORT must be in [1,65535]")
	}
	if cfg.SMTP.Enabled() && (cfg.Mail.FromEmail == "" || cfg.Mail.ToEmail == "") {
		return cfg, errors.New("FROM_EMAIL and TO_EMAIL are required when SMTP_HOST is set")
	}
	if (cfg.Mailbox.ClientID == "") != (cfg.Mailbox.ClientSecret == "") {
		return cfg, errors.New("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set together")
	}
	if cfg.Mailbox.Configured() && cfg.Mailbox.RedirectURI == "" {
		return cfg, errors.New("GMAIL_REDIRECT_URI is required when the mailbox is configured")
	}
	if cfg.Mailbox.CacheTTL < 0 || cfg.Mailbox.SearchTimeout <= 0 || cfg.Mailbox.FetchTimeout <= 0 {
		return cfg, errors.New("mailbox timeouts must be positive durations")
	}
	if cfg.InboxPageSize < 1 || cfg.InboxPageSize > 100 {
		return cfg, errors.New("INBOX_PAGE_SIZE must be in [1,100]")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

// getschedule reads a cron expression; "off" disables the job.
func getschedule(k, def string) string {
	v := strings.TrimSpace(getenv(k, def))
	if strings.EqualFold(v, "off") {
		return ""
	}
	return v
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
