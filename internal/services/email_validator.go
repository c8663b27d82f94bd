package services

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-portfolio-backend/internal/cache"
)

// MXResolver is satisfied by *net.Resolver.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// EmailCheck is the outcome of a deliverability check.
type EmailCheck struct {
	Email  string `json:"email"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Reasons reported by EmailValidator.
const (
	ReasonRequired      = "Email is required"
	ReasonFormat        = "Invalid email format"
	ReasonNoMX          = "Email domain does not exist or cannot receive emails"
	ReasonCannotVerify  = "Cannot verify email domain - domain may not exist"
	emailCheckKeyPrefix = "mx:"
)

// EmailValidator checks address syntax and that the domain publishes MX
// records. Domain results are cached.
type EmailValidator struct {
	Resolver MXResolver
	Cache    cache.Cache[EmailCheck]
	TTL      time.Duration
	Timeout  time.Duration
}

// NewEmailValidator returns a validator using the system resolver, a 5
// minute cache TTL and a 10s lookup timeout. A nil cache disables caching.
func NewEmailValidator(c cache.Cache[EmailCheck]) *EmailValidator {
	if c == nil {
		c = cache.Nop[EmailCheck]{}
	}
	return &EmailValidator{
		Resolver: net.DefaultResolver,
		Cache:    c,
		TTL:      5 * time.Minute,
		Timeout:  10 * time.Second,
	}
}

// Check validates email. localhost and *.local domains skip the MX lookup.
func (v *EmailValidator) Check(ctx context.Context, email string) EmailCheck {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return EmailCheck{Valid: false, Reason: ReasonRequired}
	}
	if !validEmail(email) && !localDomain(email) {
		return EmailCheck{Email: email, Valid: false, Reason: ReasonFormat}
	}
	domain := email[strings.LastIndexByte(email, '@')+1:]
	if domain == "localhost" || strings.HasSuffix(domain, ".local") {
		return EmailCheck{Email: email, Valid: true}
	}

	key := emailCheckKeyPrefix + domain
	if res, ok := v.Cache.Get(ctx, key); ok {
		res.Email = email
		return res
	}

	res := v.lookup(ctx, domain)
	v.Cache.Set(ctx, key, res, v.TTL)
	res.Email = email
	return res
}

func (v *EmailValidator) lookup(ctx context.Context, domain string) EmailCheck {
	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}
	mx, err := v.Resolver.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return EmailCheck{Valid: false, Reason: ReasonNoMX}
		}
		log.Ctx(ctx).Warn().Err(err).Str("domain", domain).Msg("mx lookup failed")
		return EmailCheck{Valid: false, Reason: ReasonCannotVerify}
	}
	if len(mx) == 0 {
		return EmailCheck{Valid: false, Reason: ReasonNoMX}
	}
	return EmailCheck{Valid: true}
}

// localDomain accepts user@localhost, which validEmail rejects for lacking a dot.
func localDomain(email string) bool {
	at := strings.LastIndexByte(email, '@')
	return at > 0 && email[at+1:] == "localhost"
}
