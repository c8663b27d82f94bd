// Package mailbox reads reply threads from the site owner's Gmail account.
//
// The client is an enhancement, never a dependency: every read path degrades
// to "no messages" on misconfiguration, expired credentials, timeouts or API
// errors. Failures are logged at warn level and counted in the mailbox_*
// Prometheus series.
//
// FetchContactReplies is the core operation. It refreshes the access token,
// expands the contact address into variants, runs a small fixed set of
// searches sequentially, fetches message details in batches of three, keeps
// messages that match a variant and carry a reply subject, and deduplicates
// by message id. Results are cached per contact for a short TTL.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tbourn/go-portfolio-backend/internal/cache"
	"github.com/tbourn/go-portfolio-backend/internal/domain"
	"github.com/tbourn/go-portfolio-backend/internal/identity"
)

// ReadOnlyScope is the only scope the client asks for.
const ReadOnlyScope = "https://www.googleapis.com/auth/gmail.readonly"

const (
	searchVariants      = 3  // variants that get searched
	maxSearchResults    = 10 // per search call
	maxDetailsPerSearch = 5
	detailConcurrency   = 3

	defaultCacheTTL      = 2 * time.Minute
	defaultSearchTimeout = 5 * time.Second
	defaultFetchTimeout  = 3 * time.Second
)

var (
	// ErrNotConnected means no refresh token is held.
	ErrNotConnected = errors.New("mailbox not connected")
	// ErrNoRefreshToken is returned by Exchange when the provider issues an
	// access token only, which happens when consent was granted before.
	ErrNoRefreshToken = errors.New("no refresh token received; revoke access and authorize again")
)

// Options configures a Client. Zero durations take the package defaults.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	RefreshToken string

	// AdminEmail marks messages sent from the owner's address as outgoing.
	AdminEmail string

	// Endpoint overrides the Google OAuth endpoint (tests).
	Endpoint oauth2.Endpoint
	// APIBase overrides DefaultAPIBase (tests). Must end with '/'.
	APIBase    string
	HTTPClient *http.Client

	Cache         cache.Cache[[]domain.ExternalMessage]
	CacheTTL      time.Duration
	SearchTimeout time.Duration
	FetchTimeout  time.Duration

	Cleaner *Cleaner
	Matcher *identity.Matcher
}

// Client talks to the Gmail REST API on behalf of one account.
type Client struct {
	oauth   *oauth2.Config
	apiBase string
	httpc   *http.Client

	adminEmail string

	cache         cache.Cache[[]domain.ExternalMessage]
	cacheTTL      time.Duration
	searchTimeout time.Duration
	fetchTimeout  time.Duration

	cleaner *Cleaner
	matcher *identity.Matcher

	mu           sync.RWMutex
	refreshToken string
}

// New builds a Client. It performs no network calls.
func New(opts Options) *Client {
	ep := opts.Endpoint
	if ep.AuthURL == "" && ep.TokenURL == "" {
		ep = google.Endpoint
	}
	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       []string{ReadOnlyScope},
			Endpoint:     ep,
		},
		apiBase:       opts.APIBase,
		httpc:         opts.HTTPClient,
		adminEmail:    strings.ToLower(strings.TrimSpace(opts.AdminEmail)),
		cache:         opts.Cache,
		cacheTTL:      opts.CacheTTL,
		searchTimeout: opts.SearchTimeout,
		fetchTimeout:  opts.FetchTimeout,
		cleaner:       opts.Cleaner,
		matcher:       opts.Matcher,
		refreshToken:  strings.TrimSpace(opts.RefreshToken),
	}
	if c.apiBase == "" {
		c.apiBase = DefaultAPIBase
	}
	if c.httpc == nil {
		c.httpc = &http.Client{Timeout: 30 * time.Second}
	}
	if c.cache == nil {
		c.cache = cache.Nop[[]domain.ExternalMessage]{}
	}
	if c.cacheTTL <= 0 {
		c.cacheTTL = defaultCacheTTL
	}
	if c.searchTimeout <= 0 {
		c.searchTimeout = defaultSearchTimeout
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = defaultFetchTimeout
	}
	if c.cleaner == nil {
		c.cleaner = NewCleaner(CleanerOptions{})
	}
	if c.matcher == nil {
		c.matcher = identity.New()
	}

	if !c.IsConfigured() {
		log.Warn().Msg("mailbox: oauth client not configured, integration disabled")
	} else if !c.IsConnected() {
		log.Warn().Msg("mailbox: no refresh token, authorize to enable integration")
	}
	if c.adminEmail == "" {
		log.Warn().Msg("mailbox: admin email not set, outgoing detection disabled")
	}
	return c
}

// IsConfigured reports whether client id, secret and redirect URL are set.
func (c *Client) IsConfigured() bool {
	return c.oauth.ClientID != "" && c.oauth.ClientSecret != "" && c.oauth.RedirectURL != ""
}

// IsConnected reports whether the client is configured and holds a refresh
// token. It does not prove the token still works; see TestConnection.
func (c *Client) IsConnected() bool {
	return c.IsConfigured() && c.currentRefreshToken() != ""
}

// SetRefreshToken adopts a new refresh token without a restart.
func (c *Client) SetRefreshToken(rt string) {
	c.mu.Lock()
	c.refreshToken = strings.TrimSpace(rt)
	c.mu.Unlock()
}

func (c *Client) currentRefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshToken
}

// AuthURL returns the consent page URL. Offline access with forced consent
// makes the provider issue a refresh token on every exchange.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a refresh token and adopts it.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpc)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}
	c.SetRefreshToken(tok.RefreshToken)
	log.Ctx(ctx).Info().Msg("mailbox: refresh token received")
	return tok.RefreshToken, nil
}

// token mints a fresh access token from the refresh token. A new token source
// per call means every batch of API calls starts with a refresh.
func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	rt := c.currentRefreshToken()
	if !c.IsConfigured() || rt == "" {
		return nil, ErrNotConnected
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpc)
	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: rt}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	return tok, nil
}

// TestConnection performs a live profile read. It never returns an error;
// any failure reports false.
func (c *Client) TestConnection(ctx context.Context) bool {
	ctx, span := otel.Tracer("mailbox").Start(ctx, "TestConnection")
	defer span.End()

	if !c.IsConnected() {
		connectedGauge.Set(0)
		return false
	}
	tok, err := c.token(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("mailbox: connection test failed")
		connectedGauge.Set(0)
		return false
	}
	p, err := c.getProfile(ctx, tok)
	if err != nil || p.EmailAddress == "" {
		log.Ctx(ctx).Warn().Err(err).Msg("mailbox: connection test failed")
		connectedGauge.Set(0)
		return false
	}
	connectedGauge.Set(1)
	return true
}

// Search runs a single query and returns up to max message ids. Unlike
// FetchContactReplies it reports errors; it backs the admin debug endpoint.
func (c *Client) Search(ctx context.Context, query string, max int) ([]string, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	return c.listMessages(ctx, tok, query, max)
}

// Message fetches and converts one message.
func (c *Client) Message(ctx context.Context, id string) (*domain.ExternalMessage, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := c.getMessage(ctx, tok, id)
	if err != nil {
		return nil, err
	}
	m, err := c.convert(raw)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FetchContactReplies returns the external reply messages that belong to
// contact. It never fails: any error, timeout or panic yields what was
// collected so far or nothing. Only results from a run where every search
// succeeded are cached. Order is unspecified.
func (c *Client) FetchContactReplies(ctx context.Context, contact domain.ContactRef) (out []domain.ExternalMessage) {
	if !c.IsConnected() {
		return nil
	}
	ctx, span := otel.Tracer("mailbox").Start(ctx, "FetchContactReplies",
		trace.WithAttributes(attribute.Int64("contact.id", int64(contact.ID))),
	)
	defer span.End()

	lg := log.Ctx(ctx).With().Uint("contact_id", contact.ID).Logger()

	key := cacheKey(contact.ID)
	if cached, ok := c.cache.Get(ctx, key); ok {
		cacheTotal.WithLabelValues("hit").Inc()
		return cached
	}
	cacheTotal.WithLabelValues("miss").Inc()

	defer func() {
		if r := recover(); r != nil {
			lg.Error().Interface("panic", r).Msg("mailbox: fetch replies aborted")
			out = nil
		}
	}()

	tok, err := c.token(ctx)
	if err != nil {
		lg.Warn().Err(err).Msg("mailbox: token refresh failed")
		return nil
	}

	variants := c.matcher.GenerateVariants(contact.Email)
	queries := contactQueries(variants)
	span.SetAttributes(attribute.Int("mailbox.variants", len(variants)), attribute.Int("mailbox.queries", len(queries)))

	seen := make(map[string]bool)
	var result []domain.ExternalMessage
	failed := 0
	for _, q := range queries {
		ids, err := c.searchWithTimeout(ctx, tok, q)
		if err != nil {
			failed++
			lg.Warn().Err(err).Str("query", q).Msg("mailbox: search skipped")
			continue
		}
		if len(ids) > maxDetailsPerSearch {
			ids = ids[:maxDetailsPerSearch]
		}
		for _, m := range c.fetchDetails(ctx, tok, ids) {
			if seen[m.ID] || !c.relevant(m, variants) {
				continue
			}
			seen[m.ID] = true
			result = append(result, m)
		}
	}

	lg.Debug().Int("messages", len(result)).Int("failed_searches", failed).Msg("mailbox: replies fetched")
	// A degraded result would hide real replies for the whole TTL.
	if failed == 0 && ctx.Err() == nil {
		c.cache.Set(ctx, key, result, c.cacheTTL)
	}
	return result
}

// ThreadsForContacts fetches replies for each contact in turn. Contacts with
// no external messages are absent from the result.
func (c *Client) ThreadsForContacts(ctx context.Context, contacts []domain.ContactRef) map[uint][]domain.ExternalMessage {
	out := make(map[uint][]domain.ExternalMessage)
	for _, ct := range contacts {
		if msgs := c.FetchContactReplies(ctx, ct); len(msgs) > 0 {
			out[ct.ID] = msgs
		}
	}
	return out
}

// InvalidateContact drops the cached result for one contact.
func (c *Client) InvalidateContact(ctx context.Context, id uint) {
	c.cache.Delete(ctx, cacheKey(id))
}

func cacheKey(id uint) string { return "mailbox:contact:" + strconv.FormatUint(uint64(id), 10) }

// contactQueries builds four searches per variant for the first few variants:
// incoming and outgoing replies, then recent mail in both directions.
func contactQueries(variants []string) []string {
	if len(variants) > searchVariants {
		variants = variants[:searchVariants]
	}
	qs := make([]string, 0, len(variants)*4)
	for _, v := range variants {
		qs = append(qs,
			fmt.Sprintf(`from:%s subject:"Re:"`, v),
			fmt.Sprintf(`to:%s subject:"Re:"`, v),
			fmt.Sprintf(`from:%s newer_than:30d`, v),
			fmt.Sprintf(`to:%s newer_than:30d`, v),
		)
	}
	return qs
}

func (c *Client) searchWithTimeout(ctx context.Context, tok *oauth2.Token, query string) ([]string, error) {
	sctx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	defer cancel()
	ids, err := c.listMessages(sctx, tok, query, maxSearchResults)
	searchTotal.WithLabelValues(outcome(sctx, err)).Inc()
	return ids, err
}

// fetchDetails loads ids in groups of detailConcurrency, each group running to
// completion before the next starts. Failed fetches are dropped. The result
// keeps the order of ids.
func (c *Client) fetchDetails(ctx context.Context, tok *oauth2.Token, ids []string) []domain.ExternalMessage {
	out := make([]domain.ExternalMessage, 0, len(ids))
	for start := 0; start < len(ids); start += detailConcurrency {
		end := min(start+detailConcurrency, len(ids))
		batch := ids[start:end]
		results := make([]*domain.ExternalMessage, len(batch))

		var wg sync.WaitGroup
		for i, id := range batch {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				results[i] = c.fetchOne(ctx, tok, id)
			}(i, id)
		}
		wg.Wait()

		for _, m := range results {
			if m != nil {
				out = append(out, *m)
			}
		}
	}
	return out
}

func (c *Client) fetchOne(ctx context.Context, tok *oauth2.Token, id string) (msg *domain.ExternalMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Error().Interface("panic", r).Str("message_id", id).Msg("mailbox: message fetch aborted")
			msg = nil
		}
	}()

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	raw, err := c.getMessage(fctx, tok, id)
	if err != nil {
		fetchTotal.WithLabelValues(outcome(fctx, err)).Inc()
		log.Ctx(ctx).Warn().Err(err).Str("message_id", id).Msg("mailbox: message fetch failed")
		return nil
	}
	m, err := c.convert(raw)
	if err != nil {
		fetchTotal.WithLabelValues("error").Inc()
		log.Ctx(ctx).Warn().Err(err).Str("message_id", id).Msg("mailbox: message skipped")
		return nil
	}
	fetchTotal.WithLabelValues("ok").Inc()
	return &m
}

func outcome(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// relevant keeps messages addressed from or to a variant whose subject marks
// them as a reply.
func (c *Client) relevant(m domain.ExternalMessage, variants []string) bool {
	if !strings.Contains(strings.ToLower(m.Subject), "re:") {
		return false
	}
	return c.matcher.IsMatch(m.From, variants) || c.matcher.IsMatch(m.To, variants)
}

func (c *Client) convert(raw *rawMessage) (domain.ExternalMessage, error) {
	p := &raw.Payload
	from := extractAddress(p.header("From"))
	ts, err := messageTime(p.header("Date"), raw.InternalDate)
	if err != nil {
		return domain.ExternalMessage{}, err
	}
	return domain.ExternalMessage{
		ID:         raw.ID,
		ThreadID:   raw.ThreadID,
		From:       from,
		To:         extractAddress(p.header("To")),
		Subject:    p.header("Subject"),
		Body:       c.cleaner.Clean(extractText(p)),
		Timestamp:  ts,
		IsOutgoing: c.adminEmail != "" && strings.Contains(strings.ToLower(from), c.adminEmail),
		Source:     string(domain.SourceMailbox),
	}, nil
}

var angleAddr = regexp.MustCompile(`<([^>]+)>`)

// extractAddress pulls the bare address out of a header value such as
// "Jane Doe <jane@example.com>".
func extractAddress(v string) string {
	if m := angleAddr.FindStringSubmatch(v); m != nil {
		return strings.TrimSpace(m[1])
	}
	if a, err := mail.ParseAddress(v); err == nil {
		return a.Address
	}
	return strings.TrimSpace(v)
}

// messageTime prefers the Date header and falls back to the provider's
// internal timestamp in epoch milliseconds.
func messageTime(dateHeader, internalDate string) (time.Time, error) {
	if dateHeader != "" {
		if t, err := mail.ParseDate(dateHeader); err == nil {
			return t.UTC(), nil
		}
	}
	if ms, err := strconv.ParseInt(internalDate, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("no usable timestamp (date=%q internal=%q)", dateHeader, internalDate)
}
