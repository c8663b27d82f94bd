// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the HTTP audit line for routes that
// handle visitor data. Contact submissions and admin mailbox searches carry
// email addresses and phone numbers in query strings and headers; those are
// scrubbed before anything is written. Bodies are never logged.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions adds header names to mask completely, on top of
// Authorization, Cookie, Set-Cookie and X-Authenticated-User.
type RedactOptions struct {
	MaskHeaders []string
}

// Redactor replaces identifiers in free text with typed placeholders.
type Redactor struct {
	uuid  *regexp.Regexp
	email *regexp.Regexp
	phone *regexp.Regexp
}

// NewRedactor compiles the scrub patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		uuid:  regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`),
		email: regexp.MustCompile(`(?i)[a-z0-9._%+\-]+(?:@|%40)[a-z0-9.\-]+\.[a-z]{2,}`),
		phone: regexp.MustCompile(`(?:\+|%2B)?\b(?:\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`),
	}
}

// String scrubs s. UUIDs go first so the phone pattern cannot eat their
// digit groups.
func (r *Redactor) String(s string) string {
	if s == "" {
		return s
	}
	s = r.uuid.ReplaceAllString(s, "[REDACTED:id]")
	s = r.email.ReplaceAllString(s, "[REDACTED:email]")
	return r.phone.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger logs method, route, scrubbed query and headers, status,
// size and latency. Level is info, warn for 4xx and error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	red := NewRedactor()

	masked := map[string]struct{}{
		"authorization":                           {},
		"cookie":                                  {},
		"set-cookie":                              {},
		strings.ToLower(HeaderAuthenticatedUser): {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = red.String(c.Request.URL.Path)
		}
		query := red.String(truncate(c.Request.URL.RawQuery, maxQueryLogLength))

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = red.String(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		ev.
			Str("request_id", c.Writer.Header().Get(requestIDHeader)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
