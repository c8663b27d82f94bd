// Mailbox admin handlers.
//
//   - GET  /admin/mailbox/status     (configured, connected, consent URL)
//   - POST /admin/mailbox/authorize  (exchange a pasted authorization code)
//   - GET  /admin/mailbox/callback   (OAuth redirect target, renders HTML)
//   - GET  /admin/mailbox/search     (debug search)
//
// A refresh token obtained here is adopted in memory only. The pages show it
// once so the operator can persist it as GMAIL_REFRESH_TOKEN.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-portfolio-backend/internal/http/middleware"
	"github.com/tbourn/go-portfolio-backend/internal/mailbox"
	"github.com/tbourn/go-portfolio-backend/internal/utils"
)

const (
	oauthStateTTL     = 10 * time.Minute
	maxDebugResults   = 50
	debugDetails      = 3
	debugPreviewRunes = 200
)

var redactor = middleware.NewRedactor()

// MailboxStatusResponse reports the integration state.
type MailboxStatusResponse struct {
	Configured bool `json:"configured"`
	Connected  bool `json:"connected"`
	// AuthURL is the consent page, only when configured but not connected.
	AuthURL string `json:"auth_url,omitempty"`
}

// AuthorizeMailboxRequest carries an authorization code pasted by the admin.
type AuthorizeMailboxRequest struct {
	Code string `json:"code" example:"4/0AX4XfWh..."`
}

// AuthorizeMailboxResponse returns the refresh token to persist.
type AuthorizeMailboxResponse struct {
	Connected    bool   `json:"connected"`
	RefreshToken string `json:"refresh_token"`
}

// MessagePreview is a trimmed view of a mailbox message.
type MessagePreview struct {
	ID          string    `json:"id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Date        time.Time `json:"date"`
	BodyPreview string    `json:"body_preview"`
}

// MailboxSearchResponse is the debug search result.
type MailboxSearchResponse struct {
	Query      string           `json:"query"`
	Count      int              `json:"count"`
	MessageIDs []string         `json:"message_ids"`
	Details    []MessagePreview `json:"details,omitempty"`
}

// MailboxStatus godoc
// @ID          mailboxStatus
// @Summary     Mailbox integration status
// @Description When the OAuth client is configured but no working refresh token exists, auth_url links to the consent page.
// @Tags        Mailbox
// @Produce     json
// @Success     200  {object}  handlers.MailboxStatusResponse
// @Router      /admin/mailbox/status [get]
func (h *Handlers) MailboxStatus(c *gin.Context) {
	var resp MailboxStatusResponse
	if h.mailbox != nil && h.mailbox.IsConfigured() {
		resp.Configured = true
		resp.Connected = h.mailbox.IsConnected() && h.mailbox.TestConnection(c.Request.Context())
		if !resp.Connected {
			resp.AuthURL = h.mailbox.AuthURL(h.newState(c.Request.Context()))
		}
	}
	ok(c, http.StatusOK, resp)
}

// AuthorizeMailbox godoc
// @ID          authorizeMailbox
// @Summary     Exchange an authorization code
// @Tags        Mailbox
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.AuthorizeMailboxRequest  true  "Authorization code"
// @Success     200  {object}  handlers.AuthorizeMailboxResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Code missing"
// @Failure     502  {object}  handlers.ErrorResponse  "Exchange failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Mailbox not configured"
// @Router      /admin/mailbox/authorize [post]
func (h *Handlers) AuthorizeMailbox(c *gin.Context) {
	if !h.mailboxConfigured(c) {
		return
	}
	var req AuthorizeMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "authorization code is required")
		return
	}
	rt, err := h.mailbox.Exchange(c.Request.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("mailbox authorization failed")
		fail(c, http.StatusBadGateway, ErrCodeAuthorizeFailed, authorizeMessage(err))
		return
	}
	ok(c, http.StatusOK, AuthorizeMailboxResponse{Connected: true, RefreshToken: rt})
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Mailbox authorization</title></head>
<body style="font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto;">
{{if .Error}}
  <h2>Mailbox authorization failed</h2>
  <p>{{.Error}}</p>
{{else}}
  <h2>Mailbox authorization successful</h2>
  <p>The connection is active until the server restarts. Add this line to the environment to keep it:</p>
  <pre style="background:#f8f9fa; padding:15px; word-break:break-all; white-space:pre-wrap;">GMAIL_REFRESH_TOKEN={{.Token}}</pre>
{{end}}
</body>
</html>
`))

type callbackData struct {
	Error string
	Token string
}

// MailboxCallback godoc
// @ID          mailboxCallback
// @Summary     OAuth redirect target
// @Description Exchanges the code from the consent redirect. The state must come from a recent status call.
// @Tags        Mailbox
// @Produce     html
// @Param       code   query  string  false  "Authorization code"
// @Param       state  query  string  false  "State issued with the consent URL"
// @Param       error  query  string  false  "Provider error"
// @Success     200  {string}  string  "HTML page"
// @Failure     400  {string}  string  "HTML page"
// @Router      /admin/mailbox/callback [get]
func (h *Handlers) MailboxCallback(c *gin.Context) {
	ctx := c.Request.Context()
	switch {
	case h.mailbox == nil || !h.mailbox.IsConfigured():
		renderCallback(c, http.StatusServiceUnavailable, callbackData{Error: "Mailbox integration is not configured."})
		return
	case c.Query("error") != "":
		renderCallback(c, http.StatusBadRequest, callbackData{Error: "Provider error: " + c.Query("error")})
		return
	case c.Query("code") == "":
		renderCallback(c, http.StatusBadRequest, callbackData{Error: "No authorization code received."})
		return
	case !h.takeState(ctx, c.Query("state")):
		renderCallback(c, http.StatusBadRequest, callbackData{Error: "Unknown or expired state. Start again from the mailbox status page."})
		return
	}

	rt, err := h.mailbox.Exchange(ctx, c.Query("code"))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("mailbox callback exchange failed")
		renderCallback(c, http.StatusBadGateway, callbackData{Error: authorizeMessage(err)})
		return
	}
	renderCallback(c, http.StatusOK, callbackData{Token: rt})
}

// SearchMailbox godoc
// @ID          searchMailbox
// @Summary     Debug mailbox search
// @Description Runs one provider search query. With detailed=true the first three messages are fetched with a 200 character body preview.
// @Tags        Mailbox
// @Produce     json
// @Param       q         query  string  true   "Provider search query"  example(from:jane@example.com)
// @Param       detailed  query  bool    false  "Fetch message previews"
// @Param       max       query  int     false  "Maximum ids"  minimum(1) maximum(50) default(10)
// @Success     200  {object}  handlers.MailboxSearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Query missing"
// @Failure     502  {object}  handlers.ErrorResponse  "Search failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Mailbox not configured or connected"
// @Router      /admin/mailbox/search [get]
func (h *Handlers) SearchMailbox(c *gin.Context) {
	if !h.mailboxConfigured(c) {
		return
	}
	ctx := c.Request.Context()
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q is required")
		return
	}
	if !h.mailbox.IsConnected() {
		fail(c, http.StatusServiceUnavailable, ErrCodeMailboxDisconnect, "mailbox not connected")
		return
	}
	max := utils.AtoiDefault(c.Query("max"), 10)
	if max < 1 {
		max = 1
	}
	if max > maxDebugResults {
		max = maxDebugResults
	}

	lg := log.Ctx(ctx)
	lg.Info().Str("query", redactor.String(q)).Int("max", max).Msg("mailbox debug search")

	ids, err := h.mailbox.Search(ctx, q, max)
	if err != nil {
		lg.Warn().Err(err).Msg("mailbox debug search failed")
		fail(c, http.StatusBadGateway, ErrCodeSearchFailed, "mailbox search failed")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	resp := MailboxSearchResponse{Query: q, Count: len(ids), MessageIDs: ids}

	if c.Query("detailed") == "true" {
		resp.Details = []MessagePreview{}
		for i, id := range ids {
			if i == debugDetails {
				break
			}
			m, err := h.mailbox.Message(ctx, id)
			if err != nil {
				lg.Warn().Err(err).Str("message_id", id).Msg("mailbox debug fetch failed")
				continue
			}
			resp.Details = append(resp.Details, MessagePreview{
				ID:          m.ID,
				From:        m.From,
				To:          m.To,
				Subject:     m.Subject,
				Date:        m.Timestamp,
				BodyPreview: preview(m.Body, debugPreviewRunes),
			})
		}
	}
	ok(c, http.StatusOK, resp)
}

func (h *Handlers) mailboxConfigured(c *gin.Context) bool {
	if h.mailbox == nil || !h.mailbox.IsConfigured() {
		fail(c, http.StatusServiceUnavailable, ErrCodeMailboxNotReady, "mailbox not configured")
		return false
	}
	return true
}

func (h *Handlers) newState(ctx context.Context) string {
	s := uuid.NewString()
	h.states.Set(ctx, s, true, oauthStateTTL)
	return s
}

// takeState consumes a state issued by newState.
func (h *Handlers) takeState(ctx context.Context, s string) bool {
	if s == "" {
		return false
	}
	if _, found := h.states.Get(ctx, s); !found {
		return false
	}
	h.states.Delete(ctx, s)
	return true
}

func authorizeMessage(err error) string {
	if errors.Is(err, mailbox.ErrNoRefreshToken) {
		return mailbox.ErrNoRefreshToken.Error()
	}
	return "authorization failed"
}

func renderCallback(c *gin.Context, status int, d callbackData) {
	var buf bytes.Buffer
	if err := callbackPage.Execute(&buf, d); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "render failed")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// preview cuts s to n runes, marking the cut with "...".
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
