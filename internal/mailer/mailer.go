package mailer

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
)

// Config holds the addresses and branding used in every template.
type Config struct {
	FromEmail       string // envelope and header sender
	ToEmail         string // owner inbox for notifications
	OwnerName       string
	OwnerTitle      string
	SiteURL         string
	MessageIDDomain string
}

// Mailer renders the site's emails and hands them to a Sender.
type Mailer struct {
	sender Sender
	cfg    Config
}

// New returns a Mailer that delivers through sender.
func New(sender Sender, cfg Config) *Mailer {
	if cfg.OwnerName == "" {
		cfg.OwnerName = "Portfolio"
	}
	return &Mailer{sender: sender, cfg: cfg}
}

// Verify checks the transport when the sender supports it.
func (m *Mailer) Verify(ctx context.Context) error {
	if v, ok := m.sender.(Verifier); ok {
		return v.Verify(ctx)
	}
	return nil
}

type templateData struct {
	Contact *domain.ContactSubmission
	Reply   string
	Owner   string
	Title   string
	SiteURL string
	Site    string
	Sent    string
}

func (m *Mailer) data(c *domain.ContactSubmission, reply string) templateData {
	sent := c.CreatedAt
	if c.Timestamp != nil {
		sent = *c.Timestamp
	}
	return templateData{
		Contact: c,
		Reply:   reply,
		Owner:   m.cfg.OwnerName,
		Title:   m.cfg.OwnerTitle,
		SiteURL: m.cfg.SiteURL,
		Site:    strings.TrimPrefix(strings.TrimPrefix(m.cfg.SiteURL, "https://"), "http://"),
		Sent:    sent.UTC().Format(time.RFC1123),
	}
}

// NotifyOwner sends the new-contact notification. Reply-To is the visitor so
// the owner can answer straight from the mail client.
func (m *Mailer) NotifyOwner(ctx context.Context, c *domain.ContactSubmission) error {
	text, html, err := render(notificationText, notificationHTML, m.data(c, ""))
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, &Message{
		FromName:  "Portfolio Contact Form",
		From:      m.cfg.FromEmail,
		To:        []string{m.cfg.ToEmail},
		ReplyTo:   c.Email,
		Subject:   "New Contact: " + c.Subject,
		Text:      text,
		HTML:      html,
		MessageID: ContactMessageID(c.ID, m.cfg.MessageIDDomain),
	})
}

// AutoReply acknowledges a submission to the visitor.
func (m *Mailer) AutoReply(ctx context.Context, c *domain.ContactSubmission) error {
	text, html, err := render(autoReplyText, autoReplyHTML, m.data(c, ""))
	if err != nil {
		return err
	}
	id, err := NewMessageID(m.cfg.MessageIDDomain)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, &Message{
		FromName:  m.cfg.OwnerName,
		From:      m.cfg.FromEmail,
		To:        []string{c.Email},
		Subject:   "Thank you for contacting me!",
		Text:      text,
		HTML:      html,
		MessageID: id,
	})
}

// Reply sends an admin reply threaded onto the contact's notification.
func (m *Mailer) Reply(ctx context.Context, c *domain.ContactSubmission, body string) error {
	text, html, err := render(replyText, replyHTML, m.data(c, body))
	if err != nil {
		return err
	}
	id, err := NewMessageID(m.cfg.MessageIDDomain)
	if err != nil {
		return err
	}
	origin := ContactMessageID(c.ID, m.cfg.MessageIDDomain)
	return m.sender.Send(ctx, &Message{
		FromName:   m.cfg.OwnerName,
		From:       m.cfg.FromEmail,
		To:         []string{c.Email},
		Subject:    ReplySubject(c.Subject),
		Text:       text,
		HTML:       html,
		MessageID:  id,
		InReplyTo:  origin,
		References: []string{origin},
	})
}

// ReplySubject prefixes "Re: " once.
func ReplySubject(subject string) string {
	s := strings.TrimSpace(subject)
	if strings.HasPrefix(strings.ToLower(s), "re:") {
		return s
	}
	return "Re: " + s
}

func render(t *texttemplate.Template, h *htmltemplate.Template, data templateData) (string, string, error) {
	var tb, hb bytes.Buffer
	if err := t.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	if err := h.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", h.Name(), err)
	}
	return strings.TrimSpace(tb.String()) + "\n", hb.String(), nil
}
