// Package mailer renders and delivers the site's outbound email: the owner
// notification for a new contact, the auto-reply to the visitor, and admin
// replies threaded onto the original submission.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Message is a rendered email. Message ids are bare ("id@domain"); angle
// brackets are added when the header is written.
type Message struct {
	FromName string
	From     string
	To       []string
	ReplyTo  string
	Subject  string
	Text     string
	HTML     string

	MessageID  string
	InReplyTo  string
	References []string
	Date       time.Time
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

// Verifier is implemented by senders that can check their transport.
type Verifier interface {
	Verify(ctx context.Context) error
}

// Compose renders m as an RFC 5322 message with a text part and, when set,
// an HTML alternative.
func Compose(m *Message) ([]byte, error) {
	if m.From == "" || len(m.To) == 0 {
		return nil, errors.New("compose: from and at least one recipient are required")
	}

	var h mail.Header
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Name: m.FromName, Address: m.From}})
	to := make([]*mail.Address, 0, len(m.To))
	for _, addr := range m.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)
	if m.ReplyTo != "" {
		h.SetAddressList("Reply-To", []*mail.Address{{Address: m.ReplyTo}})
	}
	h.SetSubject(m.Subject)
	if m.MessageID != "" {
		h.SetMessageID(m.MessageID)
	}
	if m.InReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{m.InReplyTo})
	}
	if len(m.References) > 0 {
		h.SetMsgIDList("References", m.References)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("compose: create writer: %w", err)
	}
	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("compose: create inline: %w", err)
	}
	if err := writePart(iw, "text/plain", m.Text); err != nil {
		return nil, err
	}
	if m.HTML != "" {
		if err := writePart(iw, "text/html", m.HTML); err != nil {
			return nil, err
		}
	}
	if err := iw.Close(); err != nil {
		return nil, fmt.Errorf("compose: close inline: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("compose: close message: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(iw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := iw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("compose: create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("compose: write %s part: %w", contentType, err)
	}
	return w.Close()
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewMessageID returns a unique bare message id under domain.
func NewMessageID(domain string) (string, error) {
	id, err := gonanoid.Generate(idAlphabet, 12)
	if err != nil {
		return "", fmt.Errorf("generate message id: %w", err)
	}
	return fmt.Sprintf("%d.%s@%s", time.Now().UnixMicro(), id, domain), nil
}

// ContactMessageID is the stable id of the notification for a contact. Replies
// reference it so mail clients thread them together.
func ContactMessageID(contactID uint, domain string) string {
	return fmt.Sprintf("contact-%d@%s", contactID, domain)
}
