package mailer

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// LogSender writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m *Message) error {
	log.Ctx(ctx).Info().
		Str("to", strings.Join(m.To, ",")).
		Str("subject", m.Subject).
		Str("message_id", m.MessageID).
		Msg("mail not sent: smtp not configured")
	return nil
}

func (LogSender) Verify(context.Context) error { return nil }
