// Package services – ReplyService
//
// ReplyService sends an admin reply by email and records it in the reply
// store. The email goes out first; a reply is only stored once the transport
// accepted it, and the contact is then marked read.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
	"github.com/tbourn/go-portfolio-backend/internal/repo"
)

// ReplyMailer delivers an admin reply threaded onto the contact's message.
type ReplyMailer interface {
	Reply(ctx context.Context, c *domain.ContactSubmission, body string) error
}

// ReplyService coordinates reply delivery and persistence.
type ReplyService struct {
	DB     *gorm.DB
	Mailer ReplyMailer

	// Threads, when set, has its cached mailbox results dropped after a reply.
	Threads ThreadInvalidator

	// SenderEmail is stored on every reply (the configured FROM address).
	SenderEmail   string
	MaxReplyRunes int
}

// NewReplyService makes sure the reply table exists and returns the service.
func NewReplyService(db *gorm.DB, m ReplyMailer, senderEmail string) (*ReplyService, error) {
	if err := repo.EnsureReplySchema(db); err != nil {
		return nil, storageErr("ensure reply schema", err)
	}
	return &ReplyService{
		DB:            db,
		Mailer:        m,
		SenderEmail:   senderEmail,
		MaxReplyRunes: 10000,
	}, nil
}

// Send emails body to the contact, stores the reply and marks the contact
// read. senderName defaults to "Admin".
func (s *ReplyService) Send(ctx context.Context, contactID uint, body, senderName string) (*domain.AdminReply, error) {
	ctx, span := otel.Tracer("services/ReplyService").Start(ctx, "Send",
		trace.WithAttributes(attribute.Int64("contact.id", int64(contactID))),
	)
	defer span.End()
	lg := log.Ctx(ctx)

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyReply
	}
	if s.MaxReplyRunes > 0 && utf8.RuneCountInString(body) > s.MaxReplyRunes {
		return nil, ErrReplyTooLong
	}
	senderName = strings.TrimSpace(senderName)
	if senderName == "" {
		senderName = "Admin"
	}

	c, err := repo.GetContact(ctx, s.DB, contactID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		lg.Error().Err(err).Uint("contact_id", contactID).Msg("load contact for reply failed")
		return nil, storageErr("get contact", err)
	}

	if s.Mailer != nil {
		if err := s.Mailer.Reply(ctx, c, body); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "send failed")
			lg.Error().Err(err).Uint("contact_id", contactID).Msg("reply email failed")
			return nil, ErrSendFailed
		}
	}

	reply, err := repo.CreateReply(ctx, s.DB, contactID, body, senderName, s.SenderEmail)
	if err != nil {
		lg.Error().Err(err).Uint("contact_id", contactID).Msg("save reply failed")
		return nil, storageErr("save reply", err)
	}
	lg.Info().Uint("contact_id", contactID).Uint("reply_id", reply.ID).Msg("reply sent")

	if _, err := repo.MarkContactRead(ctx, s.DB, contactID); err != nil {
		lg.Error().Err(err).Uint("contact_id", contactID).Msg("mark read after reply failed")
		return reply, storageErr("mark read", err)
	}
	if s.Threads != nil {
		s.Threads.InvalidateContact(ctx, contactID)
	}
	return reply, nil
}

// Replies returns the stored replies for a contact, oldest first.
func (s *ReplyService) Replies(ctx context.Context, contactID uint) ([]domain.AdminReply, error) {
	ctx, span := otel.Tracer("services/ReplyService").Start(ctx, "Replies",
		trace.WithAttributes(attribute.Int64("contact.id", int64(contactID))),
	)
	defer span.End()

	items, err := repo.ListReplies(ctx, s.DB, contactID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Uint("contact_id", contactID).Msg("list replies failed")
		return nil, storageErr("list replies", err)
	}
	return items, nil
}
