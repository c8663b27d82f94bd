// Package services – ConversationService
//
// ConversationService merges a contact submission, the admin's stored
// replies and any correlated messages from the external mailbox into one
// time-ordered ConversationThread, and builds the admin inbox from those
// threads. The mailbox is an enhancement: when it is unconfigured,
// disconnected or failing, threads are assembled from local data only.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
	"github.com/tbourn/go-portfolio-backend/internal/repo"
)

// MailboxClient is the part of the mailbox integration the assembler needs.
// Fetch methods never fail; they return empty results when degraded.
type MailboxClient interface {
	IsConfigured() bool
	IsConnected() bool
	TestConnection(ctx context.Context) bool
	FetchContactReplies(ctx context.Context, c domain.ContactRef) []domain.ExternalMessage
	ThreadsForContacts(ctx context.Context, contacts []domain.ContactRef) map[uint][]domain.ExternalMessage
}

// ConversationService assembles conversation threads.
type ConversationService struct {
	DB      *gorm.DB
	Mailbox MailboxClient // optional

	// PageSize bounds the inbox page; every contact on a page can cost up to
	// twelve mailbox searches.
	PageSize int
}

// NewConversationService returns a service with the default inbox page size.
func NewConversationService(db *gorm.DB, mb MailboxClient) *ConversationService {
	return &ConversationService{DB: db, Mailbox: mb, PageSize: 20}
}

// Thread assembles the full conversation for one contact. Reply store and
// mailbox failures degrade to fewer messages; only a missing contact or a
// failed contact read is an error.
//
// A read contact whose newest message is an incoming external one newer than
// the contact's last known activity and its latest local reply is returned
// unread. The stored flag is not changed here.
func (s *ConversationService) Thread(ctx context.Context, contactID uint) (*domain.ConversationThread, error) {
	ctx, span := otel.Tracer("services/ConversationService").Start(ctx, "Thread",
		trace.WithAttributes(attribute.Int64("contact.id", int64(contactID))),
	)
	defer span.End()
	lg := log.Ctx(ctx)

	c, err := repo.GetContact(ctx, s.DB, contactID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		lg.Error().Err(err).Uint("contact_id", contactID).Msg("load contact failed")
		return nil, storageErr("get contact", err)
	}

	replies, err := repo.ListReplies(ctx, s.DB, contactID)
	if err != nil {
		lg.Warn().Err(err).Uint("contact_id", contactID).Msg("load replies failed; continuing without them")
		replies = nil
	}

	var external []domain.ExternalMessage
	if s.mailboxUsable() {
		external = s.Mailbox.FetchContactReplies(ctx, c.Ref())
	}

	t, _ := buildThread(c, replies, external, time.Time{})
	span.SetAttributes(
		attribute.Int("thread.messages", len(t.Messages)),
		attribute.Int("thread.external", len(external)),
	)
	return t, nil
}

// Inbox returns one page of conversation summaries, most recent activity
// first. Summaries carry the origin message and matched external messages;
// local replies are only loaded by Thread.
//
// Contacts re-opened by a newer incoming external message are persisted as
// unread. The latest local reply per contact counts as known activity, so the
// mailbox copy of an admin reply never re-opens a thread.
func (s *ConversationService) Inbox(ctx context.Context, limit, offset int) (*domain.Inbox, error) {
	if limit <= 0 {
		limit = s.PageSize
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	ctx, span := otel.Tracer("services/ConversationService").Start(ctx, "Inbox",
		trace.WithAttributes(attribute.Int("limit", limit), attribute.Int("offset", offset)),
	)
	defer span.End()
	lg := log.Ctx(ctx)

	contacts, err := repo.ListContactsPage(ctx, s.DB, offset, limit)
	if err != nil {
		lg.Error().Err(err).Msg("list contacts for inbox failed")
		return nil, storageErr("list contacts", err)
	}
	total, err := repo.CountContacts(ctx, s.DB)
	if err != nil {
		lg.Error().Err(err).Msg("count contacts for inbox failed")
		return nil, storageErr("count contacts", err)
	}

	active := false
	switch {
	case s.Mailbox == nil || !s.Mailbox.IsConfigured():
		lg.Warn().Msg("mailbox not configured; inbox shows local messages only")
	case !s.Mailbox.IsConnected():
		lg.Warn().Msg("mailbox not connected; inbox shows local messages only")
	case !s.Mailbox.TestConnection(ctx):
		lg.Warn().Msg("mailbox connectivity check failed; skipping external fetch")
	default:
		active = true
	}

	var external map[uint][]domain.ExternalMessage
	if active {
		refs := make([]domain.ContactRef, 0, len(contacts))
		for i := range contacts {
			refs = append(refs, contacts[i].Ref())
		}
		external = s.Mailbox.ThreadsForContacts(ctx, refs)
	}

	out := make([]domain.ConversationThread, 0, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		var repliedAt time.Time
		if len(external[c.ID]) > 0 {
			_, latest, err := repo.RepliesStats(ctx, s.DB, c.ID)
			if err != nil {
				lg.Warn().Err(err).Uint("contact_id", c.ID).Msg("reply stats failed; re-open check uses contact activity only")
			} else if latest != nil {
				repliedAt = *latest
			}
		}
		t, reopenedAt := buildThread(c, nil, external[c.ID], repliedAt)
		if !reopenedAt.IsZero() {
			if _, err := repo.MarkContactUnread(ctx, s.DB, c.ID, reopenedAt); err != nil {
				lg.Error().Err(err).Uint("contact_id", c.ID).Msg("persist re-open failed")
			} else {
				lg.Info().Uint("contact_id", c.ID).Msg("conversation re-opened by external reply")
			}
		}
		out = append(out, *t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})

	span.SetAttributes(attribute.Bool("mailbox.active", active), attribute.Int("inbox.size", len(out)))
	return &domain.Inbox{Conversations: out, MailboxActive: active, Total: total}, nil
}

func (s *ConversationService) mailboxUsable() bool {
	return s.Mailbox != nil && s.Mailbox.IsConfigured() && s.Mailbox.IsConnected()
}

// buildThread merges the three sources and applies the re-open rule. The
// baseline for the rule is the latest of the contact's own activity,
// repliedAt and every reply passed in. The returned time is the timestamp of
// the re-opening external message, or zero when the thread was not re-opened.
func buildThread(c *domain.ContactSubmission, replies []domain.AdminReply, external []domain.ExternalMessage, repliedAt time.Time) (*domain.ConversationThread, time.Time) {
	seen := c.LastKnownActivity()
	if repliedAt.After(seen) {
		seen = repliedAt
	}
	msgs := make([]domain.UnifiedMessage, 0, 1+len(replies)+len(external))
	msgs = append(msgs, domain.UnifiedMessage{
		ID:          fmt.Sprintf("contact-%d", c.ID),
		Source:      domain.SourceContactForm,
		Sender:      c.Name,
		SenderEmail: c.Email,
		Subject:     c.Subject,
		Body:        c.Message,
		Timestamp:   c.CreatedAt,
		IsOutgoing:  false,
	})
	for _, r := range replies {
		if r.CreatedAt.After(seen) {
			seen = r.CreatedAt
		}
		msgs = append(msgs, domain.UnifiedMessage{
			ID:          fmt.Sprintf("reply-%d", r.ID),
			Source:      domain.SourceLocalReply,
			Sender:      r.Sender,
			SenderEmail: r.SenderEmail,
			Subject:     replySubject(c.Subject),
			Body:        r.Message,
			Timestamp:   r.CreatedAt,
			IsOutgoing:  true,
		})
	}
	for _, m := range external {
		msgs = append(msgs, domain.UnifiedMessage{
			ID:          m.ID,
			Source:      domain.SourceMailbox,
			Sender:      m.From,
			SenderEmail: m.From,
			Subject:     m.Subject,
			Body:        m.Body,
			Timestamp:   m.Timestamp,
			IsOutgoing:  m.IsOutgoing,
		})
	}

	// Ties keep append order: origin, local replies, external.
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})

	last := msgs[len(msgs)-1]
	t := &domain.ConversationThread{
		ContactID:    c.ID,
		ContactName:  c.Name,
		ContactEmail: c.Email,
		Subject:      c.Subject,
		IsRead:       c.IsRead,
		LastActivity: last.Timestamp,
		Messages:     msgs,
	}

	var reopenedAt time.Time
	if c.IsRead && last.Source == domain.SourceMailbox && !last.IsOutgoing && last.Timestamp.After(seen) {
		t.IsRead = false
		reopenedAt = last.Timestamp
	}
	return t, reopenedAt
}

func replySubject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "re:") {
		return s
	}
	return "Re: " + s
}
