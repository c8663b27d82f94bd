// Package services – ContactService
//
// This file implements ContactService, which owns the lifecycle of contact
// form submissions: validation and normalization of the visitor's input,
// persistence, owner notification and auto-reply, admin listing, read state
// and deletion. Store failures are hard errors wrapped in *StorageError;
// outbound mail failures on submission are logged and swallowed.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
	"github.com/tbourn/go-portfolio-backend/internal/repo"
	"github.com/tbourn/go-portfolio-backend/internal/utils"
)

// DefaultSubject is stored when the visitor leaves the subject blank.
const DefaultSubject = "New Contact Form Message"

// ContactRepo defines the repository contract required by ContactService.
type ContactRepo interface {
	CreateContact(ctx context.Context, db *gorm.DB, c *domain.ContactSubmission) error
	GetContact(ctx context.Context, db *gorm.DB, id uint) (*domain.ContactSubmission, error)
	ListContactsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ContactSubmission, error)
	CountContacts(ctx context.Context, db *gorm.DB) (int64, error)
	CountUnread(ctx context.Context, db *gorm.DB) (int64, error)
	MarkContactRead(ctx context.Context, db *gorm.DB, id uint) (bool, error)
	DeleteContact(ctx context.Context, db *gorm.DB, id uint) error
	DeleteRepliesForContact(ctx context.Context, db *gorm.DB, contactID uint) (int64, error)

	// Idempotency-Key bookkeeping for Submit.
	GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key string, contactID uint, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// Notifier sends the emails triggered by a new submission.
type Notifier interface {
	NotifyOwner(ctx context.Context, c *domain.ContactSubmission) error
	AutoReply(ctx context.Context, c *domain.ContactSubmission) error
}

// ThreadInvalidator drops cached mailbox results for a contact.
type ThreadInvalidator interface {
	InvalidateContact(ctx context.Context, id uint)
}

// ContactService manages contact submissions.
type ContactService struct {
	DB   *gorm.DB
	Repo ContactRepo

	// Optional collaborators.
	Notifier Notifier
	Threads  ThreadInvalidator

	MinMessageRunes int
	MaxMessageRunes int
	IdempotencyTTL  time.Duration

	now func() time.Time
}

// NewContactService returns a ContactService with the default message limits
// (10..5000 runes) and a 24h idempotency window.
func NewContactService(db *gorm.DB, r ContactRepo) *ContactService {
	return &ContactService{
		DB:              db,
		Repo:            r,
		MinMessageRunes: 10,
		MaxMessageRunes: 5000,
		IdempotencyTTL:  24 * time.Hour,
		now:             time.Now,
	}
}

// SubmitInput is the raw submission plus capture metadata.
type SubmitInput struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	Phone     string
	Timestamp *time.Time

	IPAddress string
	UserAgent string
	Referrer  string

	// IdempotencyKey, when set, makes retries within the TTL return the
	// first submission. Keys are scoped by IPAddress.
	IdempotencyKey string
}

var (
	nameRE  = regexp.MustCompile(`^[\p{L}\s\-'.]+$`)
	phoneRE = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	spaceRE = regexp.MustCompile(`\s+`)
)

// Validate normalizes in (trim, NFC, lowercase email, stripped phone,
// defaults) and checks it. It returns a *ValidationError listing every
// failing field.
func (s *ContactService) Validate(in *SubmitInput) error {
	in.Name = spaceRE.ReplaceAllString(strings.TrimSpace(norm.NFC.String(in.Name)), " ")
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Subject = strings.TrimSpace(norm.NFC.String(in.Subject))
	in.Message = strings.TrimSpace(norm.NFC.String(in.Message))
	in.Phone = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(in.Phone))
	in.UserAgent = strings.TrimSpace(in.UserAgent)
	in.Referrer = strings.TrimSpace(in.Referrer)

	v := &ValidationError{}

	if n := utf8.RuneCountInString(in.Name); n < 2 || n > 100 {
		v.add("name", "Name must be between 2 and 100 characters")
	} else if !nameRE.MatchString(in.Name) {
		v.add("name", "Name can only contain letters, spaces, hyphens, apostrophes, and periods")
	}

	if !validEmail(in.Email) {
		v.add("email", "Please provide a valid email address")
	}

	if n := utf8.RuneCountInString(in.Subject); n > 200 {
		v.add("subject", "Subject must be less than 200 characters")
	}

	minLen, maxLen := s.MinMessageRunes, s.MaxMessageRunes
	if n := utf8.RuneCountInString(in.Message); n < minLen || (maxLen > 0 && n > maxLen) {
		v.add("message", fmt.Sprintf("Message must be between %d and %d characters", minLen, maxLen))
	}

	if in.Phone != "" && !phoneRE.MatchString(in.Phone) {
		v.add("phone", "Please provide a valid phone number")
	}

	if in.Subject == "" {
		in.Subject = DefaultSubject
	}
	if in.UserAgent == "" {
		in.UserAgent = "unknown"
	}
	if in.Referrer == "" {
		in.Referrer = "direct"
	}
	return v.orNil()
}

// validEmail accepts a bare RFC 5322 address with a dotted domain.
func validEmail(s string) bool {
	if s == "" || len(s) > 255 {
		return false
	}
	a, err := mail.ParseAddress(s)
	if err != nil || a.Name != "" || !strings.EqualFold(a.Address, s) {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	dom := s[at+1:]
	return strings.Contains(dom, ".") && !strings.HasPrefix(dom, ".") && !strings.HasSuffix(dom, ".")
}

// Submit validates and stores a submission, then notifies the owner and
// sends the visitor an auto-reply. Mail failures never fail the submission.
//
// When in.IdempotencyKey matches an earlier submission from the same client,
// that submission is returned with replayed=true and nothing is sent.
func (s *ContactService) Submit(ctx context.Context, in SubmitInput) (c *domain.ContactSubmission, replayed bool, err error) {
	ctx, span := otel.Tracer("services/ContactService").Start(ctx, "Submit",
		trace.WithAttributes(attribute.Bool("idempotency.key_present", in.IdempotencyKey != "")),
	)
	defer span.End()
	lg := log.Ctx(ctx)

	if in.IdempotencyKey != "" {
		if prev := s.replay(ctx, in.IPAddress, in.IdempotencyKey); prev != nil {
			span.SetAttributes(attribute.Bool("idempotency.replay", true))
			return prev, true, nil
		}
	}

	if err := s.Validate(&in); err != nil {
		return nil, false, err
	}

	c = &domain.ContactSubmission{
		Name:      in.Name,
		Email:     in.Email,
		Subject:   in.Subject,
		Message:   in.Message,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Referrer:  in.Referrer,
		Timestamp: in.Timestamp,
	}
	if in.Phone != "" {
		phone := in.Phone
		c.Phone = &phone
	}
	if c.Timestamp == nil {
		ts := s.clock().UTC()
		c.Timestamp = &ts
	}

	if err := s.Repo.CreateContact(ctx, s.DB, c); err != nil {
		lg.Error().Err(err).Msg("save contact failed")
		return nil, false, storageErr("save contact", err)
	}
	span.SetAttributes(attribute.Int64("contact.id", int64(c.ID)))
	lg.Info().Uint("contact_id", c.ID).Msg("contact saved")

	if in.IdempotencyKey != "" {
		_, ierr := s.Repo.CreateIdempotency(ctx, s.DB, in.IPAddress, in.IdempotencyKey, c.ID, 201, s.IdempotencyTTL)
		if ierr != nil && !errors.Is(ierr, repo.ErrDuplicate) {
			lg.Warn().Err(ierr).Uint("contact_id", c.ID).Msg("store idempotency key failed")
		}
	}

	s.notify(ctx, c)
	return c, false, nil
}

// replay returns the contact recorded for (scope, key), or nil.
func (s *ContactService) replay(ctx context.Context, scope, key string) *domain.ContactSubmission {
	rec, err := s.Repo.GetIdempotency(ctx, s.DB, scope, key, s.clock().UTC())
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			log.Ctx(ctx).Warn().Err(err).Msg("idempotency lookup failed")
		}
		return nil
	}
	c, err := s.Repo.GetContact(ctx, s.DB, rec.ContactID)
	if err != nil {
		return nil
	}
	return c
}

func (s *ContactService) notify(ctx context.Context, c *domain.ContactSubmission) {
	if s.Notifier == nil {
		return
	}
	lg := log.Ctx(ctx)
	if err := s.Notifier.NotifyOwner(ctx, c); err != nil {
		lg.Error().Err(err).Uint("contact_id", c.ID).Msg("owner notification failed")
	} else {
		lg.Info().Uint("contact_id", c.ID).Msg("owner notified")
	}
	if err := s.Notifier.AutoReply(ctx, c); err != nil {
		lg.Error().Err(err).Uint("contact_id", c.ID).Msg("auto-reply failed")
	}
}

// List returns up to limit contacts starting at offset, newest first.
func (s *ContactService) List(ctx context.Context, limit, offset int) ([]domain.ContactSubmission, error) {
	ctx, span := otel.Tracer("services/ContactService").Start(ctx, "List",
		trace.WithAttributes(attribute.Int("limit", limit), attribute.Int("offset", offset)),
	)
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	items, err := s.Repo.ListContactsPage(ctx, s.DB, offset, limit)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("list contacts failed")
		return nil, storageErr("list contacts", err)
	}
	return items, nil
}

// ListPage returns a page of contacts and the total count. Invalid page or
// pageSize values fall back to 1 and 20.
func (s *ContactService) ListPage(ctx context.Context, page, pageSize int) ([]domain.ContactSubmission, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	total, err := s.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ContactSubmission{}, 0, nil
	}
	items, err := s.List(ctx, pageSize, utils.Offset(page, pageSize))
	return items, total, err
}

// Count returns the number of stored contacts.
func (s *ContactService) Count(ctx context.Context) (int64, error) {
	n, err := s.Repo.CountContacts(ctx, s.DB)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("count contacts failed")
		return 0, storageErr("count contacts", err)
	}
	return n, nil
}

// UnreadCount returns the number of contacts not yet read.
func (s *ContactService) UnreadCount(ctx context.Context) (int64, error) {
	n, err := s.Repo.CountUnread(ctx, s.DB)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("count unread failed")
		return 0, storageErr("count unread", err)
	}
	return n, nil
}

// Get returns one contact or ErrContactNotFound.
func (s *ContactService) Get(ctx context.Context, id uint) (*domain.ContactSubmission, error) {
	ctx, span := otel.Tracer("services/ContactService").Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("contact.id", int64(id))),
	)
	defer span.End()

	c, err := s.Repo.GetContact(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Uint("contact_id", id).Msg("get contact failed")
		return nil, storageErr("get contact", err)
	}
	return c, nil
}

// MarkRead flags a contact as read. It is idempotent; an unknown id is
// logged and ignored.
func (s *ContactService) MarkRead(ctx context.Context, id uint) error {
	ctx, span := otel.Tracer("services/ContactService").Start(ctx, "MarkRead",
		trace.WithAttributes(attribute.Int64("contact.id", int64(id))),
	)
	defer span.End()
	lg := log.Ctx(ctx)

	changed, err := s.Repo.MarkContactRead(ctx, s.DB, id)
	if err != nil {
		lg.Error().Err(err).Uint("contact_id", id).Msg("mark read failed")
		return storageErr("mark read", err)
	}
	if changed {
		lg.Info().Uint("contact_id", id).Msg("contact marked read")
		return nil
	}
	if _, err := s.Repo.GetContact(ctx, s.DB, id); errors.Is(err, gorm.ErrRecordNotFound) {
		lg.Warn().Uint("contact_id", id).Msg("mark read: contact not found")
	}
	return nil
}

// Delete removes a contact and its replies. Replies are deleted first in
// their own statement; there is no surrounding transaction.
func (s *ContactService) Delete(ctx context.Context, id uint) error {
	ctx, span := otel.Tracer("services/ContactService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("contact.id", int64(id))),
	)
	defer span.End()
	lg := log.Ctx(ctx)

	n, err := s.Repo.DeleteRepliesForContact(ctx, s.DB, id)
	if err != nil {
		lg.Error().Err(err).Uint("contact_id", id).Msg("delete replies failed")
		return storageErr("delete replies", err)
	}
	if err := s.Repo.DeleteContact(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContactNotFound
		}
		lg.Error().Err(err).Uint("contact_id", id).Msg("delete contact failed")
		return storageErr("delete contact", err)
	}
	if s.Threads != nil {
		s.Threads.InvalidateContact(ctx, id)
	}
	lg.Info().Uint("contact_id", id).Int64("replies", n).Msg("contact deleted")
	return nil
}

func (s *ContactService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
