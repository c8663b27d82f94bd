package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-portfolio-backend/internal/cache"
	"github.com/tbourn/go-portfolio-backend/internal/domain"
	"github.com/tbourn/go-portfolio-backend/internal/services"
	"github.com/tbourn/go-portfolio-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ContactService covers the contact store operations exposed over HTTP.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ContactService interface {
	// Submit validates and stores a submission. replayed is true when an
	// idempotency key matched an earlier submission.
	Submit(ctx context.Context, in services.SubmitInput) (c *domain.ContactSubmission, replayed bool, err error)
	// ListPage returns a page of contacts, newest first, and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.ContactSubmission, int64, error)
	Count(ctx context.Context) (int64, error)
	UnreadCount(ctx context.Context) (int64, error)
	Get(ctx context.Context, id uint) (*domain.ContactSubmission, error)
	MarkRead(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

// ReplyService sends and lists admin replies.
type ReplyService interface {
	Send(ctx context.Context, contactID uint, body, senderName string) (*domain.AdminReply, error)
	Replies(ctx context.Context, contactID uint) ([]domain.AdminReply, error)
}

// ConversationService assembles unified threads.
type ConversationService interface {
	Thread(ctx context.Context, contactID uint) (*domain.ConversationThread, error)
	Inbox(ctx context.Context, limit, offset int) (*domain.Inbox, error)
}

// EmailChecker answers deliverability checks.
type EmailChecker interface {
	Check(ctx context.Context, email string) services.EmailCheck
}

// Mailbox is the admin view of the external mailbox integration.
type Mailbox interface {
	IsConfigured() bool
	IsConnected() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	TestConnection(ctx context.Context) bool
	Search(ctx context.Context, query string, max int) ([]string, error)
	Message(ctx context.Context, id string) (*domain.ExternalMessage, error)
}

// TransportVerifier checks the outbound mail transport.
type TransportVerifier interface {
	Verify(ctx context.Context) error
}

//
// Handler wiring
//

// Deps lists the collaborators of Handlers. Mailbox and Transport may be nil.
type Deps struct {
	Contacts      ContactService
	Replies       ReplyService
	Conversations ConversationService
	Emails        EmailChecker
	Mailbox       Mailbox
	Transport     TransportVerifier
	// PageSize is the default inbox page size.
	PageSize int
	// Version is reported by the health endpoints.
	Version string
}

// Handlers groups the HTTP endpoints of the contact backend. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	contacts ContactService
	replies  ReplyService
	convs    ConversationService
	emails   EmailChecker
	mailbox  Mailbox
	smtp     TransportVerifier
	pageSize int
	version  string

	// pending OAuth states issued by MailboxStatus
	states  *cache.Memory[bool]
	started time.Time
}

// New constructs Handlers bound to the given services.
func New(d Deps) *Handlers {
	if d.PageSize <= 0 {
		d.PageSize = 20
	}
	return &Handlers{
		contacts: d.Contacts,
		replies:  d.Replies,
		convs:    d.Conversations,
		emails:   d.Emails,
		mailbox:  d.Mailbox,
		smtp:     d.Transport,
		pageSize: d.PageSize,
		version:  d.Version,
		states:   cache.NewMemory[bool](),
		started:  time.Now(),
	}
}

// SweepStates drops expired OAuth states and returns how many were removed.
func (h *Handlers) SweepStates() int { return h.states.Sweep() }

//
// Shared DTOs and helpers
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	tp := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: tp,
		HasNext:    page < tp,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context, defaultPageSize int) (page, pageSize int) {
	const (
		defaultPage = 1
		maxPageSize = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// pathID parses the named path parameter, answering 400 when it is not a
// positive integer.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := utils.ParseID(c.Param(name))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid contact id")
		return 0, false
	}
	return id, true
}

// dbOf returns the database handle behind the concrete contact service, for
// cheap ETag probes. Other implementations get nil.
func dbOf(s ContactService) *gorm.DB {
	if cs, ok := s.(*services.ContactService); ok {
		return cs.DB
	}
	return nil
}
