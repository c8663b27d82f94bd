// Contact HTTP handlers.
//
// This file exposes REST endpoints for contact submissions:
//   - POST   /contact                 (submit, public, idempotent)
//   - POST   /contact/validate-email  (deliverability check, public)
//   - GET    /contact                 (list, paginated, ETag support)
//   - GET    /contact/unread-count
//   - GET    /contact/{id}
//   - PATCH  /contact/{id}/read
//   - DELETE /contact/{id}
//
// Idempotency:
// If the client supplies an Idempotency-Key header and an earlier submission
// from the same client used it, the handler answers 200 with that
// submission's id and sets `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
	"github.com/tbourn/go-portfolio-backend/internal/http/middleware"
	"github.com/tbourn/go-portfolio-backend/internal/repo"
	"github.com/tbourn/go-portfolio-backend/internal/services"
)

//
// DTOs
//

// SubmitContactRequest is the public contact form payload. Optional capture
// fields fall back to request headers.
type SubmitContactRequest struct {
	Name      string     `json:"name"       example:"Jane Doe"`
	Email     string     `json:"email"      example:"jane@example.com"`
	Subject   string     `json:"subject"    example:"Project inquiry"`
	Message   string     `json:"message"    example:"Hi, I would like to talk about a project."`
	Phone     string     `json:"phone"      example:"+30 210 555 1234"`
	Timestamp *time.Time `json:"timestamp"  example:"2025-01-15T10:00:00Z"`
	UserAgent string     `json:"userAgent"`
	Referrer  string     `json:"referrer"`
}

// SubmitContactResponse acknowledges a stored submission.
type SubmitContactResponse struct {
	ID        uint      `json:"id"        example:"42"`
	Message   string    `json:"message"   example:"Message sent successfully! I'll get back to you soon."`
	Timestamp time.Time `json:"timestamp"`
}

// ListContactsResponse wraps a page of contacts and pagination information.
type ListContactsResponse struct {
	Contacts   []domain.ContactSubmission `json:"contacts"`
	Pagination Pagination                 `json:"pagination"`
}

// UnreadCountResponse carries the unread contact count.
type UnreadCountResponse struct {
	Count int64 `json:"count" example:"3"`
}

// ValidateEmailRequest is the deliverability check payload.
type ValidateEmailRequest struct {
	Email string `json:"email" example:"jane@example.com"`
}

// ValidateEmailResponse reports whether an address looks deliverable.
type ValidateEmailResponse struct {
	Valid  bool   `json:"is_valid"`
	Reason string `json:"reason,omitempty" example:"Domain has no mail servers"`
}

const submitAck = "Message sent successfully! I'll get back to you soon."

//
// Handlers
//

// SubmitContact godoc
// @ID          submitContact
// @Summary     Submit the contact form
// @Description Validates and stores a contact submission, then notifies the site owner.
// @Description Supports idempotency via the Idempotency-Key header (same key from the same client → same submission).
// @Tags        Contact
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.SubmitContactRequest  true  "Contact form"
//
// @Success     201  {object}  handlers.SubmitContactResponse
// @Success     200  {object}  handlers.SubmitContactResponse  "Replayed submission"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many submissions"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contact [post]
func (h *Handlers) SubmitContact(c *gin.Context) {
	var req SubmitContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	in := services.SubmitInput{
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		Phone:     req.Phone,
		Timestamp: req.Timestamp,
		IPAddress: middleware.IdempotencyScope(c),
		UserAgent: firstNonEmpty(req.UserAgent, c.GetHeader("User-Agent")),
		Referrer:  firstNonEmpty(req.Referrer, c.GetHeader("Referer")),
	}
	in.IdempotencyKey, _ = middleware.GetIdempotencyKey(c)

	contact, replayed, err := h.contacts.Submit(c.Request.Context(), in)
	if err != nil {
		failService(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		c.Header("Idempotency-Replayed", "true")
		status = http.StatusOK
	}
	ok(c, status, SubmitContactResponse{ID: contact.ID, Message: submitAck, Timestamp: time.Now().UTC()})
}

// ValidateEmail godoc
// @ID          validateEmail
// @Summary     Check an email address
// @Description Checks syntax and that the domain publishes MX records. Results are cached per domain.
// @Tags        Contact
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ValidateEmailRequest  true  "Address to check"
// @Success     200  {object}  handlers.ValidateEmailResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Email missing"
// @Router      /contact/validate-email [post]
func (h *Handlers) ValidateEmail(c *gin.Context) {
	var req ValidateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, services.ReasonRequired)
		return
	}
	res := h.emails.Check(c.Request.Context(), req.Email)
	ok(c, http.StatusOK, ValidateEmailResponse{Valid: res.Valid, Reason: res.Reason})
}

// ListContacts godoc
// @ID          listContacts
// @Summary     List contacts (paginated)
// @Description Returns a page of submissions, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Contact
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"contacts:3:1:1700000000\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListContactsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contact [get]
func (h *Handlers) ListContacts(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c, 20)

	// ETag pre-check (best effort).
	if db := dbOf(h.contacts); db != nil {
		count, unread, maxTS, err := repo.ContactsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"contacts:%d:%d:%d:%d:%d"`, count, unread, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.contacts.ListPage(ctx, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ListContactsResponse{
		Contacts:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// UnreadCount godoc
// @ID          unreadCount
// @Summary     Count unread contacts
// @Tags        Contact
// @Produce     json
// @Success     200  {object}  handlers.UnreadCountResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contact/unread-count [get]
func (h *Handlers) UnreadCount(c *gin.Context) {
	n, err := h.contacts.UnreadCount(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, UnreadCountResponse{Count: n})
}

// GetContact godoc
// @ID          getContact
// @Summary     Get one contact
// @Tags        Contact
// @Produce     json
// @Param       id   path  int  true  "Contact ID"  minimum(1)
// @Success     200  {object}  domain.ContactSubmission
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Router      /contact/{id} [get]
func (h *Handlers) GetContact(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	contact, err := h.contacts.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, contact)
}

// MarkRead godoc
// @ID          markContactRead
// @Summary     Mark a contact as read
// @Description Idempotent. Unknown ids are ignored.
// @Tags        Contact
// @Param       id   path  int  true  "Contact ID"  minimum(1)
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contact/{id}/read [patch]
func (h *Handlers) MarkRead(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.contacts.MarkRead(c.Request.Context(), id); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// DeleteContact godoc
// @ID          deleteContact
// @Summary     Delete a contact and its replies
// @Tags        Contact
// @Param       id   path  int  true  "Contact ID"  minimum(1)
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Router      /contact/{id} [delete]
func (h *Handlers) DeleteContact(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.contacts.Delete(c.Request.Context(), id); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
