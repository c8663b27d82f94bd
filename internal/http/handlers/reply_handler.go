// Reply HTTP handlers.
//
//   - GET  /contact/{id}/replies  (local replies, oldest first)
//   - POST /contact/{id}/reply    (email the visitor and record the reply)
//
// The sender name comes from the admin identity asserted by the edge proxy.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
	"github.com/tbourn/go-portfolio-backend/internal/http/middleware"
)

// PostReplyRequest is the JSON payload for replying to a contact.
type PostReplyRequest struct {
	// Message is the reply body. Surrounding whitespace is trimmed.
	Message string `json:"message" example:"Thanks for reaching out! Happy to chat next week."`
}

// ListRepliesResponse wraps the replies of one contact.
type ListRepliesResponse struct {
	Replies []domain.AdminReply `json:"replies"`
}

// PostReply godoc
// @ID          postReply
// @Summary     Reply to a contact
// @Description Sends the reply by email first and records it only when sending succeeded. Marks the contact read.
// @Tags        Replies
// @Accept      json
// @Produce     json
//
// @Param       X-Authenticated-User  header  string  false "Admin identity set by the edge proxy"  example(jane)
// @Param       id                    path    int     true  "Contact ID"  minimum(1)
// @Param       body                  body    handlers.PostReplyRequest  true  "Reply"
//
// @Success     201  {object}  domain.AdminReply
// @Failure     400  {object}  handlers.ErrorResponse  "Empty or too long"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Email could not be sent"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contact/{id}/reply [post]
func (h *Handlers) PostReply(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req PostReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	reply, err := h.replies.Send(c.Request.Context(), id, req.Message, middleware.AdminName(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, reply)
}

// ListReplies godoc
// @ID          listReplies
// @Summary     List local replies of a contact
// @Tags        Replies
// @Produce     json
// @Param       id   path  int  true  "Contact ID"  minimum(1)
// @Success     200  {object}  handlers.ListRepliesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Router      /contact/{id}/replies [get]
func (h *Handlers) ListReplies(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.contacts.Get(ctx, id); err != nil {
		failService(c, err)
		return
	}
	items, err := h.replies.Replies(ctx, id)
	if err != nil {
		failService(c, err)
		return
	}
	if items == nil {
		items = []domain.AdminReply{}
	}
	ok(c, http.StatusOK, ListRepliesResponse{Replies: items})
}
