// Conversation HTTP handlers for the admin inbox.
//
//   - GET /admin/conversations              (inbox page)
//   - GET /admin/conversations/{contactId}  (one unified thread)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
	"github.com/tbourn/go-portfolio-backend/internal/utils"
)

// InboxResponse is one page of conversations with pagination metadata.
type InboxResponse struct {
	Conversations []domain.ConversationThread `json:"conversations"`
	MailboxActive bool                        `json:"mailbox_active"`
	Pagination    Pagination                  `json:"pagination"`
}

// Inbox godoc
// @ID          listConversations
// @Summary     Admin inbox
// @Description Returns conversations for a page of contacts, most recent activity first.
// @Description External mailbox replies are merged when the mailbox is connected; a newer external reply marks the contact unread.
// @Tags        Conversations
// @Produce     json
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.InboxResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/conversations [get]
func (h *Handlers) Inbox(c *gin.Context) {
	page, pageSize := clampPagination(c, h.pageSize)

	inbox, err := h.convs.Inbox(c.Request.Context(), pageSize, utils.Offset(page, pageSize))
	if err != nil {
		failService(c, err)
		return
	}
	convs := inbox.Conversations
	if convs == nil {
		convs = []domain.ConversationThread{}
	}
	ok(c, http.StatusOK, InboxResponse{
		Conversations: convs,
		MailboxActive: inbox.MailboxActive,
		Pagination:    newPagination(page, pageSize, inbox.Total),
	})
}

// Thread godoc
// @ID          getConversation
// @Summary     One conversation
// @Description Merges the submission, local replies and external mailbox messages in time order.
// @Tags        Conversations
// @Produce     json
// @Param       contactId  path  int  true  "Contact ID"  minimum(1)
// @Success     200  {object}  domain.ConversationThread
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/conversations/{contactId} [get]
func (h *Handlers) Thread(c *gin.Context) {
	id, valid := pathID(c, "contactId")
	if !valid {
		return
	}
	th, err := h.convs.Thread(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, th)
}
