package domain

import "time"

// MessageSource tags where a unified message came from.
type MessageSource string

const (
	SourceContactForm MessageSource = "contact-form"
	SourceLocalReply  MessageSource = "local-reply"
	SourceMailbox     MessageSource = "mailbox"
)

// ContactRef is the slice of a contact the mailbox needs to correlate
// external messages with it.
type ContactRef struct {
	ID      uint
	Email   string
	Subject string
}

// Ref returns the mailbox lookup key for c.
func (c ContactSubmission) Ref() ContactRef {
	return ContactRef{ID: c.ID, Email: c.Email, Subject: c.Subject}
}

// ExternalMessage is a message fetched live from the external mailbox. It is
// never persisted; Body is already stripped of quotes and signatures.
type ExternalMessage struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Timestamp  time.Time `json:"timestamp"`
	IsOutgoing bool      `json:"is_outgoing"`
	Source     string    `json:"source"`
}

// UnifiedMessage is one entry of a conversation regardless of origin.
type UnifiedMessage struct {
	ID          string        `json:"id"`
	Source      MessageSource `json:"source"`
	Sender      string        `json:"sender"`
	SenderEmail string        `json:"sender_email,omitempty"`
	Subject     string        `json:"subject,omitempty"`
	Body        string        `json:"body"`
	Timestamp   time.Time     `json:"timestamp"`
	IsOutgoing  bool          `json:"is_outgoing"`
}

// ConversationThread is the time-ordered merge of a contact submission, its
// local replies and any correlated external messages. Messages is sorted
// ascending by timestamp and holds exactly one SourceContactForm entry.
type ConversationThread struct {
	ContactID    uint             `json:"contact_id"`
	ContactName  string           `json:"contact_name"`
	ContactEmail string           `json:"contact_email"`
	Subject      string           `json:"subject"`
	IsRead       bool             `json:"is_read"`
	LastActivity time.Time        `json:"last_activity"`
	Messages     []UnifiedMessage `json:"messages"`
}

// Inbox is one page of conversation summaries for the admin view.
type Inbox struct {
	Conversations []ConversationThread `json:"conversations"`
	MailboxActive bool                 `json:"mailbox_active"`
	Total         int64                `json:"total"`
}
