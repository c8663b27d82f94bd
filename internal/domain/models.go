// Package domain defines the persistence models for contact-form submissions
// and the admin replies sent back to them, plus the derived conversation
// types assembled from those records and the external mailbox.
package domain

import "time"

// ContactSubmission is one inbound message from the public contact form.
//
// Fields:
//   - ID: auto-increment primary key, immutable once assigned.
//   - Name / Email / Subject / Message: what the visitor typed.
//   - Phone: optional, stored normalized (digits with an optional leading '+').
//   - IPAddress / UserAgent / Referrer / Timestamp: capture metadata. Timestamp
//     is the client-supplied submission time and may be nil.
//   - IsRead: false until an admin views or replies. It only goes back to
//     false when a newer external reply re-opens the conversation.
//   - CreatedAt / UpdatedAt: managed by GORM. UpdatedAt moves on mark-read.
type ContactSubmission struct {
	ID        uint       `json:"id"                   gorm:"primaryKey;autoIncrement"`
	Name      string     `json:"name"                 gorm:"type:varchar(100);not null"`
	Email     string     `json:"email"                gorm:"type:varchar(255);not null;index:idx_contacts_email"`
	Subject   string     `json:"subject"              gorm:"type:varchar(200);not null;default:'New Contact Form Message'"`
	Message   string     `json:"message"              gorm:"type:text;not null"`
	Phone     *string    `json:"phone,omitempty"      gorm:"type:varchar(20)"`
	IPAddress string     `json:"ip_address,omitempty" gorm:"type:varchar(64)"`
	UserAgent string     `json:"user_agent,omitempty" gorm:"type:varchar(512)"`
	Referrer  string     `json:"referrer,omitempty"   gorm:"type:varchar(512)"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	IsRead    bool       `json:"is_read"              gorm:"not null;default:false;index:idx_contacts_is_read"`
	CreatedAt time.Time  `json:"created_at"           gorm:"index:idx_contacts_created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ContactSubmission.
func (ContactSubmission) TableName() string { return "contacts" }

// LastKnownActivity is the later of creation and last update. A mark-read or
// re-open bumps UpdatedAt, so anything newer than this is news to the admin.
func (c ContactSubmission) LastKnownActivity() time.Time {
	if c.UpdatedAt.After(c.CreatedAt) {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// AdminReply is an outgoing reply written by the admin for a contact.
// Rows are never mutated and only disappear with their contact.
//
// Fields:
//   - ContactID: owning contact (indexed with CreatedAt for ordered reads).
//   - Message: reply body as sent.
//   - Sender / SenderEmail: display name and address of the admin.
//   - IsOutgoing: always true for this store.
//   - Contact: FK association, replies are cascade-deleted with the contact.
type AdminReply struct {
	ID          uint      `json:"id"           gorm:"primaryKey;autoIncrement"`
	ContactID   uint      `json:"contact_id"   gorm:"not null;index:idx_contact_replies,priority:1"`
	Message     string    `json:"message"      gorm:"type:text;not null"`
	Sender      string    `json:"sender"       gorm:"type:varchar(100);not null;default:'Admin'"`
	SenderEmail string    `json:"sender_email" gorm:"type:varchar(255);not null"`
	IsOutgoing  bool      `json:"is_outgoing"  gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index:idx_contact_replies,priority:2"`

	Contact ContactSubmission `json:"-" gorm:"foreignKey:ContactID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AdminReply.
func (AdminReply) TableName() string { return "replies" }
