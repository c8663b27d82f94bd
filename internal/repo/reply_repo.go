// Package repo implements the data persistence layer for domain entities.
// This file provides helpers for admin replies (the "replies" table).
//
// CreateReply trusts the caller about contact existence; the FK constraint on
// replies.contact_id rejects orphans at the database level.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
)

// CreateReply inserts an outgoing admin reply with a server-assigned timestamp.
func CreateReply(ctx context.Context, db *gorm.DB, contactID uint, body, sender, senderEmail string) (*domain.AdminReply, error) {
	r := &domain.AdminReply{
		ContactID:   contactID,
		Message:     body,
		Sender:      sender,
		SenderEmail: senderEmail,
		IsOutgoing:  true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Omit("Contact").Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// ListReplies returns the replies for a contact, oldest first.
func ListReplies(ctx context.Context, db *gorm.DB, contactID uint) ([]domain.AdminReply, error) {
	var out []domain.AdminReply
	err := db.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountReplies returns how many replies a contact has.
func CountReplies(ctx context.Context, db *gorm.DB, contactID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.AdminReply{}).
		Where("contact_id = ?", contactID).
		Count(&total).Error
	return total, err
}

// DeleteRepliesForContact removes every reply of a contact and returns how
// many rows went away.
func DeleteRepliesForContact(ctx context.Context, db *gorm.DB, contactID uint) (int64, error) {
	res := db.WithContext(ctx).Where("contact_id = ?", contactID).Delete(&domain.AdminReply{})
	return res.RowsAffected, res.Error
}
