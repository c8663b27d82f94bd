// Package repo implements the data persistence layer for domain entities.
// This file provides small aggregate queries used for conditional responses
// (weak ETags) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
)

// ContactsStats returns the number of contacts, how many are unread, and the
// greatest UpdatedAt among them. maxUpdatedAt is nil when there are no rows.
// Any create, mark-read, re-open or delete changes at least one of the three.
func ContactsStats(ctx context.Context, db *gorm.DB) (count, unread int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ContactSubmission{})

	if err = q.Count(&count).Error; err != nil {
		return 0, 0, nil, err
	}
	if count == 0 {
		return 0, 0, nil, nil
	}
	if unread, err = CountUnread(ctx, db); err != nil {
		return 0, 0, nil, err
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	err = db.WithContext(ctx).
		Model(&domain.ContactSubmission{}).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, 0, nil, err
	}
	return count, unread, &row.UpdatedAt, nil
}

// RepliesStats returns the reply count for a contact and its latest CreatedAt.
func RepliesStats(ctx context.Context, db *gorm.DB, contactID uint) (count int64, latest *time.Time, err error) {
	if count, err = CountReplies(ctx, db, contactID); err != nil || count == 0 {
		return count, nil, err
	}
	var row struct {
		CreatedAt time.Time
	}
	err = db.WithContext(ctx).
		Model(&domain.AdminReply{}).
		Where("contact_id = ?", contactID).
		Select("created_at").
		Order("created_at DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
