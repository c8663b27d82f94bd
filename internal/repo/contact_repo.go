// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for contact-form
// submissions.
//
// All functions are context-aware and accept a *gorm.DB handle. They follow
// the "thin repository" approach: no validation or logging, one statement per
// mutation, raw gorm errors propagated.
//
// Error semantics:
//   - A missing contact yields gorm.ErrRecordNotFound (exported as ErrNotFound).
//   - Any other DB failure is returned unchanged.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateContact inserts c and fills in its auto-assigned ID and timestamps.
// IsRead is forced to false.
func CreateContact(ctx context.Context, db *gorm.DB, c *domain.ContactSubmission) error {
	now := time.Now().UTC()
	c.ID = 0
	c.IsRead = false
	c.CreatedAt = now
	c.UpdatedAt = now
	return db.WithContext(ctx).Create(c).Error
}

// GetContact fetches one contact by id, or ErrNotFound.
func GetContact(ctx context.Context, db *gorm.DB, id uint) (*domain.ContactSubmission, error) {
	var c domain.ContactSubmission
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContactsPage returns contacts newest first. Ties on created_at are
// broken by id so pages are stable.
func ListContactsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ContactSubmission, error) {
	var out []domain.ContactSubmission
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountContacts returns the total number of contacts.
func CountContacts(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.ContactSubmission{}).Count(&total).Error
	return total, err
}

// CountUnread returns the number of contacts not yet read.
func CountUnread(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ContactSubmission{}).
		Where("is_read = ?", false).
		Count(&total).Error
	return total, err
}

// MarkContactRead flips is_read to true. Rows already read are left alone, so
// the call is idempotent. It reports whether a row changed.
func MarkContactRead(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.ContactSubmission{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{"is_read": true, "updated_at": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

// MarkContactUnread re-opens a read contact and stamps updated_at with at, the
// time of the activity that re-opened it.
func MarkContactUnread(ctx context.Context, db *gorm.DB, id uint, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.ContactSubmission{}).
		Where("id = ? AND is_read = ?", id, true).
		Updates(map[string]any{"is_read": false, "updated_at": at.UTC()})
	return res.RowsAffected > 0, res.Error
}

// DeleteContact removes a contact. Dependent replies go with it through the
// FK cascade; callers that cannot rely on the cascade should call
// DeleteRepliesForContact first. Returns ErrNotFound when nothing was deleted.
func DeleteContact(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.ContactSubmission{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
