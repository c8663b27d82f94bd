package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
)

func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedContact(t *testing.T, db *gorm.DB, name, email string, created time.Time) *domain.ContactSubmission {
	t.Helper()
	c := &domain.ContactSubmission{
		Name:      name,
		Email:     email,
		Subject:   "Hello",
		Message:   "Hello there, this is a test message.",
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed contact: %v", err)
	}
	return c
}

func TestCreateContact_Error_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	c := &domain.ContactSubmission{Name: "Jane", Email: "jane@example.com", Message: "hi"}
	if err := CreateContact(context.Background(), db, c); err == nil {
		t.Fatalf("expected error creating without table")
	}
}

func TestCreateContact_ThenGet_RoundTrip(t *testing.T) {
	db := newRepoDB(t, &domain.ContactSubmission{})
	ctx := context.Background()

	phone := "+15551234567"
	in := &domain.ContactSubmission{
		Name:      "Jane Doe",
		Email:     "jane@example.com",
		Subject:   "Project",
		Message:   "Hello there, this is a test message.",
		Phone:     &phone,
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
		Referrer:  "https://example.com/",
		IsRead:    true, // ignored on create
	}
	start := time.Now().UTC().Add(-time.Second)
	if err := CreateContact(ctx, db, in); err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if in.ID != 1 {
		t.Fatalf("expected first id to be 1, got %d", in.ID)
	}

	got, err := GetContact(ctx, db, in.ID)
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if got.Name != in.Name || got.Email != in.Email || got.Subject != in.Subject || got.Message != in.Message {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.Phone == nil || *got.Phone != phone || got.IPAddress != "203.0.113.7" || got.UserAgent != "test-agent" || got.Referrer != "https://example.com/" {
		t.Fatalf("metadata mismatch: %+v", got)
	}
	if got.IsRead {
		t.Fatalf("new contact must be unread")
	}
	if got.CreatedAt.Before(start) || got.UpdatedAt.Before(start) {
		t.Fatalf("timestamps not set: created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
	}

	n, err := CountContacts(ctx, db)
	if err != nil || n != 1 {
		t.Fatalf("CountContacts = %d, %v; want 1", n, err)
	}
}

func TestGetContact_NotFound(t *testing.T) {
	db := newRepoDB(t, &domain.ContactSubmission{})
	_, err := GetContact(context.Background(), db, 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListContactsPage_NewestFirst_AndPaging(t *testing.T) {
	db := newRepoDB(t, &domain.ContactSubmission{})
	ctx := context.Background()

	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	a := seedContact(t, db, "A", "a@example.com", t1)
	b := seedContact(t, db, "B", "b@example.com", t1.Add(time.Hour))
	c := seedContact(t, db, "C", "c@example.com", t1.Add(2*time.Hour))

	all, err := ListContactsPage(ctx, db, 0, 10)
	if err != nil {
		t.Fatalf("ListContactsPage: %v", err)
	}
	if len(all) != 3 || all[0].ID != c.ID || all[1].ID != b.ID || all[2].ID != a.ID {
		t.Fatalf("unexpected order: %+v", all)
	}

	page2, err := ListContactsPage(ctx, db, 2, 2)
	if err != nil {
		t.Fatalf("ListContactsPage page 2: %v", err)
	}
	if len(page2) != 1 || page2[0].ID != a.ID {
		t.Fatalf("unexpected second page: %+v", page2)
	}
}

func TestListContactsPage_TieBreaksOnID(t *testing.T) {
	db := newRepoDB(t, &domain.ContactSubmission{})
	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	a := seedContact(t, db, "A", "a@example.com", t1)
	b := seedContact(t, db, "B", "b@example.com", t1)

	out, err := ListContactsPage(context.Background(), db, 0, 10)
	if err != nil {
		t.Fatalf("ListContactsPage: %v", err)
	}
	if out[0].ID != b.ID || out[1].ID != a.ID {
		t.Fatalf("expected id desc on tie, got %d,%d", out[0].ID, out[1].ID)
	}
}

func TestMarkContactRead_Idempotent(t *testing.T) {
	db := newRepoDB(t, &domain.ContactSubmission{})
	ctx := context.Background()
	c := seedContact(t, db, "A", "a@example.com", time.Now().UTC().Add(-time.Hour))

	changed, err := MarkContactRead(ctx, db, c.ID)
	if err != nil || !changed {
		t.Fatalf("first MarkContactRead = %v, %v; want true, nil", changed, err)
	}
	first, _ := GetContact(ctx, db, c.ID)

	changed, err = MarkContactRead(ctx, db, c.ID)
	if err != nil || changed {
		t.Fatalf("second MarkContactRead = %v, %v; want false, nil", changed, err)
	}
	second, _ := GetContact(ctx, db, c.ID)

	if !second.IsRead || !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("second call changed state: first=%+v second=%+v", first, second)
	}

	unread, err := CountUnread(ctx, db)
	if err != nil || unread != 0 {
		t.Fatalf("CountUnread = %d, %v; want 0", unread, err)
	}
}

func TestMarkContactRead_MissingID_NoError(t *testing.T) {
	db := newRepoDB(t, &domain.ContactSubmission{})
	changed, err := MarkContactRead(context.Background(), db, 99)
	if err != nil || changed {
		t.Fatalf("MarkContactRead(missing) = %v, %v; want false, nil", changed, err)
	}
}

func TestMarkContactUnread_OnlyReopensReadRows(t *testing.T) {
	db := newRepoDB(t, &domain.ContactSubmission{})
	ctx := context.Background()
	c := seedContact(t, db, "A", "a@example.com", time.Now().UTC().Add(-time.Hour))

	at := time.Now().UTC().Add(time.Minute)
	changed, err := MarkContactUnread(ctx, db, c.ID, at)
	if err != nil || changed {
		t.Fatalf("unread row must not change: %v, %v", changed, err)
	}

	if _, err := MarkContactRead(ctx, db, c.ID); err != nil {
		t.Fatalf("MarkContactRead: %v", err)
	}
	changed, err = MarkContactUnread(ctx, db, c.ID, at)
	if err != nil || !changed {
		t.Fatalf("MarkContactUnread = %v, %v; want true, nil", changed, err)
	}
	got, _ := GetContact(ctx, db, c.ID)
	if got.IsRead || got.UpdatedAt.Sub(at).Abs() > time.Millisecond {
		t.Fatalf("unexpected state after reopen: %+v", got)
	}
}

func TestDeleteContact_RemovesRowAndCascades(t *testing.T) {
	db := newRepoDB(t, &domain.ContactSubmission{}, &domain.AdminReply{})
	ctx := context.Background()
	c := seedContact(t, db, "A", "a@example.com", time.Now().UTC())
	if _, err := CreateReply(ctx, db, c.ID, "Thanks!", "Admin", "admin@example.com"); err != nil {
		t.Fatalf("CreateReply: %v", err)
	}

	if err := DeleteContact(ctx, db, c.ID); err != nil {
		t.Fatalf("DeleteContact: %v", err)
	}
	if _, err := GetContact(ctx, db, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	n, err := CountReplies(ctx, db, c.ID)
	if err != nil || n != 0 {
		t.Fatalf("replies after delete = %d, %v; want 0", n, err)
	}

	if err := DeleteContact(ctx, db, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}
