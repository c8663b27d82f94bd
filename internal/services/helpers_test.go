package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
	"github.com/tbourn/go-portfolio-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:contactsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// sqlRepo routes ContactRepo calls to the real repo functions.
type sqlRepo struct{}

func (sqlRepo) CreateContact(ctx context.Context, db *gorm.DB, c *domain.ContactSubmission) error {
	return repo.CreateContact(ctx, db, c)
}
func (sqlRepo) GetContact(ctx context.Context, db *gorm.DB, id uint) (*domain.ContactSubmission, error) {
	return repo.GetContact(ctx, db, id)
}
func (sqlRepo) ListContactsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ContactSubmission, error) {
	return repo.ListContactsPage(ctx, db, offset, limit)
}
func (sqlRepo) CountContacts(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountContacts(ctx, db)
}
func (sqlRepo) CountUnread(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountUnread(ctx, db)
}
func (sqlRepo) MarkContactRead(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	return repo.MarkContactRead(ctx, db, id)
}
func (sqlRepo) DeleteContact(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteContact(ctx, db, id)
}
func (sqlRepo) DeleteRepliesForContact(ctx context.Context, db *gorm.DB, id uint) (int64, error) {
	return repo.DeleteRepliesForContact(ctx, db, id)
}
func (sqlRepo) GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, scope, key, now)
}
func (sqlRepo) CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key string, contactID uint, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, scope, key, contactID, status, ttl)
}

// seedContact inserts a contact with fixed timestamps.
func seedContact(t *testing.T, db *gorm.DB, email string, created time.Time, read bool) *domain.ContactSubmission {
	t.Helper()
	c := &domain.ContactSubmission{
		Name:      "Jane Visitor",
		Email:     email,
		Subject:   "Project inquiry",
		Message:   "Hello, I would like to talk about a project.",
		IsRead:    read,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed contact: %v", err)
	}
	return c
}

func seedReply(t *testing.T, db *gorm.DB, contactID uint, body string, at time.Time) *domain.AdminReply {
	t.Helper()
	r, err := repo.CreateReply(context.Background(), db, contactID, body, "Admin", "owner@owner.dev")
	if err != nil {
		t.Fatalf("seed reply: %v", err)
	}
	if err := db.Model(&domain.AdminReply{}).Where("id = ?", r.ID).Update("created_at", at).Error; err != nil {
		t.Fatalf("backdate reply: %v", err)
	}
	r.CreatedAt = at
	return r
}

// fakeMailbox is a scripted MailboxClient.
type fakeMailbox struct {
	configured bool
	connected  bool
	testOK     bool
	byContact  map[uint][]domain.ExternalMessage

	mu          sync.Mutex
	fetchCalls  int
	threadCalls int
	invalidated []uint
}

func (f *fakeMailbox) IsConfigured() bool                 { return f.configured }
func (f *fakeMailbox) IsConnected() bool                  { return f.connected }
func (f *fakeMailbox) TestConnection(context.Context) bool { return f.testOK }

func (f *fakeMailbox) FetchContactReplies(_ context.Context, c domain.ContactRef) []domain.ExternalMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	return f.byContact[c.ID]
}

func (f *fakeMailbox) ThreadsForContacts(_ context.Context, refs []domain.ContactRef) map[uint][]domain.ExternalMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadCalls++
	out := map[uint][]domain.ExternalMessage{}
	for _, r := range refs {
		if msgs := f.byContact[r.ID]; len(msgs) > 0 {
			out[r.ID] = msgs
		}
	}
	return out
}

func (f *fakeMailbox) InvalidateContact(_ context.Context, id uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, id)
}

// captureMailer records notification, auto-reply and reply calls.
type captureMailer struct {
	mu        sync.Mutex
	notified  []uint
	autoReply []uint
	replies   []string
	notifyErr error
	replyErr  error
}

func (m *captureMailer) NotifyOwner(_ context.Context, c *domain.ContactSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, c.ID)
	return m.notifyErr
}

func (m *captureMailer) AutoReply(_ context.Context, c *domain.ContactSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReply = append(m.autoReply, c.ID)
	return nil
}

func (m *captureMailer) Reply(_ context.Context, c *domain.ContactSubmission, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replyErr != nil {
		return m.replyErr
	}
	m.replies = append(m.replies, fmt.Sprintf("%d:%s", c.ID, body))
	return nil
}
