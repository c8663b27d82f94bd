package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-portfolio-backend/internal/cache"
	"github.com/tbourn/go-portfolio-backend/internal/domain"
	"github.com/tbourn/go-portfolio-backend/internal/http/middleware"
	"github.com/tbourn/go-portfolio-backend/internal/repo"
	"github.com/tbourn/go-portfolio-backend/internal/services"
)

// ---------- test DB + repo shim ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:contact_handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testContactRepo implements services.ContactRepo using the repo package (like router.go).
type testContactRepo struct{}

func (testContactRepo) CreateContact(ctx context.Context, db *gorm.DB, c *domain.ContactSubmission) error {
	return repo.CreateContact(ctx, db, c)
}
func (testContactRepo) GetContact(ctx context.Context, db *gorm.DB, id uint) (*domain.ContactSubmission, error) {
	return repo.GetContact(ctx, db, id)
}
func (testContactRepo) ListContactsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ContactSubmission, error) {
	return repo.ListContactsPage(ctx, db, offset, limit)
}
func (testContactRepo) CountContacts(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountContacts(ctx, db)
}
func (testContactRepo) CountUnread(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountUnread(ctx, db)
}
func (testContactRepo) MarkContactRead(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	return repo.MarkContactRead(ctx, db, id)
}
func (testContactRepo) DeleteContact(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteContact(ctx, db, id)
}
func (testContactRepo) DeleteRepliesForContact(ctx context.Context, db *gorm.DB, id uint) (int64, error) {
	return repo.DeleteRepliesForContact(ctx, db, id)
}
func (testContactRepo) GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, scope, key, now)
}
func (testContactRepo) CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key string, contactID uint, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, scope, key, contactID, status, ttl)
}

// ---------- fakes ----------

type fakeMailer struct {
	mu        sync.Mutex
	notified  int
	replies   []string
	replyErr  error
	verifyErr error
}

func (m *fakeMailer) NotifyOwner(context.Context, *domain.ContactSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified++
	return nil
}
func (m *fakeMailer) AutoReply(context.Context, *domain.ContactSubmission) error { return nil }
func (m *fakeMailer) Reply(_ context.Context, _ *domain.ContactSubmission, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replyErr != nil {
		return m.replyErr
	}
	m.replies = append(m.replies, body)
	return nil
}
func (m *fakeMailer) Verify(context.Context) error { return m.verifyErr }

// fakeMailbox satisfies both Mailbox and services.MailboxClient.
type fakeMailbox struct {
	configured, connected, testOK bool

	exchangeToken string
	exchangeErr   error
	exchanged     []string

	searchIDs  []string
	searchErr  error
	lastQuery  string
	messages   map[string]*domain.ExternalMessage
	byContact  map[uint][]domain.ExternalMessage
	authStates []string
}

func (f *fakeMailbox) IsConfigured() bool                     { return f.configured }
func (f *fakeMailbox) IsConnected() bool                      { return f.configured && f.connected }
func (f *fakeMailbox) TestConnection(ctx context.Context) bool { return f.IsConnected() && f.testOK }
func (f *fakeMailbox) AuthURL(state string) string {
	f.authStates = append(f.authStates, state)
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}
func (f *fakeMailbox) Exchange(_ context.Context, code string) (string, error) {
	f.exchanged = append(f.exchanged, code)
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	f.connected = true
	return f.exchangeToken, nil
}
func (f *fakeMailbox) Search(_ context.Context, q string, max int) ([]string, error) {
	f.lastQuery = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.searchIDs) > max {
		return f.searchIDs[:max], nil
	}
	return f.searchIDs, nil
}
func (f *fakeMailbox) Message(_ context.Context, id string) (*domain.ExternalMessage, error) {
	if m, ok := f.messages[id]; ok {
		return m, nil
	}
	return nil, errors.New("not found")
}
func (f *fakeMailbox) FetchContactReplies(_ context.Context, ref domain.ContactRef) []domain.ExternalMessage {
	return f.byContact[ref.ID]
}
func (f *fakeMailbox) ThreadsForContacts(_ context.Context, refs []domain.ContactRef) map[uint][]domain.ExternalMessage {
	out := map[uint][]domain.ExternalMessage{}
	for _, r := range refs {
		if msgs := f.byContact[r.ID]; len(msgs) > 0 {
			out[r.ID] = msgs
		}
	}
	return out
}

type fakeResolver struct {
	mx map[string][]*net.MX
}

func (r fakeResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if mx, ok := r.mx[name]; ok {
		return mx, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

// ---------- environment ----------

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	mailer *fakeMailer
	mb     *fakeMailbox
	h      *Handlers
	r      *gin.Engine
}

func newEnv(t *testing.T, mb *fakeMailbox) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	ml := &fakeMailer{}
	if mb == nil {
		mb = &fakeMailbox{}
	}

	contacts := services.NewContactService(db, testContactRepo{})
	contacts.Notifier = ml
	replies, err := services.NewReplyService(db, ml, "owner@example.com")
	if err != nil {
		t.Fatalf("reply service: %v", err)
	}
	convs := services.NewConversationService(db, mb)
	emails := &services.EmailValidator{
		Resolver: fakeResolver{mx: map[string][]*net.MX{"example.com": {{Host: "mx.example.com", Pref: 10}}}},
		Cache:    cache.NewMemory[services.EmailCheck](),
		TTL:      time.Minute,
		Timeout:  time.Second,
	}

	h := New(Deps{
		Contacts:      contacts,
		Replies:       replies,
		Conversations: convs,
		Emails:        emails,
		Mailbox:       mb,
		Transport:     ml,
		Version:       "test",
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AdminIdentity())
	lookup := func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, scope, key, now)
		return rec != nil && err == nil, nil
	}
	r.POST("/contact", middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, lookup), h.SubmitContact)
	r.GET("/contact", h.ListContacts)
	r.GET("/contact/unread-count", h.UnreadCount)
	r.POST("/contact/validate-email", h.ValidateEmail)
	r.GET("/contact/:id", h.GetContact)
	r.PATCH("/contact/:id/read", h.MarkRead)
	r.GET("/contact/:id/replies", h.ListReplies)
	r.POST("/contact/:id/reply", h.PostReply)
	r.DELETE("/contact/:id", h.DeleteContact)
	r.GET("/admin/conversations", h.Inbox)
	r.GET("/admin/conversations/:contactId", h.Thread)
	r.GET("/admin/mailbox/status", h.MailboxStatus)
	r.POST("/admin/mailbox/authorize", h.AuthorizeMailbox)
	r.GET("/admin/mailbox/callback", h.MailboxCallback)
	r.GET("/admin/mailbox/search", h.SearchMailbox)
	r.GET("/", h.Info)
	r.GET("/health", h.Health)
	r.GET("/health/detailed", h.DetailedHealth)

	return &testEnv{t: t, db: db, mailer: ml, mb: mb, h: h, r: r}
}

func (e *testEnv) do(method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				e.t.Fatalf("encode: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:4000"
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v; body=%s", v, err, w.Body.String())
	}
	return v
}

func validSubmission() SubmitContactRequest {
	return SubmitContactRequest{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Subject: "Project inquiry",
		Message: "Hello, I would like to talk about a project.",
	}
}

// submit posts a valid submission and returns its id.
func (e *testEnv) submit(email string) uint {
	e.t.Helper()
	req := validSubmission()
	req.Email = email
	w := e.do(http.MethodPost, "/contact", req, nil)
	if w.Code != http.StatusCreated {
		e.t.Fatalf("submit status=%d body=%s", w.Code, w.Body.String())
	}
	return decode[SubmitContactResponse](e.t, w).ID
}
