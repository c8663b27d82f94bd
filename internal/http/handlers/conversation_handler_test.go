package handlers

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
)

func TestThread_MergesAllSources(t *testing.T) {
	mb := &fakeMailbox{configured: true, connected: true, testOK: true}
	e := newEnv(t, mb)
	id := e.submit("jane@example.com")
	base := "/contact/" + strconv.Itoa(int(id))

	if w := e.do(http.MethodPost, base+"/reply", PostReplyRequest{Message: "Thanks!"}, nil); w.Code != http.StatusCreated {
		t.Fatalf("reply status=%d", w.Code)
	}
	mb.byContact = map[uint][]domain.ExternalMessage{
		id: {{
			ID:        "gm-1",
			From:      "jane@example.com",
			Subject:   "Re: Project inquiry",
			Body:      "Sounds good.",
			Timestamp: time.Now().Add(time.Hour),
			Source:    "gmail",
		}},
	}

	w := e.do(http.MethodGet, "/admin/conversations/"+strconv.Itoa(int(id)), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	th := decode[domain.ConversationThread](t, w)
	if len(th.Messages) != 3 {
		t.Fatalf("messages=%+v", th.Messages)
	}
	want := []domain.MessageSource{domain.SourceContactForm, domain.SourceLocalReply, domain.SourceMailbox}
	for i, m := range th.Messages {
		if m.Source != want[i] {
			t.Fatalf("message %d source=%s; want %s", i, m.Source, want[i])
		}
	}
	if th.Messages[0].ID != "contact-"+strconv.Itoa(int(id)) || th.Messages[2].ID != "gm-1" {
		t.Fatalf("ids=%s, %s", th.Messages[0].ID, th.Messages[2].ID)
	}
	if th.IsRead {
		t.Fatal("newer external reply should show the thread unread")
	}
}

func TestThread_Errors(t *testing.T) {
	e := newEnv(t, nil)
	if w := e.do(http.MethodGet, "/admin/conversations/77", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing status=%d", w.Code)
	}
	if w := e.do(http.MethodGet, "/admin/conversations/abc", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", w.Code)
	}
}

func TestInbox_PaginatesAndReportsMailbox(t *testing.T) {
	e := newEnv(t, nil)
	for i := 0; i < 3; i++ {
		e.submit("user" + strconv.Itoa(i) + "@example.com")
	}

	w := e.do(http.MethodGet, "/admin/conversations?page=2&page_size=2", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	resp := decode[InboxResponse](t, w)
	if resp.MailboxActive {
		t.Fatal("unconfigured mailbox reported active")
	}
	if len(resp.Conversations) != 1 || resp.Pagination.Total != 3 || resp.Pagination.Page != 2 || resp.Pagination.HasNext {
		t.Fatalf("resp=%+v", resp)
	}
	if len(resp.Conversations[0].Messages) != 1 {
		t.Fatalf("messages=%d", len(resp.Conversations[0].Messages))
	}
}

func TestInbox_EmptyIsArray(t *testing.T) {
	e := newEnv(t, &fakeMailbox{configured: true, connected: true, testOK: true})
	w := e.do(http.MethodGet, "/admin/conversations", nil, nil)
	got := decode[map[string]any](t, w)
	if arr, ok := got["conversations"].([]any); !ok || len(arr) != 0 {
		t.Fatalf("conversations=%v", got["conversations"])
	}
	if got["mailbox_active"] != true {
		t.Fatalf("mailbox_active=%v", got["mailbox_active"])
	}
}
