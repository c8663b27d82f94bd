package mailer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []*Message
	err  error
}

func (s *captureSender) Send(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
	return s.err
}

func testConfig() Config {
	return Config{
		FromEmail:       "noreply@owner.dev",
		ToEmail:         "owner@owner.dev",
		OwnerName:       "Jane Owner",
		OwnerTitle:      "Network Engineer",
		SiteURL:         "https://owner.dev",
		MessageIDDomain: "owner.dev",
	}
}

func testContact() *domain.ContactSubmission {
	phone := "+15551234567"
	return &domain.ContactSubmission{
		ID:        7,
		Name:      "Bob <script>",
		Email:     "bob@example.com",
		Subject:   "Project inquiry",
		Message:   "Hello there,\nI'd like to talk.",
		Phone:     &phone,
		IPAddress: "203.0.113.9",
		CreatedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func parse(t *testing.T, m *Message) *enmime.Envelope {
	t.Helper()
	raw, err := Compose(m)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	return env
}

func TestNotifyOwner(t *testing.T) {
	s := &captureSender{}
	m := New(s, testConfig())
	if err := m.NotifyOwner(context.Background(), testContact()); err != nil {
		t.Fatal(err)
	}
	if len(s.msgs) != 1 {
		t.Fatalf("sent %d messages", len(s.msgs))
	}
	env := parse(t, s.msgs[0])

	if got := env.GetHeader("Subject"); got != "New Contact: Project inquiry" {
		t.Fatalf("Subject = %q", got)
	}
	if got := env.GetHeader("Message-Id"); got != "<contact-7@owner.dev>" {
		t.Fatalf("Message-Id = %q", got)
	}
	if got := env.GetHeader("Reply-To"); !strings.Contains(got, "bob@example.com") {
		t.Fatalf("Reply-To = %q", got)
	}
	if got := env.GetHeader("To"); !strings.Contains(got, "owner@owner.dev") {
		t.Fatalf("To = %q", got)
	}
	if !strings.Contains(env.Text, "Phone: +15551234567") || !strings.Contains(env.Text, "I'd like to talk.") {
		t.Fatalf("text body missing fields:\n%s", env.Text)
	}
	if strings.Contains(env.HTML, "<script>") {
		t.Fatalf("html body must escape user input:\n%s", env.HTML)
	}
}

func TestAutoReply(t *testing.T) {
	s := &captureSender{}
	m := New(s, testConfig())
	if err := m.AutoReply(context.Background(), testContact()); err != nil {
		t.Fatal(err)
	}
	env := parse(t, s.msgs[0])
	if got := env.GetHeader("Subject"); got != "Thank you for contacting me!" {
		t.Fatalf("Subject = %q", got)
	}
	if got := env.GetHeader("To"); !strings.Contains(got, "bob@example.com") {
		t.Fatalf("To = %q", got)
	}
	if !strings.HasSuffix(strings.Trim(env.GetHeader("Message-Id"), "<>"), "@owner.dev") {
		t.Fatalf("Message-Id = %q", env.GetHeader("Message-Id"))
	}
	if !strings.Contains(env.Text, "automated response from owner.dev") {
		t.Fatalf("text body:\n%s", env.Text)
	}
}

func TestReply_Threading(t *testing.T) {
	s := &captureSender{}
	m := New(s, testConfig())
	if err := m.Reply(context.Background(), testContact(), "Thanks Bob!"); err != nil {
		t.Fatal(err)
	}
	env := parse(t, s.msgs[0])

	if got := env.GetHeader("Subject"); got != "Re: Project inquiry" {
		t.Fatalf("Subject = %q", got)
	}
	if got := env.GetHeader("In-Reply-To"); got != "<contact-7@owner.dev>" {
		t.Fatalf("In-Reply-To = %q", got)
	}
	if got := env.GetHeader("References"); got != "<contact-7@owner.dev>" {
		t.Fatalf("References = %q", got)
	}
	if !strings.HasPrefix(env.Text, "Thanks Bob!") || !strings.Contains(env.Text, "Your original message:") {
		t.Fatalf("text body:\n%s", env.Text)
	}
	if env.HTML == "" {
		t.Fatalf("expected an html alternative")
	}
}

func TestReply_PropagatesSendError(t *testing.T) {
	boom := errors.New("relay down")
	m := New(&captureSender{err: boom}, testConfig())
	if err := m.Reply(context.Background(), testContact(), "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v; want %v", err, boom)
	}
}

func TestReplySubject(t *testing.T) {
	tests := map[string]string{
		"Hello":        "Re: Hello",
		"Re: Hello":    "Re: Hello",
		"RE: Hello":    "RE: Hello",
		"  spaced   ":  "Re: spaced",
		"Regarding it": "Re: Regarding it",
	}
	for in, want := range tests {
		if got := ReplySubject(in); got != want {
			t.Errorf("ReplySubject(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestCompose_RequiresAddresses(t *testing.T) {
	if _, err := Compose(&Message{Subject: "x"}); err == nil {
		t.Fatalf("expected error without from/to")
	}
}

func TestNewMessageID_Unique(t *testing.T) {
	a, err := NewMessageID("owner.dev")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewMessageID("owner.dev")
	if a == b || !strings.HasSuffix(a, "@owner.dev") {
		t.Fatalf("ids %q %q", a, b)
	}
}

func TestLogSender(t *testing.T) {
	m := New(LogSender{}, testConfig())
	if err := m.NotifyOwner(context.Background(), testContact()); err != nil {
		t.Fatal(err)
	}
	if err := m.Verify(context.Background()); err != nil {
		t.Fatal(err)
	}
}

// fakeSMTP accepts one session without TLS or AUTH and records DATA.
func fakeSMTP(t *testing.T) (host string, port int, got <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	out := make(chan string, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP")
		var data string
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 8BITMIME")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"), strings.HasPrefix(cmd, "RSET"), strings.HasPrefix(cmd, "NOOP"):
				_ = tp.PrintfLine("250 OK")
			case cmd == "DATA":
				_ = tp.PrintfLine("354 go ahead")
				b, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				data = string(b)
				_ = tp.PrintfLine("250 queued")
			case cmd == "QUIT":
				_ = tp.PrintfLine("221 bye")
				out <- data
				return
			default:
				_ = tp.PrintfLine("502 unknown")
			}
		}
	}()

	h, p, _ := net.SplitHostPort(ln.Addr().String())
	pn, _ := strconv.Atoi(p)
	return h, pn, out
}

func TestSMTPSender_Send(t *testing.T) {
	host, port, got := fakeSMTP(t)
	s := NewSMTPSender(SMTPConfig{Host: host, Port: port, Timeout: 5 * time.Second})

	err := s.Send(context.Background(), &Message{
		From:    "noreply@owner.dev",
		To:      []string{"bob@example.com"},
		Subject: "Hi",
		Text:    "body",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case data := <-got:
		env, err := enmime.ReadEnvelope(bufio.NewReader(strings.NewReader(data)))
		if err != nil {
			t.Fatal(err)
		}
		if env.GetHeader("Subject") != "Hi" || strings.TrimSpace(env.Text) != "body" {
			t.Fatalf("unexpected message: subject=%q text=%q", env.GetHeader("Subject"), env.Text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the message")
	}
}

func TestSMTPSender_ConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: addr.Port, Timeout: time.Second})
	if err := s.Verify(context.Background()); err == nil {
		t.Fatalf("expected connection error")
	}
}
