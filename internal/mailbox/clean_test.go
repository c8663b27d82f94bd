package mailbox

import (
	"encoding/base64"
	"testing"
)

func TestClean(t *testing.T) {
	c := NewCleaner(CleanerOptions{
		Names:   []string{"Jane Owner"},
		Titles:  []string{"Network Engineer"},
		SiteURL: "owner.dev",
	})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "attribution line and quote",
			in:   "Hi,\nGreat to hear from you.\n\nOn Mon, Jan 1, 2024 Jane wrote:\n> original text",
			want: "Hi,\nGreat to hear from you.",
		},
		{
			name: "leading quote marker",
			in:   "Sounds good.\n  > earlier",
			want: "Sounds good.",
		},
		{
			name: "outlook header block",
			in:   "Yes.\nFrom: Jane Sent: Monday",
			want: "Yes.",
		},
		{
			name: "original message marker",
			in:   "See below.\n\nYour original message:\nHello",
			want: "See below.",
		},
		{
			name: "dash separator",
			in:   "Ok\n-----Original-----\nstuff",
			want: "Ok",
		},
		{
			name: "sign-off",
			in:   "Thanks for reaching out.\n\nBest regards,\nJane",
			want: "Thanks for reaching out.",
		},
		{
			name: "owner title only",
			in:   "Body text\nNetwork Engineer",
			want: "Body text",
		},
		{
			name: "site url",
			in:   "Body text\nhttps://owner.dev/contact",
			want: "Body text",
		},
		{
			name: "sent from my device",
			in:   "Quick answer\n\nSent from my phone",
			want: "Quick answer",
		},
		{
			name: "crlf and trailing blanks",
			in:   "Line one\r\nLine two\r\n\r\n\r\n",
			want: "Line one\nLine two",
		},
		{
			name: "plain body untouched",
			in:   "Just a message.",
			want: "Just a message.",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Clean(tc.in); got != tc.want {
				t.Fatalf("Clean(%q) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSignatureBlock_CutsAtLastMarker(t *testing.T) {
	pass := signatureBlock(baseSignaturePatterns, "")
	lines := []string{"Thanks,", "the plan works", "Regards,", "Jane"}
	if got := pass(lines); got != 2 {
		t.Fatalf("cut = %d; want 2 (nearest marker from the end)", got)
	}
}

func TestPasses_NoMatchReturnsLen(t *testing.T) {
	lines := []string{"a", "b"}
	for name, p := range map[string]cutPass{"quoteStart": quoteStart, "originalMessage": originalMessage} {
		if got := p(lines); got != len(lines) {
			t.Fatalf("%s = %d; want %d", name, got, len(lines))
		}
	}
}

func TestExtractText(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	t.Run("single part", func(t *testing.T) {
		p := &messagePart{MimeType: "text/plain", Body: partBody{Data: enc("hello")}}
		if got := extractText(p); got != "hello" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("nested multipart plain parts only", func(t *testing.T) {
		p := &messagePart{
			MimeType: "multipart/mixed",
			Parts: []messagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []messagePart{
						{MimeType: "text/plain", Body: partBody{Data: enc("one ")}},
						{MimeType: "text/html", Body: partBody{Data: enc("<p>one</p>")}},
					},
				},
				{MimeType: "text/plain", Body: partBody{Data: enc("two")}},
				{MimeType: "image/png", Filename: "x.png", Body: partBody{Data: enc("PNG")}},
			},
		}
		if got := extractText(p); got != "one two" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("html root is ignored", func(t *testing.T) {
		p := &messagePart{MimeType: "text/html", Body: partBody{Data: enc("<p>hello</p>")}}
		if got := extractText(p); got != "" {
			t.Fatalf("got %q; want empty", got)
		}
	})

	t.Run("untyped root decoded", func(t *testing.T) {
		p := &messagePart{Body: partBody{Data: enc("hello")}}
		if got := extractText(p); got != "hello" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("nil and empty", func(t *testing.T) {
		if extractText(nil) != "" || extractText(&messagePart{}) != "" {
			t.Fatalf("expected empty text")
		}
	})
}

func TestDecodeData(t *testing.T) {
	raw := "\xfb\xff\xfe hi"
	for _, s := range []string{
		base64.URLEncoding.EncodeToString([]byte(raw)),
		base64.RawURLEncoding.EncodeToString([]byte(raw)),
		base64.StdEncoding.EncodeToString([]byte(raw)),
	} {
		if got := decodeData(s); got != raw {
			t.Fatalf("decodeData(%q) = %q", s, got)
		}
	}
	if decodeData("!!!") != "" {
		t.Fatalf("invalid input must decode to empty")
	}
}
