package mailbox

import (
	"encoding/base64"
	"strings"
)

// extractText returns the plaintext of a message payload. A text/plain root
// (or one without a type) with body data is decoded directly; otherwise
// text/plain parts are concatenated depth-first. Other part types, including
// a text/html root, are ignored.
func extractText(p *messagePart) string {
	if p == nil {
		return ""
	}
	if p.Body.Data != "" {
		if p.MimeType == "" || isPlain(p.MimeType) {
			return decodeData(p.Body.Data)
		}
		return ""
	}
	var b strings.Builder
	for i := range p.Parts {
		part := &p.Parts[i]
		switch {
		case isPlain(part.MimeType) && part.Body.Data != "":
			b.WriteString(decodeData(part.Body.Data))
		case len(part.Parts) > 0:
			b.WriteString(extractText(part))
		}
	}
	return b.String()
}

func isPlain(mimeType string) bool { return strings.EqualFold(mimeType, "text/plain") }

// decodeData decodes the base64url body encoding used by the API. Padding is
// optional on the wire; standard base64 is accepted as a fallback.
func decodeData(s string) string {
	trimmed := strings.TrimRight(s, "=")
	if b, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return string(b)
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return string(b)
	}
	return ""
}
