package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultAPIBase is the Gmail REST API v1 root for the authorized user.
const DefaultAPIBase = "https://gmail.googleapis.com/gmail/v1/users/me/"

// Wire types for the subset of the Gmail API the client reads.

type messageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

type listResponse struct {
	Messages           []messageRef `json:"messages"`
	ResultSizeEstimate int          `json:"resultSizeEstimate"`
}

type header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type partBody struct {
	Size int    `json:"size"`
	Data string `json:"data"`
}

// messagePart is one node of the MIME tree returned with format=full.
type messagePart struct {
	PartID   string        `json:"partId"`
	MimeType string        `json:"mimeType"`
	Filename string        `json:"filename"`
	Headers  []header      `json:"headers"`
	Body     partBody      `json:"body"`
	Parts    []messagePart `json:"parts"`
}

type rawMessage struct {
	ID           string      `json:"id"`
	ThreadID     string      `json:"threadId"`
	Snippet      string      `json:"snippet"`
	InternalDate string      `json:"internalDate"`
	Payload      messagePart `json:"payload"`
}

type profile struct {
	EmailAddress  string `json:"emailAddress"`
	MessagesTotal int    `json:"messagesTotal"`
}

// APIError is a non-2xx response from the mailbox API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailbox api: status %d: %s", e.Status, e.Body)
}

func (p *messagePart) header(name string) string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func (c *Client) getJSON(ctx context.Context, tok *oauth2.Token, path string, q url.Values, out any) error {
	u := c.apiBase + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) listMessages(ctx context.Context, tok *oauth2.Token, query string, max int) ([]string, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("maxResults", strconv.Itoa(max))

	var lr listResponse
	if err := c.getJSON(ctx, tok, "messages", q, &lr); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(lr.Messages))
	for _, m := range lr.Messages {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

func (c *Client) getMessage(ctx context.Context, tok *oauth2.Token, id string) (*rawMessage, error) {
	q := url.Values{}
	q.Set("format", "full")
	var m rawMessage
	if err := c.getJSON(ctx, tok, "messages/"+url.PathEscape(id), q, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) getProfile(ctx context.Context, tok *oauth2.Token) (*profile, error) {
	var p profile
	if err := c.getJSON(ctx, tok, "profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
