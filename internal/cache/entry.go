package cache

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Entry is a stored HTTP response.
type Entry struct {
	Status     int         `json:"status"`
	StatusText string      `json:"status_text,omitempty"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body,omitempty"`
	StoredAt   time.Time   `json:"stored_at"`
}

// Key returns the cache identity of a request. Only GET requests are
// cacheable; Put rejects any other method.
func Key(method, rawURL string) string {
	return strings.ToUpper(method) + " " + rawURL
}

func isCacheableKey(key string) bool { return strings.HasPrefix(key, http.MethodGet+" ") }

// OK reports whether the response status is 2xx.
func (e *Entry) OK() bool { return e != nil && e.Status >= 200 && e.Status < 300 }

// Shareable reports whether the response e to req may be stored and replayed
// to any client. Entries are keyed by method and URL only, so anything tied to
// one visitor, or encoded in a way the key does not record, is never stored.
func Shareable(req *http.Request, e *Entry) bool {
	if !e.OK() {
		return false
	}
	if req != nil && (req.Header.Get("Authorization") != "" || req.Header.Get("Cookie") != "") {
		return false
	}
	if len(e.Header.Values("Set-Cookie")) > 0 {
		return false
	}
	for _, d := range headerTokens(e.Header, "Cache-Control") {
		name, _, _ := strings.Cut(d, "=")
		if name == "private" || name == "no-store" {
			return false
		}
	}
	if ce := e.Header.Get("Content-Encoding"); ce != "" && !strings.EqualFold(ce, "identity") {
		return false
	}
	for _, v := range headerTokens(e.Header, "Vary") {
		if v == "*" || v == "cookie" || v == "authorization" {
			return false
		}
	}
	return true
}

// headerTokens splits the comma-separated values of a header into lowercase
// tokens.
func headerTokens(h http.Header, name string) []string {
	var out []string
	for _, v := range h.Values(name) {
		for _, t := range strings.Split(v, ",") {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// Clone returns a deep copy so cached bytes are never shared with callers.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.Header = e.Header.Clone()
	out.Body = append([]byte(nil), e.Body...)
	return &out
}

// WriteTo writes the entry as an HTTP response.
func (e *Entry) WriteTo(w http.ResponseWriter) {
	h := w.Header()
	for k, vs := range e.Header {
		// Length and framing are recomputed for the stored body.
		if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "Transfer-Encoding") {
			continue
		}
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	h.Set("Content-Length", strconv.Itoa(len(e.Body)))
	w.WriteHeader(e.Status)
	_, _ = io.Copy(w, bytes.NewReader(e.Body))
}

// FromResponse reads resp fully into an Entry and closes its body.
func FromResponse(resp *http.Response) (*Entry, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   time.Now().UTC(),
	}, nil
}

// Text builds a plain-text response entry.
func Text(status int, body string) *Entry {
	return &Entry{
		Status:     status,
		StatusText: http.StatusText(status),
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       []byte(body),
		StoredAt:   time.Now().UTC(),
	}
}
