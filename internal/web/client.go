package web

import (
	"net/http"
	"time"
)

// UserAgent identifies requests the edge makes on its own behalf.
const UserAgent = "web-offline/0.1 (+offline-edge)"

// Hop-by-hop headers are meaningful only for a single connection and must not
// be forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Client performs runtime network fetches for intercepted requests.
// Only transport failures are errors; any HTTP status is a response.
type Client struct {
	client *http.Client
}

// NewClient returns a Client. A zero timeout leaves requests bounded only by
// their context.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		client: &http.Client{
			Timeout: timeout,
			// Redirects are handed back to the caller untouched.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
}

// Do sends req after stripping hop-by-hop headers.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.RequestURI = ""
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}
	if out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", UserAgent)
	}
	return c.client.Do(out)
}

// CloseIdleConnections closes connections kept alive by earlier fetches.
func (c *Client) CloseIdleConnections() { c.client.CloseIdleConnections() }
