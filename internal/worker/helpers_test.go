package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/leonardcser/web-offline/internal/cache"
	"github.com/leonardcser/web-offline/internal/logger"
)

func TestMain(m *testing.M) {
	logger.UseNop()
	goleak.VerifyTestMain(m)
}

const origin = "https://academy.example"

var errOffline = errors.New("dial tcp: network is unreachable")

type page struct {
	status int
	body   string
	ctype  string
	header http.Header
}

// fakeNet is an in-memory network. Requests for unknown URLs get a 404.
type fakeNet struct {
	mu      sync.Mutex
	pages   map[string]page
	offline bool
	calls   []string
	// sent holds the headers of the last request.
	sent http.Header
}

func newFakeNet() *fakeNet { return &fakeNet{pages: map[string]page{}} }

func (n *fakeNet) set(rawURL string, status int, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ctype := "text/plain"
	if strings.HasPrefix(body, "<") {
		ctype = "text/html"
	}
	n.pages[rawURL] = page{status: status, body: body, ctype: ctype}
}

// setWithHeader is set plus extra response headers given as name, value pairs.
func (n *fakeNet) setWithHeader(rawURL string, status int, body string, header ...string) {
	n.set(rawURL, status, body)
	n.mu.Lock()
	defer n.mu.Unlock()
	p := n.pages[rawURL]
	p.header = http.Header{}
	for i := 0; i+1 < len(header); i += 2 {
		p.header.Add(header[i], header[i+1])
	}
	n.pages[rawURL] = p
}

func (n *fakeNet) lastHeader() http.Header {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent.Clone()
}

// ensure serves a placeholder page at rawURL unless one is already set.
func (n *fakeNet) ensure(rawURL string) {
	n.mu.Lock()
	_, ok := n.pages[rawURL]
	n.mu.Unlock()
	if !ok {
		n.set(rawURL, http.StatusOK, "<html></html>")
	}
}

func (n *fakeNet) setOffline(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offline = v
}

func (n *fakeNet) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func (n *fakeNet) Do(req *http.Request) (*http.Response, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, req.Method+" "+req.URL.String())
	n.sent = req.Header.Clone()
	if n.offline {
		return nil, errOffline
	}
	p, ok := n.pages[req.URL.String()]
	if !ok {
		p = page{status: http.StatusNotFound, body: "not found", ctype: "text/plain"}
	}
	header := p.header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", p.ctype)
	return &http.Response{
		StatusCode: p.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(p.body)),
		Request:    req,
	}, nil
}

// Precache makes fakeNet usable as the install-time fetcher too.
func (n *fakeNet) Precache(ctx context.Context, rawURL string) (*cache.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := n.Do(req)
	if err != nil {
		return nil, err
	}
	e, err := cache.FromResponse(resp)
	if err != nil {
		return nil, err
	}
	if !e.OK() {
		return nil, fmt.Errorf("precache %s: status %d", rawURL, e.Status)
	}
	return e, nil
}

func openStore(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.Open(filepath.Join(t.TempDir(), "cache.bbolt"), cache.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConfig(version string, manifest ...string) Config {
	u, _ := url.Parse(origin)
	return Config{
		Origin:           u,
		StaticPartition:  "excellence-academy-static-" + version,
		DynamicPartition: "excellence-academy-dynamic-" + version,
		Manifest:         manifest,
		Shell:            "/index.html",
		BypassHosts:      []string{"wa.me", "api.whatsapp.com"},
		CacheFirst: []string{
			"index.html",
			"images.unsplash.com",
			"via.placeholder.com",
			"fonts.googleapis.com",
			"fonts.gstatic.com",
		},
	}
}

func newWorker(t *testing.T, store cache.Storage, net *fakeNet, version string, manifest ...string) *Worker {
	t.Helper()
	w, err := New(testConfig(version, manifest...), store, net, net)
	require.NoError(t, err)
	return w
}

func get(target string, header ...string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return req
}

func navigate(target string) *http.Request {
	return get(target, "Sec-Fetch-Dest", "document", "Sec-Fetch-Mode", "navigate")
}
