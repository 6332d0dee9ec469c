package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/leonardcser/web-offline/internal/cache"
)

const (
	RequestTimeout = 20 * time.Second
	MaxAssetSize   = 10 * 1024 * 1024 // 10MB
)

// ErrAssetTooLarge is returned for assets colly would have cut short.
var ErrAssetTooLarge = errors.New("asset exceeds size limit")

// Precacher fetches manifest assets at install time.
type Precacher struct {
	c     *colly.Collector
	limit int
}

// NewPrecacher returns a Precacher that rejects assets of MaxAssetSize bytes
// or more.
func NewPrecacher(timeout time.Duration) *Precacher {
	return newPrecacher(timeout, MaxAssetSize)
}

func newPrecacher(timeout time.Duration, limit int) *Precacher {
	if timeout <= 0 {
		timeout = RequestTimeout
	}
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
		colly.MaxBodySize(limit),
		colly.UserAgent(UserAgent),
	)
	c.SetRequestTimeout(timeout)
	return &Precacher{c: c, limit: limit}
}

// Precache fetches rawURL and returns it as a cache entry. Anything other
// than a successful response is an error.
func (p *Precacher) Precache(ctx context.Context, rawURL string) (*cache.Entry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Each fetch gets its own collector so callbacks never cross requests.
	c := p.c.Clone()
	c.Context = ctx

	var entry *cache.Entry
	c.OnResponse(func(r *colly.Response) {
		var header http.Header
		if r.Headers != nil {
			header = r.Headers.Clone()
			// Cookies set on the edge's own session are not part of the asset.
			header.Del("Set-Cookie")
		}
		entry = &cache.Entry{
			Status:     r.StatusCode,
			StatusText: http.StatusText(r.StatusCode),
			Header:     header,
			Body:       append([]byte(nil), r.Body...),
			StoredAt:   time.Now().UTC(),
		}
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("precache %s: %w", rawURL, err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if entry == nil {
		return nil, fmt.Errorf("precache %s: %w", rawURL, errors.New("no response"))
	}
	if !entry.OK() {
		return nil, fmt.Errorf("precache %s: status %d", rawURL, entry.Status)
	}
	// colly truncates silently at the body limit.
	n, _ := strconv.Atoi(entry.Header.Get("Content-Length"))
	if len(entry.Body) >= p.limit || n >= p.limit {
		return nil, fmt.Errorf("precache %s: %w (%d bytes)", rawURL, ErrAssetTooLarge, p.limit)
	}
	return entry, nil
}
