package worker

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/leonardcser/web-offline/internal/cache"
	"github.com/leonardcser/web-offline/internal/logger"
	"github.com/leonardcser/web-offline/internal/metrics"
)

const (
	offlineCacheFirst   = "Offline - Please check your internet connection"
	offlineNetworkFirst = "Offline - Content not available"
)

// Respond answers an intercepted request whose absolute URL is target.
// handled is false when the request is not intercepted and must go to the
// network untouched. When handled, the entry is never nil.
func (w *Worker) Respond(ctx context.Context, r *http.Request, target string) (entry *cache.Entry, handled bool) {
	strategy := w.Classify(r.Method, target)
	switch strategy {
	case CacheFirst:
		return w.cacheFirst(ctx, r, target), true
	case NetworkFirst:
		return w.networkFirst(ctx, r, target), true
	}
	metrics.StrategyResults.WithLabelValues(strategy.String(), metrics.OutcomeBypassed).Inc()
	return nil, false
}

func (w *Worker) cacheFirst(ctx context.Context, r *http.Request, target string) *cache.Entry {
	key := cache.Key(r.Method, target)
	if e := w.match(key); e != nil {
		record(CacheFirst, metrics.OutcomeCache)
		return e
	}
	e, err := w.fetch(ctx, r, target)
	if err != nil {
		logger.Warnf("Cache first strategy failed for %s: %v", target, err)
		return w.offline(CacheFirst, isDocument(r), offlineCacheFirst)
	}
	if cache.Shareable(r, e) {
		w.put(key, e)
	}
	record(CacheFirst, metrics.OutcomeNetwork)
	return e
}

func (w *Worker) networkFirst(ctx context.Context, r *http.Request, target string) *cache.Entry {
	key := cache.Key(r.Method, target)
	e, err := w.fetch(ctx, r, target)
	if err == nil {
		if cache.Shareable(r, e) {
			w.put(key, e)
		}
		record(NetworkFirst, metrics.OutcomeNetwork)
		return e
	}
	logger.Warnf("Network first strategy failed for %s: %v", target, err)
	if cached := w.match(key); cached != nil {
		record(NetworkFirst, metrics.OutcomeCache)
		return cached
	}
	return w.offline(NetworkFirst, isDocument(r), offlineNetworkFirst)
}

// offline answers a request that neither network nor cache could serve:
// documents get the cached shell, everything else a plain 503.
func (w *Worker) offline(s Strategy, document bool, msg string) *cache.Entry {
	if document && w.shellKey != "" {
		if shell := w.match(w.shellKey); shell != nil {
			record(s, metrics.OutcomeShell)
			return shell
		}
	}
	record(s, metrics.OutcomeOffline)
	return cache.Text(http.StatusServiceUnavailable, msg)
}

// match looks key up in the static partition, then the dynamic one. Storage
// errors count as a miss.
func (w *Worker) match(key string) *cache.Entry {
	e, err := cache.MatchAny(w.store, key, w.cfg.StaticPartition, w.cfg.DynamicPartition)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Errorf("Cache lookup failed for %s: %v", key, err)
		}
		return nil
	}
	return e
}

// put copies e into the dynamic partition. Callers check cache.Shareable
// first. Failures never change the response.
func (w *Worker) put(key string, e *cache.Entry) {
	if err := w.store.Put(w.cfg.DynamicPartition, key, e.Clone()); err != nil {
		metrics.CacheWriteErrors.WithLabelValues(w.cfg.DynamicPartition).Inc()
		logger.Errorf("Cache write failed for %s: %v", key, err)
	}
}

func (w *Worker) fetch(ctx context.Context, r *http.Request, target string) (*cache.Entry, error) {
	req, err := outbound(ctx, r, target)
	if err != nil {
		return nil, err
	}
	resp, err := w.net.Do(req)
	if err != nil {
		return nil, err
	}
	return cache.FromResponse(resp)
}

// outbound copies r into a request for target.
func outbound(ctx context.Context, r *http.Request, target string) (*http.Request, error) {
	var body = r.Body
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		body = nil
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	// Without Accept-Encoding the transport negotiates gzip itself and hands
	// back a decoded body, so stored entries are always identity-encoded.
	req.Header.Del("Accept-Encoding")
	if r.Body != nil && body != nil {
		req.ContentLength = r.ContentLength
	}
	return req, nil
}

// isDocument reports whether r is a navigation to a page, using fetch
// metadata when the client sends it and the Accept header otherwise.
func isDocument(r *http.Request) bool {
	if dest := r.Header.Get("Sec-Fetch-Dest"); dest != "" {
		return dest == "document"
	}
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func record(s Strategy, outcome string) {
	metrics.StrategyResults.WithLabelValues(s.String(), outcome).Inc()
}
