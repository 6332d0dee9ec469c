package worker

import (
	"net/http"
	"net/url"
	"strings"
)

// Strategy is how an intercepted request is answered.
type Strategy int

const (
	// Bypass leaves the request to the network, untouched and uncached.
	Bypass Strategy = iota
	CacheFirst
	NetworkFirst
)

func (s Strategy) String() string {
	switch s {
	case Bypass:
		return "bypass"
	case CacheFirst:
		return "cache-first"
	case NetworkFirst:
		return "network-first"
	}
	return "unknown"
}

// Classify picks the strategy for a request. It depends only on the method,
// the absolute URL and the worker's configuration.
func (w *Worker) Classify(method, rawURL string) Strategy {
	if method != http.MethodGet {
		return Bypass
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Bypass
	}
	if _, ok := w.bypass[strings.ToLower(u.Hostname())]; ok {
		return Bypass
	}
	if _, ok := w.manifestSet[u.String()]; ok {
		return CacheFirst
	}
	for _, frag := range w.cfg.CacheFirst {
		if frag != "" && strings.Contains(rawURL, frag) {
			return CacheFirst
		}
	}
	return NetworkFirst
}
