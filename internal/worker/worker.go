// Package worker intercepts site requests and answers them from versioned
// cache partitions or the network, the way an offline-first service worker
// does. A Worker owns one cache version; a Registration decides which Worker
// is in control.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/leonardcser/web-offline/internal/cache"
	"github.com/leonardcser/web-offline/internal/config"
)

// Network sends intercepted requests upstream. *web.Client and *http.Client
// satisfy it.
type Network interface {
	Do(req *http.Request) (*http.Response, error)
}

// Precacher fetches one manifest asset at install time. Any non-2xx response
// must be reported as an error.
type Precacher interface {
	Precache(ctx context.Context, rawURL string) (*cache.Entry, error)
}

// ErrInstallFailed wraps every error that makes an install attempt fail.
var ErrInstallFailed = errors.New("worker: install failed")

// Config holds the per-version settings of a Worker.
type Config struct {
	Origin           *url.URL
	StaticPartition  string
	DynamicPartition string
	// Manifest entries may be origin-relative or absolute.
	Manifest []string
	// Shell is the document returned to offline navigations.
	Shell       string
	BypassHosts []string
	// CacheFirst lists URL fragments whose requests are served cache-first.
	CacheFirst []string
}

// ConfigFrom derives a worker Config from loaded settings.
func ConfigFrom(c config.Config) (Config, error) {
	origin, err := url.Parse(c.Origin)
	if err != nil {
		return Config{}, fmt.Errorf("parse origin: %w", err)
	}
	return Config{
		Origin:           origin,
		StaticPartition:  c.Cache.StaticPartition(),
		DynamicPartition: c.Cache.DynamicPartition(),
		Manifest:         c.Cache.Manifest,
		Shell:            c.Cache.Shell,
		BypassHosts:      c.Routing.BypassHosts,
		CacheFirst:       c.Routing.CacheFirstURLs,
	}, nil
}

// Worker serves intercepted requests for one cache version.
type Worker struct {
	cfg         Config
	manifest    []string
	manifestSet map[string]struct{}
	shellKey    string
	bypass      map[string]struct{}

	store cache.Storage
	net   Network
	pre   Precacher

	state atomic.Int32
}

// New builds a Worker in the parsed state. Manifest entries and the shell are
// resolved against the origin.
func New(cfg Config, store cache.Storage, net Network, pre Precacher) (*Worker, error) {
	if cfg.Origin == nil || !cfg.Origin.IsAbs() {
		return nil, errors.New("worker: origin must be an absolute URL")
	}
	if cfg.StaticPartition == "" || cfg.DynamicPartition == "" {
		return nil, errors.New("worker: partition names are required")
	}
	if cfg.StaticPartition == cfg.DynamicPartition {
		return nil, errors.New("worker: static and dynamic partitions must differ")
	}
	w := &Worker{
		cfg:         cfg,
		manifestSet: make(map[string]struct{}, len(cfg.Manifest)),
		bypass:      make(map[string]struct{}, len(cfg.BypassHosts)),
		store:       store,
		net:         net,
		pre:         pre,
	}
	for _, raw := range cfg.Manifest {
		abs, err := w.resolve(raw)
		if err != nil {
			return nil, fmt.Errorf("worker: manifest entry %q: %w", raw, err)
		}
		if _, dup := w.manifestSet[abs]; dup {
			continue
		}
		w.manifestSet[abs] = struct{}{}
		w.manifest = append(w.manifest, abs)
	}
	if cfg.Shell != "" {
		shell, err := w.resolve(cfg.Shell)
		if err != nil {
			return nil, fmt.Errorf("worker: shell %q: %w", cfg.Shell, err)
		}
		w.shellKey = cache.Key(http.MethodGet, shell)
	}
	for _, h := range cfg.BypassHosts {
		w.bypass[strings.ToLower(h)] = struct{}{}
	}
	return w, nil
}

func (w *Worker) resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return w.cfg.Origin.ResolveReference(u).String(), nil
}

// Manifest returns the absolute URLs precached at install.
func (w *Worker) Manifest() []string { return append([]string(nil), w.manifest...) }

// Partitions returns the static and dynamic partition names of this version.
func (w *Worker) Partitions() (static, dynamic string) {
	return w.cfg.StaticPartition, w.cfg.DynamicPartition
}

// State reports where the worker is in its lifecycle.
func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) setState(s State) { w.state.Store(int32(s)) }
