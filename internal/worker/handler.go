package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leonardcser/web-offline/internal/forms"
	"github.com/leonardcser/web-offline/internal/logger"
	"github.com/leonardcser/web-offline/internal/metrics"
	"github.com/leonardcser/web-offline/internal/push"
	"github.com/leonardcser/web-offline/internal/queue"
)

const maxPushPayload = 4 << 10

// Syncer replays the queue a sync tag names.
type Syncer interface {
	Sync(ctx context.Context, tag string, d queue.Deliverer) (queue.ReplayResult, error)
}

// Handler is the edge's public HTTP surface: form intake and interception of
// everything else. The /__sw/ admin endpoints are served separately by Admin.
type Handler struct {
	origin  *url.URL
	reg     *Registration
	net     Network
	queue   Syncer
	deliver queue.Deliverer
	push    *push.Center
	mux     *http.ServeMux
	admin   *http.ServeMux
}

// NewHandler wires the public routes and the admin routes of the edge.
func NewHandler(origin *url.URL, reg *Registration, net Network, q Syncer, d queue.Deliverer, intake *forms.Intake, center *push.Center) *Handler {
	h := &Handler{
		origin:  origin,
		reg:     reg,
		net:     net,
		queue:   q,
		deliver: d,
		push:    center,
		mux:     http.NewServeMux(),
		admin:   http.NewServeMux(),
	}
	if intake != nil {
		intake.Register(h.mux)
	}
	h.mux.HandleFunc("/", h.intercept)

	h.admin.HandleFunc("POST /__sw/sync", h.handleSync)
	h.admin.HandleFunc("POST /__sw/push", h.handlePush)
	h.admin.HandleFunc("GET /__sw/notifications", h.handleNotifications)
	h.admin.HandleFunc("POST /__sw/notifications/click", h.handleClick)
	h.admin.HandleFunc("POST /__sw/notifications/close", h.handleClose)
	h.admin.HandleFunc("GET /__sw/status", h.handleStatus)
	h.admin.Handle("GET /__sw/metrics", promhttp.Handler())
	return h
}

// Admin returns the sync, push, status and metrics endpoints. It is meant for
// a listener that site visitors cannot reach.
func (h *Handler) Admin() http.Handler { return h.admin }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Absolute-form requests are forward-proxied third-party fetches; they
	// never reach the edge's own routes.
	if r.URL.IsAbs() {
		h.intercept(w, r)
		return
	}
	h.mux.ServeHTTP(w, r)
}

// Target returns the absolute URL an incoming request is for.
func (h *Handler) Target(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	u := *h.origin
	u.Path = r.URL.Path
	u.RawPath = r.URL.RawPath
	u.RawQuery = r.URL.RawQuery
	u.Fragment = ""
	return u.String()
}

func (h *Handler) intercept(w http.ResponseWriter, r *http.Request) {
	target := h.Target(r)
	if wk := h.reg.Active(); wk != nil {
		if entry, handled := wk.Respond(r.Context(), r, target); handled {
			entry.WriteTo(w)
			return
		}
	} else {
		metrics.StrategyResults.WithLabelValues("uncontrolled", metrics.OutcomeBypassed).Inc()
	}
	h.passThrough(w, r, target)
}

// passThrough forwards a request the worker does not intercept and streams
// the answer back unmodified.
func (h *Handler) passThrough(w http.ResponseWriter, r *http.Request, target string) {
	req, err := outbound(r.Context(), r, target)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := h.net.Do(req)
	if err != nil {
		logger.Warnf("Network request for %s failed: %v", target, err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	res, err := h.queue.Sync(r.Context(), tag, h.deliver)
	if errors.Is(err, queue.ErrUnknownTag) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		logger.Errorf("Background sync failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handlePush(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPushPayload))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, h.push.Receive(payload))
}

func (h *Handler) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.push.List())
}

func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	tag := r.FormValue("tag")
	if tag == "" {
		tag = push.Tag
	}
	open := h.push.Click(tag, r.FormValue("action"))
	writeJSON(w, http.StatusOK, map[string]string{"open": open})
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	tag := r.FormValue("tag")
	if tag == "" {
		tag = push.Tag
	}
	writeJSON(w, http.StatusOK, map[string]bool{"closed": h.push.Close(tag)})
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
