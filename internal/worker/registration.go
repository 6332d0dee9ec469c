package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/leonardcser/web-offline/internal/logger"
)

// Registration tracks which Worker controls intercepted requests.
type Registration struct {
	mu     sync.Mutex
	active atomic.Pointer[Worker]
}

// Active returns the controlling worker, or nil when none has activated yet.
func (r *Registration) Active() *Worker { return r.active.Load() }

// Register installs w and, on success, activates it immediately and claims
// all subsequent requests for it. If install fails the previously active
// worker stays in control and the install error is returned.
func (r *Registration) Register(ctx context.Context, w *Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := w.Install(ctx); err != nil {
		if prev := r.active.Load(); prev != nil {
			logger.Warnf("Keeping %s in control after failed install", prev.cfg.StaticPartition)
		}
		return err
	}
	// Activation errors leave stale partitions for the next activation to
	// prune; they do not stop the new version from taking over.
	if err := w.Activate(ctx); err != nil {
		logger.Errorf("Activation of %s incomplete: %v", w.cfg.StaticPartition, err)
		w.setState(StateActivated)
	}
	if prev := r.active.Swap(w); prev != nil && prev != w {
		prev.setState(StateRedundant)
	}
	logger.Infof("%s now controls all clients", w.cfg.StaticPartition)
	return nil
}

// Status describes the controlling worker.
type Status struct {
	State      string   `json:"state"`
	Static     string   `json:"static,omitempty"`
	Dynamic    string   `json:"dynamic,omitempty"`
	Partitions []string `json:"partitions,omitempty"`
	// Entries counts the responses stored in each partition.
	Entries map[string]int `json:"entries,omitempty"`
}

// Status reports the active worker and the partitions in its storage.
func (r *Registration) Status() Status {
	wk := r.active.Load()
	if wk == nil {
		return Status{State: "uncontrolled"}
	}
	st := Status{State: wk.State().String()}
	st.Static, st.Dynamic = wk.Partitions()
	names, err := wk.store.Partitions()
	if err != nil {
		logger.Warnf("Could not list cache partitions: %v", err)
		return st
	}
	st.Partitions = names
	st.Entries = make(map[string]int, len(names))
	for _, name := range names {
		keys, err := wk.store.Keys(name)
		if err != nil {
			logger.Warnf("Could not list keys of %s: %v", name, err)
			continue
		}
		st.Entries[name] = len(keys)
	}
	return st
}
