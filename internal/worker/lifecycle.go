package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leonardcser/web-offline/internal/cache"
	"github.com/leonardcser/web-offline/internal/logger"
	"github.com/leonardcser/web-offline/internal/metrics"
)

// Install precaches every manifest URL into the static partition. All assets
// are fetched before anything is written, and they are written in a single
// transaction, so a failed install leaves no partial static partition behind.
// A failed install is not retried; the worker becomes redundant.
func (w *Worker) Install(ctx context.Context) error {
	w.setState(StateInstalling)
	logger.Infof("Installing cache version %s (%d manifest entries)", w.cfg.StaticPartition, len(w.manifest))

	var mu sync.Mutex
	entries := make(map[string]*cache.Entry, len(w.manifest))
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range w.manifest {
		g.Go(func() error {
			e, err := w.pre.Precache(gctx, u)
			if err != nil {
				return err
			}
			mu.Lock()
			entries[cache.Key(http.MethodGet, u)] = e
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return w.installFailed(err)
	}
	if err := w.store.PutAll(w.cfg.StaticPartition, entries); err != nil {
		return w.installFailed(fmt.Errorf("store static partition: %w", err))
	}

	w.setState(StateInstalled)
	metrics.Installs.WithLabelValues("ok").Inc()
	logger.Infof("Static files cached successfully into %s", w.cfg.StaticPartition)
	return nil
}

func (w *Worker) installFailed(err error) error {
	w.setState(StateRedundant)
	metrics.Installs.WithLabelValues("failed").Inc()
	logger.Errorf("Error caching static files for %s: %v", w.cfg.StaticPartition, err)
	return fmt.Errorf("%w: %w", ErrInstallFailed, err)
}

// Activate deletes every cache partition other than this worker's static and
// dynamic ones.
func (w *Worker) Activate(ctx context.Context) error {
	w.setState(StateActivating)
	names, err := w.store.Partitions()
	if err != nil {
		return fmt.Errorf("list partitions: %w", err)
	}
	for _, name := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if name == w.cfg.StaticPartition || name == w.cfg.DynamicPartition {
			continue
		}
		logger.Infof("Deleting old cache %s", name)
		if _, err := w.store.DeletePartition(name); err != nil {
			return fmt.Errorf("delete partition %s: %w", name, err)
		}
		metrics.PrunedPartitions.Inc()
	}
	w.setState(StateActivated)
	logger.Infof("Activated %s", w.cfg.StaticPartition)
	return nil
}
