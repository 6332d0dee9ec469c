package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/leonardcser/web-offline/internal/logger"
)

// Probe watches origin reachability on a cron schedule and fires every sync
// tag when the origin comes back after being unreachable. The origin counts
// as unreachable until the first successful check, so submissions left over
// from a previous run are replayed on startup.
type Probe struct {
	target string
	net    Network
	tags   []string
	fire   func(ctx context.Context, tag string)

	cron    *cron.Cron
	mu      sync.Mutex
	online  bool
	running bool
}

// NewProbe returns a Probe that checks target and calls fire for each tag on
// recovery.
func NewProbe(target string, net Network, tags []string, fire func(ctx context.Context, tag string)) *Probe {
	return &Probe{target: target, net: net, tags: tags, fire: fire}
}

// Start schedules checks until ctx is done or Stop is called.
func (p *Probe) Start(ctx context.Context, schedule string) error {
	p.cron = cron.New()
	if _, err := p.cron.AddFunc(schedule, func() { p.Check(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule probe: %w", err)
	}
	p.cron.Start()
	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a running check to finish.
func (p *Probe) Stop() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
}

// Check probes the origin once and reports whether it is reachable.
func (p *Probe) Check(ctx context.Context) bool {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return p.Online()
	}
	p.running = true
	p.mu.Unlock()

	up := p.reachable(ctx)

	p.mu.Lock()
	recovered := up && !p.online
	if p.online && !up {
		logger.Warnf("Origin %s unreachable; going offline", p.target)
	}
	p.online = up
	p.running = false
	p.mu.Unlock()

	if recovered {
		logger.Infof("Origin %s reachable again; triggering sync", p.target)
		for _, tag := range p.tags {
			p.fire(ctx, tag)
		}
	}
	return up
}

// Online reports the result of the last check.
func (p *Probe) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *Probe) reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.target, nil)
	if err != nil {
		return false
	}
	resp, err := p.net.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	// Any HTTP answer means the network path works.
	return true
}
