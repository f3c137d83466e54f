// Package poller owns the per-view refresh loops. Each active view gets
// one Poller that fires a fetch-and-recompute cycle on a fixed interval,
// tracks PollState for the rendering layer, and guarantees that at most
// one fetch is in flight per view and that late responses cannot mutate
// state after teardown.
package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"marketview/logger"
	"marketview/models"
)

// RefreshFunc performs one fetch-and-aggregate cycle for a view. It must
// respect ctx cancellation; errors are recorded in PollState and the view
// keeps showing its previous data until the next tick.
type RefreshFunc func(ctx context.Context) error

type Poller struct {
	name     string
	interval time.Duration
	refresh  RefreshFunc
	log      *logger.Log

	mu       sync.RWMutex
	running  bool
	inFlight bool
	state    models.PollState
	cancel   context.CancelFunc

	// seq invalidates in-flight cycles on Stop: a response started under
	// an older sequence may not touch state.
	seq     atomic.Uint64
	skipped atomic.Int64

	wg sync.WaitGroup
}

func New(name string, interval time.Duration, refresh RefreshFunc) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		refresh:  refresh,
		log:      logger.GetLogger(),
	}
}

// Start runs the mount-time refresh immediately and then fires one cycle
// per interval until Stop or context cancellation.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller %s already running", p.name)
	}
	p.running = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.log.WithComponent("poller").WithFields(logger.Fields{
		"view":     p.name,
		"interval": p.interval.String(),
	}).Info("starting poller")

	p.wg.Add(1)
	go p.loop(ctx)

	return nil
}

// Stop tears the view down: the timer is cleared, no further fetches are
// issued, in-flight cycles are invalidated and PollState is reset.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	p.seq.Add(1)
	cancel()
	p.wg.Wait()

	p.mu.Lock()
	p.state = models.PollState{}
	p.inFlight = false
	p.mu.Unlock()

	p.log.WithComponent("poller").WithFields(logger.Fields{"view": p.name}).Info("poller stopped")
}

// State returns a snapshot of the view's refresh status.
func (p *Poller) State() models.PollState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SkippedTicks reports how many interval ticks were dropped because a
// fetch was still outstanding.
func (p *Poller) SkippedTicks() int64 {
	return p.skipped.Load()
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	log := p.log.WithComponent("poller").WithFields(logger.Fields{"view": p.name})

	// Mount-time refresh, then aligned interval ticks.
	p.cycle(ctx)

	now := time.Now()
	next := now.Truncate(p.interval).Add(p.interval)
	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("poll loop stopped")
			return
		case <-timer.C:
			start := time.Now()
			p.cycle(ctx)
			next = start.Truncate(p.interval).Add(p.interval)
			timer.Reset(time.Until(next))
		}
	}
}

// cycle launches one refresh unless the previous one is still running, in
// which case the tick is dropped so requests never queue or overlap.
func (p *Poller) cycle(ctx context.Context) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	if p.inFlight {
		p.mu.Unlock()
		p.skipped.Add(1)
		logger.IncrementTickSkipped()
		p.log.WithComponent("poller").WithFields(logger.Fields{"view": p.name}).Debug("tick skipped, fetch still in flight")
		return
	}
	p.inFlight = true
	p.state.IsRefreshing = true
	p.mu.Unlock()

	mySeq := p.seq.Load()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		start := time.Now()
		err := p.refresh(ctx)
		p.finish(mySeq, err, time.Since(start))
	}()
}

func (p *Poller) finish(mySeq uint64, err error, duration time.Duration) {
	p.mu.Lock()
	p.inFlight = false
	if !p.running || p.seq.Load() != mySeq {
		// The view was torn down while this fetch was out; its result is
		// stale and must not be applied.
		p.mu.Unlock()
		return
	}
	p.state.IsRefreshing = false
	if err != nil {
		p.state.Error = err.Error()
	} else {
		p.state.LastUpdated = time.Now().UTC()
		p.state.Error = ""
	}
	p.mu.Unlock()

	log := p.log.WithComponent("poller").WithFields(logger.Fields{
		"view":        p.name,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		log.WithError(err).Warn("refresh failed, keeping previous data")
		return
	}
	if duration > p.interval {
		log.WithFields(logger.Fields{"interval": p.interval.String()}).Warn("refresh took longer than interval")
	}
	log.Debug("refresh complete")
}
