package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval bounds how stale the notification badge can get.
const DefaultInterval = 30 * time.Second

// Target is refreshed on every tick.
type Target interface {
	Refresh(ctx context.Context) error
}

// Poller refreshes its target immediately on Start and then on every
// interval until Stop is called or the context passed to Start is done.
type Poller struct {
	target   Target
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func New(target Target, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{target: target, interval: interval, logger: logger, stop: make(chan struct{})}
}

// Start launches the polling goroutine. Calling Start twice is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, cancel := context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		p.run(ctx)
	}()
	// Stop must also abort a refresh in flight
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case <-p.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
}

// Stop signals the poller to exit and waits for it. It is idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-p.stop:
			p.logger.Debug("poller stopping")
			return
		case <-ctx.Done():
			p.logger.Debug("context canceled, poller exiting")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.target.Refresh(ctx); err != nil && ctx.Err() == nil {
		// the next tick is the retry
		p.logger.Warn("poll refresh failed", "err", err)
	}
}
