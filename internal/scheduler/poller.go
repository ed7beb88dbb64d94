// Package scheduler runs the background live snapshot poll that keeps the
// Redis stream fresh between prediction requests.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds poller configuration
type Config struct {
	Interval             time.Duration // Default: 30s
	MaxConsecutiveErrors int           // Default: 5
	Backoff              time.Duration // Extra wait once the error limit is hit. Default: 20s
}

// DefaultConfig returns default poller configuration
func DefaultConfig() Config {
	return Config{
		Interval:             30 * time.Second,
		MaxConsecutiveErrors: 5,
		Backoff:              20 * time.Second,
	}
}

// PollFunc performs one poll. Publishing is the callee's business.
type PollFunc func(ctx context.Context) error

// Poller calls a PollFunc on a fixed interval until stopped. A failed poll is
// never retried; the next tick simply tries again.
type Poller struct {
	poll   PollFunc
	config Config
	logger *zap.SugaredLogger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu                sync.Mutex
	consecutiveErrors int
	lastSuccess       time.Time
}

// NewPoller creates a poller; zero config fields take their defaults
func NewPoller(poll PollFunc, config Config, logger *zap.SugaredLogger) *Poller {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.MaxConsecutiveErrors <= 0 {
		config.MaxConsecutiveErrors = def.MaxConsecutiveErrors
	}
	if config.Backoff < 0 {
		config.Backoff = 0
	}
	return &Poller{
		poll:   poll,
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start polls once immediately and then on every tick. It returns at once;
// the loop runs until ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
}

// Stop ends the loop and waits for an in-flight poll to finish
func (p *Poller) Stop() {
	p.once.Do(func() {
		if p.cancel != nil {
			p.cancel()
			<-p.done
		}
	})
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	p.logger.Infow("live snapshot polling started", "interval", p.config.Interval)
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("live snapshot polling stopped")
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	err := p.poll(ctx)

	p.mu.Lock()
	if err == nil {
		p.consecutiveErrors = 0
		p.lastSuccess = time.Now()
		p.mu.Unlock()
		return
	}
	p.consecutiveErrors++
	n := p.consecutiveErrors
	p.mu.Unlock()

	p.logger.Warnw("live snapshot poll failed", "error", err, "consecutive_errors", n)

	// Too many failures in a row: slow down.
	if n >= p.config.MaxConsecutiveErrors && p.config.Backoff > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(p.config.Backoff):
		}
	}
}

// Status reports the poller's state for diagnostics
func (p *Poller) Status() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]interface{}{
		"interval":           p.config.Interval.String(),
		"consecutive_errors": p.consecutiveErrors,
		"last_success":       p.lastSuccess,
	}
}
