package session

import (
	"context"
	"sync"
	"time"

	"github.com/petasbytes/theraia/internal/log"
)

// DefaultCleanupInterval is how often expired sessions are swept.
const DefaultCleanupInterval = time.Minute

// CleanupService sweeps a Manager on a ticker.
type CleanupService struct {
	manager  *Manager
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewCleanupService returns a service; interval <= 0 means DefaultCleanupInterval.
func NewCleanupService(manager *Manager, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupService{manager: manager, interval: interval}
}

// Start runs the sweep loop until ctx ends or Stop is called. Starting a
// running service is a no-op.
func (c *CleanupService) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.running = true
	go c.run(ctx, c.done)
}

// Stop cancels the loop and waits for it to exit.
func (c *CleanupService) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
}

func (c *CleanupService) run(ctx context.Context, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *CleanupService) sweep() {
	if n := c.manager.CleanupExpired(); n > 0 {
		stats := c.manager.Stats()
		log.Info().Int("removed", n).Int("remaining", stats["total"]).Msg("expired sessions removed")
	}
}
