package weather

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// Provider is the upstream a Cache reads through
type Provider interface {
	Current(ctx context.Context) (*Current, error)
	Forecast(ctx context.Context, days int) (*Forecast, error)
}

// Cache serves current weather from memory and refreshes it on a schedule.
// Forecasts always go to the provider.
type Cache struct {
	provider Provider
	clock    clockwork.Clock
	logger   *slog.Logger
	timeout  time.Duration

	mu        sync.RWMutex
	current   *Current
	fetchedAt time.Time
}

// NewCache wraps provider; timeout bounds each scheduled refresh
func NewCache(provider Provider, clock clockwork.Clock, timeout time.Duration, logger *slog.Logger) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{provider: provider, clock: clock, timeout: timeout, logger: logger}
}

// Refresh replaces the cached current weather. The previous value is kept on failure.
func (c *Cache) Refresh(ctx context.Context) error {
	cur, err := c.provider.Current(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.current = cur
	c.fetchedAt = c.clock.Now()
	c.mu.Unlock()
	return nil
}

// Current returns the cached conditions, falling back to a live call while the cache is empty
func (c *Cache) Current(ctx context.Context) (*Current, error) {
	c.mu.RLock()
	cur := c.current
	c.mu.RUnlock()
	if cur != nil {
		return cur, nil
	}

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, nil
}

// Forecast passes through to the provider
func (c *Cache) Forecast(ctx context.Context, days int) (*Forecast, error) {
	return c.provider.Forecast(ctx, days)
}

// FetchedAt reports when the cache was last filled, zero if never
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Schedule registers a refresh job on the scheduler
func (c *Cache) Schedule(scheduler *cron.Cron, spec string) (cron.EntryID, error) {
	return scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn("scheduled weather refresh failed", "error", err)
		}
	})
}
