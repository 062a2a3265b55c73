package remote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/config"
	"github.com/evanofslack/adsmutate/internal/metrics"
)

// Factory constructs an authenticated Client.
type Factory func(ctx context.Context) (Client, error)

// RESTFactory returns a Factory building REST clients from cfg.
func RESTFactory(cfg config.API, m *metrics.Metrics) Factory {
	return func(ctx context.Context) (Client, error) {
		rest, err := NewREST(ctx, cfg, m)
		if err != nil {
			return nil, err
		}
		return rest, nil
	}
}

type State int

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "uninitialized"
}

// Connector lazily constructs one Client and caches it. Construction is
// retried with a doubling delay; once the attempts are exhausted the
// connector stays failed until Reset.
type Connector struct {
	mu          sync.Mutex
	factory     Factory
	metrics     *metrics.Metrics
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error

	client Client
	err    error
}

type Option func(*Connector)

func WithMaxAttempts(n int) Option {
	return func(c *Connector) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(c *Connector) { c.baseDelay = d }
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Connector) { c.sleep = fn }
}

func NewConnector(factory Factory, m *metrics.Metrics, opts ...Option) *Connector {
	c := &Connector{
		factory:     factory,
		metrics:     m,
		maxAttempts: 3,
		baseDelay:   time.Second,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Client returns the cached client, constructing it on first use.
func (c *Connector) Client(ctx context.Context) (Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.err != nil {
		return nil, c.err
	}

	var last error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		client, err := c.factory(ctx)
		if err == nil {
			c.metrics.IncConnectorAttempt(true)
			slog.InfoContext(ctx, "Connector ready", "attempt", attempt)
			c.client = client
			return client, nil
		}
		c.metrics.IncConnectorAttempt(false)
		last = err
		if attempt == c.maxAttempts {
			break
		}

		delay := c.baseDelay << (attempt - 1)
		slog.WarnContext(ctx, "Connector initialization failed, retrying", "attempt", attempt, "max_attempts", c.maxAttempts, "delay", delay, "error", err)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	c.err = apierr.ConnectorInit(c.maxAttempts, last)
	slog.ErrorContext(ctx, "Connector initialization failed", "attempts", c.maxAttempts, "error", last)
	return nil, c.err
}

func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.client != nil:
		return StateReady
	case c.err != nil:
		return StateFailed
	}
	return StateUninitialized
}

// Reset drops the cached client or failure.
func (c *Connector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = nil
	c.err = nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
