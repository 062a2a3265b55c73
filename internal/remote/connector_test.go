package remote_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/remote"
	"github.com/evanofslack/adsmutate/internal/remote/remotetest"
)

type recorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func flakyFactory(failures int, client remote.Client) (remote.Factory, *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) (remote.Client, error) {
		n := calls.Add(1)
		if int(n) <= failures {
			return nil, errors.New("oauth2: cannot fetch token: connection refused")
		}
		return client, nil
	}, &calls
}

func TestConnectorRetriesThenCaches(t *testing.T) {
	fake := &remotetest.Client{}
	factory, calls := flakyFactory(2, fake)
	rec := &recorder{}
	c := remote.NewConnector(factory, metrics.New(false), remote.WithSleep(rec.sleep), remote.WithBaseDelay(time.Second))

	got, err := c.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, fake, got)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
	assert.Equal(t, remote.StateReady, c.State())

	again, err := c.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, fake, again)
	assert.EqualValues(t, 3, calls.Load(), "cached client must not trigger new attempts")
	assert.Len(t, rec.delays, 2)
}

func TestConnectorExhaustsAndStaysFailed(t *testing.T) {
	factory, calls := flakyFactory(100, nil)
	rec := &recorder{}
	c := remote.NewConnector(factory, metrics.New(false), remote.WithSleep(rec.sleep), remote.WithBaseDelay(10*time.Millisecond))

	_, err := c.Client(context.Background())
	require.Error(t, err)
	assert.Equal(t, apierr.KindConnectorInit, apierr.KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, rec.delays)
	assert.Equal(t, remote.StateFailed, c.State())

	_, err2 := c.Client(context.Background())
	assert.Same(t, err, err2)
	assert.EqualValues(t, 3, calls.Load())

	c.Reset()
	assert.Equal(t, remote.StateUninitialized, c.State())
	_, _ = c.Client(context.Background())
	assert.EqualValues(t, 6, calls.Load())
}

func TestConnectorCancelledDuringBackoff(t *testing.T) {
	factory, _ := flakyFactory(1, &remotetest.Client{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := remote.NewConnector(factory, metrics.New(false), remote.WithBaseDelay(time.Hour))
	_, err := c.Client(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, remote.StateUninitialized, c.State())

	got, err := c.Client(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestConnectorConcurrentFirstUse(t *testing.T) {
	fake := &remotetest.Client{}
	factory, calls := flakyFactory(0, fake)
	c := remote.NewConnector(factory, metrics.New(false))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Client(context.Background())
			assert.NoError(t, err)
			assert.Same(t, fake, got)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, calls.Load())
}
