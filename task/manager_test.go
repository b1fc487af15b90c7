package task

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietOptions() ManagerOptions {
	opts := DefaultManagerOptions()
	opts.NoColor = true
	opts.RetryDelay = time.Millisecond
	return opts
}

func TestDefaultsDoNotRetry(t *testing.T) {
	opts := DefaultManagerOptions()
	assert.Zero(t, opts.MaxRetries)
	assert.Equal(t, 1, opts.MaxConcurrent)

	var out bytes.Buffer
	m := NewManagerWithOutput(context.Background(), quietOptions(), &out)
	ok := m.Start("ok.svg", func(ctx context.Context, t *Task) error {
		t.Infof("written")
		return nil
	})
	bad := m.Start("bad.svg", func(ctx context.Context, t *Task) error {
		return errors.New("all conversion tiers failed")
	})

	assert.Equal(t, 1, m.Wait())
	assert.Equal(t, StatusSuccess, ok.Status())
	assert.Equal(t, StatusFailed, bad.Status())
	assert.Equal(t, 1, bad.Attempts())
	assert.EqualError(t, bad.Err(), "all conversion tiers failed")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, out.String(), "✓ ok.svg written")
	assert.Contains(t, out.String(), "✗ bad.svg all conversion tiers failed")
	assert.NotContains(t, out.String(), "\x1b[")
}

func TestRetries(t *testing.T) {
	opts := quietOptions()
	opts.MaxRetries = 2
	var out bytes.Buffer
	m := NewManagerWithOutput(context.Background(), opts, &out)

	var calls atomic.Int32
	flaky := m.Start("flaky", func(ctx context.Context, t *Task) error {
		if calls.Add(1) < 3 {
			return errors.New("timeout")
		}
		return nil
	})
	always := m.Start("always", func(ctx context.Context, t *Task) error {
		return errors.New("broken")
	})

	assert.Equal(t, 1, m.Wait())
	assert.Equal(t, StatusSuccess, flaky.Status())
	assert.Equal(t, 3, flaky.Attempts())
	assert.Equal(t, StatusFailed, always.Status())
	assert.Equal(t, 3, always.Attempts())
}

func TestWarningAndPanic(t *testing.T) {
	var out bytes.Buffer
	m := NewManagerWithOutput(context.Background(), quietOptions(), &out)
	warn := m.Start("copy", func(ctx context.Context, t *Task) error {
		t.Warnf("copied without branding")
		return nil
	})
	boom := m.Start("boom", func(ctx context.Context, t *Task) error {
		panic("nil rasterizer")
	})

	assert.Equal(t, 1, m.Wait())
	assert.Equal(t, StatusWarning, warn.Status())
	assert.Equal(t, StatusFailed, boom.Status())
	assert.ErrorContains(t, boom.Err(), "panic: nil rasterizer")
	assert.Contains(t, out.String(), "⚠ copy copied without branding")
}

func TestMaxConcurrent(t *testing.T) {
	opts := quietOptions()
	opts.MaxConcurrent = 2
	m := NewManagerWithOutput(context.Background(), opts, &bytes.Buffer{})

	var running, peak atomic.Int32
	var mu sync.Mutex
	for i := 0; i < 6; i++ {
		m.Start("t", func(ctx context.Context, t *Task) error {
			n := running.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	assert.Zero(t, m.Wait())
	assert.Equal(t, int32(2), peak.Load())
}

func TestCancelDuringWait(t *testing.T) {
	opts := quietOptions()
	opts.GracefulTimeout = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManagerWithOutput(ctx, opts, &bytes.Buffer{})

	started := make(chan struct{})
	running := m.Start("running", func(ctx context.Context, t *Task) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	queued := m.Start("queued", func(ctx context.Context, t *Task) error {
		return nil
	})

	<-started
	cancel()
	assert.Equal(t, 2, m.Wait())
	assert.Equal(t, StatusFailed, running.Status())
	assert.Equal(t, StatusCancelled, queued.Status())
	assert.Zero(t, queued.Attempts())
}
