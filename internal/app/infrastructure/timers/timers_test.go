package timers

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync/atomic"
	"testing"
	"time"
)

func TestPeriodic_RunsUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("test", 5*time.Millisecond, func(context.Context) {
		runs.Add(1)
	}, RunAtStart())

	assert.Equal(t, "test", p.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestPeriodic_RunAtStart(t *testing.T) {
	started := make(chan struct{}, 1)
	p := NewPeriodic("slow", time.Hour, func(context.Context) {
		started <- struct{}{}
	}, RunAtStart())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Serve(ctx) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task did not run at start")
	}
}
