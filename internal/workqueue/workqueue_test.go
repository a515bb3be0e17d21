package workqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunsAllSubmittedTasks(t *testing.T) {
	p := New(context.Background(), 4)
	defer p.Close()

	var done atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Submit(Low, func(context.Context) { done.Add(1) }))
	}
	p.Wait()
	assert.Equal(t, int64(100), done.Load())
}

func TestPriorityOrderOnSingleWorker(t *testing.T) {
	p := New(context.Background(), 1)
	defer p.Close()

	// Park the single worker so the rest of the queue builds up behind it.
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(Low, func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	var mu sync.Mutex
	var order []Priority
	record := func(pr Priority) Task {
		return func(context.Context) {
			mu.Lock()
			order = append(order, pr)
			mu.Unlock()
		}
	}

	require.NoError(t, p.Submit(Low, record(Low)))
	require.NoError(t, p.Submit(Low, record(Low)))
	require.NoError(t, p.Submit(High, record(High)))
	require.NoError(t, p.Submit(Critical, record(Critical)))
	require.NoError(t, p.Submit(High, record(High)))

	close(release)
	p.Wait()

	assert.Equal(t, []Priority{Critical, High, High, Low, Low}, order)
}

func TestFIFOWithinBand(t *testing.T) {
	p := New(context.Background(), 1)
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(Low, func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, p.Submit(High, func(context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	close(release)
	p.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSubmitAfterCloseFails(t *testing.T) {
	p := New(context.Background(), 2)
	p.Close()

	err := p.Submit(Critical, func(context.Context) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseDrainsQueuedTasks(t *testing.T) {
	p := New(context.Background(), 2)

	var done atomic.Int64
	for i := 0; i < 50; i++ {
		require.NoError(t, p.Submit(High, func(context.Context) { done.Add(1) }))
	}
	p.Close()
	assert.Equal(t, int64(50), done.Load())
}

func TestLenCountsQueuedOnly(t *testing.T) {
	p := New(context.Background(), 1)
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(Low, func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	require.NoError(t, p.Submit(Low, func(context.Context) {}))
	require.NoError(t, p.Submit(Critical, func(context.Context) {}))
	assert.Equal(t, 2, p.Len())

	close(release)
	p.Wait()
	assert.Equal(t, 0, p.Len())
}

func TestPriorityString(t *testing.T) {
	assert.Equal(t, "critical", Critical.String())
	assert.Equal(t, "high", High.String())
	assert.Equal(t, "low", Low.String())
	assert.Equal(t, "unknown", Priority(9).String())
}
