// Package workqueue runs property computations on a fixed pool of workers,
// draining three priority bands strictly in order. Viewport-critical work
// always preempts queued background work, though it never interrupts a task
// already running.
package workqueue

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/propgrid/internal/ctxlog"
)

// Priority selects the band a task is queued into.
type Priority int

const (
	// Critical covers viewport rendering and user interactions.
	Critical Priority = iota
	// High covers near-viewport work and initial load.
	High
	// Low covers off-screen and background work.
	Low

	numBands
)

func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Low:
		return "low"
	default:
		return "unknown"
	}
}

// Task is one unit of queued work. The context is the pool's run context;
// tasks should return early when it is cancelled.
type Task func(ctx context.Context)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("workqueue: pool closed")

// Pool is a fixed-size worker pool with strict priority ordering: a worker
// never picks up a High task while a Critical one is queued, nor a Low task
// while anything else is queued.
type Pool struct {
	ctx context.Context

	mu     sync.Mutex
	cond   *sync.Cond
	bands  [numBands][]Task
	closed bool

	pending sync.WaitGroup
	workers sync.WaitGroup
}

// New starts a pool with the given number of workers. The context carries
// the pool's logger and cancels in-flight tasks cooperatively.
func New(ctx context.Context, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{ctx: ctx}
	p.cond = sync.NewCond(&p.mu)

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting worker pool.", "workers", workers)

	for i := 0; i < workers; i++ {
		p.workers.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit queues task in the given band. Tasks within one band run in FIFO
// order; ordering across bands follows priority only.
func (p *Pool) Submit(priority Priority, task Task) error {
	if priority < Critical || priority > Low {
		priority = Low
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.bands[priority] = append(p.bands[priority], task)
	p.pending.Add(1)
	p.mu.Unlock()

	p.cond.Signal()
	return nil
}

// Wait blocks until every task submitted so far has finished.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Len reports the number of queued tasks across all bands, not counting
// tasks currently executing.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, band := range p.bands {
		n += len(band)
	}
	return n
}

// Close stops accepting work, lets queued tasks drain, and returns once all
// workers have exited. Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cond.Broadcast()
	p.workers.Wait()
}

func (p *Pool) worker(id int) {
	defer p.workers.Done()
	logger := ctxlog.FromContext(p.ctx).With("workerID", id)
	logger.Debug("Worker started.")

	for {
		task, ok := p.next()
		if !ok {
			logger.Debug("Worker finished.")
			return
		}
		task(p.ctx)
		p.pending.Done()
	}
}

// next pops the highest-priority queued task, blocking while all bands are
// empty. It returns false once the pool is closed and fully drained.
func (p *Pool) next() (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		for band := range p.bands {
			if len(p.bands[band]) > 0 {
				task := p.bands[band][0]
				p.bands[band] = p.bands[band][1:]
				return task, true
			}
		}
		if p.closed {
			return nil, false
		}
		p.cond.Wait()
	}
}
