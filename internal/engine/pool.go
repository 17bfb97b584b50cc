package engine

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// PoolStatus is a snapshot of the pool counters
type PoolStatus struct {
	Workers    int   `json:"workers"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	InProgress int64 `json:"inProgress"`
	Queued     int64 `json:"queued"`
}

// PoolConfig contains configuration for the engine pool
type PoolConfig struct {
	Workers        int           // Concurrent engine instances (0 = NumCPU - 1)
	QueueSize      int           // Requests accepted ahead of the workers (0 = 4 per worker)
	RequestTimeout time.Duration // Deadline applied to each request (0 = none)
	NewHandler     func() (Handler, error)
}

type job struct {
	ctx   context.Context
	req   Request
	reply chan Response
}

// Pool runs requests on a fixed set of workers, each owning its own engine.
// A worker handles one request at a time.
type Pool struct {
	workers int
	timeout time.Duration
	jobs    chan job

	handlers []Handler

	mu      sync.Mutex
	started bool
	stopped bool
	quit    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	processedCount  int64
	failedCount     int64
	inProgressCount int64
	queuedCount     int64
}

// NewPool creates the engines for every worker. Call Start before Do.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.NewHandler == nil {
		return nil, fmt.Errorf("pool requires a handler factory")
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() - 1
		if workers < 1 {
			workers = 1
		}
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = workers * 4
	}

	handlers := make([]Handler, workers)
	for i := range handlers {
		h, err := cfg.NewHandler()
		if err != nil {
			return nil, fmt.Errorf("creating engine %d: %w", i, err)
		}
		handlers[i] = h
	}

	return &Pool{
		workers:  workers,
		timeout:  cfg.RequestTimeout,
		jobs:     make(chan job, queueSize),
		handlers: handlers,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return
	}
	p.started = true

	for i, h := range p.handlers {
		p.wg.Add(1)
		go p.worker(i, h)
	}
	log.Printf("[POOL] Started %d workers (queue %d, timeout %v)", p.workers, cap(p.jobs), p.timeout)
}

// Stop lets in-flight requests finish, then shuts the workers down. Requests
// still queued fail with ErrPoolClosed.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.quit)
	p.mu.Unlock()

	p.wg.Wait()

	p.drain()
	close(p.done)

	log.Printf("[POOL] Stopped: %d processed, %d failed",
		atomic.LoadInt64(&p.processedCount), atomic.LoadInt64(&p.failedCount))
}

// Do queues req and waits for its response. A missing request ID is filled in
// so the response can be correlated. The returned error is non-nil only when
// the request was never answered (pool stopped or ctx done while waiting).
func (p *Pool) Do(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	j := job{ctx: ctx, req: req, reply: make(chan Response, 1)}

	select {
	case <-p.quit:
		return Response{}, ErrPoolClosed
	default:
	}

	atomic.AddInt64(&p.queuedCount, 1)
	select {
	case p.jobs <- j:
	case <-p.quit:
		atomic.AddInt64(&p.queuedCount, -1)
		return Response{}, ErrPoolClosed
	case <-ctx.Done():
		atomic.AddInt64(&p.queuedCount, -1)
		return Response{}, ctx.Err()
	}

	return p.await(ctx, j)
}

// await waits for the reply to an enqueued job
func (p *Pool) await(ctx context.Context, j job) (Response, error) {
	select {
	case resp := <-j.reply:
		return resp, nil
	case <-p.done:
		select {
		case resp := <-j.reply:
			return resp, nil
		default:
			// The send raced with Stop and landed after its drain
			p.drain()
			return Response{}, ErrPoolClosed
		}
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// drain drops jobs that were queued but never picked up. Only called once the
// workers have exited.
func (p *Pool) drain() {
	for {
		select {
		case <-p.jobs:
			atomic.AddInt64(&p.queuedCount, -1)
		default:
			return
		}
	}
}

// Status returns the current counters
func (p *Pool) Status() PoolStatus {
	return PoolStatus{
		Workers:    p.workers,
		Processed:  atomic.LoadInt64(&p.processedCount),
		Failed:     atomic.LoadInt64(&p.failedCount),
		InProgress: atomic.LoadInt64(&p.inProgressCount),
		Queued:     atomic.LoadInt64(&p.queuedCount),
	}
}

func (p *Pool) worker(id int, h Handler) {
	defer p.wg.Done()

	for {
		// Stop wins over queued work
		select {
		case <-p.quit:
			return
		default:
		}

		select {
		case <-p.quit:
			return
		case j := <-p.jobs:
			atomic.AddInt64(&p.queuedCount, -1)
			j.reply <- p.run(id, h, j)
		}
	}
}

func (p *Pool) run(id int, h Handler, j job) Response {
	ctx := j.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	atomic.AddInt64(&p.inProgressCount, 1)
	defer atomic.AddInt64(&p.inProgressCount, -1)

	resp := h.Handle(ctx, j.req)
	if resp.Type == TypeError {
		atomic.AddInt64(&p.failedCount, 1)
		if resp.Code == KindTimeout {
			log.Printf("[POOL] Worker %d: request %s timed out", id, j.req.ID)
		}
	} else {
		atomic.AddInt64(&p.processedCount, 1)
	}
	return resp
}
