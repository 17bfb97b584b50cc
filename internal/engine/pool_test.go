package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type handlerFunc func(ctx context.Context, req Request) Response

func (f handlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

func echoHandler() (Handler, error) {
	return handlerFunc(func(_ context.Context, req Request) Response {
		if req.Type != TypeExtractFeatures {
			return ErrorResponse(req.ID, UnsupportedOperation("nope"))
		}
		return Response{ID: req.ID, Type: TypeFeaturesExtracted, Data: req.Payload.TrackID}
	}), nil
}

func newTestPool(t *testing.T, cfg PoolConfig) *Pool {
	t.Helper()
	if cfg.NewHandler == nil {
		cfg.NewHandler = echoHandler
	}
	p, err := NewPool(cfg)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

func TestNewPoolRequiresFactory(t *testing.T) {
	if _, err := NewPool(PoolConfig{}); err == nil {
		t.Error("Expected error without a handler factory")
	}

	failing := func() (Handler, error) { return nil, errors.New("no engine") }
	if _, err := NewPool(PoolConfig{Workers: 2, NewHandler: failing}); err == nil {
		t.Error("Expected factory error to propagate")
	}
}

func TestPoolCreatesEnginePerWorker(t *testing.T) {
	var created int32
	factory := func() (Handler, error) {
		atomic.AddInt32(&created, 1)
		return echoHandler()
	}

	p := newTestPool(t, PoolConfig{Workers: 3, NewHandler: factory})
	if created != 3 {
		t.Errorf("Expected 3 engines, got %d", created)
	}
	if p.Status().Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", p.Status().Workers)
	}
}

func TestPoolDoAssignsID(t *testing.T) {
	p := newTestPool(t, PoolConfig{Workers: 1})

	resp, err := p.Do(context.Background(), Request{Type: TypeExtractFeatures, Payload: Payload{TrackID: "a"}})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.ID == "" {
		t.Error("Expected an assigned request ID")
	}
	if resp.Data != "a" {
		t.Errorf("Expected data a, got %v", resp.Data)
	}

	resp, err = p.Do(context.Background(), Request{ID: "mine", Type: TypeExtractFeatures})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.ID != "mine" {
		t.Errorf("Expected caller ID kept, got %q", resp.ID)
	}
}

func TestPoolConcurrentRequests(t *testing.T) {
	p := newTestPool(t, PoolConfig{Workers: 4, QueueSize: 2})

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ := TypeExtractFeatures
			if i%5 == 0 {
				typ = "bogus"
			}
			if _, err := p.Do(context.Background(), Request{Type: typ}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Do failed: %v", err)
	}

	status := p.Status()
	if status.Processed != 40 || status.Failed != 10 {
		t.Errorf("Expected 40 processed and 10 failed, got %d/%d", status.Processed, status.Failed)
	}
	if status.InProgress != 0 || status.Queued != 0 {
		t.Errorf("Expected idle pool, got %+v", status)
	}
}

func TestPoolRequestTimeout(t *testing.T) {
	slow := func() (Handler, error) {
		return handlerFunc(func(ctx context.Context, req Request) Response {
			<-ctx.Done()
			return ErrorResponse(req.ID, ctx.Err())
		}), nil
	}
	p := newTestPool(t, PoolConfig{Workers: 1, RequestTimeout: 20 * time.Millisecond, NewHandler: slow})

	resp, err := p.Do(context.Background(), Request{Type: TypeAnalyzeAudio})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.Type != TypeError || resp.Code != KindTimeout {
		t.Errorf("Expected Timeout error response, got %+v", resp)
	}
}

func TestPoolStop(t *testing.T) {
	p, err := NewPool(PoolConfig{Workers: 1, NewHandler: echoHandler})
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	p.Start()
	p.Stop()
	p.Stop() // idempotent

	if _, err := p.Do(context.Background(), Request{Type: TypeExtractFeatures}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
}

func TestPoolStopFinishesInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := func() (Handler, error) {
		return handlerFunc(func(_ context.Context, req Request) Response {
			close(started)
			<-release
			return Response{ID: req.ID, Type: TypeFeaturesExtracted}
		}), nil
	}

	p, err := NewPool(PoolConfig{Workers: 1, NewHandler: blocking})
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	p.Start()

	result := make(chan Response, 1)
	go func() {
		resp, _ := p.Do(context.Background(), Request{Type: TypeExtractFeatures})
		result <- resp
	}()

	<-started
	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	close(release)

	select {
	case resp := <-result:
		if resp.Type != TypeFeaturesExtracted {
			t.Errorf("Expected in-flight request to complete, got %+v", resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("In-flight request never completed")
	}
	<-stopped
}

func TestPoolDoContextCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	blocking := func() (Handler, error) {
		return handlerFunc(func(_ context.Context, req Request) Response {
			<-block
			return Response{ID: req.ID, Type: TypeFeaturesExtracted}
		}), nil
	}
	p := newTestPool(t, PoolConfig{Workers: 1, NewHandler: blocking})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := p.Do(ctx, Request{Type: TypeExtractFeatures}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestPoolStopFailsQueuedRequests(t *testing.T) {
	// Never started, so the request stays queued until Stop
	p, err := NewPool(PoolConfig{Workers: 1, NewHandler: echoHandler})
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	result := make(chan error, 1)
	go func() {
		_, err := p.Do(context.Background(), Request{Type: TypeExtractFeatures})
		result <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for p.Status().Queued != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Request was never queued")
		}
		time.Sleep(time.Millisecond)
	}

	p.Stop()

	select {
	case err := <-result:
		if !errors.Is(err, ErrPoolClosed) {
			t.Errorf("Expected ErrPoolClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Queued request never failed")
	}
	if q := p.Status().Queued; q != 0 {
		t.Errorf("Expected empty queue after Stop, got %d", q)
	}
}

func TestPoolJobQueuedAfterStopIsReclaimed(t *testing.T) {
	p, err := NewPool(PoolConfig{Workers: 1, NewHandler: echoHandler})
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	p.Start()
	p.Stop()

	// A send that won the race against quit and landed after Stop drained
	j := job{ctx: context.Background(), req: Request{ID: "late", Type: TypeExtractFeatures}, reply: make(chan Response, 1)}
	atomic.AddInt64(&p.queuedCount, 1)
	p.jobs <- j

	if _, err := p.await(context.Background(), j); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
	if q := p.Status().Queued; q != 0 {
		t.Errorf("Expected queued count 0, got %d", q)
	}
	if n := len(p.jobs); n != 0 {
		t.Errorf("Expected stranded job to be dropped, %d left", n)
	}
}
