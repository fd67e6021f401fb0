package daemon

import (
	"context"
	"sync"
)

// WorkerGroup tracks daemon-owned goroutines and gives Stop a single place to
// wait for them. Go refuses new workers once stopping has begun, so Add never
// races with Wait.
type WorkerGroup struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	stopping bool
}

// Go starts fn unless the group is stopping.
func (g *WorkerGroup) Go(fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopping {
		return false
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
	return true
}

// reset reopens a group whose workers have all returned.
func (g *WorkerGroup) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopping = false
}

// StopAndWait blocks until every worker has returned or ctx is done.
func (g *WorkerGroup) StopAndWait(ctx context.Context) error {
	g.mu.Lock()
	g.stopping = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
