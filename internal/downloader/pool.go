package downloader

import "sync"

// Pool executes orchestration tasks. It is injected so the composing
// component owns pool size and lifetime, and tests can run tasks
// synchronously.
type Pool interface {
	Submit(task func())
}

// WorkerPool is a fixed-size pool draining a FIFO queue. Submission never
// blocks the caller.
type WorkerPool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	wg     sync.WaitGroup
}

// NewWorkerPool starts size workers.
func NewWorkerPool(size int) *WorkerPool {
	p := &WorkerPool{}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues a task. Tasks submitted after Shutdown are dropped.
func (p *WorkerPool) Submit(task func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.queue = append(p.queue, task)
	p.cond.Signal()
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		task()
	}
}

// Shutdown stops accepting tasks, drains the queue and waits for the
// workers to finish.
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

// SyncPool runs every task inline on the submitting goroutine.
// Deterministic execution for tests.
type SyncPool struct{}

func (SyncPool) Submit(task func()) {
	task()
}
