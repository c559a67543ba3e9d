package manager

import (
	"context"
	"runtime"
	"sync"
)

// Dispatcher delivers disposal work to whichever goroutine owns the backend
// resources. Registry bookkeeping is always done before Dispatch is called,
// so fn only has to release the runner.
type Dispatcher interface {
	Dispatch(fn func())
}

// InlineDispatcher runs disposals on the calling goroutine.
type InlineDispatcher struct{}

func (InlineDispatcher) Dispatch(fn func()) { fn() }

// OwnerLoop queues disposals for a single owning goroutine. The owner either
// calls Run, which pins itself to an OS thread, or polls Drain from its own
// loop (for example once per frame).
type OwnerLoop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// NewOwnerLoop returns an empty loop.
func NewOwnerLoop() *OwnerLoop {
	return &OwnerLoop{wake: make(chan struct{}, 1)}
}

// Dispatch enqueues fn. After Run has returned fn runs inline, so nothing
// queued late is leaked.
func (l *OwnerLoop) Dispatch(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		fn()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued disposals.
func (l *OwnerLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Drain runs everything queued so far on the calling goroutine and returns
// how many functions ran.
func (l *OwnerLoop) Drain() int {
	l.mu.Lock()
	q := l.queue
	l.queue = nil
	l.mu.Unlock()
	for _, fn := range q {
		fn()
	}
	return len(q)
}

// Run locks the calling goroutine to its OS thread and drains the queue until
// ctx is done. Remaining work is drained before returning.
func (l *OwnerLoop) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.closed = true
			l.mu.Unlock()
			l.Drain()
			return
		case <-l.wake:
			l.Drain()
		}
	}
}

// Flush blocks until everything queued before the call has run, or ctx is done.
// The loop must be running (or drained by its owner) for Flush to return.
func (l *OwnerLoop) Flush(ctx context.Context) error {
	done := make(chan struct{})
	l.Dispatch(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
