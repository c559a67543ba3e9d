package manager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"workerd/internal/backend"
	"workerd/pkg/types"
)

func TestOwnerLoopDefersDisposalUntilDrained(t *testing.T) {
	loop := NewOwnerLoop()
	env := newTestManager(t, cpuOnlyCaps(), func(c *ManagerConfig) { c.Dispatcher = loop })
	w, err := env.m.CreateWorker(context.Background(), backend.CPU, model("m"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateWorker: %v", err)
	}
	if err := env.m.DisposeWorker(w); err != nil {
		t.Fatalf("DisposeWorker: %v", err)
	}
	r := env.l.Runners()[0]
	// Registry reflects the disposal immediately; the resource is released
	// only on the owner.
	if !w.Disposed() || env.m.ResourceStats().ActiveWorkers != 0 {
		t.Fatalf("record not removed before disposal was queued")
	}
	if r.closed.Load() != 0 || loop.Pending() != 1 {
		t.Fatalf("close ran off the owner: closed=%d pending=%d", r.closed.Load(), loop.Pending())
	}
	if n := loop.Drain(); n != 1 {
		t.Fatalf("expected one drained disposal, got %d", n)
	}
	if r.closed.Load() != 1 {
		t.Fatalf("runner not closed after drain")
	}
}

func TestOwnerLoopRunAndFlush(t *testing.T) {
	loop := NewOwnerLoop()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(stopped)
	}()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		loop.Dispatch(func() { ran.Add(1) })
	}
	fctx, fcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer fcancel()
	if err := loop.Flush(fctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if ran.Load() != 5 {
		t.Fatalf("expected 5 dispatched functions to run, got %d", ran.Load())
	}

	cancel()
	<-stopped
	// After Run returns, Dispatch runs inline.
	loop.Dispatch(func() { ran.Add(1) })
	if ran.Load() != 6 {
		t.Fatalf("dispatch after stop should run inline")
	}
}

func TestOwnerLoopFlushTimesOutWithoutOwner(t *testing.T) {
	loop := NewOwnerLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := loop.Flush(ctx); err == nil {
		t.Fatalf("expected Flush to time out with no owner draining")
	}
}

// ownerDispatcher marks the functions it runs so a loader can tell whether it
// was called on the owner.
type ownerDispatcher struct {
	loop    *OwnerLoop
	onOwner atomic.Bool
}

func (d *ownerDispatcher) Dispatch(fn func()) {
	d.loop.Dispatch(func() {
		d.onOwner.Store(true)
		defer d.onOwner.Store(false)
		fn()
	})
}

func newOwnerEnv(t *testing.T) (testEnv, *ownerDispatcher, *atomic.Int32) {
	t.Helper()
	d := &ownerDispatcher{loop: NewOwnerLoop()}
	var offOwner atomic.Int32
	env := newTestManager(t, cpuOnlyCaps(), func(c *ManagerConfig) {
		inner := c.Loader
		c.Loader = LoaderFunc(func(ctx context.Context, b backend.Backend, mdl types.Model, opts LoadOptions) (Runner, error) {
			if !d.onOwner.Load() {
				offOwner.Add(1)
			}
			return inner.Load(ctx, b, mdl, opts)
		})
		c.Dispatcher = d
		c.LoadOnOwner = true
	})
	return env, d, &offOwner
}

func TestLoadOnOwnerBuildsAndClosesOnOwner(t *testing.T) {
	env, d, offOwner := newOwnerEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		d.loop.Run(ctx)
		close(stopped)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	cctx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer ccancel()
	w, err := env.m.CreateWorker(cctx, backend.CPU, model("m"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateWorker: %v", err)
	}
	if n := offOwner.Load(); n != 0 {
		t.Fatalf("loader ran off the owner %d times", n)
	}
	if err := env.m.DisposeWorker(w); err != nil {
		t.Fatalf("DisposeWorker: %v", err)
	}
	if err := d.loop.Flush(cctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if r := env.l.Runners()[0]; r.closed.Load() != 1 {
		t.Fatalf("runner not closed on the owner")
	}
}

func TestLoadOnOwnerGivesUpWhenContextEnds(t *testing.T) {
	env, d, _ := newOwnerEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := env.m.CreateWorker(ctx, backend.CPU, model("m"), backend.DefaultConfig())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error with no owner draining, got %v", err)
	}
	if st := env.m.ResourceStats(); st.ActiveWorkers != 0 {
		t.Fatalf("abandoned load registered a worker: %+v", st)
	}
	// The owner catches up later; the abandoned load is skipped.
	d.loop.Drain()
	if n := len(env.l.Calls()); n != 0 {
		t.Fatalf("abandoned load still ran %d times", n)
	}
}
