package manager

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"workerd/internal/backend"
)

func TestSpecializedWithoutReleaseReturnsDistinctHandles(t *testing.T) {
	env := newTestManager(t, nvidiaCaps(), nil)
	ctx := context.Background()
	before := env.m.ResourceStats().ActiveWorkers
	a, err := env.m.CreateSpecializedWorker(ctx, backend.Generic, model("asset"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := env.m.CreateSpecializedWorker(ctx, backend.Generic, model("asset"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a == b || a.ID() == b.ID() {
		t.Fatalf("expected distinct handles")
	}
	if got := env.m.ResourceStats().ActiveWorkers; got != before+2 {
		t.Fatalf("expected count +2, got %d -> %d", before, got)
	}
	if a.Disposed() {
		t.Fatalf("displaced in-use entry must stay alive")
	}
}

func TestSpecializedReleaseThenReuseKeepsResource(t *testing.T) {
	env := newTestManager(t, nvidiaCaps(), nil)
	ctx := context.Background()
	a, err := env.m.CreateSpecializedWorker(ctx, backend.Depth, model("midas"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	res := a.Resource()
	if err := env.m.Release(a); err != nil {
		t.Fatalf("Release: %v", err)
	}
	b, err := env.m.CreateSpecializedWorker(ctx, backend.Depth, model("midas"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a != b {
		t.Fatalf("expected the same handle after release")
	}
	if b.Resource() != res {
		t.Fatalf("underlying resource changed across reuse")
	}
	if n := len(env.l.Calls()); n != 1 {
		t.Fatalf("reuse must not construct; loader called %d times", n)
	}
	if env.pub.Count(EventWorkerReused) != 1 {
		t.Fatalf("expected worker_reused event")
	}
	st := env.m.ResourceStats()
	if st.InUseWorkers != 1 || !st.Workers[0].Specialized {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestSpecializedAppliesTypeTuning(t *testing.T) {
	env := newTestManager(t, nvidiaCaps(), nil)
	ctx := context.Background()
	seg, err := env.m.CreateSpecializedWorker(ctx, backend.Segmentation, model("sam"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("segmentation: %v", err)
	}
	if c := seg.Config(); c.Profile != backend.Performance || !c.AllowGPUFallback || !seg.Backend().IsGPU() {
		t.Fatalf("unexpected segmentation tuning: %+v", c)
	}
	pose, err := env.m.CreateSpecializedWorker(ctx, backend.Pose, model("pose"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("pose: %v", err)
	}
	if c := pose.Config(); c.Profile != backend.Quality || c.AllowHalfPrecision {
		t.Fatalf("unexpected pose tuning: %+v", c)
	}
}

func TestSpecializedCacheEntryDroppedOnDispose(t *testing.T) {
	env := newTestManager(t, cpuOnlyCaps(), nil)
	ctx := context.Background()
	a, err := env.m.CreateSpecializedWorker(ctx, backend.Generic, model("m"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.m.DisposeWorker(a); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	b, err := env.m.CreateSpecializedWorker(ctx, backend.Generic, model("m"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if a == b || b.Disposed() {
		t.Fatalf("expected a fresh worker after dispose")
	}
}

func TestSpecializedConcurrentCallersNeverShareHandle(t *testing.T) {
	nop := zerolog.Nop()
	env := newTestManager(t, nvidiaCaps(), func(c *ManagerConfig) { c.Logger = &nop })
	ctx := context.Background()

	const goroutines = 8
	const rounds = 25
	var holders sync.Map
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				w, err := env.m.CreateSpecializedWorker(ctx, backend.Generic, model("shared"), backend.DefaultConfig())
				if err != nil {
					errs <- err
					return
				}
				if _, loaded := holders.LoadOrStore(w, true); loaded {
					t.Errorf("handle %s handed to two callers at once", w.ID())
					return
				}
				holders.Delete(w)
				if err := env.m.Release(w); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("worker error: %v", err)
	}

	cached := 0
	for _, ws := range env.m.ResourceStats().Workers {
		if ws.Specialized {
			cached++
		}
	}
	if cached != 1 {
		t.Fatalf("expected exactly one cache entry, got %d", cached)
	}
}

func TestSpecializedKeepsCacheTypeOverAssetType(t *testing.T) {
	env := newTestManager(t, nvidiaCaps(), nil)
	ctx := context.Background()
	sam := model("sam")
	sam.Type = string(backend.Segmentation)

	w, err := env.m.CreateSpecializedWorker(ctx, backend.Generic, sam, backend.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateSpecializedWorker: %v", err)
	}
	if w.ModelType() != backend.Generic {
		t.Fatalf("worker type %s, want the cache type generic", w.ModelType())
	}
	if st := env.m.ResourceStats(); !st.Workers[0].Specialized {
		t.Fatalf("cached worker reported as not specialized: %+v", st.Workers[0])
	}
	if err := env.m.DisposeWorker(w); err != nil {
		t.Fatalf("DisposeWorker: %v", err)
	}
	env.m.mu.Lock()
	stale := env.m.specialized[backend.Generic]
	env.m.mu.Unlock()
	if stale != nil {
		t.Fatalf("cache entry for generic still set after dispose (disposed=%v)", stale.Disposed())
	}

	again, err := env.m.CreateSpecializedWorker(ctx, backend.Generic, sam, backend.DefaultConfig())
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if again == w || again.Disposed() {
		t.Fatalf("expected a fresh worker after dispose")
	}

	// The plain path still takes the type from the asset.
	plain, err := env.m.CreateWorker(ctx, backend.Auto, sam, backend.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateWorker: %v", err)
	}
	if plain.ModelType() != backend.Segmentation {
		t.Fatalf("plain worker type %s, want segmentation", plain.ModelType())
	}
}

func TestSpecializedReuseCreditsOwningModel(t *testing.T) {
	env := newTestManager(t, nvidiaCaps(), nil)
	ctx := context.Background()
	w, err := env.m.CreateSpecializedWorker(ctx, backend.Depth, model("midas"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	before, _ := env.m.Model("midas")
	if err := env.m.Release(w); err != nil {
		t.Fatalf("Release: %v", err)
	}
	env.clock.Advance(time.Second)

	reused, err := env.m.CreateSpecializedWorker(ctx, backend.Depth, model("dpt"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if reused != w {
		t.Fatalf("expected the cached depth worker to be reused")
	}
	if _, ok := env.m.Model("dpt"); ok {
		t.Fatalf("reuse credited a model whose worker did no work")
	}
	after, _ := env.m.Model("midas")
	if after.Uses != before.Uses+1 || !after.LastUsed.After(before.LastUsed) {
		t.Fatalf("owning model not refreshed: before=%+v after=%+v", before, after)
	}
}

func TestLifecycleLogLines(t *testing.T) {
	env := newTestManager(t, nvidiaCaps(), nil)
	ctx := context.Background()
	w, err := env.m.CreateSpecializedWorker(ctx, backend.Pose, model("pose"), backend.DefaultConfig())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.m.Release(w); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := env.m.CreateSpecializedWorker(ctx, backend.Pose, model("pose"), backend.DefaultConfig()); err != nil {
		t.Fatalf("reuse: %v", err)
	}
	env.m.DisposeAll()
	logs := env.logs.String()
	for _, want := range []string{
		`"message":"worker created"`,
		`"message":"specialized worker reused"`,
		`"message":"all workers disposed"`,
	} {
		if !strings.Contains(logs, want) {
			t.Fatalf("missing %s in logs:\n%s", want, logs)
		}
	}
}
