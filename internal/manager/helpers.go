package manager

import (
	"context"
	"fmt"
	"sync"

	"workerd/internal/backend"
	"workerd/internal/common/fsutil"
	"workerd/pkg/types"
)

// Per-type footprint used when neither the runner nor the asset tells us
// anything. Rough figures; they only steer the reaper.
var defaultTypeMemoryMB = map[backend.ModelType]int{
	backend.Generic:        64,
	backend.Segmentation:   256,
	backend.Diffusion:      512,
	backend.Depth:          128,
	backend.Pose:           96,
	backend.Detection:      128,
	backend.Classification: 48,
	backend.Language:       512,
}

// estimateMemoryMB picks the best available estimate for a worker: the
// runner's own figure, then the asset size scaled for the backend, then the
// per-type default. Never returns less than 1.
func estimateMemoryMB(r Runner, mdl types.Model, t backend.ModelType, b backend.Backend) int {
	if me, ok := r.(MemoryEstimator); ok {
		if mb := me.EstimatedMemoryMB(); mb > 0 {
			return mb
		}
	}
	size := mdl.SizeBytes
	if size <= 0 {
		size = fsutil.FileSize(mdl.Path)
	}
	if size > 0 {
		mb := int(size / (1024 * 1024))
		// Accelerator backends keep a host copy plus device buffers.
		if b.IsGPU() {
			mb = mb * 3 / 2
		}
		if mb <= 0 {
			mb = 1
		}
		return mb
	}
	if mb, ok := defaultTypeMemoryMB[t]; ok {
		return mb
	}
	return defaultTypeMemoryMB[backend.Generic]
}

// safeLoad calls the loader, turning a panic into an error.
func safeLoad(ctx context.Context, l Loader, b backend.Backend, mdl types.Model, opts LoadOptions) (r Runner, err error) {
	if l == nil {
		return nil, ErrDependencyUnavailable("no model loader configured")
	}
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("loader panic: %v", rec)
		}
	}()
	r, err = l.Load(ctx, b, mdl, opts)
	if err == nil && r == nil {
		err = fmt.Errorf("loader returned no runner")
	}
	return r, err
}

// load builds a runner for mdl on b, on the owner goroutine when loadOnOwner
// is set. If ctx ends before the owner gets to it, the result is closed on
// the owner once the load completes.
func (m *Manager) load(ctx context.Context, b backend.Backend, mdl types.Model, cfg backend.WorkerConfig) (Runner, error) {
	opts := loadOptions(cfg)
	if !m.loadOnOwner {
		return safeLoad(ctx, m.loader, b, mdl, opts)
	}
	type result struct {
		r   Runner
		err error
	}
	done := make(chan result, 1)
	var mu sync.Mutex
	abandoned := false
	m.dispatcher.Dispatch(func() {
		mu.Lock()
		skip := abandoned
		mu.Unlock()
		if skip {
			return
		}
		r, err := safeLoad(ctx, m.loader, b, mdl, opts)
		mu.Lock()
		defer mu.Unlock()
		if abandoned {
			if r != nil {
				if cerr := r.Close(); cerr != nil {
					m.log.Warn().Err(cerr).Str("category", "pool").Msg("abandoned runner close failed")
				}
			}
			return
		}
		done <- result{r: r, err: err}
	})
	select {
	case res := <-done:
		return res.r, res.err
	case <-ctx.Done():
		mu.Lock()
		defer mu.Unlock()
		select {
		case res := <-done:
			return res.r, res.err
		default:
		}
		abandoned = true
		return nil, fmt.Errorf("load %s on %s: %w", modelKey(mdl), b, ctx.Err())
	}
}

func loadOptions(cfg backend.WorkerConfig) LoadOptions {
	return LoadOptions{
		HalfPrecision: cfg.AllowHalfPrecision,
		TensorCaching: cfg.AllowTensorCaching,
		ThreadSafe:    cfg.ThreadSafe,
		BatchSize:     cfg.BatchSize,
	}
}
