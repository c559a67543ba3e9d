package manager

import (
	"context"

	"workerd/internal/backend"
	"workerd/pkg/types"
)

// Inputs and Outputs are opaque to the manager; their keys and values are a
// contract between the host and its runners.
type (
	Inputs  map[string]any
	Outputs map[string]any
)

// Loader turns a model asset into a runnable handle for one backend. It is
// supplied by the host; the manager never parses model assets.
type Loader interface {
	Load(ctx context.Context, b backend.Backend, model types.Model, opts LoadOptions) (Runner, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, b backend.Backend, model types.Model, opts LoadOptions) (Runner, error)

func (f LoaderFunc) Load(ctx context.Context, b backend.Backend, model types.Model, opts LoadOptions) (Runner, error) {
	return f(ctx, b, model, opts)
}

// LoadOptions is the subset of WorkerConfig a loader acts on.
type LoadOptions struct {
	HalfPrecision bool
	TensorCaching bool
	ThreadSafe    bool
	BatchSize     int
	// Threads is a hint for CPU backends; 0 lets the runtime decide.
	Threads int
}

// Runner is one loaded model bound to one backend.
type Runner interface {
	// Run executes the model. The caller blocks until it returns.
	Run(ctx context.Context, in Inputs) (Outputs, error)
	// Close releases backend resources. Called exactly once, on the
	// resource-owning goroutine.
	Close() error
}

// MemoryEstimator is implemented by runners that know their footprint.
type MemoryEstimator interface {
	EstimatedMemoryMB() int
}

// Preprocessor and Postprocessor are optional phases measured separately
// from inference.
type Preprocessor interface {
	Preprocess(ctx context.Context, in Inputs) (Inputs, error)
}

type Postprocessor interface {
	Postprocess(ctx context.Context, out Outputs) (Outputs, error)
}

// LayerStatsReporter exposes per-layer statistics of the last run.
type LayerStatsReporter interface {
	LayerStats() []types.LayerStat
}
