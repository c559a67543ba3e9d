//go:build !llama

package manager

// Compiled when the 'llama' build tag is NOT set, keeping default builds
// CGO-free. The real loader lives in adapter_llama.go.

import (
	"context"

	"workerd/internal/backend"
	"workerd/pkg/types"
)

var llamaBuilt = false

type llamaLoader struct{}

// NewLlamaLoader returns a loader that refuses every model in this build.
func NewLlamaLoader(ctxSize, threads, gpuLayers int) Loader {
	return llamaLoader{}
}

func (llamaLoader) Load(ctx context.Context, b backend.Backend, mdl types.Model, opts LoadOptions) (Runner, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
