//go:build llama

package manager

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"workerd/internal/backend"
	"workerd/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaLoader loads GGUF models through go-llama.cpp. GPU-class backends
// offload gpuLayers layers; CPU backends keep everything on the host.
type llamaLoader struct {
	ctxSize   int
	threads   int
	gpuLayers int
}

// NewLlamaLoader returns a Loader for language models.
func NewLlamaLoader(ctxSize, threads, gpuLayers int) Loader {
	return &llamaLoader{ctxSize: ctxSize, threads: threads, gpuLayers: gpuLayers}
}

func (l *llamaLoader) Load(ctx context.Context, b backend.Backend, mdl types.Model, opts LoadOptions) (Runner, error) {
	if strings.TrimSpace(mdl.Path) == "" {
		return nil, errors.New("model path is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{llama.SetContext(l.ctxSize)}
	if b.IsGPU() && l.gpuLayers > 0 {
		mo = append(mo, llama.SetGPULayers(l.gpuLayers))
	}
	if opts.HalfPrecision {
		mo = append(mo, llama.EnableF16Memory)
	}
	m, err := llama.New(mdl.Path, mo...)
	if err != nil {
		return nil, err
	}
	threads := l.threads
	if opts.Threads > 0 {
		threads = opts.Threads
	}
	return &llamaRunner{model: m, threads: threads}, nil
}

// llamaRunner owns the loaded model.
//
// Inputs: "prompt" (string, required), "max_tokens" (int), "temperature"
// (float64), "top_p" (float64), "top_k" (int), "seed" (int), "stop"
// ([]string). Outputs: "text".
type llamaRunner struct {
	model   *llama.LLama
	threads int
}

func (r *llamaRunner) Run(ctx context.Context, in Inputs) (Outputs, error) {
	if r.model == nil {
		return nil, errors.New("llama model not initialized")
	}
	prompt, _ := in["prompt"].(string)
	if prompt == "" {
		return nil, errors.New("missing prompt input")
	}
	// Stop generation once the caller gives up.
	r.model.SetTokenCallback(func(string) bool {
		return ctx.Err() == nil
	})
	text, err := r.model.Predict(prompt, predictOptions(in, r.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return Outputs{"text": text}, nil
}

func (r *llamaRunner) Close() error {
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}

// predictOptions maps runner inputs onto go-llama.cpp options.
func predictOptions(in Inputs, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, intInput(in, "max_tokens", 128))),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(float32(floatInput(in, "top_p", float64(llama.DefaultOptions.TopP)))),
		llama.SetTopK(intInput(in, "top_k", llama.DefaultOptions.TopK)),
		llama.SetTemperature(float32(floatInput(in, "temperature", float64(llama.DefaultOptions.Temperature)))),
		llama.SetPenalty(llama.DefaultOptions.Penalty),
	}
	if seed := intInput(in, "seed", 0); seed != 0 {
		po = append(po, llama.SetSeed(seed))
	}
	if stop, ok := in["stop"].([]string); ok && len(stop) > 0 {
		po = append(po, llama.SetStopWords(stop...))
	}
	return po
}

func intInput(in Inputs, key string, def int) int {
	switch v := in[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return def
}

func floatInput(in Inputs, key string, def float64) float64 {
	switch v := in[key].(type) {
	case float64:
		if v > 0 {
			return v
		}
	case float32:
		if v > 0 {
			return float64(v)
		}
	}
	return def
}
