package backend

import (
	"github.com/rs/zerolog"
)

// Inventory answers which backends exist on this device. It is satisfied by
// device.Capabilities.
type Inventory interface {
	Available(b Backend) bool
	Recommended() Backend
	Accelerated() bool
}

// Resolution is the outcome of resolving a backend request.
type Resolution struct {
	Requested Backend
	Backend   Backend
	// Degraded is set when the result is weaker than what was asked for.
	Degraded bool
	Reason   string
}

// Resolver maps requests onto available backends. It never fails: an
// unavailable request degrades to the next best backend with a warning.
type Resolver struct {
	inv Inventory
	log zerolog.Logger
}

// NewResolver returns a Resolver over inv.
func NewResolver(inv Inventory, log zerolog.Logger) *Resolver {
	return &Resolver{inv: inv, log: log.With().Str("category", "resolver").Logger()}
}

// Resolve picks the concrete backend for requested under cfg.
func (r *Resolver) Resolve(requested Backend, cfg WorkerConfig) Resolution {
	cfg = cfg.normalized()
	if requested == "" {
		requested = Auto
	}
	if requested == Auto {
		return r.resolveAuto(cfg)
	}
	if r.inv.Available(requested) {
		return Resolution{Requested: requested, Backend: requested}
	}
	res := Resolution{
		Requested: requested,
		Backend:   r.first(substitutes(requested, r.inv.Recommended())...),
		Degraded:  true,
		Reason:    "requested backend unavailable",
	}
	r.warn(res, cfg)
	return res
}

func (r *Resolver) resolveAuto(cfg WorkerConfig) Resolution {
	res := Resolution{Requested: Auto}
	if cfg.ModelType.RequiresAcceleration() {
		if r.inv.Accelerated() {
			chain := []Backend{GPUVendor, GPUCompute, GPUPrecompiled, Native}
			if best := r.inv.Recommended(); best.IsGPU() {
				chain = append([]Backend{best}, chain...)
			}
			if b := r.first(chain...); b.IsGPU() {
				res.Backend = b
				return res
			}
		}
		res.Backend = r.first(CPUOptimized, CPU)
		res.Degraded = true
		res.Reason = "model type requires acceleration but no accelerator is available"
		r.warn(res, cfg)
		return res
	}
	switch cfg.Profile {
	case Quality:
		res.Backend = r.first(GPUPrecompiled, CPU)
	case Performance:
		res.Backend = r.first(GPUVendor, GPUCompute, CPUOptimized, CPU)
	case MemoryEfficient:
		res.Backend = CPU
	default:
		res.Backend = r.first(r.inv.Recommended(), CPUOptimized, CPU)
	}
	return res
}

// first returns the first available candidate. CPU is the floor.
func (r *Resolver) first(candidates ...Backend) Backend {
	for _, b := range candidates {
		if b != "" && b != Auto && r.inv.Available(b) {
			return b
		}
	}
	return CPU
}

func (r *Resolver) warn(res Resolution, cfg WorkerConfig) {
	r.log.Warn().
		Str("requested", string(res.Requested)).
		Str("backend", string(res.Backend)).
		Str("model_type", string(cfg.ModelType)).
		Str("profile", string(cfg.Profile)).
		Str("reason", res.Reason).
		Msg("backend degraded")
}

// substitutes lists what to try in place of an unavailable backend.
func substitutes(b, recommended Backend) []Backend {
	switch b {
	case GPUVendor:
		return []Backend{GPUCompute, GPUPrecompiled, CPUOptimized, CPU}
	case GPUPrecompiled:
		return []Backend{GPUCompute, CPUOptimized, CPU}
	case GPUCompute:
		return []Backend{GPUVendor, GPUPrecompiled, CPUOptimized, CPU}
	case Native:
		return []Backend{recommended, GPUVendor, GPUCompute, CPUOptimized, CPU}
	case CPUOptimized:
		return []Backend{CPU}
	}
	return []Backend{recommended, CPU}
}
