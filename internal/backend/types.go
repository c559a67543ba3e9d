// Package backend defines the execution backends a worker can run on, the
// per-worker build configuration, and the resolver that maps an abstract
// backend request onto a backend the current device actually provides.
package backend

import (
	"fmt"
	"strings"
)

// Backend is a concrete execution strategy for running a model.
type Backend string

const (
	// Auto lets the resolver pick using the model type and profile.
	Auto Backend = "auto"
	// CPU is plain, always-available host execution.
	CPU Backend = "cpu"
	// CPUOptimized is host execution through a SIMD-optimized runtime.
	CPUOptimized Backend = "cpu_optimized"
	// GPUCompute is generic accelerator compute, the most aggressive path.
	GPUCompute Backend = "gpu_compute"
	// GPUVendor is vendor-tuned accelerator compute (CUDA, ROCm, Metal).
	GPUVendor Backend = "gpu_vendor"
	// GPUPrecompiled runs precompiled accelerator kernels; favours
	// determinism and precision over throughput.
	GPUPrecompiled Backend = "gpu_precompiled"
	// Native is a platform-native inference runtime (CoreML, NNAPI).
	Native Backend = "native"
)

// Concrete lists every backend except Auto in preference order.
var Concrete = []Backend{GPUVendor, Native, GPUCompute, GPUPrecompiled, CPUOptimized, CPU}

// IsGPU reports whether b runs on an accelerator.
func (b Backend) IsGPU() bool {
	switch b {
	case GPUCompute, GPUVendor, GPUPrecompiled, Native:
		return true
	}
	return false
}

func (b Backend) String() string { return string(b) }

// ParseBackend accepts the canonical names plus a few common aliases.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "cpu":
		return CPU, nil
	case "cpu_optimized", "cpu-optimized", "simd":
		return CPUOptimized, nil
	case "gpu", "gpu_compute", "gpu-compute", "compute":
		return GPUCompute, nil
	case "gpu_vendor", "gpu-vendor", "cuda", "rocm", "metal":
		return GPUVendor, nil
	case "gpu_precompiled", "gpu-precompiled", "precompiled":
		return GPUPrecompiled, nil
	case "native", "coreml", "nnapi":
		return Native, nil
	}
	return "", fmt.Errorf("unknown backend: %q", s)
}

// Profile biases automatic backend selection.
type Profile string

const (
	Quality         Profile = "quality"
	Balanced        Profile = "balanced"
	Performance     Profile = "performance"
	MemoryEfficient Profile = "memory_efficient"
)

// ParseProfile parses a profile name; empty means Balanced.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "balanced":
		return Balanced, nil
	case "quality":
		return Quality, nil
	case "performance", "fast", "fastest":
		return Performance, nil
	case "memory_efficient", "memory-efficient", "memory":
		return MemoryEfficient, nil
	}
	return "", fmt.Errorf("unknown profile: %q", s)
}

// ModelType classifies a model for backend selection and worker caching.
type ModelType string

const (
	Generic        ModelType = "generic"
	Segmentation   ModelType = "segmentation"
	Diffusion      ModelType = "diffusion"
	Depth          ModelType = "depth"
	Pose           ModelType = "pose"
	Detection      ModelType = "detection"
	Classification ModelType = "classification"
	Language       ModelType = "language"
)

// RequiresAcceleration reports whether models of this type are too heavy to
// run acceptably without an accelerator.
func (t ModelType) RequiresAcceleration() bool {
	return t == Segmentation || t == Diffusion
}

// ParseModelType parses a model type name; empty and unknown names map to Generic.
func ParseModelType(s string) ModelType {
	switch t := ModelType(strings.ToLower(strings.TrimSpace(s))); t {
	case Segmentation, Diffusion, Depth, Pose, Detection, Classification, Language:
		return t
	}
	return Generic
}
