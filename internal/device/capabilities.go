// Package device detects accelerator and runtime capabilities once per probe
// and recommends a backend for the host.
package device

import (
	"workerd/internal/backend"
)

// Vendor identifies an accelerator vendor.
type Vendor string

const (
	VendorNone     Vendor = ""
	VendorNVIDIA   Vendor = "nvidia"
	VendorAMD      Vendor = "amd"
	VendorIntel    Vendor = "intel"
	VendorApple    Vendor = "apple"
	VendorQualcomm Vendor = "qualcomm"
	VendorARM      Vendor = "arm"
	VendorUnknown  Vendor = "unknown"
)

// nativeRuntimeVendor maps a platform-native runtime to the accelerator vendor
// it is tuned for.
var nativeRuntimeVendor = map[string]Vendor{
	"coreml": VendorApple,
	"nnapi":  VendorQualcomm,
}

// Capabilities is the immutable result of a probe. Share it by value.
type Capabilities struct {
	Platform string `json:"platform"`
	Mobile   bool   `json:"mobile"`

	CPUBrand        string   `json:"cpu_brand,omitempty"`
	LogicalCores    int      `json:"logical_cores"`
	CPUFeatures     []string `json:"cpu_features,omitempty"`
	HasCPUOptimized bool     `json:"has_cpu_optimized"`

	HasAccelerator    bool   `json:"has_accelerator"`
	AcceleratorVendor Vendor `json:"accelerator_vendor,omitempty"`
	AcceleratorName   string `json:"accelerator_name,omitempty"`

	// HasVendorPath is set when a vendor-tuned compute stack is present.
	HasVendorPath bool   `json:"has_vendor_path"`
	VendorPath    string `json:"vendor_path,omitempty"`

	HasNativeRuntime bool   `json:"has_native_runtime"`
	NativeRuntime    string `json:"native_runtime,omitempty"`

	BestBackend backend.Backend `json:"best_backend"`
}

// Available reports whether b can run on this device.
func (c Capabilities) Available(b backend.Backend) bool {
	switch b {
	case backend.CPU:
		return true
	case backend.CPUOptimized:
		return c.HasCPUOptimized
	case backend.GPUCompute, backend.GPUPrecompiled:
		return c.HasAccelerator
	case backend.GPUVendor:
		return c.HasAccelerator && c.HasVendorPath
	case backend.Native:
		return c.HasNativeRuntime
	}
	return false
}

// Recommended returns the precomputed best backend.
func (c Capabilities) Recommended() backend.Backend {
	if c.BestBackend == "" {
		return backend.CPU
	}
	return c.BestBackend
}

// Accelerated reports accelerator presence.
func (c Capabilities) Accelerated() bool { return c.HasAccelerator }

// Backends returns the available backends ranked best first.
func (c Capabilities) Backends() []backend.Backend {
	out := []backend.Backend{c.Recommended()}
	for _, b := range backend.Concrete {
		if b != out[0] && c.Available(b) {
			out = append(out, b)
		}
	}
	return out
}

// recommend applies the vendor-sensitive ranking rules.
func recommend(c Capabilities) backend.Backend {
	if c.HasAccelerator {
		if c.HasNativeRuntime && nativeRuntimeVendor[c.NativeRuntime] == c.AcceleratorVendor {
			return backend.Native
		}
		if c.HasVendorPath {
			return backend.GPUVendor
		}
		return backend.GPUCompute
	}
	if c.HasCPUOptimized {
		return backend.CPUOptimized
	}
	return backend.CPU
}

func (c Capabilities) clone() Capabilities {
	c.CPUFeatures = append([]string(nil), c.CPUFeatures...)
	return c
}
