package device

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"

	"workerd/internal/common/fsutil"
)

// Options tunes the system detector.
type Options struct {
	// Root prefixes every probed path; empty means "/".
	Root string
	// GOOS and GOARCH override the running platform when set.
	GOOS   string
	GOARCH string
	// ForceCPU hides any accelerator that would be found.
	ForceCPU bool
	// DisableNative hides platform-native runtimes.
	DisableNative bool
}

// SystemDetector inspects the running host: CPU features through cpuid,
// accelerators through driver nodes under /proc, /dev and /sys.
type SystemDetector struct {
	opts Options
	cpu  cpuid.CPUInfo
}

// NewSystemDetector returns a detector for the current host.
func NewSystemDetector(opts Options) *SystemDetector {
	if opts.Root == "" {
		opts.Root = "/"
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.GOARCH == "" {
		opts.GOARCH = runtime.GOARCH
	}
	return &SystemDetector{opts: opts, cpu: cpuid.CPU}
}

// PCI vendor ids as exposed by the DRM subsystem.
var pciVendors = map[string]Vendor{
	"0x10de": VendorNVIDIA,
	"0x1002": VendorAMD,
	"0x8086": VendorIntel,
}

func (d *SystemDetector) Detect() Capabilities {
	c := Capabilities{Platform: d.opts.GOOS + "/" + d.opts.GOARCH}
	d.detectCPU(&c)
	switch d.opts.GOOS {
	case "darwin", "ios":
		d.detectApple(&c)
	case "android":
		d.detectAndroid(&c)
	default:
		d.detectLinuxGPU(&c)
	}
	if d.opts.ForceCPU {
		c.HasAccelerator, c.AcceleratorVendor, c.AcceleratorName = false, VendorNone, ""
		c.HasVendorPath, c.VendorPath = false, ""
	}
	if d.opts.DisableNative {
		c.HasNativeRuntime, c.NativeRuntime = false, ""
	}
	return c
}

func (d *SystemDetector) detectCPU(c *Capabilities) {
	c.CPUBrand = d.cpu.BrandName
	c.LogicalCores = d.cpu.LogicalCores
	if c.LogicalCores <= 0 {
		c.LogicalCores = runtime.NumCPU()
	}
	named := []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma3"},
		{cpuid.F16C, "f16c"},
		{cpuid.AVX512F, "avx512f"},
		{cpuid.ASIMD, "neon"},
	}
	for _, f := range named {
		if d.cpu.Supports(f.id) {
			c.CPUFeatures = append(c.CPUFeatures, f.name)
		}
	}
	switch d.opts.GOARCH {
	case "amd64", "386":
		c.HasCPUOptimized = d.cpu.Supports(cpuid.AVX2, cpuid.FMA3)
	case "arm64":
		// NEON is mandatory on arm64 even when cpuid cannot read it.
		c.HasCPUOptimized = true
		if !d.cpu.Supports(cpuid.ASIMD) {
			c.CPUFeatures = append(c.CPUFeatures, "neon")
		}
	}
}

func (d *SystemDetector) detectApple(c *Capabilities) {
	c.Mobile = d.opts.GOOS == "ios"
	if d.opts.GOARCH != "arm64" {
		// Intel Macs: Metal exists but no Apple GPU or ANE.
		return
	}
	c.HasAccelerator = true
	c.AcceleratorVendor = VendorApple
	c.AcceleratorName = "Apple GPU"
	c.HasVendorPath = true
	c.VendorPath = "metal"
	c.HasNativeRuntime = true
	c.NativeRuntime = "coreml"
}

func (d *SystemDetector) detectAndroid(c *Capabilities) {
	c.Mobile = true
	c.HasNativeRuntime = true
	c.NativeRuntime = "nnapi"
	switch {
	case d.exists("dev/kgsl-3d0"):
		c.HasAccelerator, c.AcceleratorVendor, c.AcceleratorName = true, VendorQualcomm, "Adreno"
	case d.exists("dev/mali0"):
		c.HasAccelerator, c.AcceleratorVendor, c.AcceleratorName = true, VendorARM, "Mali"
	}
}

func (d *SystemDetector) detectLinuxGPU(c *Capabilities) {
	if d.exists("proc/driver/nvidia/version") || d.exists("dev/nvidia0") {
		c.HasAccelerator = true
		c.AcceleratorVendor = VendorNVIDIA
		c.AcceleratorName = d.nvidiaModel()
		c.HasVendorPath = true
		c.VendorPath = "cuda"
		return
	}
	if d.exists("dev/kfd") {
		c.HasAccelerator = true
		c.AcceleratorVendor = VendorAMD
		c.AcceleratorName = "AMD GPU"
		c.HasVendorPath = true
		c.VendorPath = "rocm"
		return
	}
	if d.exists("dev/dri/renderD128") {
		c.HasAccelerator = true
		c.AcceleratorVendor = VendorUnknown
		c.AcceleratorName = "DRM render node"
		if b, err := os.ReadFile(d.path("sys/class/drm/renderD128/device/vendor")); err == nil {
			if v, ok := pciVendors[strings.ToLower(strings.TrimSpace(string(b)))]; ok {
				c.AcceleratorVendor = v
			}
		}
	}
}

// nvidiaModel reads the model line of the first GPU the driver lists.
func (d *SystemDetector) nvidiaModel() string {
	matches, _ := filepath.Glob(d.path("proc/driver/nvidia/gpus/*/information"))
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(b), "\n") {
			if k, v, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(k) == "Model" {
				return strings.TrimSpace(v)
			}
		}
	}
	return "NVIDIA GPU"
}

func (d *SystemDetector) path(rel string) string { return filepath.Join(d.opts.Root, rel) }

func (d *SystemDetector) exists(rel string) bool { return fsutil.PathExists(d.path(rel)) }
