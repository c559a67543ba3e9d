package device

import (
	"sync"

	"github.com/rs/zerolog"

	"workerd/internal/backend"
)

// Detector inspects the host. Implementations report findings only; the
// backend recommendation is computed by Probe.
type Detector interface {
	Detect() Capabilities
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func() Capabilities

func (f DetectorFunc) Detect() Capabilities { return f() }

// StaticDetector returns fixed capabilities. Useful for tests and for hosts
// that already know their hardware.
type StaticDetector Capabilities

func (s StaticDetector) Detect() Capabilities { return Capabilities(s).clone() }

// Probe runs detection once and caches the result.
type Probe struct {
	det  Detector
	log  zerolog.Logger
	once sync.Once
	caps Capabilities
}

// NewProbe returns a Probe over det. A nil det uses the system detector.
func NewProbe(det Detector, log zerolog.Logger) *Probe {
	if det == nil {
		det = NewSystemDetector(Options{})
	}
	return &Probe{det: det, log: log.With().Str("category", "device").Logger()}
}

// Capabilities detects on first call and returns the cached result after.
// Missing capabilities are logged, never treated as errors.
func (p *Probe) Capabilities() Capabilities {
	p.once.Do(func() {
		c := p.det.Detect()
		c.BestBackend = recommend(c)
		p.caps = c
		p.logFindings()
	})
	return p.caps.clone()
}

func (p *Probe) logFindings() {
	c := p.caps
	if c.HasAccelerator {
		p.log.Info().Str("vendor", string(c.AcceleratorVendor)).Str("name", c.AcceleratorName).Msg("accelerator detected")
	} else {
		p.log.Info().Msg("no accelerator detected")
	}
	if c.HasVendorPath {
		p.log.Info().Str("path", c.VendorPath).Msg("vendor compute path available")
	}
	if c.HasNativeRuntime {
		p.log.Info().Str("runtime", c.NativeRuntime).Msg("native inference runtime available")
	}
	if !c.HasCPUOptimized {
		p.log.Info().Str("cpu", c.CPUBrand).Msg("no optimized cpu path")
	}
	p.log.Info().
		Str("platform", c.Platform).
		Int("cores", c.LogicalCores).
		Strs("cpu_features", c.CPUFeatures).
		Str("best", string(c.BestBackend)).
		Msg("device probe complete")
}

// Available, Recommended and Accelerated let a Probe stand in for its
// capabilities as a backend.Inventory, detecting lazily on first use.
func (p *Probe) Available(b backend.Backend) bool { return p.Capabilities().Available(b) }
func (p *Probe) Recommended() backend.Backend      { return p.Capabilities().Recommended() }
func (p *Probe) Accelerated() bool                 { return p.Capabilities().Accelerated() }
