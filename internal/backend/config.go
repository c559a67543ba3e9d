package backend

import "time"

// Defaults shared by the presets.
const (
	defaultBatchSize = 1
	defaultTimeout   = 30 * time.Second
)

// WorkerConfig describes how a worker should be built. It is passed by value
// and never mutated after construction starts.
type WorkerConfig struct {
	Backend            Backend
	ModelType          ModelType
	Profile            Profile
	AllowGPUFallback   bool
	AllowHalfPrecision bool
	// ThreadSafe serializes concurrent executions on the same worker.
	ThreadSafe         bool
	AllowTensorCaching bool
	BatchSize          int
	// Timeout bounds how long one execution is expected to take. Advisory:
	// executions past it are logged, never preempted.
	Timeout time.Duration
}

// DefaultConfig is the balanced preset.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		Backend:            Auto,
		ModelType:          Generic,
		Profile:            Balanced,
		AllowGPUFallback:   true,
		AllowHalfPrecision: true,
		AllowTensorCaching: true,
		BatchSize:          defaultBatchSize,
		Timeout:            defaultTimeout,
	}
}

// QualityConfig favours precision over speed.
func QualityConfig() WorkerConfig {
	c := DefaultConfig()
	c.Profile = Quality
	c.AllowHalfPrecision = false
	return c
}

// FastestConfig favours throughput.
func FastestConfig() WorkerConfig {
	c := DefaultConfig()
	c.Profile = Performance
	c.AllowHalfPrecision = true
	c.AllowTensorCaching = true
	return c
}

// ThreadSafeConfig builds workers that may be executed from several goroutines.
func ThreadSafeConfig() WorkerConfig {
	c := DefaultConfig()
	c.ThreadSafe = true
	c.AllowTensorCaching = false
	return c
}

// MemoryConstrainedConfig keeps the footprint minimal.
func MemoryConstrainedConfig() WorkerConfig {
	c := DefaultConfig()
	c.Profile = MemoryEfficient
	c.AllowTensorCaching = false
	c.AllowHalfPrecision = true
	c.BatchSize = 1
	return c
}

// normalized fills zero fields with defaults.
func (c WorkerConfig) normalized() WorkerConfig {
	if c.Backend == "" {
		c.Backend = Auto
	}
	if c.ModelType == "" {
		c.ModelType = Generic
	}
	if c.Profile == "" {
		c.Profile = Balanced
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Normalized returns c with zero fields replaced by defaults.
func (c WorkerConfig) Normalized() WorkerConfig { return c.normalized() }

// TunedFor applies the per-model-type tuning used for specialized workers.
// An explicit backend in c is preserved.
//
//	segmentation, diffusion: performance profile, GPU fallback allowed
//	depth, pose:             quality profile, full precision
//	everything else:         balanced
func (c WorkerConfig) TunedFor(t ModelType) WorkerConfig {
	c = c.normalized()
	c.ModelType = t
	switch t {
	case Segmentation, Diffusion:
		c.Profile = Performance
		c.AllowGPUFallback = true
	case Depth, Pose:
		c.Profile = Quality
		c.AllowHalfPrecision = false
	default:
		c.Profile = Balanced
	}
	return c
}
