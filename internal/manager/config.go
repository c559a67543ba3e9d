package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"workerd/internal/backend"
	"workerd/internal/device"
	"workerd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxWorkers   = 10
	defaultMaxMemoryMB  = 1024
	defaultIdleTimeout  = 60 * time.Second
	defaultReapInterval = 60 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Loader builds runners. Without one every creation fails with a
	// dependency-unavailable error.
	Loader Loader
	// Detector feeds the device probe; nil uses the system detector.
	Detector device.Detector
	// Probe, when set, is shared instead of building one from Detector.
	Probe *device.Probe
	Logger *zerolog.Logger

	// Reaper policy: reaping is considered after a registration once the
	// worker count or the memory estimate exceeds its ceiling and at least
	// ReapInterval has passed since the previous reap. Idle workers older
	// than IdleTimeout are evicted.
	MaxWorkers   int
	MaxMemoryMB  int
	IdleTimeout  time.Duration
	ReapInterval time.Duration

	// Dispatcher delivers disposals to the resource-owning goroutine;
	// nil disposes inline on the calling goroutine.
	Dispatcher Dispatcher
	// LoadOnOwner routes Loader.Load through Dispatcher as well, so runners
	// are created on the goroutine that later closes them. Creation then
	// blocks until the owner runs the load; the owner must be draining, and
	// must not create workers itself.
	LoadOnOwner bool
	Publisher   EventPublisher
	// Clock overrides time.Now for idle and reap bookkeeping.
	Clock func() time.Time
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	m := &Manager{
		workers:     make(map[string]*record),
		models:      make(map[string]*ModelMetadata),
		specialized: make(map[backend.ModelType]*Worker),
		typeLocks:   make(map[backend.ModelType]*sync.Mutex),
		reports:     make(map[string]types.ExecutionReport),
		loader:      cfg.Loader,
		log:         log,
		publisher:   cfg.Publisher,
		dispatcher:  cfg.Dispatcher,
		loadOnOwner: cfg.LoadOnOwner,
		now:         cfg.Clock,
	}
	// Apply defaults if unset
	if cfg.MaxWorkers <= 0 {
		m.maxWorkers = defaultMaxWorkers
	} else {
		m.maxWorkers = cfg.MaxWorkers
	}
	if cfg.MaxMemoryMB <= 0 {
		m.maxMemoryMB = defaultMaxMemoryMB
	} else {
		m.maxMemoryMB = cfg.MaxMemoryMB
	}
	if cfg.IdleTimeout <= 0 {
		m.idleTimeout = defaultIdleTimeout
	} else {
		m.idleTimeout = cfg.IdleTimeout
	}
	if cfg.ReapInterval <= 0 {
		m.reapInterval = defaultReapInterval
	} else {
		m.reapInterval = cfg.ReapInterval
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.dispatcher == nil {
		m.dispatcher = InlineDispatcher{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.probe = cfg.Probe
	if m.probe == nil {
		m.probe = device.NewProbe(cfg.Detector, log)
	}
	m.resolver = backend.NewResolver(m.probe, log)
	return m
}
