package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"workerd/internal/backend"
	"workerd/internal/device"
	"workerd/pkg/types"
)

// Manager is the worker pool. It is safe for concurrent use; independent
// Managers share nothing but the Prometheus collectors.
type Manager struct {
	mu          sync.Mutex
	workers     map[string]*record
	models      map[string]*ModelMetadata
	specialized map[backend.ModelType]*Worker
	typeLocks   map[backend.ModelType]*sync.Mutex
	usedMemMB   int
	lastReap    time.Time
	evictions   uint64

	reportsMu sync.RWMutex
	reports   map[string]types.ExecutionReport

	probe      *device.Probe
	resolver   *backend.Resolver
	loader     Loader
	log        zerolog.Logger
	publisher  EventPublisher
	dispatcher Dispatcher
	// loadOnOwner sends loads through dispatcher too.
	loadOnOwner bool
	now        func() time.Time

	maxWorkers   int
	maxMemoryMB  int
	idleTimeout  time.Duration
	reapInterval time.Duration
}

// New returns a Manager with default reaper policy.
func New(loader Loader, log zerolog.Logger) *Manager {
	return NewWithConfig(ManagerConfig{Loader: loader, Logger: &log})
}

// Initialize runs device detection now rather than on first use.
func (m *Manager) Initialize() device.Capabilities {
	return m.probe.Capabilities()
}

// Capabilities returns the cached device capabilities.
func (m *Manager) Capabilities() device.Capabilities { return m.probe.Capabilities() }

// Resolve maps a backend request to an available backend without creating
// anything.
func (m *Manager) Resolve(requested backend.Backend, cfg backend.WorkerConfig) backend.Resolution {
	return m.resolver.Resolve(requested, cfg)
}

// SetEventPublisher installs p; nil restores the no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

func (m *Manager) publish(e Event) {
	m.mu.Lock()
	p := m.publisher
	m.mu.Unlock()
	p.Publish(e)
}

// logger returns a child logger tagged with category.
func (m *Manager) logger(category string) zerolog.Logger {
	return m.log.With().Str("category", category).Logger()
}

// LlamaBuilt reports whether this binary was built with the llama tag.
func LlamaBuilt() bool { return llamaBuilt }
