package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"workerd/internal/backend"
	"workerd/pkg/types"
)

// Worker is the caller's handle to a live worker. All operations go through
// the Manager that created it; once disposed every operation fails with
// ErrUsedAfterDispose.
type Worker struct {
	id        string
	modelID   string
	modelType backend.ModelType
	backend   backend.Backend
	cfg       backend.WorkerConfig
	runner    Runner
	// execMu serializes Execute when the worker was built thread-safe.
	execMu   *sync.Mutex
	disposed atomic.Bool
}

func (w *Worker) ID() string                   { return w.id }
func (w *Worker) ModelID() string              { return w.modelID }
func (w *Worker) ModelType() backend.ModelType { return w.modelType }
func (w *Worker) Backend() backend.Backend     { return w.backend }
func (w *Worker) Config() backend.WorkerConfig { return w.cfg }

// Resource returns the underlying runner. Its identity is stable for the
// lifetime of the worker.
func (w *Worker) Resource() Runner { return w.runner }

// Disposed reports whether the worker has been disposed or evicted.
func (w *Worker) Disposed() bool { return w.disposed.Load() }

// record is the registry entry for one worker. Owned by Manager, guarded by mu.
type record struct {
	w           *Worker
	inUse       bool
	specialized bool
	createdAt   time.Time
	lastUsed    time.Time
	estMemMB    int
	executions  uint64
	lastReport  *types.ExecutionReport
	lastOutputs Outputs
	// running counts executions in progress; a disposal requested while
	// running is deferred until the last one finishes.
	running      int
	closePending bool
}

// ModelMetadata is the per-model view kept for as long as the manager lives.
type ModelMetadata struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	Type                 backend.ModelType `json:"type"`
	EstimatedMemoryMB    int               `json:"estimated_memory_mb"`
	RequiresAcceleration bool              `json:"requires_acceleration"`
	FirstSeen            time.Time         `json:"first_seen"`
	LastUsed             time.Time         `json:"last_used"`
	// Uses counts creations, reuses and executions.
	Uses           uint64 `json:"uses"`
	WorkersCreated uint64 `json:"workers_created"`
}
