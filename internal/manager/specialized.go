package manager

import (
	"context"
	"sync"

	"workerd/internal/backend"
	"workerd/pkg/types"
)

// CreateSpecializedWorker returns the cached worker for model type t when it
// is not in use, otherwise builds a new one with the per-type tuning of cfg
// and makes it the cache entry for t.
//
// A displaced entry that is still in use stays registered (it is simply no
// longer cached) and is reaped or disposed like any other worker.
func (m *Manager) CreateSpecializedWorker(ctx context.Context, t backend.ModelType, mdl types.Model, cfg backend.WorkerConfig) (*Worker, error) {
	if t == "" {
		t = backend.Generic
	}
	tl := m.typeLock(t)
	tl.Lock()
	defer tl.Unlock()

	if w := m.reuseSpecialized(t); w != nil {
		return w, nil
	}

	tuned := cfg.TunedFor(t)
	w, err := m.createWorker(ctx, tuned.Backend, mdl, tuned, true)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	var stale *record
	closeNow := false
	if old := m.specialized[t]; old != nil && old != w {
		if rec, ok := m.workers[old.id]; ok {
			rec.specialized = false
			if !rec.inUse {
				stale = rec
				closeNow = m.removeLocked(rec)
				m.updateGaugesLocked()
			}
		}
	}
	// A concurrent DisposeAll may have removed w already.
	if _, ok := m.workers[w.id]; ok {
		m.specialized[t] = w
	}
	m.mu.Unlock()

	if stale != nil {
		m.finishRemoval(stale, EventWorkerDisposed, closeNow)
	}
	return w, nil
}

// reuseSpecialized claims the cached worker for t if it is idle.
func (m *Manager) reuseSpecialized(t backend.ModelType) *Worker {
	m.mu.Lock()
	w := m.specialized[t]
	if w == nil {
		m.mu.Unlock()
		return nil
	}
	rec, ok := m.workers[w.id]
	if !ok || rec.inUse {
		m.mu.Unlock()
		return nil
	}
	now := m.now()
	rec.inUse = true
	rec.lastUsed = now
	if md, ok := m.models[w.modelID]; ok {
		md.LastUsed = now
		md.Uses++
	}
	m.mu.Unlock()

	log := m.logger("cache")
	log.Debug().Str("worker", w.id).Str("type", string(t)).Msg("specialized worker reused")
	m.publish(Event{Name: EventWorkerReused, ModelID: w.modelID, Fields: map[string]any{
		"worker": w.id, "type": string(t),
	}})
	return w
}

// typeLock returns the lock serializing cache lookups for t.
func (m *Manager) typeLock(t backend.ModelType) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.typeLocks[t]
	if !ok {
		l = &sync.Mutex{}
		m.typeLocks[t] = l
	}
	return l
}
