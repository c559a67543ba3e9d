package manager

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"workerd/internal/backend"
	"workerd/pkg/types"
)

// CreateWorker resolves requested against the device, builds a worker for
// mdl and registers it as in use. An empty requested uses cfg.Backend.
//
// If construction fails on a GPU-class backend and cfg.AllowGPUFallback is
// set, construction is retried once on the CPU backend. Any remaining failure
// is returned as a construction error.
func (m *Manager) CreateWorker(ctx context.Context, requested backend.Backend, mdl types.Model, cfg backend.WorkerConfig) (*Worker, error) {
	return m.createWorker(ctx, requested, mdl, cfg, false)
}

func (m *Manager) createWorker(ctx context.Context, requested backend.Backend, mdl types.Model, cfg backend.WorkerConfig, specialized bool) (*Worker, error) {
	cfg = cfg.Normalized()
	if requested == "" {
		requested = cfg.Backend
	}
	// Specialized workers keep the type they are cached under.
	if !specialized && cfg.ModelType == backend.Generic && mdl.Type != "" {
		cfg.ModelType = backend.ParseModelType(mdl.Type)
	}
	id := modelKey(mdl)
	res := m.resolver.Resolve(requested, cfg)
	if res.Degraded {
		m.publish(Event{Name: EventBackendDegraded, ModelID: id, Fields: map[string]any{
			"requested": string(res.Requested), "backend": string(res.Backend), "reason": res.Reason,
		}})
	}

	runner, b, err := m.construct(ctx, res.Backend, mdl, cfg)
	if err != nil {
		return nil, err
	}
	cfg.Backend = b

	w := &Worker{
		id:        uuid.NewString(),
		modelID:   id,
		modelType: cfg.ModelType,
		backend:   b,
		cfg:       cfg,
		runner:    runner,
	}
	if cfg.ThreadSafe {
		w.execMu = &sync.Mutex{}
	}
	est := estimateMemoryMB(runner, mdl, cfg.ModelType, b)
	m.register(w, mdl, est, specialized)

	poolWorkersCreated.WithLabelValues(string(b)).Inc()
	log := m.logger("pool")
	log.Debug().Str("worker", w.id).Str("model", id).Str("backend", string(b)).
		Int("est_mb", est).Msg("worker created")
	m.publish(Event{Name: EventWorkerCreated, ModelID: id, Fields: map[string]any{
		"worker": w.id, "backend": string(b), "est_mb": est, "specialized": specialized,
	}})
	m.maybeReap()
	return w, nil
}

// construct loads mdl on b, falling back to CPU once when allowed.
func (m *Manager) construct(ctx context.Context, b backend.Backend, mdl types.Model, cfg backend.WorkerConfig) (Runner, backend.Backend, error) {
	id := modelKey(mdl)
	r, err := m.load(ctx, b, mdl, cfg)
	if err == nil {
		return r, b, nil
	}
	if !b.IsGPU() || !cfg.AllowGPUFallback || IsDependencyUnavailable(err) || ctx.Err() != nil {
		return nil, b, constructionError{modelID: id, backend: b, err: err}
	}
	log := m.logger("pool")
	log.Warn().Err(err).Str("model", id).Str("backend", string(b)).Msg("worker construction failed, retrying on cpu")
	poolFallbacks.WithLabelValues(string(b), string(backend.CPU)).Inc()
	m.publish(Event{Name: EventWorkerFallback, ModelID: id, Fields: map[string]any{
		"from": string(b), "to": string(backend.CPU), "error": err.Error(),
	}})
	r, cpuErr := m.load(ctx, backend.CPU, mdl, cfg)
	if cpuErr != nil {
		log.Error().Err(cpuErr).Str("model", id).Msg("cpu fallback failed")
		return nil, backend.CPU, constructionError{modelID: id, backend: backend.CPU, fallback: true, err: errors.Join(err, cpuErr)}
	}
	return r, backend.CPU, nil
}

// register inserts a new in-use record for w.
func (m *Manager) register(w *Worker, mdl types.Model, estMB int, specialized bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.workers[w.id] = &record{
		w:           w,
		inUse:       true,
		specialized: specialized,
		createdAt:   now,
		lastUsed:    now,
		estMemMB:    estMB,
	}
	m.usedMemMB += estMB
	m.touchModelLocked(mdl, w.modelType, estMB, true, now)
	m.updateGaugesLocked()
}
