package manager

import "time"

// Release marks w idle so it can be reused or reaped. Releasing an idle or
// foreign worker is a no-op; releasing a disposed one is an error.
func (m *Manager) Release(w *Worker) error {
	if w == nil {
		return nil
	}
	m.mu.Lock()
	if w.disposed.Load() {
		m.mu.Unlock()
		return ErrUsedAfterDispose
	}
	rec, ok := m.workers[w.id]
	if !ok || rec.w != w || !rec.inUse {
		m.mu.Unlock()
		return nil
	}
	rec.inUse = false
	rec.lastUsed = m.now()
	m.mu.Unlock()

	m.publish(Event{Name: EventWorkerReleased, ModelID: w.modelID, Fields: map[string]any{"worker": w.id}})
	return nil
}

// DisposeWorker removes w and releases its backend resources whether or not
// it is in use. If w is executing, the runner is closed when the execution
// returns.
func (m *Manager) DisposeWorker(w *Worker) error {
	if w == nil {
		return ErrUnknownWorker
	}
	m.mu.Lock()
	if w.disposed.Load() {
		m.mu.Unlock()
		return ErrUsedAfterDispose
	}
	rec, ok := m.workers[w.id]
	if !ok || rec.w != w {
		m.mu.Unlock()
		return ErrUnknownWorker
	}
	closeNow := m.removeLocked(rec)
	m.updateGaugesLocked()
	m.mu.Unlock()

	m.finishRemoval(rec, EventWorkerDisposed, closeNow)
	return nil
}

// DisposeAll disposes every worker, empties the specialized cache and resets
// accounting. Model metadata and execution reports are kept.
func (m *Manager) DisposeAll() int {
	m.mu.Lock()
	recs := make([]*record, 0, len(m.workers))
	closeNow := make([]bool, 0, len(m.workers))
	for _, rec := range m.workers {
		recs = append(recs, rec)
		closeNow = append(closeNow, m.removeLocked(rec))
	}
	for t := range m.specialized {
		delete(m.specialized, t)
	}
	m.usedMemMB = 0
	m.evictions = 0
	m.lastReap = time.Time{}
	m.updateGaugesLocked()
	m.mu.Unlock()

	for i, rec := range recs {
		m.finishRemoval(rec, EventWorkerDisposed, closeNow[i])
	}
	if len(recs) > 0 {
		log := m.logger("pool")
		log.Info().Int("count", len(recs)).Msg("all workers disposed")
	}
	return len(recs)
}

// removeLocked drops rec from the registry and marks its worker disposed.
// It reports whether the runner may be closed now; when an execution is in
// flight the last one to finish closes it instead. Caller holds m.mu.
func (m *Manager) removeLocked(rec *record) bool {
	w := rec.w
	delete(m.workers, w.id)
	if m.specialized[w.modelType] == w {
		delete(m.specialized, w.modelType)
	}
	m.usedMemMB -= rec.estMemMB
	if m.usedMemMB < 0 {
		m.usedMemMB = 0
	}
	w.disposed.Store(true)
	if rec.running > 0 {
		rec.closePending = true
		return false
	}
	return true
}

// finishRemoval publishes event for a removed record and hands the runner
// to the dispatcher when closeNow is set.
func (m *Manager) finishRemoval(rec *record, event string, closeNow bool) {
	w := rec.w
	m.publish(Event{Name: event, ModelID: w.modelID, Fields: map[string]any{
		"worker": w.id, "backend": string(w.backend), "deferred": !closeNow,
	}})
	if closeNow {
		m.closeRunner(w)
	}
}

// closeRunner releases w's backend resources on the owning goroutine.
func (m *Manager) closeRunner(w *Worker) {
	log := m.logger("pool")
	m.dispatcher.Dispatch(func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Str("worker", w.id).Interface("panic", rec).Msg("runner close panicked")
			}
		}()
		if err := w.runner.Close(); err != nil {
			log.Warn().Err(err).Str("worker", w.id).Msg("runner close failed")
			return
		}
		log.Debug().Str("worker", w.id).Str("model", w.modelID).Msg("worker disposed")
	})
}
