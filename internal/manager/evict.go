package manager

import (
	"context"
	"time"
)

// reapDueLocked reports whether pressure and the reap interval both allow an
// opportunistic reap. Caller holds m.mu.
func (m *Manager) reapDueLocked(now time.Time) bool {
	pressure := len(m.workers) > m.maxWorkers || m.usedMemMB > m.maxMemoryMB
	if !pressure {
		return false
	}
	return m.lastReap.IsZero() || now.Sub(m.lastReap) >= m.reapInterval
}

// collectIdleLocked removes every idle worker unused for longer than the idle
// timeout and returns the removed records with their close-now flags.
// In-use workers are never selected. Caller holds m.mu.
func (m *Manager) collectIdleLocked(now time.Time) ([]*record, []bool) {
	var victims []*record
	var closeNow []bool
	for _, rec := range m.workers {
		if rec.inUse || now.Sub(rec.lastUsed) <= m.idleTimeout {
			continue
		}
		victims = append(victims, rec)
	}
	for _, rec := range victims {
		closeNow = append(closeNow, m.removeLocked(rec))
	}
	m.evictions += uint64(len(victims))
	m.lastReap = now
	m.updateGaugesLocked()
	return victims, closeNow
}

// maybeReap runs the reaper if resource pressure and the interval allow it.
func (m *Manager) maybeReap() int {
	m.mu.Lock()
	now := m.now()
	if !m.reapDueLocked(now) {
		m.mu.Unlock()
		return 0
	}
	victims, closeNow := m.collectIdleLocked(now)
	m.mu.Unlock()
	return m.finishReap(victims, closeNow, false)
}

// Reap evicts idle workers now, ignoring pressure and the reap interval. The
// idle timeout still applies. It returns the number of evicted workers.
func (m *Manager) Reap() int {
	m.mu.Lock()
	victims, closeNow := m.collectIdleLocked(m.now())
	m.mu.Unlock()
	return m.finishReap(victims, closeNow, true)
}

func (m *Manager) finishReap(victims []*record, closeNow []bool, manual bool) int {
	for i, rec := range victims {
		poolEvictions.Inc()
		m.finishRemoval(rec, EventWorkerEvicted, closeNow[i])
	}
	m.mu.Lock()
	count, memMB := len(m.workers), m.usedMemMB
	m.mu.Unlock()
	log := m.logger("reaper")
	ev := log.Debug()
	if len(victims) > 0 {
		ev = log.Info()
	}
	ev.Int("evicted", len(victims)).Int("workers", count).Int("memory_mb", memMB).Bool("manual", manual).Msg("reap done")
	if count > m.maxWorkers || memMB > m.maxMemoryMB {
		log.Warn().Int("workers", count).Int("memory_mb", memMB).
			Int("max_workers", m.maxWorkers).Int("max_memory_mb", m.maxMemoryMB).
			Msg("resource ceiling still exceeded after reap")
	}
	m.publish(Event{Name: EventReapDone, Fields: map[string]any{
		"evicted": len(victims), "workers": count, "memory_mb": memMB, "manual": manual,
	}})
	return len(victims)
}

// StartReaper makes the reap decision on a ticker off the request path until
// ctx is done. A zero every uses the configured reap interval. Disposals
// still go through the dispatcher.
func (m *Manager) StartReaper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = m.reapInterval
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.maybeReap()
			}
		}
	}()
}
