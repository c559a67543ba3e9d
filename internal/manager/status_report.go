package manager

import (
	"sort"

	"workerd/pkg/types"
)

// ResourceStats returns pool-wide accounting and a per-worker breakdown.
// OverBudget is advisory; the pool never refuses workers.
func (m *Manager) ResourceStats() types.ResourceStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := types.ResourceStats{
		ActiveWorkers:  len(m.workers),
		TotalMemoryMB:  m.usedMemMB,
		MaxWorkers:     m.maxWorkers,
		MaxMemoryMB:    m.maxMemoryMB,
		OverBudget:     len(m.workers) > m.maxWorkers || m.usedMemMB > m.maxMemoryMB,
		EvictionsTotal: m.evictions,
		Workers:        make([]types.WorkerStat, 0, len(m.workers)),
	}
	if !m.lastReap.IsZero() {
		st.LastReap = m.lastReap.Unix()
	}
	for _, rec := range m.workers {
		if rec.inUse {
			st.InUseWorkers++
		}
		st.Workers = append(st.Workers, types.WorkerStat{
			ID:          rec.w.id,
			ModelID:     rec.w.modelID,
			ModelType:   string(rec.w.modelType),
			Backend:     string(rec.w.backend),
			InUse:       rec.inUse,
			Specialized: m.specialized[rec.w.modelType] == rec.w,
			EstMemoryMB: rec.estMemMB,
			LastUsed:    rec.lastUsed.Unix(),
			Executions:  rec.executions,
		})
	}
	sort.Slice(st.Workers, func(i, j int) bool {
		a, b := st.Workers[i], st.Workers[j]
		if a.ModelID != b.ModelID {
			return a.ModelID < b.ModelID
		}
		return a.ID < b.ID
	})
	return st
}

// PerformanceReports returns a copy of the latest report per model id.
func (m *Manager) PerformanceReports() map[string]types.ExecutionReport {
	m.reportsMu.RLock()
	defer m.reportsMu.RUnlock()
	out := make(map[string]types.ExecutionReport, len(m.reports))
	for k, v := range m.reports {
		out[k] = v
	}
	return out
}

// Report returns the latest report for one model.
func (m *Manager) Report(modelID string) (types.ExecutionReport, bool) {
	m.reportsMu.RLock()
	defer m.reportsMu.RUnlock()
	r, ok := m.reports[modelID]
	return r, ok
}
